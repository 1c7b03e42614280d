// Package provider is the boundary to the hosted identity and data service.
// The rest of the client only sees the Client interface; the concrete
// implementation speaks JSON over HTTP. Sessions are issued, refreshed and
// revoked by the provider; the client holds them for the process lifetime
// and reports every change through the subscription stream.
package provider

import (
	"context"
	"time"

	"github.com/khairulanwar/transferdesk/internal/client/models"
)

// Session is the opaque credential bundle issued by the provider. UserID,
// Email and ExpiresAt are recovered from the access token's claims when the
// response body omits them.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the access token's lifetime has passed. A session
// without expiry metadata is treated as live; the provider will reject it if
// it is not.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// ChangeEvent labels a session-change notification.
type ChangeEvent string

const (
	EventSignedIn       ChangeEvent = "SIGNED_IN"
	EventSignedOut      ChangeEvent = "SIGNED_OUT"
	EventTokenRefreshed ChangeEvent = "TOKEN_REFRESHED"
)

// ChangeCallback receives session-change notifications. session is nil for
// EventSignedOut.
type ChangeCallback func(event ChangeEvent, session *Session)

// Subscription is the handle returned by OnSessionChange. Unsubscribe is
// idempotent.
type Subscription interface {
	Unsubscribe()
}

// Profile is the provider-stored record carrying the user-chosen display
// name. It may legitimately not exist for a given user.
type Profile struct {
	DisplayName string `json:"display_name"`
}

// SignUpParams are the inputs to SignUp. RedirectTo is where the provider
// sends the user after confirming their email; Name is stored as profile
// metadata.
type SignUpParams struct {
	Email      string
	Password   string
	Name       string
	RedirectTo string
}

// SignUpResult reports the outcome of a registration. A created identity
// with a nil Session means the provider wants the email confirmed before it
// will establish a session.
type SignUpResult struct {
	UserID  string
	Session *Session
}

// Client is the full provider contract: credential-based session issuance
// plus the row-level-secured per-user profile and transfer store.
type Client interface {
	SignUp(ctx context.Context, params SignUpParams) (*SignUpResult, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context) error
	// GetSession returns the current session, silently refreshing an expired
	// one. (nil, nil) means no session exists.
	GetSession(ctx context.Context) (*Session, error)
	OnSessionChange(cb ChangeCallback) Subscription

	// SelectProfile returns (nil, nil) when no profile row exists.
	SelectProfile(ctx context.Context, userID string) (*Profile, error)
	ListTransfers(ctx context.Context, userID string) ([]models.TransferRecord, error)
	InsertTransfer(ctx context.Context, rec *models.TransferRecord) (*models.TransferRecord, error)
	DeleteTransfer(ctx context.Context, id, userID string) error

	Close() error
}

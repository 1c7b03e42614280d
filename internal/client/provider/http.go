package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/khairulanwar/transferdesk/internal/client/models"
	"github.com/khairulanwar/transferdesk/internal/client/storage"
	"github.com/khairulanwar/transferdesk/internal/logging"
)

// HTTPClient implements Client against the provider's JSON endpoints:
// /auth/v1/* for session issuance and /rest/v1/* for row-level-secured data.
//
// The current session lives in memory for the process lifetime and is
// mirrored into local storage under a provider-scoped key, so a restarted
// client can resume it. That cached key is exactly what the version guard
// scans for and removes on a build change.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	store      storage.Repository
	log        logging.Logger
	sessionKey string
	now        func() time.Time

	mu      sync.Mutex
	session *Session
	subs    map[int]ChangeCallback
	nextSub int
}

// NewHTTPClient builds a provider client for baseURL, authenticated with the
// project api key. A previously cached session is restored best-effort.
func NewHTTPClient(ctx context.Context, baseURL, apiKey string, store storage.Repository, log logging.Logger) *HTTPClient {
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{},
		store:      store,
		log:        log,
		sessionKey: sessionStorageKey(baseURL),
		now:        time.Now,
		subs:       make(map[int]ChangeCallback),
	}
	c.restoreSession(ctx)
	return c
}

// sessionStorageKey derives the local-storage key for the cached session from
// the provider host, e.g. https://abcd.supabase.example -> sb-abcd-auth-token.
func sessionStorageKey(baseURL string) string {
	ref := "local"
	if u, err := url.Parse(baseURL); err == nil && u.Hostname() != "" {
		ref = strings.SplitN(u.Hostname(), ".", 2)[0]
	}
	return "sb-" + ref + "-auth-token"
}

func (c *HTTPClient) restoreSession(ctx context.Context) {
	raw, err := c.store.Get(ctx, c.sessionKey)
	if err != nil {
		c.log.Warn(ctx, "failed to restore cached session", "err", err)
		return
	}
	if raw == nil {
		return
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		c.log.Warn(ctx, "discarding unreadable cached session", "err", err)
		_ = c.store.Delete(ctx, c.sessionKey)
		return
	}
	c.mu.Lock()
	c.session = &s
	c.mu.Unlock()
}

// setSession replaces the current session, mirrors it into local storage and
// notifies subscribers. A nil session removes the cached copy.
func (c *HTTPClient) setSession(ctx context.Context, event ChangeEvent, s *Session) {
	c.mu.Lock()
	c.session = s
	cbs := make([]ChangeCallback, 0, len(c.subs))
	for _, cb := range c.subs {
		cbs = append(cbs, cb)
	}
	c.mu.Unlock()

	if s == nil {
		if err := c.store.Delete(ctx, c.sessionKey); err != nil {
			c.log.Warn(ctx, "failed to drop cached session", "err", err)
		}
	} else if raw, err := json.Marshal(s); err == nil {
		if err := c.store.Set(ctx, c.sessionKey, raw); err != nil {
			c.log.Warn(ctx, "failed to cache session", "err", err)
		}
	}

	for _, cb := range cbs {
		cb(event, s)
	}
}

func (c *HTTPClient) OnSessionChange(cb ChangeCallback) Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = cb
	return &subscription{client: c, id: id}
}

type subscription struct {
	client *HTTPClient
	once   sync.Once
	id     int
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.client.mu.Lock()
		delete(s.client.subs, s.id)
		s.client.mu.Unlock()
	})
}

// tokenResponse is the wire shape of the token and signup endpoints.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	User         *struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// sessionFromToken builds a Session from a token response, filling gaps from
// the access token's claims. The signature is deliberately not verified here;
// verification is the provider's job, the client only needs the subject,
// email and expiry.
func (c *HTTPClient) sessionFromToken(tr *tokenResponse) *Session {
	s := &Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
	}
	if tr.User != nil {
		s.UserID = tr.User.ID
		s.Email = tr.User.Email
	}
	if tr.ExpiresIn > 0 {
		s.ExpiresAt = c.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}

	if s.UserID == "" || s.Email == "" || s.ExpiresAt.IsZero() {
		if tok, _, err := jwt.NewParser().ParseUnverified(tr.AccessToken, jwt.MapClaims{}); err == nil {
			claims, _ := tok.Claims.(jwt.MapClaims)
			if s.UserID == "" {
				s.UserID, _ = claims.GetSubject()
			}
			if s.Email == "" {
				s.Email, _ = claims["email"].(string)
			}
			if s.ExpiresAt.IsZero() {
				if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
					s.ExpiresAt = exp.Time
				}
			}
		}
	}
	return s
}

func (c *HTTPClient) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}

	var tr tokenResponse
	err := c.doJSON(ctx, http.MethodPost, "/auth/v1/token", url.Values{"grant_type": {"password"}}, body, &tr, "")
	if err != nil {
		return nil, err
	}

	s := c.sessionFromToken(&tr)
	c.setSession(ctx, EventSignedIn, s)
	return s, nil
}

func (c *HTTPClient) SignUp(ctx context.Context, params SignUpParams) (*SignUpResult, error) {
	body := map[string]any{
		"email":    params.Email,
		"password": params.Password,
		"data":     map[string]string{"name": params.Name},
	}
	query := url.Values{}
	if params.RedirectTo != "" {
		query.Set("redirect_to", params.RedirectTo)
	}

	var tr struct {
		tokenResponse
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/v1/signup", query, body, &tr, ""); err != nil {
		return nil, err
	}

	res := &SignUpResult{UserID: tr.ID}
	if res.UserID == "" && tr.User != nil {
		res.UserID = tr.User.ID
	}
	// A token in the signup response means confirmations are disabled and the
	// user is signed in right away.
	if tr.AccessToken != "" {
		res.Session = c.sessionFromToken(&tr.tokenResponse)
		c.setSession(ctx, EventSignedIn, res.Session)
	}
	return res, nil
}

func (c *HTTPClient) SignOut(ctx context.Context) error {
	c.mu.Lock()
	current := c.session
	c.mu.Unlock()

	// Local state is dropped first so a failed revocation call cannot leave
	// the client looking signed in.
	c.setSession(ctx, EventSignedOut, nil)

	if current == nil {
		return nil
	}
	return c.doJSON(ctx, http.MethodPost, "/auth/v1/logout", nil, nil, nil, current.AccessToken)
}

func (c *HTTPClient) GetSession(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	current := c.session
	c.mu.Unlock()

	if current == nil {
		return nil, nil
	}
	if !current.Expired(c.now()) {
		s := *current
		return &s, nil
	}
	if current.RefreshToken == "" {
		c.setSession(ctx, EventSignedOut, nil)
		return nil, nil
	}

	var tr tokenResponse
	err := c.doJSON(ctx, http.MethodPost, "/auth/v1/token", url.Values{"grant_type": {"refresh_token"}},
		map[string]string{"refresh_token": current.RefreshToken}, &tr, "")
	if err != nil {
		// An expired session that cannot be refreshed is gone.
		c.setSession(ctx, EventSignedOut, nil)
		return nil, err
	}

	s := c.sessionFromToken(&tr)
	c.setSession(ctx, EventTokenRefreshed, s)
	return s, nil
}

func (c *HTTPClient) SelectProfile(ctx context.Context, userID string) (*Profile, error) {
	query := url.Values{
		"id":     {"eq." + userID},
		"select": {"display_name"},
		"limit":  {"1"},
	}
	var rows []Profile
	if err := c.doAuthed(ctx, http.MethodGet, "/rest/v1/profiles", query, nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (c *HTTPClient) ListTransfers(ctx context.Context, userID string) ([]models.TransferRecord, error) {
	query := url.Values{
		"owner_id": {"eq." + userID},
		"order":    {"created_at.desc"},
	}
	var rows []models.TransferRecord
	if err := c.doAuthed(ctx, http.MethodGet, "/rest/v1/transfers", query, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *HTTPClient) InsertTransfer(ctx context.Context, rec *models.TransferRecord) (*models.TransferRecord, error) {
	var rows []models.TransferRecord
	if err := c.doAuthed(ctx, http.MethodPost, "/rest/v1/transfers", nil, rec, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &Error{Status: http.StatusOK, Message: "insert returned no representation"}
	}
	return &rows[0], nil
}

func (c *HTTPClient) DeleteTransfer(ctx context.Context, id, userID string) error {
	query := url.Values{
		"id":       {"eq." + id},
		"owner_id": {"eq." + userID},
	}
	return c.doAuthed(ctx, http.MethodDelete, "/rest/v1/transfers", query, nil, nil)
}

func (c *HTTPClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// doAuthed is doJSON with the current session's bearer token attached.
func (c *HTTPClient) doAuthed(ctx context.Context, method, path string, query url.Values, body, out any) error {
	c.mu.Lock()
	current := c.session
	c.mu.Unlock()
	if current == nil {
		return ErrUnauthorized
	}
	return c.doJSON(ctx, method, path, query, body, out, current.AccessToken)
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, query url.Values, body, out any, bearer string) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost && strings.HasPrefix(path, "/rest/") {
		req.Header.Set("Prefer", "return=representation")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if resp.StatusCode >= 400 {
		return c.responseError(resp.StatusCode, data)
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// responseError turns a non-2xx payload into a typed error, keeping the
// provider's own message wherever one is present.
func (c *HTTPClient) responseError(status int, data []byte) error {
	var payload struct {
		Message          string `json:"message"`
		Msg              string `json:"msg"`
		ErrorDescription string `json:"error_description"`
	}
	_ = json.Unmarshal(data, &payload)

	message := payload.Message
	if message == "" {
		message = payload.Msg
	}
	if message == "" {
		message = payload.ErrorDescription
	}
	if message == "" {
		message = http.StatusText(status)
	}

	if status >= 500 {
		return fmt.Errorf("%w: %s", ErrUnavailable, message)
	}
	return &Error{Status: status, Message: message}
}

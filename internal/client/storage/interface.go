// Package storage is the client's durable local store: a single key-value
// table in a local SQLite database. It stands in for the browser's
// localStorage in the original product and is shared, key-wise, between the
// version guard, the session manager, the provider client and the transfer
// draft caches. Each key has exactly one writing component.
package storage

import "context"

// Keys owned by this client. Anything else found in the store belongs to the
// provider client (its session cache) or is junk left behind by an older
// build, which the version guard is allowed to wipe.
const (
	KeyAppVersion        = "app_version"
	KeyTheme             = "theme"
	KeyLanguage          = "language"
	KeyTransferDraft     = "transferData"
	KeyReportDraft       = "ctosData"
	KeyEditTransferDraft = "editTransferData"
	KeyReturnTo          = "returnTo"
)

// Repository is a durable string-keyed byte store.
//
// Get returns (nil, nil) for a missing key so callers can distinguish
// "absent" from a storage failure.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) error

	// Transact runs fn against a repository whose writes commit atomically.
	// Implementations without transaction support run fn directly.
	Transact(ctx context.Context, fn func(Repository) error) error
}

package provider

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized covers rejected credentials and revoked sessions.
	ErrUnauthorized = errors.New("provider: unauthorized")
	// ErrUnavailable covers transport failures and 5xx responses.
	ErrUnavailable = errors.New("provider: unavailable")
)

// Error is a failure payload returned by the provider. Message keeps the
// provider's own wording so the session layer can remap known phrases to
// friendlier text.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider: %s (status %d)", e.Message, e.Status)
}

// AsProviderError unwraps err into *Error if it carries one.
func AsProviderError(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

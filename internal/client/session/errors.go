package session

// ErrorKind classifies a failed auth operation.
type ErrorKind string

const (
	// KindValidation: malformed email, name or password, caught before any
	// network call.
	KindValidation ErrorKind = "validation"
	// KindProvider: the provider returned a failure payload.
	KindProvider ErrorKind = "provider"
	// KindTimeout: the provider did not answer before the deadline.
	KindTimeout ErrorKind = "timeout"
	// KindStorage: durable local storage misbehaved.
	KindStorage ErrorKind = "storage"
)

// Error is the typed failure returned by Login and Register. Detail is
// always an actionable, user-facing message, never a raw stack or wire
// payload.
type Error struct {
	Kind   ErrorKind
	Detail string
}

func (e *Error) Error() string {
	return e.Detail
}

func validationError(detail string) *Error {
	return &Error{Kind: KindValidation, Detail: detail}
}

package services

import "errors"

// Error kinds. Handlers map each kind onto one HTTP status.
var (
	ErrValidation      = errors.New("validation error")
	ErrUnauthenticated = errors.New("authentication error")
	ErrForbidden       = errors.New("authorization error")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUpstream        = errors.New("upstream dependency failure")
)

// Error is a classified failure with a message that is safe to show to clients.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func newError(kind error, message string) error {
	return &Error{Kind: kind, Message: message}
}

func wrapError(kind error, message string, err error) error {
	return &Error{Kind: kind, Message: message, Err: err}
}

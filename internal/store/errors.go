package store

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a store error with an HTTP-style status code.
// Adapters return copies of the sentinels below (via WithCause/WithMessage);
// errors.Is matches on the code so the copies still compare equal.
type Error struct {
	Code    int    // HTTP status code
	Message string // User-facing message
	Err     error  // Underlying error (optional)
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a store error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPCode returns the HTTP status code associated with this error.
func (e *Error) HTTPCode() int { return e.Code }

// WithMessage returns a new error with a custom message.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{
		Code:    e.Code,
		Message: msg,
		Err:     e.Err,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// Sentinel errors.
var (
	ErrNotFound = &Error{
		Code:    http.StatusNotFound,
		Message: "record not found",
	}

	// ErrConflict is returned when an insert violates a uniqueness constraint.
	ErrConflict = &Error{
		Code:    http.StatusConflict,
		Message: "record conflicts with an existing record",
	}

	// ErrInvalidQuery is returned for unknown kinds, unknown fields or
	// malformed filters. It indicates a programming error, not bad data.
	ErrInvalidQuery = &Error{
		Code:    http.StatusBadRequest,
		Message: "invalid query",
	}

	// ErrUnavailable wraps transport and engine failures that may succeed on retry.
	ErrUnavailable = &Error{
		Code:    http.StatusServiceUnavailable,
		Message: "store unavailable",
	}
)

package common

import (
	"errors"
	"fmt"
)

var (
	// repository specific errors
	ErrorNotFound = errors.New("not found")

	// service specific errors
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorConflict     = errors.New("conflict")
	ErrorBadRequest   = errors.New("bad request")

	// token errors
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Error is a domain failure carrying a kind (one of the sentinels above) and
// a message that is safe to show to the caller.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Kind }

// NewError builds an Error of the given kind.
func NewError(kind error, format string, args ...any) *Error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Kind: kind, Message: msg}
}

func Conflict(format string, args ...any) *Error { return NewError(ErrorConflict, format, args...) }

func Unauthorized(format string, args ...any) *Error {
	return NewError(ErrorUnauthorized, format, args...)
}

func Forbidden(format string, args ...any) *Error { return NewError(ErrorForbidden, format, args...) }

func BadRequest(format string, args ...any) *Error { return NewError(ErrorBadRequest, format, args...) }

func NotFound(format string, args ...any) *Error { return NewError(ErrorNotFound, format, args...) }

// Message returns the caller-facing message of err, or "" when err carries none.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return ""
}

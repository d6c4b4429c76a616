// Package httperr defines the sentinel errors the HTTP transport maps onto
// status codes, and a small wrapper that carries a client-facing message.
package httperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrBadRequest marks a malformed or semantically invalid request.
	ErrBadRequest = errors.New("bad request")
	// ErrForbidden marks a request an Authorize hook rejected.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound marks a request against a repository or ref that doesn't exist.
	ErrNotFound = errors.New("not found")
	// ErrInternal marks a failure in the server's own storage or encoding logic.
	ErrInternal = errors.New("internal error")
)

// Error pairs a sentinel with a human-readable message safe to return to
// the client.
type Error struct {
	Sentinel error
	Message  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Sentinel, e.Message)
}

func (e *Error) Unwrap() error { return e.Sentinel }

// BadRequest, Forbidden, NotFound and Internal build an *Error around the
// matching sentinel.
func BadRequest(format string, args ...any) error {
	return &Error{Sentinel: ErrBadRequest, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) error {
	return &Error{Sentinel: ErrForbidden, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return &Error{Sentinel: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func Internal(format string, args ...any) error {
	return &Error{Sentinel: ErrInternal, Message: fmt.Sprintf(format, args...)}
}

// StatusCode maps err onto the HTTP status the transport should send. Any
// error not wrapping one of this package's sentinels maps to 500.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

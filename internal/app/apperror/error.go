// Package apperror carries errors that know which HTTP status they map to.
package apperror

import (
	"errors"
	"net/http"
	"strings"
)

type Kind string

const (
	KindInvalid       Kind = "InvalidInput"
	KindUnauthorized  Kind = "Unauthorized"
	KindForbidden     Kind = "Forbidden"
	KindNotFound      Kind = "NotFound"
	KindConflict      Kind = "Conflict"
	KindUnprocessable Kind = "Unprocessable"
	KindUpstream      Kind = "UpstreamFailure"
	KindInternal      Kind = "Internal"
)

// Error is a client-facing error. The message is safe to return to callers.
type Error struct {
	Kind  Kind
	msg   string
	cause error
}

func (e *Error) Error() string {
	return e.msg
}

func (e *Error) Unwrap() error {
	return e.cause
}

// WithCause attaches the underlying error that produced e.
func (e *Error) WithCause(c error) *Error {
	e.cause = c
	return e
}

// Trace renders the message followed by the chain of causes.
func (e *Error) Trace() string {
	b := &strings.Builder{}
	b.WriteString(e.msg)
	depth := 1
	for err := errors.Unwrap(e); err != nil; err = errors.Unwrap(err) {
		b.WriteString("\n")
		b.WriteString(strings.Repeat("\t", depth))
		b.WriteString("Caused by: ")
		b.WriteString(err.Error())
		depth++
	}
	return b.String()
}

// StatusCode returns the HTTP status associated with the error kind.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindInvalid:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnprocessable:
		return http.StatusUnprocessableEntity
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func newErr(k Kind, m string) *Error {
	return &Error{Kind: k, msg: m}
}

func Invalid(m string) *Error       { return newErr(KindInvalid, m) }
func Unauthorized(m string) *Error  { return newErr(KindUnauthorized, m) }
func Forbidden(m string) *Error     { return newErr(KindForbidden, m) }
func NotFound(m string) *Error      { return newErr(KindNotFound, m) }
func Conflict(m string) *Error      { return newErr(KindConflict, m) }
func Unprocessable(m string) *Error { return newErr(KindUnprocessable, m) }
func Upstream(m string) *Error      { return newErr(KindUpstream, m) }
func Internal(m string) *Error      { return newErr(KindInternal, m) }

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries kind k.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// Package svcerr defines the typed error surfaced by every service in this
// codebase: a kind the caller can switch on, a human-readable message, and the
// backend cause when one exists.
package svcerr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a service failure.
type Kind int

const (
	Internal Kind = iota
	NotConfigured
	Invalid
	NotFound
	PermissionDenied
	SessionExpired
	RateLimited
	Unavailable
	Conflict
	// Partial marks a multi-step write that committed some but not all of its
	// steps. The message names what committed so the caller can reconcile.
	Partial
)

func (k Kind) String() string {
	switch k {
	case NotConfigured:
		return "not_configured"
	case Invalid:
		return "invalid"
	case NotFound:
		return "not_found"
	case PermissionDenied:
		return "permission_denied"
	case SessionExpired:
		return "session_expired"
	case RateLimited:
		return "rate_limited"
	case Unavailable:
		return "unavailable"
	case Conflict:
		return "conflict"
	case Partial:
		return "partial"
	default:
		return "internal"
	}
}

// Error carries a failure kind, message and optional backend cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error with no cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds an Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a backend cause to a new Error.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the kind from err, or Internal for foreign errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == kind
}

// FromHTTPStatus maps a third-party API status code to a typed error, using
// the status-specific messages callers surface to the UI.
func FromHTTPStatus(provider string, status int) *Error {
	switch {
	case status == http.StatusUnauthorized:
		return Newf(SessionExpired, "%s session expired, please sign in again", provider)
	case status == http.StatusForbidden:
		return Newf(PermissionDenied, "%s permission denied", provider)
	case status == http.StatusTooManyRequests:
		return Newf(RateLimited, "%s rate limit exceeded, try again shortly", provider)
	case status >= 500:
		return Newf(Unavailable, "%s service unavailable", provider)
	default:
		return Newf(Internal, "%s request failed (status %d)", provider, status)
	}
}

// HTTPStatus maps a service error back to the status the HTTP layer returns.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case Invalid:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case PermissionDenied:
		return http.StatusForbidden
	case SessionExpired:
		return http.StatusUnauthorized
	case RateLimited:
		return http.StatusTooManyRequests
	case Unavailable:
		return http.StatusBadGateway
	case Conflict:
		return http.StatusConflict
	case NotConfigured:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error so boundaries can map provider failures to a
// stable taxonomy instead of propagating message strings.
type Kind int

const (
	// KindInternal is the catch-all for unexpected failures.
	KindInternal Kind = iota
	// KindUnauthenticated means no active principal was supplied.
	KindUnauthenticated
	// KindPermissionDenied means the principal lacks the required scope.
	KindPermissionDenied
	// KindNotFound means the referenced entity does not resolve.
	KindNotFound
	// KindInvalidInput means a required field is missing or malformed.
	KindInvalidInput
	// KindConflict means the operation collides with current state.
	KindConflict
	// KindUnavailable means a downstream store or provider failed transiently.
	KindUnavailable
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindPermissionDenied:
		return "permission_denied"
	case KindNotFound:
		return "not_found"
	case KindInvalidInput:
		return "invalid_input"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error carries a kind alongside a human-readable message and an optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an error of the given kind.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf builds an error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying cause.
func Wrap(kind Kind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the kind from an error chain, defaulting to KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether the error chain carries the given kind.
func Is(err error, kind Kind) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// Message returns the message of the outermost classified error, or a generic
// fallback for unclassified errors so raw store messages never leak to clients.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Msg
	}
	return "internal server error"
}

// Package apperr defines the tagged error kinds every operation returns, so
// HTTP handlers can map failures to status codes without string matching.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an operation failure.
type Kind int

// Kind constants define the failure classes.
const (
	// KindInternal is an unexpected server-side failure.
	KindInternal Kind = iota
	// KindValidation is a rejected input that never reached the store.
	KindValidation
	// KindNotFound is a missing entity.
	KindNotFound
	// KindConflict is a uniqueness or state conflict.
	KindConflict
	// KindUnauthorized is a missing or invalid identity.
	KindUnauthorized
	// KindForbidden is an authenticated but unauthorized request.
	KindForbidden
)

// Error is a kinded error with a user-facing message.
type Error struct {
	Kind    Kind   // Failure class.
	Message string // Safe, user-facing message.
	Err     error  // Wrapped cause, may be nil.
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error { return e.Err }

// New constructs a kinded error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs a kinded error around a cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation constructs a validation error.
func Validation(message string) *Error { return New(KindValidation, message) }

// NotFound constructs a not-found error.
func NotFound(message string) *Error { return New(KindNotFound, message) }

// Conflict constructs a conflict error.
func Conflict(message string) *Error { return New(KindConflict, message) }

// Unauthorized constructs an unauthorized error.
func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }

// Forbidden constructs a forbidden error.
func Forbidden(message string) *Error { return New(KindForbidden, message) }

// Internal constructs an internal error around a cause.
func Internal(message string, err error) *Error {
	return Wrap(KindInternal, message, err)
}

// KindOf returns the kind of an error, defaulting to KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// MessageOf returns the safe message of an error, or a generic fallback.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal error"
}

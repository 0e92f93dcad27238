// Package apperr is the error taxonomy shared by the stores, the worker
// directory and the assignment engine. Every failure carries a short message
// for people and a Kind for code.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	werrors "github.com/dalemusser/waffle/pantry/errors"
)

// Kind classifies a failure so callers can branch on it.
type Kind string

const (
	KindNotFound            Kind = "not_found"
	KindValidation          Kind = "validation"
	KindConflict            Kind = "conflict"
	KindForbiddenAssignment Kind = "forbidden_assignment"
	KindInvalidTransition   Kind = "invalid_transition"
	KindStorageUnavailable  Kind = "storage_unavailable"
	KindTimeout             Kind = "timeout"
	KindUnauthorized        Kind = "unauthorized"
	KindUnsupportedMedia    Kind = "unsupported_media_type"
)

// Error is a classified failure with an optional underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the sentinels below work with
// errors.Is regardless of message or cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrNotFound            = &Error{Kind: KindNotFound, Message: "not found"}
	ErrValidation          = &Error{Kind: KindValidation, Message: "invalid input"}
	ErrConflict            = &Error{Kind: KindConflict, Message: "conflict"}
	ErrForbiddenAssignment = &Error{Kind: KindForbiddenAssignment, Message: "worker does not belong to this organization"}
	ErrInvalidTransition   = &Error{Kind: KindInvalidTransition, Message: "status transition not permitted"}
	ErrStorageUnavailable  = &Error{Kind: KindStorageUnavailable, Message: "storage unavailable"}
	ErrTimeout             = &Error{Kind: KindTimeout, Message: "operation timed out"}
	ErrUnauthorized        = &Error{Kind: KindUnauthorized, Message: "unauthorized"}
)

// New builds a classified error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing entity.
func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Message: entity + " not found"}
}

// Validation reports malformed or missing input.
func Validation(format string, args ...any) *Error {
	return New(KindValidation, format, args...)
}

// Storage wraps a store failure. Deadline overruns become Timeout; anything
// else becomes StorageUnavailable. Errors that are already classified pass
// through untouched.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Message: op + " timed out", Err: err}
	}
	return &Error{Kind: KindStorageUnavailable, Message: op + " failed", Err: err}
}

// KindOf returns the kind of err, or "" for unclassified errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// Status returns the HTTP status for k.
func (k Kind) Status() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict, KindInvalidTransition:
		return http.StatusConflict
	case KindForbiddenAssignment:
		return http.StatusForbidden
	case KindStorageUnavailable:
		return http.StatusServiceUnavailable
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindUnsupportedMedia:
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}

// HTTP converts err into the wire error. The kind becomes the code; an
// unclassified error becomes internal_error with its text withheld. Each call
// returns a fresh value, so callers may attach details.
func HTTP(err error) *werrors.Error {
	var ae *Error
	switch {
	case errors.As(err, &ae):
		return werrors.Wrap(err, string(ae.Kind), ae.Message, ae.Kind.Status())
	case errors.Is(err, context.DeadlineExceeded):
		return werrors.Wrap(err, string(KindTimeout), "operation timed out", KindTimeout.Status())
	default:
		return werrors.Wrap(err, werrors.CodeInternalError, "internal error", http.StatusInternalServerError)
	}
}

// Message returns the human-readable part of err, without the cause chain.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return "internal error"
}

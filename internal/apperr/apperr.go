// Package apperr defines the application error taxonomy. Stores return
// misses as values; services are the first layer to turn an absence into
// a NotFound, and guards raise Forbidden/Unauthorized directly. Handlers
// render any *Error into the response envelope with its status code.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindForbidden
	KindUnauthorized
	KindValidation
	KindConflict
)

// Detail describes a single failure cause, typically a field-level
// validation problem.
type Detail struct {
	Field       string            `json:"field,omitempty"`
	Reason      string            `json:"reason"`
	Constraints map[string]string `json:"constraints,omitempty"`
	Code        string            `json:"code,omitempty"`
}

// Error is a typed application error carrying an HTTP-mappable kind and
// optional per-field details.
type Error struct {
	Kind    Kind
	Message string
	Details []Detail
}

func (e *Error) Error() string {
	return e.Message
}

// StatusCode maps the error kind to its HTTP status.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(format string, args ...any) *Error {
	return &Error{Kind: KindUnauthorized, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func Validation(message string, details ...Detail) *Error {
	return &Error{Kind: KindValidation, Message: message, Details: details}
}

// Internal wraps an unexpected failure without leaking its cause to
// clients; the original error is only useful in logs.
func Internal(message string) *Error {
	return &Error{Kind: KindInternal, Message: message}
}

// From extracts an *Error from err, or wraps it as an internal error.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("internal server error")
}

// IsNotFound reports whether err is a NotFound application error.
func IsNotFound(err error) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == KindNotFound
}

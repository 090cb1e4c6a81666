// Package apperr defines the service-wide error taxonomy. Domain packages
// return their own expected-failure values; services translate those and
// gateway failures into these codes at the boundary, and handlers map codes
// to HTTP statuses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for callers and for HTTP mapping.
type Code int

const (
	// CodeInternal is an unmapped failure. Anything unclassified lands here.
	CodeInternal Code = iota
	// CodeBadRequest covers malformed input and insufficient balance.
	CodeBadRequest
	// CodeNotFound covers missing entities and ownership mismatches. The two
	// are deliberately conflated so a caller cannot probe for the existence
	// of another actor's records.
	CodeNotFound
	// CodeConflict covers a second mutating call against a bill that already
	// left PENDING.
	CodeConflict
	// CodeUnauthorized covers missing or unverifiable credentials.
	CodeUnauthorized
	// CodeForbidden covers an authenticated actor lacking permission.
	CodeForbidden
	// CodeUnavailable covers transient ledger-gateway outages.
	CodeUnavailable
)

// Error carries a taxonomy code alongside the message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match two taxonomy errors by code alone.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

func newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// BadRequest builds a CodeBadRequest error.
func BadRequest(format string, args ...any) *Error { return newf(CodeBadRequest, format, args...) }

// NotFound builds a CodeNotFound error.
func NotFound(format string, args ...any) *Error { return newf(CodeNotFound, format, args...) }

// Conflict builds a CodeConflict error.
func Conflict(format string, args ...any) *Error { return newf(CodeConflict, format, args...) }

// Unauthorized builds a CodeUnauthorized error.
func Unauthorized(format string, args ...any) *Error { return newf(CodeUnauthorized, format, args...) }

// Forbidden builds a CodeForbidden error.
func Forbidden(format string, args ...any) *Error { return newf(CodeForbidden, format, args...) }

// Unavailable builds a CodeUnavailable error.
func Unavailable(format string, args ...any) *Error { return newf(CodeUnavailable, format, args...) }

// WithCause attaches the underlying error for logging and errors.Is chains.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// Internal wraps an unexpected error so its cause survives the boundary.
func Internal(err error, format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf extracts the taxonomy code anywhere in the chain, defaulting to
// CodeInternal for unclassified errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// IsNotFound reports whether err is classified CodeNotFound.
func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }

// IsConflict reports whether err is classified CodeConflict.
func IsConflict(err error) bool { return CodeOf(err) == CodeConflict }

// IsBadRequest reports whether err is classified CodeBadRequest.
func IsBadRequest(err error) bool { return CodeOf(err) == CodeBadRequest }

// IsForbidden reports whether err is classified CodeForbidden.
func IsForbidden(err error) bool { return CodeOf(err) == CodeForbidden }

// HTTPStatus maps a classified error to its response status.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

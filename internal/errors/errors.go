// Package errors provides coded application errors shared across the
// service. Every failure crossing a package boundary carries a Code so
// handlers can map it to a transport status without string matching.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Code classifies an application error.
type Code string

const (
	ErrCodeInvalidTransition  Code = "INVALID_TRANSITION"
	ErrCodeUnauthorized       Code = "UNAUTHORIZED"
	ErrCodeValidation         Code = "VALIDATION_FAILED"
	ErrCodeNoMatchingWorkflow Code = "NO_MATCHING_WORKFLOW"
	ErrCodeStaleChain         Code = "STALE_CHAIN_STATE"
	ErrCodeNotFound           Code = "NOT_FOUND"
	ErrCodeConflict           Code = "CONFLICT"
	ErrCodeInternal           Code = "INTERNAL"
)

// Error is a coded application error, optionally wrapping a cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// NotFound creates a NOT_FOUND error for a resource and id.
func NotFound(resource, id string) *Error {
	return Newf(ErrCodeNotFound, "%s %q not found", resource, id)
}

// InvalidInput creates a VALIDATION_FAILED error for a named field.
func InvalidInput(field, message string) *Error {
	return Newf(ErrCodeValidation, "%s: %s", field, message)
}

// CodeOf extracts the Code from err, or ErrCodeInternal for uncoded errors.
func CodeOf(err error) Code {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// HTTPStatus maps an error code to an HTTP response status.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case ErrCodeValidation, ErrCodeInvalidTransition:
		return http.StatusUnprocessableEntity
	case ErrCodeUnauthorized:
		return http.StatusForbidden
	case ErrCodeNotFound, ErrCodeNoMatchingWorkflow:
		return http.StatusNotFound
	case ErrCodeConflict, ErrCodeStaleChain:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

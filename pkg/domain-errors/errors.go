// Package domainerrors provides coded errors shared by all services.
//
// Services attach a Code so transport layers can map errors to HTTP status
// codes without inspecting message strings. Stores return sentinel errors
// (pkg/platform/sentinel); services translate those into coded errors at the
// boundary where enough context exists to pick the right code.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for callers.
type Code string

const (
	// CodeValidation marks semantically invalid input (bad penalty days,
	// empty reason, non-positive policy values). The operation had no effect.
	CodeValidation Code = "validation_error"

	// CodeBadRequest marks syntactically malformed requests (unparseable
	// body, missing required envelope fields).
	CodeBadRequest Code = "bad_request"

	// CodeInvalidInput marks malformed domain primitives (bad UUIDs).
	CodeInvalidInput Code = "invalid_input"

	// CodeNotFound marks lookups of entities that do not exist.
	CodeNotFound Code = "not_found"

	// CodeConflict marks operations rejected because of current state.
	CodeConflict Code = "conflict"

	// CodeInvariantViolation marks model-level invariant breaches. Services
	// usually translate it to CodeValidation or CodeConflict for callers.
	CodeInvariantViolation Code = "invariant_violation"

	// CodeUnauthorized marks missing or invalid credentials.
	CodeUnauthorized Code = "unauthorized"

	// CodeForbidden marks callers that lack a required role. Responses with
	// this code must not reveal whether the target resource exists.
	CodeForbidden Code = "forbidden"

	// CodeTimeout marks operations that exceeded their deadline.
	CodeTimeout Code = "timeout"

	// CodeInternal marks unexpected failures. Descriptions are never
	// returned to callers for this code.
	CodeInternal Code = "internal_error"
)

// Error is a coded error with an optional wrapped cause.
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

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a code and message, keeping err in the chain.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.cause
		if err == nil {
			return false
		}
	}
	return false
}

// Is reports whether the outermost coded error carries the given code.
// Alias kept for call-site readability in handlers.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the code of the outermost coded error, or CodeInternal
// when err carries no code.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the message of the outermost coded error, or "" when
// err carries no code.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}

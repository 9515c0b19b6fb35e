// Package planerr provides structured error types for planning-service calls.
//
// This package defines standard error codes and a structured Error type that
// includes the service dialect, the operation that failed, an error code, and
// cause chains. It integrates with Go's standard errors package for error
// wrapping and unwrapping.
package planerr

import (
	"errors"
	"fmt"
	"strings"
)

// Standard error codes used across service dialects for consistent error
// reporting.
const (
	// ErrCodeTransport indicates the HTTP round-trip itself failed:
	// connection refused, DNS failure, malformed content-type, or an
	// unexpected HTTP status.
	ErrCodeTransport = "TRANSPORT_ERROR"

	// ErrCodeAuthFailed indicates the service rejected the credentials.
	ErrCodeAuthFailed = "AUTH_FAILED"

	// ErrCodeInvalidToken indicates the configured bearer token was
	// rejected outright.
	ErrCodeInvalidToken = "INVALID_TOKEN"

	// ErrCodeServiceFailed indicates the remote solver reported failure.
	ErrCodeServiceFailed = "SERVICE_FAILED"

	// ErrCodeContractViolation indicates a response that matches none of
	// the recognized shapes for the dialect.
	ErrCodeContractViolation = "CONTRACT_VIOLATION"

	// ErrCodeUnsupportedFormat indicates an unrecognized plan encoding.
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"

	// ErrCodeTimeout indicates the planning budget elapsed before the
	// service produced a terminal result.
	ErrCodeTimeout = "TIMEOUT"

	// ErrCodeParseError indicates plan content that could not be decoded.
	ErrCodeParseError = "PARSE_ERROR"
)

// Error is a structured error type for planning-service operations.
// It records which service dialect and operation failed, carries a standard
// error code, and can wrap underlying errors.
type Error struct {
	// Service is the dialect that produced the error (e.g. "solve",
	// "request", "package").
	Service string

	// Operation is the specific operation that failed (e.g. "post",
	// "poll", "process-response").
	Operation string

	// Code is one of the ErrCode constants.
	Code string

	// Message is a human-readable error message.
	Message string

	// Details contains additional context as key-value pairs.
	Details map[string]any

	// Cause is the underlying error, if any.
	Cause error

	// Class categorizes the error by its nature.
	Class ErrorClass `json:"class,omitempty"`
}

// New creates a new structured planning error.
//
// Parameters:
//   - service: dialect name (e.g. "solve", "request", "package")
//   - operation: operation that failed (e.g. "post", "poll")
//   - code: error code constant
//   - message: human-readable description
func New(service, operation, code, message string) *Error {
	return &Error{
		Service:   service,
		Operation: operation,
		Code:      code,
		Message:   message,
		Class:     DefaultClassForCode(code),
	}
}

// WithCause adds an underlying error. Returns the same instance for chaining.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// WithDetails adds additional context. Returns the same instance for chaining.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// WithClass overrides the default classification for the error's code.
func (e *Error) WithClass(class ErrorClass) *Error {
	e.Class = class
	return e
}

// Error implements the error interface.
// It formats the error as: "service [operation/code]: message: cause".
//
// Examples:
//   - `request [post/INVALID_TOKEN]: Invalid token. Please configure your authentication token.`
//   - `package [poll/TRANSPORT_ERROR]: poll failed: connection refused`
func (e *Error) Error() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("%s [%s/%s]", e.Service, e.Operation, e.Code))

	if e.Message != "" {
		parts = append(parts, e.Message)
	}

	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements error equality for errors.Is. Two Errors match when Service,
// Operation, and Code agree; empty fields on the target act as wildcards.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Service != "" && t.Service != e.Service {
		return false
	}
	if t.Operation != "" && t.Operation != e.Operation {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// As implements error type assertion for errors.As.
func (e *Error) As(target any) bool {
	t, ok := target.(**Error)
	if !ok {
		return false
	}
	*t = e
	return true
}

// HasCode reports whether err is (or wraps) a planerr.Error with the given
// code.
func HasCode(err error, code string) bool {
	var pe *Error
	if !errors.As(err, &pe) {
		return false
	}
	return pe.Code == code
}

// Sentinel errors for common scenarios.

var (
	// ErrNoPlanFound is returned when a service terminates successfully
	// without producing any plan.
	ErrNoPlanFound = errors.New("no plan found")

	// ErrTimeout is returned when the planning budget elapses.
	ErrTimeout = errors.New("planning timed out")
)

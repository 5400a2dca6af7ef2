// Package errors provides structured error types for the bindle build engine.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across CLI and dev server
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - RESOLUTION_*: Specifier resolution failures
//   - SYNTAX_*: Module content validation failures
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidEntry, "invalid entry path: %s", path)
//	if errors.Is(err, errors.ErrCodeInvalidEntry) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInternal, origErr, "packing %s", id)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidEntry  Code = "INVALID_ENTRY"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeInvalidOutput Code = "INVALID_OUTPUT"

	// Resolution errors
	ErrCodeResolution     Code = "RESOLUTION_FAILED"
	ErrCodeModuleNotFound Code = "MODULE_NOT_FOUND"

	// Content errors
	ErrCodeSyntax Code = "SYNTAX_ERROR"

	// Output integrity errors
	ErrCodeUnboundReference Code = "UNBOUND_REFERENCE"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// ResolutionError reports a specifier that could not be resolved. It
// always carries both the literal specifier and the identity of the
// module that requested it; neither is ever dropped on the way up.
type ResolutionError struct {
	Specifier string // literal specifier at the call site
	From      string // identity of the requesting module
	Cause     error  // underlying probe failure (optional)
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cannot resolve %q from %s: %v", e.Specifier, e.From, e.Cause)
	}
	return fmt.Sprintf("cannot resolve %q from %s", e.Specifier, e.From)
}

// Unwrap returns the underlying cause.
func (e *ResolutionError) Unwrap() error { return e.Cause }

// Code returns the error code for this error type.
func (e *ResolutionError) Code() Code { return ErrCodeResolution }

// SyntaxError reports module content that failed validation before
// resolution. The module's resolution is blocked entirely and the build
// aborts.
type SyntaxError struct {
	Identity string // identity of the offending module
	Line     int    // 1-based line of the first offending position
	Column   int    // 1-based column of the first offending position
	Message  string // what was wrong
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Identity, e.Line, e.Column, e.Message)
}

// Code returns the error code for this error type.
func (e *SyntaxError) Code() Code { return ErrCodeSyntax }

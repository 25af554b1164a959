// Package errors provides structured error types for railtopo.
//
// Every conversion failure is fatal to the call that produced it and is
// reported as an *Error carrying a machine-readable [Code] plus the offending
// identifiers in [Error.Refs]. Callers format the error for users; the
// converters never attempt recovery.
//
// # Error Codes
//
// Conversion codes mirror the closed set of topology failures:
//   - SWITCH_*: a switch or crossing cannot be interpreted
//   - UNMATCHED_CONNECTION, TRACK_CONTINUATION_MISMATCH, DUPLICATE_REFERENCE:
//     named endpoint references do not pair up
//   - TRACK_ENDPOINT_*: the post-build invariant check failed
//
// Generic codes (INVALID_*, NOT_FOUND, INTERNAL_ERROR) cover I/O and
// configuration.
//
// # Usage
//
//	err := errors.Conversion(errors.ErrCodeSwitchCourseUnknown, "sw12")
//	if errors.Is(err, errors.ErrCodeSwitchCourseUnknown) {
//	    // Handle the bad switch
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeInvalidInput, origErr, "read %s", path)
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidFormat   Code = "INVALID_FORMAT"
	ErrCodeInvalidConfig   Code = "INVALID_CONFIG"
	ErrCodeInvalidGeometry Code = "INVALID_GEOMETRY"

	// Switch interpretation errors
	ErrCodeSwitchConnectionMissing  Code = "SWITCH_CONNECTION_MISSING"
	ErrCodeSwitchConnectionTooMany  Code = "SWITCH_CONNECTION_TOO_MANY"
	ErrCodeSwitchCourseUnknown      Code = "SWITCH_COURSE_UNKNOWN"
	ErrCodeSwitchOrientationInvalid Code = "SWITCH_ORIENTATION_INVALID"

	// Reference matching errors
	ErrCodeUnmatchedConnection       Code = "UNMATCHED_CONNECTION"
	ErrCodeTrackContinuationMismatch Code = "TRACK_CONTINUATION_MISMATCH"
	ErrCodeDuplicateReference        Code = "DUPLICATE_REFERENCE"

	// Post-build invariant errors
	ErrCodeTrackEndpointMissing   Code = "TRACK_ENDPOINT_MISSING"
	ErrCodeTrackEndpointDuplicate Code = "TRACK_ENDPOINT_DUPLICATE"

	// Resource errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code     // Machine-readable error code
	Message string   // Human-readable message
	Refs    []string // Offending identifiers, in variant order
	Cause   error    // Underlying error (optional)
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

// Conversion creates a conversion error for code with the offending
// identifiers. The message is derived from the code and refs, e.g.
// "unmatched connection (b, a)".
func Conversion(code Code, refs ...string) *Error {
	name := strings.ToLower(strings.ReplaceAll(string(code), "_", " "))
	return &Error{
		Code:    code,
		Message: fmt.Sprintf("%s (%s)", name, strings.Join(refs, ", ")),
		Refs:    refs,
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

// GetRefs returns the offending identifiers carried by err, or nil.
func GetRefs(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Refs
	}
	return nil
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

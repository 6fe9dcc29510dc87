// Package domainerrors provides coded errors shared across the registration
// flow. Codes classify failures the way the UI must react to them: validation
// and capture problems are fixed in place, setup problems send the user back a
// step, transport and system problems suggest a retry.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies a failure class.
type Code string

const (
	// CodeValidation marks malformed input caught before any network call.
	CodeValidation Code = "validation"

	// CodeCapture marks a rejected image artifact (wrong type, too large,
	// denied camera permission). Local, no network involved.
	CodeCapture Code = "capture"

	// CodeTransport marks a network-level failure: no response, timeout,
	// connection refused. Distinct from any content-based rejection.
	CodeTransport Code = "transport"

	// CodeContentRejected marks a server-side rejection of submitted content
	// (face mismatch, unreadable document). Recoverable by recapturing.
	CodeContentRejected Code = "content_rejected"

	// CodeSetup marks a step accessed with missing prerequisite latches.
	// The remediation is completing the earlier step, not fixing this one.
	CodeSetup Code = "setup"

	// CodeConflict marks an operation raced by another in-flight submission.
	CodeConflict Code = "conflict"

	// CodeNotFound marks a missing record.
	CodeNotFound Code = "not_found"

	// CodeInternal is the catch-all for unclassified failures.
	CodeInternal Code = "internal"
)

// Error is a coded domain error. Message is safe to surface to the user.
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

// New creates a coded error with a user-safe message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted user-safe message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(code Code, message string, cause error) error {
	return &Error{Code: code, Message: message, cause: cause}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for uncoded
// errors and the empty string for nil.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the user-safe message from err, falling back to a
// generic line for uncoded errors.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "an unexpected error occurred"
}

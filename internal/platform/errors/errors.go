// Package errors provides structured error handling with machine-readable
// codes shared by the relay server and the client library.
package errors

import "errors"

// Error is the domain error type with structured metadata.
type Error struct {
	Code     Code              // Machine-readable error code
	Message  string            // Human-readable message, safe to surface
	Metadata map[string]string // Additional context (path, status, returnTo)
	Cause    error             // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// Meta returns the metadata value for key, or the empty string.
func (e *Error) Meta(key string) string {
	if e == nil || e.Metadata == nil {
		return ""
	}
	return e.Metadata[key]
}

// New creates a domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WithMetadata creates a domain error carrying additional context.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Metadata: metadata,
	}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// CodeOf returns the code carried by err, or CodeUnknown when err is not a
// domain error.
func CodeOf(err error) Code {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeUnknown
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}

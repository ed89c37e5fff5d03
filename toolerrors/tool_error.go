// Package toolerrors provides a structured error type for tool invocation
// failures. ToolError preserves error chains and supports errors.Is/As while
// remaining trivially JSON-serializable. The Tool Registry uses it only to
// derive the message string it stores in a ToolResult's Error field.
package toolerrors

import (
	"errors"
	"fmt"
)

// ToolError represents a structured tool failure. Tool errors may nest via
// Cause to retain diagnostics across retries.
type ToolError struct {
	Message string     `json:"message"`
	Cause   *ToolError `json:"cause,omitempty"`
}

// New constructs a ToolError with the given message.
func New(message string) *ToolError {
	if message == "" {
		message = "tool error"
	}
	return &ToolError{Message: message}
}

// NewWithCause constructs a ToolError wrapping an underlying error.
func NewWithCause(message string, cause error) *ToolError {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &ToolError{Message: message, Cause: FromError(cause)}
}

// FromError converts an arbitrary error into a ToolError chain.
func FromError(err error) *ToolError {
	if err == nil {
		return nil
	}
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}
	return &ToolError{Message: err.Error(), Cause: FromError(errors.Unwrap(err))}
}

// Errorf formats according to a format specifier and returns a ToolError.
func Errorf(format string, args ...any) *ToolError {
	return New(fmt.Sprintf(format, args...))
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Unwrap returns the underlying tool error, supporting errors.Is/As.
func (e *ToolError) Unwrap() error {
	if e == nil || e.Cause == nil {
		return nil
	}
	return e.Cause
}

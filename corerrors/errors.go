// Package corerrors defines the error taxonomy shared across the agent
// orchestration core. Components classify failures into one of
// these kinds so the ReAct engine, the Plan-Execute-Respond pipeline, and
// the worker pool can apply uniform propagation rules (retry, surface,
// terminate) without inspecting implementation-specific error types.
package corerrors

import (
	"errors"
	"fmt"
)

// Kind enumerates the error taxonomy components classify failures into.
type Kind string

const (
	KindTransport       Kind = "transport_error"
	KindRateLimit       Kind = "rate_limit"
	KindModelTimeout    Kind = "model_timeout"
	KindToolUnavailable Kind = "tool_unavailable"
	KindToolError       Kind = "tool_error"
	KindSchemaError     Kind = "schema_error"
	KindBudgetExceeded  Kind = "budget_exceeded"
	KindValidation      Kind = "validation_error"
	KindNotFound        Kind = "not_found"
	KindInternal        Kind = "internal"
)

// CoreError wraps an underlying error with a classification Kind. Callers
// use errors.As to recover the Kind and decide on retry/propagation policy.
type CoreError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *CoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CoreError) Unwrap() error { return e.Err }

// New constructs a CoreError of the given kind.
func New(kind Kind, message string) *CoreError {
	return &CoreError{Kind: kind, Message: message}
}

// Wrap constructs a CoreError of the given kind wrapping err.
func Wrap(kind Kind, message string, err error) *CoreError {
	return &CoreError{Kind: kind, Message: message, Err: err}
}

// Is reports whether err is classified with the given kind.
func Is(err error, kind Kind) bool {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, defaulting to KindInternal when err is
// not a *CoreError.
func KindOf(err error) Kind {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindInternal
}

// Retryable reports whether the error's kind is eligible for a capped
// exponential-backoff retry loop: transport failures and tool errors. Rate
// limits, schema/validation errors, and budget exhaustion are not retried.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindTransport, KindToolError:
		return true
	default:
		return false
	}
}

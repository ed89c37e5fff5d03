package model

import "context"

type (
	// ToolSchema is the provider-facing description of a tool the model may
	// call: name, description, and a JSON Schema for its arguments.
	ToolSchema struct {
		Name        string
		Description string
		InputSchema map[string]any
	}

	// Usage reports token counts for a single model invocation.
	Usage struct {
		InputTokens  int
		OutputTokens int
		TotalTokens  int
	}

	// Request is the provider-agnostic model invocation request.
	Request struct {
		Model       string
		Messages    []Message
		Tools       []ToolSchema
		MaxTokens   int
		Temperature float64
	}

	// Response is a completed (non-streaming) model invocation result.
	Response struct {
		Message Message
		Usage   Usage
	}

	// StreamEventKind discriminates StreamEvent payloads.
	StreamEventKind string

	// StreamEvent is one increment of a streamed model response. Text may be
	// delivered either as a delta (common) or as the cumulative buffer so
	// far; TextIsCumulative tells the caller which, letting the
	// Plan-Execute-Respond synthesizer normalize both provider
	// styles to deltas.
	StreamEvent struct {
		Kind             StreamEventKind
		Text             string
		TextIsCumulative bool
		ToolCall         *ToolCall
		Usage            *Usage
	}

	// Client is the outbound language-model collaborator. Provider
	// adapters (e.g. Anthropic Claude) implement this on top of their native
	// SDK; the core never depends on a concrete provider package directly.
	Client interface {
		// Invoke performs a single non-streaming model call.
		Invoke(ctx context.Context, req Request) (Response, error)
		// Stream performs a streaming model call, delivering StreamEvents on
		// the returned channel until the model turn completes or ctx is
		// canceled. The channel is closed when the stream ends; a final
		// StreamEvent with a non-nil Usage always precedes closure on success.
		Stream(ctx context.Context, req Request) (<-chan StreamEvent, error)
	}
)

const (
	StreamEventText     StreamEventKind = "text"
	StreamEventToolCall StreamEventKind = "tool_call"
	StreamEventUsage    StreamEventKind = "usage"
	StreamEventDone     StreamEventKind = "done"
)

// Package tools implements a catalog of named tools with typed schemas
// that performs dispatch, size capping, and result normalization.
package tools

import (
	"context"

	"github.com/aws-idp/agentcore/agentctx"
)

// MaxContentLen is the character cap applied to the Message text of every
// ToolResult leaving the registry. Text inside Data is not truncated.
const MaxContentLen = 32000

// Default bounds for reference-image attachment forwarding.
const (
	DefaultRefImageMaxAttach    = 1
	DefaultRefImageMaxBase64Len = 500000
)

type (
	// ReferenceType discriminates the kind of artifact a Reference points at.
	ReferenceType string

	// Reference is a pointer to an external artifact surfaced to the client
	// for UI linking.
	Reference struct {
		ID          string
		Type        ReferenceType
		Title       string
		DisplayName string
		Value       string
		Metadata    map[string]string
	}

	// Attachment is a typed binary payload for LLM input. Only image attachments are recognized today.
	Attachment struct {
		Type      string // "image"
		MediaType string
		Data      string // base64
	}

	// ToolSpec describes a named tool: its typed input schema and whether it
	// consumes an AgentContext.
	ToolSpec struct {
		Name                 string
		Description          string
		InputSchema          map[string]any
		SupportsAgentContext bool
	}

	// ToolResult is the normalized, registry-facing result of a tool
	// invocation.
	ToolResult struct {
		Success        bool
		Message        string
		Data           map[string]any
		References     []Reference
		Attachments    []Attachment
		Error          string
		ExecutionTimeS float64
	}

	// RawToolResult is what a tool Handler returns, before normalization.
	// Handlers are free to return references/attachments in any of the raw
	// shapes the normalizer understands.
	RawToolResult struct {
		Success bool
		Message string
		Data    map[string]any
		Error   string
	}

	// Handler executes one tool invocation. Handlers must not panic on
	// expected failures; they should return a RawToolResult with
	// Success=false and Error set. Unexpected panics are recovered by
	// Invoke and converted to a failed ToolResult.
	Handler func(ctx context.Context, args map[string]any, actx agentctx.AgentContext) (RawToolResult, error)
)

const (
	ReferenceTypeDocument          ReferenceType = "document"
	ReferenceTypeImage             ReferenceType = "image"
	ReferenceTypeURL               ReferenceType = "url"
	ReferenceTypeShowDocumentPanel ReferenceType = "show_document_panel"
)

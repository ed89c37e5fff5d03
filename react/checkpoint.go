package react

import (
	"github.com/aws-idp/agentcore/model"
	"github.com/aws-idp/agentcore/tools"
)

// snapshot is the JSON-safe projection of in-flight ReAct state persisted
// via the Checkpoint Store across an interrupt/resume boundary. Unlike
// model.Message (whose Content holds a Block interface), every field here
// round-trips through encoding/json without a custom (Un)marshaler.
type snapshot struct {
	ThreadID       string            `json:"thread_id"`
	IndexID        string            `json:"index_id"`
	DocumentID     string            `json:"document_id"`
	SegmentID      string            `json:"segment_id"`
	Query          string            `json:"query"`
	Messages       []wireMessage     `json:"messages"`
	PendingCalls   []model.ToolCall  `json:"pending_tool_calls"`
	ToolReferences []tools.Reference `json:"tool_references"`
	SystemPrompt   string            `json:"system_prompt"`
	CostUSD        float64           `json:"cost_usd"`
	Config         Config            `json:"config"`
}

// wireMessage is model.Message flattened to JSON-safe fields. A message
// carries at most one image block in practice (the registry caps forwarded
// attachments at refImageMaxAttach), so Image is singular.
type wireMessage struct {
	Role       model.Role     `json:"role"`
	Text       string         `json:"text"`
	Image      *wireImage     `json:"image,omitempty"`
	ToolCalls  []model.ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	IsError    bool           `json:"is_error,omitempty"`
}

type wireImage struct {
	MediaType string `json:"media_type"`
	Base64    string `json:"base64"`
}

func toWireMessage(m model.Message) wireMessage {
	w := wireMessage{Role: m.Role, ToolCalls: m.ToolCalls, ToolCallID: m.ToolCallID, Text: m.Text()}
	for _, b := range m.Content {
		if img, ok := b.(model.ImageRefBlock); ok {
			w.Image = &wireImage{MediaType: img.MediaType, Base64: img.Base64}
		}
		if tr, ok := b.(model.ToolResultBlock); ok {
			w.IsError = tr.IsError
		}
	}
	return w
}

func fromWireMessage(w wireMessage) model.Message {
	var content []model.Block
	if w.Text != "" {
		content = append(content, model.TextBlock{Text: w.Text})
	}
	if w.Image != nil {
		content = append(content, model.ImageRefBlock{MediaType: w.Image.MediaType, Base64: w.Image.Base64})
	}
	if w.Role == model.RoleTool {
		content = []model.Block{model.ToolResultBlock{ToolCallID: w.ToolCallID, Content: w.Text, IsError: w.IsError}}
	}
	return model.Message{Role: w.Role, Content: content, ToolCalls: w.ToolCalls, ToolCallID: w.ToolCallID}
}

func toWireMessages(msgs []model.Message) []wireMessage {
	out := make([]wireMessage, len(msgs))
	for i, m := range msgs {
		out[i] = toWireMessage(m)
	}
	return out
}

func fromWireMessages(wms []wireMessage) []model.Message {
	out := make([]model.Message, len(wms))
	for i, w := range wms {
		out[i] = fromWireMessage(w)
	}
	return out
}

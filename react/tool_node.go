package react

import (
	"context"
	"time"

	"github.com/aws-idp/agentcore/events"
	"github.com/aws-idp/agentcore/model"
	"github.com/aws-idp/agentcore/tools"
)

// runToolNode dispatches each requested tool call through the registry,
// emits the paired tool_use/tool_result events, aggregates references onto
// the request-wide dedup set, and appends a tool-role message per call so
// the next call_model observes the outcome. At most one tool result's
// image attachment is forwarded into the next model turn.
func (e *Engine) runToolNode(ctx context.Context, out chan<- events.Event, st *loopState, calls []model.ToolCall) {
	imageForwarded := false

	for _, call := range calls {
		out <- events.NewToolUse(st.threadID, call.ID, call.Name, call.Arguments, time.Now())

		result, err := e.registry.Invoke(ctx, call.Name, call.Arguments, st.actx)
		if err != nil {
			result = tools.ToolResult{Success: false, Error: err.Error()}
		}

		out <- events.NewToolResult(st.threadID, call.ID, call.Name, result, time.Now())

		for _, ref := range result.References {
			k := refKey(ref)
			if !st.refSeen[k] {
				st.refSeen[k] = true
				st.toolRefs = append(st.toolRefs, ref)
			}
		}

		text := result.Message
		if !result.Success && result.Error != "" {
			text = result.Error
		}
		toolMsg := model.NewToolMessage(call.ID, text, !result.Success)
		if !imageForwarded && len(result.Attachments) > 0 {
			att := result.Attachments[0]
			toolMsg.Content = append(toolMsg.Content, model.ImageRefBlock{MediaType: att.MediaType, Base64: att.Data})
			imageForwarded = true
		}

		st.messages = append(st.messages, toolMsg)
		e.conv.AppendAssistant(st.threadID, toolMsg)
	}
}

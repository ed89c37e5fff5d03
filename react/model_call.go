package react

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aws-idp/agentcore/corerrors"
	"github.com/aws-idp/agentcore/events"
	"github.com/aws-idp/agentcore/model"
	"github.com/aws-idp/agentcore/retry"
)

// callModel binds the currently healthy toolset and invokes the model.
// Transport failures retry with capped exponential backoff up to
// cfg.MaxRetries; a timed-out call retries once more before surfacing; rate
// limits and schema/validation errors surface immediately. The text deltas
// of the successful attempt are sent to out after that attempt's stream has
// been drained, not while it is still arriving. Returns the finished
// assistant message and usage.
func (e *Engine) callModel(ctx context.Context, out chan<- events.Event, st *loopState, cfg Config) (model.Message, model.Usage, error) {
	req := model.Request{
		Messages:  st.messages,
		Tools:     e.availableToolSchemas(),
		MaxTokens: cfg.MaxTokens,
	}

	timeoutRetried := false

	for attempt := 0; ; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, cfg.ModelTimeout)
		message, usage, deltas, err := e.invokeOnce(callCtx, req)
		cancel()

		if err == nil {
			if len(deltas) > 0 {
				st.textID = uuid.NewString()
				for _, d := range deltas {
					out <- events.NewTextChunk(st.threadID, st.textID, d, time.Now())
				}
			}
			return message, usage, nil
		}

		switch corerrors.KindOf(err) {
		case corerrors.KindModelTimeout:
			if !timeoutRetried {
				timeoutRetried = true
				continue
			}
			return model.Message{}, model.Usage{}, err
		case corerrors.KindTransport:
			if attempt < cfg.MaxRetries {
				if e.limiter != nil {
					if werr := e.limiter.Wait(ctx); werr != nil {
						return model.Message{}, model.Usage{}, werr
					}
				}
				select {
				case <-time.After(retry.Backoff(attempt + 1)):
				case <-ctx.Done():
					return model.Message{}, model.Usage{}, ctx.Err()
				}
				continue
			}
			return model.Message{}, model.Usage{}, err
		default:
			// RateLimit is surfaced immediately; SchemaError/ValidationError
			// terminate the request.
			return model.Message{}, model.Usage{}, err
		}
	}
}

// invokeOnce drains a single streaming model call into its constituent
// parts: the cumulative text (normalized to deltas regardless of whether
// the provider streams cumulative buffers or incremental deltas), any
// requested tool calls, and the terminal usage report.
func (e *Engine) invokeOnce(ctx context.Context, req model.Request) (model.Message, model.Usage, []string, error) {
	ch, err := e.client.Stream(ctx, req)
	if err != nil {
		return model.Message{}, model.Usage{}, nil, err
	}

	var textBuf strings.Builder
	var deltas []string
	var toolCalls []model.ToolCall
	var usage model.Usage

	for ev := range ch {
		switch ev.Kind {
		case model.StreamEventText:
			delta := ev.Text
			if ev.TextIsCumulative {
				delta = strings.TrimPrefix(ev.Text, textBuf.String())
			}
			if delta != "" {
				deltas = append(deltas, delta)
				textBuf.WriteString(delta)
			}
		case model.StreamEventToolCall:
			if ev.ToolCall != nil {
				toolCalls = append(toolCalls, *ev.ToolCall)
			}
		case model.StreamEventUsage:
			if ev.Usage != nil {
				usage = *ev.Usage
			}
		}
	}

	var content []model.Block
	if textBuf.Len() > 0 {
		content = append(content, model.TextBlock{Text: textBuf.String()})
	}
	message := model.Message{Role: model.RoleAssistant, Content: content, ToolCalls: toolCalls}
	return message, usage, deltas, nil
}

// availableToolSchemas filters the registered tool catalog through the
// health checker: an unhealthy aggregator offers the model no tools at
// all, so the model proceeds without tool_calls.
func (e *Engine) availableToolSchemas() []model.ToolSchema {
	if e.health != nil && !e.health.IsHealthy() {
		return nil
	}
	specs := e.registry.List()
	out := make([]model.ToolSchema, 0, len(specs))
	for _, s := range specs {
		out = append(out, model.ToolSchema{Name: s.Name, Description: s.Description, InputSchema: s.InputSchema})
	}
	return out
}

package react

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aws-idp/agentcore/agentctx"
	"github.com/aws-idp/agentcore/checkpoint"
	checkpointmem "github.com/aws-idp/agentcore/checkpoint/memory"
	"github.com/aws-idp/agentcore/conversation"
	"github.com/aws-idp/agentcore/events"
	"github.com/aws-idp/agentcore/mcphealth"
	"github.com/aws-idp/agentcore/model"
	"github.com/aws-idp/agentcore/promptregistry"
	"github.com/aws-idp/agentcore/tools"
)

// scriptedClient replays one model.Response per call, in order, as a
// single-shot stream: a text event (if any) followed by a tool_call event
// per ToolCalls entry, then a usage event.
type scriptedClient struct {
	turns []model.Message
	calls int
}

func (c *scriptedClient) Invoke(ctx context.Context, req model.Request) (model.Response, error) {
	msg := c.next()
	return model.Response{Message: msg}, nil
}

func (c *scriptedClient) Stream(ctx context.Context, req model.Request) (<-chan model.StreamEvent, error) {
	msg := c.next()
	ch := make(chan model.StreamEvent, 4)
	if text := msg.Text(); text != "" {
		ch <- model.StreamEvent{Kind: model.StreamEventText, Text: text}
	}
	for _, tc := range msg.ToolCalls {
		call := tc
		ch <- model.StreamEvent{Kind: model.StreamEventToolCall, ToolCall: &call}
	}
	ch <- model.StreamEvent{Kind: model.StreamEventUsage, Usage: &model.Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}}
	close(ch)
	return ch, nil
}

func (c *scriptedClient) next() model.Message {
	if c.calls >= len(c.turns) {
		return model.NewTextMessage(model.RoleAssistant, "")
	}
	m := c.turns[c.calls]
	c.calls++
	return m
}

func assistantToolCall(id, name string, args map[string]any) model.Message {
	return model.Message{Role: model.RoleAssistant, ToolCalls: []model.ToolCall{{ID: id, Name: name, Arguments: args}}}
}

func newTestRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	r := tools.NewRegistry()
	err := r.Register(tools.ToolSpec{Name: "echo", Description: "echoes the message argument"}, func(_ context.Context, args map[string]any, _ agentctx.AgentContext) (tools.RawToolResult, error) {
		msg, _ := args["message"].(string)
		return tools.RawToolResult{Success: true, Message: "Echo: " + msg}, nil
	})
	require.NoError(t, err)
	return r
}

func newTestPrompts(t *testing.T) *promptregistry.Registry {
	t.Helper()
	r, err := promptregistry.New(map[string]string{
		DefaultSystemPromptName:      "You are a helpful assistant.",
		DefaultInstructionPromptName: "{{.Query}}",
		DefaultSummarizePromptName:   "Summarize: {{.History}}",
	})
	require.NoError(t, err)
	return r
}

func newHealthyChecker(t *testing.T, r *tools.Registry) *mcphealth.Checker {
	t.Helper()
	agg := fakeAggregator{specs: r.List()}
	c := mcphealth.New(agg)
	c.ForceCheck(context.Background())
	return c
}

type fakeAggregator struct{ specs []tools.ToolSpec }

func (a fakeAggregator) ListTools(context.Context) ([]tools.ToolSpec, error) { return a.specs, nil }

func drain(ch <-chan events.Event) []events.Event {
	var out []events.Event
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func kinds(evs []events.Event) []events.Kind {
	out := make([]events.Kind, len(evs))
	for i, e := range evs {
		out[i] = e.Kind()
	}
	return out
}

func TestStreamOneToolTurnMatchesGoldenSequence(t *testing.T) {
	registry := newTestRegistry(t)
	client := &scriptedClient{turns: []model.Message{
		assistantToolCall("call-1", "echo", map[string]any{"message": "Hi"}),
		model.NewTextMessage(model.RoleAssistant, "Said: Hi"),
	}}
	engine := New(conversation.New(), checkpointmem.New(), registry, newHealthyChecker(t, registry), newTestPrompts(t), client)

	out := engine.Stream(context.Background(), Input{ThreadID: "t1", Query: "Hello"}, DefaultConfig())
	evs := drain(out)

	assert.Equal(t, []events.Kind{
		events.KindToolUse, events.KindToolResult, events.KindTextChunk, events.KindStreamEnd,
	}, kinds(evs))

	tr := evs[1].(events.ToolResult)
	assert.True(t, tr.Result.Success)
	assert.Equal(t, "Echo: Hi", tr.Result.Message)

	tc := evs[2].(events.TextChunk)
	assert.Equal(t, "Said: Hi", tc.Text)
}

func TestStreamWithoutHealthyToolsSkipsToolEvents(t *testing.T) {
	registry := newTestRegistry(t)
	client := &scriptedClient{turns: []model.Message{
		model.NewTextMessage(model.RoleAssistant, "no tools needed"),
	}}
	unhealthy := mcphealth.New(fakeAggregator{specs: nil})
	unhealthy.ForceCheck(context.Background()) // 0 tools -> unhealthy

	engine := New(conversation.New(), checkpointmem.New(), registry, unhealthy, newTestPrompts(t), client)
	out := engine.Stream(context.Background(), Input{ThreadID: "t2", Query: "Hello"}, DefaultConfig())
	evs := drain(out)

	assert.Equal(t, []events.Kind{events.KindTextChunk, events.KindStreamEnd}, kinds(evs))
}

func TestStreamInterruptThenApprovedResumeDispatchesTool(t *testing.T) {
	registry := newTestRegistry(t)
	client := &scriptedClient{turns: []model.Message{
		assistantToolCall("call-1", "echo", map[string]any{"message": "Hi"}),
		model.NewTextMessage(model.RoleAssistant, "Said: Hi"),
	}}
	ckpt := checkpointmem.New()
	engine := New(conversation.New(), ckpt, registry, newHealthyChecker(t, registry), newTestPrompts(t), client)

	cfg := DefaultConfig()
	cfg.InterruptBeforeTools = true
	out := engine.Stream(context.Background(), Input{ThreadID: "t3", Query: "Hello"}, cfg)
	evs := drain(out)
	require.Len(t, evs, 1)
	assert.Equal(t, events.KindInterrupt, evs[0].Kind())

	_, err := ckpt.GetState(context.Background(), "t3")
	require.NoError(t, err)

	resumed := drain(engine.Resume(context.Background(), "t3", true))
	assert.Equal(t, []events.Kind{
		events.KindToolUse, events.KindToolResult, events.KindTextChunk, events.KindStreamEnd,
	}, kinds(resumed))

	_, err = ckpt.GetState(context.Background(), "t3")
	assert.ErrorIs(t, err, checkpoint.ErrNotFound)
}

func TestResumeRejectedInjectsRejectionAndContinues(t *testing.T) {
	registry := newTestRegistry(t)
	client := &scriptedClient{turns: []model.Message{
		assistantToolCall("call-1", "echo", map[string]any{"message": "Hi"}),
		model.NewTextMessage(model.RoleAssistant, "Understood, skipping."),
	}}
	ckpt := checkpointmem.New()
	engine := New(conversation.New(), ckpt, registry, newHealthyChecker(t, registry), newTestPrompts(t), client)

	cfg := DefaultConfig()
	cfg.InterruptBeforeTools = true
	drain(engine.Stream(context.Background(), Input{ThreadID: "t4", Query: "Hello"}, cfg))

	resumed := drain(engine.Resume(context.Background(), "t4", false))
	assert.Equal(t, []events.Kind{events.KindTextChunk, events.KindStreamEnd}, kinds(resumed))
}

func TestBudgetExceededTerminatesWithError(t *testing.T) {
	registry := newTestRegistry(t)
	client := &scriptedClient{turns: []model.Message{
		model.NewTextMessage(model.RoleAssistant, "hi"),
	}}
	engine := New(conversation.New(), checkpointmem.New(), registry, newHealthyChecker(t, registry), newTestPrompts(t), client)

	cfg := DefaultConfig()
	cfg.MaxCostUSD = 0.000001
	cfg.InputCostPerToken = 1
	cfg.OutputCostPerToken = 1
	evs := drain(engine.Stream(context.Background(), Input{ThreadID: "t5", Query: "Hello"}, cfg))

	require.Len(t, evs, 2)
	assert.Equal(t, events.KindTextChunk, evs[0].Kind())
	errEv := evs[1].(events.Error)
	assert.Equal(t, "budget_exceeded", errEv.Code)
}

func TestAttachmentDecodeErrorEmitsValidationError(t *testing.T) {
	registry := newTestRegistry(t)
	client := &scriptedClient{}
	engine := New(conversation.New(), checkpointmem.New(), registry, newHealthyChecker(t, registry), newTestPrompts(t), client)

	in := Input{ThreadID: "t6", Query: "Hello", Attachments: []InputAttachment{{MediaType: "image/png", Bytes: []byte("not an image")}}}
	evs := drain(engine.Stream(context.Background(), in, DefaultConfig()))

	require.Len(t, evs, 1)
	assert.Equal(t, events.KindError, evs[0].Kind())
}

func TestShouldSummarizeThreshold(t *testing.T) {
	conv := conversation.New()
	cfg := DefaultConfig()
	for i := 0; i < 12; i++ {
		conv.AppendUser("t7", model.NewTextMessage(model.RoleUser, fmt.Sprintf("msg-%d", i)))
	}
	assert.True(t, shouldSummarize(conv, "t7", cfg))
}

package planexec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aws-idp/agentcore/agentctx"
	"github.com/aws-idp/agentcore/conversation"
	"github.com/aws-idp/agentcore/events"
	"github.com/aws-idp/agentcore/mcphealth"
	"github.com/aws-idp/agentcore/model"
	"github.com/aws-idp/agentcore/promptregistry"
	"github.com/aws-idp/agentcore/tools"
)

// scriptedClient streams one canned text response per call, in order.
type scriptedClient struct {
	texts []string
	calls int
}

func (c *scriptedClient) Invoke(ctx context.Context, req model.Request) (model.Response, error) {
	return model.Response{}, nil
}

func (c *scriptedClient) Stream(ctx context.Context, req model.Request) (<-chan model.StreamEvent, error) {
	text := ""
	if c.calls < len(c.texts) {
		text = c.texts[c.calls]
	}
	c.calls++
	ch := make(chan model.StreamEvent, 2)
	ch <- model.StreamEvent{Kind: model.StreamEventText, Text: text}
	ch <- model.StreamEvent{Kind: model.StreamEventUsage, Usage: &model.Usage{InputTokens: 1, OutputTokens: 1, TotalTokens: 2}}
	close(ch)
	return ch, nil
}

func newTwoToolRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	r := tools.NewRegistry()
	err := r.Register(tools.ToolSpec{Name: "get_document_analysis", Description: "analyzes a document"},
		func(_ context.Context, args map[string]any, _ agentctx.AgentContext) (tools.RawToolResult, error) {
			return tools.RawToolResult{Success: true, Message: "analysis done", Data: map[string]any{
				"content":    "Topic A overview",
				"references": []any{"Doc X : https://example.com/x.pdf"},
			}}, nil
		})
	require.NoError(t, err)
	err = r.Register(tools.ToolSpec{Name: "hybrid_search", Description: "hybrid search over the index"},
		func(_ context.Context, args map[string]any, _ agentctx.AgentContext) (tools.RawToolResult, error) {
			return tools.RawToolResult{Success: true, Message: "search done", Data: map[string]any{
				"content":    "Topic B details",
				"references": []any{"Doc X : https://example.com/x.pdf"},
			}}, nil
		})
	require.NoError(t, err)
	return r
}

func newTestPipelinePrompts(t *testing.T) *promptregistry.Registry {
	t.Helper()
	r, err := promptregistry.New(map[string]string{
		DefaultPlannerPromptName:     "{{.Query}} {{.Tools}}",
		DefaultSynthesizerPromptName: "{{.Query}} {{.Sources}}",
	})
	require.NoError(t, err)
	return r
}

func newHealthyPipelineChecker(t *testing.T, r *tools.Registry) *mcphealth.Checker {
	t.Helper()
	c := mcphealth.New(fakeAggregator{specs: r.List()})
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

const planJSON = `{"plan": [
  {"step": 1, "thought": "get doc overview", "tool_name": "get_document_analysis", "tool_input": {"document_id": "{document_id}"}},
  {"step": 2, "thought": "search the index", "tool_name": "hybrid_search", "tool_input": {"query": "{query}"}}
]}`

func TestRunTwoStepPlanWithCitationsMatchesGoldenSequence(t *testing.T) {
	registry := newTwoToolRegistry(t)
	client := &scriptedClient{texts: []string{
		planJSON,
		"Doc X covers topic A [cite: 1] and topic B [cite: 1, 2].",
	}}
	pipeline := New(conversation.New(), registry, newHealthyPipelineChecker(t, registry), newTestPipelinePrompts(t), client)

	in := Input{ThreadID: "s2", Query: "summarize doc X", IndexID: "idx", DocumentID: "X"}
	evs := drain(pipeline.Run(context.Background(), in, DefaultConfig()))

	require.NotEmpty(t, evs)
	assert.Equal(t, events.KindStreamEnd, evs[len(evs)-1].Kind())

	var stepCompletions []events.StepCompleted
	var citations []events.CitationData
	var textChunks []events.TextChunk
	sawPlanGenerated := false
	for _, ev := range evs {
		switch e := ev.(type) {
		case events.PlanGenerated:
			sawPlanGenerated = true
			assert.Equal(t, 2, e.TotalSteps)
		case events.StepCompleted:
			stepCompletions = append(stepCompletions, e)
		case events.CitationData:
			citations = append(citations, e)
		case events.TextChunk:
			textChunks = append(textChunks, e)
		}
	}

	assert.True(t, sawPlanGenerated)
	require.Len(t, stepCompletions, 2)
	assert.Equal(t, 1, stepCompletions[0].SourceID)
	assert.Equal(t, 2, stepCompletions[1].SourceID)

	require.Len(t, citations, 2)
	assert.Equal(t, []int{1}, citations[0].SourceIDs)
	assert.Equal(t, []int{1, 2}, citations[1].SourceIDs)

	var concatenated string
	for _, c := range textChunks {
		concatenated += c.Text
	}
	assert.Equal(t, "Doc X covers topic A and topic B .", concatenated)
}

func TestGeneratePlanFallsBackToSearchLikeToolOnInvalidJSON(t *testing.T) {
	registry := newTwoToolRegistry(t)
	client := &scriptedClient{texts: []string{"not json at all"}}
	pl := &planner{client: client, prompts: newTestPipelinePrompts(t)}

	plan, err := pl.generatePlan(context.Background(), make(chan events.Event, 8), "t", "find stuff", DefaultConfig(), registry.List())
	require.NoError(t, err)
	require.Len(t, plan.Plan, 1)
	assert.Equal(t, "hybrid_search", plan.Plan[0].ToolName)
}

func TestExecutorContinuesPastPerStepFailure(t *testing.T) {
	registry := tools.NewRegistry()
	err := registry.Register(tools.ToolSpec{Name: "always_fails"}, func(_ context.Context, _ map[string]any, _ agentctx.AgentContext) (tools.RawToolResult, error) {
		return tools.RawToolResult{Success: false, Error: "boom"}, nil
	})
	require.NoError(t, err)
	err = registry.Register(tools.ToolSpec{Name: "always_succeeds"}, func(_ context.Context, _ map[string]any, _ agentctx.AgentContext) (tools.RawToolResult, error) {
		return tools.RawToolResult{Success: true, Message: "ok"}, nil
	})
	require.NoError(t, err)

	plan := ExecutionPlan{Plan: []PlanStep{
		{Step: 1, ToolName: "always_fails", ToolInput: map[string]any{}},
		{Step: 2, ToolName: "always_succeeds", ToolInput: map[string]any{}},
	}, TotalSteps: 2}

	ex := &executor{registry: registry, health: newHealthyPipelineChecker(t, registry)}
	out := make(chan events.Event, 16)
	results, err := ex.execute(context.Background(), out, "t", plan, agentctx.AgentContext{}, DefaultConfig())
	close(out)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.False(t, results[0].Success)
	assert.True(t, results[1].Success)
	assert.Equal(t, 1, results[1].SourceID)
}

func TestNoSuccessfulResultsEmitsError(t *testing.T) {
	registry := tools.NewRegistry()
	err := registry.Register(tools.ToolSpec{Name: "always_fails"}, func(_ context.Context, _ map[string]any, _ agentctx.AgentContext) (tools.RawToolResult, error) {
		return tools.RawToolResult{Success: false, Error: "boom"}, nil
	})
	require.NoError(t, err)
	client := &scriptedClient{texts: []string{`{"plan":[{"step":1,"tool_name":"always_fails","tool_input":{}}]}`}}
	pipeline := New(nil, registry, newHealthyPipelineChecker(t, registry), newTestPipelinePrompts(t), client)

	evs := drain(pipeline.Run(context.Background(), Input{ThreadID: "t", Query: "q"}, DefaultConfig()))
	assert.Equal(t, events.KindError, evs[len(evs)-1].Kind())
	errEv := evs[len(evs)-1].(events.Error)
	assert.Equal(t, "no_successful_results", errEv.Code)
}

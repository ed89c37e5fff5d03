package planexec

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/aws-idp/agentcore/corerrors"
	"github.com/aws-idp/agentcore/events"
	"github.com/aws-idp/agentcore/model"
	"github.com/aws-idp/agentcore/promptregistry"
	"github.com/aws-idp/agentcore/tools"
)

var searchLikeTool = regexp.MustCompile(`(?i)search|find|query|hybrid`)

// rawPlanStep is the JSON shape the model is asked to produce for one step.
type rawPlanStep struct {
	Step      int            `json:"step"`
	Thought   string         `json:"thought"`
	ToolName  string         `json:"tool_name"`
	ToolInput map[string]any `json:"tool_input"`
}

type rawPlan struct {
	Plan []rawPlanStep `json:"plan"`
}

// planner generates an ExecutionPlan by asking the model for a JSON object
// describing tool calls, falling back to a single-step plan when the model's
// output yields no usable steps.
type planner struct {
	client  model.Client
	prompts *promptregistry.Registry
}

// generatePlan renders the planner prompt from the available tool catalog
// and the query, invokes the model, and extracts an ExecutionPlan. Raw
// reasoning tokens stream to out as plan_token events before the final
// plan_generated event (emitted by the caller once the plan is known).
func (p *planner) generatePlan(ctx context.Context, out chan<- events.Event, threadID, query string, cfg Config, availableTools []tools.ToolSpec) (ExecutionPlan, error) {
	prompt, err := p.prompts.Render(cfg.PlannerPromptName, map[string]any{
		"Query": query,
		"Tools": toolSummaries(availableTools),
	})
	if err != nil {
		return ExecutionPlan{}, corerrors.Wrap(corerrors.KindInternal, "render planner prompt", err)
	}

	req := model.Request{
		Messages:  []model.Message{model.NewTextMessage(model.RoleUser, prompt)},
		MaxTokens: cfg.MaxTokens,
	}

	callCtx, cancel := context.WithTimeout(ctx, cfg.ModelTimeout)
	defer cancel()

	ch, err := p.client.Stream(callCtx, req)
	if err != nil {
		return ExecutionPlan{}, err
	}

	var buf strings.Builder
	for ev := range ch {
		if ev.Kind != model.StreamEventText {
			continue
		}
		delta := ev.Text
		if ev.TextIsCumulative {
			delta = strings.TrimPrefix(ev.Text, buf.String())
		}
		if delta == "" {
			continue
		}
		buf.WriteString(delta)
		out <- events.NewPlanToken(threadID, delta, time.Now())
	}

	steps := extractSteps(buf.String())
	if len(steps) == 0 {
		return fallbackPlan(query, availableTools), nil
	}
	return ExecutionPlan{Plan: steps, TotalSteps: len(steps), CreatedAt: time.Now()}, nil
}

// extractSteps pulls the first top-level JSON object out of raw, parses its
// plan array, and normalizes step numbering to insertion order. Steps
// missing a tool_name are skipped.
func extractSteps(raw string) []PlanStep {
	obj := firstJSONObject(raw)
	if obj == "" {
		return nil
	}
	var parsed rawPlan
	if err := json.Unmarshal([]byte(obj), &parsed); err != nil {
		return nil
	}

	steps := make([]PlanStep, 0, len(parsed.Plan))
	for _, s := range parsed.Plan {
		if s.ToolName == "" {
			continue
		}
		steps = append(steps, PlanStep{
			Step:      len(steps) + 1,
			Thought:   s.Thought,
			ToolName:  s.ToolName,
			ToolInput: s.ToolInput,
			Status:    StepPending,
		})
	}
	return steps
}

// firstJSONObject returns the substring of raw spanning the first balanced
// top-level {...} object, or "" if none is found. Brace-counting ignores
// braces inside string literals so embedded JSON examples in prose don't
// confuse the scan.
func firstJSONObject(raw string) string {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}
	return ""
}

// fallbackPlan builds a single-step plan when the planner's JSON output
// yielded no usable steps: the first tool whose name looks search-like, else
// the first available tool, called with {query, index_id}. Not treated as an
// error; the pipeline proceeds normally.
func fallbackPlan(query string, availableTools []tools.ToolSpec) ExecutionPlan {
	if len(availableTools) == 0 {
		return ExecutionPlan{CreatedAt: time.Now()}
	}

	chosen := availableTools[0]
	for _, t := range availableTools {
		if searchLikeTool.MatchString(t.Name) {
			chosen = t
			break
		}
	}

	step := PlanStep{
		Step:      1,
		Thought:   "fallback: no structured plan produced, dispatching the best-guess tool directly",
		ToolName:  chosen.Name,
		ToolInput: map[string]any{"query": query, "index_id": "{index_id}"},
		Status:    StepPending,
	}
	return ExecutionPlan{Plan: []PlanStep{step}, TotalSteps: 1, CreatedAt: time.Now()}
}

func toolSummaries(specs []tools.ToolSpec) []map[string]any {
	out := make([]map[string]any, 0, len(specs))
	for _, s := range specs {
		out = append(out, map[string]any{"name": s.Name, "description": s.Description})
	}
	return out
}

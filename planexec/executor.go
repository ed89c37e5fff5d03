package planexec

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/aws-idp/agentcore/agentctx"
	"github.com/aws-idp/agentcore/corerrors"
	"github.com/aws-idp/agentcore/events"
	"github.com/aws-idp/agentcore/mcphealth"
	"github.com/aws-idp/agentcore/retry"
	"github.com/aws-idp/agentcore/tools"
)

// executor dispatches a plan's steps through the Tool Registry in order.
type executor struct {
	registry *tools.Registry
	health   *mcphealth.Checker
	limiter  *rate.Limiter
}

// execute runs every step of plan, emitting step_executing/step_completed
// pairs and returning the flattened results. Per-step failures are recorded
// in the result list, not returned as an error; execute returns an error
// only for a catastrophic, registry-wide condition (the tool aggregator is
// unhealthy), which aborts before any step runs, or when ctx is canceled
// during the inter-step delay, in which case the results gathered so far are
// returned with ctx.Err().
func (x *executor) execute(ctx context.Context, out chan<- events.Event, threadID string, plan ExecutionPlan, actx agentctx.AgentContext, cfg Config) ([]ExecutionResult, error) {
	if x.health != nil && !x.health.IsHealthy() {
		return nil, corerrors.New(corerrors.KindToolUnavailable, "tool registry unavailable")
	}

	results := make([]ExecutionResult, 0, len(plan.Plan))
	nextSourceID := 1

	for i, step := range plan.Plan {
		out <- events.NewStepExecuting(threadID, step.Step, time.Now())

		input := substituteTemplate(step.ToolInput, actx)
		start := time.Now()

		var result tools.ToolResult
		err := retry.Do(ctx, cfg.MaxRetries, x.limiter, corerrors.Retryable, func() error {
			var invokeErr error
			result, invokeErr = x.registry.Invoke(ctx, step.ToolName, input, actx)
			return invokeErr
		})
		elapsed := time.Since(start).Seconds()

		res := ExecutionResult{StepNumber: step.Step, ToolName: step.ToolName, ExecutionTimeS: elapsed}

		switch {
		case err != nil:
			res.Success = false
			res.Error = err.Error()
			res.ResultSummary = fmt.Sprintf("%s failed", step.ToolName)
		case !result.Success:
			res.Success = false
			res.Error = result.Error
			res.ResultSummary = fmt.Sprintf("%s failed", step.ToolName)
		default:
			res.Success = true
			res.SourceID = nextSourceID
			plan.Plan[i].SourceID = res.SourceID
			nextSourceID++
			res.ResultData = result.Data
			res.References = result.References
			res.ResultSummary = summarizeResult(step.ToolName, result)
		}

		results = append(results, res)
		out <- events.NewStepCompleted(threadID, step.Step, res.Success, res.ResultSummary, res.SourceID, res.ExecutionTimeS, res.Error, res.References, time.Now())

		if cfg.StepDelay > 0 && i < len(plan.Plan)-1 {
			select {
			case <-time.After(cfg.StepDelay):
			case <-ctx.Done():
				return results, ctx.Err()
			}
		}
	}

	return results, nil
}

// substituteTemplate replaces {query}/{index_id}/{document_id}/{segment_id}
// placeholders in every string-valued tool_input entry, and injects the
// corresponding context default for any key the plan step omitted entirely.
func substituteTemplate(toolInput map[string]any, actx agentctx.AgentContext) map[string]any {
	replacer := strings.NewReplacer(
		"{query}", actx.UserQuery,
		"{index_id}", actx.IndexID,
		"{document_id}", actx.DocumentID,
		"{segment_id}", actx.SegmentID,
	)

	out := make(map[string]any, len(toolInput)+4)
	for k, v := range toolInput {
		if s, ok := v.(string); ok {
			out[k] = replacer.Replace(s)
		} else {
			out[k] = v
		}
	}

	injectDefault(out, "query", actx.UserQuery)
	injectDefault(out, "index_id", actx.IndexID)
	if actx.DocumentID != "" {
		injectDefault(out, "document_id", actx.DocumentID)
	}
	if actx.SegmentID != "" {
		injectDefault(out, "segment_id", actx.SegmentID)
	}
	return out
}

func injectDefault(m map[string]any, key, value string) {
	if value == "" {
		return
	}
	if _, ok := m[key]; !ok {
		m[key] = value
	}
}

// summarizeResult renders one of the handful of human-readable shapes the
// Executor assigns depending on what the tool's normalized result carried.
func summarizeResult(toolName string, result tools.ToolResult) string {
	if list, ok := result.Data["results"].([]any); ok {
		return fmt.Sprintf("%s found %d results", toolName, len(list))
	}
	if content, ok := result.Data["content"].(string); ok {
		return fmt.Sprintf("%s extracted %d chars", toolName, len(content))
	}
	if result.Message != "" {
		return fmt.Sprintf("%s extracted %d chars", toolName, len(result.Message))
	}
	return fmt.Sprintf("%s executed successfully", toolName)
}

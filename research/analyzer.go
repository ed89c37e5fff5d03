package research

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/aws-idp/agentcore/agentctx"
	"github.com/aws-idp/agentcore/corerrors"
	"github.com/aws-idp/agentcore/events"
	"github.com/aws-idp/agentcore/retry"
	"github.com/aws-idp/agentcore/tools"
)

// analyzer dispatches one segment through the Tool Registry, selecting the
// image or video analyzer tool by the segment's type hint, and reports
// task_start/task_complete/task_failed as it goes.
type analyzer struct {
	registry   *tools.Registry
	limiter    *rate.Limiter
	maxRetries int
}

func (a *analyzer) analyze(ctx context.Context, out chan<- events.Event, threadID, jobID, query string, seg Segment, actx agentctx.AgentContext, cfg Config, evidence *EvidenceStore) SegmentResult {
	out <- events.NewTaskStart(threadID, seg.ID, time.Now())

	toolName := cfg.ImageAnalyzerTool
	if seg.Type == SegmentVideo {
		toolName = cfg.VideoAnalyzerTool
	}
	segActx := actx.WithSegment(seg.ID, seg.Index)
	args := map[string]any{"query": query, "segment_id": seg.ID, "document_id": actx.DocumentID}

	var result tools.ToolResult
	err := retry.Do(ctx, a.maxRetries, a.limiter, corerrors.Retryable, func() error {
		var invokeErr error
		result, invokeErr = a.registry.Invoke(ctx, toolName, args, segActx)
		return invokeErr
	})

	if err != nil {
		out <- events.NewTaskFailed(threadID, seg.ID, err.Error(), time.Now())
		return SegmentResult{SegmentID: seg.ID, Success: false, Error: err.Error()}
	}
	if !result.Success {
		out <- events.NewTaskFailed(threadID, seg.ID, result.Error, time.Now())
		return SegmentResult{SegmentID: seg.ID, Success: false, Error: result.Error}
	}

	summary := analysisSummary(result)
	evidence.Put(jobID, seg.ID, EvidenceRecord{
		Summary:   summary,
		PageIndex: seg.Index,
		Findings:  extractFindings(result),
	})
	out <- events.NewTaskComplete(threadID, seg.ID, summary, time.Now())
	return SegmentResult{SegmentID: seg.ID, Success: true, Summary: summary, ResultData: result.Data, References: result.References}
}

func analysisSummary(result tools.ToolResult) string {
	if content, ok := result.Data["content"].(string); ok && content != "" {
		return content
	}
	if result.Message != "" {
		return result.Message
	}
	return "analysis produced no summary"
}

// extractFindings recovers structured findings from a tool result's
// normalized data when present, otherwise wraps the summary as a single
// finding of type "summary".
func extractFindings(result tools.ToolResult) []Finding {
	raw, ok := result.Data["findings"].([]any)
	if !ok {
		return []Finding{{Text: analysisSummary(result), Type: "summary"}}
	}
	out := make([]Finding, 0, len(raw))
	for _, f := range raw {
		m, ok := f.(map[string]any)
		if !ok {
			continue
		}
		text, _ := m["text"].(string)
		typ, _ := m["type"].(string)
		if text == "" {
			continue
		}
		if typ == "" {
			typ = "finding"
		}
		out = append(out, Finding{Text: text, Type: typ})
	}
	return out
}

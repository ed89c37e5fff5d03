// Package events defines the tagged union of events the ReAct engine, the
// Plan-Execute-Respond pipeline, and the deep-research worker pool stream
// upstream, plus the envelope fields every event carries.
package events

import (
	"strconv"
	"time"

	"github.com/aws-idp/agentcore/tools"
)

// Kind discriminates an Event's concrete payload.
type Kind string

const (
	KindPhaseUpdate       Kind = "phase_update"
	KindPlanGenerated     Kind = "plan_generated"
	KindPlanToken         Kind = "plan_token"
	KindStepExecuting     Kind = "step_executing"
	KindStepCompleted     Kind = "step_completed"
	KindSynthesizingStart Kind = "synthesizing_start"
	KindTextChunk         Kind = "text_chunk"
	KindToolUse           Kind = "tool_use"
	KindToolResult        Kind = "tool_result"
	KindReferences        Kind = "references"
	KindCitationData      Kind = "citation_data"
	KindStreamEnd         Kind = "stream_end"
	KindError             Kind = "error"
	KindInterrupt         Kind = "interrupt"

	// Deep-research-specific kinds, part of the same union.
	KindTaskStart         Kind = "task_start"
	KindTaskComplete      Kind = "task_complete"
	KindTaskFailed        Kind = "task_failed"
	KindExecutionComplete Kind = "execution_complete"
)

// base carries the envelope fields every event shares: the step this event
// belongs to (a plan step, a tool call, a research segment, or empty for
// engine-level events), the owning thread, and a creation timestamp.
type base struct {
	stepID    string
	threadID  string
	timestamp time.Time
}

func (b base) StepID() string       { return b.stepID }
func (b base) ThreadID() string     { return b.threadID }
func (b base) Timestamp() time.Time { return b.timestamp }

func newBase(threadID, stepID string, now time.Time) base {
	return base{stepID: stepID, threadID: threadID, timestamp: now}
}

// Event is the interface every streamed event implements.
type Event interface {
	Kind() Kind
	StepID() string
	ThreadID() string
	Timestamp() time.Time
}

type (
	// PhaseUpdate reports a coarse-grained phase transition (e.g. planning,
	// executing, synthesizing) or a deep-research batch progress update.
	PhaseUpdate struct {
		base
		Phase      string
		Percentage float64
	}

	// PlanGenerated carries the Planner's finished plan.
	PlanGenerated struct {
		base
		Plan       []PlanStepView
		TotalSteps int
	}

	// PlanStepView is the event-stream projection of a plan step.
	PlanStepView struct {
		Step     int
		Thought  string
		ToolName string
		ToolInput map[string]any
		Status   string
	}

	// PlanToken carries a raw reasoning token streamed by the Planner before
	// PlanGenerated.
	PlanToken struct {
		base
		Text string
	}

	// StepExecuting announces the Executor has begun step Step.
	StepExecuting struct {
		base
		Step int
	}

	// StepCompleted reports a finished (successful or failed) execution step.
	StepCompleted struct {
		base
		Step           int
		Success        bool
		ResultSummary  string
		SourceID       int
		ExecutionTimeS float64
		Error          string
		References     []tools.Reference
	}

	// SynthesizingStart announces the Synthesizer has begun streaming an
	// answer.
	SynthesizingStart struct {
		base
	}

	// TextChunk is one piece of assistant or synthesized text. TextID is
	// stable for a contiguous span so citations can attach to it.
	TextChunk struct {
		base
		TextID string
		Text   string
	}

	// ToolUse announces a dispatched tool call.
	ToolUse struct {
		base
		ToolCallID string
		ToolName   string
		Input      map[string]any
	}

	// ToolResult carries a tool's normalized outcome.
	ToolResult struct {
		base
		ToolCallID string
		ToolName   string
		Result     tools.ToolResult
	}

	// References is emitted at most once per request, deduplicated by
	// Reference.ID (falling back to Value when ID is empty).
	References struct {
		base
		References []tools.Reference
	}

	// CitationData reports one `[cite: n, m, ...]` occurrence resolved
	// against prior source ids.
	CitationData struct {
		base
		TargetTextID string
		SourceIDs    []int
	}

	// StreamEnd is one of the three terminal events a request may emit at
	// most one of.
	StreamEnd struct {
		base
	}

	// Error is one of the three terminal events.
	Error struct {
		base
		Message string
		Code    string
	}

	// Interrupt is one of the three terminal events: the engine is paused
	// pending human approval of a tool call.
	Interrupt struct {
		base
		RequiresApproval bool
	}

	// TaskStart announces a deep-research worker has begun a segment.
	TaskStart struct {
		base
		SegmentID string
	}

	// TaskComplete reports a successfully analyzed segment.
	TaskComplete struct {
		base
		SegmentID string
		Summary   string
	}

	// TaskFailed reports a segment analysis failure.
	TaskFailed struct {
		base
		SegmentID string
		Error     string
	}

	// ExecutionComplete is the deep-research pool's terminal summary event.
	ExecutionComplete struct {
		base
		Total      int
		Successful int
		Failed     int
	}
)

func (PhaseUpdate) Kind() Kind        { return KindPhaseUpdate }
func (PlanGenerated) Kind() Kind      { return KindPlanGenerated }
func (PlanToken) Kind() Kind          { return KindPlanToken }
func (StepExecuting) Kind() Kind      { return KindStepExecuting }
func (StepCompleted) Kind() Kind      { return KindStepCompleted }
func (SynthesizingStart) Kind() Kind  { return KindSynthesizingStart }
func (TextChunk) Kind() Kind          { return KindTextChunk }
func (ToolUse) Kind() Kind            { return KindToolUse }
func (ToolResult) Kind() Kind         { return KindToolResult }
func (References) Kind() Kind         { return KindReferences }
func (CitationData) Kind() Kind       { return KindCitationData }
func (StreamEnd) Kind() Kind          { return KindStreamEnd }
func (Error) Kind() Kind              { return KindError }
func (Interrupt) Kind() Kind          { return KindInterrupt }
func (TaskStart) Kind() Kind          { return KindTaskStart }
func (TaskComplete) Kind() Kind       { return KindTaskComplete }
func (TaskFailed) Kind() Kind         { return KindTaskFailed }
func (ExecutionComplete) Kind() Kind  { return KindExecutionComplete }

// New constructs functions for each event, stamping the shared envelope.
// Keeping them as plain constructors (rather than requiring callers to
// build `base` by hand) keeps producer code free of the unexported field.

func NewPhaseUpdate(threadID, phase string, pct float64, now time.Time) PhaseUpdate {
	return PhaseUpdate{base: newBase(threadID, "", now), Phase: phase, Percentage: pct}
}

func NewPlanGenerated(threadID string, plan []PlanStepView, now time.Time) PlanGenerated {
	return PlanGenerated{base: newBase(threadID, "", now), Plan: plan, TotalSteps: len(plan)}
}

func NewPlanToken(threadID, text string, now time.Time) PlanToken {
	return PlanToken{base: newBase(threadID, "", now), Text: text}
}

func NewStepExecuting(threadID string, step int, now time.Time) StepExecuting {
	return StepExecuting{base: newBase(threadID, stepKey(step), now), Step: step}
}

func NewStepCompleted(threadID string, step int, success bool, summary string, sourceID int, elapsed float64, errMsg string, refs []tools.Reference, now time.Time) StepCompleted {
	return StepCompleted{
		base: newBase(threadID, stepKey(step), now), Step: step, Success: success,
		ResultSummary: summary, SourceID: sourceID, ExecutionTimeS: elapsed, Error: errMsg, References: refs,
	}
}

func NewSynthesizingStart(threadID string, now time.Time) SynthesizingStart {
	return SynthesizingStart{base: newBase(threadID, "", now)}
}

func NewTextChunk(threadID, textID, text string, now time.Time) TextChunk {
	return TextChunk{base: newBase(threadID, "", now), TextID: textID, Text: text}
}

func NewToolUse(threadID, toolCallID, toolName string, input map[string]any, now time.Time) ToolUse {
	return ToolUse{base: newBase(threadID, toolCallID, now), ToolCallID: toolCallID, ToolName: toolName, Input: input}
}

func NewToolResult(threadID, toolCallID, toolName string, result tools.ToolResult, now time.Time) ToolResult {
	return ToolResult{base: newBase(threadID, toolCallID, now), ToolCallID: toolCallID, ToolName: toolName, Result: result}
}

func NewReferences(threadID string, refs []tools.Reference, now time.Time) References {
	return References{base: newBase(threadID, "", now), References: refs}
}

func NewCitationData(threadID, targetTextID string, sourceIDs []int, now time.Time) CitationData {
	return CitationData{base: newBase(threadID, "", now), TargetTextID: targetTextID, SourceIDs: sourceIDs}
}

func NewStreamEnd(threadID string, now time.Time) StreamEnd {
	return StreamEnd{base: newBase(threadID, "", now)}
}

func NewError(threadID, message, code string, now time.Time) Error {
	return Error{base: newBase(threadID, "", now), Message: message, Code: code}
}

func NewInterrupt(threadID string, requiresApproval bool, now time.Time) Interrupt {
	return Interrupt{base: newBase(threadID, "", now), RequiresApproval: requiresApproval}
}

func NewTaskStart(threadID, segmentID string, now time.Time) TaskStart {
	return TaskStart{base: newBase(threadID, segmentID, now), SegmentID: segmentID}
}

func NewTaskComplete(threadID, segmentID, summary string, now time.Time) TaskComplete {
	return TaskComplete{base: newBase(threadID, segmentID, now), SegmentID: segmentID, Summary: summary}
}

func NewTaskFailed(threadID, segmentID, errMsg string, now time.Time) TaskFailed {
	return TaskFailed{base: newBase(threadID, segmentID, now), SegmentID: segmentID, Error: errMsg}
}

func NewExecutionComplete(threadID string, total, successful, failed int, now time.Time) ExecutionComplete {
	return ExecutionComplete{base: newBase(threadID, "", now), Total: total, Successful: successful, Failed: failed}
}

func stepKey(step int) string {
	if step <= 0 {
		return ""
	}
	return strconv.Itoa(step)
}

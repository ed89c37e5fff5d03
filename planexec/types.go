// Package planexec implements the Plan-Execute-Respond pipeline: a
// three-stage orchestrator that generates a structured plan from a query,
// executes its steps through the tool registry, and synthesizes a cited
// answer from the successful results.
package planexec

import (
	"time"

	"github.com/aws-idp/agentcore/tools"
)

// Phase discriminates a SearchState's coarse-grained lifecycle stage.
type Phase string

const (
	PhasePlanning     Phase = "planning"
	PhaseExecuting    Phase = "executing"
	PhaseSynthesizing Phase = "synthesizing"
	PhaseCompleted    Phase = "completed"
	PhaseError        Phase = "error"
)

// StepStatus discriminates a PlanStep's execution state.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepExecuting StepStatus = "executing"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

type (
	// PlanStep is one planned tool invocation. Step is 1-indexed and
	// assigned in insertion order after the Planner normalizes its output.
	// SourceID is unset (zero) until the Executor runs the step.
	PlanStep struct {
		Step          int
		Thought       string
		ToolName      string
		ToolInput     map[string]any
		Status        StepStatus
		ResultSummary string
		SourceID      int
	}

	// ExecutionPlan is the Planner's finished output: an ordered list of
	// steps plus a creation timestamp.
	ExecutionPlan struct {
		Plan       []PlanStep
		TotalSteps int
		CreatedAt  time.Time
	}

	// ExecutionResult is one step's outcome as produced by the Executor,
	// independent of the PlanStep it was derived from so the Synthesizer can
	// work from a flat result list.
	ExecutionResult struct {
		StepNumber     int
		ToolName       string
		Success        bool
		ResultData     map[string]any
		SourceID       int
		Error          string
		ExecutionTimeS float64
		ResultSummary  string
		References     []Reference
	}

	// SearchState tracks one Plan-Execute-Respond request end to end: the
	// query, the current phase, the plan once generated, results as they
	// complete, and timing. Held for the lifetime of a single request; never
	// persisted across requests.
	SearchState struct {
		Query       string
		Phase       Phase
		Plan        *ExecutionPlan
		Results     []ExecutionResult
		CurrentStep int
		IndexID     string
		DocumentID  string
		SegmentID   string
		StartedAt   time.Time
		CompletedAt time.Time
		Error       string
	}
)

// Reference aliases tools.Reference so planexec's public types don't force
// every caller to import the tools package directly for this one field.
type Reference = tools.Reference

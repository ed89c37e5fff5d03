// Package agentctx defines AgentContext, the carrier that flows into every
// tool invocation.
package agentctx

// AgentContext carries the indices, document/segment identifiers, and
// conversation thread that scope a single tool invocation. Every pipeline
// (ReAct, Plan-Execute-Respond, deep research) constructs one per request
// and threads it unchanged through the Tool Registry.
type AgentContext struct {
	IndexID      string
	DocumentID   string
	SegmentID    string
	SegmentIndex int
	FileURI      string
	ImageURI     string

	StartTimecode string
	EndTimecode   string

	ThreadID  string
	SessionID string
	UserQuery string

	PreviousAnalysisContext string
	AnalysisHistory         []string

	// SkipOpenSearchQuery lets a caller (e.g. a prior tool result already
	// carrying the needed context) suppress a redundant index query inside a
	// tool handler.
	SkipOpenSearchQuery bool
}

// WithSegment returns a copy of ctx scoped to the given segment, used by the
// deep-research worker pool when fanning a job out across
// per-segment tasks.
func (c AgentContext) WithSegment(segmentID string, segmentIndex int) AgentContext {
	out := c
	out.SegmentID = segmentID
	out.SegmentIndex = segmentIndex
	return out
}

// Package research implements the bounded parallel worker pool that drives
// deep-research jobs: per-segment analysis fanned out across a worker pool,
// a Lead coordinator tracking progress and cost, and a final synthesis over
// the accumulated evidence.
package research

import (
	"sync"
	"time"

	"github.com/aws-idp/agentcore/tools"
)

// JobStatus discriminates a ResearchJob's lifecycle stage.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// SegmentType selects which analyzer tool a segment is routed to.
type SegmentType string

const (
	SegmentImage SegmentType = "image"
	SegmentVideo SegmentType = "video"
)

// Segment is one unit of work the pool fans out to a worker: a page of a
// document or a chapter of a video, depending on Type.
type Segment struct {
	ID    string
	Index int
	Type  SegmentType
}

// Progress is a ResearchJob's point-in-time completion snapshot.
type Progress struct {
	CompletedSegments int
	FailedSegments    int
	Percentage        float64
}

// ResearchJob tracks one deep-research request end to end. Unlike
// SearchState (single-request, discarded after the response), a
// ResearchJob persists until it terminates.
type ResearchJob struct {
	JobID         string
	DocumentID    string
	Query         string
	TotalPages    int
	TotalSegments int
	Status        JobStatus
	Progress      Progress
	StartedAt     time.Time
	CompletedAt   time.Time
}

// CostSummary is the running token/dollar tally the Lead coordinator checks
// against a budget between batches.
type CostSummary struct {
	TokensIn   int
	TokensOut  int
	DollarsEst float64
}

// MemoryProgress is ResearchMemory's progress half: the pages seen so far,
// which ones failed, and which batch is in flight.
type MemoryProgress struct {
	TotalPages     int
	CompletedPages int
	FailedPages    []string
	CurrentBatch   int
}

// ResearchMemory is the Lead coordinator's working state across batches,
// separate from the externally-visible ResearchJob.Progress: FailedPages
// names the failing segments (ResearchJob.Progress only counts them).
type ResearchMemory struct {
	mu       sync.Mutex
	Progress MemoryProgress
	Cost     CostSummary
}

func newResearchMemory(totalPages int) *ResearchMemory {
	return &ResearchMemory{Progress: MemoryProgress{TotalPages: totalPages}}
}

// recordBatch folds one batch's outcomes into memory: completed pages,
// newly failed segment ids, and the batch's cost.
func (m *ResearchMemory) recordBatch(batch int, completed int, failedSegmentIDs []string, cost CostSummary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Progress.CurrentBatch = batch
	m.Progress.CompletedPages += completed
	m.Progress.FailedPages = append(m.Progress.FailedPages, failedSegmentIDs...)
	m.Cost.TokensIn += cost.TokensIn
	m.Cost.TokensOut += cost.TokensOut
	m.Cost.DollarsEst += cost.DollarsEst
}

func (m *ResearchMemory) snapshot() (MemoryProgress, CostSummary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fp := make([]string, len(m.Progress.FailedPages))
	copy(fp, m.Progress.FailedPages)
	progress := m.Progress
	progress.FailedPages = fp
	return progress, m.Cost
}

// Finding is one atomic observation extracted from a segment's analysis.
type Finding struct {
	Text string
	Type string
}

// Section is a named grouping a segment's analysis contributed to.
type Section struct {
	Title string
}

// EvidenceRecord is one segment's distilled analysis output, the unit the
// Lead's final synthesis reads back from the EvidenceStore.
type EvidenceRecord struct {
	Findings  []Finding
	Sections  []Section
	Summary   string
	PageIndex int
}

type evidenceKey struct {
	jobID     string
	segmentID string
}

// EvidenceStore accumulates EvidenceRecords keyed by (job_id, segment_id)
// across a job's lifetime, safe for concurrent writes from worker
// goroutines.
type EvidenceStore struct {
	mu      sync.RWMutex
	records map[evidenceKey]EvidenceRecord
}

// NewEvidenceStore constructs an empty EvidenceStore.
func NewEvidenceStore() *EvidenceStore {
	return &EvidenceStore{records: make(map[evidenceKey]EvidenceRecord)}
}

// Put records one segment's evidence.
func (e *EvidenceStore) Put(jobID, segmentID string, rec EvidenceRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.records[evidenceKey{jobID, segmentID}] = rec
}

// Get returns one segment's evidence, if present.
func (e *EvidenceStore) Get(jobID, segmentID string) (EvidenceRecord, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rec, ok := e.records[evidenceKey{jobID, segmentID}]
	return rec, ok
}

// ForJob returns every evidence record for jobID, ordered by PageIndex.
func (e *EvidenceStore) ForJob(jobID string) []EvidenceRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []EvidenceRecord
	for k, rec := range e.records {
		if k.jobID == jobID {
			out = append(out, rec)
		}
	}
	sortByPageIndex(out)
	return out
}

func sortByPageIndex(recs []EvidenceRecord) {
	for i := 1; i < len(recs); i++ {
		for j := i; j > 0 && recs[j].PageIndex < recs[j-1].PageIndex; j-- {
			recs[j], recs[j-1] = recs[j-1], recs[j]
		}
	}
}

// SegmentResult is one segment's outcome as produced by the worker pool.
type SegmentResult struct {
	SegmentID  string
	Success    bool
	Summary    string
	Error      string
	ResultData map[string]any
	References []tools.Reference
}

package research

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/aws-idp/agentcore/agentctx"
	"github.com/aws-idp/agentcore/events"
	"github.com/aws-idp/agentcore/mcphealth"
	"github.com/aws-idp/agentcore/model"
	"github.com/aws-idp/agentcore/promptregistry"
	"github.com/aws-idp/agentcore/telemetry"
	"github.com/aws-idp/agentcore/tools"
)

// Input is one request into the deep-research worker pool.
type Input struct {
	JobID      string
	DocumentID string
	Query      string
	ThreadID   string
	Segments   []Segment
}

// Pool is the Lead coordinator: it partitions a job's segments into
// batches, fans each batch out across a bounded worker pool, folds
// per-segment outcomes into ResearchMemory and the EvidenceStore, checks a
// cost predicate between batches, and produces a final synthesis.
type Pool struct {
	registry *tools.Registry
	health   *mcphealth.Checker
	prompts  *promptregistry.Registry
	client   model.Client
	evidence *EvidenceStore

	logger  telemetry.Logger
	tracer  telemetry.Tracer
	metrics telemetry.Metrics
	limiter *rate.Limiter
}

// Option configures a Pool at construction.
type Option func(*Pool)

func WithLogger(l telemetry.Logger) Option   { return func(p *Pool) { p.logger = l } }
func WithTracer(t telemetry.Tracer) Option   { return func(p *Pool) { p.tracer = t } }
func WithMetrics(m telemetry.Metrics) Option { return func(p *Pool) { p.metrics = m } }
func WithLimiter(l *rate.Limiter) Option     { return func(p *Pool) { p.limiter = l } }

// New constructs a Pool. evidence is shared across calls so a caller can
// inspect accumulated findings after a job completes; pass a fresh
// NewEvidenceStore() per job if isolation is required.
func New(registry *tools.Registry, health *mcphealth.Checker, prompts *promptregistry.Registry, client model.Client, evidence *EvidenceStore, opts ...Option) *Pool {
	p := &Pool{
		registry: registry, health: health, prompts: prompts, client: client, evidence: evidence,
		logger:  telemetry.NewNoopLogger(),
		tracer:  telemetry.NewNoopTracer(),
		metrics: telemetry.NewNoopMetrics(),
	}
	for _, o := range opts {
		if o != nil {
			o(p)
		}
	}
	return p
}

// Process runs a deep-research job to completion: batch by batch, it fans
// segments out to the worker pool, reports progress, and halts early
// (transitioning the job to completed with partial evidence) if the cost
// predicate trips. The SegmentResult channel carries one result per segment
// across the whole job; the event channel carries the progress/reporting
// stream and closes with exactly one terminal event (stream_end or error).
// job is safe to read only after both channels are drained and closed.
func (p *Pool) Process(ctx context.Context, in Input, cfg Config) (*ResearchJob, <-chan events.Event, <-chan SegmentResult) {
	cfg = cfg.withDefaults()

	job := &ResearchJob{
		JobID: in.JobID, DocumentID: in.DocumentID, Query: in.Query,
		TotalSegments: len(in.Segments), Status: JobRunning, StartedAt: time.Now(),
	}
	mem := newResearchMemory(len(in.Segments))

	out := make(chan events.Event, 32)
	results := make(chan SegmentResult, len(in.Segments))

	go func() {
		defer close(results)
		defer close(out)

		ctx, span := p.tracer.Start(ctx, "research.Process")
		defer span.End()

		if p.health != nil && !p.health.IsHealthy() {
			job.Status = JobFailed
			job.CompletedAt = time.Now()
			out <- events.NewError(in.ThreadID, "tool registry unavailable", "tool_unavailable", time.Now())
			return
		}

		actx := agentctx.AgentContext{DocumentID: in.DocumentID, ThreadID: in.ThreadID, UserQuery: in.Query}
		az := &analyzer{registry: p.registry, limiter: p.limiter, maxRetries: 3}

		for batchIdx, batch := range batches(in.Segments, cfg.BatchSize) {
			batchResults := processBatch(ctx, batch, cfg.NumWorkers, cfg.MaxConcurrent, func(ctx context.Context, seg Segment) SegmentResult {
				return az.analyze(ctx, out, in.ThreadID, in.JobID, in.Query, seg, actx, cfg, p.evidence)
			})

			completed, failedIDs := 0, []string(nil)
			for r := range batchResults {
				results <- r
				if r.Success {
					completed++
					job.Progress.CompletedSegments++
				} else {
					failedIDs = append(failedIDs, r.SegmentID)
					job.Progress.FailedSegments++
				}
			}
			mem.recordBatch(batchIdx+1, completed, failedIDs, batchCost(len(batch)))

			job.Progress.Percentage = float64(job.Progress.CompletedSegments+job.Progress.FailedSegments) / float64(job.TotalSegments) * 100
			out <- events.NewPhaseUpdate(in.ThreadID, "deep_research", job.Progress.Percentage, time.Now())

			_, cost := mem.snapshot()
			if !cfg.shouldContinue(cost) {
				p.logger.Info(ctx, "deep research halted by cost predicate", "job_id", in.JobID, "batch", batchIdx+1)
				break
			}
		}

		job.Status = JobCompleted
		job.CompletedAt = time.Now()
		out <- events.NewExecutionComplete(in.ThreadID, job.TotalSegments, job.Progress.CompletedSegments, job.Progress.FailedSegments, time.Now())

		answer, err := synthesizeEvidence(ctx, p.client, p.prompts, in.Query, p.evidence.ForJob(in.JobID))
		if err != nil {
			out <- events.NewError(in.ThreadID, err.Error(), "internal", time.Now())
			return
		}
		if answer != "" {
			textID := in.JobID
			out <- events.NewTextChunk(in.ThreadID, textID, answer, time.Now())
		}
		out <- events.NewStreamEnd(in.ThreadID, time.Now())
	}()

	return job, out, results
}

package core

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/aws-idp/agentcore/checkpoint"
	"github.com/aws-idp/agentcore/conversation"
	"github.com/aws-idp/agentcore/corerrors"
	"github.com/aws-idp/agentcore/events"
	"github.com/aws-idp/agentcore/mcphealth"
	"github.com/aws-idp/agentcore/model"
	"github.com/aws-idp/agentcore/planexec"
	"github.com/aws-idp/agentcore/promptregistry"
	"github.com/aws-idp/agentcore/react"
	"github.com/aws-idp/agentcore/research"
	"github.com/aws-idp/agentcore/telemetry"
	"github.com/aws-idp/agentcore/tools"
)

// Mode selects which of the three pipelines a Stream request is routed
// through.
type Mode string

const (
	ModeReact        Mode = "react"
	ModePlanExecute  Mode = "plan_execute"
	ModeDeepResearch Mode = "deep_research"
)

// StreamInput is one request into Core.Stream.
type StreamInput struct {
	Query       string
	Mode        Mode
	IndexID     string
	DocumentID  string
	SegmentID   string
	ThreadID    string
	ModelID     string
	Attachments []react.InputAttachment

	// Segments is only consulted for Mode == ModeDeepResearch.
	Segments []research.Segment
	JobID    string
}

// Status is Health's aggregate report across the MCP aggregator and model
// reachability.
type Status struct {
	Healthy       bool
	ToolsHealthy  bool
	ToolCount     int
	LastCheck     time.Time
	ModelID       string
	HealthError   string
}

// Core wires every component behind Stream/Resume/Reinit/Health. Construct
// with New; it is safe for concurrent use once built.
type Core struct {
	conv     *conversation.Store
	ckpt     checkpoint.Store
	registry *tools.Registry
	health   *mcphealth.Checker
	prompts  *promptregistry.Registry
	client   model.Client
	evidence *research.EvidenceStore

	reactEngine *react.Engine
	planexecPL  *planexec.Pipeline
	researchP   *research.Pool

	modelID string
	cfg     Config

	logger  telemetry.Logger
	tracer  telemetry.Tracer
	metrics telemetry.Metrics
	limiter *rate.Limiter
}

// Option configures a Core at construction.
type Option func(*Core)

func WithLogger(l telemetry.Logger) Option   { return func(c *Core) { c.logger = l } }
func WithTracer(t telemetry.Tracer) Option   { return func(c *Core) { c.tracer = t } }
func WithMetrics(m telemetry.Metrics) Option { return func(c *Core) { c.metrics = m } }
func WithLimiter(l *rate.Limiter) Option     { return func(c *Core) { c.limiter = l } }

// New wires the nine components into a Core. conv and ckpt back the ReAct
// engine and the Plan-Execute-Respond pipeline's optional conversation
// continuity; registry/health/prompts/client are shared by every pipeline.
func New(conv *conversation.Store, ckpt checkpoint.Store, registry *tools.Registry, health *mcphealth.Checker, prompts *promptregistry.Registry, client model.Client, cfg Config, opts ...Option) *Core {
	cfg = cfg.withDefaults()

	c := &Core{
		conv: conv, ckpt: ckpt, registry: registry, health: health, prompts: prompts, client: client,
		evidence: research.NewEvidenceStore(),
		modelID:  cfg.ModelID,
		cfg:      cfg,
		logger:   telemetry.NewNoopLogger(),
		tracer:   telemetry.NewNoopTracer(),
		metrics:  telemetry.NewNoopMetrics(),
	}
	for _, o := range opts {
		if o != nil {
			o(c)
		}
	}

	c.reactEngine = react.New(conv, ckpt, registry, health, prompts, client,
		react.WithLogger(c.logger), react.WithTracer(c.tracer), react.WithMetrics(c.metrics), react.WithLimiter(c.limiter))
	c.planexecPL = planexec.New(conv, registry, health, prompts, client,
		planexec.WithLogger(c.logger), planexec.WithTracer(c.tracer), planexec.WithMetrics(c.metrics), planexec.WithLimiter(c.limiter))
	c.researchP = research.New(registry, health, prompts, client, c.evidence,
		research.WithLogger(c.logger), research.WithTracer(c.tracer), research.WithMetrics(c.metrics), research.WithLimiter(c.limiter))

	return c
}

// Stream is the single entry point for a fresh request: it routes to the
// ReAct engine, the Plan-Execute-Respond pipeline, or the deep-research
// worker pool by in.Mode, and returns every pipeline's output through the
// Event Stream Multiplexer so callers see one uniformly-ordered channel
// regardless of which pipeline produced it.
func (c *Core) Stream(ctx context.Context, in StreamInput) <-chan events.Event {
	var producer <-chan events.Event

	switch in.Mode {
	case ModePlanExecute:
		producer = c.planexecPL.Run(ctx, planexec.Input{
			ThreadID: in.ThreadID, Query: in.Query, IndexID: in.IndexID, DocumentID: in.DocumentID, SegmentID: in.SegmentID,
		}, planexec.Config{MaxTokens: c.cfg.MaxTokens, ModelTimeout: c.cfg.ModelTimeout, MaxRetries: c.cfg.MaxRetries})

	case ModeDeepResearch:
		_, evCh, segCh := c.researchP.Process(ctx, research.Input{
			JobID: in.JobID, DocumentID: in.DocumentID, Query: in.Query, ThreadID: in.ThreadID, Segments: in.Segments,
		}, research.DefaultConfig())
		go drainSegments(segCh)
		producer = evCh

	case ModeReact, "":
		producer = c.reactEngine.Stream(ctx, react.Input{
			ThreadID: in.ThreadID, Query: in.Query, Attachments: in.Attachments,
			IndexID: in.IndexID, DocumentID: in.DocumentID, SegmentID: in.SegmentID,
		}, react.Config{MaxTokens: c.cfg.MaxTokens, ModelTimeout: c.cfg.ModelTimeout, MaxRetries: c.cfg.MaxRetries, SummarizationThreshold: c.cfg.SummarizationThreshold})

	default:
		return errStream(in.ThreadID, fmt.Sprintf("unknown mode %q", in.Mode))
	}

	return events.Merge(ctx, producer)
}

// Resume continues an interrupted ReAct thread; only the ReAct engine
// supports human-in-the-loop tool approval.
func (c *Core) Resume(ctx context.Context, threadID string, approved bool) <-chan events.Event {
	return events.Merge(ctx, c.reactEngine.Resume(ctx, threadID, approved))
}

// Reinit resets pipelines: it reloads the Prompt Registry's sources when
// reloadPrompts is set, records a non-empty modelID as the model id Health
// reports, and clears conversation history and the checkpoint for threadID.
// It also reloads the Tool Registry and forces an MCP health re-check. The
// model client's own default model is not changed. Conversation
// history is keyed by thread, not by index, so indexID is accepted for
// interface parity but does not currently scope a clear of its own; it is
// reserved for a future index-keyed cache this store doesn't maintain yet.
func (c *Core) Reinit(ctx context.Context, modelID string, reloadPrompts bool, threadID, indexID string) error {
	_ = indexID
	if modelID != "" {
		c.modelID = modelID
	}
	if reloadPrompts {
		if err := c.prompts.Reload(); err != nil {
			return corerrors.Wrap(corerrors.KindInternal, "reload prompt registry", err)
		}
	}
	if threadID != "" {
		c.conv.Clear(threadID)
		_ = c.ckpt.Delete(ctx, threadID)
	}
	c.registry.Reload()
	c.health.SetUnhealthy(ctx, "reinit: forcing re-check")
	c.health.ForceCheck(ctx)
	return nil
}

// Health aggregates the MCP Health Checker's status and the configured
// model id (reachability is not separately probed; a failed model call
// surfaces through Stream's error event instead).
func (c *Core) Health() Status {
	h := c.health.EnsureFresh(context.Background(), c.cfg.MCPHealthCheckTimeout)
	return Status{
		Healthy:      h.Healthy,
		ToolsHealthy: h.Healthy,
		ToolCount:    h.ToolCount,
		LastCheck:    h.LastCheck,
		ModelID:      c.modelID,
		HealthError:  h.Error,
	}
}

func drainSegments(ch <-chan research.SegmentResult) {
	for range ch {
	}
}

func errStream(threadID, msg string) <-chan events.Event {
	out := make(chan events.Event, 1)
	out <- events.NewError(threadID, msg, string(corerrors.KindValidation), time.Now())
	close(out)
	return out
}

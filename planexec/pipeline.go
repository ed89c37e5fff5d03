package planexec

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/aws-idp/agentcore/agentctx"
	"github.com/aws-idp/agentcore/conversation"
	"github.com/aws-idp/agentcore/corerrors"
	"github.com/aws-idp/agentcore/events"
	"github.com/aws-idp/agentcore/mcphealth"
	"github.com/aws-idp/agentcore/model"
	"github.com/aws-idp/agentcore/promptregistry"
	"github.com/aws-idp/agentcore/telemetry"
	"github.com/aws-idp/agentcore/tools"
)

// Input is one request into the Plan-Execute-Respond pipeline.
type Input struct {
	ThreadID   string
	Query      string
	IndexID    string
	DocumentID string
	SegmentID  string
}

// Pipeline implements the Plan-Execute-Respond orchestrator: Planner,
// Executor, and Synthesizer collaborating over a single SearchState.
type Pipeline struct {
	conv     *conversation.Store
	registry *tools.Registry
	health   *mcphealth.Checker
	prompts  *promptregistry.Registry
	client   model.Client

	logger  telemetry.Logger
	tracer  telemetry.Tracer
	metrics telemetry.Metrics
	limiter *rate.Limiter
}

// Option configures a Pipeline at construction.
type Option func(*Pipeline)

func WithLogger(l telemetry.Logger) Option   { return func(p *Pipeline) { p.logger = l } }
func WithTracer(t telemetry.Tracer) Option   { return func(p *Pipeline) { p.tracer = t } }
func WithMetrics(m telemetry.Metrics) Option { return func(p *Pipeline) { p.metrics = m } }
func WithLimiter(l *rate.Limiter) Option     { return func(p *Pipeline) { p.limiter = l } }

// New constructs a Pipeline. conv may be nil: when set, the synthesized
// answer is appended to the thread's conversation history so a later ReAct
// turn on the same thread_id has continuity with it.
func New(conv *conversation.Store, registry *tools.Registry, health *mcphealth.Checker, prompts *promptregistry.Registry, client model.Client, opts ...Option) *Pipeline {
	p := &Pipeline{
		conv: conv, registry: registry, health: health, prompts: prompts, client: client,
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

// Run drives the plan -> execute -> synthesize pipeline for a single
// request, returning a channel of events that closes after exactly one
// terminal event (stream_end or error).
func (p *Pipeline) Run(ctx context.Context, in Input, cfg Config) <-chan events.Event {
	cfg = cfg.withDefaults()
	out := make(chan events.Event, 16)

	go func() {
		defer close(out)

		ctx, span := p.tracer.Start(ctx, "planexec.Run")
		defer span.End()

		actx := agentctx.AgentContext{
			IndexID: in.IndexID, DocumentID: in.DocumentID, SegmentID: in.SegmentID,
			ThreadID: in.ThreadID, UserQuery: in.Query,
		}

		st := &SearchState{Query: in.Query, Phase: PhasePlanning, IndexID: in.IndexID, DocumentID: in.DocumentID, SegmentID: in.SegmentID, StartedAt: time.Now()}

		out <- events.NewPhaseUpdate(in.ThreadID, string(PhasePlanning), 0, time.Now())

		availableTools := p.availableTools()
		pl := &planner{client: p.client, prompts: p.prompts}
		plan, err := pl.generatePlan(ctx, out, in.ThreadID, in.Query, cfg, availableTools)
		if err != nil {
			p.fail(out, in.ThreadID, st, err)
			return
		}
		st.Plan = &plan
		st.Phase = PhaseExecuting

		out <- events.NewPlanGenerated(in.ThreadID, toPlanStepViews(plan.Plan), time.Now())
		out <- events.NewPhaseUpdate(in.ThreadID, string(PhaseExecuting), 0, time.Now())

		ex := &executor{registry: p.registry, health: p.health, limiter: p.limiter}
		results, err := ex.execute(ctx, out, in.ThreadID, plan, actx, cfg)
		if err != nil {
			p.fail(out, in.ThreadID, st, err)
			return
		}
		st.Results = results

		if !anySuccessful(results) {
			p.fail(out, in.ThreadID, st, corerrors.New(corerrors.KindInternal, "no_successful_results"))
			return
		}

		st.Phase = PhaseSynthesizing
		out <- events.NewSynthesizingStart(in.ThreadID, time.Now())

		sy := &synthesizer{client: p.client, prompts: p.prompts}
		answer, err := sy.synthesize(ctx, out, in.ThreadID, in.Query, results, cfg)
		if err != nil {
			p.fail(out, in.ThreadID, st, err)
			return
		}
		if p.conv != nil && in.ThreadID != "" && answer != "" {
			p.conv.AppendUser(in.ThreadID, model.NewTextMessage(model.RoleUser, in.Query))
			p.conv.AppendAssistant(in.ThreadID, model.NewTextMessage(model.RoleAssistant, answer))
		}

		if refs := dedupeReferences(results); len(refs) > 0 {
			out <- events.NewReferences(in.ThreadID, refs, time.Now())
		}

		st.Phase = PhaseCompleted
		st.CompletedAt = time.Now()
		out <- events.NewStreamEnd(in.ThreadID, time.Now())
	}()

	return out
}

func (p *Pipeline) fail(out chan<- events.Event, threadID string, st *SearchState, err error) {
	st.Phase = PhaseError
	st.Error = err.Error()
	code := string(corerrors.KindOf(err))
	if code == string(corerrors.KindInternal) && err.Error() == "internal: no_successful_results" {
		code = "no_successful_results"
	}
	p.logger.Error(context.Background(), "plan-execute-respond pipeline error", "thread_id", threadID, "error", err.Error())
	out <- events.NewError(threadID, err.Error(), code, time.Now())
}

func (p *Pipeline) availableTools() []tools.ToolSpec {
	if p.health != nil && !p.health.IsHealthy() {
		return nil
	}
	return p.registry.List()
}

func toPlanStepViews(steps []PlanStep) []events.PlanStepView {
	out := make([]events.PlanStepView, len(steps))
	for i, s := range steps {
		out[i] = events.PlanStepView{Step: s.Step, Thought: s.Thought, ToolName: s.ToolName, ToolInput: s.ToolInput, Status: string(s.Status)}
	}
	return out
}

func anySuccessful(results []ExecutionResult) bool {
	for _, r := range results {
		if r.Success {
			return true
		}
	}
	return false
}

// dedupeReferences flattens and deduplicates references across every
// successful step result, by id (falling back to value when id is empty).
func dedupeReferences(results []ExecutionResult) []tools.Reference {
	seen := map[string]bool{}
	var out []tools.Reference
	for _, r := range results {
		for _, ref := range r.References {
			key := ref.ID
			if key == "" {
				key = ref.Value
			}
			if !seen[key] {
				seen[key] = true
				out = append(out, ref)
			}
		}
	}
	return out
}

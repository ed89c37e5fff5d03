// Package react implements the ReAct engine: a reason/act/observe state
// machine that alternates model invocation and tool execution over a
// thread's conversation, with history compaction and interrupt/resume
// support for human-in-the-loop tool approval.
package react

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/aws-idp/agentcore/agentctx"
	"github.com/aws-idp/agentcore/checkpoint"
	"github.com/aws-idp/agentcore/conversation"
	"github.com/aws-idp/agentcore/corerrors"
	"github.com/aws-idp/agentcore/events"
	"github.com/aws-idp/agentcore/mcphealth"
	"github.com/aws-idp/agentcore/model"
	"github.com/aws-idp/agentcore/promptregistry"
	"github.com/aws-idp/agentcore/telemetry"
	"github.com/aws-idp/agentcore/tools"
)

// Defaults mirrored from the external configuration surface.
const (
	DefaultMaxTokens              = 4096
	DefaultModelTimeout           = 60 * time.Second
	DefaultMaxRetries             = 3
	DefaultSummarizationThreshold = 12
	DefaultMinMessagesSinceSummary = 6

	DefaultSystemPromptName      = "react_system"
	DefaultInstructionPromptName = "react_instruction"
	DefaultSummarizePromptName   = "react_summarize"
)

// Config configures a single Stream or Resume call.
type Config struct {
	MaxTokens               int
	ModelTimeout            time.Duration
	MaxRetries              int
	SummarizationThreshold  int
	MinMessagesSinceSummary int

	// InterruptBeforeTools, when set, pauses the loop before dispatching any
	// tool call and requires a Resume(threadID, approved) call to continue.
	InterruptBeforeTools bool

	// MaxCostUSD bounds cumulative estimated spend for one Stream/Resume
	// call. Zero disables the budget check.
	MaxCostUSD        float64
	InputCostPerToken float64
	OutputCostPerToken float64

	SystemPromptName      string
	InstructionPromptName string
	SummarizePromptName   string
}

// DefaultConfig returns a Config with every field set to its documented
// default.
func DefaultConfig() Config {
	return Config{
		MaxTokens:               DefaultMaxTokens,
		ModelTimeout:            DefaultModelTimeout,
		MaxRetries:              DefaultMaxRetries,
		SummarizationThreshold:  DefaultSummarizationThreshold,
		MinMessagesSinceSummary: DefaultMinMessagesSinceSummary,
		SystemPromptName:        DefaultSystemPromptName,
		InstructionPromptName:   DefaultInstructionPromptName,
		SummarizePromptName:     DefaultSummarizePromptName,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.ModelTimeout <= 0 {
		c.ModelTimeout = DefaultModelTimeout
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.SummarizationThreshold <= 0 {
		c.SummarizationThreshold = DefaultSummarizationThreshold
	}
	if c.MinMessagesSinceSummary <= 0 {
		c.MinMessagesSinceSummary = DefaultMinMessagesSinceSummary
	}
	if c.SystemPromptName == "" {
		c.SystemPromptName = DefaultSystemPromptName
	}
	if c.InstructionPromptName == "" {
		c.InstructionPromptName = DefaultInstructionPromptName
	}
	if c.SummarizePromptName == "" {
		c.SummarizePromptName = DefaultSummarizePromptName
	}
	return c
}

// Input is one turn's request into the engine.
type Input struct {
	ThreadID    string
	Query       string
	Attachments []InputAttachment
	IndexID     string
	DocumentID  string
	SegmentID   string
}

// Engine implements the ReAct reason/act/observe loop.
type Engine struct {
	conv     *conversation.Store
	ckpt     checkpoint.Store
	registry *tools.Registry
	health   *mcphealth.Checker
	prompts  *promptregistry.Registry
	client   model.Client

	logger  telemetry.Logger
	tracer  telemetry.Tracer
	metrics telemetry.Metrics
	limiter *rate.Limiter
}

// Option configures an Engine at construction.
type Option func(*Engine)

func WithLogger(l telemetry.Logger) Option   { return func(e *Engine) { e.logger = l } }
func WithTracer(t telemetry.Tracer) Option   { return func(e *Engine) { e.tracer = t } }
func WithMetrics(m telemetry.Metrics) Option { return func(e *Engine) { e.metrics = m } }

// WithLimiter paces the retry loop's backoff waits, guarding a recovering
// model endpoint against a thundering herd of concurrent threads.
func WithLimiter(l *rate.Limiter) Option { return func(e *Engine) { e.limiter = l } }

// New constructs an Engine wiring the Conversation Store, Checkpoint Store,
// Tool Registry, MCP Health Checker, Prompt Registry, and model client.
func New(conv *conversation.Store, ckpt checkpoint.Store, registry *tools.Registry, health *mcphealth.Checker, prompts *promptregistry.Registry, client model.Client, opts ...Option) *Engine {
	e := &Engine{
		conv: conv, ckpt: ckpt, registry: registry, health: health, prompts: prompts, client: client,
		logger:  telemetry.NewNoopLogger(),
		tracer:  telemetry.NewNoopTracer(),
		metrics: telemetry.NewNoopMetrics(),
	}
	for _, o := range opts {
		if o != nil {
			o(e)
		}
	}
	return e
}

// loopState is the mutable state threaded through one reason/act/observe
// run, shared by Stream (fresh) and Resume (reconstructed from a
// checkpoint).
type loopState struct {
	threadID     string
	actx         agentctx.AgentContext
	systemPrompt string
	messages     []model.Message

	toolRefs   []tools.Reference
	refSeen    map[string]bool
	costUSD    float64
	textID     string

	// pendingCalls is non-nil only on a Resume(approved=true): the tool
	// calls awaiting execution are replayed directly into the tool node,
	// skipping the model call that already produced them.
	pendingCalls []model.ToolCall
}

// Stream runs the ReAct loop for a fresh turn, returning a channel of
// events that closes after exactly one terminal event (stream_end, error,
// or interrupt).
func (e *Engine) Stream(ctx context.Context, in Input, cfg Config) <-chan events.Event {
	cfg = cfg.withDefaults()
	out := make(chan events.Event, 16)

	go func() {
		defer close(out)

		ctx, span := e.tracer.Start(ctx, "react.Stream")
		defer span.End()

		actx := agentctx.AgentContext{
			IndexID: in.IndexID, DocumentID: in.DocumentID, SegmentID: in.SegmentID,
			ThreadID: in.ThreadID, UserQuery: in.Query,
		}

		var imageBlocks []model.Block
		for _, att := range in.Attachments {
			img, err := processAttachment(att)
			if err != nil {
				e.emitError(out, in.ThreadID, err)
				return
			}
			imageBlocks = append(imageBlocks, img)
		}

		instructionText := in.Query
		if rendered, err := e.prompts.Render(cfg.InstructionPromptName, map[string]any{
			"Query": in.Query, "IndexID": in.IndexID, "DocumentID": in.DocumentID, "SegmentID": in.SegmentID,
		}); err == nil {
			instructionText = rendered
		}
		instruction := model.Message{
			Role:    model.RoleUser,
			Content: append([]model.Block{model.TextBlock{Text: instructionText}}, imageBlocks...),
		}

		systemPrompt, _ := e.prompts.Render(cfg.SystemPromptName, map[string]any{
			"IndexID": in.IndexID, "DocumentID": in.DocumentID, "SegmentID": in.SegmentID,
		})

		messages := e.conv.Prepare(in.ThreadID, instruction, systemPrompt)
		e.conv.AppendUser(in.ThreadID, instruction)

		st := &loopState{
			threadID: in.ThreadID, actx: actx, systemPrompt: systemPrompt,
			messages: messages, refSeen: map[string]bool{},
		}

		if shouldSummarize(e.conv, in.ThreadID, cfg) {
			if err := e.summarize(ctx, st, cfg); err != nil {
				e.emitError(out, in.ThreadID, err)
				return
			}
		}

		e.runLoop(ctx, out, st, cfg)
	}()

	return out
}

// Resume continues an interrupted thread. approved=true dispatches the
// pending tool calls; approved=false injects a rejection message for each
// and resumes at call_model.
func (e *Engine) Resume(ctx context.Context, threadID string, approved bool) <-chan events.Event {
	out := make(chan events.Event, 16)

	go func() {
		defer close(out)

		state, err := e.ckpt.GetState(ctx, threadID)
		if err != nil {
			e.emitError(out, threadID, corerrors.Wrap(corerrors.KindInternal, "load interrupted state", err))
			return
		}
		snap, err := decodeSnapshot(state)
		if err != nil {
			e.emitError(out, threadID, err)
			return
		}
		cfg := snap.Config.withDefaults()

		st := &loopState{
			threadID: threadID,
			actx: agentctx.AgentContext{
				IndexID: snap.IndexID, DocumentID: snap.DocumentID, SegmentID: snap.SegmentID,
				ThreadID: threadID, UserQuery: snap.Query,
			},
			systemPrompt: snap.SystemPrompt,
			messages:     fromWireMessages(snap.Messages),
			toolRefs:     snap.ToolReferences,
			refSeen:      map[string]bool{},
			costUSD:      snap.CostUSD,
		}
		for _, r := range st.toolRefs {
			st.refSeen[refKey(r)] = true
		}

		if approved {
			st.pendingCalls = snap.PendingCalls
		} else {
			for _, call := range snap.PendingCalls {
				rejection := model.NewToolMessage(call.ID, "Tool call rejected by user", true)
				st.messages = append(st.messages, rejection)
				e.conv.AppendAssistant(threadID, rejection)
			}
		}

		e.runLoop(ctx, out, st, cfg)
	}()

	return out
}

// runLoop drives the reason/act cycle until a terminal condition is
// reached: no tool_calls (success), an interrupt, a budget breach, or a
// non-retryable error.
func (e *Engine) runLoop(ctx context.Context, out chan<- events.Event, st *loopState, cfg Config) {
	for {
		var calls []model.ToolCall

		if st.pendingCalls != nil {
			// These calls already cleared an interrupt (this is an
			// approved Resume); dispatch them directly rather than
			// re-checking InterruptBeforeTools, which would re-persist and
			// re-emit the same interrupt forever.
			calls = st.pendingCalls
			st.pendingCalls = nil
		} else {
			assistant, usage, err := e.callModel(ctx, out, st, cfg)
			if err != nil {
				e.emitError(out, st.threadID, err)
				_ = e.ckpt.Delete(ctx, st.threadID)
				return
			}

			st.costUSD += usage.InputTokens*cfg.InputCostPerToken + usage.OutputTokens*cfg.OutputCostPerToken
			if cfg.MaxCostUSD > 0 && st.costUSD > cfg.MaxCostUSD {
				out <- events.NewError(st.threadID, "cost budget exceeded", "budget_exceeded", time.Now())
				_ = e.ckpt.Delete(ctx, st.threadID)
				return
			}

			st.messages = append(st.messages, assistant)
			e.conv.AppendAssistant(st.threadID, assistant)

			if len(assistant.ToolCalls) == 0 {
				e.finish(ctx, out, st)
				return
			}
			calls = assistant.ToolCalls

			if cfg.InterruptBeforeTools {
				if err := e.persistInterrupt(ctx, st, cfg, calls); err != nil {
					e.emitError(out, st.threadID, err)
					return
				}
				out <- events.NewInterrupt(st.threadID, true, time.Now())
				return
			}
		}

		e.runToolNode(ctx, out, st, calls)
	}
}

// finish emits the deduplicated references event (iff any were gathered)
// followed by stream_end, and clears persisted interrupt state so it
// cannot leak into the next turn on this thread.
func (e *Engine) finish(ctx context.Context, out chan<- events.Event, st *loopState) {
	if len(st.toolRefs) > 0 {
		out <- events.NewReferences(st.threadID, st.toolRefs, time.Now())
	}
	out <- events.NewStreamEnd(st.threadID, time.Now())
	_ = e.ckpt.Delete(ctx, st.threadID)
}

func (e *Engine) emitError(out chan<- events.Event, threadID string, err error) {
	e.logger.Error(context.Background(), "react engine error", "thread_id", threadID, "error", err.Error())
	out <- events.NewError(threadID, err.Error(), string(corerrors.KindOf(err)), time.Now())
}

func refKey(r tools.Reference) string {
	if r.ID != "" {
		return r.ID
	}
	return r.Value
}

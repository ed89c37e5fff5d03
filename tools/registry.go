package tools

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/aws-idp/agentcore/agentctx"
	"github.com/aws-idp/agentcore/corerrors"
	"github.com/aws-idp/agentcore/telemetry"
	"github.com/aws-idp/agentcore/toolerrors"
)

// cacheSize is the bound of the per-registry circular cache of prior results
// retained for observability (see Stats); Invoke never serves results from it.
const cacheSize = 20

type registration struct {
	spec    ToolSpec
	handler Handler
	schema  *jsonschema.Schema
}

// Registry is the catalog of named tools. Register is typically called
// once at startup; List/Invoke are read-mostly and safe for concurrent use
// thereafter.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*registration

	cacheMu   sync.Mutex
	cache     []cacheEntry
	lastIndex string
	lastSess  string

	refImageMaxAttach    int
	refImageMaxBase64Len int

	logger telemetry.Logger
	tracer telemetry.Tracer
}

type cacheEntry struct {
	ToolName string
	Args     map[string]any
	Result   ToolResult
	Recorded time.Time
}

// Option configures a Registry at construction.
type Option func(*Registry)

// WithLogger configures the registry's logger. Defaults to a noop logger.
func WithLogger(l telemetry.Logger) Option { return func(r *Registry) { r.logger = l } }

// WithTracer configures the registry's tracer. Defaults to a noop tracer.
func WithTracer(t telemetry.Tracer) Option { return func(r *Registry) { r.tracer = t } }

// WithAttachmentLimits overrides the default reference-image attachment
// bounds.
func WithAttachmentLimits(maxAttach, maxBase64Len int) Option {
	return func(r *Registry) {
		r.refImageMaxAttach = maxAttach
		r.refImageMaxBase64Len = maxBase64Len
	}
}

// NewRegistry constructs an empty Registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		tools:                make(map[string]*registration),
		refImageMaxAttach:    DefaultRefImageMaxAttach,
		refImageMaxBase64Len: DefaultRefImageMaxBase64Len,
		logger:               telemetry.NewNoopLogger(),
		tracer:               telemetry.NewNoopTracer(),
	}
	for _, o := range opts {
		if o != nil {
			o(r)
		}
	}
	return r
}

// Register adds a tool to the catalog, compiling its input schema once so
// Invoke can validate arguments without recompiling on every call. Returns
// an error if name is already registered or the schema fails to compile.
func (r *Registry) Register(spec ToolSpec, handler Handler) error {
	if spec.Name == "" {
		return corerrors.New(corerrors.KindValidation, "tool name is required")
	}
	if handler == nil {
		return corerrors.New(corerrors.KindValidation, fmt.Sprintf("tool %q: handler is required", spec.Name))
	}

	var compiled *jsonschema.Schema
	if len(spec.InputSchema) > 0 {
		c := jsonschema.NewCompiler()
		resourceURL := spec.Name + ".schema.json"
		if err := c.AddResource(resourceURL, spec.InputSchema); err != nil {
			return corerrors.Wrap(corerrors.KindInternal, fmt.Sprintf("tool %q: add schema resource", spec.Name), err)
		}
		s, err := c.Compile(resourceURL)
		if err != nil {
			return corerrors.Wrap(corerrors.KindInternal, fmt.Sprintf("tool %q: compile schema", spec.Name), err)
		}
		compiled = s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[spec.Name]; exists {
		return corerrors.New(corerrors.KindValidation, fmt.Sprintf("tool %q already registered", spec.Name))
	}
	r.tools[spec.Name] = &registration{spec: spec, handler: handler, schema: compiled}
	return nil
}

// List returns the catalog of registered tool specs in no particular order.
func (r *Registry) List() []ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ToolSpec, 0, len(r.tools))
	for _, reg := range r.tools {
		out = append(out, reg.spec)
	}
	return out
}

// Reload clears the per-registry result cache, giving callers a well-defined
// reset point. Registered tool specs and compiled schemas are unaffected.
func (r *Registry) Reload() {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	r.cache = nil
	r.lastIndex = ""
	r.lastSess = ""
}

// Stats reports the current size of the observability cache.
func (r *Registry) Stats() (cached int) {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	return len(r.cache)
}

// Invoke dispatches a tool call through the registry. It fails with a
// KindNotFound-classified error when the tool name is absent, with a
// KindSchemaError-classified error when args violate the tool's input
// schema, otherwise dispatches the handler synchronously and returns a
// normalized ToolResult. Handler panics are recovered and converted to a
// failed ToolResult rather than propagated.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any, actx agentctx.AgentContext) (ToolResult, error) {
	r.mu.RLock()
	reg, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return ToolResult{}, corerrors.New(corerrors.KindNotFound, fmt.Sprintf("unknown tool %q", name))
	}

	if reg.schema != nil {
		if err := reg.schema.Validate(toAnyMap(args)); err != nil {
			return ToolResult{}, corerrors.Wrap(corerrors.KindSchemaError, fmt.Sprintf("tool %q: invalid arguments", name), err)
		}
	}

	r.invalidateCacheOnContextChange(actx)

	ctx, span := r.tracer.Start(ctx, "tools.Invoke")
	defer span.End()

	start := time.Now()
	raw := r.runHandler(ctx, reg, name, args, actx)
	elapsed := time.Since(start)

	normalized := normalize(name, raw, r.refImageMaxAttach, r.refImageMaxBase64Len)
	normalized.ExecutionTimeS = elapsed.Seconds()

	r.recordCache(name, args, normalized)
	return normalized, nil
}

func (r *Registry) runHandler(ctx context.Context, reg *registration, name string, args map[string]any, actx agentctx.AgentContext) (raw RawToolResult) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error(ctx, "tool handler panicked", "tool", name, "recover", fmt.Sprintf("%v", rec))
			raw = RawToolResult{Success: false, Error: toolerrors.Errorf("panic: %v", rec).Error()}
		}
	}()
	out, err := reg.handler(ctx, args, actx)
	if err != nil {
		// Error holds the message of the first *ToolError in err's chain, or
		// err.Error() when the chain has none. Only that string is kept; the
		// cause chain is not carried in the result.
		return RawToolResult{Success: false, Error: toolerrors.FromError(err).Error()}
	}
	return out
}

func (r *Registry) invalidateCacheOnContextChange(actx agentctx.AgentContext) {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	if r.lastIndex != "" && r.lastIndex != actx.IndexID || r.lastSess != "" && r.lastSess != actx.SessionID {
		r.cache = nil
	}
	r.lastIndex = actx.IndexID
	r.lastSess = actx.SessionID
}

func (r *Registry) recordCache(toolName string, args map[string]any, result ToolResult) {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()
	entry := cacheEntry{ToolName: toolName, Args: args, Result: result, Recorded: time.Now()}
	if len(r.cache) < cacheSize {
		r.cache = append(r.cache, entry)
		return
	}
	// Circular: overwrite oldest slot.
	copy(r.cache, r.cache[1:])
	r.cache[len(r.cache)-1] = entry
}

func toAnyMap(args map[string]any) any {
	if args == nil {
		return map[string]any{}
	}
	return map[string]any(args)
}

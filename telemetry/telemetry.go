// Package telemetry provides logging, metrics, and tracing abstractions used
// throughout the agent orchestration core. Components depend on the
// interfaces here rather than on a concrete backend so tests can substitute
// noop implementations and production processes can wire in OpenTelemetry
// and goa.design/clue without touching call sites.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type (
	// Logger emits structured log messages. Implementations must be safe for
	// concurrent use; the core calls logging methods from multiple goroutines
	// (tool dispatch, worker pool, health checker).
	Logger interface {
		Debug(ctx context.Context, msg string, keyvals ...any)
		Info(ctx context.Context, msg string, keyvals ...any)
		Warn(ctx context.Context, msg string, keyvals ...any)
		Error(ctx context.Context, msg string, keyvals ...any)
	}

	// Metrics records counters, timers, and gauges. Tag arguments are
	// "key", "value" pairs.
	Metrics interface {
		IncCounter(name string, value float64, tags ...string)
		RecordTimer(name string, duration time.Duration, tags ...string)
		RecordGauge(name string, value float64, tags ...string)
	}

	// Tracer creates spans for tracing. Start returns a context carrying the
	// new span and a Span handle for ending/annotating it.
	Tracer interface {
		Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span)
		Span(ctx context.Context) Span
	}

	// Span wraps a single trace span.
	Span interface {
		End(opts ...trace.SpanEndOption)
		SetStatus(code codes.Code, description string)
		SetAttributes(kv ...any)
		RecordError(err error)
	}
)

package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	clog "goa.design/clue/log"
)

type (
	// ClueLogger delegates to goa.design/clue/log. Formatting and debug
	// settings are read from the context set up by the embedding process via
	// log.Context/log.WithFormat/log.WithDebug.
	ClueLogger struct{}

	// OTelMetrics delegates to an OpenTelemetry meter.
	OTelMetrics struct {
		meter metric.Meter
	}

	// OTelTracer delegates to an OpenTelemetry tracer.
	OTelTracer struct {
		tracer trace.Tracer
	}

	otelSpan struct {
		span trace.Span
	}
)

// NewClueLogger constructs a Logger backed by goa.design/clue/log.
func NewClueLogger() Logger { return ClueLogger{} }

// NewOTelMetrics constructs a Metrics recorder backed by the global OTel
// MeterProvider, scoped under the given instrumentation name.
func NewOTelMetrics(scope string) Metrics {
	if scope == "" {
		scope = "github.com/aws-idp/agentcore"
	}
	return &OTelMetrics{meter: otel.Meter(scope)}
}

// NewOTelTracer constructs a Tracer backed by the global OTel TracerProvider.
func NewOTelTracer(scope string) Tracer {
	if scope == "" {
		scope = "github.com/aws-idp/agentcore"
	}
	return &OTelTracer{tracer: otel.Tracer(scope)}
}

func (ClueLogger) Debug(ctx context.Context, msg string, keyvals ...any) {
	clog.Debug(ctx, fielders(msg, keyvals)...)
}

func (ClueLogger) Info(ctx context.Context, msg string, keyvals ...any) {
	clog.Info(ctx, fielders(msg, keyvals)...)
}

func (ClueLogger) Warn(ctx context.Context, msg string, keyvals ...any) {
	clog.Info(ctx, append(fielders(msg, keyvals), clog.KV{K: "severity", V: "warning"})...)
}

func (ClueLogger) Error(ctx context.Context, msg string, keyvals ...any) {
	clog.Error(ctx, nil, fielders(msg, keyvals)...)
}

func fielders(msg string, keyvals []any) []clog.Fielder {
	out := make([]clog.Fielder, 0, 1+len(keyvals)/2)
	out = append(out, clog.KV{K: "msg", V: msg})
	for i := 0; i+1 < len(keyvals); i += 2 {
		k, _ := keyvals[i].(string)
		if k == "" {
			continue
		}
		out = append(out, clog.KV{K: k, V: keyvals[i+1]})
	}
	return out
}

func (m *OTelMetrics) IncCounter(name string, value float64, tags ...string) {
	counter, err := m.meter.Float64Counter(name)
	if err != nil {
		return
	}
	counter.Add(context.Background(), value, metric.WithAttributes(tagsToAttrs(tags)...))
}

func (m *OTelMetrics) RecordTimer(name string, duration time.Duration, tags ...string) {
	hist, err := m.meter.Float64Histogram(name)
	if err != nil {
		return
	}
	hist.Record(context.Background(), duration.Seconds(), metric.WithAttributes(tagsToAttrs(tags)...))
}

func (m *OTelMetrics) RecordGauge(name string, value float64, tags ...string) {
	// OTel has no synchronous gauge instrument; approximate with a histogram
	// suffixed "_gauge" so dashboards can still chart point-in-time values.
	hist, err := m.meter.Float64Histogram(name + "_gauge")
	if err != nil {
		return
	}
	hist.Record(context.Background(), value, metric.WithAttributes(tagsToAttrs(tags)...))
}

func tagsToAttrs(tags []string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(tags)/2)
	for i := 0; i+1 < len(tags); i += 2 {
		attrs = append(attrs, attribute.String(tags[i], tags[i+1]))
	}
	return attrs
}

func (t *OTelTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span) {
	newCtx, span := t.tracer.Start(ctx, name, opts...)
	return newCtx, &otelSpan{span: span}
}

func (t *OTelTracer) Span(ctx context.Context) Span {
	return &otelSpan{span: trace.SpanFromContext(ctx)}
}

func (s *otelSpan) End(opts ...trace.SpanEndOption) { s.span.End(opts...) }

func (s *otelSpan) SetStatus(code codes.Code, description string) {
	s.span.SetStatus(code, description)
}

func (s *otelSpan) SetAttributes(kv ...any) {
	attrs := make([]attribute.KeyValue, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		k, _ := kv[i].(string)
		if k == "" {
			continue
		}
		switch v := kv[i+1].(type) {
		case string:
			attrs = append(attrs, attribute.String(k, v))
		case int:
			attrs = append(attrs, attribute.Int(k, v))
		case int64:
			attrs = append(attrs, attribute.Int64(k, v))
		case float64:
			attrs = append(attrs, attribute.Float64(k, v))
		case bool:
			attrs = append(attrs, attribute.Bool(k, v))
		default:
			attrs = append(attrs, attribute.String(k, fmt.Sprintf("%v", v)))
		}
	}
	s.span.SetAttributes(attrs...)
}

func (s *otelSpan) RecordError(err error) {
	if err == nil {
		return
	}
	s.span.RecordError(err)
}

package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/flowgate/flowgate/internal/eventlog"
)

const logScopeName = "github.com/flowgate/flowgate/eventlog"

// InstrumentedLog wraps an eventlog.Log with OTel tracing and metrics.
// Every append and read gets a span and is counted in flowgate.log.*
// series. Use WrapLog to create one; it returns the log unchanged when
// telemetry is disabled.
type InstrumentedLog struct {
	inner  eventlog.Log
	tracer trace.Tracer
	ops    metric.Int64Counter
	dur    metric.Float64Histogram
	drops  metric.Int64Counter
	events metric.Int64Counter
}

// WrapLog returns l decorated with OTel instrumentation.
// When telemetry is disabled, l is returned as-is with zero overhead.
func WrapLog(l eventlog.Log) eventlog.Log {
	if !Enabled() {
		return l
	}
	m := Meter(logScopeName)
	ops, _ := m.Int64Counter("flowgate.log.operations",
		metric.WithDescription("Total event log operations executed"),
	)
	dur, _ := m.Float64Histogram("flowgate.log.operation.duration",
		metric.WithDescription("Event log operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	drops, _ := m.Int64Counter("flowgate.log.append.drops",
		metric.WithDescription("Appends dropped because the log was unavailable"),
	)
	events, _ := m.Int64Counter("flowgate.log.events.read",
		metric.WithDescription("Events returned by log reads"),
	)
	return &InstrumentedLog{
		inner:  l,
		tracer: Tracer(logScopeName),
		ops:    ops,
		dur:    dur,
		drops:  drops,
		events: events,
	}
}

// op starts a span and counts the named log operation. Hook processes
// are single-shot, so spans root at Background rather than a caller ctx.
func (l *InstrumentedLog) op(name, kind string) (context.Context, trace.Span, time.Time, []attribute.KeyValue) {
	attrs := []attribute.KeyValue{
		attribute.String("log.operation", name),
		attribute.String("log.kind", kind),
	}
	ctx, span := l.tracer.Start(context.Background(), "eventlog."+name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	l.ops.Add(ctx, 1, metric.WithAttributes(attrs...))
	return ctx, span, time.Now(), attrs
}

// done ends the span and records the operation duration.
func (l *InstrumentedLog) done(ctx context.Context, span trace.Span, start time.Time, attrs []attribute.KeyValue) {
	ms := float64(time.Since(start).Microseconds()) / 1000.0
	l.dur.Record(ctx, ms, metric.WithAttributes(attrs...))
	span.End()
}

func (l *InstrumentedLog) AppendFlow(sessionID string, ev eventlog.FlowEvent) bool {
	ctx, span, t, attrs := l.op("AppendFlow", "flow")
	ok := l.inner.AppendFlow(sessionID, ev)
	if !ok {
		l.drops.Add(ctx, 1, metric.WithAttributes(attrs...))
		span.SetStatus(codes.Error, "append dropped")
	}
	l.done(ctx, span, t, attrs)
	return ok
}

func (l *InstrumentedLog) ReadFlow(sessionID string) []eventlog.FlowEvent {
	ctx, span, t, attrs := l.op("ReadFlow", "flow")
	evs := l.inner.ReadFlow(sessionID)
	l.events.Add(ctx, int64(len(evs)), metric.WithAttributes(attrs...))
	l.done(ctx, span, t, attrs)
	return evs
}

func (l *InstrumentedLog) AppendHook(sessionID string, ev eventlog.HookEvent) bool {
	ctx, span, t, attrs := l.op("AppendHook", "hook")
	ok := l.inner.AppendHook(sessionID, ev)
	if !ok {
		l.drops.Add(ctx, 1, metric.WithAttributes(attrs...))
		span.SetStatus(codes.Error, "append dropped")
	}
	l.done(ctx, span, t, attrs)
	return ok
}

func (l *InstrumentedLog) ReadHook(sessionID string) []eventlog.HookEvent {
	ctx, span, t, attrs := l.op("ReadHook", "hook")
	evs := l.inner.ReadHook(sessionID)
	l.events.Add(ctx, int64(len(evs)), metric.WithAttributes(attrs...))
	l.done(ctx, span, t, attrs)
	return evs
}

package eventtree

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// metrics records registry activity with OpenTelemetry counters. A nil
// *metrics records nothing.
type metrics struct {
	invocations metric.Int64Counter
	calls       metric.Int64Counter
	pauses      metric.Int64Counter
	resumes     metric.Int64Counter
	finishes    metric.Int64Counter
	listeners   metric.Int64Counter
}

func newMetrics(name string, enabled bool) *metrics {
	if !enabled {
		return nil
	}
	meter := otel.Meter(name)
	m := &metrics{}
	m.invocations, _ = meter.Int64Counter("eventtree.invocations",
		metric.WithDescription("Number of invocations started"),
		metric.WithUnit("{invocation}"))
	m.calls, _ = meter.Int64Counter("eventtree.listener.calls",
		metric.WithDescription("Number of listener callbacks run"),
		metric.WithUnit("{call}"))
	m.pauses, _ = meter.Int64Counter("eventtree.invocation.pauses",
		metric.WithDescription("Number of times an invocation was paused"))
	m.resumes, _ = meter.Int64Counter("eventtree.invocation.resumes",
		metric.WithDescription("Number of times an invocation was resumed"))
	m.finishes, _ = meter.Int64Counter("eventtree.invocation.finished",
		metric.WithDescription("Number of invocations that stopped or completed"),
		metric.WithUnit("{invocation}"))
	m.listeners, _ = meter.Int64Counter("eventtree.listeners.attached",
		metric.WithDescription("Number of listeners attached"),
		metric.WithUnit("{listener}"))
	return m
}

func add(ctx context.Context, c metric.Int64Counter, attrs ...attribute.KeyValue) {
	if c == nil {
		return
	}
	c.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *metrics) invoked(ctx context.Context, event string) {
	if m != nil {
		add(ctx, m.invocations, attribute.String("event", event))
	}
}

func (m *metrics) called(ctx context.Context, event string) {
	if m != nil {
		add(ctx, m.calls, attribute.String("event", event))
	}
}

func (m *metrics) paused(ctx context.Context, event string) {
	if m != nil {
		add(ctx, m.pauses, attribute.String("event", event))
	}
}

func (m *metrics) resumed(ctx context.Context, event string) {
	if m != nil {
		add(ctx, m.resumes, attribute.String("event", event))
	}
}

func (m *metrics) finished(ctx context.Context, event string, state State) {
	if m != nil {
		add(ctx, m.finishes, attribute.String("event", event), attribute.String("state", state.String()))
	}
}

func (m *metrics) attached(ctx context.Context, event string) {
	if m != nil {
		add(ctx, m.listeners, attribute.String("event", event))
	}
}

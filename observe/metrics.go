package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// Metrics counts tool calls. Implementations are safe for concurrent use.
type Metrics interface {
	RecordExecution(ctx context.Context, meta ToolMeta, duration time.Duration, err error)
}

// Instrument names.
const (
	MetricToolCalls    = "mcp.tool.calls"
	MetricToolErrors   = "mcp.tool.errors"
	MetricToolDuration = "mcp.tool.duration"
)

type toolMetrics struct {
	calls    metric.Int64Counter
	errors   metric.Int64Counter
	duration metric.Float64Histogram
}

func newMetrics(meter metric.Meter) (*toolMetrics, error) {
	calls, err := meter.Int64Counter(MetricToolCalls,
		metric.WithDescription("Tool calls handled"),
		metric.WithUnit("{call}"))
	if err != nil {
		return nil, err
	}
	errs, err := meter.Int64Counter(MetricToolErrors,
		metric.WithDescription("Tool calls that failed or were denied, by error.type"),
		metric.WithUnit("{call}"))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram(MetricToolDuration,
		metric.WithDescription("Tool call latency"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(5, 25, 100, 250, 1000, 5000, 30000, 60000))
	if err != nil {
		return nil, err
	}
	return &toolMetrics{calls: calls, errors: errs, duration: duration}, nil
}

func (m *toolMetrics) RecordExecution(ctx context.Context, meta ToolMeta, duration time.Duration, err error) {
	attrs := meta.attributes()
	m.calls.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.duration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		m.errors.Add(ctx, 1, metric.WithAttributes(append(attrs, AttrErrorType.String(errorType(err)))...))
	}
}

type noopMetrics struct{}

func (noopMetrics) RecordExecution(context.Context, ToolMeta, time.Duration, error) {}

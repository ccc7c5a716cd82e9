package observe

import (
	"context"
	"testing"
	"time"
)

func TestLoggerContract_WithTool(t *testing.T) {
	logger := NopLogger()
	if logger.WithTool(ToolMeta{Name: "noop"}) == nil {
		t.Fatalf("WithTool should return non-nil logger")
	}
}

func TestMetricsContract_NoPanic(t *testing.T) {
	metrics := &noopMetrics{}
	metrics.RecordExecution(context.Background(), ToolMeta{Name: "noop"}, 10*time.Millisecond, nil)
}

func TestTracerContract_NoPanic(t *testing.T) {
	tracer := newNoopTracer()
	_, span := tracer.StartSpan(context.Background(), ToolMeta{Name: "noop"})
	tracer.EndSpan(span, nil)
}

func TestNopMiddleware_PassesThrough(t *testing.T) {
	wrapped := NopMiddleware().Wrap(func(ctx context.Context, tool ToolMeta, input any) (any, error) {
		return input, nil
	})
	got, err := wrapped(context.Background(), ToolMeta{Name: "noop"}, "x")
	if err != nil || got != "x" {
		t.Errorf("wrapped() = (%v, %v), want (x, nil)", got, err)
	}
}

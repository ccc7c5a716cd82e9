package observe

import (
	"context"
	"errors"
	"time"
)

// ExecuteFunc is a tool body as seen by Middleware.
type ExecuteFunc func(ctx context.Context, tool ToolMeta, input any) (any, error)

// CodedError is an expected failure reported to the caller in-band, such
// as a permission denial or a knowledge-base error.
type CodedError interface {
	error
	ErrorCode() string
}

// ErrorCode returns the code of the first CodedError in err's chain, or "".
func ErrorCode(err error) string {
	var coded CodedError
	if errors.As(err, &coded) {
		return coded.ErrorCode()
	}
	return ""
}

// Middleware gives every tool call a span, a metrics sample and one log
// line. It never alters the result or the error of the call.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger}
}

// NopMiddleware records nothing.
func NopMiddleware() *Middleware {
	return NewMiddleware(newNoopTracer(), noopMetrics{}, NopLogger())
}

// MiddlewareFromObserver wires a Middleware to obs's tracer, meter and
// logger.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(newTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

func (m *Middleware) Wrap(fn ExecuteFunc) ExecuteFunc {
	return func(ctx context.Context, tool ToolMeta, input any) (any, error) {
		ctx, span := m.tracer.StartSpan(ctx, tool)
		start := time.Now()
		result, err := fn(ctx, tool, input)
		elapsed := time.Since(start)

		m.tracer.EndSpan(span, err)
		m.metrics.RecordExecution(ctx, tool, elapsed, err)
		m.logOutcome(ctx, tool, elapsed, err)
		return result, err
	}
}

// logOutcome logs success at debug, coded failures at warn and anything
// else at error.
func (m *Middleware) logOutcome(ctx context.Context, tool ToolMeta, elapsed time.Duration, err error) {
	log := m.logger.WithTool(tool)
	fields := []Field{{Key: "duration_ms", Value: float64(elapsed.Milliseconds())}}
	if err == nil {
		log.Debug(ctx, "tool call completed", fields...)
		return
	}
	fields = append(fields, Field{Key: "error", Value: err.Error()})
	if code := ErrorCode(err); code != "" {
		log.Warn(ctx, "tool call rejected", append(fields, Field{Key: "code", Value: code})...)
		return
	}
	log.Error(ctx, "tool call failed", fields...)
}

package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Attribute keys shared by spans and metric data points.
const (
	AttrToolName     = attribute.Key("mcp.tool.name")
	AttrToolGroup    = attribute.Key("mcp.tool.group")
	AttrToolReadOnly = attribute.Key("mcp.tool.read_only")
	AttrErrorType    = attribute.Key("error.type")
)

// internalErrorType labels failures that carry no code.
const internalErrorType = "INTERNAL"

// ToolMeta identifies a registered tool.
type ToolMeta struct {
	Namespace string // group, e.g. "fs" or "admin"
	Name      string // registered name, e.g. "fs_ls"
	ReadOnly  bool
}

// SpanName follows the MCP convention "<method> <target>".
func (m ToolMeta) SpanName() string {
	return "tools/call " + m.Name
}

func (m ToolMeta) attributes() []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	attrs = append(attrs, AttrToolName.String(m.Name))
	if m.Namespace != "" {
		attrs = append(attrs, AttrToolGroup.String(m.Namespace))
	}
	return attrs
}

// errorType is the code of an expected failure, or INTERNAL.
func errorType(err error) string {
	if code := ErrorCode(err); code != "" {
		return code
	}
	return internalErrorType
}

// Tracer opens one server span per tool call.
type Tracer interface {
	StartSpan(ctx context.Context, meta ToolMeta) (context.Context, trace.Span)
	EndSpan(span trace.Span, err error)
}

type otelTracer struct {
	tracer trace.Tracer
}

func newTracer(t trace.Tracer) Tracer {
	return otelTracer{tracer: t}
}

func (t otelTracer) StartSpan(ctx context.Context, meta ToolMeta) (context.Context, trace.Span) {
	attrs := append(meta.attributes(), AttrToolReadOnly.Bool(meta.ReadOnly))
	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attrs...),
	)
}

// EndSpan marks the span failed when err is set. Only failures without a
// code get an exception event; denials and knowledge-base errors are
// ordinary outcomes.
func (t otelTracer) EndSpan(span trace.Span, err error) {
	defer span.End()
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	typ := errorType(err)
	span.SetAttributes(AttrErrorType.String(typ))
	span.SetStatus(codes.Error, err.Error())
	if typ == internalErrorType {
		span.RecordError(err)
	}
}

type noopTracer struct {
	tracer trace.Tracer
}

func newNoopTracer() Tracer {
	return noopTracer{tracer: tracenoop.NewTracerProvider().Tracer("")}
}

func (t noopTracer) StartSpan(ctx context.Context, meta ToolMeta) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, meta.SpanName())
}

func (noopTracer) EndSpan(span trace.Span, _ error) { span.End() }

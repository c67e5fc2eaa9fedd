package document

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const tracerName = "quire.document"

type tracer struct {
	tracer  trace.Tracer
	enabled bool
}

func newTracer(enabled bool) tracer {
	return tracer{tracer: otel.Tracer(tracerName), enabled: enabled}
}

func (t tracer) startSave(ctx context.Context, c *Controller, v uint64, auto bool, reason string) (context.Context, trace.Span) {
	if !t.enabled {
		return ctx, noop.Span{}
	}
	return t.tracer.Start(ctx, "document.save",
		trace.WithAttributes(
			attribute.String("document.id", c.id),
			attribute.String("document.resource", c.opts.Resource),
			attribute.Int64("document.version", int64(v)),
			attribute.Bool("document.auto", auto),
			attribute.String("document.reason", reason),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t tracer) startLoad(ctx context.Context, c *Controller, force bool) (context.Context, trace.Span) {
	if !t.enabled {
		return ctx, noop.Span{}
	}
	return t.tracer.Start(ctx, "document.load",
		trace.WithAttributes(
			attribute.String("document.id", c.id),
			attribute.String("document.resource", c.opts.Resource),
			attribute.Bool("document.force", force),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func endSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	defer span.End()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}

package engine

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/roach88/discrete/internal/engine"

func defaultTracer() oteltrace.Tracer {
	return otel.Tracer(tracerName)
}

// startSpan opens the span covering one enumeration.
func (it *Iterator) startSpan() {
	it.ctx, it.span = it.e.tracer.Start(it.ctx, "discrete.enumerate",
		oteltrace.WithAttributes(
			attribute.String("discrete.graph_type", string(it.graph)),
			attribute.String("discrete.order", it.e.order.String()),
			attribute.Int("discrete.max_paths", it.e.maxPaths),
		),
		oteltrace.WithSpanKind(oteltrace.SpanKindInternal),
	)
}

func (it *Iterator) spanEscape(site string, branches int) {
	it.span.AddEvent("escape", oteltrace.WithAttributes(
		attribute.String("discrete.site", site),
		attribute.Int("discrete.branches", branches),
	))
}

// endSpan closes the span; err is nil for an exhausted or closed iterator.
func (it *Iterator) endSpan(err error) {
	if it.span == nil {
		return
	}
	it.span.SetAttributes(
		attribute.Int64("discrete.paths", it.stats.Paths),
		attribute.Int64("discrete.replays", it.stats.Replays),
		attribute.Int64("discrete.escapes", it.stats.Escapes),
	)
	if err != nil {
		it.span.RecordError(err)
		it.span.SetStatus(codes.Error, err.Error())
	} else {
		it.span.SetStatus(codes.Ok, "")
	}
	it.span.End()
	it.span = nil
}

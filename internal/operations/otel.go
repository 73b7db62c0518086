package operations

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/applesandbeer/weatherisafog/internal/infrastructure"
)

// OperationTracer provides OpenTelemetry instrumentation for ingest operations
type OperationTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.Metrics
}

// NewOperationTracer creates a tracer that records spans on tracer and
// outcomes on metrics. Either may be nil: a nil tracer falls back to the
// global provider and nil metrics record nothing.
func NewOperationTracer(tracer trace.Tracer, metrics *infrastructure.Metrics) *OperationTracer {
	if tracer == nil {
		tracer = otel.Tracer(infrastructure.InstrumentationName)
	}
	return &OperationTracer{tracer: tracer, metrics: metrics}
}

// TraceOperation creates a span for a whole ingest run
func (ot *OperationTracer) TraceOperation(ctx context.Context, state *OperationState) (context.Context, trace.Span) {
	return ot.tracer.Start(ctx, fmt.Sprintf("operation.ingest.%s", state.Target.Table),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", state.ID),
			attribute.String("operation.kind", string(state.Target.Kind)),
			attribute.String("operation.table", state.Target.Table),
			attribute.String("operation.path", state.Path),
		),
	)
}

// TraceStep creates a span for an individual step
func (ot *OperationTracer) TraceStep(ctx context.Context, state *OperationState, step Step) (context.Context, trace.Span) {
	return ot.tracer.Start(ctx, fmt.Sprintf("operation.step.%s", step.ID()),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", state.ID),
			attribute.String("step.id", step.ID()),
			attribute.String("step.name", step.Name()),
		),
	)
}

// EndSpan sets the status of the span in ctx from err and ends it
func (ot *OperationTracer) EndSpan(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if err != nil {
		infrastructure.RecordError(ctx, err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// RecordCompletion records the run outcome on the operation span and in the
// loader metrics.
func (ot *OperationTracer) RecordCompletion(ctx context.Context, span trace.Span, state *OperationState, err error) {
	span.SetAttributes(
		attribute.String("operation.status", string(state.Status)),
		attribute.Int("operation.rows", state.Result.Rows),
		attribute.Float64("operation.duration_seconds", state.Duration().Seconds()),
	)
	ot.metrics.RecordOperation(ctx, state.Target.Table, state.Result.Rows, state.Duration(), err)
}

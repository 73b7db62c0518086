package operations

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/applesandbeer/weatherisafog/internal/infrastructure"
	"github.com/applesandbeer/weatherisafog/internal/store"
	"github.com/applesandbeer/weatherisafog/pkg/contracts/domain"
)

// IngestOperation loads one spreadsheet into one table
type IngestOperation struct {
	target domain.TargetTable
	path   string
	steps  []Step
	logger *slog.Logger
	tracer *OperationTracer
	state  *OperationState
}

// IngestOption configures an IngestOperation
type IngestOption func(*ingestOptions)

type ingestOptions struct {
	tracer  trace.Tracer
	metrics *infrastructure.Metrics
}

// WithTracer sets the tracer used for operation and step spans
func WithTracer(tracer trace.Tracer) IngestOption {
	return func(o *ingestOptions) {
		o.tracer = tracer
	}
}

// WithMetrics sets the instruments the run outcome is recorded on
func WithMetrics(metrics *infrastructure.Metrics) IngestOption {
	return func(o *ingestOptions) {
		o.metrics = metrics
	}
}

// NewIngestOperation builds the read, conform, normalize and write steps
// that load the workbook at path into target.
func NewIngestOperation(target domain.TargetTable, path string, writer Writer, logger *slog.Logger, opts ...IngestOption) *IngestOperation {
	var o ingestOptions
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = infrastructure.WithComponent(logger, "operations")

	return &IngestOperation{
		target: target,
		path:   path,
		steps: []Step{
			NewReadStep(logger),
			NewConformStep(),
			NewNormalizeStep(),
			NewWriteStep(writer),
		},
		logger: logger,
		tracer: NewOperationTracer(o.tracer, o.metrics),
	}
}

// Steps returns the steps in execution order
func (op *IngestOperation) Steps() []Step {
	return op.steps
}

// State returns the state of the last Run, or nil before the first one
func (op *IngestOperation) State() *OperationState {
	return op.state
}

// Run executes the steps in order and stops at the first failure. The
// returned error is an *OperationError naming the failed step and wrapping
// the underlying error.
func (op *IngestOperation) Run(ctx context.Context) (store.Result, error) {
	ctx = infrastructure.EnsureRunID(ctx)
	state := NewOperationState(infrastructure.RunIDFromContext(ctx), op.target, op.path)
	for _, step := range op.steps {
		state.Steps = append(state.Steps, NewStepState(step.ID(), step.Name()))
	}
	op.state = state

	ctx, span := op.tracer.TraceOperation(ctx, state)
	state.Start()

	op.logger.InfoContext(ctx, "operation_start",
		slog.String("operation_id", state.ID),
		slog.String("table", op.target.Table),
		slog.String("path", op.path),
		slog.Int("step_count", len(op.steps)))

	err := op.executeSequential(ctx, state)
	switch {
	case err == nil:
		state.Complete()
		op.logger.InfoContext(ctx, "operation_completed",
			slog.String("operation_id", state.ID),
			slog.String("table", op.target.Table),
			slog.Int("rows", state.Result.Rows),
			slog.Duration("duration", state.Duration()))
	case ctx.Err() != nil:
		state.Cancel(err)
		op.logger.WarnContext(ctx, "operation_cancelled",
			slog.String("operation_id", state.ID),
			slog.String("step", FailedStep(err)))
	default:
		state.Fail(err)
		op.logger.ErrorContext(ctx, "operation_failed",
			slog.String("operation_id", state.ID),
			slog.String("table", op.target.Table),
			slog.String("step", FailedStep(err)),
			slog.String("error", err.Error()))
	}

	op.tracer.RecordCompletion(ctx, span, state, err)
	op.tracer.EndSpan(ctx, err)

	if err != nil {
		return store.Result{}, err
	}
	return state.Result, nil
}

func (op *IngestOperation) executeSequential(ctx context.Context, state *OperationState) error {
	for i, step := range op.steps {
		if err := ctx.Err(); err != nil {
			state.Steps[i].Skip("operation cancelled")
			return NewCancellationError(step.ID(), err)
		}

		op.logger.InfoContext(ctx, "executing_step",
			slog.String("operation_id", state.ID),
			slog.String("step", step.ID()),
			slog.Int("step_number", i+1),
			slog.Int("total_steps", len(op.steps)))

		if err := op.executeStep(ctx, state, i, step); err != nil {
			if ctx.Err() != nil {
				return NewCancellationError(step.ID(), err)
			}
			return NewExecutionError(step.ID(), err)
		}
	}
	return nil
}

func (op *IngestOperation) executeStep(ctx context.Context, state *OperationState, i int, step Step) error {
	stepState := state.Steps[i]

	ctx, _ = op.tracer.TraceStep(ctx, state, step)
	stepState.Start()

	err := step.Execute(ctx, state)
	if err != nil {
		stepState.Fail(err)
		op.tracer.EndSpan(ctx, err)
		return err
	}

	stepState.Complete()
	op.tracer.EndSpan(ctx, nil)

	op.logger.DebugContext(ctx, "step_completed",
		slog.String("operation_id", state.ID),
		slog.String("step", step.ID()),
		slog.Duration("duration", stepState.Duration()))
	return nil
}

package operations

import (
	"context"
	"log/slog"

	"github.com/applesandbeer/weatherisafog/internal/dataprocessing"
	"github.com/applesandbeer/weatherisafog/internal/dataset"
	"github.com/applesandbeer/weatherisafog/internal/store"
	"github.com/applesandbeer/weatherisafog/internal/validation"
)

// Step IDs
const (
	StepIDRead      = "read"
	StepIDConform   = "conform"
	StepIDNormalize = "normalize"
	StepIDWrite     = "write"
)

// Writer stores a dataset in a table.
type Writer interface {
	Upsert(ctx context.Context, ds *dataset.Dataset, table string) (store.Result, error)
}

// ReadStep loads the first sheet of the workbook at state.Path
type ReadStep struct {
	BaseStep
	validator *validation.FileValidator
	logger    *slog.Logger
}

// NewReadStep creates a new read step
func NewReadStep(logger *slog.Logger) *ReadStep {
	return &ReadStep{
		BaseStep:  NewBaseStep(StepIDRead, "Read workbook"),
		validator: validation.NewFileValidator(logger),
		logger:    logger,
	}
}

// Execute validates the workbook path and reads the workbook into
// state.Dataset
func (s *ReadStep) Execute(ctx context.Context, state *OperationState) error {
	if err := s.validator.ValidateWorkbook(state.Path); err != nil {
		return err
	}
	ds, err := dataprocessing.ReadWorkbook(state.Path, s.logger)
	if err != nil {
		return err
	}
	state.Dataset = ds
	return nil
}

// ConformStep checks the dataset columns against the target schema and
// coerces the numeric columns.
type ConformStep struct {
	BaseStep
}

// NewConformStep creates a new conform step
func NewConformStep() *ConformStep {
	return &ConformStep{BaseStep: NewBaseStep(StepIDConform, "Conform to schema")}
}

// Execute conforms state.Dataset to state.Target.Schema
func (s *ConformStep) Execute(ctx context.Context, state *OperationState) error {
	return dataprocessing.Conform(state.Dataset, state.Target.Schema)
}

// NormalizeStep converts every date column to calendar dates
type NormalizeStep struct {
	BaseStep
}

// NewNormalizeStep creates a new normalize step
func NewNormalizeStep() *NormalizeStep {
	return &NormalizeStep{BaseStep: NewBaseStep(StepIDNormalize, "Normalize dates")}
}

// Execute normalizes the date columns of state.Dataset
func (s *NormalizeStep) Execute(ctx context.Context, state *OperationState) error {
	for _, col := range state.Target.Schema.Columns {
		if col.Type != dataset.TypeDate {
			continue
		}
		if err := dataprocessing.NormalizeDates(state.Dataset, col.Name); err != nil {
			return err
		}
	}
	return nil
}

// WriteStep upserts the dataset into the target table
type WriteStep struct {
	BaseStep
	writer Writer
}

// NewWriteStep creates a new write step backed by writer
func NewWriteStep(writer Writer) *WriteStep {
	return &WriteStep{
		BaseStep: NewBaseStep(StepIDWrite, "Upsert rows"),
		writer:   writer,
	}
}

// Execute writes state.Dataset and stores the result in state.Result
func (s *WriteStep) Execute(ctx context.Context, state *OperationState) error {
	result, err := s.writer.Upsert(ctx, state.Dataset, state.Target.Table)
	if err != nil {
		return err
	}
	state.Result = result
	return nil
}

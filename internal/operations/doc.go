// Package operations runs the spreadsheet-to-table load as a fixed
// sequence of steps.
//
// An IngestOperation owns four steps, executed in order against a shared
// OperationState:
//
//   - read: load the first sheet of the workbook into a dataset
//   - conform: check the columns against the target schema and coerce numbers
//   - normalize: convert every date column to calendar dates
//   - write: upsert the rows into the target table in one transaction
//
// Execution stops at the first failing step. The error returned by Run is an
// *OperationError that names the step; the underlying *errors.AppError is
// still reachable with errors.As, so callers classify failures by type.
//
// Each run gets a run id (reused from the context when present), a span per
// operation and per step, structured log lines and, when configured, a
// duration and row count in the loader metrics.
//
// Example usage:
//
//	writer := store.NewUpsertWriter(cfg.Database, store.WithLogger(logger))
//	op := operations.NewIngestOperation(domain.StockTarget, cfg.StockFile, writer, logger,
//		operations.WithTracer(telemetry.Tracer),
//		operations.WithMetrics(telemetry.Metrics))
//	result, err := op.Run(ctx)
package operations

package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/applesandbeer/weatherisafog/internal/config"
	"github.com/applesandbeer/weatherisafog/internal/dataset"
	apperrors "github.com/applesandbeer/weatherisafog/internal/errors"
)

// DefaultConflictColumn is the column that identifies a row in every target table.
const DefaultConflictColumn = "Date"

func init() {
	// modernc.org/sqlite registers as "sqlite", which sqlx does not know.
	sqlx.BindDriver(config.DriverSQLite, sqlx.QUESTION)
}

// Result describes one completed upsert.
type Result struct {
	Table    string
	Rows     int
	Duration time.Duration
}

// UpsertWriter writes datasets into existing tables, inserting new keys and
// overwriting the non-key columns of existing ones.
type UpsertWriter struct {
	cfg            config.DatabaseConfig
	conflictColumn string
	logger         *slog.Logger
}

// Option configures an UpsertWriter.
type Option func(*UpsertWriter)

// WithLogger sets the writer's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *UpsertWriter) {
		w.logger = logger
	}
}

// NewUpsertWriter returns a writer for the database described by cfg.
func NewUpsertWriter(cfg config.DatabaseConfig, opts ...Option) *UpsertWriter {
	w := &UpsertWriter{
		cfg:            cfg,
		conflictColumn: DefaultConflictColumn,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Upsert writes every row of ds into table inside a single transaction.
//
// It opens its own connection and closes it before returning. The table must
// exist with exactly the dataset's columns and a unique constraint on the
// conflict column. On any failure nothing is committed.
func (w *UpsertWriter) Upsert(ctx context.Context, ds *dataset.Dataset, table string) (Result, error) {
	start := time.Now()
	logger := w.logger.With(slog.String("table", table))

	columns := ds.Columns()
	if !ds.HasColumn(w.conflictColumn) {
		return Result{}, apperrors.NewSchemaMismatchError(
			fmt.Sprintf("dataset has no %q column to resolve conflicts on", w.conflictColumn)).
			WithContext("table", table)
	}
	query, err := BuildUpsert(table, columns, w.conflictColumn)
	if err != nil {
		return Result{}, apperrors.NewSchemaMismatchError(err.Error()).WithContext("table", table)
	}

	db, err := w.connect(ctx)
	if err != nil {
		return Result{}, err
	}
	defer db.Close()

	if err := checkTableColumns(ctx, db, table, columns); err != nil {
		return Result{}, err
	}

	query = db.Rebind(query)
	logger.DebugContext(ctx, "Prepared upsert", slog.String("query", query))

	rows, err := writeRows(ctx, db, query, ds, table)
	if err != nil {
		logger.ErrorContext(ctx, "Upsert rolled back", slog.String("error", err.Error()))
		return Result{}, err
	}

	result := Result{Table: table, Rows: rows, Duration: time.Since(start)}
	logger.InfoContext(ctx, "Upsert committed",
		slog.Int("rows", result.Rows),
		slog.Duration("duration", result.Duration))
	return result, nil
}

func (w *UpsertWriter) connect(ctx context.Context) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, w.cfg.Driver, w.cfg.DataSourceName())
	if err != nil {
		return nil, apperrors.NewDBConnectionError("failed to connect to database", err).
			WithContext("driver", w.cfg.Driver).
			WithContext("database", w.cfg.Name)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// checkTableColumns requires the table's columns to be exactly columns,
// in any order.
func checkTableColumns(ctx context.Context, db *sqlx.DB, table string, columns []string) error {
	rows, err := db.QueryxContext(ctx, selectColumnsQuery(table))
	if err != nil {
		return apperrors.NewDatabaseError(fmt.Sprintf("failed to inspect table %s", table), err).
			WithContext("table", table)
	}
	defer rows.Close()

	tableColumns, err := rows.Columns()
	if err != nil {
		return apperrors.NewDatabaseError(fmt.Sprintf("failed to read columns of %s", table), err).
			WithContext("table", table)
	}

	missing, unexpected := dataset.DiffColumns(tableColumns, columns)
	if len(missing) > 0 || len(unexpected) > 0 {
		return apperrors.NewSchemaMismatchError(
			fmt.Sprintf("dataset columns do not match table %s: table columns not in dataset %v, dataset columns not in table %v",
				table, missing, unexpected)).
			WithContext("table", table).
			WithContext("missing", missing).
			WithContext("unexpected", unexpected)
	}
	return nil
}

func writeRows(ctx context.Context, db *sqlx.DB, query string, ds *dataset.Dataset, table string) (n int, err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, apperrors.NewDatabaseError("failed to begin transaction", err).WithContext("table", table)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return 0, classifyError(fmt.Sprintf("failed to prepare upsert into %s", table), err).
			WithContext("table", table)
	}
	defer stmt.Close()

	for i := 0; i < ds.NumRows(); i++ {
		if _, err = stmt.ExecContext(ctx, ds.Row(i)...); err != nil {
			// i+2: sheet row, counting the header.
			return 0, classifyError(fmt.Sprintf("failed to upsert row %d into %s", i+2, table), err).
				WithContext("table", table).
				WithContext("row", i+2)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, classifyError(fmt.Sprintf("failed to commit upsert into %s", table), err).
			WithContext("table", table)
	}
	return ds.NumRows(), nil
}

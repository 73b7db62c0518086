package operations

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/applesandbeer/weatherisafog/internal/config"
	"github.com/applesandbeer/weatherisafog/internal/dataset"
	apperrors "github.com/applesandbeer/weatherisafog/internal/errors"
	"github.com/applesandbeer/weatherisafog/internal/infrastructure"
	"github.com/applesandbeer/weatherisafog/internal/shared/testutil"
	"github.com/applesandbeer/weatherisafog/internal/store"
	"github.com/applesandbeer/weatherisafog/pkg/contracts/domain"
)

const tablesDDL = `
CREATE TABLE stock_prices (
	"Date"   DATE PRIMARY KEY,
	"Open"   REAL,
	"High"   REAL,
	"Low"    REAL,
	"Close"  REAL,
	"Volume" INTEGER
);
CREATE TABLE weather_data (
	"Date"          DATE PRIMARY KEY,
	"Temperature"   REAL,
	"Humidity"      REAL,
	"Precipitation" REAL
);
`

func jan(d int) time.Time {
	return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC)
}

// recordingWriter records calls instead of touching a database.
type recordingWriter struct {
	calls int
	err   error
	last  *dataset.Dataset
}

func (w *recordingWriter) Upsert(ctx context.Context, ds *dataset.Dataset, table string) (store.Result, error) {
	w.calls++
	w.last = ds
	if w.err != nil {
		return store.Result{}, w.err
	}
	return store.Result{Table: table, Rows: ds.NumRows()}, nil
}

type IngestOperationSuite struct {
	suite.Suite
	db     *sqlx.DB
	writer *store.UpsertWriter
	spans  *tracetest.SpanRecorder
	tp     *sdktrace.TracerProvider
	reader *sdkmetric.ManualReader
	mp     *sdkmetric.MeterProvider
	logger *slog.Logger
	logs   *testutil.BufferedSlogHandler
	opts   []IngestOption
}

func TestIngestOperationSuite(t *testing.T) {
	suite.Run(t, new(IngestOperationSuite))
}

func (s *IngestOperationSuite) SetupTest() {
	cfg := config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Name:   filepath.Join(s.T().TempDir(), "weatherisafog.db"),
	}
	db, err := sqlx.Connect(config.DriverSQLite, cfg.Name)
	s.Require().NoError(err)
	_, err = db.Exec(tablesDDL)
	s.Require().NoError(err)
	s.db = db

	s.spans = tracetest.NewSpanRecorder()
	s.tp = sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(s.spans))
	s.reader = sdkmetric.NewManualReader()
	s.mp = sdkmetric.NewMeterProvider(sdkmetric.WithReader(s.reader))

	metrics, err := infrastructure.NewMetrics(s.mp.Meter("test"))
	s.Require().NoError(err)

	s.logger, s.logs = testutil.NewTestLogger(s.T())
	s.writer = store.NewUpsertWriter(cfg, store.WithLogger(s.logger))
	s.opts = []IngestOption{WithTracer(s.tp.Tracer("test")), WithMetrics(metrics)}
}

func (s *IngestOperationSuite) TearDownTest() {
	ctx := context.Background()
	s.NoError(s.tp.Shutdown(ctx))
	s.NoError(s.mp.Shutdown(ctx))
	s.NoError(s.db.Close())
}

func (s *IngestOperationSuite) stockWorkbook() string {
	return testutil.WriteWorkbook(s.T(), "stock.xlsx", [][]any{
		{"Date", "Open", "High", "Low", "Close", "Volume"},
		{jan(1), 100.0, 105.0, 99.0, 102.0, 1000},
		{jan(2), 101.0, 106.0, 100.0, 103.5, 1100},
	})
}

func (s *IngestOperationSuite) newOperation(target domain.TargetTable, path string, writer Writer) *IngestOperation {
	return NewIngestOperation(target, path, writer, s.logger, s.opts...)
}

func (s *IngestOperationSuite) spanNames() []string {
	var names []string
	for _, span := range s.spans.Ended() {
		names = append(names, span.Name())
	}
	return names
}

func (s *IngestOperationSuite) collect() metricdata.ResourceMetrics {
	var rm metricdata.ResourceMetrics
	s.Require().NoError(s.reader.Collect(context.Background(), &rm))
	return rm
}

func (s *IngestOperationSuite) TestStockWorkbook() {
	op := s.newOperation(domain.StockTarget, s.stockWorkbook(), s.writer)

	result, err := op.Run(context.Background())
	s.Require().NoError(err)
	s.Equal("stock_prices", result.Table)
	s.Equal(2, result.Rows)

	var rows []struct {
		Date   dataset.Date `db:"Date"`
		Close  float64      `db:"Close"`
		Volume int64        `db:"Volume"`
	}
	s.Require().NoError(s.db.Select(&rows, `SELECT "Date", "Close", "Volume" FROM stock_prices ORDER BY "Date"`))
	s.Require().Len(rows, 2)
	s.Equal(dataset.NewDate(2024, time.January, 1), rows[0].Date)
	s.Equal(103.5, rows[1].Close)
	s.Equal(int64(1100), rows[1].Volume)

	state := op.State()
	s.Require().NotNil(state)
	s.Equal(OperationStatusCompleted, state.Status)
	s.NotEmpty(state.ID)
	for _, step := range state.Steps {
		s.Equal(StepStatusCompleted, step.GetStatus(), step.ID)
	}

	s.Equal([]string{
		"operation.step.read",
		"operation.step.conform",
		"operation.step.normalize",
		"operation.step.write",
		"operation.ingest.stock_prices",
	}, s.spanNames())

	s.True(s.logs.ContainsMessage("operation_completed"))
	s.True(s.logs.ContainsAttr("table", "stock_prices"))
	s.True(s.logs.ContainsMessage("Workbook loaded"))
}

func (s *IngestOperationSuite) TestWeatherWorkbook() {
	path := testutil.WriteWorkbook(s.T(), "weather.xlsx", [][]any{
		{"Date", "Temperature", "Humidity", "Precipitation"},
		{"2024-01-01", 12.5, 80.0, 0.0},
		{"2024-01-02", 11.0, 85.0, 2.5},
	})

	result, err := s.newOperation(domain.WeatherTarget, path, s.writer).Run(context.Background())
	s.Require().NoError(err)
	s.Equal("weather_data", result.Table)
	s.Equal(2, result.Rows)

	var n int
	s.Require().NoError(s.db.Get(&n, `SELECT COUNT(*) FROM weather_data`))
	s.Equal(2, n)
}

func (s *IngestOperationSuite) TestRerunIsIdempotent() {
	path := s.stockWorkbook()
	for i := 0; i < 2; i++ {
		_, err := s.newOperation(domain.StockTarget, path, s.writer).Run(context.Background())
		s.Require().NoError(err)
	}

	var n int
	s.Require().NoError(s.db.Get(&n, `SELECT COUNT(*) FROM stock_prices`))
	s.Equal(2, n)
}

func (s *IngestOperationSuite) TestMissingWorkbook() {
	writer := &recordingWriter{}
	op := s.newOperation(domain.StockTarget, filepath.Join(s.T().TempDir(), "missing.xlsx"), writer)

	_, err := op.Run(context.Background())
	s.Require().Error(err)
	s.Equal(StepIDRead, FailedStep(err))
	s.True(apperrors.IsType(err, apperrors.ErrTypeFileNotFound))
	s.Zero(writer.calls)

	state := op.State()
	s.Equal(OperationStatusFailed, state.Status)
	s.Equal(StepStatusFailed, state.GetStep(StepIDRead).GetStatus())
	s.Equal(StepStatusPending, state.GetStep(StepIDWrite).GetStatus())
}

func (s *IngestOperationSuite) TestSchemaMismatchStopsBeforeWrite() {
	writer := &recordingWriter{}
	path := testutil.WriteWorkbook(s.T(), "stock.xlsx", [][]any{
		{"Date", "Open", "High", "Low", "Close"},
		{jan(1), 100.0, 105.0, 99.0, 102.0},
	})

	_, err := s.newOperation(domain.StockTarget, path, writer).Run(context.Background())
	s.Require().Error(err)
	s.Equal(StepIDConform, FailedStep(err))
	s.True(apperrors.IsType(err, apperrors.ErrTypeSchemaMismatch))
	s.Zero(writer.calls)
}

func (s *IngestOperationSuite) TestBadDateStopsBeforeWrite() {
	for _, bad := range []string{"yesterday", "NaN", "1_000", "0x1p10"} {
		s.Run(bad, func() {
			path := testutil.WriteWorkbook(s.T(), "weather.xlsx", [][]any{
				{"Date", "Temperature", "Humidity", "Precipitation"},
				{"2024-01-01", 12.5, 80.0, 0.0},
				{bad, 11.0, 85.0, 2.5},
			})

			_, err := s.newOperation(domain.WeatherTarget, path, s.writer).Run(context.Background())
			s.Require().Error(err)
			s.Equal(StepIDNormalize, FailedStep(err))

			var appErr *apperrors.AppError
			s.Require().True(errors.As(err, &appErr))
			s.Equal(apperrors.ErrTypeDataFormat, appErr.Type)
			s.Equal(3, appErr.Context["row"])

			var n int
			s.Require().NoError(s.db.Get(&n, `SELECT COUNT(*) FROM weather_data`))
			s.Zero(n)

			spans := s.spans.Ended()
			s.Require().NotEmpty(spans)
			s.Equal(codes.Error, spans[len(spans)-1].Status().Code)
			s.Contains(spans[len(spans)-1].Attributes(), attribute.String("error.type", "DATA_FORMAT"))
		})
	}
}

func (s *IngestOperationSuite) TestWriterErrorIsWrapped() {
	writer := &recordingWriter{err: apperrors.NewDBConnectionError("connection refused", nil)}

	_, err := s.newOperation(domain.StockTarget, s.stockWorkbook(), writer).Run(context.Background())
	s.Require().Error(err)

	var opErr *OperationError
	s.Require().True(errors.As(err, &opErr))
	s.Equal(ErrorTypeExecution, opErr.Type)
	s.Equal(StepIDWrite, opErr.Step)
	s.True(apperrors.IsType(err, apperrors.ErrTypeDBConnection))
	s.Equal(1, writer.calls)
	s.True(s.logs.ContainsMessage("operation_failed"))
}

func (s *IngestOperationSuite) TestWriterSeesNormalizedDataset() {
	writer := &recordingWriter{}

	_, err := s.newOperation(domain.StockTarget, s.stockWorkbook(), writer).Run(context.Background())
	s.Require().NoError(err)
	s.Require().NotNil(writer.last)

	dates, ok := writer.last.Column("Date")
	s.Require().True(ok)
	s.Equal(dataset.NewDate(2024, time.January, 1), dates[0])

	volumes, _ := writer.last.Column("Volume")
	s.Equal(int64(1000), volumes[0])
}

func (s *IngestOperationSuite) TestCancelledContext() {
	writer := &recordingWriter{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	op := s.newOperation(domain.StockTarget, s.stockWorkbook(), writer)
	_, err := op.Run(ctx)
	s.Require().Error(err)

	var opErr *OperationError
	s.Require().True(errors.As(err, &opErr))
	s.Equal(ErrorTypeCancellation, opErr.Type)
	s.True(errors.Is(err, context.Canceled))
	s.Equal(OperationStatusCancelled, op.State().Status)
	s.Equal(StepStatusSkipped, op.State().GetStep(StepIDRead).GetStatus())
	s.Zero(writer.calls)
}

func (s *IngestOperationSuite) TestRunIDFromContext() {
	ctx := infrastructure.WithRunID(context.Background(), "run-42")

	op := s.newOperation(domain.StockTarget, s.stockWorkbook(), &recordingWriter{})
	_, err := op.Run(ctx)
	s.Require().NoError(err)
	s.Equal("run-42", op.State().ID)
	s.True(s.logs.ContainsAttr("operation_id", "run-42"))
}

func (s *IngestOperationSuite) TestMetricsRecorded() {
	_, err := s.newOperation(domain.StockTarget, s.stockWorkbook(), s.writer).Run(context.Background())
	s.Require().NoError(err)

	found := map[string]bool{}
	for _, sm := range s.collect().ScopeMetrics {
		for _, m := range sm.Metrics {
			found[m.Name] = true
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				s.Require().Len(sum.DataPoints, 1)
				s.Equal(int64(2), sum.DataPoints[0].Value)
			}
		}
	}
	s.True(found["weatherisafog_rows_upserted"])
	s.True(found["weatherisafog_operation_duration"])
}

func TestNewIngestOperation_Steps(t *testing.T) {
	op := NewIngestOperation(domain.StockTarget, "stock.xlsx", &recordingWriter{}, nil)

	var ids []string
	for _, step := range op.Steps() {
		ids = append(ids, step.ID())
		assert.NotEmpty(t, step.Name())
	}
	assert.Equal(t, []string{StepIDRead, StepIDConform, StepIDNormalize, StepIDWrite}, ids)
	assert.Nil(t, op.State())
}

func TestIngestOperation_WithoutTelemetry(t *testing.T) {
	path := testutil.WriteWorkbook(t, "weather.xlsx", [][]any{
		{"Date", "Temperature", "Humidity", "Precipitation"},
		{"2024-01-01", 12.5, 80.0, 0.0},
	})
	writer := &recordingWriter{}

	result, err := NewIngestOperation(domain.WeatherTarget, path, writer, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Rows)
	assert.Equal(t, 1, writer.calls)
}

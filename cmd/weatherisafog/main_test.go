package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/applesandbeer/weatherisafog/internal/config"
	"github.com/applesandbeer/weatherisafog/internal/shared/testutil"
	"github.com/applesandbeer/weatherisafog/pkg/contracts"
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

func setup(t *testing.T) (*config.Config, *sqlx.DB) {
	t.Helper()

	cfg := config.Default()
	cfg.Database = config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Name:   filepath.Join(t.TempDir(), "weatherisafog.db"),
	}
	cfg.Telemetry.MetricsFile = filepath.Join(t.TempDir(), "weatherisafog.prom")
	cfg.StockFile = testutil.WriteWorkbook(t, "stock_data.xlsx", [][]any{
		{"Date", "Open", "High", "Low", "Close", "Volume"},
		{jan(1), 100.0, 105.0, 99.0, 102.0, 1000},
		{jan(2), 101.0, 106.0, 100.0, 103.0, 1100},
	})
	cfg.WeatherFile = testutil.WriteWorkbook(t, "weather_data.xlsx", [][]any{
		{"Date", "Temperature", "Humidity", "Precipitation"},
		{jan(1), 12.5, 80.0, 0.0},
	})

	db, err := sqlx.Connect(config.DriverSQLite, cfg.Database.Name)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(tablesDDL)
	require.NoError(t, err)

	return cfg, db
}

func count(t *testing.T, db *sqlx.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM `+table))
	return n
}

func TestRun_Success(t *testing.T) {
	cfg, db := setup(t)
	logger, logs := testutil.NewTestLogger(t)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), cfg, logger, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	assert.Equal(t,
		"Stock data has been processed and stored.\nWeather data has been processed and stored.\n",
		stdout.String())
	assert.Empty(t, stderr.String())
	assert.Equal(t, 2, count(t, db, "stock_prices"))
	assert.Equal(t, 1, count(t, db, "weather_data"))
	testutil.AssertNoErrors(t, logs)
	assert.True(t, logs.ContainsAttr("version", contracts.GetFullVersionString()))

	metrics, err := os.ReadFile(cfg.Telemetry.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `weatherisafog_rows_upserted_total{`)
	assert.Contains(t, string(metrics), `table="weather_data"`)
}

func TestRun_WeatherFailureKeepsStockRows(t *testing.T) {
	cfg, db := setup(t)
	cfg.WeatherFile = filepath.Join(t.TempDir(), "missing.xlsx")
	logger, logs := testutil.NewTestLogger(t)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), cfg, logger, &stdout, &stderr)
	assert.Equal(t, 1, code)

	assert.Equal(t, "Stock data has been processed and stored.\n", stdout.String())
	assert.Contains(t, stderr.String(), "missing.xlsx")
	assert.Equal(t, 2, count(t, db, "stock_prices"))
	assert.Zero(t, count(t, db, "weather_data"))
	assert.True(t, logs.ContainsMessage("Load failed"))
	assert.True(t, logs.ContainsAttr("step", "read"))
}

func TestRun_NaNDateFailsWithoutWriting(t *testing.T) {
	cfg, db := setup(t)
	cfg.StockFile = testutil.WriteWorkbook(t, "stock_data.xlsx", [][]any{
		{"Date", "Open", "High", "Low", "Close", "Volume"},
		{"NaN", 100.0, 105.0, 99.0, 102.0, 1000},
	})
	logger, _ := testutil.NewTestLogger(t)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), cfg, logger, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "DATA_FORMAT")
	assert.Zero(t, count(t, db, "stock_prices"))
}

func TestRun_StockFailureStopsBeforeWeather(t *testing.T) {
	cfg, db := setup(t)
	cfg.StockFile = testutil.WriteWorkbook(t, "stock_data.xlsx", [][]any{
		{"Date", "Open", "High", "Low", "Close"},
		{jan(1), 100.0, 105.0, 99.0, 102.0},
	})
	logger, _ := testutil.NewTestLogger(t)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), cfg, logger, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "SCHEMA_MISMATCH")
	assert.Zero(t, count(t, db, "stock_prices"))
	assert.Zero(t, count(t, db, "weather_data"))
}

func TestRun_UnknownTraceExporter(t *testing.T) {
	cfg, _ := setup(t)
	cfg.Telemetry.Traces = "jaeger"
	logger, _ := testutil.NewTestLogger(t)
	var stdout, stderr bytes.Buffer

	assert.Equal(t, 1, run(context.Background(), cfg, logger, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "jaeger")
}

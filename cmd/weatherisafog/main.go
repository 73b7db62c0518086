package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/applesandbeer/weatherisafog/internal/config"
	"github.com/applesandbeer/weatherisafog/internal/infrastructure"
	"github.com/applesandbeer/weatherisafog/internal/operations"
	"github.com/applesandbeer/weatherisafog/internal/store"
	"github.com/applesandbeer/weatherisafog/pkg/contracts"
	"github.com/applesandbeer/weatherisafog/pkg/contracts/domain"
)

const shutdownTimeout = 5 * time.Second

var completionMessages = map[domain.DatasetKind]string{
	domain.DatasetKindStock:   "Stock data has been processed and stored.",
	domain.DatasetKindWeather: "Weather data has been processed and stored.",
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", slog.String("error", err.Error()))
		logger = slog.Default()
	}

	code := run(context.Background(), cfg, logger, os.Stdout, os.Stderr)
	infrastructure.CloseLogFile()
	os.Exit(code)
}

// run loads the stock workbook and then the weather workbook and returns the
// process exit code. Each table is committed on its own, so a weather
// failure keeps the stock rows already stored.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer) int {
	ctx = infrastructure.EnsureRunID(ctx)

	telemetry, err := infrastructure.InitializeTelemetry(cfg.Telemetry, contracts.Version, stdout, logger)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize telemetry", slog.String("error", err.Error()))
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer flushTelemetry(telemetry, logger)

	logger.InfoContext(ctx, "Starting load",
		slog.String("version", contracts.GetFullVersionString()),
		slog.Any("database", cfg.Database),
		slog.String("stock_file", cfg.StockFile),
		slog.String("weather_file", cfg.WeatherFile))

	writer := store.NewUpsertWriter(cfg.Database, store.WithLogger(logger))
	paths := map[domain.DatasetKind]string{
		domain.DatasetKindStock:   cfg.StockFile,
		domain.DatasetKindWeather: cfg.WeatherFile,
	}

	for _, target := range domain.Targets() {
		op := operations.NewIngestOperation(target, paths[target.Kind], writer, logger,
			operations.WithTracer(telemetry.Tracer),
			operations.WithMetrics(telemetry.Metrics))

		result, err := op.Run(ctx)
		if err != nil {
			infrastructure.WithError(logger, err).ErrorContext(ctx, "Load failed",
				slog.String("table", target.Table),
				slog.String("step", operations.FailedStep(err)))
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}

		logger.InfoContext(ctx, "Table loaded",
			slog.String("table", result.Table),
			slog.Int("rows", result.Rows),
			slog.Duration("duration", result.Duration))
		fmt.Fprintln(stdout, completionMessages[target.Kind])
	}

	return 0
}

// flushTelemetry writes the metrics textfile, then shuts the providers down.
func flushTelemetry(telemetry *infrastructure.Telemetry, logger *slog.Logger) {
	if err := telemetry.WriteMetrics(); err != nil {
		logger.Warn("Failed to write metrics", slog.String("error", err.Error()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := telemetry.Shutdown(ctx); err != nil {
		logger.Warn("Failed to shut down telemetry", slog.String("error", err.Error()))
	}
}

package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/applesandbeer/weatherisafog/internal/config"
	apperrors "github.com/applesandbeer/weatherisafog/internal/errors"
)

// InstrumentationName is the tracer and meter name used by the loader.
const InstrumentationName = "github.com/applesandbeer/weatherisafog"

// Telemetry holds the tracing and metrics providers of one process.
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider // nil when traces are disabled
	MeterProvider  *sdkmetric.MeterProvider
	Registry       *promclient.Registry
	Tracer         trace.Tracer
	Metrics        *Metrics

	metricsFile string
	logger      *slog.Logger
}

// InitializeTelemetry sets up tracing and metrics. Spans go to traceOut
// when cfg.Traces is "stdout"; metrics are collected into a private
// Prometheus registry that WriteMetrics flushes to cfg.MetricsFile.
func InitializeTelemetry(cfg config.TelemetryConfig, version string, traceOut io.Writer, logger *slog.Logger) (*Telemetry, error) {
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(version),
	)

	t := &Telemetry{
		metricsFile: cfg.MetricsFile,
		logger:      logger,
	}

	switch cfg.Traces {
	case "stdout":
		exporter, err := stdouttrace.New(
			stdouttrace.WithWriter(traceOut),
			stdouttrace.WithPrettyPrint(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		t.TracerProvider = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(t.TracerProvider)
		t.Tracer = t.TracerProvider.Tracer(InstrumentationName, trace.WithInstrumentationVersion(version))
	case "none", "":
		t.Tracer = noop.NewTracerProvider().Tracer(InstrumentationName)
	default:
		return nil, fmt.Errorf("unsupported trace exporter: %s", cfg.Traces)
	}

	t.Registry = promclient.NewRegistry()
	if err := RegisterSystemCollectors(t.Registry); err != nil {
		return nil, err
	}
	exporter, err := prometheus.New(prometheus.WithRegisterer(t.Registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	t.MeterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	t.Metrics, err = NewMetrics(t.MeterProvider.Meter(InstrumentationName, metric.WithInstrumentationVersion(version)))
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	logger.Debug("Telemetry initialized",
		slog.String("traces", cfg.Traces),
		slog.String("metrics_file", cfg.MetricsFile))

	return t, nil
}

// WriteMetrics writes the collected metrics in the Prometheus text format to
// the configured metrics file. It is a no-op when no file is configured.
func (t *Telemetry) WriteMetrics() error {
	if t.metricsFile == "" {
		return nil
	}
	if err := promclient.WriteToTextfile(t.metricsFile, t.Registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", t.metricsFile, err)
	}
	t.logger.Debug("Metrics written", slog.String("path", t.metricsFile))
	return nil
}

// Shutdown flushes pending spans and stops both providers.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error

	if t.TracerProvider != nil {
		if err := t.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if t.MeterProvider != nil {
		if err := t.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	return errors.Join(errs...)
}

// Metrics holds the loader's instruments.
type Metrics struct {
	RowsUpserted      metric.Int64Counter
	OperationDuration metric.Float64Histogram
}

// NewMetrics creates the loader's instruments on meter. The Prometheus
// exporter publishes them as weatherisafog_rows_upserted_total and
// weatherisafog_operation_duration_seconds.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	rowsUpserted, err := meter.Int64Counter(
		"weatherisafog_rows_upserted",
		metric.WithDescription("Rows written to the target table"),
	)
	if err != nil {
		return nil, err
	}

	operationDuration, err := meter.Float64Histogram(
		"weatherisafog_operation_duration",
		metric.WithDescription("Duration of one spreadsheet-to-table run"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RowsUpserted:      rowsUpserted,
		OperationDuration: operationDuration,
	}, nil
}

// RecordOperation records the outcome of one table run. A nil receiver
// records nothing.
func (m *Metrics) RecordOperation(ctx context.Context, table string, rows int, duration time.Duration, err error) {
	if m == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "failure"
	}
	attrs := []attribute.KeyValue{
		attribute.String("table", table),
		attribute.String("status", status),
	}
	if err != nil {
		attrs = append(attrs, attribute.String("error_type", errorType(err)))
	}

	m.OperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	if rows > 0 {
		m.RowsUpserted.Add(ctx, int64(rows), metric.WithAttributes(attribute.String("table", table)))
	}
}

func errorType(err error) string {
	if t := apperrors.TypeOf(err); t != "" {
		return string(t)
	}
	return "UNKNOWN"
}

// RecordError records err on the span in ctx, tags it with the error
// type and marks the span failed.
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.RecordError(err)
	span.SetAttributes(attribute.String("error.type", errorType(err)))
	span.SetStatus(codes.Error, err.Error())
}

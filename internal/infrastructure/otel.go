package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"qmjcli/internal/quality"
)

const (
	// ServiceName identifies this service in traces and metrics.
	ServiceName = "qmj-factor-pipeline"
	// ServiceVersion is reported on the OTel resource.
	ServiceVersion = "v1.0.0"
	// MeterName scopes the pipeline instruments.
	MeterName = "qmjcli"
)

// OTelProviders holds the OpenTelemetry providers for one process. The CLI
// acquires them on entry and shuts them down on exit; nothing in the core
// pipeline touches them as ambient state.
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	logger         *slog.Logger

	periodsProcessed metric.Int64Counter
	periodsSkipped   metric.Int64Counter
	degenerateGroups metric.Int64Counter
	entitiesRanked   metric.Int64Counter
	entitiesExcluded metric.Int64Counter
	runDuration      metric.Float64Histogram
}

// InitializeOTel sets up tracing (stdout exporter) and metrics (Prometheus
// exporter) for the process.
func InitializeOTel(logger *slog.Logger) (*OTelProviders, error) {
	if logger == nil {
		logger = slog.Default()
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(ServiceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("create otel resource: %w", err)
	}

	traceExporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)

	metricExporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(metricExporter),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(meterProvider)

	providers := &OTelProviders{
		TracerProvider: tracerProvider,
		MeterProvider:  meterProvider,
		Tracer:         tracerProvider.Tracer(MeterName),
		Meter:          meterProvider.Meter(MeterName),
		PrometheusHTTP: promhttp.Handler(),
		logger:         logger,
	}
	if err := providers.createInstruments(); err != nil {
		return nil, fmt.Errorf("create instruments: %w", err)
	}

	logger.Info("OpenTelemetry initialized",
		"service", ServiceName,
		"version", ServiceVersion,
	)
	return providers, nil
}

// createInstruments registers the pipeline counters and histograms.
func (p *OTelProviders) createInstruments() error {
	var err error

	if p.periodsProcessed, err = p.Meter.Int64Counter("qmj.periods.processed",
		metric.WithDescription("Periods fully computed through the factor aggregator")); err != nil {
		return err
	}
	if p.periodsSkipped, err = p.Meter.Int64Counter("qmj.periods.skipped",
		metric.WithDescription("Periods skipped for lack of rankable entities")); err != nil {
		return err
	}
	if p.degenerateGroups, err = p.Meter.Int64Counter("qmj.normalizer.degenerate_groups",
		metric.WithDescription("Zero-variance (period, metric) groups degraded to z=0")); err != nil {
		return err
	}
	if p.entitiesRanked, err = p.Meter.Int64Counter("qmj.entities.ranked",
		metric.WithDescription("Entity-periods that received a rank")); err != nil {
		return err
	}
	if p.entitiesExcluded, err = p.Meter.Int64Counter("qmj.entities.excluded",
		metric.WithDescription("Entity-periods excluded for a missing composite score")); err != nil {
		return err
	}
	if p.runDuration, err = p.Meter.Float64Histogram("qmj.run.duration_seconds",
		metric.WithDescription("Wall-clock duration of a full pipeline run")); err != nil {
		return err
	}
	return nil
}

// StartRunSpan opens the span that wraps one pipeline run.
func (p *OTelProviders) StartRunSpan(ctx context.Context, runID string) (context.Context, trace.Span) {
	return p.Tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(attribute.String("run_id", runID)))
}

// RecordRun publishes one run's statistics to the pipeline instruments.
func (p *OTelProviders) RecordRun(ctx context.Context, stats quality.RunStats, duration time.Duration) {
	p.periodsProcessed.Add(ctx, int64(stats.PeriodsProcessed))
	p.periodsSkipped.Add(ctx, int64(stats.PeriodsSkipped))
	p.degenerateGroups.Add(ctx, int64(stats.DegenerateGroups))
	p.entitiesRanked.Add(ctx, int64(stats.EntitiesRanked))
	p.entitiesExcluded.Add(ctx, int64(stats.EntitiesExcluded))
	p.runDuration.Record(ctx, duration.Seconds())
}

// Shutdown flushes and releases both providers.
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var firstErr error
	if err := p.TracerProvider.Shutdown(shutdownCtx); err != nil {
		firstErr = fmt.Errorf("shutdown tracer provider: %w", err)
	}
	if err := p.MeterProvider.Shutdown(shutdownCtx); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("shutdown meter provider: %w", err)
	}
	return firstErr
}

// ServeMetrics exposes the Prometheus handler on addr until ctx is
// cancelled. Intended for long-lived or repeated batch runs; disabled by
// default.
func (p *OTelProviders) ServeMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", p.PrometheusHTTP)

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	p.logger.Info("serving Prometheus metrics", "addr", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		p.logger.Error("metrics server failed", "error", err)
	}
}

package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/samzhu/scim/logger"
)

// InitMeter installs a global meter provider exporting over OTLP/HTTP.
func InitMeter(ctx context.Context, cfg Config) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.MetricInterval))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Debug("meter initialized", logger.Fields(
		logger.FieldEndpoint, cfg.Endpoint,
		"interval", cfg.MetricInterval.String(),
	))
	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// LifecycleMetrics records how fixtures come and go.
type LifecycleMetrics struct {
	startDuration metric.Float64Histogram
	startFailures metric.Int64Counter
	running       metric.Int64UpDownCounter
}

// NewLifecycleMetrics creates the fixture instruments on meter.
func NewLifecycleMetrics(meter metric.Meter) (*LifecycleMetrics, error) {
	startDuration, err := meter.Float64Histogram("testenv.fixture.start.duration",
		metric.WithDescription("Time from launch to ready"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating start duration histogram: %w", err)
	}

	startFailures, err := meter.Int64Counter("testenv.fixture.start.failures",
		metric.WithDescription("Fixtures that failed to start, by reason"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating start failures counter: %w", err)
	}

	running, err := meter.Int64UpDownCounter("testenv.fixture.running",
		metric.WithDescription("Fixtures currently started"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating running counter: %w", err)
	}

	return &LifecycleMetrics{
		startDuration: startDuration,
		startFailures: startFailures,
		running:       running,
	}, nil
}

// RecordStart records a successful start.
func (m *LifecycleMetrics) RecordStart(ctx context.Context, fixture string, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String("fixture", fixture))
	m.startDuration.Record(ctx, d.Seconds(), attrs)
	m.running.Add(ctx, 1, attrs)
}

// RecordFailure records a failed start.
func (m *LifecycleMetrics) RecordFailure(ctx context.Context, fixture, reason string) {
	m.startFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("fixture", fixture),
		attribute.String("reason", reason),
	))
}

// RecordStop records a fixture leaving the started state.
func (m *LifecycleMetrics) RecordStop(ctx context.Context, fixture string) {
	m.running.Add(ctx, -1, metric.WithAttributes(attribute.String("fixture", fixture)))
}

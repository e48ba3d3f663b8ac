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
	"go.opentelemetry.io/otel/sdk/resource"
)

// InitMeter creates a meter provider exporting to cfg.Endpoint and makes it global.
func InitMeter(ctx context.Context, cfg Config, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.MetricInterval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.MetricInterval))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the instruments recorded by the scheduler, runner and backends.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	nodeRuns      metric.Int64Counter
	nodeDuration  metric.Float64Histogram
	operations    metric.Int64Counter
	opDuration    metric.Float64Histogram
	errors        metric.Int64Counter
	activeTasks   metric.Int64UpDownCounter
	batchAttempts metric.Int64Counter
}

// NewMetrics creates the flowgen instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var m Metrics
	var err error

	if m.nodeRuns, err = meter.Int64Counter("flowgen.node.runs",
		metric.WithDescription("Node executions by type and outcome")); err != nil {
		return nil, fmt.Errorf("creating flowgen.node.runs: %w", err)
	}
	if m.nodeDuration, err = meter.Float64Histogram("flowgen.node.duration",
		metric.WithDescription("Node execution time"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("creating flowgen.node.duration: %w", err)
	}
	if m.operations, err = meter.Int64Counter("flowgen.operation.total",
		metric.WithDescription("Backend and internal operations")); err != nil {
		return nil, fmt.Errorf("creating flowgen.operation.total: %w", err)
	}
	if m.opDuration, err = meter.Float64Histogram("flowgen.operation.duration",
		metric.WithDescription("Operation latency"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("creating flowgen.operation.duration: %w", err)
	}
	if m.errors, err = meter.Int64Counter("flowgen.error.total",
		metric.WithDescription("Errors by type and component")); err != nil {
		return nil, fmt.Errorf("creating flowgen.error.total: %w", err)
	}
	if m.activeTasks, err = meter.Int64UpDownCounter("flowgen.tasks.active",
		metric.WithDescription("Tasks currently running")); err != nil {
		return nil, fmt.Errorf("creating flowgen.tasks.active: %w", err)
	}
	if m.batchAttempts, err = meter.Int64Counter("flowgen.batch.attempts",
		metric.WithDescription("Node attempts made by batch runs")); err != nil {
		return nil, fmt.Errorf("creating flowgen.batch.attempts: %w", err)
	}
	return &m, nil
}

// RecordNodeRun records one finished node execution.
func (m *Metrics) RecordNodeRun(ctx context.Context, nodeType, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.nodeRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrNodeType, nodeType),
		attribute.String(AttrStatus, status),
	))
	m.nodeDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String(AttrNodeType, nodeType)))
}

// RecordOperation records a named operation against a component.
func (m *Metrics) RecordOperation(ctx context.Context, component, operation, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.operations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("component", component),
		attribute.String("operation", operation),
		attribute.String(AttrStatus, status),
	))
	m.opDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("component", component),
		attribute.String("operation", operation),
	))
}

// RecordError records an error by type and component.
func (m *Metrics) RecordError(ctx context.Context, errType, component string) {
	if m == nil {
		return
	}
	m.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", errType),
		attribute.String("component", component),
	))
}

// TaskStarted increments the active task gauge.
func (m *Metrics) TaskStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.activeTasks.Add(ctx, 1)
}

// TaskFinished decrements the active task gauge.
func (m *Metrics) TaskFinished(ctx context.Context) {
	if m == nil {
		return
	}
	m.activeTasks.Add(ctx, -1)
}

// RecordBatchAttempt counts one node attempt inside a batch.
func (m *Metrics) RecordBatchAttempt(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.batchAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrStatus, status)))
}

package observability

import (
	"context"
	"errors"
	"fmt"

	"github.com/kbukum/flowgen/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/kbukum/flowgen"

// Attribute keys shared by spans and metrics.
const (
	AttrServiceName = "service.name"
	AttrNodeID      = "flowgen.node.id"
	AttrNodeType    = "flowgen.node.type"
	AttrVariant     = "flowgen.node.variant"
	AttrBackend     = "flowgen.backend"
	AttrBatchID     = "flowgen.batch.id"
	AttrStatus      = "flowgen.status"
)

// ShutdownFunc flushes and stops the providers created by Init.
type ShutdownFunc func(context.Context) error

// Init installs global tracer and meter providers when cfg.Enabled is set.
func Init(ctx context.Context, cfg Config, serviceName, version string) (ShutdownFunc, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}
	cfg.ApplyDefaults()

	res := newResource(serviceName, version, cfg.Environment)
	tp, err := InitTracer(ctx, cfg, res)
	if err != nil {
		return nil, err
	}
	mp, err := InitMeter(ctx, cfg, res)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}

	logger.WithComponent("observability").Info("telemetry initialized", logger.Fields(
		"endpoint", cfg.Endpoint,
		"sample_rate", cfg.SampleRate,
	))

	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}

// InitTracer creates a tracer provider exporting to cfg.Endpoint and makes it global.
func InitTracer(ctx context.Context, cfg Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.SampleRate)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp, nil
}

func sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1.0:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

func newResource(serviceName, version, environment string) *resource.Resource {
	return resource.NewSchemaless(
		attribute.String(AttrServiceName, serviceName),
		attribute.String("service.version", version),
		attribute.String("deployment.environment", environment),
	)
}

// Tracer returns the flowgen tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartSpan starts a span on the flowgen tracer.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// SetSpanAttribute sets an attribute on the span in ctx, if it is recording.
func SetSpanAttribute(ctx context.Context, key string, value any) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	switch v := value.(type) {
	case string:
		span.SetAttributes(attribute.String(key, v))
	case int:
		span.SetAttributes(attribute.Int(key, v))
	case int64:
		span.SetAttributes(attribute.Int64(key, v))
	case float64:
		span.SetAttributes(attribute.Float64(key, v))
	case bool:
		span.SetAttributes(attribute.Bool(key, v))
	case []string:
		span.SetAttributes(attribute.StringSlice(key, v))
	default:
		span.SetAttributes(attribute.String(key, fmt.Sprint(v)))
	}
}

// SetSpanError records err on the span in ctx and marks it failed.
func SetSpanError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if err == nil || !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

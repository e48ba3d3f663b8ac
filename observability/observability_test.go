package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return rec
}

func TestConfigDefaultsAndValidate(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Endpoint != "localhost:4318" || cfg.SampleRate != 1.0 || cfg.MetricInterval != 15*time.Second {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg.SampleRate = 2
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected sample_rate error")
	}
}

func TestInit_DisabledIsNoop(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{}, "flowgen", "dev")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestStartSpan_AttributesAndError(t *testing.T) {
	rec := installRecorder(t)

	ctx, span := StartSpan(context.Background(), "runner.run")
	SetSpanAttribute(ctx, AttrNodeID, "img-1")
	SetSpanAttribute(ctx, "attempt", 2)
	SetSpanError(ctx, errors.New("backend down"))
	span.End()

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	if s.Name() != "runner.run" {
		t.Errorf("expected span name runner.run, got %q", s.Name())
	}
	if s.Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", s.Status().Code)
	}
	found := false
	for _, kv := range s.Attributes() {
		if string(kv.Key) == AttrNodeID && kv.Value.AsString() == "img-1" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected %s attribute, got %v", AttrNodeID, s.Attributes())
	}
}

func TestSetSpanHelpers_NoSpan(t *testing.T) {
	ctx := context.Background()
	SetSpanAttribute(ctx, "k", "v")
	SetSpanError(ctx, errors.New("x"))
}

func TestMetrics_RecordsNodeRuns(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	ctx := context.Background()
	m.RecordNodeRun(ctx, "imageGenerator", "success", 2*time.Second)
	m.RecordNodeRun(ctx, "imageGenerator", "failed", time.Second)
	m.TaskStarted(ctx)
	m.TaskFinished(ctx)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if md.Name != "flowgen.node.runs" {
				continue
			}
			sum, ok := md.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("unexpected data type %T", md.Data)
			}
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	if total != 2 {
		t.Fatalf("expected 2 node runs recorded, got %d", total)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordNodeRun(ctx, "t", "s", time.Second)
	m.RecordOperation(ctx, "c", "o", "ok", time.Second)
	m.RecordError(ctx, "e", "c")
	m.TaskStarted(ctx)
	m.TaskFinished(ctx)
	m.RecordBatchAttempt(ctx, "ok")
}

func TestNewMetrics_Noop(t *testing.T) {
	m, err := NewMetrics(noop.NewMeterProvider().Meter("noop"))
	if err != nil || m == nil {
		t.Fatalf("expected metrics on noop meter, got %v, %v", m, err)
	}
}

func TestServiceHealth_AddComponent(t *testing.T) {
	sh := NewServiceHealth("flowgen", "dev")
	sh.AddComponent(Health{Name: "redis", Status: HealthStatusDegraded})
	if sh.Status != HealthStatusDegraded {
		t.Fatalf("expected degraded, got %s", sh.Status)
	}
	sh.AddComponent(Health{Name: "backend", Status: HealthStatusDown})
	sh.AddComponent(Health{Name: "ledger", Status: HealthStatusDegraded})
	if sh.Status != HealthStatusDown {
		t.Fatalf("expected down to win, got %s", sh.Status)
	}
	sh.AddComponent(Health{Name: "http", Status: HealthStatusUp})
	if len(sh.Components) != 4 {
		t.Fatalf("expected 4 components, got %d", len(sh.Components))
	}
	bad := sh.Unhealthy()
	if len(bad) != 3 || bad[0].Name != "redis" || bad[2].Name != "ledger" {
		t.Fatalf("unhealthy = %+v", bad)
	}
}

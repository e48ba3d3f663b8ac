// Package observability wires OpenTelemetry tracing and metrics for flowgen.
//
// Both providers export over OTLP/HTTP and are disabled unless
// observability.enabled is set, in which case the global otel providers
// stay no-ops and every helper here is safe to call.
//
//	shutdown, err := observability.Init(ctx, cfg.Observability, cfg.Name, cfg.Version)
//	defer shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter("flowgen"))
//	metrics.RecordNodeRun(ctx, "imageGenerator", "success", elapsed)
package observability

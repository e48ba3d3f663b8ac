package runner

import (
	"context"
	"time"

	"github.com/kbukum/flowgen/graph"
	"github.com/kbukum/flowgen/logger"
	"github.com/kbukum/flowgen/observability"
)

// WithTracing wraps an Executor with span creation. Each run creates a span
// named "{prefix}.{variant}".
func WithTracing(exec Executor, prefix string) Executor {
	return &tracingExecutor{inner: exec, prefix: prefix}
}

type tracingExecutor struct {
	inner  Executor
	prefix string
}

func (e *tracingExecutor) Expected(n graph.Node) int { return e.inner.Expected(n) }

func (e *tracingExecutor) Run(ctx context.Context, nodeID string) Outcome {
	ctx, span := observability.StartSpan(ctx, e.prefix+".run")
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrNodeID, nodeID)

	out := e.inner.Run(ctx, nodeID)
	span.SetName(e.prefix + "." + string(out.Variant))
	observability.SetSpanAttribute(ctx, observability.AttrNodeType, string(out.NodeType))
	observability.SetSpanAttribute(ctx, observability.AttrVariant, string(out.Variant))
	observability.SetSpanAttribute(ctx, observability.AttrStatus, string(out.Status))
	if out.Err != nil {
		observability.SetSpanError(ctx, out.Err)
	}
	return out
}

// WithMetrics wraps an Executor with run count, duration and error metrics.
func WithMetrics(exec Executor, metrics *observability.Metrics) Executor {
	return &metricsExecutor{inner: exec, metrics: metrics}
}

type metricsExecutor struct {
	inner   Executor
	metrics *observability.Metrics
}

func (e *metricsExecutor) Expected(n graph.Node) int { return e.inner.Expected(n) }

func (e *metricsExecutor) Run(ctx context.Context, nodeID string) Outcome {
	start := time.Now()
	out := e.inner.Run(ctx, nodeID)
	if out.Err != nil {
		e.metrics.RecordError(ctx, string(out.Status), "runner")
	}
	e.metrics.RecordNodeRun(ctx, string(out.NodeType), string(out.Status), time.Since(start))
	return out
}

// WithLogging wraps an Executor with run logging. Validation failures log
// at warn, backend failures at error.
func WithLogging(exec Executor, log *logger.Logger) Executor {
	return &loggingExecutor{inner: exec, log: log}
}

type loggingExecutor struct {
	inner Executor
	log   *logger.Logger
}

func (e *loggingExecutor) Expected(n graph.Node) int { return e.inner.Expected(n) }

func (e *loggingExecutor) Run(ctx context.Context, nodeID string) Outcome {
	start := time.Now()
	out := e.inner.Run(ctx, nodeID)

	fields := logger.NodeFields(nodeID, string(out.NodeType))
	fields["variant"] = string(out.Variant)
	fields[logger.FieldDuration] = time.Since(start).Milliseconds()

	switch out.Status {
	case StatusSuccess:
		fields["artifacts"] = len(out.Artifacts)
		e.log.Info("node run completed", fields)
	case StatusValidationFailed:
		e.log.Warn("node run rejected", logger.MergeWithError(fields, out.Err))
	default:
		e.log.Error("node run failed", logger.MergeWithError(fields, out.Err))
	}
	return out
}

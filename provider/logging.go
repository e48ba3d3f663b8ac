package provider

import (
	"context"
	"time"

	"github.com/kbukum/flowgen/logger"
)

// WithLogging logs every Execute call with its duration and outcome.
func WithLogging[I, O any](log *logger.Logger) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		return &loggingRR[I, O]{inner: inner, log: log}
	}
}

type loggingRR[I, O any] struct {
	inner RequestResponse[I, O]
	log   *logger.Logger
}

func (l *loggingRR[I, O]) Name() string                         { return l.inner.Name() }
func (l *loggingRR[I, O]) IsAvailable(ctx context.Context) bool { return l.inner.IsAvailable(ctx) }

func (l *loggingRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	start := time.Now()
	output, err := l.inner.Execute(ctx, input)

	fields := logger.Fields(
		logger.FieldBackend, l.inner.Name(),
		logger.FieldDuration, time.Since(start).Milliseconds(),
	)
	if err != nil {
		l.log.Error("backend call failed", logger.MergeWithError(fields, err))
	} else {
		l.log.Debug("backend call ok", fields)
	}
	return output, err
}

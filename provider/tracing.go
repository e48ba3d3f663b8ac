package provider

import (
	"context"

	"github.com/kbukum/flowgen/observability"
)

// WithTracing wraps each Execute call in a "{prefix}.{provider}" span.
func WithTracing[I, O any](prefix string) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		return &tracingRR[I, O]{inner: inner, prefix: prefix}
	}
}

type tracingRR[I, O any] struct {
	inner  RequestResponse[I, O]
	prefix string
}

func (t *tracingRR[I, O]) Name() string                         { return t.inner.Name() }
func (t *tracingRR[I, O]) IsAvailable(ctx context.Context) bool { return t.inner.IsAvailable(ctx) }

func (t *tracingRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	ctx, span := observability.StartSpan(ctx, t.prefix+"."+t.inner.Name())
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrBackend, t.inner.Name())

	output, err := t.inner.Execute(ctx, input)
	if err != nil {
		observability.SetSpanError(ctx, err)
	}
	return output, err
}

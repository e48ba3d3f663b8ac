package provider

import (
	"context"
	"errors"

	apperrors "github.com/kbukum/flowgen/errors"
	"github.com/kbukum/flowgen/resilience"
)

// ResilienceConfig bundles optional policies. Nil fields are skipped.
type ResilienceConfig struct {
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`
	Retry          *resilience.RetryConfig          `yaml:"retry" mapstructure:"retry"`
	Bulkhead       *resilience.BulkheadConfig       `yaml:"bulkhead" mapstructure:"bulkhead"`
}

// IsEmpty reports whether no policy is configured.
func (c ResilienceConfig) IsEmpty() bool {
	return c.CircuitBreaker == nil && c.Retry == nil && c.Bulkhead == nil
}

// ResilienceState holds the primitives built from a ResilienceConfig.
type ResilienceState struct {
	cb       *resilience.CircuitBreaker
	bh       *resilience.Bulkhead
	retryCfg *resilience.RetryConfig
}

// BuildResilience creates the primitives for cfg. It returns nil for an empty config.
func BuildResilience(name string, cfg ResilienceConfig) *ResilienceState {
	if cfg.IsEmpty() {
		return nil
	}
	s := &ResilienceState{retryCfg: cfg.Retry}
	if cfg.CircuitBreaker != nil {
		cbCfg := *cfg.CircuitBreaker
		cbCfg.Name = name
		s.cb = resilience.NewCircuitBreaker(cbCfg)
	}
	if cfg.Bulkhead != nil {
		bhCfg := *cfg.Bulkhead
		bhCfg.Name = name
		s.bh = resilience.NewBulkhead(bhCfg)
	}
	return s
}

// CircuitState reports the breaker state, or closed when no breaker is configured.
func (s *ResilienceState) CircuitState() resilience.State {
	if s == nil || s.cb == nil {
		return resilience.StateClosed
	}
	return s.cb.State()
}

// WithResilience returns a middleware running Execute through
// Bulkhead, CircuitBreaker and Retry, outermost first.
func WithResilience[I, O any](cfg ResilienceConfig) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		if cfg.IsEmpty() {
			return inner
		}
		return &resilientRR[I, O]{inner: inner, state: BuildResilience(inner.Name(), cfg)}
	}
}

type resilientRR[I, O any] struct {
	inner RequestResponse[I, O]
	state *ResilienceState
}

func (r *resilientRR[I, O]) Name() string { return r.inner.Name() }

// IsAvailable is false while the circuit is open.
func (r *resilientRR[I, O]) IsAvailable(ctx context.Context) bool {
	return r.state.CircuitState() != resilience.StateOpen && r.inner.IsAvailable(ctx)
}

func (r *resilientRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	return ExecuteWithResilience(ctx, r.state, func() (O, error) {
		return r.inner.Execute(ctx, input)
	})
}

// ExecuteWithResilience runs fn through the configured policies and maps
// resilience errors onto AppErrors.
func ExecuteWithResilience[T any](ctx context.Context, s *ResilienceState, fn func() (T, error)) (T, error) {
	if s == nil {
		return fn()
	}

	call := fn
	if s.cb != nil {
		inner := call
		call = func() (T, error) {
			var result T
			err := s.cb.Execute(func() error {
				var callErr error
				result, callErr = inner()
				return callErr
			})
			return result, err
		}
	}
	if s.retryCfg != nil {
		inner := call
		retryCfg := *s.retryCfg
		call = func() (T, error) {
			return resilience.Retry(ctx, retryCfg, inner)
		}
	}
	if s.bh != nil {
		inner := call
		call = func() (T, error) {
			return resilience.ExecuteWithResult(s.bh, ctx, inner)
		}
	}

	result, err := call()
	if err != nil {
		return result, wrapResilienceError(err)
	}
	return result, nil
}

func wrapResilienceError(err error) error {
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		return apperrors.ServiceUnavailable("backend").WithCause(err)
	case errors.Is(err, resilience.ErrBulkheadFull), errors.Is(err, resilience.ErrBulkheadTimeout):
		return apperrors.RateLimited().WithCause(err)
	default:
		return err
	}
}

package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	apperrors "github.com/kbukum/flowgen/errors"
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxAttempts counts the first call.
	MaxAttempts    int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
	BackoffFactor  float64       `yaml:"backoff_factor" mapstructure:"backoff_factor"`
	// Jitter is a fraction of the computed backoff, 0.0 to 1.0.
	Jitter float64 `yaml:"jitter" mapstructure:"jitter"`

	RetryIf func(error) bool                                    `yaml:"-" mapstructure:"-"`
	OnRetry func(attempt int, err error, backoff time.Duration) `yaml:"-" mapstructure:"-"`
}

// DefaultRetryConfig returns the defaults used for backend calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 250 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		BackoffFactor:  2.0,
		Jitter:         0.1,
		RetryIf:        DefaultRetryIf,
	}
}

// DefaultRetryIf never retries context errors or open circuits. AppErrors
// are retried according to their Retryable flag, anything else is retried.
func DefaultRetryIf(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrBulkheadFull) {
		return false
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr.Retryable
	}
	return true
}

func (c *RetryConfig) normalize() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 1
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 100 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 10 * time.Second
	}
	if c.BackoffFactor <= 0 {
		c.BackoffFactor = 2.0
	}
	if c.RetryIf == nil {
		c.RetryIf = DefaultRetryIf
	}
}

// Retry calls fn until it succeeds, RetryIf rejects the error, attempts run
// out or ctx is done. The last error is returned.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	cfg.normalize()

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !cfg.RetryIf(err) || attempt == cfg.MaxAttempts {
			break
		}

		backoff := Backoff(attempt, cfg)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, backoff)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
	return zero, lastErr
}

// RetryFunc is Retry for functions without a result.
func RetryFunc(ctx context.Context, cfg RetryConfig, fn func() error) error {
	_, err := Retry(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// Backoff returns the delay before the retry that follows attempt.
func Backoff(attempt int, cfg RetryConfig) time.Duration {
	d := float64(cfg.InitialBackoff) * math.Pow(cfg.BackoffFactor, float64(attempt-1))
	if cfg.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * cfg.Jitter
	}
	if d > float64(cfg.MaxBackoff) {
		d = float64(cfg.MaxBackoff)
	}
	if d < 0 {
		d = float64(cfg.InitialBackoff)
	}
	return time.Duration(d)
}

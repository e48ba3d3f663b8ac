package resilience

import (
	"context"
	"errors"
	"time"
)

var (
	ErrBulkheadFull    = errors.New("bulkhead is full")
	ErrBulkheadTimeout = errors.New("bulkhead wait timeout")
)

// BulkheadConfig configures a bulkhead.
type BulkheadConfig struct {
	Name          string `yaml:"-" mapstructure:"-"`
	MaxConcurrent int    `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	// MaxWait is how long to wait for a slot. Zero fails immediately.
	MaxWait time.Duration `yaml:"max_wait" mapstructure:"max_wait"`

	OnReject func(name string) `yaml:"-" mapstructure:"-"`
}

// Bulkhead caps the number of concurrent calls to one backend.
type Bulkhead struct {
	cfg BulkheadConfig
	sem chan struct{}
}

// NewBulkhead creates a bulkhead. MaxConcurrent defaults to 4.
func NewBulkhead(cfg BulkheadConfig) *Bulkhead {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	return &Bulkhead{cfg: cfg, sem: make(chan struct{}, cfg.MaxConcurrent)}
}

// Execute runs fn while holding a slot.
func (b *Bulkhead) Execute(ctx context.Context, fn func() error) error {
	if err := b.acquire(ctx); err != nil {
		if b.cfg.OnReject != nil {
			b.cfg.OnReject(b.cfg.Name)
		}
		return err
	}
	defer func() { <-b.sem }()
	return fn()
}

// ExecuteWithResult is Execute for functions that return a value.
func ExecuteWithResult[T any](b *Bulkhead, ctx context.Context, fn func() (T, error)) (T, error) {
	var result T
	err := b.Execute(ctx, func() error {
		var fnErr error
		result, fnErr = fn()
		return fnErr
	})
	return result, err
}

func (b *Bulkhead) acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		return nil
	default:
	}
	if b.cfg.MaxWait <= 0 {
		return ErrBulkheadFull
	}

	timer := time.NewTimer(b.cfg.MaxWait)
	defer timer.Stop()
	select {
	case b.sem <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrBulkheadTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InUse returns the number of slots currently held.
func (b *Bulkhead) InUse() int { return len(b.sem) }

// Available returns the number of free slots.
func (b *Bulkhead) Available() int { return b.cfg.MaxConcurrent - len(b.sem) }

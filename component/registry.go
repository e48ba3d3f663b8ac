package component

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/flowgen/logger"
	"github.com/kbukum/flowgen/observability"
)

const stopTimeout = 10 * time.Second

type entry struct {
	component Component
	started   bool
}

// Registry starts and stops components in a deterministic order.
type Registry struct {
	mu      sync.Mutex
	entries []*entry
	lookup  map[string]*entry
	log     *logger.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		lookup: make(map[string]*entry),
		log:    logger.WithComponent("components"),
	}
}

// Register adds c. Dependencies must be registered first.
func (r *Registry) Register(c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	if _, exists := r.lookup[name]; exists {
		return fmt.Errorf("component %s already registered", name)
	}
	e := &entry{component: c}
	r.entries = append(r.entries, e)
	r.lookup[name] = e
	return nil
}

// Get returns the component registered under name, or nil.
func (r *Registry) Get(name string) Component {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.lookup[name]; ok {
		return e.component
	}
	return nil
}

// StartAll starts every component in registration order. It stops at the
// first failure, leaving already started components running for StopAll.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		name := e.component.Name()
		if err := e.component.Start(ctx); err != nil {
			r.log.Error("component start failed", logger.MergeWithError(logger.Fields(logger.FieldComponent, name), err))
			return fmt.Errorf("start %s: %w", name, err)
		}
		e.started = true

		fields := logger.Fields("name", name)
		if d, ok := e.component.(Describable); ok {
			desc := d.Describe()
			fields["type"] = desc.Type
			fields["details"] = desc.Details
		}
		r.log.Info("component started", fields)
	}
	return nil
}

// StopAll stops started components in reverse order and joins their errors.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if !e.started {
			continue
		}
		name := e.component.Name()
		stopCtx, cancel := context.WithTimeout(ctx, stopTimeout)
		if err := e.component.Stop(stopCtx); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", name, err))
		} else {
			r.log.Info("component stopped", logger.Fields("name", name))
		}
		cancel()
		e.started = false
	}
	return errors.Join(errs...)
}

// Health aggregates component health into a service report.
func (r *Registry) Health(ctx context.Context, service, version string) *observability.ServiceHealth {
	r.mu.Lock()
	components := make([]Component, 0, len(r.entries))
	for _, e := range r.entries {
		components = append(components, e.component)
	}
	r.mu.Unlock()

	sh := observability.NewServiceHealth(service, version)
	for _, c := range components {
		sh.AddComponent(c.Health(ctx))
	}
	return sh
}

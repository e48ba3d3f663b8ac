package scheduler

import (
	"context"
	"fmt"

	"github.com/kbukum/flowgen/component"
	"github.com/kbukum/flowgen/observability"
)

var (
	_ component.Component   = (*Scheduler)(nil)
	_ component.Describable = (*Scheduler)(nil)
)

func (s *Scheduler) Name() string { return "scheduler" }

// Start is a no-op; runs are started on demand.
func (s *Scheduler) Start(context.Context) error { return nil }

func (s *Scheduler) Health(context.Context) observability.Health {
	status := observability.HealthStatusUp
	if s.base.Err() != nil {
		status = observability.HealthStatusDown
	}
	return observability.Health{
		Name:    s.Name(),
		Status:  status,
		Message: fmt.Sprintf("%d nodes running", s.Running()),
	}
}

func (s *Scheduler) Describe() component.Description {
	return component.Description{
		Type: "scheduler",
		Details: fmt.Sprintf("between nodes %s, between passes %s, run timeout %s",
			s.cfg.BetweenNodes, s.cfg.BetweenPasses, s.cfg.RunTimeout),
	}
}

package server

import (
	"context"
	"fmt"

	"github.com/kbukum/flowgen/component"
	"github.com/kbukum/flowgen/observability"
)

const componentName = "http-server"

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// Component wraps Server for the component registry.
type Component struct {
	server *Server
}

// NewComponent returns a component backed by s.
func NewComponent(s *Server) *Component {
	return &Component{server: s}
}

func (c *Component) Name() string { return componentName }

func (c *Component) Start(ctx context.Context) error { return c.server.Start(ctx) }

func (c *Component) Stop(ctx context.Context) error { return c.server.Stop(ctx) }

func (c *Component) Health(context.Context) observability.Health {
	c.server.mu.Lock()
	bound := c.server.listener != nil
	c.server.mu.Unlock()
	if !bound {
		return observability.Health{Name: componentName, Status: observability.HealthStatusDown, Message: "not listening"}
	}
	return observability.Health{Name: componentName, Status: observability.HealthStatusUp}
}

func (c *Component) Describe() component.Description {
	return component.Description{
		Type:    "server",
		Details: fmt.Sprintf("%s (%d routes)", c.server.Addr(), len(c.server.engine.Routes())),
	}
}

package redis

import (
	"context"
	"fmt"

	"github.com/kbukum/flowgen/component"
	apperrors "github.com/kbukum/flowgen/errors"
	"github.com/kbukum/flowgen/logger"
	"github.com/kbukum/flowgen/observability"
)

// Component owns a Client under the component registry.
type Component struct {
	cfg    Config
	log    *logger.Logger
	client *Client
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates a Redis component. The client is created on Start.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log.WithComponent("redis")}
}

// Client returns the client, or nil before Start.
func (c *Component) Client() *Client { return c.client }

func (c *Component) Name() string { return "redis" }

// Start creates the client and pings the server.
func (c *Component) Start(ctx context.Context) error {
	client, err := New(c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("redis start: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		_ = client.Close()
		return apperrors.ConnectionFailed("redis").WithCause(err).WithDetail("addr", c.cfg.Addr)
	}
	c.client = client
	return nil
}

func (c *Component) Stop(context.Context) error {
	return c.client.Close()
}

// Health reports degraded rather than down: the ledger keeps working in
// memory when the mirror is unreachable.
func (c *Component) Health(ctx context.Context) observability.Health {
	h := observability.Health{Name: c.Name(), Status: observability.HealthStatusUp}
	switch {
	case c.client == nil:
		h.Status, h.Message = observability.HealthStatusDegraded, "not started"
	default:
		if err := c.client.Ping(ctx); err != nil {
			h.Status, h.Message = observability.HealthStatusDegraded, err.Error()
		}
	}
	return h
}

func (c *Component) Describe() component.Description {
	return component.Description{Type: "redis", Details: fmt.Sprintf("%s db=%d", c.cfg.Addr, c.cfg.DB)}
}

package main

import (
	"fmt"
	"time"

	"github.com/kbukum/flowgen/backend"
	"github.com/kbukum/flowgen/config"
	"github.com/kbukum/flowgen/observability"
	"github.com/kbukum/flowgen/redis"
	"github.com/kbukum/flowgen/scheduler"
	"github.com/kbukum/flowgen/server"
)

// AppConfig is the flowgen process configuration.
type AppConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	// ShutdownTimeout bounds graceful shutdown of all components.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`

	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Scheduler     scheduler.Config     `yaml:"scheduler" mapstructure:"scheduler"`
	Backends      backend.Config       `yaml:"backends" mapstructure:"backends"`
	Redis         redis.Config         `yaml:"redis" mapstructure:"redis"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

func (c *AppConfig) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 20 * time.Second
	}
	c.Server.ApplyDefaults()
	c.Scheduler.ApplyDefaults()
	c.Backends.ApplyDefaults()
	c.Redis.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

func (c *AppConfig) Validate() error {
	sections := []struct {
		name string
		v    config.Validatable
	}{
		{"service", &c.ServiceConfig},
		{"server", &c.Server},
		{"scheduler", &c.Scheduler},
		{"backends", &c.Backends},
		{"redis", &c.Redis},
		{"observability", &c.Observability},
	}
	for _, s := range sections {
		if err := s.v.Validate(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}

package config

import (
	"fmt"
	"slices"

	"github.com/kbukum/flowgen/logger"
)

// Defaultable is implemented by config sections that fill in zero values.
type Defaultable interface {
	ApplyDefaults()
}

// Validatable is implemented by config sections that can check themselves.
type Validatable interface {
	Validate() error
}

// ServiceConfig contains the fields every flowgen process needs.
// Application configs embed it with mapstructure squash:
//
//	type Config struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Scheduler scheduler.Config `yaml:"scheduler" mapstructure:"scheduler"`
//	}
type ServiceConfig struct {
	Name        string        `yaml:"name" mapstructure:"name"`
	Environment string        `yaml:"environment" mapstructure:"environment"`
	Version     string        `yaml:"version" mapstructure:"version"`
	Debug       bool          `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config `yaml:"logging" mapstructure:"logging"`
}

var validEnvironments = []string{"development", "staging", "production"}

// ApplyDefaults applies default values to the base configuration.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "flowgen"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	if c.Logging.ServiceName == "" {
		c.Logging.ServiceName = c.Name
	}
	c.Logging.ApplyDefaults()
}

// Validate validates the base configuration fields.
func (c *ServiceConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("config.name is required")
	}
	if !slices.Contains(validEnvironments, c.Environment) {
		return fmt.Errorf("config.environment must be one of %v (got: %s)", validEnvironments, c.Environment)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	return nil
}

// GetServiceConfig returns c. Configs embedding ServiceConfig get it
// promoted, which is how bootstrap.Config is satisfied.
func (c *ServiceConfig) GetServiceConfig() *ServiceConfig { return c }

package observability

import (
	"fmt"
	"time"
)

// Config configures OTLP export for traces and metrics.
type Config struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	Environment string `yaml:"environment" mapstructure:"environment"`
	// Endpoint is the OTLP HTTP host:port, e.g. "localhost:4318".
	Endpoint       string        `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure       bool          `yaml:"insecure" mapstructure:"insecure"`
	SampleRate     float64       `yaml:"sample_rate" mapstructure:"sample_rate"`
	MetricInterval time.Duration `yaml:"metric_interval" mapstructure:"metric_interval"`
}

// ApplyDefaults fills in development defaults.
func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
	if c.MetricInterval == 0 {
		c.MetricInterval = 15 * time.Second
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
}

// Validate checks the sampling rate range.
func (c *Config) Validate() error {
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("observability.sample_rate must be within [0, 1] (got: %v)", c.SampleRate)
	}
	return nil
}

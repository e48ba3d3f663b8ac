package backend

import (
	"fmt"
	"time"

	"github.com/kbukum/flowgen/httpclient"
	"github.com/kbukum/flowgen/provider"
	"github.com/kbukum/flowgen/resilience"
)

// EndpointConfig configures one backend.
type EndpointConfig struct {
	HTTP       httpclient.Config         `yaml:"http" mapstructure:"http"`
	Resilience provider.ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
}

// Config configures the three backends. BaseURL and the API key settings
// are inherited by endpoints that do not set their own.
type Config struct {
	BaseURL      string         `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`
	APIKey       string         `yaml:"api_key" mapstructure:"api_key"`
	APIKeyHeader string         `yaml:"api_key_header" mapstructure:"api_key_header"`
	Images       EndpointConfig `yaml:"images" mapstructure:"images"`
	Describer    EndpointConfig `yaml:"describer" mapstructure:"describer"`
	Videos       EndpointConfig `yaml:"videos" mapstructure:"videos"`
}

// ApplyDefaults fills endpoint settings. Every endpoint gets a circuit
// breaker and a bulkhead unless configured otherwise. Retries stay off:
// a failed generation is reported, not repeated.
func (c *Config) ApplyDefaults() {
	for _, ep := range []*EndpointConfig{&c.Images, &c.Describer, &c.Videos} {
		if ep.HTTP.BaseURL == "" {
			ep.HTTP.BaseURL = c.BaseURL
		}
		if ep.HTTP.APIKey == "" {
			ep.HTTP.APIKey = c.APIKey
			ep.HTTP.APIKeyHeader = c.APIKeyHeader
		}
		ep.HTTP.ApplyDefaults()
		if ep.Resilience.CircuitBreaker == nil {
			ep.Resilience.CircuitBreaker = &resilience.CircuitBreakerConfig{
				MaxFailures:      5,
				Timeout:          30 * time.Second,
				HalfOpenMaxCalls: 1,
			}
		}
		if ep.Resilience.Bulkhead == nil {
			ep.Resilience.Bulkhead = &resilience.BulkheadConfig{MaxConcurrent: 4}
		}
	}
	// video calls run long; give them the most room
	if c.Videos.HTTP.Timeout < 5*time.Minute {
		c.Videos.HTTP.Timeout = 5 * time.Minute
	}
}

// Validate checks every endpoint.
func (c *Config) Validate() error {
	for name, ep := range map[string]*EndpointConfig{NameImages: &c.Images, NameDescriber: &c.Describer, NameVideos: &c.Videos} {
		if ep.HTTP.BaseURL == "" {
			return fmt.Errorf("backends.%s: base_url is required", name)
		}
		if err := ep.HTTP.Validate(); err != nil {
			return fmt.Errorf("backends.%s: %w", name, err)
		}
	}
	return nil
}

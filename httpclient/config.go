package httpclient

import (
	"fmt"
	"net/url"
	"time"
)

const defaultTimeout = 2 * time.Minute

// Config configures the HTTP client.
type Config struct {
	// BaseURL is prepended to relative request paths.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	// Timeout bounds a single request. Generation calls are slow, so the
	// default is two minutes.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// APIKey, when set, is sent as a bearer token, or in APIKeyHeader
	// when that is set.
	APIKey       string            `yaml:"api_key" mapstructure:"api_key"`
	APIKeyHeader string            `yaml:"api_key_header" mapstructure:"api_key_header"`
	UserAgent    string            `yaml:"user_agent" mapstructure:"user_agent"`
	Headers      map[string]string `yaml:"headers" mapstructure:"headers"`

	// Auth overrides APIKey with a custom scheme.
	Auth *AuthConfig `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = "flowgen"
	}
	if c.Auth == nil && c.APIKey != "" {
		if c.APIKeyHeader != "" {
			c.Auth = APIKeyAuth(c.APIKey, c.APIKeyHeader)
		} else {
			c.Auth = BearerAuth(c.APIKey)
		}
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("httpclient: timeout must be positive")
	}
	if c.BaseURL != "" {
		if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
			return fmt.Errorf("httpclient: invalid base_url %q: %w", c.BaseURL, err)
		}
	}
	return nil
}

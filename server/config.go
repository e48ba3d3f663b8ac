package server

import (
	"fmt"
	"time"

	"github.com/kbukum/flowgen/server/middleware"
)

// Config holds HTTP server configuration.
type Config struct {
	Host        string        `yaml:"host" mapstructure:"host"`
	Port        int           `yaml:"port" mapstructure:"port"`
	ReadTimeout time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	// WriteTimeout of zero leaves event streams open indefinitely.
	WriteTimeout time.Duration         `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration         `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	MaxBodySize  int64                 `yaml:"max_body_size" mapstructure:"max_body_size"` // bytes
	CORS         middleware.CORSConfig `yaml:"cors" mapstructure:"cors"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 15 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
	if c.MaxBodySize == 0 {
		c.MaxBodySize = 10 << 20
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
	if len(c.CORS.AllowedMethods) == 0 {
		c.CORS.AllowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if len(c.CORS.AllowedHeaders) == 0 {
		c.CORS.AllowedHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-Id", "Last-Event-ID"}
	}
	if len(c.CORS.ExposedHeaders) == 0 {
		c.CORS.ExposedHeaders = []string{"X-Request-Id"}
	}
	if c.CORS.MaxAge == 0 {
		c.CORS.MaxAge = 10 * time.Minute
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535 (got: %d)", c.Port)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("server.read_timeout must be non-negative (got: %s)", c.ReadTimeout)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("server.write_timeout must be non-negative (got: %s)", c.WriteTimeout)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("server.idle_timeout must be non-negative (got: %s)", c.IdleTimeout)
	}
	if c.MaxBodySize < 0 {
		return fmt.Errorf("server.max_body_size must be non-negative (got: %d)", c.MaxBodySize)
	}
	return nil
}

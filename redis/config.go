package redis

import (
	"fmt"
	"time"
)

// Config holds Redis connection configuration.
type Config struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Addr     string `yaml:"addr" mapstructure:"addr"`
	Password string `yaml:"password" mapstructure:"password"`
	DB       int    `yaml:"db" mapstructure:"db"`

	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	MaxRetries   int           `yaml:"max_retries" mapstructure:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`

	// KeyPrefix namespaces every key written by flowgen.
	KeyPrefix string `yaml:"key_prefix" mapstructure:"key_prefix"`
	// TTL expires mirrored records. Zero keeps them forever.
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// ApplyDefaults sets defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = "localhost:6379"
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.MinIdleConns <= 0 {
		c.MinIdleConns = 2
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 3 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 3 * time.Second
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "flowgen"
	}
}

// Validate checks required fields when Redis is enabled.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Addr == "" {
		return fmt.Errorf("redis.addr is required")
	}
	if c.PoolSize <= 0 {
		return fmt.Errorf("redis.pool_size must be > 0")
	}
	if c.TTL < 0 {
		return fmt.Errorf("redis.ttl must not be negative")
	}
	return nil
}

package redis

import (
	"context"
	"fmt"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/flowgen/logger"
)

// Client wraps a go-redis client.
type Client struct {
	rdb    *goredis.Client
	log    *logger.Logger
	cfg    Config
	mu     sync.Mutex
	closed bool
}

// New creates a client. It does not dial until the first command.
func New(cfg Config, log *logger.Logger) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		return nil, fmt.Errorf("redis is disabled")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	log.Debug("redis client created", logger.Fields("addr", cfg.Addr, "db", cfg.DB))
	return &Client{rdb: rdb, log: log, cfg: cfg}, nil
}

// Config returns the effective configuration.
func (c *Client) Config() Config { return c.cfg }

// Ping verifies the connection is alive.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the connection pool. Safe to call more than once.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.rdb.Close()
}

// Unwrap returns the underlying go-redis client.
func (c *Client) Unwrap() *goredis.Client {
	return c.rdb
}

package scheduler

import (
	"fmt"
	"time"

	"github.com/kbukum/flowgen/guard"
)

// Config holds batch pacing and timeout settings.
type Config struct {
	BetweenNodes   time.Duration `yaml:"between_nodes" mapstructure:"between_nodes"`
	BetweenPasses  time.Duration `yaml:"between_passes" mapstructure:"between_passes"`
	RunTimeout     time.Duration `yaml:"run_timeout" mapstructure:"run_timeout"`
	ThrottleWindow time.Duration `yaml:"throttle_window" mapstructure:"throttle_window"`
	// MaxRepeat caps the repeat count accepted by RunBatch.
	MaxRepeat int `yaml:"max_repeat" mapstructure:"max_repeat"`
	// KeepBatches is how many finished batch results stay queryable.
	KeepBatches int `yaml:"keep_batches" mapstructure:"keep_batches"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.BetweenNodes == 0 {
		c.BetweenNodes = 300 * time.Millisecond
	}
	if c.BetweenPasses == 0 {
		c.BetweenPasses = 500 * time.Millisecond
	}
	if c.RunTimeout == 0 {
		c.RunTimeout = 5 * time.Minute
	}
	if c.ThrottleWindow == 0 {
		c.ThrottleWindow = guard.DefaultWindow
	}
	if c.MaxRepeat == 0 {
		c.MaxRepeat = 100
	}
	if c.KeepBatches == 0 {
		c.KeepBatches = 50
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.BetweenNodes < 0 || c.BetweenPasses < 0 {
		return fmt.Errorf("scheduler: delays must not be negative")
	}
	if c.RunTimeout <= 0 {
		return fmt.Errorf("scheduler: run_timeout must be positive")
	}
	if c.MaxRepeat < 1 {
		return fmt.Errorf("scheduler: max_repeat must be at least 1")
	}
	return nil
}

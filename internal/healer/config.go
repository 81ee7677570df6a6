package healer

import (
	"fmt"
	"time"

	"blobmux/internal/ratelimit"
)

// Config holds the healer loop configuration.
type Config struct {
	// QueueLimit is the maximum number of sync-queue entries fetched
	// per pass.
	QueueLimit int `yaml:"queue_limit"`

	// MinInterval is the minimum delay between two passes. Prevents a
	// tight loop from hammering the queue's backing storage when the
	// backlog is small.
	MinInterval time.Duration `yaml:"min_interval"`

	// DryRun runs exactly one detection pass against non-mutating
	// observers and stops.
	DryRun bool `yaml:"dry_run"`

	// RateLimit throttles copy operations.
	RateLimit ratelimit.Config `yaml:"rate_limit"`
}

// DefaultConfig returns the default healer configuration.
func DefaultConfig() Config {
	return Config{
		QueueLimit:  10000,
		MinInterval: 5 * time.Second,
		RateLimit:   ratelimit.DefaultConfig(),
	}
}

// ApplyDefaults fills in missing values with defaults.
func (c *Config) ApplyDefaults() {
	if c.QueueLimit == 0 {
		c.QueueLimit = 10000
	}
	if c.MinInterval == 0 {
		c.MinInterval = 5 * time.Second
	}
	if c.RateLimit.Ops == 0 && c.RateLimit.Window == 0 {
		c.RateLimit = ratelimit.DefaultConfig()
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.QueueLimit <= 0 {
		return fmt.Errorf("queue_limit must be positive, got %d", c.QueueLimit)
	}
	if c.MinInterval < 0 {
		return fmt.Errorf("min_interval cannot be negative")
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.Ops <= 0 {
			return fmt.Errorf("rate_limit.ops must be positive when enabled")
		}
		if c.RateLimit.Window <= 0 {
			return fmt.Errorf("rate_limit.window must be positive when enabled")
		}
	}
	return nil
}

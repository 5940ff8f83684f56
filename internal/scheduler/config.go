// Package scheduler provides task dispatching with worker pool management.
package scheduler

import (
	"fmt"
	"runtime"

	"github.com/TanveerShahriar/Thesis/internal/balancer"
)

// Config defines the worker pool configuration.
type Config struct {
	// PoolSize is the fixed number of workers. It never changes after Initialize.
	PoolSize int `yaml:"pool_size"`
	// PinThreads locks each worker to its own OS thread and CPU.
	PinThreads bool `yaml:"pin_threads"`
	// Seed seeds the balancer's random choice. Zero means time-based.
	Seed int64 `yaml:"seed"`
	// Balancer holds the placement policy parameters.
	Balancer balancer.Policy `yaml:"balancer"`
}

// DefaultConfig returns the default pool configuration.
func DefaultConfig() *Config {
	return &Config{
		PoolSize: runtime.NumCPU(),
		Balancer: balancer.DefaultPolicy(),
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.PoolSize < 1 {
		return fmt.Errorf("pool_size must be at least 1, got %d", c.PoolSize)
	}
	if err := c.Balancer.Validate(); err != nil {
		return fmt.Errorf("balancer: %w (threshold_ratio=%v)", err, c.Balancer.ThresholdRatio)
	}
	return nil
}

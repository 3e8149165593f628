package multipass

import (
	"fmt"
	"time"
)

const (
	DefaultIdleThreshold    = 100 * time.Minute
	DefaultSweepInterval    = time.Minute
	DefaultConstructTimeout = 30 * time.Second
)

// Config holds the cache timing knobs.
type Config struct {
	// IdleThreshold is how long an instance may go unused before the sweeper drops it.
	IdleThreshold time.Duration
	// SweepInterval is the period between sweeps.
	SweepInterval time.Duration
	// ConstructTimeout bounds a single instance construction. Zero disables it.
	ConstructTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		IdleThreshold:    DefaultIdleThreshold,
		SweepInterval:    DefaultSweepInterval,
		ConstructTimeout: DefaultConstructTimeout,
	}
}

// withDefaults fills zero durations.
func (c Config) withDefaults() Config {
	if c.IdleThreshold == 0 {
		c.IdleThreshold = DefaultIdleThreshold
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = DefaultSweepInterval
	}
	return c
}

func (c Config) Validate() error {
	if c.IdleThreshold < 0 {
		return fmt.Errorf("%w: idle threshold %s is negative", ErrConfiguration, c.IdleThreshold)
	}
	if c.SweepInterval < 0 {
		return fmt.Errorf("%w: sweep interval %s is negative", ErrConfiguration, c.SweepInterval)
	}
	if c.ConstructTimeout < 0 {
		return fmt.Errorf("%w: construct timeout %s is negative", ErrConfiguration, c.ConstructTimeout)
	}
	return nil
}

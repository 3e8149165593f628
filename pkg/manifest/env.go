package manifest

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment overrides applied on top of the decoded manifest.
const (
	EnvListen           = "SERVER_LISTEN_ADDRESS"
	EnvIdleThreshold    = "MULTIPASS_IDLE_THRESHOLD_MS"
	EnvSweepInterval    = "MULTIPASS_SWEEP_INTERVAL_MS"
	EnvConstructTimeout = "MULTIPASS_CONSTRUCT_TIMEOUT_MS"
)

// ApplyEnv overrides manifest values from the process environment.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(os.Getenv)
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := strings.TrimSpace(getenv(EnvListen)); v != "" {
		c.Server.Listen = v
	}
	for _, o := range []struct {
		key string
		set func(int64)
	}{
		{EnvIdleThreshold, func(n int64) { c.Cache.IdleThresholdMS = n }},
		{EnvSweepInterval, func(n int64) { c.Cache.SweepIntervalMS = n }},
		// 0 disables the construct timeout
		{EnvConstructTimeout, func(n int64) { c.Cache.ConstructTimeoutMS = &n }},
	} {
		v := strings.TrimSpace(getenv(o.key))
		if v == "" {
			continue
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", o.key, err)
		}
		o.set(n)
	}
	return nil
}

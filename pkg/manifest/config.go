package manifest

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joeydtaylor/steeze-multipass/pkg/multipass"
)

// Config is the top-level manifest.
type Config struct {
	Server  Server   `toml:"server"`
	Cache   Cache    `toml:"cache"`
	Tenants []Tenant `toml:"tenant"`
	Routes  []Route  `toml:"route"`
}

type Server struct {
	Service string `toml:"service"`
	Listen  string `toml:"listen"`
}

// Cache holds the instance cache timings in milliseconds. Zero idle and
// sweep values take the defaults. ConstructTimeoutMS is a pointer so an
// explicit 0 can disable the timeout while an absent key takes the default.
type Cache struct {
	IdleThresholdMS    int64  `toml:"idle_threshold_ms"`
	SweepIntervalMS    int64  `toml:"sweep_interval_ms"`
	ConstructTimeoutMS *int64 `toml:"construct_timeout_ms"`
}

// Defaults matches multipass.DefaultConfig.
func (c Cache) withDefaults() Cache {
	if c.IdleThresholdMS == 0 {
		c.IdleThresholdMS = multipass.DefaultIdleThreshold.Milliseconds()
	}
	if c.SweepIntervalMS == 0 {
		c.SweepIntervalMS = multipass.DefaultSweepInterval.Milliseconds()
	}
	if c.ConstructTimeoutMS == nil {
		ms := multipass.DefaultConstructTimeout.Milliseconds()
		c.ConstructTimeoutMS = &ms
	}
	return c
}

// MultipassConfig converts the manifest timings.
func (c Cache) MultipassConfig() multipass.Config {
	c = c.withDefaults()
	return multipass.Config{
		IdleThreshold:    time.Duration(c.IdleThresholdMS) * time.Millisecond,
		SweepInterval:    time.Duration(c.SweepIntervalMS) * time.Millisecond,
		ConstructTimeout: time.Duration(*c.ConstructTimeoutMS) * time.Millisecond,
	}
}

// Default returns a manifest with the built-in routes and no tenants.
func Default() Config {
	cfg := Config{Cache: Cache{}.withDefaults()}
	cfg.Routes = DefaultRoutes()
	return cfg
}

// DefaultRoutes are mounted when a manifest declares none.
func DefaultRoutes() []Route {
	return []Route{
		{
			Path:    "/auth/{tenant}/{provider}",
			Method:  "GET",
			Handler: HSpec{Type: HandlerWhoami},
			Guard:   Guard{RequireAuth: true},
		},
		{
			Path:    "/auth/{tenant}/{provider}",
			Method:  "POST",
			Handler: HSpec{Type: HandlerWhoami},
			Guard:   Guard{RequireAuth: true},
		},
		{
			Path:    "/instances",
			Method:  "GET",
			Handler: HSpec{Type: HandlerInstances},
			Guard:   Guard{Roles: []string{"admin"}},
		},
		{
			Path:    "/instances/evict",
			Method:  "POST",
			Handler: HSpec{Type: HandlerEvict},
			Guard:   Guard{Roles: []string{"admin"}},
		},
	}
}

// Validate normalizes and checks the manifest.
func (c *Config) Validate() error {
	if c.Cache.IdleThresholdMS < 0 || c.Cache.SweepIntervalMS < 0 ||
		(c.Cache.ConstructTimeoutMS != nil && *c.Cache.ConstructTimeoutMS < 0) {
		return errors.New("cache timings must be >= 0")
	}
	c.Cache = c.Cache.withDefaults()

	seen := make(map[string]struct{}, len(c.Tenants))
	for i := range c.Tenants {
		t := &c.Tenants[i]
		t.ID = strings.TrimSpace(t.ID)
		if t.ID == "" {
			return fmt.Errorf("tenant %d: id required", i)
		}
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("tenant %q declared twice", t.ID)
		}
		seen[t.ID] = struct{}{}
		if err := t.validate(); err != nil {
			return fmt.Errorf("tenant %q: %w", t.ID, err)
		}
	}

	if len(c.Routes) == 0 {
		c.Routes = DefaultRoutes()
	}
	for i := range c.Routes {
		if err := c.Routes[i].normalize(); err != nil {
			return fmt.Errorf("route %d: %w", i, err)
		}
		if err := c.Routes[i].validate(); err != nil {
			return fmt.Errorf("route %d (%s %s): %w", i, c.Routes[i].Method, c.Routes[i].Path, err)
		}
	}
	return nil
}

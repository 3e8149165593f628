// Package jwtbearer is a multipass strategy that verifies bearer JWTs
// against per-tenant issuer, audience and key material.
package jwtbearer

import (
	"context"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/joeydtaylor/steeze-multipass/pkg/multipass"
)

// ProviderType is the registry name of this strategy.
const ProviderType = "jwt"

type config struct {
	httpClient HTTPDoer
	clock      clock.Clock
	fetch      fetchPolicy
}

type Option func(*config)

// WithHTTPClient sets the client used for JWKS fetches.
func WithHTTPClient(hc HTTPDoer) Option { return func(c *config) { c.httpClient = hc } }

func WithClock(clk clock.Clock) Option { return func(c *config) { c.clock = clk } }

// WithRetry bounds the initial JWKS fetch.
func WithRetry(maxTries uint, initial time.Duration) Option {
	return func(c *config) { c.fetch.maxTries, c.fetch.initial = maxTries, initial }
}

// WithFetchTimeout bounds each JWKS fetch attempt.
func WithFetchTimeout(d time.Duration) Option { return func(c *config) { c.fetch.timeout = d } }

// Template returns the registry entry for bearer JWTs. A nil handler uses
// DefaultResultHandler.
func Template(handler multipass.ResultHandler, opts ...Option) multipass.Template {
	c := config{
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
			Timeout: 8 * time.Second,
		},
		clock: clock.New(),
		fetch: fetchPolicy{maxTries: 3, initial: 200 * time.Millisecond, timeout: 5 * time.Second},
	}
	for _, o := range opts {
		o(&c)
	}
	if c.fetch.maxTries == 0 {
		c.fetch.maxTries = 1
	}
	if c.fetch.timeout <= 0 {
		c.fetch.timeout = 5 * time.Second
	}
	if handler == nil {
		handler = DefaultResultHandler
	}
	return multipass.Template{
		ProviderType:   ProviderType,
		OptionsBuilder: BuildOptions,
		ResultHandler:  handler,
		Constructor: func(ctx context.Context, opts multipass.Options, h multipass.ResultHandler) (multipass.Strategy, error) {
			s, err := settingsFrom(opts)
			if err != nil {
				return nil, err
			}
			return newStrategy(ctx, s, h, c)
		},
	}
}

// DefaultResultHandler maps uid (or sub) to the username and role (or the
// first of roles) to the role name.
func DefaultResultHandler(_ context.Context, p multipass.Profile) (multipass.Outcome, error) {
	if p.Subject == "" {
		return multipass.Outcome{}, nil
	}
	role, _ := p.Claims["role"].(string)
	if role == "" {
		if roles, ok := p.Claims["roles"].([]any); ok {
			for _, r := range roles {
				if s, _ := r.(string); s != "" {
					role = s
					break
				}
			}
		}
	}
	return multipass.Outcome{
		User: &multipass.User{
			Username:             p.Subject,
			AuthenticationSource: multipass.AuthenticationSource{Provider: p.Provider, Tenant: p.Tenant},
			Role:                 multipass.Role{Name: role},
		},
		Info: multipass.Info{"claims": p.Claims},
	}, nil
}

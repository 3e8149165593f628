package multipass

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// Authenticator is the per-request entry point. It owns the template
// registry, the instance cache and the sweeper that trims it.
type Authenticator struct {
	cfg      Config
	registry *Registry
	cache    *Cache
	sweeper  *Sweeper
	verify   VerifyFunc
	observer Observer
	log      *zap.Logger
}

type settings struct {
	cfg      Config
	clock    clock.Clock
	log      *zap.Logger
	observer Observer
	registry *Registry
}

// Option configures an Authenticator.
type Option func(*settings)

func WithConfig(cfg Config) Option { return func(s *settings) { s.cfg = cfg } }

func WithClock(c clock.Clock) Option { return func(s *settings) { s.clock = c } }

func WithLogger(l *zap.Logger) Option { return func(s *settings) { s.log = l } }

func WithObserver(o Observer) Option { return func(s *settings) { s.observer = o } }

// WithRegistry shares a registry filled elsewhere.
func WithRegistry(r *Registry) Option { return func(s *settings) { s.registry = r } }

// New builds an Authenticator. verify is required; pass AcceptOutcome to
// forward strategy outcomes unchanged. The sweeper is not started.
func New(verify VerifyFunc, opts ...Option) (*Authenticator, error) {
	if verify == nil {
		return nil, fmt.Errorf("%w: verify callback required", ErrConfiguration)
	}
	s := settings{cfg: DefaultConfig()}
	for _, o := range opts {
		o(&s)
	}
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	s.cfg = s.cfg.withDefaults()
	if s.clock == nil {
		s.clock = clock.New()
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.observer == nil {
		s.observer = nopObserver{}
	}
	if s.registry == nil {
		s.registry = NewRegistry(s.log)
	}

	log := s.log.Named("multipass")
	cache := newCache(s.clock, s.cfg.ConstructTimeout, s.observer, log)
	return &Authenticator{
		cfg:      s.cfg,
		registry: s.registry,
		cache:    cache,
		sweeper:  newSweeper(cache, s.clock, s.cfg.IdleThreshold, s.cfg.SweepInterval, s.observer, log),
		verify:   verify,
		observer: s.observer,
		log:      log,
	}, nil
}

// AcceptOutcome is a VerifyFunc that forwards the strategy outcome as is.
func AcceptOutcome(_ context.Context, _ *http.Request, _ Key, out Outcome) (Outcome, error) {
	return out, nil
}

func (a *Authenticator) Registry() *Registry { return a.registry }
func (a *Authenticator) Cache() *Cache       { return a.cache }
func (a *Authenticator) Sweeper() *Sweeper   { return a.sweeper }
func (a *Authenticator) Config() Config      { return a.cfg }

// Register is shorthand for Registry().Register.
func (a *Authenticator) Register(t Template) error { return a.registry.Register(t) }

// Start launches the sweeper.
func (a *Authenticator) Start() error { return a.sweeper.Start() }

// Stop halts the sweeper. Cached instances are left in place.
func (a *Authenticator) Stop() { a.sweeper.Stop() }

// Authenticate resolves the tenant's instance of the requested provider type,
// creating it on first use, and delegates the credential check to it.
//
// Unknown provider types fail with ErrUnknownProviderType and leave the
// cache untouched. Failures raised by the strategy come back as
// *DownstreamError wrapping the original error.
func (a *Authenticator) Authenticate(ctx context.Context, r *http.Request, p Params) (Outcome, error) {
	key := NewKey(p.TenantID, p.ProviderType)
	if err := key.validate(); err != nil {
		return Outcome{}, err
	}

	tpl, err := a.registry.Lookup(key.ProviderType)
	if err != nil {
		a.observer.Authenticated(key, ResultUnknownProvider)
		return Outcome{}, err
	}

	ctx = WithKey(ctx, key)
	inst, err := a.cache.GetOrCreate(ctx, key, tpl, p.ConnectionData)
	if err != nil {
		a.observer.Authenticated(key, ResultError)
		return Outcome{}, err
	}

	out, err := inst.Authenticate(ctx, r, AuthOptions{Session: false})
	if err != nil {
		a.observer.Authenticated(key, ResultError)
		var de *DownstreamError
		if errors.As(err, &de) {
			return Outcome{}, err
		}
		return Outcome{}, &DownstreamError{Phase: PhaseAuthenticate, Key: key, Err: err}
	}

	out, err = a.verify(ctx, r, key, out)
	if err != nil {
		a.observer.Authenticated(key, ResultError)
		return Outcome{}, err
	}

	if out.Authenticated() {
		a.observer.Authenticated(key, ResultSuccess)
	} else {
		a.observer.Authenticated(key, ResultRejected)
	}
	return out, nil
}

package multipass

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// countingTemplate records constructions and delegated calls.
type countingTemplate struct {
	providerType string
	constructs   atomic.Int32
	calls        atomic.Int32
	gate         chan struct{} // when non-nil, constructors wait on it
	constructErr error
	authErr      error

	mu       sync.Mutex
	lastOpts Options
}

func (ct *countingTemplate) template() Template {
	return Template{
		ProviderType:   ct.providerType,
		OptionsBuilder: PassthroughOptions,
		ResultHandler: func(_ context.Context, p Profile) (Outcome, error) {
			if p.Subject == "" {
				return Outcome{}, nil
			}
			return Outcome{User: &User{
				Username:             p.Subject,
				AuthenticationSource: AuthenticationSource{Provider: p.Provider, Tenant: p.Tenant},
			}}, nil
		},
		Constructor: func(ctx context.Context, opts Options, handler ResultHandler) (Strategy, error) {
			ct.constructs.Add(1)
			ct.mu.Lock()
			ct.lastOpts = opts
			ct.mu.Unlock()
			if ct.gate != nil {
				select {
				case <-ct.gate:
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
			if ct.constructErr != nil {
				return nil, ct.constructErr
			}
			tenant, _ := opts["tenant"].(string)
			return &fakeStrategy{owner: ct, tenant: tenant, handler: handler}, nil
		},
	}
}

type fakeStrategy struct {
	owner   *countingTemplate
	tenant  string
	handler ResultHandler
}

func (f *fakeStrategy) Authenticate(ctx context.Context, r *http.Request, opts AuthOptions) (Outcome, error) {
	f.owner.calls.Add(1)
	if opts.Session {
		panic("session must be disabled")
	}
	if f.owner.authErr != nil {
		return Outcome{}, f.owner.authErr
	}
	return f.handler(ctx, Profile{
		Provider: f.owner.providerType,
		Tenant:   f.tenant,
		Subject:  r.Header.Get("X-User"),
	})
}

func newTestAuthenticator(t *testing.T, opts ...Option) (*Authenticator, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	mock.Set(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	base := []Option{
		WithClock(mock),
		WithLogger(zap.NewNop()),
		WithConfig(Config{
			IdleThreshold:    100 * time.Minute,
			SweepInterval:    time.Minute,
			ConstructTimeout: 5 * time.Second,
		}),
	}
	a, err := New(AcceptOutcome, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(a.Stop)
	return a, mock
}

func userRequest(user string) *http.Request {
	r, _ := http.NewRequest(http.MethodGet, "/auth", nil)
	if user != "" {
		r.Header.Set("X-User", user)
	}
	return r
}

func acmeParams(providerType string) Params {
	return Params{
		TenantID:       "acme",
		ProviderType:   providerType,
		ConnectionData: ConnectionData{"tenant": "acme", "client_id": "abc"},
	}
}

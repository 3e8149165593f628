package metrics

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/joeydtaylor/steeze-multipass/pkg/multipass"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func stubTemplate(providerType string, constructErr error) multipass.Template {
	return multipass.Template{
		ProviderType:   providerType,
		OptionsBuilder: multipass.PassthroughOptions,
		ResultHandler: func(_ context.Context, p multipass.Profile) (multipass.Outcome, error) {
			if p.Subject == "" {
				return multipass.Outcome{}, nil
			}
			return multipass.Outcome{User: &multipass.User{Username: p.Subject}}, nil
		},
		Constructor: func(_ context.Context, _ multipass.Options, h multipass.ResultHandler) (multipass.Strategy, error) {
			if constructErr != nil {
				return nil, constructErr
			}
			return multipass.StrategyFunc(func(ctx context.Context, r *http.Request, _ multipass.AuthOptions) (multipass.Outcome, error) {
				return h(ctx, multipass.Profile{Subject: r.Header.Get("X-User")})
			}), nil
		},
	}
}

func TestObserver_RecordsAuthenticatorEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := NewObserver(reg)
	require.NoError(t, err)

	mock := clock.NewMock()
	a, err := multipass.New(multipass.AcceptOutcome,
		multipass.WithClock(mock),
		multipass.WithLogger(zap.NewNop()),
		multipass.WithObserver(obs),
		multipass.WithConfig(multipass.Config{IdleThreshold: time.Minute, SweepInterval: time.Minute}),
	)
	require.NoError(t, err)
	require.NoError(t, a.Register(stubTemplate("jwt", nil)))
	require.NoError(t, a.Register(stubTemplate("saml", errors.New("metadata fetch failed"))))

	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User", "alice")
	for _, tenant := range []string{"acme", "globex", "acme"} {
		_, err := a.Authenticate(context.Background(), req, multipass.Params{TenantID: tenant, ProviderType: "jwt"})
		require.NoError(t, err)
	}
	anon, _ := http.NewRequest(http.MethodGet, "/", nil)
	_, _ = a.Authenticate(context.Background(), anon, multipass.Params{TenantID: "acme", ProviderType: "jwt"})
	_, _ = a.Authenticate(context.Background(), req, multipass.Params{TenantID: "acme", ProviderType: "saml"})
	_, _ = a.Authenticate(context.Background(), req, multipass.Params{TenantID: "acme", ProviderType: "oidc"})

	assert.Equal(t, 2.0, testutil.ToFloat64(obs.instances))
	assert.Equal(t, 2.0, testutil.ToFloat64(obs.constructions.WithLabelValues("jwt")))
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.constructFails.WithLabelValues("saml")))
	assert.Equal(t, 3.0, testutil.ToFloat64(obs.authentications.WithLabelValues("jwt", multipass.ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.authentications.WithLabelValues("jwt", multipass.ResultRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.authentications.WithLabelValues("saml", multipass.ResultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.authentications.WithLabelValues("oidc", multipass.ResultUnknownProvider)))

	mock.Add(2 * time.Minute)
	assert.Equal(t, 2, a.Sweeper().SweepOnce(mock.Now()))
	assert.Equal(t, 2.0, testutil.ToFloat64(obs.evictions.WithLabelValues("jwt")))
	assert.Equal(t, 0.0, testutil.ToFloat64(obs.instances))
}

func TestNewObserver_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewObserver(reg)
	require.NoError(t, err)
	second, err := NewObserver(reg)
	require.NoError(t, err)

	first.Authenticated(multipass.NewKey("acme", "jwt"), multipass.ResultSuccess)
	assert.Equal(t, 1.0, testutil.ToFloat64(second.authentications.WithLabelValues("jwt", multipass.ResultSuccess)))
}

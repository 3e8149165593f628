package devheader

import (
	"context"
	"net/http"
	"testing"

	"github.com/joeydtaylor/steeze-multipass/pkg/multipass"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func devRequest(user, role string) *http.Request {
	r, _ := http.NewRequest(http.MethodGet, "/auth/acme/dev", nil)
	if user != "" {
		r.Header.Set(HeaderUser, user)
	}
	if role != "" {
		r.Header.Set(HeaderRole, role)
	}
	return r
}

func authenticate(t *testing.T, a *multipass.Authenticator, tenant string, r *http.Request, conn multipass.ConnectionData) multipass.Outcome {
	t.Helper()
	out, err := a.Authenticate(context.Background(), r, multipass.Params{
		TenantID:       tenant,
		ProviderType:   ProviderType,
		ConnectionData: conn,
	})
	require.NoError(t, err)
	return out
}

func TestDevHeader(t *testing.T) {
	a, err := multipass.New(multipass.AcceptOutcome, multipass.WithLogger(zap.NewNop()))
	require.NoError(t, err)
	require.NoError(t, a.Register(Template(nil)))

	conn := multipass.ConnectionData{
		ConnAllowedUsers: []any{"alice", " bob "},
		ConnDefaultRole:  "user",
	}

	out := authenticate(t, a, "acme", devRequest("alice", "admin"), conn)
	require.True(t, out.Authenticated())
	assert.Equal(t, "admin", out.User.Role.Name)
	assert.Equal(t, multipass.AuthenticationSource{Provider: ProviderType, Tenant: "acme"}, out.User.AuthenticationSource)

	out = authenticate(t, a, "acme", devRequest("bob", ""), conn)
	require.True(t, out.Authenticated())
	assert.Equal(t, "user", out.User.Role.Name)

	out = authenticate(t, a, "acme", devRequest("mallory", ""), conn)
	assert.False(t, out.Authenticated())
	assert.Equal(t, "user not allowed", out.Info["message"])

	out = authenticate(t, a, "acme", devRequest("", ""), conn)
	assert.False(t, out.Authenticated())

	// a tenant without an allow list accepts anyone
	out = authenticate(t, a, "globex", devRequest("mallory", ""), nil)
	assert.True(t, out.Authenticated())
	assert.Equal(t, "globex", out.User.AuthenticationSource.Tenant)
}

func TestBuildOptions_Rejects(t *testing.T) {
	_, err := BuildOptions(multipass.ConnectionData{ConnAllowedUsers: "alice"})
	assert.Error(t, err)
	_, err = BuildOptions(multipass.ConnectionData{ConnAllowedUsers: []any{"alice", 7}})
	assert.Error(t, err)
}

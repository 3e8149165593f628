package manifest

import (
	"testing"
	"time"

	"github.com/joeydtaylor/steeze-multipass/pkg/multipass"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
[server]
service = "multipassd"
listen = ":4100"

[cache]
idle_threshold_ms = 120000

[[tenant]]
id = "acme"

  [[tenant.provider]]
  type = "jwt"
  connection = { issuer = "https://idp.acme.test", hmac_secret = "s3cr3t", leeway_seconds = 5 }

  [[tenant.provider]]
  type = "dev"

[[tenant]]
id = "globex"

  [[tenant.provider]]
  type = "jwt"
  connection = { issuer = "https://login.globex.test" }

[[route]]
path = "auth/{tenant}/{provider}/"
method = "post"
guard = { require_auth = true }
handler = { type = "whoami" }

[[route]]
path = "/hello"
handler = { type = "inproc", name = "hello" }
auth = { tenant = "acme", provider = "dev" }
policy = { timeout_ms = 250 }
`

func decode(t *testing.T, s string) Config {
	t.Helper()
	var cfg Config
	require.NoError(t, toml.Unmarshal([]byte(s), &cfg))
	return cfg
}

func TestValidate_Sample(t *testing.T) {
	cfg := decode(t, sample)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":4100", cfg.Server.Listen)
	assert.Equal(t, int64(120000), cfg.Cache.IdleThresholdMS)
	assert.Equal(t, int64(60000), cfg.Cache.SweepIntervalMS)
	require.Len(t, cfg.Tenants, 2)
	require.Len(t, cfg.Tenants[0].Providers, 2)

	require.Len(t, cfg.Routes, 2)
	assert.Equal(t, "/auth/{tenant}/{provider}", cfg.Routes[0].Path)
	assert.Equal(t, "POST", cfg.Routes[0].Method)
	assert.Equal(t, "GET", cfg.Routes[1].Method)
	require.NotNil(t, cfg.Routes[1].Auth)
	assert.Equal(t, "dev", cfg.Routes[1].Auth.Provider)
	assert.True(t, cfg.Routes[1].Authenticates())
}

func TestValidate_DefaultRoutes(t *testing.T) {
	cfg := Config{}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultRoutes(), cfg.Routes)
	assert.Equal(t, int64(6_000_000), cfg.Cache.IdleThresholdMS)
}

func TestValidate_Rejects(t *testing.T) {
	cases := map[string]Config{
		"negative threshold": {Cache: Cache{IdleThresholdMS: -1}},
		"blank tenant":       {Tenants: []Tenant{{ID: " "}}},
		"duplicate tenant":   {Tenants: []Tenant{{ID: "acme"}, {ID: "acme"}}},
		"duplicate provider": {Tenants: []Tenant{{ID: "acme", Providers: []Provider{{Type: "jwt"}, {Type: "jwt"}}}}},
		"colon provider":     {Tenants: []Tenant{{ID: "acme", Providers: []Provider{{Type: "a:b"}}}}},
		"blank provider":     {Tenants: []Tenant{{ID: "acme", Providers: []Provider{{}}}}},
		"missing path":       {Routes: []Route{{Method: "GET"}}},
		"unknown handler":    {Routes: []Route{{Path: "/x", Handler: HSpec{Type: "relay.publish"}}}},
		"inproc no name":     {Routes: []Route{{Path: "/x", Handler: HSpec{Type: HandlerInproc}}}},
		"negative timeout":   {Routes: []Route{{Path: "/x", Policy: Policy{TimeoutMS: -5}}}},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestCache_MultipassConfig(t *testing.T) {
	mc := Cache{IdleThresholdMS: 1500}.MultipassConfig()
	assert.Equal(t, 1500*time.Millisecond, mc.IdleThreshold)
	assert.Equal(t, time.Minute, mc.SweepInterval)
	assert.Equal(t, 30*time.Second, mc.ConstructTimeout)
	require.NoError(t, mc.Validate())
}

func TestCache_ConstructTimeoutZeroDisables(t *testing.T) {
	cfg := decode(t, "[cache]\nconstruct_timeout_ms = 0\n")
	require.NoError(t, cfg.Validate())
	assert.Zero(t, cfg.Cache.MultipassConfig().ConstructTimeout)

	cfg = decode(t, "[cache]\nidle_threshold_ms = 1000\n")
	require.NoError(t, cfg.Validate())
	assert.Equal(t, multipass.DefaultConstructTimeout, cfg.Cache.MultipassConfig().ConstructTimeout)

	negative := int64(-1)
	bad := Config{Cache: Cache{ConstructTimeoutMS: &negative}}
	assert.Error(t, bad.Validate())
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvListen:        ":9000",
		EnvIdleThreshold: "42",
		EnvSweepInterval: " 7 ",
	}
	cfg := Default()
	require.NoError(t, cfg.applyEnv(func(k string) string { return env[k] }))
	assert.Equal(t, ":9000", cfg.Server.Listen)
	assert.Equal(t, int64(42), cfg.Cache.IdleThresholdMS)
	assert.Equal(t, int64(7), cfg.Cache.SweepIntervalMS)
	require.NotNil(t, cfg.Cache.ConstructTimeoutMS)
	assert.Equal(t, int64(30000), *cfg.Cache.ConstructTimeoutMS)

	env[EnvConstructTimeout] = "0"
	require.NoError(t, cfg.applyEnv(func(k string) string { return env[k] }))
	assert.Zero(t, cfg.Cache.MultipassConfig().ConstructTimeout)

	env[EnvConstructTimeout] = "soon"
	assert.ErrorContains(t, cfg.applyEnv(func(k string) string { return env[k] }), EnvConstructTimeout)
}

func TestDirectory(t *testing.T) {
	cfg := decode(t, sample)
	require.NoError(t, cfg.Validate())
	d := NewDirectory(cfg.Tenants)

	cd, ok := d.Connection("acme", "jwt")
	require.True(t, ok)
	assert.Equal(t, "s3cr3t", cd["hmac_secret"])
	assert.Equal(t, int64(5), cd["leeway_seconds"])

	cd, ok = d.Connection("acme", "dev")
	require.True(t, ok)
	assert.Empty(t, cd)

	_, ok = d.Connection("globex", "dev")
	assert.False(t, ok)
	_, ok = d.Connection("initech", "jwt")
	assert.False(t, ok)
	assert.ElementsMatch(t, []string{"acme", "globex"}, d.Tenants())

	d.Replace(nil)
	_, ok = d.Connection("acme", "jwt")
	assert.False(t, ok)
}

package jwtbearer

import (
	"testing"
	"time"

	"github.com/joeydtaylor/steeze-multipass/pkg/multipass"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildOptions(t *testing.T) {
	opts, err := BuildOptions(multipass.ConnectionData{
		ConnIssuer:        " https://idp.acme.test ",
		ConnHMACSecret:    testSecret,
		ConnLeewaySeconds: int64(5),
	})
	require.NoError(t, err)
	s, err := settingsFrom(opts)
	require.NoError(t, err)
	assert.Equal(t, "https://idp.acme.test", s.issuer)
	assert.Equal(t, 5*time.Second, s.leeway)
	assert.Equal(t, []byte(testSecret), s.hmacSecret)

	opts, err = BuildOptions(multipass.ConnectionData{ConnJWKSURL: "https://idp.test/jwks.json"})
	require.NoError(t, err)
	s, _ = settingsFrom(opts)
	assert.Equal(t, defaultLeeway, s.leeway)
}

func TestBuildOptions_Rejects(t *testing.T) {
	cases := map[string]multipass.ConnectionData{
		"no key material":  {ConnIssuer: "x"},
		"two key sources":  {ConnHMACSecret: "a", ConnJWKSURL: "https://idp.test/jwks"},
		"bad pem":          {ConnPublicKeyPEM: "not a key"},
		"pem not pkix":     {ConnPublicKeyPEM: "-----BEGIN PUBLIC KEY-----\nAAAA\n-----END PUBLIC KEY-----\n"},
		"issuer not text":  {ConnIssuer: 42, ConnHMACSecret: "a"},
		"leeway not num":   {ConnHMACSecret: "a", ConnLeewaySeconds: true},
		"leeway negative":  {ConnHMACSecret: "a", ConnLeewaySeconds: -1.0},
		"leeway unparsed":  {ConnHMACSecret: "a", ConnLeewaySeconds: "soon"},
		"leeway too large": {ConnHMACSecret: "a", ConnLeewaySeconds: int64(maxLeewaySeconds + 1)},
	}
	for name, conn := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := BuildOptions(conn)
			assert.Error(t, err)
		})
	}
}

func TestSettingsFrom_Foreign(t *testing.T) {
	_, err := settingsFrom(multipass.Options{"issuer": "x"})
	assert.Error(t, err)
}

func TestSeconds(t *testing.T) {
	for _, v := range []any{30, int64(30), 30.0, "30"} {
		d, err := seconds(v)
		require.NoError(t, err)
		assert.Equal(t, 30*time.Second, d)
	}
}

package jwtbearer

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/joeydtaylor/steeze-multipass/pkg/multipass"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "s3cr3t-s3cr3t-s3cr3t-s3cr3t-s3cr3t"

var testRSAKey = sync.OnceValue(func() *rsa.PrivateKey {
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}
	return k
})

func newMockClock() *clock.Mock {
	m := clock.NewMock()
	m.Set(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	return m
}

func claimsAt(now time.Time, extra jwt.MapClaims) jwt.MapClaims {
	c := jwt.MapClaims{
		"iss": "https://idp.acme.test",
		"aud": "multipass",
		"sub": "alice",
		"iat": now.Unix(),
		"exp": now.Add(5 * time.Minute).Unix(),
	}
	for k, v := range extra {
		if v == nil {
			delete(c, k)
			continue
		}
		c[k] = v
	}
	return c
}

func signHMAC(t *testing.T, secret string, c jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func signRSA(t *testing.T, kid string, c jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, c)
	if kid != "" {
		tok.Header["kid"] = kid
	}
	s, err := tok.SignedString(testRSAKey())
	require.NoError(t, err)
	return s
}

func publicKeyPEM(t *testing.T) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(&testRSAKey().PublicKey)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

// jwksJSON publishes the test public key once per kid.
func jwksJSON(t *testing.T, kids ...string) []byte {
	t.Helper()
	set := jwk.NewSet()
	for _, kid := range kids {
		key, err := jwk.Import(&testRSAKey().PublicKey)
		require.NoError(t, err)
		require.NoError(t, key.Set(jwk.KeyIDKey, kid))
		require.NoError(t, key.Set(jwk.AlgorithmKey, "RS256"))
		require.NoError(t, key.Set(jwk.KeyUsageKey, "sig"))
		require.NoError(t, set.AddKey(key))
	}
	b, err := json.Marshal(set)
	require.NoError(t, err)
	return b
}

func newAuthenticator(t *testing.T, tpl multipass.Template) *multipass.Authenticator {
	t.Helper()
	a, err := multipass.New(multipass.AcceptOutcome, multipass.WithLogger(zap.NewNop()))
	require.NoError(t, err)
	require.NoError(t, a.Register(tpl))
	return a
}

func bearer(tok string) *http.Request {
	r, _ := http.NewRequest(http.MethodGet, "/auth/acme/jwt", nil)
	if tok != "" {
		r.Header.Set("Authorization", "Bearer "+tok)
	}
	return r
}

func authAs(t *testing.T, a *multipass.Authenticator, r *http.Request, conn multipass.ConnectionData) multipass.Outcome {
	t.Helper()
	out, err := a.Authenticate(context.Background(), r, multipass.Params{
		TenantID:       "acme",
		ProviderType:   ProviderType,
		ConnectionData: conn,
	})
	require.NoError(t, err)
	return out
}

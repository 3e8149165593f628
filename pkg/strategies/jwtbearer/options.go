package jwtbearer

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joeydtaylor/steeze-multipass/pkg/multipass"
)

// Connection data keys understood by BuildOptions.
const (
	ConnIssuer        = "issuer"
	ConnAudience      = "audience"
	ConnHMACSecret    = "hmac_secret"
	ConnPublicKeyPEM  = "public_key_pem"
	ConnJWKSURL       = "jwks_url"
	ConnKID           = "kid"
	ConnLeewaySeconds = "leeway_seconds"
	ConnCookieName    = "cookie_name"
)

const (
	defaultLeeway      = 60 * time.Second
	optSettingsKey     = "jwtbearer.settings"
	maxLeewaySeconds   = 24 * 60 * 60
	maxConnStringBytes = 64 << 10
)

type settings struct {
	issuer     string
	audience   string
	hmacSecret []byte
	publicKey  *rsa.PublicKey
	jwksURL    string
	kid        string
	leeway     time.Duration
	cookieName string
}

// BuildOptions validates a tenant's connection data. Exactly one of
// hmac_secret, public_key_pem or jwks_url must be set.
func BuildOptions(conn multipass.ConnectionData) (multipass.Options, error) {
	s := settings{leeway: defaultLeeway}
	var err error
	if s.issuer, err = connString(conn, ConnIssuer); err != nil {
		return nil, err
	}
	if s.audience, err = connString(conn, ConnAudience); err != nil {
		return nil, err
	}
	if s.jwksURL, err = connString(conn, ConnJWKSURL); err != nil {
		return nil, err
	}
	if s.kid, err = connString(conn, ConnKID); err != nil {
		return nil, err
	}
	if s.cookieName, err = connString(conn, ConnCookieName); err != nil {
		return nil, err
	}
	secret, err := connString(conn, ConnHMACSecret)
	if err != nil {
		return nil, err
	}
	if secret != "" {
		s.hmacSecret = []byte(secret)
	}
	pemText, err := connString(conn, ConnPublicKeyPEM)
	if err != nil {
		return nil, err
	}
	if pemText != "" {
		if s.publicKey, err = jwt.ParseRSAPublicKeyFromPEM([]byte(pemText)); err != nil {
			return nil, fmt.Errorf("%s: %w", ConnPublicKeyPEM, err)
		}
	}
	if v, ok := conn[ConnLeewaySeconds]; ok {
		n, err := seconds(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ConnLeewaySeconds, err)
		}
		s.leeway = n
	}

	sources := 0
	for _, set := range []bool{s.hmacSecret != nil, s.publicKey != nil, s.jwksURL != ""} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return nil, fmt.Errorf("exactly one of %s, %s, %s required", ConnHMACSecret, ConnPublicKeyPEM, ConnJWKSURL)
	}
	return multipass.Options{optSettingsKey: s}, nil
}

func settingsFrom(opts multipass.Options) (settings, error) {
	s, ok := opts[optSettingsKey].(settings)
	if !ok {
		return settings{}, errors.New("jwtbearer: options not built by BuildOptions")
	}
	return s, nil
}

func connString(conn multipass.ConnectionData, k string) (string, error) {
	v, ok := conn[k]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s: want string, got %T", k, v)
	}
	if len(s) > maxConnStringBytes {
		return "", fmt.Errorf("%s: too long", k)
	}
	return strings.TrimSpace(s), nil
}

// seconds accepts the number shapes TOML and JSON decoders produce.
func seconds(v any) (time.Duration, error) {
	var n float64
	switch x := v.(type) {
	case int:
		n = float64(x)
	case int64:
		n = float64(x)
	case float64:
		n = x
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, err
		}
		n = f
	default:
		return 0, fmt.Errorf("want number, got %T", v)
	}
	if math.IsNaN(n) || n < 0 || n > maxLeewaySeconds {
		return 0, fmt.Errorf("out of range: %v", v)
	}
	return time.Duration(n * float64(time.Second)), nil
}

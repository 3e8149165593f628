package jwtbearer

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joeydtaylor/steeze-multipass/pkg/multipass"
)

// Strategy verifies bearer JWTs for one tenant.
type Strategy struct {
	parser     *jwt.Parser
	keyfunc    jwt.Keyfunc
	keys       *keySet
	cookieName string
	handler    multipass.ResultHandler
}

func newStrategy(ctx context.Context, s settings, handler multipass.ResultHandler, c config) (*Strategy, error) {
	st := &Strategy{cookieName: s.cookieName, handler: handler}

	var methods []string
	switch {
	case s.hmacSecret != nil:
		secret := s.hmacSecret
		methods = []string{"HS256", "HS384", "HS512"}
		st.keyfunc = func(*jwt.Token) (any, error) { return secret, nil }
	case s.publicKey != nil:
		pub := s.publicKey
		methods = []string{"RS256", "RS384", "RS512"}
		st.keyfunc = func(*jwt.Token) (any, error) { return pub, nil }
	default:
		ks, err := newKeySet(ctx, s.jwksURL, s.kid, c)
		if err != nil {
			return nil, err
		}
		st.keys = ks
		methods = []string{"RS256", "RS384", "RS512"}
		st.keyfunc = ks.keyFor
	}

	popts := []jwt.ParserOption{
		jwt.WithValidMethods(methods),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(s.leeway),
		jwt.WithTimeFunc(c.clock.Now),
	}
	if s.issuer != "" {
		popts = append(popts, jwt.WithIssuer(s.issuer))
	}
	if s.audience != "" {
		popts = append(popts, jwt.WithAudience(s.audience))
	}
	st.parser = jwt.NewParser(popts...)
	return st, nil
}

// Authenticate validates the bearer token and hands the verified claims to
// the template's ResultHandler. Missing or invalid tokens reject without an
// error.
func (s *Strategy) Authenticate(ctx context.Context, r *http.Request, _ multipass.AuthOptions) (multipass.Outcome, error) {
	raw := s.token(r)
	if raw == "" {
		return rejected("missing bearer token"), nil
	}
	claims := jwt.MapClaims{}
	tok, err := s.parser.ParseWithClaims(raw, claims, s.keyfunc)
	if err != nil || !tok.Valid {
		return rejected("invalid token"), nil
	}

	uid, _ := claims["uid"].(string)
	sub, _ := claims.GetSubject()
	subject := first(uid, sub)
	if subject == "" {
		return rejected("missing uid"), nil
	}

	key, _ := multipass.KeyFromContext(ctx)
	return s.handler(ctx, multipass.Profile{
		Provider: key.ProviderType,
		Tenant:   key.TenantID,
		Subject:  subject,
		Claims:   claims,
	})
}

// Close releases the JWKS refresher of an evicted instance.
func (s *Strategy) Close() error {
	if s.keys == nil {
		return nil
	}
	return s.keys.Close()
}

func (s *Strategy) token(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
	}
	if s.cookieName != "" {
		if c, err := r.Cookie(s.cookieName); err == nil && c.Value != "" {
			return c.Value
		}
	}
	return ""
}

func rejected(msg string) multipass.Outcome {
	return multipass.Outcome{Info: multipass.Info{"message": msg}}
}

package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/joeydtaylor/steeze-multipass/pkg/codec"
	"github.com/joeydtaylor/steeze-multipass/pkg/multipass"
	"go.uber.org/zap"
)

// ErrUnknownTenant reports a registered provider type the tenant has no
// connection data for.
var ErrUnknownTenant = errors.New("auth: unknown tenant")

// ResultUnknownTenant is recorded alongside the multipass result labels.
const ResultUnknownTenant = "unknown_tenant"

// Track installs the per-request auth state. Mount it outside the access log
// and metrics middleware so they observe outcomes decided further in,
// including refusals answered by Middleware.
func (m *Middleware) Track() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, _ := withState(r.Context())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Middleware installs per-request auth state and authenticates requests that
// name their tenant and provider in the X-Tenant-ID / X-Auth-Provider
// headers. Requests without them continue unauthenticated.
func (m *Middleware) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, s := withState(r.Context())
			r = r.WithContext(ctx)

			tenant := r.Header.Get(HeaderTenant)
			provider := r.Header.Get(HeaderProvider)
			if tenant == "" && provider == "" {
				next.ServeHTTP(w, r)
				return
			}
			if !m.authenticate(w, r, s, tenant, provider) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Require authenticates before calling next. Tenant and provider type come
// from pin when set, then the {tenant} and {provider} path params, then the
// request headers. Requests naming neither, and rejected credentials,
// continue unauthenticated so the route guard decides; configuration and
// downstream failures are answered here.
func (m *Middleware) Require(pin multipass.Key) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			ctx, s := withState(r.Context())
			r = r.WithContext(ctx)

			tenant := first(pin.TenantID, chi.URLParam(r, "tenant"), r.Header.Get(HeaderTenant))
			provider := first(pin.ProviderType, chi.URLParam(r, "provider"), r.Header.Get(HeaderProvider))

			// nothing to authenticate against; the guard decides
			if tenant == "" && provider == "" {
				next(w, r)
				return
			}
			// Middleware already tried this key; reuse its outcome
			if s.result != "" && s.key == multipass.NewKey(tenant, provider) {
				next(w, r)
				return
			}
			if !m.authenticate(w, r, s, tenant, provider) {
				return
			}
			next(w, r)
		}
	}
}

// authenticate runs the Authenticator and records the outcome in s. It
// returns false after writing an error response.
func (m *Middleware) authenticate(w http.ResponseWriter, r *http.Request, s *state, tenant, provider string) bool {
	key := multipass.NewKey(strings.TrimSpace(tenant), strings.TrimSpace(provider))
	s.key = key
	s.user = User{}

	var (
		out multipass.Outcome
		err error
	)
	conn, found := m.connection(key)
	if !found && key.TenantID != "" && key.ProviderType != "" {
		if _, lerr := m.authn.Registry().Lookup(key.ProviderType); lerr == nil {
			err = fmt.Errorf("%w: %q has no %q connection", ErrUnknownTenant, key.TenantID, key.ProviderType)
		}
	}
	if err == nil {
		out, err = m.authn.Authenticate(r.Context(), r, multipass.Params{
			TenantID:       key.TenantID,
			ProviderType:   key.ProviderType,
			ConnectionData: conn,
		})
	}
	if err != nil {
		s.result = resultFor(err)
		m.writeError(w, r, key, err)
		return false
	}

	if out.Authenticated() {
		s.user = *out.User
		s.result = multipass.ResultSuccess
	} else {
		s.result = multipass.ResultRejected
	}
	return true
}

func (m *Middleware) connection(key multipass.Key) (multipass.ConnectionData, bool) {
	if m.dir == nil {
		return nil, false
	}
	return m.dir.Connection(key.TenantID, key.ProviderType)
}

func (m *Middleware) writeError(w http.ResponseWriter, r *http.Request, key multipass.Key, err error) {
	code := StatusFor(err)
	fields := []zap.Field{
		zap.String("tenant", key.TenantID),
		zap.String("provider", key.ProviderType),
		zap.String("uri", r.URL.Path),
		zap.Int("status", code),
		zap.Error(err),
	}
	if code >= http.StatusInternalServerError {
		m.log.Error("authentication failed", fields...)
	} else {
		m.log.Warn("authentication refused", fields...)
	}
	WriteError(w, code)
}

type errorBody struct {
	Error string `json:"error"`
}

// WriteError answers with code and a {"error": "<status text>"} body.
func WriteError(w http.ResponseWriter, code int) {
	b, err := codec.JSONStrict.Marshal(errorBody{Error: http.StatusText(code)})
	if err != nil {
		http.Error(w, http.StatusText(code), code)
		return
	}
	w.Header().Set("Content-Type", codec.JSONStrict.ContentType())
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	_, _ = w.Write(b)
}

// StatusFor maps an Authenticate error onto an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, multipass.ErrInvalidParams):
		return http.StatusBadRequest
	case errors.Is(err, multipass.ErrUnknownProviderType), errors.Is(err, ErrUnknownTenant):
		return http.StatusUnauthorized
	case multipass.IsDownstream(err):
		return http.StatusBadGateway
	default:
		return http.StatusUnauthorized
	}
}

func resultFor(err error) string {
	switch {
	case errors.Is(err, multipass.ErrUnknownProviderType):
		return multipass.ResultUnknownProvider
	case errors.Is(err, ErrUnknownTenant):
		return ResultUnknownTenant
	default:
		return multipass.ResultError
	}
}

func first(ss ...string) string {
	for _, s := range ss {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

package core

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/joeydtaylor/steeze-multipass/pkg/codec"
	manifest "github.com/joeydtaylor/steeze-multipass/pkg/manifest"
	"github.com/joeydtaylor/steeze-multipass/pkg/middleware/auth"
	"github.com/joeydtaylor/steeze-multipass/pkg/multipass"
)

const maxInprocBody = 1 << 20

type whoamiResponse struct {
	User     auth.User `json:"user"`
	Tenant   string    `json:"tenant"`
	Provider string    `json:"provider"`
}

type instanceView struct {
	Key       string    `json:"key"`
	Tenant    string    `json:"tenant"`
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"createdAt"`
	LastUsed  time.Time `json:"lastUsed"`
}

type evictRequest struct {
	Tenant   string `json:"tenant"`
	Provider string `json:"provider"`
}

type evictResponse struct {
	Key     string `json:"key"`
	Removed bool   `json:"removed"`
}

func wrapRoute(rt manifest.Route, d BuildDeps) http.HandlerFunc {
	c := d.Codec
	if c == nil {
		c = codec.JSONStrict
	}

	switch rt.Handler.Type {
	case manifest.HandlerInproc:
		h, ok := Lookup(rt.Handler.Name)
		if !ok {
			return func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "handler not found", http.StatusInternalServerError)
			}
		}
		return func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(io.LimitReader(r.Body, maxInprocBody))
			if err != nil {
				http.Error(w, "bad request body", http.StatusBadRequest)
				return
			}
			out, status, err := h(r.Context(), body)
			if err != nil {
				http.Error(w, err.Error(), statusIf(status, http.StatusInternalServerError))
				return
			}
			writeJSON(w, out, statusIf(status, http.StatusOK))
		}

	case manifest.HandlerWhoami:
		return func(w http.ResponseWriter, r *http.Request) {
			if d.Auth == nil || !d.Auth.IsAuthenticated(r.Context()) {
				unauthorized(w)
				return
			}
			resp := whoamiResponse{User: d.Auth.GetUser(r.Context())}
			if key, ok := auth.KeyFromContext(r.Context()); ok {
				resp.Tenant, resp.Provider = key.TenantID, key.ProviderType
			}
			encode(w, c, resp)
		}

	case manifest.HandlerInstances:
		return func(w http.ResponseWriter, _ *http.Request) {
			if d.Auth == nil {
				encode(w, c, []instanceView{})
				return
			}
			snap := d.Auth.Authenticator().Cache().Snapshot()
			views := make([]instanceView, 0, len(snap))
			for _, e := range snap {
				views = append(views, instanceView{
					Key:       e.Key.String(),
					Tenant:    e.Key.TenantID,
					Provider:  e.Key.ProviderType,
					CreatedAt: e.CreatedAt.UTC(),
					LastUsed:  e.LastUsed.UTC(),
				})
			}
			encode(w, c, views)
		}

	case manifest.HandlerEvict:
		return func(w http.ResponseWriter, r *http.Request) {
			if d.Auth == nil {
				auth.WriteError(w, http.StatusServiceUnavailable)
				return
			}
			body, err := io.ReadAll(io.LimitReader(r.Body, maxInprocBody))
			if err != nil {
				auth.WriteError(w, http.StatusBadRequest)
				return
			}
			var req evictRequest
			if err := c.Unmarshal(body, &req); err != nil || req.Tenant == "" || req.Provider == "" {
				auth.WriteError(w, http.StatusBadRequest)
				return
			}
			key := multipass.NewKey(req.Tenant, req.Provider)
			encode(w, c, evictResponse{
				Key:     key.String(),
				Removed: d.Auth.Authenticator().Cache().Remove(key),
			})
		}
	}

	return func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unsupported handler", http.StatusInternalServerError)
	}
}

func encode(w http.ResponseWriter, c codec.Codec, v any) {
	b, err := c.Marshal(v)
	if err != nil {
		http.Error(w, "encode failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", c.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

// writeJSON writes an inproc handler's payload as-is; an empty payload
// becomes {}.
func writeJSON(w http.ResponseWriter, payload []byte, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if len(payload) == 0 {
		payload = []byte(`{}`)
	}
	_, _ = w.Write(payload)
}

func statusIf(s, def int) int {
	if s > 0 {
		return s
	}
	return def
}

// withTimeout bounds the whole route, authentication included. A zero
// duration leaves the route unbounded.
func withTimeout(next http.HandlerFunc, d time.Duration) http.HandlerFunc {
	if d <= 0 {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), d)
		defer cancel()
		next(w, r.WithContext(ctx))
	}
}

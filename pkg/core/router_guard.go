package core

import (
	"net/http"
	"slices"

	manifest "github.com/joeydtaylor/steeze-multipass/pkg/manifest"
	"github.com/joeydtaylor/steeze-multipass/pkg/middleware/auth"
)

func withGuard(next http.HandlerFunc, a *auth.Middleware, g manifest.Guard) http.HandlerFunc {
	needsUser := g.RequireAuth || len(g.Users) > 0 || len(g.Roles) > 0
	return func(w http.ResponseWriter, r *http.Request) {
		if !needsUser {
			next(w, r)
			return
		}
		// If no auth middleware wired, routes that need a user are closed
		if a == nil || !a.IsAuthenticated(r.Context()) {
			unauthorized(w)
			return
		}

		u := a.GetUser(r.Context())
		if len(g.Users) > 0 && !slices.Contains(g.Users, u.Username) && !a.IsAdmin(r.Context()) {
			auth.WriteError(w, http.StatusForbidden)
			return
		}
		if len(g.Roles) > 0 && !slices.Contains(g.Roles, u.Role.Name) && !a.IsAdmin(r.Context()) {
			auth.WriteError(w, http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="multipass"`)
	auth.WriteError(w, http.StatusUnauthorized)
}

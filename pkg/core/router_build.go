package core

import (
	"net/http"
	"slices"
	"time"

	chimd "github.com/go-chi/chi/v5/middleware"
	manifest "github.com/joeydtaylor/steeze-multipass/pkg/manifest"
	"github.com/joeydtaylor/steeze-multipass/pkg/middleware/logger"
	hmetrics "github.com/joeydtaylor/steeze-multipass/pkg/middleware/metrics"
	"github.com/joeydtaylor/steeze-multipass/pkg/multipass"
)

func BuildRouter(cfg manifest.Config, d BuildDeps) http.Handler {
	r := d.Router
	r.Use(chimd.RequestID, chimd.Recoverer, chimd.Heartbeat("/ping"))

	if d.Auth != nil {
		r.Use(d.Auth.Track())
		if d.LogMW != nil {
			r.Use(d.LogMW.Middleware(d.Auth))
		}
		// metrics collector that references auth state without copying it
		r.Use(hmetrics.Collect(d.Auth))
		r.Use(d.Auth.Middleware())
	} else if d.LogMW != nil {
		r.Use(d.LogMW.Middleware(nil))
	}

	if d.Metrics != nil {
		r.Handle(http.MethodGet, "/metrics", d.Metrics)
	}

	for _, rt := range cfg.Routes {
		h := wrapRoute(rt, d)
		h = withGuard(h, d.Auth, rt.Guard)
		if d.Auth != nil && rt.Authenticates() {
			var pin multipass.Key
			if rt.Auth != nil {
				pin = multipass.NewKey(rt.Auth.Tenant, rt.Auth.Provider)
			}
			h = d.Auth.Require(pin)(h)
		}
		h = withTimeout(h, time.Duration(rt.Policy.TimeoutMS)*time.Millisecond)
		if slices.Contains(rt.Tags, logger.TagLogBody) {
			logger.AddBodyLogPaths(rt.Path)
		}

		r.Handle(rt.Method, rt.Path, h)
	}
	return r.Mux()
}

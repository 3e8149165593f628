package serverfx

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/joeydtaylor/steeze-multipass/pkg/bundlefx"
	"github.com/joeydtaylor/steeze-multipass/pkg/core"
	"github.com/joeydtaylor/steeze-multipass/pkg/manifest"
	"github.com/joeydtaylor/steeze-multipass/pkg/middleware/auth"
	"github.com/joeydtaylor/steeze-multipass/pkg/middleware/logger"
	"github.com/joeydtaylor/steeze-multipass/pkg/transport/httpx"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Options allow per-service env keys/defaults without code duplication.
type Options struct {
	Service         string // for logs only
	ManifestEnv     string // e.g. "MULTIPASS_MANIFEST"
	DefaultManifest string // e.g. "manifest.toml"
	DefaultListen   string // e.g. ":4000"; manifest [server] listen and SERVER_LISTEN_ADDRESS win
	TLSCertEnv      string // e.g. "SSL_SERVER_CERTIFICATE"
	TLSKeyEnv       string // e.g. "SSL_SERVER_KEY"
}

func (o Options) withDefaults() Options {
	if o.Service == "" {
		o.Service = "multipass"
	}
	if o.ManifestEnv == "" {
		o.ManifestEnv = "MULTIPASS_MANIFEST"
	}
	if o.DefaultManifest == "" {
		o.DefaultManifest = "manifest.toml"
	}
	if o.DefaultListen == "" {
		o.DefaultListen = ":4000"
	}
	if o.TLSCertEnv == "" {
		o.TLSCertEnv = "SSL_SERVER_CERTIFICATE"
	}
	if o.TLSKeyEnv == "" {
		o.TLSKeyEnv = "SSL_SERVER_KEY"
	}
	return o
}

// ---- Manifest ----

// provideManifest loads the manifest named by ManifestEnv. A missing default
// manifest falls back to the built-in routes with no tenants.
func provideManifest(opts Options, log *zap.Logger) (manifest.Config, error) {
	path := envOr(opts.ManifestEnv, opts.DefaultManifest)
	if os.Getenv(opts.ManifestEnv) == "" && !fileExists(path) {
		log.Warn("manifest not found; using defaults", zap.String("path", path))
		cfg := manifest.Default()
		if err := cfg.ApplyEnv(); err != nil {
			return manifest.Config{}, err
		}
		if err := cfg.Validate(); err != nil {
			return manifest.Config{}, err
		}
		return cfg, nil
	}
	cfg, err := core.LoadConfig(path)
	if err != nil {
		return manifest.Config{}, err
	}
	log.Info("manifest loaded",
		zap.String("path", path),
		zap.Int("tenants", len(cfg.Tenants)),
		zap.Int("routes", len(cfg.Routes)),
	)
	return cfg, nil
}

func provideDirectory(cfg manifest.Config) *manifest.Directory {
	return manifest.NewDirectory(cfg.Tenants)
}

// ---- Router ----

type routerDeps struct {
	fx.In

	Manifest manifest.Config
	AuthMW   *auth.Middleware
	LogMW    *logger.Middleware
	Metrics  http.Handler `name:"metrics"`
	R        httpx.Router
}

func provideRouter(d routerDeps) http.Handler {
	return core.BuildRouter(d.Manifest, core.BuildDeps{
		Auth:    d.AuthMW,
		LogMW:   d.LogMW,
		Metrics: d.Metrics,
		Router:  d.R,
	})
}

// ---- Server lifecycle ----

type serverDeps struct {
	fx.In
	Opts     Options
	Manifest manifest.Config
	Logger   *zap.Logger
	App      http.Handler `name:"app"`
}

func registerHooks(lc fx.Lifecycle, d serverDeps) {
	addr := d.Manifest.Server.Listen
	if addr == "" {
		addr = d.Opts.DefaultListen
	}
	cert := os.Getenv(d.Opts.TLSCertEnv)
	key := os.Getenv(d.Opts.TLSKeyEnv)

	srv := &http.Server{
		Addr:              addr,
		Handler:           d.App,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS13, MaxVersion: tls.VersionTLS13},
	}
	useTLS := fileExists(cert) && fileExists(key)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if useTLS {
				d.Logger.Info("server starting (TLS)",
					zap.String("service", d.Opts.Service),
					zap.String("addr", addr),
					zap.String("cert", cert),
				)
				go func() {
					if err := srv.ListenAndServeTLS(cert, key); err != nil && !errors.Is(err, http.ErrServerClosed) {
						d.Logger.Fatal("server failed", zap.Error(err))
					}
				}()
				return nil
			}
			d.Logger.Info("server starting (PLAINTEXT)",
				zap.String("service", d.Opts.Service),
				zap.String("addr", addr),
			)
			srv.TLSConfig = nil
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					d.Logger.Fatal("server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			d.Logger.Info("server stopping", zap.String("service", d.Opts.Service))
			return srv.Shutdown(ctx)
		},
	})
}

// ---- Public Fx module ----

// Module returns a complete Fx option set; add app-specific fx.Invoke(...)
// or auth.AsTemplate providers alongside.
func Module(opts Options) fx.Option {
	return fx.Options(
		fx.Supply(opts.withDefaults()),

		// Manifest + tenant directory
		fx.Provide(provideManifest, provideDirectory),

		// auth (multipass), logger, metrics
		bundlefx.Module,

		// Router implementation
		fx.Provide(httpx.NewChi),

		// Router (named "app")
		fx.Provide(
			fx.Annotate(
				provideRouter,
				fx.ResultTags(`name:"app"`),
			),
		),

		// App lifecycle (HTTP server)
		fx.Invoke(registerHooks),
	)
}

// ---- helpers ----

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

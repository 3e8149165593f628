// Command multipassd serves the multipass authenticator over HTTP.
package main

import (
	"github.com/joeydtaylor/steeze-multipass/pkg/serverfx"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	fx.New(
		serverfx.Module(serverfx.Options{
			Service:         "multipassd",
			ManifestEnv:     "MULTIPASS_MANIFEST",
			DefaultManifest: "manifest.toml",
			DefaultListen:   ":4000",
		}),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Named("fx")}
		}),
	).Run()
}

package logger

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Options(
	fx.Provide(ProvideLoggerMiddleware),
	fx.Provide(ProvideLogger),
	fx.Invoke(syncOnStop),
)

// syncOnStop flushes the system and access logs on shutdown. Sync errors on
// stdout are expected on some platforms and are ignored.
func syncOnStop(lc fx.Lifecycle, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			_ = log.Sync()
			accessMu.Lock()
			al := accessLogger
			accessMu.Unlock()
			if al != nil {
				_ = al.Sync()
			}
			return nil
		},
	})
}

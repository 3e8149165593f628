// bundlefx/bundlefx.go
package bundlefx

import (
	"github.com/joeydtaylor/steeze-multipass/pkg/middleware/auth"
	"github.com/joeydtaylor/steeze-multipass/pkg/middleware/logger"
	"github.com/joeydtaylor/steeze-multipass/pkg/middleware/metrics"
	"go.uber.org/fx"
)

// Module provides the multipass Authenticator and auth middleware, the zap
// loggers and the prometheus handler/observer. The host supplies
// manifest.Config and *manifest.Directory.
var Module = fx.Options(
	logger.Module,
	metrics.Module,
	auth.Module,
)

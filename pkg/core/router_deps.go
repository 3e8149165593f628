package core

import (
	"net/http"

	"github.com/joeydtaylor/steeze-multipass/pkg/codec"
	"github.com/joeydtaylor/steeze-multipass/pkg/middleware/auth"
	"github.com/joeydtaylor/steeze-multipass/pkg/middleware/logger"
	httpx "github.com/joeydtaylor/steeze-multipass/pkg/transport/httpx"
)

type BuildDeps struct {
	Auth    *auth.Middleware
	LogMW   *logger.Middleware
	Metrics http.Handler
	Router  httpx.Router
	Codec   codec.Codec // defaults to codec.JSONStrict
}

package auth

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joeydtaylor/steeze-multipass/pkg/manifest"
	"github.com/joeydtaylor/steeze-multipass/pkg/multipass"
	"github.com/joeydtaylor/steeze-multipass/pkg/strategies/devheader"
	"github.com/joeydtaylor/steeze-multipass/pkg/strategies/jwtbearer"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// TemplateGroup is the fx value group hosts add their own templates to.
// Host templates replace built-ins of the same provider type.
const TemplateGroup = `group:"multipass.templates"`

// AsTemplate annotates a constructor returning multipass.Template so that
// its result joins TemplateGroup.
func AsTemplate(f any) any {
	return fx.Annotate(f, fx.ResultTags(TemplateGroup))
}

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Logger    *zap.Logger
	Manifest  manifest.Config
	Directory *manifest.Directory

	Observer  multipass.Observer   `optional:"true"`
	Verify    multipass.VerifyFunc `optional:"true"`
	Templates []multipass.Template `group:"multipass.templates"`
}

type Result struct {
	fx.Out

	Middleware    *Middleware
	Authenticator *multipass.Authenticator
}

// ProvideAuthentication builds the Authenticator from the manifest's cache
// settings, registers the built-in templates and ties the sweeper to the
// fx lifecycle. The dev header strategy is only registered when
// AUTH_DEV_BYPASS=true.
func ProvideAuthentication(p Params) (Result, error) {
	verify := p.Verify
	if verify == nil {
		verify = multipass.AcceptOutcome
	}
	a, err := multipass.New(verify,
		multipass.WithConfig(p.Manifest.Cache.MultipassConfig()),
		multipass.WithLogger(p.Logger),
		multipass.WithObserver(p.Observer),
	)
	if err != nil {
		return Result{}, err
	}

	if err := a.Register(jwtbearer.Template(nil)); err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(os.Getenv("AUTH_DEV_BYPASS")) == "true" {
		p.Logger.Warn("dev header authentication enabled", zap.String("provider", devheader.ProviderType))
		if err := a.Register(devheader.Template(nil)); err != nil {
			return Result{}, err
		}
	}
	for _, t := range p.Templates {
		if err := a.Registry().Replace(t); err != nil {
			return Result{}, fmt.Errorf("template %q: %w", t.ProviderType, err)
		}
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error { return a.Start() },
		OnStop: func(context.Context) error {
			a.Stop()
			return nil
		},
	})

	adminRole := strings.TrimSpace(os.Getenv("ADMIN_ROLE_NAME"))
	if adminRole == "" {
		adminRole = DefaultAdminRole
	}
	return Result{
		Middleware:    NewMiddleware(a, p.Directory, adminRole, p.Logger),
		Authenticator: a,
	}, nil
}

// Package multipass multiplexes authentication across tenants and provider
// types.
//
// Hosts register one Template per provider type (for example "oauth2" or
// "jwt"). The first request for a (tenant, provider type) pair builds a
// strategy instance from the template and that tenant's connection data;
// later requests reuse the cached instance. A Sweeper evicts instances that
// have not been used for Config.IdleThreshold, so the next request rebuilds
// them with whatever connection data is current.
//
//	auth, err := multipass.New(multipass.AcceptOutcome,
//	    multipass.WithConfig(cfg),
//	    multipass.WithLogger(log),
//	)
//	auth.Registry().MustRegister(jwtbearer.Template(handler))
//	_ = auth.Start()
//	defer auth.Stop()
//
//	out, err := auth.Authenticate(ctx, r, multipass.Params{
//	    TenantID:       "acme",
//	    ProviderType:   "jwt",
//	    ConnectionData: conn,
//	})
package multipass

// Package bootstrap runs a flowgen process: it validates the typed config,
// initializes the global logger, starts registered components in order,
// runs lifecycle hooks, waits for a shutdown signal and stops everything in
// reverse order within a graceful timeout.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RegisterComponent(redisComponent)
//	app.RegisterComponent(httpComponent)
//	err = app.Run(ctx)
package bootstrap

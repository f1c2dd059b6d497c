// Package app is the composition root for vitrine.
//
// Run loads configuration and preferences, builds the logger, the catalog
// client, the list synchronizer and the mutation coordinator, then hands them
// to the UI and blocks until it exits:
//
//	config.Load()          config file, env overrides, CLI overrides
//	prefs.Load()           theme and last-used filters
//	devserver.Start()      only with Options.Demo
//	catalog.NewClient()    rate-limited, traced HTTP client
//	listing.New()          snapshot owner
//	mutation.NewCoordinator()
//	ui.Run()               blocks
//
// On exit Run waits up to the request timeout for deletes and creates that
// are still in flight, so a confirmed delete is not lost by quitting.
package app

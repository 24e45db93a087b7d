// Package app provides the application context for labctl.
//
// This package manages application-wide dependencies using the functional
// options pattern, enabling easy testing through dependency injection.
//
// # App Context
//
// The App struct holds core dependencies:
//
//	type App struct {
//	    Config   *config.Config   // Loaded configuration
//	    Paths    *config.Paths    // Client-side state files
//	    API      *api.Client      // Lab API client
//	    Progress progress.Store   // Completed labs
//	    Audit    *audit.Logger    // Session action log
//	    Dialer   terminal.Dialer  // Terminal connections
//	    Opener   *system.Opener   // Browser launcher
//	}
//
// # Creating an App
//
// Use New with functional options:
//
//	// Production usage
//	cfg, err := config.Load("")
//	a := app.New(app.WithConfig(cfg))
//
//	// Testing with custom dependencies
//	a := app.New(
//	    app.WithConfig(testConfig),
//	    app.WithProgress(progress.NewMemoryStore()),
//	    app.WithDialer(fakeDialer),
//	)
//
// The command tree uses app.Default, replacing it once the configuration
// has been loaded unless a test has already installed a configured App.
package app

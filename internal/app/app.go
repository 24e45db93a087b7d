package app

import (
	"os"

	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/admin"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/api"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/audit"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/lab"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/manifest"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/progress"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/system"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/terminal"
)

// App holds the application dependencies
type App struct {
	// Config is the loaded configuration
	Config *config.Config

	// Paths holds the client-side state locations
	Paths *config.Paths

	// API is the lab API client; nil when the configured URL is unusable
	API *api.Client

	// Progress records completed labs
	Progress progress.Store

	// Audit is the per-session action log
	Audit *audit.Logger

	// Dialer opens terminal connections
	Dialer terminal.Dialer

	// Opener launches links in a browser
	Opener *system.Opener

	configured bool
	apiErr     error
}

// Option is a function that configures the App
type Option func(*App)

// WithConfig sets the configuration. An App built with it reports
// Configured.
func WithConfig(cfg *config.Config) Option {
	return func(a *App) {
		a.Config = cfg
		a.configured = true
	}
}

// WithPaths sets custom paths
func WithPaths(paths *config.Paths) Option {
	return func(a *App) {
		a.Paths = paths
	}
}

// WithAPI sets the API client
func WithAPI(c *api.Client) Option {
	return func(a *App) {
		a.API = c
	}
}

// WithProgress sets the progress store
func WithProgress(s progress.Store) Option {
	return func(a *App) {
		a.Progress = s
	}
}

// WithAudit sets the audit logger
func WithAudit(l *audit.Logger) Option {
	return func(a *App) {
		a.Audit = l
	}
}

// WithDialer sets the terminal dialer
func WithDialer(d terminal.Dialer) Option {
	return func(a *App) {
		a.Dialer = d
	}
}

// WithOpener sets the link opener
func WithOpener(o *system.Opener) Option {
	return func(a *App) {
		a.Opener = o
	}
}

// New creates a new App with the given options. Anything not provided is
// built from the configuration, which defaults to config.Default.
func New(opts ...Option) *App {
	a := &App{}
	for _, opt := range opts {
		opt(a)
	}

	if a.Config == nil {
		a.Config = config.Default()
	}
	if a.Paths == nil {
		a.Paths = a.Config.Paths()
	}
	if a.API == nil {
		c, err := api.New(a.Config.APIURL,
			api.WithTokenSource(api.TokenFunc(a.Token)),
			api.WithTimeout(a.Config.RequestTimeout.Duration),
		)
		if err != nil {
			logging.Debug("failed to initialize API client", "error", err)
			a.apiErr = err
		} else {
			a.API = c
		}
	}
	if a.Progress == nil {
		a.Progress = progress.NewFileStore(a.Paths.ProgressFile, system.OS())
	}
	if a.Audit == nil {
		a.Audit = audit.NewLogger(a.Paths)
	}
	if a.Dialer == nil {
		token, err := a.Token()
		if err != nil {
			logging.Debug("no token for terminal connections", "error", err)
		}
		a.Dialer = terminal.NewWebsocketDialer(token)
	}
	if a.Opener == nil {
		a.Opener = system.NewOpener(system.DefaultExecutor())
	}

	return a
}

// Configured reports whether the App was built from an explicit config.
func (a *App) Configured() bool {
	return a.configured
}

// Client returns the API client or the reason there is none.
func (a *App) Client() (*api.Client, error) {
	if a.API == nil {
		if a.apiErr != nil {
			return nil, a.apiErr
		}
		return nil, errors.ConfigError("no API client configured", nil)
	}
	return a.API, nil
}

// Token returns the bearer token: the configured one, else the saved one.
func (a *App) Token() (string, error) {
	if a.Config.Token != "" {
		return a.Config.Token, nil
	}
	return a.Paths.ReadToken()
}

// ShellURL maps session ids to terminal endpoints.
func (a *App) ShellURL() func(string) (string, error) {
	return terminal.ShellURLFunc(a.Config.APIURL, a.Config.ShellURL)
}

// Theme returns the configured terminal palette.
func (a *App) Theme() terminal.Theme {
	t, err := terminal.ThemeByName(a.Config.Theme)
	if err != nil {
		return terminal.DarkTheme
	}
	return t
}

// Address returns where the terminal looks for the current session: the
// LABCTL_ADDRESS environment variable, else the address file.
func (a *App) Address() terminal.AddressSource {
	return terminal.AddressFunc(func() string {
		if v := os.Getenv(config.EnvAddress); v != "" {
			return v
		}
		addr, err := a.Paths.ReadAddress()
		if err != nil {
			logging.Debug("failed to read address file", "error", err)
		}
		return addr
	})
}

// Controller returns a lab controller for sessionID.
func (a *App) Controller(sessionID string) (*lab.Controller, error) {
	c, err := a.Client()
	if err != nil {
		return nil, err
	}
	return lab.NewController(c, sessionID,
		lab.WithProgress(a.Progress),
		lab.WithAudit(a.Audit),
		lab.WithEndSessionOnComplete(a.Config.EndSessionOnComplete),
	), nil
}

// Workbench returns the manifest workbench.
func (a *App) Workbench() (*manifest.Workbench, error) {
	c, err := a.Client()
	if err != nil {
		return nil, err
	}
	return manifest.NewWorkbench(c, a.Audit), nil
}

// Browser returns a fresh admin browser.
func (a *App) Browser() (*admin.Browser, error) {
	c, err := a.Client()
	if err != nil {
		return nil, err
	}
	return admin.NewBrowser(c, a.Audit), nil
}

// Default is the default application instance
var Default = New()

// SetDefault sets the default application instance
func SetDefault(app *App) {
	Default = app
}

// ResetDefault resets to the default application instance
func ResetDefault() {
	Default = New()
}

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	DefaultAPIURL            = "http://localhost:8000"
	DefaultAdminPollInterval = 10 * time.Second
	AppName                  = "labctl"
)

// Environment variables that override file settings.
const (
	EnvAPIURL   = "LABCTL_API_URL"
	EnvShellURL = "LABCTL_SHELL_URL"
	EnvToken    = "LABCTL_TOKEN"
	EnvStateDir = "LABCTL_STATE_DIR"
	EnvTheme    = "LABCTL_THEME"
	EnvAddress  = "LABCTL_ADDRESS"
)

// Duration is a time.Duration written as a Go duration string in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config holds labctl settings.
type Config struct {
	APIURL               string   `toml:"api_url"`
	ShellURL             string   `toml:"shell_url"`
	Token                string   `toml:"token"`
	StateDir             string   `toml:"state_dir"`
	Theme                string   `toml:"theme"`
	AdminPollInterval    Duration `toml:"admin_poll_interval"`
	RequestTimeout       Duration `toml:"request_timeout"`
	EndSessionOnComplete bool     `toml:"end_session_on_complete"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		APIURL:               DefaultAPIURL,
		StateDir:             DefaultStateDir(),
		Theme:                "dark",
		AdminPollInterval:    Duration{DefaultAdminPollInterval},
		EndSessionOnComplete: true,
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", AppName+".toml")
	}
	return filepath.Join(dir, AppName, "config.toml")
}

// DefaultStateDir returns $XDG_STATE_HOME/labctl, falling back to
// ~/.local/state/labctl.
func DefaultStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), AppName)
	}
	return filepath.Join(home, ".local", "state", AppName)
}

// Load reads configuration from path. An empty path means DefaultPath, and
// a missing default file is not an error. An explicitly named file must exist.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.APIURL = v
	}
	if v := os.Getenv(EnvShellURL); v != "" {
		c.ShellURL = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		c.Token = v
	}
	if v := os.Getenv(EnvStateDir); v != "" {
		c.StateDir = v
	}
	if v := os.Getenv(EnvTheme); v != "" {
		c.Theme = v
	}
	if v := os.Getenv("LABCTL_END_SESSION_ON_COMPLETE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.EndSessionOnComplete = b
		}
	}
}

// Validate checks that the Config is usable.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api_url is required")
	}
	if err := validateURL(c.APIURL, "http", "https"); err != nil {
		return fmt.Errorf("api_url: %w", err)
	}
	if c.ShellURL != "" {
		if err := validateURL(c.ShellURL, "ws", "wss"); err != nil {
			return fmt.Errorf("shell_url: %w", err)
		}
	}
	switch c.Theme {
	case "dark", "light":
	default:
		return fmt.Errorf("invalid theme: %s (must be dark or light)", c.Theme)
	}
	if c.AdminPollInterval.Duration <= 0 {
		return fmt.Errorf("admin_poll_interval must be positive")
	}
	if c.RequestTimeout.Duration < 0 {
		return fmt.Errorf("request_timeout cannot be negative")
	}
	if c.StateDir == "" {
		return fmt.Errorf("state_dir is required")
	}
	return nil
}

func validateURL(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	for _, s := range schemes {
		if strings.EqualFold(u.Scheme, s) {
			if u.Host == "" {
				return fmt.Errorf("missing host in %q", raw)
			}
			return nil
		}
	}
	return fmt.Errorf("unsupported scheme %q in %q (want %s)", u.Scheme, raw, strings.Join(schemes, " or "))
}

// Save writes the config as TOML to path, creating parent directories.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

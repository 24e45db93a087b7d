package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.APIURL != DefaultAPIURL {
		t.Errorf("APIURL = %q, want %q", cfg.APIURL, DefaultAPIURL)
	}
	if cfg.Theme != "dark" {
		t.Errorf("Theme = %q, want dark", cfg.Theme)
	}
	if cfg.AdminPollInterval.Duration != 10*time.Second {
		t.Errorf("AdminPollInterval = %v, want 10s", cfg.AdminPollInterval)
	}
	if !cfg.EndSessionOnComplete {
		t.Error("EndSessionOnComplete should default to true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
api_url = "https://labs.example.com/api"
shell_url = "wss://shell.example.com"
theme = "light"
admin_poll_interval = "30s"
request_timeout = "5s"
end_session_on_complete = false
state_dir = "/tmp/labctl-state"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.APIURL != "https://labs.example.com/api" {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
	if cfg.ShellURL != "wss://shell.example.com" {
		t.Errorf("ShellURL = %q", cfg.ShellURL)
	}
	if cfg.Theme != "light" {
		t.Errorf("Theme = %q, want light", cfg.Theme)
	}
	if cfg.AdminPollInterval.Duration != 30*time.Second {
		t.Errorf("AdminPollInterval = %v, want 30s", cfg.AdminPollInterval)
	}
	if cfg.RequestTimeout.Duration != 5*time.Second {
		t.Errorf("RequestTimeout = %v, want 5s", cfg.RequestTimeout)
	}
	if cfg.EndSessionOnComplete {
		t.Error("EndSessionOnComplete should be false")
	}
	if cfg.StateDir != "/tmp/labctl-state" {
		t.Errorf("StateDir = %q", cfg.StateDir)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `theme = "light"`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIURL != DefaultAPIURL {
		t.Errorf("APIURL = %q, want default", cfg.APIURL)
	}
	if !cfg.EndSessionOnComplete {
		t.Error("EndSessionOnComplete should keep its default")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `api_url = "https://file.example.com"`)
	t.Setenv(EnvAPIURL, "https://env.example.com/api")
	t.Setenv(EnvToken, "tok-123")
	t.Setenv(EnvTheme, "light")
	t.Setenv(EnvStateDir, "/tmp/env-state")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIURL != "https://env.example.com/api" {
		t.Errorf("APIURL = %q, env should win", cfg.APIURL)
	}
	if cfg.Token != "tok-123" {
		t.Errorf("Token = %q", cfg.Token)
	}
	if cfg.Theme != "light" {
		t.Errorf("Theme = %q", cfg.Theme)
	}
	if cfg.StateDir != "/tmp/env-state" {
		t.Errorf("StateDir = %q", cfg.StateDir)
	}
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err == nil {
		t.Error("Load() should fail for an explicit missing file")
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := writeConfig(t, `api_url = `)
	if _, err := Load(path); err == nil {
		t.Error("Load() should fail for invalid TOML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"empty api url", func(c *Config) { c.APIURL = "" }, "api_url is required"},
		{"bad api scheme", func(c *Config) { c.APIURL = "ftp://x" }, "unsupported scheme"},
		{"api missing host", func(c *Config) { c.APIURL = "http://" }, "missing host"},
		{"bad shell scheme", func(c *Config) { c.ShellURL = "http://x" }, "shell_url"},
		{"bad theme", func(c *Config) { c.Theme = "solarized" }, "invalid theme"},
		{"zero poll", func(c *Config) { c.AdminPollInterval = Duration{} }, "admin_poll_interval"},
		{"negative timeout", func(c *Config) { c.RequestTimeout = Duration{-time.Second} }, "request_timeout"},
		{"empty state dir", func(c *Config) { c.StateDir = "" }, "state_dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.APIURL = "https://saved.example.com"
	cfg.AdminPollInterval = Duration{time.Minute}

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.APIURL != cfg.APIURL {
		t.Errorf("APIURL = %q, want %q", loaded.APIURL, cfg.APIURL)
	}
	if loaded.AdminPollInterval.Duration != time.Minute {
		t.Errorf("AdminPollInterval = %v, want 1m", loaded.AdminPollInterval)
	}
}

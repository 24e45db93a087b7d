package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
)

// Paths holds the locations of client-side state.
type Paths struct {
	StateDir     string
	TokenFile    string
	ProgressFile string
	AddressFile  string
	SessionsDir  string
	LogFile      string
}

// NewPaths lays out the state files under stateDir.
func NewPaths(stateDir string) *Paths {
	return &Paths{
		StateDir:     stateDir,
		TokenFile:    filepath.Join(stateDir, "token"),
		ProgressFile: filepath.Join(stateDir, "completed_labs.json"),
		AddressFile:  filepath.Join(stateDir, "address"),
		SessionsDir:  filepath.Join(stateDir, "sessions"),
		LogFile:      filepath.Join(stateDir, AppName+".log"),
	}
}

// Paths returns the state layout for this config.
func (c *Config) Paths() *Paths {
	return NewPaths(c.StateDir)
}

// SessionEventsFile returns the action log path for a session. The id comes
// from the server, so it is resolved inside SessionsDir.
func (p *Paths) SessionEventsFile(sessionID string) (string, error) {
	if sessionID == "" || strings.ContainsAny(sessionID, `/\`) {
		return "", fmt.Errorf("invalid session id %q", sessionID)
	}
	return securejoin.SecureJoin(p.SessionsDir, sessionID+".events.jsonl")
}

// ReadToken returns the stored bearer token, or "" when none is saved.
func (p *Paths) ReadToken() (string, error) {
	data, err := os.ReadFile(p.TokenFile)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// WriteToken stores the bearer token with owner-only permissions.
func (p *Paths) WriteToken(token string) error {
	if err := os.MkdirAll(p.StateDir, 0o700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := os.WriteFile(p.TokenFile, []byte(strings.TrimSpace(token)+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to write token: %w", err)
	}
	return nil
}

// RemoveToken deletes the stored token. A missing token is not an error.
func (p *Paths) RemoveToken() error {
	if err := os.Remove(p.TokenFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove token: %w", err)
	}
	return nil
}

// ReadAddress returns the navigable address recorded by the last lab start.
func (p *Paths) ReadAddress() (string, error) {
	data, err := os.ReadFile(p.AddressFile)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// WriteAddress records the navigable address of the current lab.
func (p *Paths) WriteAddress(address string) error {
	if err := os.MkdirAll(p.StateDir, 0o700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	return os.WriteFile(p.AddressFile, []byte(address+"\n"), 0o600)
}

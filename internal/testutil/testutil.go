package testutil

import (
	"path/filepath"
	"testing"

	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/app"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/progress"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/system"
)

// TestToken is the bearer token configured by NewTestEnv.
const TestToken = "test-token"

// TestEnv holds the test environment
type TestEnv struct {
	T        *testing.T
	TmpDir   string
	Config   *config.Config
	Paths    *config.Paths
	API      *FakeAPI
	Shell    *FakeShell
	Progress *progress.MemoryStore
	Exec     *system.MockExecutor
	App      *app.App
	cleanup  func()
}

// NewTestEnv creates a test environment backed by a fake API and shell,
// and installs its App as app.Default until the test ends.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	tmpDir := t.TempDir()
	fakeAPI := NewFakeAPI(t)
	shell := NewFakeShell(t)

	cfg := config.Default()
	cfg.APIURL = fakeAPI.URL()
	cfg.ShellURL = shell.URL()
	cfg.Token = TestToken
	cfg.StateDir = filepath.Join(tmpDir, "state")

	store := progress.NewMemoryStore()
	exec := &system.MockExecutor{}

	testApp := app.New(
		app.WithConfig(cfg),
		app.WithProgress(store),
		app.WithOpener(system.NewOpener(exec)),
	)

	originalDefault := app.Default
	app.SetDefault(testApp)

	env := &TestEnv{
		T:        t,
		TmpDir:   tmpDir,
		Config:   cfg,
		Paths:    testApp.Paths,
		API:      fakeAPI,
		Shell:    shell,
		Progress: store,
		Exec:     exec,
		App:      testApp,
		cleanup: func() {
			app.SetDefault(originalDefault)
		},
	}
	t.Cleanup(env.Cleanup)

	return env
}

// Cleanup restores the original app default
func (e *TestEnv) Cleanup() {
	if e.cleanup != nil {
		e.cleanup()
		e.cleanup = nil
	}
}

// Events returns the audit trail of a session.
func (e *TestEnv) Events(sessionID string) []string {
	e.T.Helper()

	events, err := e.App.Audit.Events(sessionID)
	if err != nil {
		e.T.Fatalf("Failed to read audit events: %v", err)
	}
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = string(ev.Type)
	}
	return out
}

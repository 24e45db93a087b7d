package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/api"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/app"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/terminal"
)

func newClient(t *testing.T, f *FakeAPI) *api.Client {
	t.Helper()
	c, err := api.New(f.URL(), api.WithTokenSource(api.StaticToken(TestToken)))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestFakeAPI_Catalog(t *testing.T) {
	f := NewFakeAPI(t)
	c := newClient(t, f)
	ctx := context.Background()

	labs, err := c.ListLabs(ctx, api.LabFilter{Category: "foundations"})
	if err != nil {
		t.Fatalf("ListLabs() error: %v", err)
	}
	if len(labs) != 1 || labs[0].ID != "foundations-networking" {
		t.Errorf("filtered labs = %+v", labs)
	}

	lab, err := c.GetLab(ctx, "k8s-basics")
	if err != nil || lab.Title != "Kubernetes Basics" {
		t.Errorf("GetLab() = %+v, %v", lab, err)
	}

	_, err = c.GetLab(ctx, "missing")
	if errors.HTTPStatus(err) != http.StatusNotFound {
		t.Errorf("GetLab(missing) error = %v, want 404", err)
	}

	reqs := f.Requests()
	if len(reqs) != 3 || reqs[0].Auth != "Bearer "+TestToken {
		t.Errorf("requests = %+v", reqs)
	}
}

func TestFakeAPI_SessionLifecycle(t *testing.T) {
	f := NewFakeAPI(t)
	c := newClient(t, f)
	ctx := context.Background()

	s, err := c.CreateSession(ctx, "k8s-basics")
	if err != nil {
		t.Fatalf("CreateSession() error: %v", err)
	}
	if !s.Status.IsActive() || s.UserID != "alice" {
		t.Errorf("created session = %+v", s)
	}

	mine, err := c.MySessions(ctx)
	if err != nil || len(mine) != 2 {
		t.Errorf("MySessions() = %d sessions, %v; want 2", len(mine), err)
	}

	if err := c.CompleteSession(ctx, s.ID); err != nil {
		t.Fatalf("CompleteSession() error: %v", err)
	}
	if got, _ := f.Session(s.ID); got.Status != api.StatusCompleted {
		t.Errorf("status after complete = %q", got.Status)
	}

	if err := c.TerminateSession(ctx, s.ID); err != nil {
		t.Fatalf("TerminateSession() error: %v", err)
	}
	if got, _ := f.Session(s.ID); got.Status != api.StatusTerminated {
		t.Errorf("status after terminate = %q", got.Status)
	}
}

func TestFakeAPI_Manifest(t *testing.T) {
	f := NewFakeAPI(t)
	c := newClient(t, f)

	res, err := c.ApplyManifest(context.Background(), ActiveSessionID, "kind: Pod")
	if err != nil || res.Message != "Manifest applied" {
		t.Errorf("ApplyManifest() = %+v, %v", res, err)
	}

	_, err = c.ApplyManifest(context.Background(), ActiveSessionID, "")
	if errors.HTTPStatus(err) != http.StatusBadRequest || err.Error() != "manifest is required" {
		t.Errorf("empty manifest error = %v", err)
	}
}

func TestFakeAPI_AdminResources(t *testing.T) {
	f := NewFakeAPI(t)
	c := newClient(t, f)
	ctx := context.Background()

	if err := c.DeleteResource(ctx, ActiveSessionID, api.KindPod, "worker-1"); err != nil {
		t.Fatalf("DeleteResource() error: %v", err)
	}
	inv, err := c.SessionResources(ctx, ActiveSessionID)
	if err != nil {
		t.Fatalf("SessionResources() error: %v", err)
	}
	if len(inv.Pods) != 1 || inv.Pods[0] != "web" {
		t.Errorf("pods after delete = %v", inv.Pods)
	}

	err = c.DeleteResource(ctx, ActiveSessionID, api.KindPod, "worker-1")
	if errors.HTTPStatus(err) != http.StatusNotFound {
		t.Errorf("second delete error = %v, want 404", err)
	}

	active, err := c.AdminSessions(ctx, api.StatusActive)
	if err != nil || len(active) != 1 {
		t.Errorf("AdminSessions(active) = %d, %v", len(active), err)
	}
}

func TestFakeAPI_Fail(t *testing.T) {
	f := NewFakeAPI(t)
	c := newClient(t, f)
	f.Fail(http.MethodGet, "/me", http.StatusUnauthorized)

	_, err := c.Me(context.Background())
	if errors.GetExitCode(err) != errors.ExitRemote || err.Error() != "Unauthorized" {
		t.Errorf("Me() error = %v", err)
	}
	if f.Calls(http.MethodGet, "/me") != 1 {
		t.Error("failed request should still be recorded")
	}
}

func TestFakeShell_Echo(t *testing.T) {
	s := NewFakeShell(t)
	d := terminal.NewWebsocketDialer(TestToken)

	url, err := terminal.ShellURL("", s.URL(), "abc")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := d.Dial(ctx, url)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	defer conn.Close()

	if got, err := conn.Receive(); err != nil || got != ShellPrompt {
		t.Fatalf("first frame = %q, %v", got, err)
	}
	if err := conn.Send("ls\r"); err != nil {
		t.Fatal(err)
	}
	if got, err := conn.Receive(); err != nil || got != "ls\r" {
		t.Errorf("echo = %q, %v", got, err)
	}

	if got := s.Sessions(); len(got) != 1 || got[0] != "abc" {
		t.Errorf("Sessions() = %v", got)
	}
	if got := s.Authorization(); got[0] != "Bearer "+TestToken {
		t.Errorf("Authorization() = %v", got)
	}
}

func TestNewTestEnv(t *testing.T) {
	original := app.Default
	env := NewTestEnv(t)

	if app.Default != env.App {
		t.Fatal("NewTestEnv should install its App as Default")
	}
	if !env.App.Configured() {
		t.Error("test App should be configured")
	}
	if env.App.Progress != env.Progress {
		t.Error("test App should use the memory progress store")
	}

	env.Cleanup()
	if app.Default != original {
		t.Error("Cleanup should restore the previous Default")
	}
}

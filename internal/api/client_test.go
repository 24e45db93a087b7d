package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/errors"
)

// recorded is what a test server saw of one request.
type recorded struct {
	Method string
	URI    string
	Auth   string
	ReqID  string
	CType  string
	Body   string
}

func newServer(t *testing.T, status int, body string) (*httptest.Server, *[]recorded) {
	t.Helper()
	var seen []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		seen = append(seen, recorded{
			Method: r.Method,
			URI:    r.URL.RequestURI(),
			Auth:   r.Header.Get("Authorization"),
			ReqID:  r.Header.Get("X-Request-ID"),
			CType:  r.Header.Get("Content-Type"),
			Body:   string(data),
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func newClient(t *testing.T, base string, opts ...Option) *Client {
	t.Helper()
	c, err := New(base, opts...)
	if err != nil {
		t.Fatalf("New(%q) error = %v", base, err)
	}
	return c
}

func TestNew(t *testing.T) {
	tests := []struct {
		base    string
		wantErr bool
	}{
		{"http://localhost:8000", false},
		{"https://labs.example.com/api/", false},
		{"ws://labs.example.com", true},
		{"labs.example.com", true},
		{"http://[::1", true},
	}
	for _, tt := range tests {
		_, err := New(tt.base)
		if (err != nil) != tt.wantErr {
			t.Errorf("New(%q) error = %v, wantErr %v", tt.base, err, tt.wantErr)
		}
		if err != nil && errors.GetExitCode(err) != errors.ExitConfigError {
			t.Errorf("New(%q) exit code = %d, want config error", tt.base, errors.GetExitCode(err))
		}
	}
}

func TestClient_BaseURLTrimsSlash(t *testing.T) {
	c := newClient(t, "https://labs.example.com/api/")
	if c.BaseURL() != "https://labs.example.com/api" {
		t.Errorf("BaseURL() = %q", c.BaseURL())
	}
}

func TestClient_Headers(t *testing.T) {
	srv, seen := newServer(t, http.StatusOK, `{"message":"ok"}`)
	c := newClient(t, srv.URL,
		WithTokenSource(StaticToken("tok")),
		WithRequestIDs(func() string { return "req-1" }),
	)

	if _, err := c.ApplyManifest(context.Background(), "s1", "kind: Pod"); err != nil {
		t.Fatalf("ApplyManifest() error = %v", err)
	}

	got := (*seen)[0]
	if got.Auth != "Bearer tok" {
		t.Errorf("Authorization = %q", got.Auth)
	}
	if got.ReqID != "req-1" {
		t.Errorf("X-Request-ID = %q", got.ReqID)
	}
	if got.CType != "application/json" {
		t.Errorf("Content-Type = %q", got.CType)
	}
	if got.Method != http.MethodPost || got.URI != "/sessions/s1/apply-manifest" {
		t.Errorf("request = %s %s", got.Method, got.URI)
	}
	var body map[string]string
	if err := json.Unmarshal([]byte(got.Body), &body); err != nil || body["manifest"] != "kind: Pod" {
		t.Errorf("body = %s, want manifest field", got.Body)
	}
}

func TestClient_NoTokenNoAuthorization(t *testing.T) {
	srv, seen := newServer(t, http.StatusOK, `{}`)
	c := newClient(t, srv.URL, WithTokenSource(TokenFunc(func() (string, error) { return "", nil })))

	if err := c.CompleteSession(context.Background(), "s1"); err != nil {
		t.Fatal(err)
	}
	if (*seen)[0].Auth != "" {
		t.Errorf("Authorization = %q, want none", (*seen)[0].Auth)
	}
	if (*seen)[0].ReqID == "" {
		t.Error("X-Request-ID should default to a generated id")
	}
}

func TestClient_TokenSourceError(t *testing.T) {
	c := newClient(t, "http://127.0.0.1:1", WithTokenSource(TokenFunc(func() (string, error) {
		return "", io.ErrUnexpectedEOF
	})))
	err := c.CompleteSession(context.Background(), "s1")
	if errors.GetExitCode(err) != errors.ExitConfigError {
		t.Errorf("exit code = %d, want config error (err = %v)", errors.GetExitCode(err), err)
	}
}

func TestClient_RemoteErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"detail string", http.StatusNotFound, `{"detail":"Lab not found"}`, "Lab not found"},
		{"detail list", http.StatusUnprocessableEntity,
			`{"detail":[{"loc":["body","manifest"],"msg":"field required"},{"msg":"too long"}]}`,
			"field required; too long"},
		{"no detail", http.StatusInternalServerError, `{"error":"boom"}`, "Internal Server Error"},
		{"not json", http.StatusBadGateway, `<html>bad gateway</html>`, "Bad Gateway"},
		{"empty body", http.StatusForbidden, ``, "Forbidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newServer(t, tt.status, tt.body)
			c := newClient(t, srv.URL)

			_, err := c.GetLab(context.Background(), "k8s")
			if err == nil {
				t.Fatal("GetLab() should fail")
			}
			if err.Error() != tt.wantMsg {
				t.Errorf("error = %q, want %q", err.Error(), tt.wantMsg)
			}
			if errors.HTTPStatus(err) != tt.status {
				t.Errorf("HTTPStatus() = %d, want %d", errors.HTTPStatus(err), tt.status)
			}
			if errors.GetExitCode(err) != errors.ExitRemote {
				t.Errorf("exit code = %d, want remote", errors.GetExitCode(err))
			}
		})
	}
}

func TestClient_DecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"id":`},
		{"wrong shape", `["not","a","lab"]`},
		{"fails validation", `{"id":"k8s"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newServer(t, http.StatusOK, tt.body)
			c := newClient(t, srv.URL)

			_, err := c.GetLab(context.Background(), "k8s")
			if errors.GetExitCode(err) != errors.ExitDecode {
				t.Errorf("exit code = %d, want decode (err = %v)", errors.GetExitCode(err), err)
			}
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := newClient(t, base)
	_, err := c.MySessions(context.Background())
	if errors.GetExitCode(err) != errors.ExitTransport {
		t.Errorf("exit code = %d, want transport (err = %v)", errors.GetExitCode(err), err)
	}
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := newClient(t, srv.URL, WithTimeout(20*time.Millisecond))
	if _, err := c.AdminStats(context.Background()); errors.GetExitCode(err) != errors.ExitTransport {
		t.Errorf("exit code = %d, want transport on timeout", errors.GetExitCode(err))
	}
}

func TestClient_Paths(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name       string
		call       func(c *Client) error
		wantMethod string
		wantURI    string
		body       string
	}{
		{"list labs", func(c *Client) error { _, err := c.ListLabs(ctx, LabFilter{}); return err },
			"GET", "/labs", `[]`},
		{"list labs filtered", func(c *Client) error {
			_, err := c.ListLabs(ctx, LabFilter{Category: "kubernetes", Persona: "platform engineer"})
			return err
		}, "GET", "/labs?category=kubernetes&persona=platform+engineer", `[]`},
		{"get lab escapes id", func(c *Client) error { _, err := c.GetLab(ctx, "a/b"); return err },
			"GET", "/labs/a%2Fb", `{"id":"a/b","title":"A"}`},
		{"create session", func(c *Client) error { _, err := c.CreateSession(ctx, "k8s"); return err },
			"POST", "/sessions", `{"session_uuid":"s1","status":"active"}`},
		{"my sessions", func(c *Client) error { _, err := c.MySessions(ctx); return err },
			"GET", "/sessions/me", `[]`},
		{"extend", func(c *Client) error { _, err := c.ExtendSession(ctx, "s1"); return err },
			"POST", "/sessions/s1/extend", `{"message":"extended"}`},
		{"terminate", func(c *Client) error { return c.TerminateSession(ctx, "s1") },
			"DELETE", "/sessions/s1", `{}`},
		{"complete", func(c *Client) error { return c.CompleteSession(ctx, "s1") },
			"POST", "/sessions/s1/complete", `{}`},
		{"delete manifest", func(c *Client) error { _, err := c.DeleteManifest(ctx, "s1", "x: 1"); return err },
			"POST", "/sessions/s1/delete-manifest", `{"message":"deleted"}`},
		{"admin sessions", func(c *Client) error { _, err := c.AdminSessions(ctx, ""); return err },
			"GET", "/admin/sessions", `[]`},
		{"admin sessions by status", func(c *Client) error { _, err := c.AdminSessions(ctx, StatusActive); return err },
			"GET", "/admin/sessions?status=active", `[]`},
		{"admin stats", func(c *Client) error { _, err := c.AdminStats(ctx); return err },
			"GET", "/admin/stats", `{"active_sessions":1}`},
		{"admin terminate", func(c *Client) error { return c.AdminTerminateSession(ctx, "s1") },
			"DELETE", "/admin/sessions/s1", `{}`},
		{"resources", func(c *Client) error { _, err := c.SessionResources(ctx, "s1"); return err },
			"GET", "/admin/sessions/s1/resources", `{"pods":[]}`},
		{"delete resource", func(c *Client) error { return c.DeleteResource(ctx, "s1", KindPod, "worker-1") },
			"DELETE", "/admin/sessions/s1/resources/pod/worker-1", `{}`},
		{"me", func(c *Client) error { _, err := c.Me(ctx); return err },
			"GET", "/me", `{"user_id":"u1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, seen := newServer(t, http.StatusOK, tt.body)
			c := newClient(t, srv.URL)
			if err := tt.call(c); err != nil {
				t.Fatalf("call error = %v", err)
			}
			got := (*seen)[0]
			if got.Method != tt.wantMethod || got.URI != tt.wantURI {
				t.Errorf("request = %s %s, want %s %s", got.Method, got.URI, tt.wantMethod, tt.wantURI)
			}
		})
	}
}

func TestClient_BasePathPrefix(t *testing.T) {
	srv, seen := newServer(t, http.StatusOK, `[]`)
	c := newClient(t, srv.URL+"/api/")

	if _, err := c.MySessions(context.Background()); err != nil {
		t.Fatal(err)
	}
	if (*seen)[0].URI != "/api/sessions/me" {
		t.Errorf("URI = %q, want /api/sessions/me", (*seen)[0].URI)
	}
}

func TestClient_DecodesSessions(t *testing.T) {
	body := `[{
		"session_uuid": "3f2a",
		"user_id": "u1",
		"lab_id": "k8s-basics",
		"sandbox_namespace": "lab-3f2a",
		"start_time": "2026-10-01T09:00:00",
		"expires_at": "2026-10-01T10:00:00Z",
		"last_activity": null,
		"status": "active"
	}]`
	srv, _ := newServer(t, http.StatusOK, body)
	c := newClient(t, srv.URL)

	ss, err := c.MySessions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(ss) != 1 {
		t.Fatalf("got %d sessions", len(ss))
	}
	s := ss[0]
	if s.ID != "3f2a" || s.SandboxNamespace != "lab-3f2a" || !s.Status.IsActive() {
		t.Errorf("session = %+v", s)
	}
	if want := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC); !s.StartTime.Equal(want) {
		t.Errorf("StartTime = %v, want %v", s.StartTime, want)
	}
	if !s.LastActivity.IsZero() {
		t.Errorf("LastActivity = %v, want zero", s.LastActivity)
	}
}

func TestClient_SessionWithoutIDIsDecodeError(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, `{"status":"active"}`)
	c := newClient(t, srv.URL)

	_, err := c.CreateSession(context.Background(), "k8s")
	if errors.GetExitCode(err) != errors.ExitDecode {
		t.Errorf("exit code = %d, want decode", errors.GetExitCode(err))
	}
	if !strings.Contains(err.Error(), "session_uuid") {
		t.Errorf("error = %v, want the missing field named", err)
	}
}

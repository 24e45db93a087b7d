package testutil

import (
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
)

// ShellPrompt is written to every new connection.
const ShellPrompt = "sandbox$ "

// FakeShell is a websocket shell that echoes every frame it receives.
// Its URL serves as the shell override, so sessions connect to
// URL()+"/"+id.
type FakeShell struct {
	Server *httptest.Server

	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions []string
	auth     []string
	frames   []string
	conns    []*websocket.Conn
}

// NewFakeShell starts a fake shell server that is closed when the test ends.
func NewFakeShell(t testing.TB) *FakeShell {
	t.Helper()

	s := &FakeShell{}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// URL returns the websocket root of the shell endpoint.
func (s *FakeShell) URL() string {
	return "ws" + strings.TrimPrefix(s.Server.URL, "http") + "/shell"
}

func (s *FakeShell) serve(w http.ResponseWriter, r *http.Request) {
	id, ok := strings.CutPrefix(r.URL.Path, "/shell/")
	if !ok || id == "" {
		http.NotFound(w, r)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.sessions = append(s.sessions, id)
	s.auth = append(s.auth, r.Header.Get("Authorization"))
	s.conns = append(s.conns, conn)
	s.mu.Unlock()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(ShellPrompt)); err != nil {
		return
	}
	for {
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.frames = append(s.frames, string(msg))
		s.mu.Unlock()
		if err := conn.WriteMessage(kind, msg); err != nil {
			return
		}
	}
}

// Sessions returns the session ids that connected, in order.
func (s *FakeShell) Sessions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.sessions)
}

// Authorization returns the Authorization header of each connection.
func (s *FakeShell) Authorization() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.auth)
}

// Frames returns the frames received from clients.
func (s *FakeShell) Frames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.frames)
}

// Hangup closes every open connection with a normal close frame.
func (s *FakeShell) Hangup() {
	s.mu.Lock()
	conns := s.conns
	s.conns = nil
	s.mu.Unlock()

	for _, c := range conns {
		_ = c.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		_ = c.Close()
	}
}

// Close hangs up and stops the server.
func (s *FakeShell) Close() {
	s.Hangup()
	s.Server.Close()
}

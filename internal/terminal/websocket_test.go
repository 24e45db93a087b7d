package terminal

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// echoShell upgrades, records the auth header, echoes frames and closes
// normally when it receives "exit".
func echoShell(t *testing.T, auth chan<- string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth != nil {
			auth <- r.Header.Get("Authorization")
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if string(msg) == "exit" {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
				return
			}
			if err := conn.WriteMessage(mt, msg); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/shell/abc"
}

func TestWebsocketDialer_RoundTrip(t *testing.T) {
	auth := make(chan string, 1)
	srv := echoShell(t, auth)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := NewWebsocketDialer("tok-123").Dial(ctx, wsURL(srv))
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	if got := <-auth; got != "Bearer tok-123" {
		t.Errorf("Authorization = %q, want bearer token", got)
	}

	if err := conn.Send("echo hi"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	got, err := conn.Receive()
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if got != "echo hi" {
		t.Errorf("Receive() = %q, want echo hi", got)
	}
}

func TestWebsocketDialer_NormalCloseIsEOF(t *testing.T) {
	srv := echoShell(t, nil)

	conn, err := NewWebsocketDialer("").Dial(context.Background(), wsURL(srv))
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if err := conn.Send("exit"); err != nil {
		t.Fatal(err)
	}
	if _, err := conn.Receive(); !errors.Is(err, io.EOF) {
		t.Errorf("Receive() error = %v, want io.EOF", err)
	}
}

func TestWebsocketDialer_NoTokenNoHeader(t *testing.T) {
	d := NewWebsocketDialer("")
	if d.Header.Get("Authorization") != "" {
		t.Error("empty token should not set Authorization")
	}
	if d.WriteTimeout != DefaultWriteTimeout {
		t.Errorf("WriteTimeout = %v, want %v", d.WriteTimeout, DefaultWriteTimeout)
	}
}

func TestWebsocketDialer_SendToStuckPeerTimesOut(t *testing.T) {
	release := make(chan struct{})
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	d := NewWebsocketDialer("")
	d.WriteTimeout = 100 * time.Millisecond
	conn, err := d.Dial(context.Background(), wsURL(srv))
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	// Larger than the loopback socket buffers, so the write has to wait
	// for a reader that never comes.
	big := strings.Repeat("x", 64<<20)
	start := time.Now()
	if err := conn.Send(big); err == nil {
		t.Fatal("Send() to a peer that never reads should time out")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Send() took %v, want it bounded by the write timeout", elapsed)
	}
}

func TestWebsocketDialer_HandshakeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such session", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewWebsocketDialer("").Dial(context.Background(), wsURL(srv))
	if err == nil {
		t.Fatal("Dial() should fail on a rejected handshake")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error = %v, want the HTTP status", err)
	}
}

func TestBridge_OverWebsocket(t *testing.T) {
	srv := echoShell(t, nil)
	b := New(Options{
		SessionID: "abc",
		ShellURL:  func(string) (string, error) { return wsURL(srv), nil },
		Dialer:    NewWebsocketDialer(""),
	})
	surface := &fakeSurface{}
	if err := b.Mount(context.Background(), surface, nil); err != nil {
		t.Fatal(err)
	}
	waitState(t, b, Connected)
	defer b.Unmount()

	if !b.Input("whoami") {
		t.Fatal("Input() not sent")
	}
	eventually(t, "echo", func() bool {
		for _, w := range surface.Writes() {
			if w == "whoami" {
				return true
			}
		}
		return false
	})

	b.Input("exit")
	waitState(t, b, Closed)
	if !surface.hasLine(ClosedText) {
		t.Errorf("lines = %v, want closed notice", surface.Lines())
	}
}

package terminal

import (
	"fmt"
	"net/url"
	"strings"
)

// ShellURL returns the websocket endpoint for a session's shell.
//
// With an override, the id is appended to it. Otherwise the endpoint lives
// under the API root at /shell/{id}, switching http to ws and https to wss.
// A local front-end dev server (localhost:3000) does not proxy websockets,
// so its shell goes straight to the API at ws://localhost:8000/shell/{id}.
func ShellURL(apiBase, override, sessionID string) (string, error) {
	if sessionID == "" {
		return "", fmt.Errorf("empty session id")
	}
	id := url.PathEscape(sessionID)

	if override != "" {
		return strings.TrimRight(override, "/") + "/" + id, nil
	}

	u, err := url.Parse(apiBase)
	if err != nil {
		return "", fmt.Errorf("invalid API URL %q: %w", apiBase, err)
	}

	if u.Hostname() == "localhost" && u.Port() == "3000" {
		return "ws://localhost:8000/shell/" + id, nil
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("invalid API URL %q: unsupported scheme", apiBase)
	}

	return u.Scheme + "://" + u.Host + strings.TrimRight(u.EscapedPath(), "/") + "/shell/" + id, nil
}

// ShellURLFunc binds ShellURL to an API root and override.
func ShellURLFunc(apiBase, override string) func(string) (string, error) {
	return func(sessionID string) (string, error) {
		return ShellURL(apiBase, override, sessionID)
	}
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/logging"
)

// maxErrorBody caps how much of an error response is read for its detail.
const maxErrorBody = 1 << 20

// TokenSource yields the bearer credential for a request. An empty token
// means the request is sent unauthenticated.
type TokenSource interface {
	Token() (string, error)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() (string, error)

// Token implements TokenSource.
func (f TokenFunc) Token() (string, error) { return f() }

// StaticToken is a fixed bearer credential.
type StaticToken string

// Token implements TokenSource.
func (s StaticToken) Token() (string, error) { return string(s), nil }

// Client issues requests against the lab API.
type Client struct {
	base       *url.URL
	httpClient *http.Client
	tokens     TokenSource
	requestID  func() string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithTimeout bounds every request. Zero means no bound beyond the context.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.httpClient
			hc.Timeout = d
			c.httpClient = &hc
		}
	}
}

// WithRequestIDs overrides request id generation.
func WithRequestIDs(fn func() string) Option {
	return func(c *Client) {
		c.requestID = fn
	}
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.ConfigError(fmt.Sprintf("invalid API URL %q", baseURL), err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.ConfigError(fmt.Sprintf("invalid API URL %q: scheme must be http or https", baseURL), nil)
	}

	c := &Client{
		base:       u,
		httpClient: &http.Client{},
		requestID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// resolve appends an already-escaped path (and query) to the API root.
func (c *Client) resolve(path string) (string, error) {
	if _, err := url.Parse(path); err != nil {
		return "", errors.Validation(fmt.Sprintf("invalid request path %q", path))
	}
	return strings.TrimRight(c.base.String(), "/") + "/" + strings.TrimLeft(path, "/"), nil
}

// Do sends one request. body, when non-nil, is encoded as JSON. out, when
// non-nil, receives the decoded 2xx response; if it has a Validate method
// the decoded value must pass it.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	target, err := c.resolve(path)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Validation(fmt.Sprintf("encoding request body: %v", err))
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return errors.Transport("building request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	reqID := c.requestID()
	req.Header.Set("X-Request-ID", reqID)

	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			return errors.ConfigError("reading API token", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	logging.Debug("api request", "method", method, "path", path, "request_id", reqID)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Transport(fmt.Sprintf("%s %s", method, path), err)
	}
	defer resp.Body.Close()

	logging.Debug("api response",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", reqID,
		"elapsed", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return remoteError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Decode(fmt.Sprintf("%s %s response", method, path), err)
	}
	if v, ok := out.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return errors.Decode(fmt.Sprintf("%s %s response", method, path), err)
		}
	}
	return nil
}

// remoteError builds the error for a non-2xx response. The body's "detail"
// may be a string or a list of validation entries with "msg" fields.
func remoteError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	if msg := detailMessage(data); msg != "" {
		return errors.Remote(resp.StatusCode, msg)
	}
	return errors.Remote(resp.StatusCode, statusText(resp))
}

func detailMessage(data []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil || len(envelope.Detail) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil {
		return text
	}

	var entries []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &entries); err == nil {
		var msgs []string
		for _, e := range entries {
			if e.Msg != "" {
				msgs = append(msgs, e.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

func statusText(resp *http.Response) string {
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return resp.Status
}

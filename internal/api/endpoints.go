package api

import (
	"context"
	"net/http"
	"net/url"
)

// LabFilter narrows the catalog.
type LabFilter struct {
	Category string
	Persona  string
}

func (f LabFilter) query() string {
	v := url.Values{}
	if f.Category != "" {
		v.Set("category", f.Category)
	}
	if f.Persona != "" {
		v.Set("persona", f.Persona)
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

type manifestRequest struct {
	Manifest string `json:"manifest"`
}

func sessionPath(id string, rest string) string {
	return "/sessions/" + url.PathEscape(id) + rest
}

// ListLabs returns the lab catalog.
func (c *Client) ListLabs(ctx context.Context, filter LabFilter) ([]Lab, error) {
	var labs LabList
	if err := c.Do(ctx, http.MethodGet, "/labs"+filter.query(), nil, &labs); err != nil {
		return nil, err
	}
	return labs, nil
}

// GetLab returns one lab definition.
func (c *Client) GetLab(ctx context.Context, id string) (*Lab, error) {
	var lab Lab
	if err := c.Do(ctx, http.MethodGet, "/labs/"+url.PathEscape(id), nil, &lab); err != nil {
		return nil, err
	}
	return &lab, nil
}

// CreateSession provisions a sandbox for a lab.
func (c *Client) CreateSession(ctx context.Context, labID string) (*Session, error) {
	var s Session
	body := struct {
		LabID string `json:"lab_id"`
	}{labID}
	if err := c.Do(ctx, http.MethodPost, "/sessions", body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// MySessions returns the caller's sessions.
func (c *Client) MySessions(ctx context.Context) ([]Session, error) {
	var ss SessionList
	if err := c.Do(ctx, http.MethodGet, "/sessions/me", nil, &ss); err != nil {
		return nil, err
	}
	return ss, nil
}

// ExtendSession pushes a session's expiry out.
func (c *Client) ExtendSession(ctx context.Context, id string) (*ActionResult, error) {
	var res ActionResult
	if err := c.Do(ctx, http.MethodPost, sessionPath(id, "/extend"), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// TerminateSession ends a session.
func (c *Client) TerminateSession(ctx context.Context, id string) error {
	return c.Do(ctx, http.MethodDelete, sessionPath(id, ""), nil, nil)
}

// CompleteSession marks the session's lab as completed.
func (c *Client) CompleteSession(ctx context.Context, id string) error {
	return c.Do(ctx, http.MethodPost, sessionPath(id, "/complete"), nil, nil)
}

// ApplyManifest applies manifest text in the session's sandbox.
func (c *Client) ApplyManifest(ctx context.Context, id, manifest string) (*ActionResult, error) {
	var res ActionResult
	if err := c.Do(ctx, http.MethodPost, sessionPath(id, "/apply-manifest"), manifestRequest{manifest}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// DeleteManifest deletes the resources described by manifest text.
func (c *Client) DeleteManifest(ctx context.Context, id, manifest string) (*ActionResult, error) {
	var res ActionResult
	if err := c.Do(ctx, http.MethodPost, sessionPath(id, "/delete-manifest"), manifestRequest{manifest}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// AdminSessions lists all sessions, optionally filtered by status.
func (c *Client) AdminSessions(ctx context.Context, status SessionStatus) ([]Session, error) {
	path := "/admin/sessions"
	if status != "" {
		path += "?status=" + url.QueryEscape(string(status))
	}
	var ss SessionList
	if err := c.Do(ctx, http.MethodGet, path, nil, &ss); err != nil {
		return nil, err
	}
	return ss, nil
}

// AdminStats returns aggregate statistics.
func (c *Client) AdminStats(ctx context.Context) (*Stats, error) {
	var st Stats
	if err := c.Do(ctx, http.MethodGet, "/admin/stats", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// AdminTerminateSession force-terminates any session.
func (c *Client) AdminTerminateSession(ctx context.Context, id string) error {
	return c.Do(ctx, http.MethodDelete, "/admin/sessions/"+url.PathEscape(id), nil, nil)
}

// SessionResources returns the live inventory of a session's namespace.
func (c *Client) SessionResources(ctx context.Context, id string) (*ResourceInventory, error) {
	var inv ResourceInventory
	if err := c.Do(ctx, http.MethodGet, "/admin/sessions/"+url.PathEscape(id)+"/resources", nil, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// DeleteResource deletes one object from a session's namespace.
func (c *Client) DeleteResource(ctx context.Context, id string, kind Kind, name string) error {
	path := "/admin/sessions/" + url.PathEscape(id) + "/resources/" + url.PathEscape(string(kind)) + "/" + url.PathEscape(name)
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// Me returns the caller's identity.
func (c *Client) Me(ctx context.Context) (*Identity, error) {
	var id Identity
	if err := c.Do(ctx, http.MethodGet, "/me", nil, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

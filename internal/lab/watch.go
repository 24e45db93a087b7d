package lab

import (
	"context"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/api"
)

const (
	// DefaultWatchInterval is how often the workspace rechecks its session.
	DefaultWatchInterval = 30 * time.Second

	// ExpiryWarning is how long before expires_at the session counts as
	// expiring.
	ExpiryWarning = 10 * time.Minute
)

// SessionLister lists the caller's sessions.
type SessionLister interface {
	MySessions(ctx context.Context) ([]api.Session, error)
}

// SessionState is what a Watch last learned about its session.
type SessionState struct {
	Status    api.SessionStatus
	ExpiresAt time.Time
	// Remaining is zero once expires_at has passed or when it is unknown.
	Remaining time.Duration
	// Missing is set when the session is not among the caller's. That can
	// be a session started for someone else, so it does not end the lab.
	Missing bool
}

// Ended reports whether the sandbox is gone.
func (s SessionState) Ended() bool {
	return !s.Missing && !s.Status.IsActive()
}

// Expiring reports whether a live session is within ExpiryWarning of its
// expiry time, or past it.
func (s SessionState) Expiring() bool {
	return !s.Missing && !s.Ended() && !s.ExpiresAt.IsZero() && s.Remaining <= ExpiryWarning
}

// Watch checks one session's status and expiry.
type Watch struct {
	svc       SessionLister
	sessionID string
	now       func() time.Time
}

// NewWatch creates a watch for sessionID. now defaults to time.Now.
func NewWatch(svc SessionLister, sessionID string, now func() time.Time) *Watch {
	if now == nil {
		now = time.Now
	}
	return &Watch{svc: svc, sessionID: sessionID, now: now}
}

// SessionID returns the watched session.
func (w *Watch) SessionID() string {
	return w.sessionID
}

// Check fetches the caller's sessions once.
func (w *Watch) Check(ctx context.Context) (SessionState, error) {
	sessions, err := w.svc.MySessions(ctx)
	if err != nil {
		return SessionState{}, err
	}
	for _, s := range sessions {
		if s.ID != w.sessionID {
			continue
		}
		st := SessionState{Status: s.Status, ExpiresAt: s.ExpiresAt.Time}
		if !st.ExpiresAt.IsZero() {
			if left := st.ExpiresAt.Sub(w.now()); left > 0 {
				st.Remaining = left
			}
		}
		return st, nil
	}
	return SessionState{Missing: true}, nil
}

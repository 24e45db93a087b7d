package admin

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/api"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/audit"
	laberrors "github.com/firefly-engineering/firefly-forage/packages/labctl/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/prompt"
)

var (
	// ErrReadOnly is returned for actions on a history session.
	ErrReadOnly = errors.New("session is not active")
	// ErrUnknownSession is returned for a session the browser has not seen.
	ErrUnknownSession = errors.New("unknown session")
)

// Service is the slice of the API the browser calls.
type Service interface {
	AdminStats(ctx context.Context) (*api.Stats, error)
	AdminSessions(ctx context.Context, status api.SessionStatus) ([]api.Session, error)
	AdminTerminateSession(ctx context.Context, id string) error
	SessionResources(ctx context.Context, id string) (*api.ResourceInventory, error)
	DeleteResource(ctx context.Context, id string, kind api.Kind, name string) error
}

// Browser is the admin view model.
type Browser struct {
	svc   Service
	audit audit.Sink

	mu          sync.Mutex
	issued      uint64
	applied     uint64
	stats       *api.Stats
	sessions    []api.Session
	expanded    map[string]bool
	inventories map[string]*api.ResourceInventory
	invIssued   map[string]uint64
	invApplied  map[string]uint64
}

// NewBrowser creates an empty browser. sink may be nil.
func NewBrowser(svc Service, sink audit.Sink) *Browser {
	if sink == nil {
		sink = audit.Discard
	}
	return &Browser{
		svc:         svc,
		audit:       sink,
		expanded:    make(map[string]bool),
		inventories: make(map[string]*api.ResourceInventory),
		invIssued:   make(map[string]uint64),
		invApplied:  make(map[string]uint64),
	}
}

// Refresh implements monitor.Refresher.
func (b *Browser) Refresh(ctx context.Context) error {
	return b.RefreshAll(ctx)
}

// RefreshAll fetches stats and the session list together. If a newer
// refresh has already been applied by the time this one returns, its
// result is dropped.
func (b *Browser) RefreshAll(ctx context.Context) error {
	b.mu.Lock()
	b.issued++
	seq := b.issued
	b.mu.Unlock()

	var (
		stats    *api.Stats
		sessions []api.Session
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = b.svc.AdminStats(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		sessions, err = b.svc.AdminSessions(gctx, "")
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if seq < b.applied {
		logging.Debug("dropping stale admin refresh", "seq", seq, "applied", b.applied)
		return nil
	}
	b.applied = seq
	b.stats = stats
	b.sessions = sessions
	return nil
}

// Stats returns the last applied stats, or nil before the first refresh.
func (b *Browser) Stats() *api.Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stats == nil {
		return nil
	}
	s := *b.stats
	return &s
}

// Sessions returns every session from the last applied refresh.
func (b *Browser) Sessions() []api.Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]api.Session(nil), b.sessions...)
}

// Active returns sessions whose status is active.
func (b *Browser) Active() []api.Session {
	return b.partition(true)
}

// History returns every session that is not active.
func (b *Browser) History() []api.Session {
	return b.partition(false)
}

func (b *Browser) partition(active bool) []api.Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []api.Session
	for _, s := range b.sessions {
		if s.Status.IsActive() == active {
			out = append(out, s)
		}
	}
	return out
}

// lookup must be called with b.mu held.
func (b *Browser) lookup(id string) (api.Session, bool) {
	for _, s := range b.sessions {
		if s.ID == id {
			return s, true
		}
	}
	return api.Session{}, false
}

// Expanded reports whether a session's panel is open.
func (b *Browser) Expanded(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.expanded[id]
}

// Inventory returns the cached inventory for a session.
func (b *Browser) Inventory(id string) (*api.ResourceInventory, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	inv, ok := b.inventories[id]
	return inv, ok
}

// ToggleExpand opens or closes a session's panel and reports whether it is
// now open. The inventory is fetched on the first opening only; reopening
// shows the cached one.
func (b *Browser) ToggleExpand(ctx context.Context, id string) (bool, error) {
	b.mu.Lock()
	s, ok := b.lookup(id)
	if !ok {
		b.mu.Unlock()
		return false, ErrUnknownSession
	}
	if !s.Status.IsActive() {
		b.mu.Unlock()
		return false, ErrReadOnly
	}

	open := !b.expanded[id]
	b.expanded[id] = open
	_, cached := b.inventories[id]
	b.mu.Unlock()

	if open && !cached {
		if _, err := b.RefreshInventory(ctx, id); err != nil {
			return open, err
		}
	}
	return open, nil
}

// RefreshInventory refetches a session's resources. History sessions have
// none and return ErrReadOnly.
func (b *Browser) RefreshInventory(ctx context.Context, id string) (*api.ResourceInventory, error) {
	if err := b.checkWritable(id); err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.invIssued[id]++
	seq := b.invIssued[id]
	b.mu.Unlock()

	inv, err := b.svc.SessionResources(ctx, id)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if seq < b.invApplied[id] {
		return b.inventories[id], nil
	}
	b.invApplied[id] = seq
	b.inventories[id] = inv
	return inv, nil
}

// checkWritable refuses history sessions. A session the browser has not
// listed yet is allowed; the server decides.
func (b *Browser) checkWritable(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.lookup(id); ok && !s.Status.IsActive() {
		return ErrReadOnly
	}
	return nil
}

// DeleteResource deletes one object from a session's namespace after
// confirm approves, then refetches that session's inventory.
func (b *Browser) DeleteResource(ctx context.Context, id string, kind api.Kind, name string, confirm prompt.Confirmer) error {
	if err := b.checkWritable(id); err != nil {
		return err
	}
	if !confirm.Confirm(fmt.Sprintf("Delete %s %q from session %s?", kind, name, id)) {
		return laberrors.Cancelled("resource delete")
	}

	if err := b.svc.DeleteResource(ctx, id, kind, name); err != nil {
		return err
	}
	audit.Record(b.audit, audit.Event{
		Type:    audit.EventResourceDelete,
		Session: id,
		Details: string(kind) + "/" + name,
	})

	if _, err := b.RefreshInventory(ctx, id); err != nil {
		return fmt.Errorf("deleted %s %s but failed to reload resources: %w", kind, name, err)
	}
	return nil
}

// TerminateSession force-ends a session after confirm approves, then
// refreshes everything.
func (b *Browser) TerminateSession(ctx context.Context, id string, confirm prompt.Confirmer) error {
	if err := b.checkWritable(id); err != nil {
		return err
	}
	if !confirm.Confirm(fmt.Sprintf("Terminate session %s and delete its sandbox?", id)) {
		return laberrors.Cancelled("terminate")
	}

	if err := b.svc.AdminTerminateSession(ctx, id); err != nil {
		return err
	}
	audit.Record(b.audit, audit.Event{
		Type:    audit.EventTerminate,
		Session: id,
		Details: "admin",
	})

	b.mu.Lock()
	delete(b.expanded, id)
	delete(b.inventories, id)
	b.mu.Unlock()

	return b.RefreshAll(ctx)
}

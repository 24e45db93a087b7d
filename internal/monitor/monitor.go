// Package monitor runs periodic refreshes against the lab API.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/logging"
)

// Refresher is polled on every tick.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefreshFunc adapts a function to Refresher.
type RefreshFunc func(ctx context.Context) error

// Refresh implements Refresher.
func (f RefreshFunc) Refresh(ctx context.Context) error { return f(ctx) }

// Monitor calls a Refresher immediately and then on a fixed interval.
type Monitor struct {
	name     string
	interval time.Duration
	target   Refresher
	onError  func(error)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithName labels the monitor in debug logs.
func WithName(name string) Option {
	return func(m *Monitor) {
		m.name = name
	}
}

// WithErrorHandler receives refresh failures. Without one they are logged.
func WithErrorHandler(fn func(error)) Option {
	return func(m *Monitor) {
		m.onError = fn
	}
}

// New creates a new Monitor.
func New(interval time.Duration, target Refresher, opts ...Option) *Monitor {
	m := &Monitor{
		name:     "poller",
		interval: interval,
		target:   target,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run starts the polling loop. It blocks until the context is cancelled.
// A tick that arrives while a refresh is still running is dropped.
func (m *Monitor) Run(ctx context.Context) error {
	logging.Debug("starting monitor", "name", m.name, "interval", m.interval)

	m.refresh(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Debug("monitor stopping", "name", m.name)
			return ctx.Err()
		case <-ticker.C:
			m.refresh(ctx)
		}
	}
}

func (m *Monitor) refresh(ctx context.Context) {
	if err := m.target.Refresh(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		if m.onError != nil {
			m.onError(err)
			return
		}
		logging.Warn("monitor refresh failed", "name", m.name, "error", err)
	}
}

// Start runs the loop in the background. Calling Start on a running
// monitor restarts it.
func (m *Monitor) Start(ctx context.Context) {
	m.Stop()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	m.mu.Lock()
	m.cancel = cancel
	m.done = done
	m.mu.Unlock()

	go func() {
		defer close(done)
		_ = m.Run(ctx)
	}()
}

// Stop cancels a background loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

package monitor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestMonitor_New(t *testing.T) {
	m := New(5*time.Second, RefreshFunc(func(context.Context) error { return nil }), WithName("admin"))

	if m.interval != 5*time.Second {
		t.Errorf("interval = %v, want 5s", m.interval)
	}
	if m.name != "admin" {
		t.Errorf("name = %q, want admin", m.name)
	}
}

func TestMonitor_RefreshesImmediately(t *testing.T) {
	var calls atomic.Int32
	m := New(time.Hour, RefreshFunc(func(context.Context) error {
		calls.Add(1)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for calls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("no immediate refresh")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	cancel()
	<-done
}

func TestMonitor_RunCancellation(t *testing.T) {
	var calls atomic.Int32
	m := New(20*time.Millisecond, RefreshFunc(func(context.Context) error {
		calls.Add(1)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- m.Run(ctx)
	}()

	time.Sleep(150 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not stop after context cancellation")
	}

	if calls.Load() < 2 {
		t.Errorf("refresh called %d times, want at least 2", calls.Load())
	}
}

func TestMonitor_ErrorHandler(t *testing.T) {
	boom := errors.New("boom")
	got := make(chan error, 1)

	m := New(time.Hour,
		RefreshFunc(func(context.Context) error { return boom }),
		WithErrorHandler(func(err error) {
			select {
			case got <- err:
			default:
			}
		}),
	)

	m.Start(context.Background())
	defer m.Stop()

	select {
	case err := <-got:
		if err != boom {
			t.Errorf("handler got %v, want %v", err, boom)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("error handler not called")
	}
}

func TestMonitor_StopHaltsRefreshes(t *testing.T) {
	var calls atomic.Int32
	m := New(10*time.Millisecond, RefreshFunc(func(context.Context) error {
		calls.Add(1)
		return nil
	}))

	m.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	m.Stop()

	after := calls.Load()
	time.Sleep(50 * time.Millisecond)
	if calls.Load() != after {
		t.Errorf("refresh ran after Stop: %d -> %d", after, calls.Load())
	}

	// Stop on a stopped monitor is a no-op.
	m.Stop()
}

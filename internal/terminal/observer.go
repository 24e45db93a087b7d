package terminal

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// SignalObserver reports terminal window size changes (SIGWINCH).
type SignalObserver struct {
	mu   sync.Mutex
	sigs chan os.Signal
	stop chan struct{}
}

// NewSignalObserver creates an observer for the controlling terminal.
func NewSignalObserver() *SignalObserver {
	return &SignalObserver{}
}

// Observe implements Observer. Notifications arrive on a separate
// goroutine.
func (o *SignalObserver) Observe(onResize func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sigs != nil {
		return
	}
	o.sigs = make(chan os.Signal, 4)
	o.stop = make(chan struct{})
	signal.Notify(o.sigs, syscall.SIGWINCH)

	sigs, stop := o.sigs, o.stop
	go func() {
		for {
			select {
			case <-stop:
				return
			case <-sigs:
				onResize()
			}
		}
	}()
}

// Disconnect implements Observer. It does not wait for an in-flight
// notification to finish.
func (o *SignalObserver) Disconnect() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sigs == nil {
		return
	}
	signal.Stop(o.sigs)
	close(o.stop)
	o.sigs = nil
	o.stop = nil
}

// ManualObserver is driven by the embedding program, for example a TUI
// forwarding its window size messages.
type ManualObserver struct {
	mu       sync.Mutex
	onResize func()
}

// Observe implements Observer.
func (o *ManualObserver) Observe(onResize func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onResize = onResize
}

// Disconnect implements Observer.
func (o *ManualObserver) Disconnect() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onResize = nil
}

// Notify reports a size change. It is a no-op once disconnected.
func (o *ManualObserver) Notify() {
	o.mu.Lock()
	fn := o.onResize
	o.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Package injection moves literal command strings from instruction text into
// whichever terminals are listening.
//
// A Channel is owned by the page-level program and handed by reference to
// both the publishers (the instruction renderer) and the subscribers (each
// mounted terminal bridge). Every subscriber receives every published
// command. Nothing is buffered: a command published with no subscribers is
// dropped.
package injection

import (
	"slices"
	"sync"

	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/logging"
)

// Handler receives one injected command.
type Handler func(command string)

// Channel is an explicit publish/subscribe channel for commands.
type Channel struct {
	mu       sync.RWMutex
	next     uint64
	handlers map[uint64]Handler
}

// NewChannel creates an empty channel.
func NewChannel() *Channel {
	return &Channel{handlers: make(map[uint64]Handler)}
}

// Subscribe registers h and returns a func that removes it. The returned
// func is safe to call more than once.
func (c *Channel) Subscribe(h Handler) (unsubscribe func()) {
	c.mu.Lock()
	id := c.next
	c.next++
	c.handlers[id] = h
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.handlers, id)
			c.mu.Unlock()
		})
	}
}

// Publish delivers command to every current subscriber, in subscription
// order, on the caller's goroutine. It returns the number of deliveries.
func (c *Channel) Publish(command string) int {
	c.mu.RLock()
	ids := make([]uint64, 0, len(c.handlers))
	for id := range c.handlers {
		ids = append(ids, id)
	}
	handlers := make([]Handler, 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		handlers = append(handlers, c.handlers[id])
	}
	c.mu.RUnlock()

	if len(handlers) == 0 {
		logging.Debug("injected command has no listeners", "command", command)
	}
	for _, h := range handlers {
		h(command)
	}
	return len(handlers)
}

// Subscribers returns the number of registered handlers.
func (c *Channel) Subscribers() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.handlers)
}

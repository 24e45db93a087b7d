// Package audit records what the user did to a session's sandbox.
// Events are stored as JSON Lines (JSONL) files, one per session, so a user
// can review what was applied or deleted after the session is gone.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/logging"
)

// EventType classifies a session action.
type EventType string

const (
	EventStart          EventType = "start"
	EventApply          EventType = "apply"
	EventDelete         EventType = "delete"
	EventComplete       EventType = "complete"
	EventTerminate      EventType = "terminate"
	EventExtend         EventType = "extend"
	EventResourceDelete EventType = "resource-delete"
	EventError          EventType = "error"
)

// Event represents a single audit log entry.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Session   string    `json:"session"`
	Lab       string    `json:"lab,omitempty"`
	Details   string    `json:"details,omitempty"`
}

// Sink accepts audit events. *Logger is the file-backed implementation.
type Sink interface {
	Log(event Event) error
}

// Discard is a Sink that drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) Log(Event) error { return nil }

// Record logs event to sink and reports a failure at debug level only; an
// audit write never fails the action it describes.
func Record(sink Sink, event Event) {
	if sink == nil {
		return
	}
	if err := sink.Log(event); err != nil {
		logging.Debug("audit write failed", "type", event.Type, "session", event.Session, "error", err)
	}
}

// Logger writes and reads session events.
// Events are stored in {stateDir}/sessions/{id}.events.jsonl.
type Logger struct {
	paths *config.Paths
	mu    sync.Mutex
}

// NewLogger creates a new audit logger over the given state layout.
func NewLogger(paths *config.Paths) *Logger {
	return &Logger{paths: paths}
}

// Log appends an event to the session's log.
func (l *Logger) Log(event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	path, err := l.paths.SessionEventsFile(event.Session)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create audit log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	return nil
}

// LogEvent creates and logs an event.
func (l *Logger) LogEvent(eventType EventType, session, details string) error {
	return l.Log(Event{
		Timestamp: time.Now(),
		Type:      eventType,
		Session:   session,
		Details:   details,
	})
}

// Events reads all events for a session in the order they were written.
func (l *Logger) Events(session string) ([]Event, error) {
	path, err := l.paths.SessionEventsFile(session)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			continue // Skip malformed lines
		}
		events = append(events, event)
	}

	if err := scanner.Err(); err != nil {
		return events, fmt.Errorf("error reading audit log: %w", err)
	}

	return events, nil
}

// Remove deletes the log for a session.
func (l *Logger) Remove(session string) error {
	path, err := l.paths.SessionEventsFile(session)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

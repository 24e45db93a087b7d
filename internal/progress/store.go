package progress

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"slices"
	"sync"

	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/system"
)

// Store records completed labs.
type Store interface {
	// Completed returns lab ids in the order they were first completed.
	Completed() ([]string, error)
	// MarkCompleted records labID. Recording a lab twice is a no-op.
	MarkCompleted(labID string) error
	// Clear forgets all completions.
	Clear() error
}

// FileStore keeps completions as a JSON array of lab ids.
type FileStore struct {
	path string
	fs   system.FileSystem
	mu   sync.Mutex
}

// NewFileStore creates a store backed by the file at path.
func NewFileStore(path string, fsys system.FileSystem) *FileStore {
	if fsys == nil {
		fsys = system.OS()
	}
	return &FileStore{path: path, fs: fsys}
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Completed() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *FileStore) load() ([]string, error) {
	data, err := s.fs.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read progress: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, errors.Decode(s.path, err)
	}
	return ids, nil
}

func (s *FileStore) MarkCompleted(labID string) error {
	if labID == "" {
		return errors.Validation("lab id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.load()
	if err != nil {
		return err
	}
	if slices.Contains(ids, labID) {
		return nil
	}
	ids = append(ids, labID)

	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	if err := s.fs.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fs.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to clear progress: %w", err)
	}
	return nil
}

// MemoryStore is a Store that lives only as long as the process.
type MemoryStore struct {
	mu  sync.Mutex
	ids []string
}

// NewMemoryStore creates a store seeded with ids.
func NewMemoryStore(ids ...string) *MemoryStore {
	s := &MemoryStore{}
	for _, id := range ids {
		_ = s.MarkCompleted(id)
	}
	return s
}

func (s *MemoryStore) Completed() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.ids), nil
}

func (s *MemoryStore) MarkCompleted(labID string) error {
	if labID == "" {
		return errors.Validation("lab id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.ids, labID) {
		s.ids = append(s.ids, labID)
	}
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = nil
	return nil
}

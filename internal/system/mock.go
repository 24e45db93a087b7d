package system

import (
	"context"
	"strings"
	"sync"
)

// MockCommand is one recorded invocation.
type MockCommand struct {
	Name string
	Args []string
}

// MockExecutor records commands instead of running them.
type MockExecutor struct {
	mu       sync.Mutex
	Commands []MockCommand
	Output   []byte
	Err      error
}

func (m *MockExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Commands = append(m.Commands, MockCommand{Name: name, Args: args})
	return m.Output, m.Err
}

// Last returns the most recent command line, or "".
func (m *MockExecutor) Last() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Commands) == 0 {
		return ""
	}
	c := m.Commands[len(m.Commands)-1]
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

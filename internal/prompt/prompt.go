// Package prompt asks the user to confirm destructive actions.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Confirmer decides whether a destructive action proceeds.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// AutoYes approves everything. It backs --yes.
var AutoYes Confirmer = ConfirmFunc(func(string) bool { return true })

// Never declines everything.
var Never Confirmer = ConfirmFunc(func(string) bool { return false })

// Stdin asks on w and reads a y/N answer from r. Anything but "y" or "yes"
// declines, including end of input.
type Stdin struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

// NewStdin creates a line-based confirmer.
func NewStdin(r io.Reader, w io.Writer) *Stdin {
	return &Stdin{in: bufio.NewReader(r), out: w}
}

// Confirm implements Confirmer.
func (s *Stdin) Confirm(prompt string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprintf(s.out, "%s [y/N]: ", prompt)
	line, err := s.in.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(s.out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// Recorder wraps a Confirmer and remembers every prompt it was asked.
type Recorder struct {
	mu      sync.Mutex
	next    Confirmer
	Prompts []string
}

// Record wraps next.
func Record(next Confirmer) *Recorder {
	return &Recorder{next: next}
}

// Confirm implements Confirmer.
func (r *Recorder) Confirm(prompt string) bool {
	r.mu.Lock()
	r.Prompts = append(r.Prompts, prompt)
	r.mu.Unlock()
	return r.next.Confirm(prompt)
}

// Asked returns how many prompts were shown.
func (r *Recorder) Asked() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Prompts)
}

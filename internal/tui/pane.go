package tui

import (
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/terminal"
)

// maxPaneBytes bounds the scrollback kept by a Pane.
const maxPaneBytes = 64 << 10

// Pane is a terminal.Surface drawn inside a bubbletea view. Output is kept
// as plain text; control sequences are stripped since the view is not a
// terminal emulator. Writes come from the bridge's goroutines, so every
// change only raises a signal the model waits on.
type Pane struct {
	mu       sync.Mutex
	buf      strings.Builder
	theme    terminal.Theme
	focused  bool
	follow   bool
	disposed bool
	fits     int

	changed chan struct{}
	done    chan struct{}
}

// NewPane creates an empty pane.
func NewPane() *Pane {
	return &Pane{
		theme:   terminal.DarkTheme,
		follow:  true,
		changed: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

func (p *Pane) signal() {
	select {
	case p.changed <- struct{}{}:
	default:
	}
}

func (p *Pane) Write(data string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disposed {
		return
	}
	text := strings.ReplaceAll(data, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "")
	p.buf.WriteString(ansi.Strip(text))
	if p.buf.Len() > maxPaneBytes {
		s := p.buf.String()
		s = s[len(s)-maxPaneBytes/2:]
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		}
		p.buf.Reset()
		p.buf.WriteString(s)
	}
	p.signal()
}

func (p *Pane) Writeln(line string) {
	p.Write(line + "\r\n")
}

// Fit counts layout passes; the view sizes the pane on every render.
func (p *Pane) Fit() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disposed {
		return nil
	}
	p.fits++
	return nil
}

func (p *Pane) Focus() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.focused = true
	p.signal()
}

// Blur drops focus; the model calls it when another pane takes input.
func (p *Pane) Blur() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.focused = false
}

func (p *Pane) ScrollToBottom() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.follow = true
}

func (p *Pane) SetTheme(t terminal.Theme) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.theme = t
	p.signal()
}

func (p *Pane) Dispose() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.disposed {
		p.disposed = true
		close(p.done)
	}
	return nil
}

// Content returns the scrollback.
func (p *Pane) Content() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.String()
}

// Theme returns the palette last applied by the bridge.
func (p *Pane) Theme() terminal.Theme {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.theme
}

// Focused reports whether the bridge last asked for focus.
func (p *Pane) Focused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.focused
}

// takeFollow reports and clears a pending scroll-to-bottom.
func (p *Pane) takeFollow() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	f := p.follow
	p.follow = false
	return f
}

// Fits returns how many times the pane was fitted.
func (p *Pane) Fits() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fits
}

// paneMsg reports new pane content.
type paneMsg struct{}

// wait returns a command that fires on the next change.
func (p *Pane) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-p.changed:
			return paneMsg{}
		case <-p.done:
			return nil
		}
	}
}

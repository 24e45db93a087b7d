package terminal

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// DetachKey ends a console session locally (Ctrl-]).
const DetachKey = 0x1d

// OSC sequences that return the palette to the terminal's own defaults.
const resetPalette = "\x1b]110\a\x1b]111\a\x1b]112\a"

// ConsoleSurface renders the remote shell on the local TTY. Input is put in
// raw mode so keystrokes reach the shell unprocessed.
type ConsoleSurface struct {
	in     *os.File
	out    *os.File
	output *termenv.Output

	mu       sync.Mutex
	restore  func()
	themed   bool
	cols     int
	rows     int
	disposed bool
}

// NewConsoleSurface creates a surface over the given TTY files.
func NewConsoleSurface(in, out *os.File) *ConsoleSurface {
	return &ConsoleSurface{
		in:     in,
		out:    out,
		output: termenv.NewOutput(out),
	}
}

// Start switches the input to raw mode. It is a no-op when input is not a
// terminal.
func (s *ConsoleSurface) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fd := int(s.in.Fd())
	if !term.IsTerminal(fd) {
		s.restore = func() {}
		return nil
	}
	old, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("failed to enter raw mode: %w", err)
	}
	s.restore = func() { _ = term.Restore(fd, old) }
	return nil
}

func (s *ConsoleSurface) Write(data string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	_, _ = io.WriteString(s.out, data)
}

func (s *ConsoleSurface) Writeln(line string) {
	s.Write(line + "\r\n")
}

// Fit records the current window size.
func (s *ConsoleSurface) Fit() error {
	fd := int(s.out.Fd())
	if !term.IsTerminal(fd) {
		return errors.New("output is not a terminal")
	}
	cols, rows, err := term.GetSize(fd)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.cols, s.rows = cols, rows
	s.mu.Unlock()
	return nil
}

// Size returns the last fitted size.
func (s *ConsoleSurface) Size() (cols, rows int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cols, s.rows
}

// Focus is a no-op; the console always has input focus.
func (s *ConsoleSurface) Focus() {}

// ScrollToBottom is a no-op; the TTY follows its own output.
func (s *ConsoleSurface) ScrollToBottom() {}

// SetTheme sets the terminal's default colors via OSC sequences.
func (s *ConsoleSurface) SetTheme(t Theme) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed || !term.IsTerminal(int(s.out.Fd())) {
		return
	}
	s.output.SetBackgroundColor(termenv.RGBColor(t.Background))
	s.output.SetForegroundColor(termenv.RGBColor(t.Foreground))
	s.output.SetCursorColor(termenv.RGBColor(t.Cursor))
	s.themed = true
}

// Dispose restores the terminal mode and palette.
func (s *ConsoleSurface) Dispose() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return nil
	}
	s.disposed = true
	if s.themed {
		_, _ = io.WriteString(s.out, resetPalette)
	}
	if s.restore != nil {
		s.restore()
	}
	return nil
}

// InputSink receives typed data.
type InputSink interface {
	Input(data string) bool
}

// Pump copies keystrokes from r to sink until r ends or the detach key is
// read. Bytes typed before the detach key in the same read are forwarded.
func Pump(r io.Reader, sink InputSink) error {
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if i := bytes.IndexByte(chunk, DetachKey); i >= 0 {
				if i > 0 {
					sink.Input(string(chunk[:i]))
				}
				return nil
			}
			sink.Input(string(chunk))
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

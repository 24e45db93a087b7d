package system

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// CommandExecutor runs external programs.
type CommandExecutor interface {
	// Execute runs a command and returns its combined output.
	Execute(ctx context.Context, name string, args ...string) ([]byte, error)
}

// DefaultExecutor returns the executor backed by os/exec.
func DefaultExecutor() CommandExecutor {
	return osExecutor{}
}

type osExecutor struct{}

func (osExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Opener hands URLs to the desktop's browser.
type Opener struct {
	Exec CommandExecutor
	GOOS string
}

// NewOpener creates an opener for the running platform.
func NewOpener(exec CommandExecutor) *Opener {
	return &Opener{Exec: exec, GOOS: runtime.GOOS}
}

// Open launches url. Only http and https URLs are accepted.
func (o *Opener) Open(ctx context.Context, url string) error {
	if !strings.HasPrefix(url, "https://") && !strings.HasPrefix(url, "http://") {
		return fmt.Errorf("refusing to open %q: not an http(s) URL", url)
	}

	var name string
	var args []string
	switch o.GOOS {
	case "darwin":
		name, args = "open", []string{url}
	case "windows":
		name, args = "rundll32", []string{"url.dll,FileProtocolHandler", url}
	default:
		name, args = "xdg-open", []string{url}
	}

	if out, err := o.Exec.Execute(ctx, name, args...); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

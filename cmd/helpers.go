package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/api"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/app"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/prompt"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/terminal"
)

// Helper aliases for user-facing output (delegates to logging package)
var (
	logInfo    = logging.UserInfo
	logSuccess = logging.UserSuccess
	logWarning = logging.UserWarning
)

// paths returns the state layout of the default app.
func paths() *config.Paths {
	return app.Default.Paths
}

// client returns the API client of the default app.
func client() (*api.Client, error) {
	return app.Default.Client()
}

// commandContext returns the command's context, or a background one when
// the command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// isInteractive reports whether stdin and stdout are both terminals.
var isInteractive = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// confirmer returns AutoYes for --yes, else a y/N prompt on the command's
// streams.
func confirmer(cmd *cobra.Command, yes bool) prompt.Confirmer {
	if yes {
		return prompt.AutoYes
	}
	return prompt.NewStdin(cmd.InOrStdin(), cmd.ErrOrStderr())
}

// resolveSession returns the --session value, else the session of the last
// started lab.
func resolveSession(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if id := terminal.SessionIDFromAddress(app.Default.Address().Address()); id != "" {
		logging.Debug("using session from address", "session", id)
		return id, nil
	}
	return "", errors.NoSession()
}

// readInput reads a file argument; "-" reads the command's stdin.
func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// withLogFile sends logs to the state log file while a full-screen UI
// owns the terminal.
func withLogFile(fn func() error) error {
	restore, err := logging.RedirectToFile(paths().LogFile)
	if err != nil {
		logging.Debug("failed to redirect logs", "error", err)
		return fn()
	}
	defer restore()
	return fn()
}

// validationError reports err with the validation exit code.
func validationError(err error) error {
	return errors.Validation(err.Error())
}

func formatTime(ts api.Timestamp) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format("2006-01-02 15:04")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

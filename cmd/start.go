package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/api"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/app"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/audit"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/injection"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/lab"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/terminal"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/tui"
)

var startCmd = &cobra.Command{
	Use:   "start [lab-id]",
	Short: "Start a lab session",
	Long: `Provisions a sandbox for a lab and opens the lab workspace.

Without a lab id, an interactive picker lists the catalog.
With --no-tui the session is created and its id printed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStart,
}

var startNoTUI bool

func init() {
	startCmd.Flags().BoolVar(&startNoTUI, "no-tui", false, "Create the session without opening the workspace")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	c, err := client()
	if err != nil {
		return err
	}

	var labID string
	if len(args) > 0 {
		labID = args[0]
	} else {
		picked, err := pickLab(cmd, c)
		if err != nil || picked == nil {
			return err
		}
		labID = picked.ID
	}

	logging.Debug("starting lab", "lab", labID)
	session, err := c.CreateSession(ctx, labID)
	if err != nil {
		return err
	}

	if err := paths().WriteAddress(terminal.LabAddress(labID, session.ID)); err != nil {
		logWarning("Could not record the current lab: %v", err)
	}
	audit.Record(app.Default.Audit, audit.Event{
		Type:    audit.EventStart,
		Session: session.ID,
		Lab:     labID,
	})

	logSuccess("Started %s (session %s)", labID, session.ID)
	if !session.ExpiresAt.IsZero() {
		logInfo("  Expires: %s", formatTime(session.ExpiresAt))
	}

	if startNoTUI {
		fmt.Fprintln(cmd.OutOrStdout(), session.ID)
		logInfo("Open the workspace with: labctl lab %s --session %s", labID, session.ID)
		return nil
	}
	return runWorkspace(ctx, labID, session.ID)
}

// pickLab asks for a lab interactively. It returns nil when the user quits.
func pickLab(cmd *cobra.Command, c *api.Client) (*api.Lab, error) {
	labs, err := c.ListLabs(commandContext(cmd), api.LabFilter{})
	if err != nil {
		return nil, err
	}
	completed := completedLabs()

	if !isInteractive() {
		fmt.Fprint(cmd.OutOrStdout(), tui.SimplePicker(labs, completed))
		return nil, errors.Validation("a lab id is required when not running in a terminal")
	}

	result, err := tui.RunPicker(labs, completed)
	if err != nil {
		return nil, fmt.Errorf("picker error: %w", err)
	}
	logging.Debug("picker result", "action", result.Action)
	if result.Action != tui.ActionStart {
		return nil, nil
	}
	return result.Lab, nil
}

// runWorkspace loads a lab and runs the workspace until the user leaves.
func runWorkspace(ctx context.Context, labID, sessionID string) error {
	a := app.Default
	ctrl, err := a.Controller(sessionID)
	if err != nil {
		return err
	}
	if err := ctrl.Load(ctx, labID); err != nil {
		return err
	}
	bench, err := a.Workbench()
	if err != nil {
		return err
	}
	c, err := a.Client()
	if err != nil {
		return err
	}

	opts := tui.LabOptions{
		Controller: ctrl,
		Workbench:  bench,
		Channel:    injection.NewChannel(),
		Opener:     a.Opener,
		Watch:      lab.NewWatch(c, sessionID, nil),
	}
	if ctrl.Hints().ShowShell {
		opts.Bridge = newBridge(sessionID, opts.Channel)
	}

	var result tui.LabResult
	err = withLogFile(func() error {
		var err error
		result, err = tui.RunLab(ctx, opts)
		return err
	})
	if err != nil {
		return err
	}

	reportOutcome(result, labID, sessionID)
	return nil
}

// newBridge builds a terminal bridge for the default app. An empty
// sessionID defers to the recorded address; ch may be nil.
func newBridge(sessionID string, ch *injection.Channel) *terminal.Bridge {
	a := app.Default
	return terminal.New(terminal.Options{
		SessionID: sessionID,
		Address:   a.Address(),
		ShellURL:  a.ShellURL(),
		Dialer:    a.Dialer,
		Channel:   ch,
		Theme:     a.Theme(),
	})
}

func reportOutcome(result tui.LabResult, labID, sessionID string) {
	switch result.Outcome {
	case lab.Completed:
		logSuccess("Lab %s complete!", labID)
	case lab.Ended:
		logInfo("Session %s ended", sessionID)
	default:
		logInfo("Session %s is still running. Resume with: labctl lab %s --session %s", sessionID, labID, sessionID)
	}
}

package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/terminal"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Open the sandbox shell of a session",
	Long: `Connects the local terminal to the sandbox shell of a session.

Without --session the session of the last started lab is used.
Press Ctrl-] to detach; the session keeps running.`,
	Args: cobra.NoArgs,
	RunE: runShell,
}

var shellSession string

func init() {
	shellCmd.Flags().StringVarP(&shellSession, "session", "s", "", "Session id (default: the last started lab)")
	rootCmd.AddCommand(shellCmd)
}

func runShell(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	surface := terminal.NewConsoleSurface(os.Stdin, os.Stdout)
	if err := surface.Start(); err != nil {
		return err
	}

	bridge := newBridge(shellSession, nil)
	if err := bridge.Mount(ctx, surface, terminal.NewSignalObserver()); err != nil {
		_ = surface.Dispose()
		return err
	}
	defer func() {
		if err := bridge.Unmount(); err != nil {
			logging.Debug("terminal teardown failed", "error", err)
		}
	}()

	detached := make(chan error, 1)
	go func() {
		detached <- terminal.Pump(os.Stdin, bridge)
	}()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		_, _ = bridge.WaitFor(ctx, terminal.Closed)
	}()

	select {
	case err := <-detached:
		return err
	case <-closed:
		return nil
	}
}

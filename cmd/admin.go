package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/api"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/app"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/tui"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Browse and manage every lab session",
	Long: `Opens the admin browser. Stats and sessions refresh periodically.

Keys:
  enter  Expand / collapse a session's resources
  r      Reload the selected session's resources
  x      Delete the selected resource
  K      Terminate the selected session
  tab    Switch between active and history
  q      Quit`,
	Args: cobra.NoArgs,
	RunE: runAdmin,
}

var adminStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cluster session stats",
	Args:  cobra.NoArgs,
	RunE:  runAdminStats,
}

var adminSessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List sessions of every user",
	Args:  cobra.NoArgs,
	RunE:  runAdminSessions,
}

var adminResourcesCmd = &cobra.Command{
	Use:   "resources <session-id>",
	Short: "List the resources in a session's sandbox",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdminResources,
}

var adminRmCmd = &cobra.Command{
	Use:   "rm <session-id> <kind> <name>",
	Short: "Delete one resource from a session's sandbox",
	Long: `Deletes one resource from a session's sandbox.

Kinds: pod, service, deployment, pvc, secret (plurals accepted).`,
	Args: cobra.ExactArgs(3),
	RunE: runAdminRm,
}

var adminTerminateCmd = &cobra.Command{
	Use:   "terminate <session-id>",
	Short: "Force-end a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdminTerminate,
}

var (
	adminStatus string
	adminYes    bool
)

func init() {
	adminSessionsCmd.Flags().StringVar(&adminStatus, "status", "", "Only list sessions with this status (active, completed, terminated, expired, error)")
	for _, c := range []*cobra.Command{adminRmCmd, adminTerminateCmd} {
		c.Flags().BoolVarP(&adminYes, "yes", "y", false, "Do not ask for confirmation")
	}
	adminCmd.AddCommand(adminStatsCmd, adminSessionsCmd, adminResourcesCmd, adminRmCmd, adminTerminateCmd)
	rootCmd.AddCommand(adminCmd)
}

func runAdmin(cmd *cobra.Command, args []string) error {
	b, err := app.Default.Browser()
	if err != nil {
		return err
	}
	interval := app.Default.Config.AdminPollInterval.Duration
	return withLogFile(func() error {
		return tui.RunAdmin(commandContext(cmd), b, interval)
	})
}

func runAdminStats(cmd *cobra.Command, args []string) error {
	c, err := client()
	if err != nil {
		return err
	}

	st, err := c.AdminStats(commandContext(cmd))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Active sessions:     %d\n", st.ActiveSessions)
	fmt.Fprintf(out, "Total sessions:      %d\n", st.TotalSessionsAllTime)
	fmt.Fprintf(out, "Cluster utilization: %.1f%%\n", st.ClusterUtilizationPct)
	return nil
}

func runAdminSessions(cmd *cobra.Command, args []string) error {
	c, err := client()
	if err != nil {
		return err
	}

	sessions, err := c.AdminSessions(commandContext(cmd), api.SessionStatus(strings.ToLower(adminStatus)))
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		logInfo("No sessions found.")
		return nil
	}

	writeSessions(cmd, sessions, true)
	return nil
}

func runAdminResources(cmd *cobra.Command, args []string) error {
	c, err := client()
	if err != nil {
		return err
	}

	inv, err := c.SessionResources(commandContext(cmd), args[0])
	if err != nil {
		return err
	}

	if inv.Len() == 0 {
		logInfo("No resources in session %s", args[0])
		return nil
	}

	out := cmd.OutOrStdout()
	if inv.Namespace != "" {
		fmt.Fprintf(out, "Namespace: %s\n", inv.Namespace)
	}
	for _, kind := range api.Kinds {
		for _, name := range inv.Names(kind) {
			fmt.Fprintf(out, "%s/%s\n", kind, name)
		}
	}
	return nil
}

func runAdminRm(cmd *cobra.Command, args []string) error {
	id, name := args[0], args[2]
	kind, err := api.ParseKind(args[1])
	if err != nil {
		return validationError(err)
	}

	b, err := app.Default.Browser()
	if err != nil {
		return err
	}
	if err := b.DeleteResource(commandContext(cmd), id, kind, name, confirmer(cmd, adminYes)); err != nil {
		return err
	}

	logSuccess("Deleted %s %s from session %s", kind, name, id)
	return nil
}

func runAdminTerminate(cmd *cobra.Command, args []string) error {
	id := args[0]

	b, err := app.Default.Browser()
	if err != nil {
		return err
	}
	if err := b.TerminateSession(commandContext(cmd), id, confirmer(cmd, adminYes)); err != nil {
		return err
	}

	logSuccess("Terminated session %s", id)
	return nil
}

package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/api"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/app"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/audit"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/logging"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List your lab sessions",
	Args:  cobra.NoArgs,
	RunE:  runSessions,
}

var sessionsExtendCmd = &cobra.Command{
	Use:   "extend <session-id>",
	Short: "Extend a session's expiry",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsExtend,
}

var sessionsEndCmd = &cobra.Command{
	Use:   "end <session-id>",
	Short: "End a session and delete its sandbox",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsEnd,
}

var sessionsLogCmd = &cobra.Command{
	Use:   "log <session-id>",
	Short: "Show the local action log of a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsLog,
}

var (
	sessionsEndComplete bool
	sessionsEndYes      bool
	sessionsLogClear    bool
)

func init() {
	sessionsEndCmd.Flags().BoolVar(&sessionsEndComplete, "complete", false, "Mark the lab complete before ending")
	sessionsEndCmd.Flags().BoolVarP(&sessionsEndYes, "yes", "y", false, "Do not ask for confirmation")
	sessionsLogCmd.Flags().BoolVar(&sessionsLogClear, "clear", false, "Delete the log instead of printing it")
	sessionsCmd.AddCommand(sessionsExtendCmd, sessionsEndCmd, sessionsLogCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(cmd *cobra.Command, args []string) error {
	c, err := client()
	if err != nil {
		return err
	}

	sessions, err := c.MySessions(commandContext(cmd))
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		logInfo("No sessions found. Start one with: labctl start <lab-id>")
		return nil
	}

	writeSessions(cmd, sessions, false)
	return nil
}

// writeSessions prints a session table; withUser adds the owner column.
func writeSessions(cmd *cobra.Command, sessions []api.Session, withUser bool) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	if withUser {
		fmt.Fprintln(w, "ID\tUSER\tLAB\tNAMESPACE\tSTATUS\tSTARTED\tEXPIRES")
		fmt.Fprintln(w, "--\t----\t---\t---------\t------\t-------\t-------")
	} else {
		fmt.Fprintln(w, "ID\tLAB\tNAMESPACE\tSTATUS\tSTARTED\tEXPIRES")
		fmt.Fprintln(w, "--\t---\t---------\t------\t-------\t-------")
	}
	for _, s := range sessions {
		if withUser {
			fmt.Fprintf(w, "%s\t%s\t", s.ID, orDash(s.UserID))
		} else {
			fmt.Fprintf(w, "%s\t", s.ID)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			orDash(s.LabID), orDash(s.SandboxNamespace), s.Status, formatTime(s.StartTime), formatTime(s.ExpiresAt))
	}
	_ = w.Flush()
}

func runSessionsExtend(cmd *cobra.Command, args []string) error {
	id := args[0]
	c, err := client()
	if err != nil {
		return err
	}

	res, err := c.ExtendSession(commandContext(cmd), id)
	if err != nil {
		return err
	}
	audit.Record(app.Default.Audit, audit.Event{Type: audit.EventExtend, Session: id})

	msg := res.Message
	if msg == "" {
		msg = "Session extended"
	}
	if res.NewExpiry != nil && !res.NewExpiry.IsZero() {
		logSuccess("%s (expires %s)", msg, formatTime(*res.NewExpiry))
	} else {
		logSuccess("%s", msg)
	}
	return nil
}

func runSessionsEnd(cmd *cobra.Command, args []string) error {
	id := args[0]
	ctx := commandContext(cmd)
	c, err := client()
	if err != nil {
		return err
	}

	if !confirmer(cmd, sessionsEndYes).Confirm(fmt.Sprintf("End session %s and delete its sandbox?", id)) {
		return errors.Cancelled("end session")
	}

	labID := ""
	if sessionsEndComplete {
		labID = sessionLab(cmd, c, id)
		if err := c.CompleteSession(ctx, id); err != nil {
			return err
		}
		audit.Record(app.Default.Audit, audit.Event{Type: audit.EventComplete, Session: id, Lab: labID})
		if labID != "" {
			if err := app.Default.Progress.MarkCompleted(labID); err != nil {
				logWarning("Could not record progress: %v", err)
			}
		}
	}

	if err := c.TerminateSession(ctx, id); err != nil {
		return err
	}
	audit.Record(app.Default.Audit, audit.Event{Type: audit.EventTerminate, Session: id, Lab: labID})

	if sessionsEndComplete && labID != "" {
		logSuccess("Completed %s and ended session %s", labID, id)
	} else {
		logSuccess("Ended session %s", id)
	}
	return nil
}

// sessionLab finds the lab of one of the caller's sessions, or "".
func sessionLab(cmd *cobra.Command, c *api.Client, id string) string {
	sessions, err := c.MySessions(commandContext(cmd))
	if err != nil {
		logging.Debug("failed to look up session lab", "session", id, "error", err)
		return ""
	}
	for _, s := range sessions {
		if s.ID == id {
			return s.LabID
		}
	}
	return ""
}

func runSessionsLog(cmd *cobra.Command, args []string) error {
	id := args[0]

	if sessionsLogClear {
		if err := app.Default.Audit.Remove(id); err != nil {
			return fmt.Errorf("failed to clear session log: %w", err)
		}
		logSuccess("Cleared the log of session %s", id)
		return nil
	}

	events, err := app.Default.Audit.Events(id)
	if err != nil {
		return fmt.Errorf("failed to read session log: %w", err)
	}

	if len(events) == 0 {
		logInfo("No events found for session %s", id)
		return nil
	}

	out := cmd.OutOrStdout()
	for _, e := range events {
		ts := e.Timestamp.Local().Format("2006-01-02 15:04:05")
		line := fmt.Sprintf("[%s] %-16s", ts, e.Type)
		if e.Lab != "" {
			line += " " + e.Lab
		}
		if e.Details != "" {
			line += " (" + e.Details + ")"
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

package cmd

import (
	"github.com/spf13/cobra"
)

var labCmd = &cobra.Command{
	Use:   "lab <lab-id>",
	Short: "Open the workspace of a running lab",
	Long: `Opens the lab workspace: instructions, manifest editor and sandbox terminal.

Keys:
  n/p     Next / previous step
  1-9     Run a command in the terminal
  a/D     Apply / delete the manifest
  e/t     Focus the editor / terminal (esc returns)
  T       Toggle the terminal theme
  q       End the lab
  ctrl+c  Leave the session running`,
	Args: cobra.ExactArgs(1),
	RunE: runLab,
}

var labSession string

func init() {
	labCmd.Flags().StringVarP(&labSession, "session", "s", "", "Session id (default: the last started lab)")
	rootCmd.AddCommand(labCmd)
}

func runLab(cmd *cobra.Command, args []string) error {
	sessionID, err := resolveSession(labSession)
	if err != nil {
		return err
	}
	return runWorkspace(commandContext(cmd), args[0], sessionID)
}

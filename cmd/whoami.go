package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the identity the API sees",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}

func runWhoami(cmd *cobra.Command, args []string) error {
	c, err := client()
	if err != nil {
		return err
	}

	id, err := c.Me(commandContext(cmd))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "User:   %s\n", id.UserID)
	if id.Name != "" {
		fmt.Fprintf(out, "Name:   %s\n", id.Name)
	}
	if id.Email != "" {
		fmt.Fprintf(out, "Email:  %s\n", id.Email)
	}
	if len(id.Groups) > 0 {
		fmt.Fprintf(out, "Groups: %s\n", strings.Join(id.Groups, ", "))
	}
	if id.IsAdmin {
		fmt.Fprintln(out, "Role:   admin")
	} else {
		fmt.Fprintln(out, "Role:   user")
	}
	return nil
}

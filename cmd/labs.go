package cmd

import (
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/api"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/app"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/lab"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/logging"
)

var labsCmd = &cobra.Command{
	Use:   "labs",
	Short: "List the lab catalog",
	Args:  cobra.NoArgs,
	RunE:  runLabs,
}

var labsShowCmd = &cobra.Command{
	Use:   "show <lab-id>",
	Short: "Show a lab's steps",
	Args:  cobra.ExactArgs(1),
	RunE:  runLabsShow,
}

var (
	labsCategory string
	labsPersona  string
)

func init() {
	labsCmd.Flags().StringVar(&labsCategory, "category", "", "Only list labs in this category")
	labsCmd.Flags().StringVar(&labsPersona, "persona", "", "Only list labs for this persona")
	labsCmd.AddCommand(labsShowCmd)
	rootCmd.AddCommand(labsCmd)
}

// completedLabs returns the locally recorded completions. A broken store
// is reported and treated as empty.
func completedLabs() []string {
	completed, err := app.Default.Progress.Completed()
	if err != nil {
		logging.Warn("failed to read progress", "error", err)
		return nil
	}
	return completed
}

func runLabs(cmd *cobra.Command, args []string) error {
	c, err := client()
	if err != nil {
		return err
	}

	labs, err := c.ListLabs(commandContext(cmd), api.LabFilter{Category: labsCategory, Persona: labsPersona})
	if err != nil {
		return err
	}

	if len(labs) == 0 {
		logInfo("No labs found.")
		return nil
	}

	completed := completedLabs()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tCATEGORY\tDIFFICULTY\tDURATION\tSTEPS\tDONE")
	fmt.Fprintln(w, "--\t-----\t--------\t----------\t--------\t-----\t----")
	for _, l := range labs {
		done := ""
		if slices.Contains(completed, l.ID) {
			done = "✓"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			l.ID, l.Title, orDash(l.Category), orDash(l.Difficulty), orDash(l.Duration), len(l.Steps), done)
	}
	return w.Flush()
}

func runLabsShow(cmd *cobra.Command, args []string) error {
	c, err := client()
	if err != nil {
		return err
	}

	l, err := c.GetLab(commandContext(cmd), args[0])
	if err != nil {
		return err
	}
	lab.EnsureCompletionStep(l)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s)\n", l.Title, l.ID)
	if l.Description != "" {
		fmt.Fprintf(out, "%s\n", l.Description)
	}
	fmt.Fprintf(out, "\nDifficulty:    %s\n", orDash(l.Difficulty))
	fmt.Fprintf(out, "Duration:      %s\n", orDash(l.Duration))
	if len(l.Persona) > 0 {
		fmt.Fprintf(out, "Personas:      %s\n", strings.Join(l.Persona, ", "))
	}
	if len(l.Prerequisites) > 0 {
		fmt.Fprintf(out, "Prerequisites: %s\n", strings.Join(l.Prerequisites, ", "))
	}
	fmt.Fprintf(out, "Panes:         %s\n", describeHints(l.Hints()))

	for i := range l.Steps {
		step := &l.Steps[i]
		fmt.Fprintf(out, "\n%d. %s\n", i+1, step.DisplayTitle(i))
		if step.IsCompletion() {
			continue
		}
		for _, n := range renderCommands(step) {
			fmt.Fprintf(out, "   %s\n", n)
		}
	}
	return nil
}

// describeHints names the panes a lab opens.
func describeHints(h api.UIHints) string {
	var panes []string
	if h.ShowShell {
		panes = append(panes, "terminal")
	}
	if h.ShowEditor {
		panes = append(panes, "editor")
	}
	if h.RequiresExternalUI {
		panes = append(panes, "external UI")
	}
	if len(panes) == 0 {
		return "instructions only"
	}
	return strings.Join(panes, ", ")
}

// renderCommands lists a step's command affordances as "[N] command".
func renderCommands(step *api.Step) []string {
	r := lab.Render(step)
	lines := make([]string, 0, len(r.Commands))
	for i, c := range r.Commands {
		lines = append(lines, fmt.Sprintf("[%d] %s", i+1, c))
	}
	return lines
}

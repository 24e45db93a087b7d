package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/api"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/app"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/progress"
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Show completed labs, achievements and what to try next",
	Long: `Shows the labs completed on this machine, earned achievements and
recommended next labs. Progress is stored locally only.`,
	Args: cobra.NoArgs,
	RunE: runProgress,
}

var progressClear bool

func init() {
	progressCmd.Flags().BoolVar(&progressClear, "clear", false, "Forget all completed labs")
	rootCmd.AddCommand(progressCmd)
}

func runProgress(cmd *cobra.Command, args []string) error {
	store := app.Default.Progress

	if progressClear {
		if err := store.Clear(); err != nil {
			return fmt.Errorf("failed to clear progress: %w", err)
		}
		logSuccess("Progress cleared")
		return nil
	}

	completed, err := store.Completed()
	if err != nil {
		return fmt.Errorf("failed to read progress: %w", err)
	}

	// The catalog only adds titles and recommendations.
	var labs []api.Lab
	if c, err := client(); err == nil {
		labs, err = c.ListLabs(commandContext(cmd), api.LabFilter{})
		if err != nil {
			logging.Warn("failed to load lab catalog", "error", err)
		}
	}

	out := cmd.OutOrStdout()
	if len(labs) > 0 {
		n := countCompleted(labs, completed)
		fmt.Fprintf(out, "Completed: %d of %d labs (%.0f%%)\n", n, len(labs), progress.Percent(n, len(labs)))
	} else {
		fmt.Fprintf(out, "Completed: %d labs\n", len(completed))
	}
	fmt.Fprintf(out, "Level:     %s\n", progress.SkillLevel(len(completed)))

	if len(completed) > 0 {
		fmt.Fprintln(out, "\nCompleted labs:")
		for _, id := range completed {
			fmt.Fprintf(out, "  ✓ %s\n", labTitle(labs, id))
		}
	}

	if earned := progress.Earned(completed); len(earned) > 0 {
		fmt.Fprintln(out, "\nAchievements:")
		for _, a := range earned {
			fmt.Fprintf(out, "  %s %s - %s\n", a.Icon, a.Title, a.Description)
		}
	}

	if next := progress.Recommend(labs, completed, progress.DefaultRecommendations); len(next) > 0 {
		fmt.Fprintln(out, "\nRecommended next:")
		for _, l := range next {
			fmt.Fprintf(out, "  %s (%s)\n", l.Title, l.ID)
		}
	}
	return nil
}

func countCompleted(labs []api.Lab, completed []string) int {
	n := 0
	for _, l := range labs {
		if slices.Contains(completed, l.ID) {
			n++
		}
	}
	return n
}

// labTitle names a lab by its catalog title when known.
func labTitle(labs []api.Lab, id string) string {
	for _, l := range labs {
		if l.ID == id {
			return fmt.Sprintf("%s (%s)", l.Title, id)
		}
	}
	return id
}

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/api"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/app"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/manifest"
)

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Validate and apply Kubernetes manifests",
}

var manifestValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check that a file holds YAML mappings",
	Args:  cobra.ExactArgs(1),
	RunE:  runManifestValidate,
}

var manifestApplyCmd = &cobra.Command{
	Use:   "apply <file>",
	Short: "Apply a manifest to a session's sandbox",
	Long: `Applies a manifest to a session's sandbox. Use - to read stdin.

The server validates the manifest; invalid YAML is reported by the server.`,
	Args: cobra.ExactArgs(1),
	RunE: runManifestApply,
}

var manifestDeleteCmd = &cobra.Command{
	Use:   "delete <file>",
	Short: "Delete a manifest's resources from a session's sandbox",
	Args:  cobra.ExactArgs(1),
	RunE:  runManifestDelete,
}

var (
	manifestSession string
	manifestYes     bool
)

func init() {
	for _, c := range []*cobra.Command{manifestApplyCmd, manifestDeleteCmd} {
		c.Flags().StringVarP(&manifestSession, "session", "s", "", "Session id (default: the last started lab)")
	}
	manifestDeleteCmd.Flags().BoolVarP(&manifestYes, "yes", "y", false, "Do not ask for confirmation")
	manifestCmd.AddCommand(manifestValidateCmd, manifestApplyCmd, manifestDeleteCmd)
	rootCmd.AddCommand(manifestCmd)
}

func runManifestValidate(cmd *cobra.Command, args []string) error {
	text, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}
	docs, err := manifest.Parse(text)
	if err != nil {
		return err
	}
	if docs == 1 {
		logSuccess("Valid manifest (1 document)")
	} else {
		logSuccess("Valid manifest (%d documents)", docs)
	}
	return nil
}

// manifestTarget reads the file and resolves the session for apply and
// delete.
func manifestTarget(cmd *cobra.Command, path string) (*manifest.Workbench, string, string, error) {
	text, err := readInput(cmd, path)
	if err != nil {
		return nil, "", "", err
	}
	sessionID, err := resolveSession(manifestSession)
	if err != nil {
		return nil, "", "", err
	}
	bench, err := app.Default.Workbench()
	if err != nil {
		return nil, "", "", err
	}
	return bench, sessionID, text, nil
}

func runManifestApply(cmd *cobra.Command, args []string) error {
	bench, sessionID, text, err := manifestTarget(cmd, args[0])
	if err != nil {
		return err
	}
	if !manifest.IsValid(text) {
		logWarning("Manifest does not parse locally; sending it anyway")
	}
	res, err := bench.Apply(commandContext(cmd), sessionID, text)
	if err != nil {
		return err
	}
	reportResult(res, "Manifest applied")
	return nil
}

func runManifestDelete(cmd *cobra.Command, args []string) error {
	bench, sessionID, text, err := manifestTarget(cmd, args[0])
	if err != nil {
		return err
	}
	res, err := bench.Delete(commandContext(cmd), sessionID, text, confirmer(cmd, manifestYes))
	if err != nil {
		return err
	}
	reportResult(res, "Manifest deleted")
	return nil
}

func reportResult(res *api.ActionResult, fallback string) {
	if res == nil || res.Message == "" {
		logSuccess("%s", fallback)
		return
	}
	logSuccess("%s", res.Message)
}

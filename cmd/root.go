package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/app"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/labctl/internal/logging"
)

var (
	verbose    bool
	jsonOutput bool
	configPath string
	apiURL     string
)

var rootCmd = &cobra.Command{
	Use:   "labctl",
	Short: "Hands-on Kubernetes labs from the terminal",
	Long: `labctl runs guided Kubernetes labs against a lab platform API.

Each lab session comes with:
  - A private sandbox namespace
  - Step-by-step instructions with runnable commands
  - A manifest editor that applies to the sandbox
  - A shell into the sandbox`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Setup(verbose, jsonOutput, os.Stderr)
		if app.Default.Configured() {
			return nil
		}
		return loadApp()
	},
}

// loadApp builds the default App from the config file, the environment
// and the global flags.
func loadApp() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return errors.ConfigError("failed to load configuration", err)
	}
	if apiURL != "" {
		cfg.APIURL = apiURL
		if err := cfg.Validate(); err != nil {
			return errors.ConfigError("invalid --api-url", err)
		}
	}
	logging.Debug("configuration loaded", "api", cfg.APIURL, "state", cfg.StateDir)
	app.SetDefault(app.New(app.WithConfig(cfg)))
	return nil
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Lab API base URL (overrides config and "+config.EnvAPIURL+")")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

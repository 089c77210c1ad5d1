package cmd

import (
	"fmt"

	"goblin/internal/config"

	"github.com/spf13/cobra"
)

var validateConfigPath string

var validateConfigCmd = &cobra.Command{
	Use:   "validate-config",
	Short: "Parse and validate a goblin config document without starting the gateway",
	Long: `Loads the config document (default ~/.goblin/config.json), applies the
environment-variable overlay and defaults, and runs the same validation the
gateway applies on startup and reload. Exits non-zero and prints every
problem found if validation fails.`,
	Args: cobra.NoArgs,
	RunE: runValidateConfig,
}

func runValidateConfig(cmd *cobra.Command, args []string) error {
	path := validateConfigPath
	if path == "" {
		path = config.DefaultPath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: valid (%d server(s), %d alias(es))\n", path, len(cfg.Servers), len(cfg.Aliases))
	return nil
}

func init() {
	rootCmd.AddCommand(validateConfigCmd)
	validateConfigCmd.Flags().StringVar(&validateConfigPath, "config", "", "Path to the config document (default ~/.goblin/config.json)")
}

package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docqa/internal/config"
)

var initConfigForce bool

var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write the default configuration file",
	Long: `Writes the built-in defaults to the --config path.
Secrets are never written; they are read from the environment variables
the file names.`,
	Args: cobra.NoArgs,
	RunE: runInitConfig,
}

func init() {
	initConfigCmd.Flags().BoolVarP(&initConfigForce, "force", "f", false, "overwrite an existing file")
	rootCmd.AddCommand(initConfigCmd)
}

func runInitConfig(cmd *cobra.Command, _ []string) error {
	if !initConfigForce {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	if err := config.Save(configPath, config.Default()); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	cmd.Printf("Wrote %s\n", configPath)
	return nil
}

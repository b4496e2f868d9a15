// Package cli implements the docqa command line.
package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Answer questions about a document",
	Long: `docqa fetches a PDF, indexes it in a vector store and answers
natural-language questions about it with a hosted language model.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml",
		"path to YAML config file (defaults apply when missing)")
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

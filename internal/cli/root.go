// Package cli holds the otherday command line: serve runs the HTTP API and
// seed loads questions into the configured store.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the otherday command tree.
func NewRootCmd() *cobra.Command {
	configPath := os.Getenv("OTHERDAY_CONFIG")

	cmd := &cobra.Command{
		Use:           "otherday",
		Short:         "The Other Day daily trivia backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", configPath, "path to YAML config")
	cmd.AddCommand(newServeCmd(&configPath))
	cmd.AddCommand(newSeedCmd(&configPath))
	return cmd
}

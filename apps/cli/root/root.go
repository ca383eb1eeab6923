package root

import (
	"github.com/spf13/cobra"
)

// rootCmd is the base command for the taskhub admin CLI. Subcommands are attached in wire.go.
var rootCmd = &cobra.Command{
	Use:           "taskhub",
	Short:         "Taskhub admin CLI",
	Long:          "Administrative utilities for Taskhub (migrations, super admins, tokens, audit trail).",
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

// Root returns the mutable root command for wiring from subpackages.
func Root() *cobra.Command {
	return rootCmd
}

package auth

import (
	"github.com/spf13/cobra"
)

// Command groups token helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Session token helpers",
	}

	cmd.AddCommand(tokenCommand())
	return cmd
}

package migrate

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zenGate-Global/palmyra-taskhub/platform/go/persistence"
)

// Command applies or rolls back the embedded schema migrations.
func Command() *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection string (defaults to $DATABASE_URL)")

	run := func(direction persistence.MigrationDirection) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			if err := persistence.Migrate(databaseURL, direction); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrations %s: done\n", direction)
			return nil
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE:  run(persistence.MigrateUp),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back every migration",
		RunE:  run(persistence.MigrateDown),
	})

	return cmd
}

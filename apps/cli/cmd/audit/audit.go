package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	platformaudit "github.com/zenGate-Global/palmyra-taskhub/platform/go/audit"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/persistence"
)

// Command groups audit trail inspection.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the audit trail",
	}

	cmd.AddCommand(listCommand())
	return cmd
}

func listCommand() *cobra.Command {
	var (
		databaseURL string
		tenantID    string
		page        int
		limit       int
	)

	c := &cobra.Command{
		Use:   "list",
		Short: "List a tenant's audit entries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			tid, err := uuid.Parse(tenantID)
			if err != nil {
				return fmt.Errorf("invalid tenant-id: %w", err)
			}

			ctx := context.Background()
			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			store, err := persistence.NewAuditStore(ctx, pool)
			if err != nil {
				return fmt.Errorf("init audit store: %w", err)
			}

			pagination := persistence.NewPagination(page, limit, 50)
			result, err := store.ListAuditLogs(ctx, tid, pagination)
			if err != nil {
				return err
			}

			return writeEntries(cmd.OutOrStdout(), result.Entries, pagination.Info(result.TotalItems), result.TotalItems)
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection string (defaults to $DATABASE_URL)")
	c.Flags().StringVar(&tenantID, "tenant-id", "", "tenant whose trail to list")
	c.Flags().IntVar(&page, "page", 1, "1-based page")
	c.Flags().IntVar(&limit, "limit", 50, "entries per page (max 100)")

	_ = c.MarkFlagRequired("tenant-id")

	return c
}

func writeEntries(out io.Writer, entries []platformaudit.Entry, info persistence.PageInfo, total int) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED AT\tACTION\tENTITY\tUSER\tREQUEST\tMETADATA")

	for _, e := range entries {
		user := "-"
		if e.UserID != nil {
			user = e.UserID.String()
		}
		meta := "-"
		if len(e.Metadata) > 0 {
			b, err := json.Marshal(e.Metadata)
			if err != nil {
				return fmt.Errorf("encode metadata: %w", err)
			}
			meta = string(b)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s/%s\t%s\t%s\t%s\n",
			e.CreatedAt.UTC().Format(time.RFC3339), e.Action, e.EntityType, e.EntityID, user, e.RequestID, meta)
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(out, "page %d/%d, %d entries\n", info.CurrentPage, info.TotalPages, total)
	return err
}

package superadmin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	platformauth "github.com/zenGate-Global/palmyra-taskhub/platform/go/auth"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/persistence"
)

// Notes:
// - Super admins have no tenant and can only be created here; the API never assigns the role.
// - Migrations must already be applied.

// Command groups super admin management.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "superadmin",
		Short: "Manage platform super admins",
	}

	cmd.AddCommand(createCommand())
	return cmd
}

type createInput struct {
	Email    string
	Password string
	FullName string
}

func (in createInput) normalize() (createInput, error) {
	email, err := platformauth.NormalizeEmail(in.Email)
	if err != nil {
		return createInput{}, err
	}
	if err := platformauth.ValidatePassword(in.Password); err != nil {
		return createInput{}, err
	}
	fullName := strings.TrimSpace(in.FullName)
	if fullName == "" {
		return createInput{}, errors.New("full-name is required")
	}
	return createInput{Email: email, Password: in.Password, FullName: fullName}, nil
}

func createCommand() *cobra.Command {
	var (
		databaseURL string
		bcryptCost  int
		input       createInput
	)

	c := &cobra.Command{
		Use:   "create",
		Short: "Create a super admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := input.normalize()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			users, err := persistence.NewUserStore(ctx, pool)
			if err != nil {
				return fmt.Errorf("init user store: %w", err)
			}

			hash, err := platformauth.NewHasher(bcryptCost).Hash(in.Password)
			if err != nil {
				return err
			}

			user, err := users.CreateSuperAdmin(ctx, persistence.CreateUserParams{
				ID:           uuid.New(),
				Email:        in.Email,
				PasswordHash: hash,
				FullName:     in.FullName,
			})
			if err != nil {
				if errors.Is(err, persistence.ErrUserConflict) {
					return fmt.Errorf("super admin %s already exists", in.Email)
				}
				return fmt.Errorf("create super admin: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created super admin %s (%s)\n", user.Email, user.ID)
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection string (defaults to $DATABASE_URL)")
	c.Flags().IntVar(&bcryptCost, "bcrypt-cost", 10, "bcrypt cost factor")
	c.Flags().StringVar(&input.Email, "email", "", "login email")
	c.Flags().StringVar(&input.Password, "password", os.Getenv("SUPERADMIN_PASSWORD"), "password, 8-72 bytes (defaults to $SUPERADMIN_PASSWORD)")
	c.Flags().StringVar(&input.FullName, "full-name", "", "display name")

	_ = c.MarkFlagRequired("email")
	_ = c.MarkFlagRequired("full-name")

	return c
}

package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	platformauth "github.com/zenGate-Global/palmyra-taskhub/platform/go/auth"
)

func tokenCommand() *cobra.Command {
	var (
		secret   string
		issuer   string
		userID   string
		tenantID string
		role     string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed session token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			claims, err := buildClaims(userID, tenantID, role)
			if err != nil {
				return err
			}

			tokens, err := platformauth.NewTokenManager(platformauth.TokenConfig{
				Secret: []byte(secret),
				Issuer: issuer,
				TTL:    ttl,
			})
			if err != nil {
				return err
			}

			token, expiresAt, err := tokens.Issue(claims)
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.UTC().Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "HS256 signing secret (defaults to $JWT_SECRET)")
	cmd.Flags().StringVar(&issuer, "issuer", "taskhub", "iss claim; must match the API's JWT_ISSUER")
	cmd.Flags().StringVar(&userID, "user-id", "", "user id (sub claim)")
	cmd.Flags().StringVar(&tenantID, "tenant-id", "", "tenant id; omit for super_admin")
	cmd.Flags().StringVar(&role, "role", string(platformauth.RoleUser), "super_admin | tenant_admin | user")
	cmd.Flags().DurationVar(&ttl, "expires-in", platformauth.DefaultTokenTTL, "token lifetime (e.g. 30m, 24h)")

	_ = cmd.MarkFlagRequired("user-id")

	return cmd
}

func buildClaims(userID, tenantID, role string) (platformauth.Claims, error) {
	uid, err := uuid.Parse(strings.TrimSpace(userID))
	if err != nil {
		return platformauth.Claims{}, fmt.Errorf("invalid user-id: %w", err)
	}

	r := platformauth.Role(strings.TrimSpace(role))
	if !r.Valid() {
		return platformauth.Claims{}, fmt.Errorf("invalid role %q", role)
	}

	claims := platformauth.Claims{UserID: uid, Role: r}
	tenantID = strings.TrimSpace(tenantID)

	switch {
	case r == platformauth.RoleSuperAdmin && tenantID != "":
		return platformauth.Claims{}, errors.New("super_admin tokens carry no tenant-id")
	case r != platformauth.RoleSuperAdmin && tenantID == "":
		return platformauth.Claims{}, fmt.Errorf("%s tokens require tenant-id", r)
	case tenantID != "":
		tid, err := uuid.Parse(tenantID)
		if err != nil {
			return platformauth.Claims{}, fmt.Errorf("invalid tenant-id: %w", err)
		}
		claims.TenantID = &tid
	}

	return claims, nil
}

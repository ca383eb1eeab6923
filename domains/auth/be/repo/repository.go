package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-taskhub/platform/go/persistence"
)

// Repository defines the lookups required to authenticate callers.
type Repository interface {
	GetTenant(ctx context.Context, id uuid.UUID) (persistence.Tenant, error)
	GetTenantBySubdomain(ctx context.Context, subdomain string) (persistence.Tenant, error)
	GetUser(ctx context.Context, id uuid.UUID) (persistence.User, error)
	FindTenantUser(ctx context.Context, tenantID uuid.UUID, email string) (persistence.User, error)
	FindSuperAdmin(ctx context.Context, email string) (persistence.User, error)
	TenantUserEmailExists(ctx context.Context, email string) (bool, error)
}

type postgresRepository struct {
	tenants *persistence.TenantStore
	users   *persistence.UserStore
}

// NewPostgresRepository constructs a repository backed by the shared persistence layer.
func NewPostgresRepository(tenants *persistence.TenantStore, users *persistence.UserStore) Repository {
	if tenants == nil {
		panic("tenant store is required")
	}
	if users == nil {
		panic("user store is required")
	}
	return &postgresRepository{tenants: tenants, users: users}
}

func (r *postgresRepository) GetTenant(ctx context.Context, id uuid.UUID) (persistence.Tenant, error) {
	return r.tenants.GetTenant(ctx, id)
}

func (r *postgresRepository) GetTenantBySubdomain(ctx context.Context, subdomain string) (persistence.Tenant, error) {
	return r.tenants.GetTenantBySubdomain(ctx, subdomain)
}

func (r *postgresRepository) GetUser(ctx context.Context, id uuid.UUID) (persistence.User, error) {
	return r.users.GetUser(ctx, id)
}

func (r *postgresRepository) FindTenantUser(ctx context.Context, tenantID uuid.UUID, email string) (persistence.User, error) {
	return r.users.FindTenantUserByEmail(ctx, tenantID, email)
}

func (r *postgresRepository) FindSuperAdmin(ctx context.Context, email string) (persistence.User, error) {
	return r.users.FindSuperAdminByEmail(ctx, email)
}

func (r *postgresRepository) TenantUserEmailExists(ctx context.Context, email string) (bool, error) {
	return r.users.TenantUserEmailExists(ctx, email)
}

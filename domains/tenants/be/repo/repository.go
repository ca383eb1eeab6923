package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-taskhub/platform/go/persistence"
)

// Repository defines the persistence operations required by the tenants service.
type Repository interface {
	Register(ctx context.Context, tenant persistence.CreateTenantParams, admin persistence.CreateUserParams) (persistence.Tenant, persistence.User, error)
	Get(ctx context.Context, id uuid.UUID) (persistence.Tenant, error)
	Stats(ctx context.Context, id uuid.UUID) (persistence.TenantStats, error)
	Update(ctx context.Context, id uuid.UUID, params persistence.UpdateTenantParams) (persistence.Tenant, error)
	List(ctx context.Context, page persistence.Pagination) (persistence.ListTenantsResult, error)
}

type postgresRepository struct {
	store *persistence.TenantStore
}

// NewPostgresRepository constructs a repository backed by the shared persistence layer.
func NewPostgresRepository(store *persistence.TenantStore) Repository {
	if store == nil {
		panic("tenant store is required")
	}
	return &postgresRepository{store: store}
}

func (r *postgresRepository) Register(ctx context.Context, tenant persistence.CreateTenantParams, admin persistence.CreateUserParams) (persistence.Tenant, persistence.User, error) {
	return r.store.RegisterTenant(ctx, tenant, admin)
}

func (r *postgresRepository) Get(ctx context.Context, id uuid.UUID) (persistence.Tenant, error) {
	return r.store.GetTenant(ctx, id)
}

func (r *postgresRepository) Stats(ctx context.Context, id uuid.UUID) (persistence.TenantStats, error) {
	return r.store.TenantStats(ctx, id)
}

func (r *postgresRepository) Update(ctx context.Context, id uuid.UUID, params persistence.UpdateTenantParams) (persistence.Tenant, error) {
	return r.store.UpdateTenant(ctx, id, params)
}

func (r *postgresRepository) List(ctx context.Context, page persistence.Pagination) (persistence.ListTenantsResult, error) {
	return r.store.ListTenants(ctx, page)
}

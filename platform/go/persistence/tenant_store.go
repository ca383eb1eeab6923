package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const TenantsTable = "tenants"

// Tenant defaults applied at registration.
const (
	DefaultTenantStatus      = "active"
	DefaultSubscriptionPlan  = "free"
	DefaultTenantMaxUsers    = 5
	DefaultTenantMaxProjects = 3
)

var (
	// ErrTenantNotFound indicates a missing tenant record.
	ErrTenantNotFound = errors.New("tenant not found")
	// ErrTenantConflict indicates the subdomain is already taken.
	ErrTenantConflict = errors.New("tenant conflict")
)

// Tenant represents a row in the tenants table.
type Tenant struct {
	ID               uuid.UUID
	Name             string
	Subdomain        string
	Status           string
	SubscriptionPlan string
	MaxUsers         int
	MaxProjects      int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TenantStats aggregates live counts for a tenant.
type TenantStats struct {
	TotalUsers    int
	TotalProjects int
	TotalTasks    int
}

// TenantSummary is a tenant row with its user and project counts.
type TenantSummary struct {
	Tenant
	TotalUsers    int
	TotalProjects int
}

// TenantStore exposes persistence helpers for the tenants table.
type TenantStore struct {
	pool *pgxpool.Pool
}

// NewTenantStore returns a store; assumes migrations already created the table.
func NewTenantStore(ctx context.Context, pool *pgxpool.Pool) (*TenantStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &TenantStore{pool: pool}, nil
}

// CreateTenantParams captures the fields required to register a tenant.
type CreateTenantParams struct {
	ID        uuid.UUID
	Name      string
	Subdomain string
}

// RegisterTenant inserts the tenant with default limits and its first admin in one transaction.
func (s *TenantStore) RegisterTenant(ctx context.Context, tenant CreateTenantParams, admin CreateUserParams) (Tenant, User, error) {
	if tenant.ID == uuid.Nil {
		return Tenant{}, User{}, errors.New("tenant id is required")
	}

	var (
		createdTenant Tenant
		createdAdmin  User
	)

	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		var taken bool
		if err := tx.QueryRow(ctx, fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE subdomain = $1)`, TenantsTable),
			tenant.Subdomain,
		).Scan(&taken); err != nil {
			return fmt.Errorf("check subdomain: %w", err)
		}
		if taken {
			return ErrTenantConflict
		}

		row := tx.QueryRow(ctx, fmt.Sprintf(`
            INSERT INTO %s (id, name, subdomain, status, subscription_plan, max_users, max_projects)
            VALUES ($1, $2, $3, $4, $5, $6, $7)
            RETURNING %s
        `, TenantsTable, tenantColumns),
			tenant.ID,
			strings.TrimSpace(tenant.Name),
			tenant.Subdomain,
			DefaultTenantStatus,
			DefaultSubscriptionPlan,
			DefaultTenantMaxUsers,
			DefaultTenantMaxProjects,
		)

		var err error
		createdTenant, err = scanTenant(row)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrTenantConflict
			}
			return fmt.Errorf("insert tenant: %w", err)
		}

		admin.TenantID = &createdTenant.ID
		createdAdmin, err = insertUser(ctx, tx, admin)
		return err
	})
	if err != nil {
		return Tenant{}, User{}, err
	}

	return createdTenant, createdAdmin, nil
}

// GetTenant returns a single tenant by identifier.
func (s *TenantStore) GetTenant(ctx context.Context, id uuid.UUID) (Tenant, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, tenantColumns, TenantsTable), id)
	return scanTenantOrNotFound(row)
}

// GetTenantBySubdomain returns a single tenant by its subdomain.
func (s *TenantStore) GetTenantBySubdomain(ctx context.Context, subdomain string) (Tenant, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE subdomain = $1`, tenantColumns, TenantsTable), subdomain)
	return scanTenantOrNotFound(row)
}

// UpdateTenantParams lists the mutable tenant columns; nil fields are left unchanged.
type UpdateTenantParams struct {
	Name             *string
	Status           *string
	SubscriptionPlan *string
	MaxUsers         *int
	MaxProjects      *int
}

// UpdateTenant applies the provided fields and returns the updated record.
func (s *TenantStore) UpdateTenant(ctx context.Context, id uuid.UUID, params UpdateTenantParams) (Tenant, error) {
	set := map[string]any{}
	if params.Name != nil {
		set["name"] = strings.TrimSpace(*params.Name)
	}
	if params.Status != nil {
		set["status"] = *params.Status
	}
	if params.SubscriptionPlan != nil {
		set["subscription_plan"] = *params.SubscriptionPlan
	}
	if params.MaxUsers != nil {
		set["max_users"] = *params.MaxUsers
	}
	if params.MaxProjects != nil {
		set["max_projects"] = *params.MaxProjects
	}
	if len(set) == 0 {
		return Tenant{}, errors.New("no fields to update")
	}

	query, args, err := psql.Update(TenantsTable).
		SetMap(set).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + tenantColumns).
		ToSql()
	if err != nil {
		return Tenant{}, fmt.Errorf("build tenant update: %w", err)
	}

	return scanTenantOrNotFound(s.pool.QueryRow(ctx, query, args...))
}

// TenantStats returns live user, project and task counts for the tenant.
func (s *TenantStore) TenantStats(ctx context.Context, id uuid.UUID) (TenantStats, error) {
	var stats TenantStats
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT
            (SELECT COUNT(*) FROM %s WHERE tenant_id = $1),
            (SELECT COUNT(*) FROM %s WHERE tenant_id = $1),
            (SELECT COUNT(*) FROM %s WHERE tenant_id = $1)
    `, UsersTable, ProjectsTable, TasksTable), id).Scan(&stats.TotalUsers, &stats.TotalProjects, &stats.TotalTasks)
	if err != nil {
		return TenantStats{}, fmt.Errorf("tenant stats: %w", err)
	}
	return stats, nil
}

// ListTenantsResult includes the rows and the total count for pagination metadata.
type ListTenantsResult struct {
	Tenants    []TenantSummary
	TotalItems int
}

// ListTenants returns a page of tenants, newest first, with their user and project counts.
func (s *TenantStore) ListTenants(ctx context.Context, page Pagination) (ListTenantsResult, error) {
	var total int
	if err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, TenantsTable)).Scan(&total); err != nil {
		return ListTenantsResult{}, fmt.Errorf("count tenants: %w", err)
	}

	result := ListTenantsResult{Tenants: []TenantSummary{}, TotalItems: total}
	if total == 0 {
		return result, nil
	}

	query, args, err := page.apply(
		psql.Select(prefixColumns("t", tenantColumns),
			fmt.Sprintf("(SELECT COUNT(*) FROM %s u WHERE u.tenant_id = t.id)", UsersTable),
			fmt.Sprintf("(SELECT COUNT(*) FROM %s p WHERE p.tenant_id = t.id)", ProjectsTable),
		).
			From(TenantsTable + " t").
			OrderBy("t.created_at DESC"),
	).ToSql()
	if err != nil {
		return ListTenantsResult{}, fmt.Errorf("build tenant list: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return ListTenantsResult{}, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var summary TenantSummary
		if err := rows.Scan(append(tenantScanTargets(&summary.Tenant), &summary.TotalUsers, &summary.TotalProjects)...); err != nil {
			return ListTenantsResult{}, fmt.Errorf("scan tenant: %w", err)
		}
		result.Tenants = append(result.Tenants, summary)
	}
	if err := rows.Err(); err != nil {
		return ListTenantsResult{}, fmt.Errorf("iterate tenants: %w", err)
	}

	return result, nil
}

const tenantColumns = "id, name, subdomain, status, subscription_plan, max_users, max_projects, created_at, updated_at"

func tenantScanTargets(t *Tenant) []any {
	return []any{&t.ID, &t.Name, &t.Subdomain, &t.Status, &t.SubscriptionPlan, &t.MaxUsers, &t.MaxProjects, &t.CreatedAt, &t.UpdatedAt}
}

func scanTenant(row pgx.Row) (Tenant, error) {
	var tenant Tenant
	if err := row.Scan(tenantScanTargets(&tenant)...); err != nil {
		return Tenant{}, err
	}
	return tenant, nil
}

func scanTenantOrNotFound(row pgx.Row) (Tenant, error) {
	tenant, err := scanTenant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tenant{}, ErrTenantNotFound
		}
		return Tenant{}, err
	}
	return tenant, nil
}

// prefixColumns qualifies each column in a comma separated list with alias.
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

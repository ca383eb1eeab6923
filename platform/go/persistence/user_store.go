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

const UsersTable = "users"

// User represents a row in the users table. TenantID is nil only for super admins.
type User struct {
	ID           uuid.UUID
	TenantID     *uuid.UUID
	Email        string
	PasswordHash string
	FullName     string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

var (
	// ErrUserNotFound indicates a missing user record.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserConflict indicates a uniqueness violation (e.g., duplicated email within a tenant).
	ErrUserConflict = errors.New("user conflict")
)

// UserStore exposes persistence helpers for the users table.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore returns a store; assumes migrations already created the table.
func NewUserStore(ctx context.Context, pool *pgxpool.Pool) (*UserStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}

	return &UserStore{pool: pool}, nil
}

// CreateUserParams captures the fields required to insert a new user record.
type CreateUserParams struct {
	ID           uuid.UUID
	TenantID     *uuid.UUID
	Email        string
	PasswordHash string
	FullName     string
	Role         string
}

// CreateUserWithinQuota inserts a tenant user after checking the tenant's max_users limit.
// The tenant row is locked for the duration of the transaction.
func (s *UserStore) CreateUserWithinQuota(ctx context.Context, params CreateUserParams) (User, error) {
	if params.TenantID == nil {
		return User{}, errors.New("tenant id is required")
	}

	var created User
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		maxUsers, err := lockTenantLimits(ctx, tx, *params.TenantID, "max_users")
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrTenantNotFound
			}
			return fmt.Errorf("lock tenant: %w", err)
		}

		var count int
		if err := tx.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE tenant_id = $1`, UsersTable),
			*params.TenantID,
		).Scan(&count); err != nil {
			return fmt.Errorf("count users: %w", err)
		}
		if count >= maxUsers {
			return ErrQuotaExceeded
		}

		created, err = insertUser(ctx, tx, params)
		return err
	})
	if err != nil {
		return User{}, err
	}

	return created, nil
}

// CreateSuperAdmin inserts a user without a tenant.
func (s *UserStore) CreateSuperAdmin(ctx context.Context, params CreateUserParams) (User, error) {
	params.TenantID = nil
	params.Role = "super_admin"
	return insertUser(ctx, s.pool, params)
}

func insertUser(ctx context.Context, q querier, params CreateUserParams) (User, error) {
	if params.ID == uuid.Nil {
		return User{}, errors.New("user id is required")
	}

	row := q.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (id, tenant_id, email, password_hash, full_name, role)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING %s
    `, UsersTable, userColumns),
		params.ID,
		params.TenantID,
		strings.ToLower(strings.TrimSpace(params.Email)),
		params.PasswordHash,
		strings.TrimSpace(params.FullName),
		params.Role,
	)

	user, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrUserConflict
		}
		if isForeignKeyViolation(err) {
			return User{}, ErrTenantNotFound
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}

	return user, nil
}

// ListUsersParams captures filters and pagination for ListUsers.
type ListUsersParams struct {
	Pagination
	Search *string
	Role   *string
}

// ListUsersResult includes the rows and the total count for pagination metadata.
type ListUsersResult struct {
	Users      []User
	TotalItems int
}

// ListUsers returns the tenant's users matching the filters, newest first.
func (s *UserStore) ListUsers(ctx context.Context, tenantID uuid.UUID, params ListUsersParams) (ListUsersResult, error) {
	where := sq.And{sq.Eq{"tenant_id": tenantID}}
	if params.Search != nil && strings.TrimSpace(*params.Search) != "" {
		pattern := containsPattern(strings.TrimSpace(*params.Search))
		where = append(where, sq.Or{sq.ILike{"email": pattern}, sq.ILike{"full_name": pattern}})
	}
	if params.Role != nil && strings.TrimSpace(*params.Role) != "" {
		where = append(where, sq.Eq{"role": strings.TrimSpace(*params.Role)})
	}

	countQuery, countArgs, err := psql.Select("COUNT(*)").From(UsersTable).Where(where).ToSql()
	if err != nil {
		return ListUsersResult{}, fmt.Errorf("build user count: %w", err)
	}

	var total int
	if err := s.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return ListUsersResult{}, fmt.Errorf("count users: %w", err)
	}

	result := ListUsersResult{Users: []User{}, TotalItems: total}
	if total == 0 {
		return result, nil
	}

	query, args, err := params.Pagination.apply(
		psql.Select(userColumns).From(UsersTable).Where(where).OrderBy("created_at DESC", "id"),
	).ToSql()
	if err != nil {
		return ListUsersResult{}, fmt.Errorf("build user list: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return ListUsersResult{}, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		user, scanErr := scanUser(rows)
		if scanErr != nil {
			return ListUsersResult{}, fmt.Errorf("scan user: %w", scanErr)
		}
		result.Users = append(result.Users, user)
	}

	if err = rows.Err(); err != nil {
		return ListUsersResult{}, fmt.Errorf("iterate users: %w", err)
	}

	return result, nil
}

// GetUser returns a single user by identifier.
func (s *UserStore) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, userColumns, UsersTable), id)
	return scanUserOrNotFound(row)
}

// FindSuperAdminByEmail returns the super admin registered with email.
func (s *UserStore) FindSuperAdminByEmail(ctx context.Context, email string) (User, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE tenant_id IS NULL AND lower(email) = lower($1)
    `, userColumns, UsersTable), strings.TrimSpace(email))
	return scanUserOrNotFound(row)
}

// FindTenantUserByEmail returns the user with email inside the given tenant.
func (s *UserStore) FindTenantUserByEmail(ctx context.Context, tenantID uuid.UUID, email string) (User, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE tenant_id = $1 AND lower(email) = lower($2)
    `, userColumns, UsersTable), tenantID, strings.TrimSpace(email))
	return scanUserOrNotFound(row)
}

// TenantUserEmailExists reports whether any tenant-scoped user is registered with email.
func (s *UserStore) TenantUserEmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT EXISTS (SELECT 1 FROM %s WHERE tenant_id IS NOT NULL AND lower(email) = lower($1))
    `, UsersTable), strings.TrimSpace(email)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("lookup tenant user email: %w", err)
	}
	return exists, nil
}

// UserInTenant reports whether userID exists and belongs to tenantID.
func (s *UserStore) UserInTenant(ctx context.Context, userID, tenantID uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1 AND tenant_id = $2)
    `, UsersTable), userID, tenantID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check user tenant: %w", err)
	}
	return exists, nil
}

// UpdateUserParams represents admin-editable fields; nil fields are left unchanged.
type UpdateUserParams struct {
	FullName *string
	Role     *string
	IsActive *bool
}

// UpdateUser applies the provided fields and returns the updated record.
func (s *UserStore) UpdateUser(ctx context.Context, id uuid.UUID, params UpdateUserParams) (User, error) {
	set := map[string]any{}
	if params.FullName != nil {
		set["full_name"] = strings.TrimSpace(*params.FullName)
	}
	if params.Role != nil {
		set["role"] = *params.Role
	}
	if params.IsActive != nil {
		set["is_active"] = *params.IsActive
	}
	if len(set) == 0 {
		return User{}, errors.New("no fields to update")
	}

	query, args, err := psql.Update(UsersTable).
		SetMap(set).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + userColumns).
		ToSql()
	if err != nil {
		return User{}, fmt.Errorf("build user update: %w", err)
	}

	return scanUserOrNotFound(s.pool.QueryRow(ctx, query, args...))
}

// DeleteUser unassigns the user's tasks and removes the user in one transaction.
func (s *UserStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return ErrUserNotFound
	}

	return withTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, fmt.Sprintf(`UPDATE %s SET assigned_to = NULL, updated_at = NOW() WHERE assigned_to = $1`, TasksTable), id); err != nil {
			return fmt.Errorf("unassign tasks: %w", err)
		}

		tag, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, UsersTable), id)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}

const userColumns = "id, tenant_id, email, password_hash, full_name, role, is_active, created_at, updated_at"

func scanUser(row pgx.Row) (User, error) {
	var user User

	if err := row.Scan(
		&user.ID, &user.TenantID, &user.Email, &user.PasswordHash, &user.FullName,
		&user.Role, &user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	); err != nil {
		return User{}, err
	}

	return user, nil
}

func scanUserOrNotFound(row pgx.Row) (User, error) {
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	return user, nil
}

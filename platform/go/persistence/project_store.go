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

	"github.com/zenGate-Global/palmyra-taskhub/platform/go/optional"
)

const ProjectsTable = "projects"

// ErrProjectNotFound indicates a missing project record.
var ErrProjectNotFound = errors.New("project not found")

// Project represents a row in the projects table.
type Project struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Name        string
	Description *string
	Status      string
	CreatedBy   *uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProjectSummary is a project enriched with its creator and task counters.
type ProjectSummary struct {
	Project
	CreatorName        *string
	TaskCount          int
	CompletedTaskCount int
}

// ProjectStore exposes persistence helpers for the projects table.
type ProjectStore struct {
	pool *pgxpool.Pool
}

// NewProjectStore returns a store; assumes migrations already created the table.
func NewProjectStore(ctx context.Context, pool *pgxpool.Pool) (*ProjectStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &ProjectStore{pool: pool}, nil
}

// CreateProjectParams captures the fields required to insert a project.
type CreateProjectParams struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Name        string
	Description *string
	Status      string
	CreatedBy   uuid.UUID
}

// CreateProjectWithinQuota inserts a project after checking the tenant's max_projects limit.
// The tenant row is locked for the duration of the transaction.
func (s *ProjectStore) CreateProjectWithinQuota(ctx context.Context, params CreateProjectParams) (Project, error) {
	if params.ID == uuid.Nil {
		return Project{}, errors.New("project id is required")
	}

	var created Project
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		maxProjects, err := lockTenantLimits(ctx, tx, params.TenantID, "max_projects")
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrTenantNotFound
			}
			return fmt.Errorf("lock tenant: %w", err)
		}

		var count int
		if err := tx.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE tenant_id = $1`, ProjectsTable),
			params.TenantID,
		).Scan(&count); err != nil {
			return fmt.Errorf("count projects: %w", err)
		}
		if count >= maxProjects {
			return ErrQuotaExceeded
		}

		row := tx.QueryRow(ctx, fmt.Sprintf(`
            INSERT INTO %s (id, tenant_id, name, description, status, created_by)
            VALUES ($1, $2, $3, $4, $5, $6)
            RETURNING %s
        `, ProjectsTable, projectColumns),
			params.ID,
			params.TenantID,
			strings.TrimSpace(params.Name),
			params.Description,
			params.Status,
			params.CreatedBy,
		)

		created, err = scanProject(row)
		if err != nil {
			return fmt.Errorf("insert project: %w", err)
		}
		return nil
	})
	if err != nil {
		return Project{}, err
	}

	return created, nil
}

// GetProject returns a single project by identifier.
func (s *ProjectStore) GetProject(ctx context.Context, id uuid.UUID) (Project, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, projectColumns, ProjectsTable), id)

	project, err := scanProject(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Project{}, ErrProjectNotFound
		}
		return Project{}, err
	}
	return project, nil
}

// GetProjectSummary returns a single project with creator and task counters.
func (s *ProjectStore) GetProjectSummary(ctx context.Context, id uuid.UUID) (ProjectSummary, error) {
	query, args, err := projectSummarySelect().Where(sq.Eq{"p.id": id}).ToSql()
	if err != nil {
		return ProjectSummary{}, fmt.Errorf("build project summary: %w", err)
	}

	summary, err := scanProjectSummary(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProjectSummary{}, ErrProjectNotFound
		}
		return ProjectSummary{}, err
	}
	return summary, nil
}

// ListProjectsParams captures filters and pagination for ListProjects.
type ListProjectsParams struct {
	Pagination
	Status *string
	Search *string
}

// ListProjectsResult includes the rows and the total count for pagination metadata.
type ListProjectsResult struct {
	Projects   []ProjectSummary
	TotalItems int
}

// ListProjects returns the tenant's projects matching the filters, newest first.
func (s *ProjectStore) ListProjects(ctx context.Context, tenantID uuid.UUID, params ListProjectsParams) (ListProjectsResult, error) {
	where := sq.And{sq.Eq{"p.tenant_id": tenantID}}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		where = append(where, sq.Eq{"p.status": strings.TrimSpace(*params.Status)})
	}
	if params.Search != nil && strings.TrimSpace(*params.Search) != "" {
		where = append(where, sq.ILike{"p.name": containsPattern(strings.TrimSpace(*params.Search))})
	}

	countQuery, countArgs, err := psql.Select("COUNT(*)").From(ProjectsTable + " p").Where(where).ToSql()
	if err != nil {
		return ListProjectsResult{}, fmt.Errorf("build project count: %w", err)
	}

	var total int
	if err := s.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return ListProjectsResult{}, fmt.Errorf("count projects: %w", err)
	}

	result := ListProjectsResult{Projects: []ProjectSummary{}, TotalItems: total}
	if total == 0 {
		return result, nil
	}

	query, args, err := params.Pagination.apply(projectSummarySelect().Where(where)).ToSql()
	if err != nil {
		return ListProjectsResult{}, fmt.Errorf("build project list: %w", err)
	}

	result.Projects, err = s.querySummaries(ctx, query, args)
	if err != nil {
		return ListProjectsResult{}, err
	}
	return result, nil
}

// ListAllProjects returns every project across tenants, newest first.
func (s *ProjectStore) ListAllProjects(ctx context.Context) ([]ProjectSummary, error) {
	query, args, err := projectSummarySelect().ToSql()
	if err != nil {
		return nil, fmt.Errorf("build project list: %w", err)
	}
	return s.querySummaries(ctx, query, args)
}

func (s *ProjectStore) querySummaries(ctx context.Context, query string, args []any) ([]ProjectSummary, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := make([]ProjectSummary, 0)
	for rows.Next() {
		summary, scanErr := scanProjectSummary(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan project: %w", scanErr)
		}
		projects = append(projects, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}

	return projects, nil
}

// UpdateProjectParams lists the mutable project columns. Description may be cleared.
type UpdateProjectParams struct {
	Name        *string
	Description optional.Value[string]
	Status      *string
}

// UpdateProject applies the provided fields and returns the updated record.
func (s *ProjectStore) UpdateProject(ctx context.Context, id uuid.UUID, params UpdateProjectParams) (Project, error) {
	set := map[string]any{}
	if params.Name != nil {
		set["name"] = strings.TrimSpace(*params.Name)
	}
	if params.Description.Set {
		set["description"] = params.Description.Ptr()
	}
	if params.Status != nil {
		set["status"] = *params.Status
	}
	if len(set) == 0 {
		return Project{}, errors.New("no fields to update")
	}

	query, args, err := psql.Update(ProjectsTable).
		SetMap(set).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + projectColumns).
		ToSql()
	if err != nil {
		return Project{}, fmt.Errorf("build project update: %w", err)
	}

	project, err := scanProject(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Project{}, ErrProjectNotFound
		}
		return Project{}, err
	}
	return project, nil
}

// DeleteProject removes the project's tasks and then the project in one transaction.
func (s *ProjectStore) DeleteProject(ctx context.Context, id uuid.UUID) error {
	return withTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE project_id = $1`, TasksTable), id); err != nil {
			return fmt.Errorf("delete project tasks: %w", err)
		}

		tag, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, ProjectsTable), id)
		if err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrProjectNotFound
		}
		return nil
	})
}

const projectColumns = "id, tenant_id, name, description, status, created_by, created_at, updated_at"

func projectSummarySelect() sq.SelectBuilder {
	return psql.Select(
		prefixColumns("p", projectColumns),
		"u.full_name",
		"COUNT(t.id)",
		"COUNT(t.id) FILTER (WHERE t.status = 'completed')",
	).
		From(ProjectsTable + " p").
		LeftJoin(UsersTable + " u ON u.id = p.created_by").
		LeftJoin(TasksTable + " t ON t.project_id = p.id").
		GroupBy("p.id", "u.full_name").
		OrderBy("p.created_at DESC", "p.id")
}

func projectScanTargets(p *Project) []any {
	return []any{&p.ID, &p.TenantID, &p.Name, &p.Description, &p.Status, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt}
}

func scanProject(row pgx.Row) (Project, error) {
	var project Project
	if err := row.Scan(projectScanTargets(&project)...); err != nil {
		return Project{}, err
	}
	return project, nil
}

func scanProjectSummary(row pgx.Row) (ProjectSummary, error) {
	var summary ProjectSummary
	targets := append(projectScanTargets(&summary.Project), &summary.CreatorName, &summary.TaskCount, &summary.CompletedTaskCount)
	if err := row.Scan(targets...); err != nil {
		return ProjectSummary{}, err
	}
	return summary, nil
}

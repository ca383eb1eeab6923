package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-taskhub/platform/go/persistence"
)

// Repository defines the persistence operations required by the projects service.
type Repository interface {
	Create(ctx context.Context, params persistence.CreateProjectParams) (persistence.Project, error)
	Get(ctx context.Context, id uuid.UUID) (persistence.Project, error)
	GetSummary(ctx context.Context, id uuid.UUID) (persistence.ProjectSummary, error)
	List(ctx context.Context, tenantID uuid.UUID, params persistence.ListProjectsParams) (persistence.ListProjectsResult, error)
	ListAll(ctx context.Context) ([]persistence.ProjectSummary, error)
	Update(ctx context.Context, id uuid.UUID, params persistence.UpdateProjectParams) (persistence.Project, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	store *persistence.ProjectStore
}

// NewPostgresRepository constructs a repository backed by the shared persistence layer.
func NewPostgresRepository(store *persistence.ProjectStore) Repository {
	if store == nil {
		panic("project store is required")
	}
	return &postgresRepository{store: store}
}

func (r *postgresRepository) Create(ctx context.Context, params persistence.CreateProjectParams) (persistence.Project, error) {
	return r.store.CreateProjectWithinQuota(ctx, params)
}

func (r *postgresRepository) Get(ctx context.Context, id uuid.UUID) (persistence.Project, error) {
	return r.store.GetProject(ctx, id)
}

func (r *postgresRepository) GetSummary(ctx context.Context, id uuid.UUID) (persistence.ProjectSummary, error) {
	return r.store.GetProjectSummary(ctx, id)
}

func (r *postgresRepository) List(ctx context.Context, tenantID uuid.UUID, params persistence.ListProjectsParams) (persistence.ListProjectsResult, error) {
	return r.store.ListProjects(ctx, tenantID, params)
}

func (r *postgresRepository) ListAll(ctx context.Context) ([]persistence.ProjectSummary, error) {
	return r.store.ListAllProjects(ctx)
}

func (r *postgresRepository) Update(ctx context.Context, id uuid.UUID, params persistence.UpdateProjectParams) (persistence.Project, error) {
	return r.store.UpdateProject(ctx, id, params)
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.store.DeleteProject(ctx, id)
}

package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-taskhub/platform/go/persistence"
)

// Repository defines the persistence operations required by the tasks service.
type Repository interface {
	GetProject(ctx context.Context, id uuid.UUID) (persistence.Project, error)
	UserInTenant(ctx context.Context, userID, tenantID uuid.UUID) (bool, error)

	Create(ctx context.Context, params persistence.CreateTaskParams) (persistence.Task, error)
	Get(ctx context.Context, id uuid.UUID) (persistence.Task, error)
	List(ctx context.Context, projectID uuid.UUID, params persistence.ListTasksParams) (persistence.ListTasksResult, error)
	ListAll(ctx context.Context) ([]persistence.TaskSummary, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (persistence.Task, error)
	Update(ctx context.Context, id uuid.UUID, params persistence.UpdateTaskParams) (persistence.Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	tasks    *persistence.TaskStore
	projects *persistence.ProjectStore
	users    *persistence.UserStore
}

// NewPostgresRepository constructs a repository backed by the shared persistence layer.
func NewPostgresRepository(tasks *persistence.TaskStore, projects *persistence.ProjectStore, users *persistence.UserStore) Repository {
	if tasks == nil {
		panic("task store is required")
	}
	if projects == nil {
		panic("project store is required")
	}
	if users == nil {
		panic("user store is required")
	}
	return &postgresRepository{tasks: tasks, projects: projects, users: users}
}

func (r *postgresRepository) GetProject(ctx context.Context, id uuid.UUID) (persistence.Project, error) {
	return r.projects.GetProject(ctx, id)
}

func (r *postgresRepository) UserInTenant(ctx context.Context, userID, tenantID uuid.UUID) (bool, error) {
	return r.users.UserInTenant(ctx, userID, tenantID)
}

func (r *postgresRepository) Create(ctx context.Context, params persistence.CreateTaskParams) (persistence.Task, error) {
	return r.tasks.CreateTask(ctx, params)
}

func (r *postgresRepository) Get(ctx context.Context, id uuid.UUID) (persistence.Task, error) {
	return r.tasks.GetTask(ctx, id)
}

func (r *postgresRepository) List(ctx context.Context, projectID uuid.UUID, params persistence.ListTasksParams) (persistence.ListTasksResult, error) {
	return r.tasks.ListTasks(ctx, projectID, params)
}

func (r *postgresRepository) ListAll(ctx context.Context) ([]persistence.TaskSummary, error) {
	return r.tasks.ListAllTasks(ctx)
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (persistence.Task, error) {
	return r.tasks.UpdateTaskStatus(ctx, id, status)
}

func (r *postgresRepository) Update(ctx context.Context, id uuid.UUID, params persistence.UpdateTaskParams) (persistence.Task, error) {
	return r.tasks.UpdateTask(ctx, id, params)
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.tasks.DeleteTask(ctx, id)
}

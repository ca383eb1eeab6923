package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/palmyra-taskhub/platform/go/apperr"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/audit"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/audit/audittest"
	platformauth "github.com/zenGate-Global/palmyra-taskhub/platform/go/auth"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/optional"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/policy"
)

type mockRepository struct {
	getProjectFn   func(ctx context.Context, id uuid.UUID) (persistence.Project, error)
	userInTenantFn func(ctx context.Context, userID, tenantID uuid.UUID) (bool, error)
	createFn       func(ctx context.Context, params persistence.CreateTaskParams) (persistence.Task, error)
	getFn          func(ctx context.Context, id uuid.UUID) (persistence.Task, error)
	listFn         func(ctx context.Context, projectID uuid.UUID, params persistence.ListTasksParams) (persistence.ListTasksResult, error)
	listAllFn      func(ctx context.Context) ([]persistence.TaskSummary, error)
	updateStatusFn func(ctx context.Context, id uuid.UUID, status string) (persistence.Task, error)
	updateFn       func(ctx context.Context, id uuid.UUID, params persistence.UpdateTaskParams) (persistence.Task, error)
	deleteFn       func(ctx context.Context, id uuid.UUID) error
}

func (m *mockRepository) GetProject(ctx context.Context, id uuid.UUID) (persistence.Project, error) {
	if m.getProjectFn == nil {
		panic("getProjectFn not configured")
	}
	return m.getProjectFn(ctx, id)
}

func (m *mockRepository) UserInTenant(ctx context.Context, userID, tenantID uuid.UUID) (bool, error) {
	if m.userInTenantFn == nil {
		panic("userInTenantFn not configured")
	}
	return m.userInTenantFn(ctx, userID, tenantID)
}

func (m *mockRepository) Create(ctx context.Context, params persistence.CreateTaskParams) (persistence.Task, error) {
	if m.createFn == nil {
		panic("createFn not configured")
	}
	return m.createFn(ctx, params)
}

func (m *mockRepository) Get(ctx context.Context, id uuid.UUID) (persistence.Task, error) {
	if m.getFn == nil {
		panic("getFn not configured")
	}
	return m.getFn(ctx, id)
}

func (m *mockRepository) List(ctx context.Context, projectID uuid.UUID, params persistence.ListTasksParams) (persistence.ListTasksResult, error) {
	if m.listFn == nil {
		panic("listFn not configured")
	}
	return m.listFn(ctx, projectID, params)
}

func (m *mockRepository) ListAll(ctx context.Context) ([]persistence.TaskSummary, error) {
	if m.listAllFn == nil {
		panic("listAllFn not configured")
	}
	return m.listAllFn(ctx)
}

func (m *mockRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (persistence.Task, error) {
	if m.updateStatusFn == nil {
		panic("updateStatusFn not configured")
	}
	return m.updateStatusFn(ctx, id, status)
}

func (m *mockRepository) Update(ctx context.Context, id uuid.UUID, params persistence.UpdateTaskParams) (persistence.Task, error) {
	if m.updateFn == nil {
		panic("updateFn not configured")
	}
	return m.updateFn(ctx, id, params)
}

func (m *mockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteFn == nil {
		panic("deleteFn not configured")
	}
	return m.deleteFn(ctx, id)
}

func actorIn(role platformauth.Role, tenantID uuid.UUID) policy.Actor {
	return policy.Actor{UserID: uuid.New(), TenantID: &tenantID, Role: role}
}

func strPtr(s string) *string { return &s }

func projectIn(tenantID uuid.UUID) persistence.Project {
	return persistence.Project{ID: uuid.New(), TenantID: tenantID, Name: "Website", Status: "active"}
}

func TestCreateTask(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	project := projectIn(tenantID)
	assignee := uuid.New()
	recorder := &audittest.Recorder{}

	repository := &mockRepository{
		getProjectFn: func(ctx context.Context, id uuid.UUID) (persistence.Project, error) { return project, nil },
		userInTenantFn: func(ctx context.Context, userID, tID uuid.UUID) (bool, error) {
			require.Equal(t, assignee, userID)
			require.Equal(t, tenantID, tID)
			return true, nil
		},
		createFn: func(ctx context.Context, params persistence.CreateTaskParams) (persistence.Task, error) {
			require.Equal(t, StatusTodo, params.Status)
			require.Equal(t, PriorityMedium, params.Priority)
			require.Equal(t, tenantID, params.TenantID)
			require.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), *params.DueDate)
			return persistence.Task{
				ID: params.ID, ProjectID: params.ProjectID, TenantID: params.TenantID, Title: params.Title,
				Status: params.Status, Priority: params.Priority, AssignedTo: params.AssignedTo, DueDate: params.DueDate,
			}, nil
		},
	}
	svc := New(repository, recorder)

	task, err := svc.Create(context.Background(), actorIn(platformauth.RoleUser, tenantID), project.ID, CreateInput{
		Title:      "Draft copy",
		AssignedTo: &assignee,
		DueDate:    strPtr("2026-03-01"),
	})
	require.NoError(t, err)
	require.Equal(t, StatusTodo, task.Status)
	require.Equal(t, []string{audit.ActionTaskCreated}, recorder.Actions())
}

func TestCreateTaskRejections(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	project := projectIn(tenantID)

	repository := &mockRepository{
		getProjectFn: func(ctx context.Context, id uuid.UUID) (persistence.Project, error) {
			if id != project.ID {
				return persistence.Project{}, persistence.ErrProjectNotFound
			}
			return project, nil
		},
		userInTenantFn: func(ctx context.Context, userID, tID uuid.UUID) (bool, error) { return false, nil },
	}
	svc := New(repository, &audittest.Recorder{})
	ctx := context.Background()
	actor := actorIn(platformauth.RoleUser, tenantID)

	_, err := svc.Create(ctx, actor, uuid.New(), CreateInput{Title: "x"})
	require.ErrorIs(t, err, ErrProjectNotFound)

	_, err = svc.Create(ctx, actorIn(platformauth.RoleUser, uuid.New()), project.ID, CreateInput{Title: "x"})
	require.ErrorIs(t, err, policy.ErrTenantMismatch)

	_, err = svc.Create(ctx, actor, project.ID, CreateInput{Title: "", Priority: "urgent", DueDate: strPtr("03/01/2026")})
	require.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	outsider := uuid.New()
	_, err = svc.Create(ctx, actor, project.ID, CreateInput{Title: "x", AssignedTo: &outsider})
	require.ErrorIs(t, err, ErrAssigneeTenant)
}

func TestCreateTaskAssigneeRemovedBeforeInsert(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	project := projectIn(tenantID)
	assignee := uuid.New()
	recorder := &audittest.Recorder{}

	repository := &mockRepository{
		getProjectFn:   func(ctx context.Context, id uuid.UUID) (persistence.Project, error) { return project, nil },
		userInTenantFn: func(ctx context.Context, userID, tID uuid.UUID) (bool, error) { return true, nil },
		createFn: func(ctx context.Context, params persistence.CreateTaskParams) (persistence.Task, error) {
			return persistence.Task{}, persistence.ErrAssigneeNotFound
		},
	}
	svc := New(repository, recorder)

	_, err := svc.Create(context.Background(), actorIn(platformauth.RoleUser, tenantID), project.ID, CreateInput{
		Title:      "Draft copy",
		AssignedTo: &assignee,
	})
	require.ErrorIs(t, err, ErrAssigneeTenant)
	require.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
	require.Empty(t, recorder.Actions())
}

func TestListTasks(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	project := projectIn(tenantID)
	assignee := uuid.New()

	repository := &mockRepository{
		getProjectFn: func(ctx context.Context, id uuid.UUID) (persistence.Project, error) { return project, nil },
		listFn: func(ctx context.Context, projectID uuid.UUID, params persistence.ListTasksParams) (persistence.ListTasksResult, error) {
			require.Equal(t, project.ID, projectID)
			require.Equal(t, defaultListLimit, params.PageSize)
			require.Equal(t, assignee, *params.AssignedTo)
			return persistence.ListTasksResult{
				Tasks: []persistence.TaskSummary{{
					Task:     persistence.Task{ID: uuid.New(), Title: "Draft"},
					Assignee: &persistence.TaskAssignee{ID: assignee, FullName: "Ada", Email: "ada@acme.test"},
				}},
				TotalItems: 1,
			}, nil
		},
	}
	svc := New(repository, &audittest.Recorder{})

	result, err := svc.List(context.Background(), actorIn(platformauth.RoleUser, tenantID), project.ID, ListOptions{AssignedTo: &assignee})
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
	require.Equal(t, "Ada", result.Tasks[0].Assignee.FullName)
	require.Equal(t, 1, result.Page.TotalPages)
}

func TestUpdateTaskStatus(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	existing := persistence.Task{ID: uuid.New(), TenantID: tenantID, Status: StatusTodo}
	recorder := &audittest.Recorder{}

	repository := &mockRepository{
		getFn: func(ctx context.Context, id uuid.UUID) (persistence.Task, error) { return existing, nil },
		updateStatusFn: func(ctx context.Context, id uuid.UUID, status string) (persistence.Task, error) {
			updated := existing
			updated.Status = status
			return updated, nil
		},
	}
	svc := New(repository, recorder)

	task, err := svc.UpdateStatus(context.Background(), actorIn(platformauth.RoleUser, tenantID), existing.ID, StatusCompleted)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, task.Status)

	entries := recorder.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, audit.ActionTaskStatusUpdated, entries[0].Action)
	require.Equal(t, StatusCompleted, entries[0].Metadata["status"])

	_, err = svc.UpdateStatus(context.Background(), actorIn(platformauth.RoleUser, tenantID), existing.ID, "blocked")
	require.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	_, err = svc.UpdateStatus(context.Background(), actorIn(platformauth.RoleUser, uuid.New()), existing.ID, StatusCompleted)
	require.ErrorIs(t, err, policy.ErrTenantMismatch)
}

func TestUpdateTaskTriState(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	existing := persistence.Task{ID: uuid.New(), TenantID: tenantID, Title: "Draft"}
	recorder := &audittest.Recorder{}

	repository := &mockRepository{
		getFn: func(ctx context.Context, id uuid.UUID) (persistence.Task, error) { return existing, nil },
		updateFn: func(ctx context.Context, id uuid.UUID, params persistence.UpdateTaskParams) (persistence.Task, error) {
			require.True(t, params.AssignedTo.IsNull())
			require.True(t, params.DueDate.Set)
			require.Equal(t, time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC), params.DueDate.V)
			require.False(t, params.Description.Set)
			return existing, nil
		},
	}
	svc := New(repository, recorder)

	_, err := svc.Update(context.Background(), actorIn(platformauth.RoleUser, tenantID), existing.ID, UpdateInput{
		AssignedTo: optional.Null[uuid.UUID](),
		DueDate:    optional.Of("2026-05-04"),
	})
	require.NoError(t, err)

	entries := recorder.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, []string{"assignedTo", "dueDate"}, entries[0].Metadata["updatedFields"])

	_, err = svc.Update(context.Background(), actorIn(platformauth.RoleUser, tenantID), existing.ID, UpdateInput{})
	require.ErrorIs(t, err, ErrNoUpdatableFields)
}

func TestUpdateTaskRevalidatesAssignee(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	existing := persistence.Task{ID: uuid.New(), TenantID: tenantID}
	repository := &mockRepository{
		getFn:          func(ctx context.Context, id uuid.UUID) (persistence.Task, error) { return existing, nil },
		userInTenantFn: func(ctx context.Context, userID, tID uuid.UUID) (bool, error) { return false, nil },
	}
	svc := New(repository, &audittest.Recorder{})

	_, err := svc.Update(context.Background(), actorIn(platformauth.RoleUser, tenantID), existing.ID, UpdateInput{
		AssignedTo: optional.Of(uuid.New()),
	})
	require.ErrorIs(t, err, ErrAssigneeTenant)
}

func TestDeleteTask(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	existing := persistence.Task{ID: uuid.New(), TenantID: tenantID, ProjectID: uuid.New()}
	recorder := &audittest.Recorder{}
	repository := &mockRepository{
		getFn: func(ctx context.Context, id uuid.UUID) (persistence.Task, error) {
			if id != existing.ID {
				return persistence.Task{}, persistence.ErrTaskNotFound
			}
			return existing, nil
		},
		deleteFn: func(ctx context.Context, id uuid.UUID) error { return nil },
	}
	svc := New(repository, recorder)

	require.ErrorIs(t, svc.Delete(context.Background(), actorIn(platformauth.RoleUser, tenantID), uuid.New()), ErrNotFound)
	require.NoError(t, svc.Delete(context.Background(), actorIn(platformauth.RoleUser, tenantID), existing.ID))
	require.Equal(t, []string{audit.ActionTaskDeleted}, recorder.Actions())
}

func TestListAllTasksSuperAdminOnly(t *testing.T) {
	t.Parallel()

	repository := &mockRepository{
		listAllFn: func(ctx context.Context) ([]persistence.TaskSummary, error) {
			return []persistence.TaskSummary{{Task: persistence.Task{ID: uuid.New()}, ProjectName: "Website"}}, nil
		},
	}
	svc := New(repository, &audittest.Recorder{})

	tasks, err := svc.ListAll(context.Background(), policy.Actor{UserID: uuid.New(), Role: platformauth.RoleSuperAdmin})
	require.NoError(t, err)
	require.Equal(t, "Website", tasks[0].ProjectName)

	_, err = svc.ListAll(context.Background(), actorIn(platformauth.RoleTenantAdmin, uuid.New()))
	require.ErrorIs(t, err, policy.ErrSuperAdminOnly)
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate(" 2026-10-16 ")
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseDate("2026-13-01")
	require.Error(t, err)
}

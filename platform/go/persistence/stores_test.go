package persistence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/palmyra-taskhub/platform/go/audit"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/optional"
)

type testStores struct {
	tenants  *TenantStore
	users    *UserStore
	projects *ProjectStore
	tasks    *TaskStore
	audit    *AuditStore
}

func newTestStores(t *testing.T) testStores {
	t.Helper()

	ctx := context.Background()
	pool := newMigratedPool(t)

	tenants, err := NewTenantStore(ctx, pool)
	require.NoError(t, err)
	users, err := NewUserStore(ctx, pool)
	require.NoError(t, err)
	projects, err := NewProjectStore(ctx, pool)
	require.NoError(t, err)
	tasks, err := NewTaskStore(ctx, pool)
	require.NoError(t, err)
	auditLogs, err := NewAuditStore(ctx, pool)
	require.NoError(t, err)

	return testStores{tenants: tenants, users: users, projects: projects, tasks: tasks, audit: auditLogs}
}

func registerTenant(t *testing.T, s testStores, subdomain string) (Tenant, User) {
	t.Helper()

	tenant, admin, err := s.tenants.RegisterTenant(context.Background(),
		CreateTenantParams{ID: uuid.New(), Name: "Tenant " + subdomain, Subdomain: subdomain},
		CreateUserParams{ID: uuid.New(), Email: "admin@" + subdomain + ".test", PasswordHash: "hash", FullName: "Admin", Role: "tenant_admin"},
	)
	require.NoError(t, err)
	return tenant, admin
}

func TestStoresIntegration(t *testing.T) {
	s := newTestStores(t)
	ctx := context.Background()

	t.Run("register applies defaults and rejects duplicate subdomain", func(t *testing.T) {
		tenant, admin := registerTenant(t, s, "acme")

		require.Equal(t, DefaultTenantStatus, tenant.Status)
		require.Equal(t, DefaultSubscriptionPlan, tenant.SubscriptionPlan)
		require.Equal(t, DefaultTenantMaxUsers, tenant.MaxUsers)
		require.Equal(t, DefaultTenantMaxProjects, tenant.MaxProjects)
		require.Equal(t, &tenant.ID, admin.TenantID)
		require.Equal(t, "tenant_admin", admin.Role)
		require.True(t, admin.IsActive)

		_, _, err := s.tenants.RegisterTenant(ctx,
			CreateTenantParams{ID: uuid.New(), Name: "Other", Subdomain: "acme"},
			CreateUserParams{ID: uuid.New(), Email: "x@y.test", PasswordHash: "hash", FullName: "X", Role: "tenant_admin"},
		)
		require.ErrorIs(t, err, ErrTenantConflict)

		got, err := s.tenants.GetTenantBySubdomain(ctx, "acme")
		require.NoError(t, err)
		require.Equal(t, tenant.ID, got.ID)

		_, err = s.tenants.GetTenant(ctx, uuid.New())
		require.ErrorIs(t, err, ErrTenantNotFound)
	})

	t.Run("email is unique per tenant only", func(t *testing.T) {
		tenantA, _ := registerTenant(t, s, "email-a")
		tenantB, _ := registerTenant(t, s, "email-b")

		_, err := s.users.CreateUserWithinQuota(ctx, CreateUserParams{ID: uuid.New(), TenantID: &tenantA.ID, Email: "Same@Example.com", PasswordHash: "h", FullName: "A", Role: "user"})
		require.NoError(t, err)
		_, err = s.users.CreateUserWithinQuota(ctx, CreateUserParams{ID: uuid.New(), TenantID: &tenantB.ID, Email: "same@example.com", PasswordHash: "h", FullName: "B", Role: "user"})
		require.NoError(t, err)
		_, err = s.users.CreateUserWithinQuota(ctx, CreateUserParams{ID: uuid.New(), TenantID: &tenantA.ID, Email: "same@example.com", PasswordHash: "h", FullName: "C", Role: "user"})
		require.ErrorIs(t, err, ErrUserConflict)

		found, err := s.users.FindTenantUserByEmail(ctx, tenantB.ID, "SAME@example.com")
		require.NoError(t, err)
		require.Equal(t, "B", found.FullName)

		exists, err := s.users.TenantUserEmailExists(ctx, "same@example.com")
		require.NoError(t, err)
		require.True(t, exists)
	})

	t.Run("user quota holds under concurrent creates", func(t *testing.T) {
		tenant, _ := registerTenant(t, s, "quota-users")

		const attempts = 10
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			created  int
			rejected int
		)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.users.CreateUserWithinQuota(ctx, CreateUserParams{
					ID: uuid.New(), TenantID: &tenant.ID, Email: uuid.NewString() + "@quota.test",
					PasswordHash: "h", FullName: "Q", Role: "user",
				})
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					created++
				} else if errors.Is(err, ErrQuotaExceeded) {
					rejected++
				}
			}()
		}
		wg.Wait()

		// The registered admin already occupies one seat.
		require.Equal(t, DefaultTenantMaxUsers-1, created)
		require.Equal(t, attempts-created, rejected)

		stats, err := s.tenants.TenantStats(ctx, tenant.ID)
		require.NoError(t, err)
		require.Equal(t, DefaultTenantMaxUsers, stats.TotalUsers)
	})

	t.Run("project quota holds under concurrent creates", func(t *testing.T) {
		tenant, admin := registerTenant(t, s, "quota-projects-race")

		const attempts = 10
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			created  int
			rejected int
		)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.projects.CreateProjectWithinQuota(ctx, CreateProjectParams{
					ID: uuid.New(), TenantID: tenant.ID, Name: "Race", Status: "active", CreatedBy: admin.ID,
				})
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					created++
				} else if errors.Is(err, ErrQuotaExceeded) {
					rejected++
				}
			}()
		}
		wg.Wait()

		require.Equal(t, DefaultTenantMaxProjects, created)
		require.Equal(t, attempts-DefaultTenantMaxProjects, rejected)

		stats, err := s.tenants.TenantStats(ctx, tenant.ID)
		require.NoError(t, err)
		require.Equal(t, DefaultTenantMaxProjects, stats.TotalProjects)
	})

	t.Run("project quota and summaries", func(t *testing.T) {
		tenant, admin := registerTenant(t, s, "quota-projects")

		var firstID uuid.UUID
		for i := 0; i < DefaultTenantMaxProjects; i++ {
			p, err := s.projects.CreateProjectWithinQuota(ctx, CreateProjectParams{
				ID: uuid.New(), TenantID: tenant.ID, Name: "Project", Status: "active", CreatedBy: admin.ID,
			})
			require.NoError(t, err)
			if i == 0 {
				firstID = p.ID
			}
		}

		_, err := s.projects.CreateProjectWithinQuota(ctx, CreateProjectParams{
			ID: uuid.New(), TenantID: tenant.ID, Name: "One too many", Status: "active", CreatedBy: admin.ID,
		})
		require.ErrorIs(t, err, ErrQuotaExceeded)

		_, err = s.tasks.CreateTask(ctx, CreateTaskParams{ID: uuid.New(), ProjectID: firstID, TenantID: tenant.ID, Title: "done", Status: "completed", Priority: "low"})
		require.NoError(t, err)
		_, err = s.tasks.CreateTask(ctx, CreateTaskParams{ID: uuid.New(), ProjectID: firstID, TenantID: tenant.ID, Title: "open", Status: "todo", Priority: "low"})
		require.NoError(t, err)

		summary, err := s.projects.GetProjectSummary(ctx, firstID)
		require.NoError(t, err)
		require.Equal(t, 2, summary.TaskCount)
		require.Equal(t, 1, summary.CompletedTaskCount)
		require.Equal(t, "Admin", *summary.CreatorName)

		list, err := s.projects.ListProjects(ctx, tenant.ID, ListProjectsParams{Pagination: Pagination{Page: 1, PageSize: 2}})
		require.NoError(t, err)
		require.Equal(t, DefaultTenantMaxProjects, list.TotalItems)
		require.Len(t, list.Projects, 2)

		updated, err := s.projects.UpdateProject(ctx, firstID, UpdateProjectParams{Description: optional.Of("notes")})
		require.NoError(t, err)
		require.Equal(t, "notes", *updated.Description)
		updated, err = s.projects.UpdateProject(ctx, firstID, UpdateProjectParams{Description: optional.Null[string]()})
		require.NoError(t, err)
		require.Nil(t, updated.Description)

		require.NoError(t, s.projects.DeleteProject(ctx, firstID))
		_, err = s.projects.GetProject(ctx, firstID)
		require.ErrorIs(t, err, ErrProjectNotFound)

		stats, err := s.tenants.TenantStats(ctx, tenant.ID)
		require.NoError(t, err)
		require.Equal(t, 0, stats.TotalTasks)
	})

	t.Run("tasks are ordered by priority then due date", func(t *testing.T) {
		tenant, admin := registerTenant(t, s, "ordering")
		project, err := s.projects.CreateProjectWithinQuota(ctx, CreateProjectParams{
			ID: uuid.New(), TenantID: tenant.ID, Name: "Ordered", Status: "active", CreatedBy: admin.ID,
		})
		require.NoError(t, err)

		day := func(d int) *time.Time {
			v := time.Date(2026, time.March, d, 0, 0, 0, 0, time.UTC)
			return &v
		}

		create := func(title, priority string, due *time.Time) {
			_, err := s.tasks.CreateTask(ctx, CreateTaskParams{
				ID: uuid.New(), ProjectID: project.ID, TenantID: tenant.ID,
				Title: title, Status: "todo", Priority: priority, DueDate: due,
			})
			require.NoError(t, err)
		}
		create("low-early", "low", day(1))
		create("medium-undated", "medium", nil)
		create("high-late", "high", day(20))
		create("medium-early", "medium", day(2))
		create("high-early", "high", day(5))

		list, err := s.tasks.ListTasks(ctx, project.ID, ListTasksParams{Pagination: Pagination{Page: 1, PageSize: 50}})
		require.NoError(t, err)

		titles := make([]string, 0, len(list.Tasks))
		for _, task := range list.Tasks {
			titles = append(titles, task.Title)
			require.Equal(t, "Ordered", task.ProjectName)
		}
		require.Equal(t, []string{"high-early", "high-late", "medium-early", "medium-undated", "low-early"}, titles)

		high := "high"
		filtered, err := s.tasks.ListTasks(ctx, project.ID, ListTasksParams{Priority: &high})
		require.NoError(t, err)
		require.Equal(t, 2, filtered.TotalItems)
	})

	t.Run("deleting a user unassigns their tasks", func(t *testing.T) {
		tenant, admin := registerTenant(t, s, "unassign")
		member, err := s.users.CreateUserWithinQuota(ctx, CreateUserParams{
			ID: uuid.New(), TenantID: &tenant.ID, Email: "member@unassign.test", PasswordHash: "h", FullName: "Member", Role: "user",
		})
		require.NoError(t, err)

		project, err := s.projects.CreateProjectWithinQuota(ctx, CreateProjectParams{
			ID: uuid.New(), TenantID: tenant.ID, Name: "P", Status: "active", CreatedBy: admin.ID,
		})
		require.NoError(t, err)

		task, err := s.tasks.CreateTask(ctx, CreateTaskParams{
			ID: uuid.New(), ProjectID: project.ID, TenantID: tenant.ID, Title: "T",
			Status: "todo", Priority: "medium", AssignedTo: &member.ID,
		})
		require.NoError(t, err)

		inTenant, err := s.users.UserInTenant(ctx, member.ID, tenant.ID)
		require.NoError(t, err)
		require.True(t, inTenant)

		list, err := s.tasks.ListTasks(ctx, project.ID, ListTasksParams{AssignedTo: &member.ID})
		require.NoError(t, err)
		require.Len(t, list.Tasks, 1)
		require.Equal(t, "member@unassign.test", list.Tasks[0].Assignee.Email)

		require.NoError(t, s.users.DeleteUser(ctx, member.ID))

		got, err := s.tasks.GetTask(ctx, task.ID)
		require.NoError(t, err)
		require.Nil(t, got.AssignedTo)

		require.ErrorIs(t, s.users.DeleteUser(ctx, member.ID), ErrUserNotFound)

		_, err = s.tasks.CreateTask(ctx, CreateTaskParams{
			ID: uuid.New(), ProjectID: project.ID, TenantID: tenant.ID, Title: "Orphan",
			Status: "todo", Priority: "medium", AssignedTo: &member.ID,
		})
		require.ErrorIs(t, err, ErrAssigneeNotFound)

		_, err = s.tasks.UpdateTask(ctx, task.ID, UpdateTaskParams{AssignedTo: optional.Of(member.ID)})
		require.ErrorIs(t, err, ErrAssigneeNotFound)

		_, err = s.tasks.CreateTask(ctx, CreateTaskParams{
			ID: uuid.New(), ProjectID: uuid.New(), TenantID: tenant.ID, Title: "Lost",
			Status: "todo", Priority: "medium",
		})
		require.ErrorIs(t, err, ErrProjectNotFound)
	})

	t.Run("partial updates", func(t *testing.T) {
		tenant, admin := registerTenant(t, s, "partial")

		plan := "pro"
		maxUsers := 25
		updated, err := s.tenants.UpdateTenant(ctx, tenant.ID, UpdateTenantParams{SubscriptionPlan: &plan, MaxUsers: &maxUsers})
		require.NoError(t, err)
		require.Equal(t, "pro", updated.SubscriptionPlan)
		require.Equal(t, 25, updated.MaxUsers)
		require.Equal(t, tenant.Name, updated.Name)

		_, err = s.tenants.UpdateTenant(ctx, tenant.ID, UpdateTenantParams{})
		require.Error(t, err)

		inactive := false
		user, err := s.users.UpdateUser(ctx, admin.ID, UpdateUserParams{IsActive: &inactive})
		require.NoError(t, err)
		require.False(t, user.IsActive)

		status := "completed"
		project, err := s.projects.CreateProjectWithinQuota(ctx, CreateProjectParams{
			ID: uuid.New(), TenantID: tenant.ID, Name: "P", Status: "active", CreatedBy: admin.ID,
		})
		require.NoError(t, err)
		task, err := s.tasks.CreateTask(ctx, CreateTaskParams{
			ID: uuid.New(), ProjectID: project.ID, TenantID: tenant.ID, Title: "T", Status: "todo",
			Priority: "medium", AssignedTo: &admin.ID,
		})
		require.NoError(t, err)

		task, err = s.tasks.UpdateTask(ctx, task.ID, UpdateTaskParams{Status: &status, AssignedTo: optional.Null[uuid.UUID]()})
		require.NoError(t, err)
		require.Equal(t, "completed", task.Status)
		require.Nil(t, task.AssignedTo)

		task, err = s.tasks.UpdateTaskStatus(ctx, task.ID, "in_progress")
		require.NoError(t, err)
		require.Equal(t, "in_progress", task.Status)

		require.NoError(t, s.tasks.DeleteTask(ctx, task.ID))
		require.ErrorIs(t, s.tasks.DeleteTask(ctx, task.ID), ErrTaskNotFound)
	})

	t.Run("super admin lookup and tenant listing", func(t *testing.T) {
		admin, err := s.users.CreateSuperAdmin(ctx, CreateUserParams{ID: uuid.New(), Email: "Root@Platform.test", PasswordHash: "h", FullName: "Root"})
		require.NoError(t, err)
		require.Nil(t, admin.TenantID)

		found, err := s.users.FindSuperAdminByEmail(ctx, "root@platform.test")
		require.NoError(t, err)
		require.Equal(t, admin.ID, found.ID)

		_, err = s.users.CreateSuperAdmin(ctx, CreateUserParams{ID: uuid.New(), Email: "root@platform.test", PasswordHash: "h", FullName: "Dup"})
		require.ErrorIs(t, err, ErrUserConflict)

		page, err := s.tenants.ListTenants(ctx, Pagination{Page: 1, PageSize: 2})
		require.NoError(t, err)
		require.Len(t, page.Tenants, 2)
		require.Greater(t, page.TotalItems, 2)
	})

	t.Run("audit entries round trip", func(t *testing.T) {
		tenant, admin := registerTenant(t, s, "audited")
		ip := "203.0.113.9"

		entry := audit.Entry{
			TenantID:   tenant.ID,
			UserID:     &admin.ID,
			Action:     audit.ActionProjectUpdated,
			EntityType: audit.EntityProject,
			EntityID:   uuid.New(),
			IPAddress:  &ip,
			RequestID:  "req-42",
			Metadata:   map[string]any{"updatedFields": []string{"name"}},
		}
		require.NoError(t, s.audit.Insert(ctx, entry))
		require.NoError(t, s.audit.Insert(ctx, audit.Entry{
			TenantID: tenant.ID, Action: audit.ActionTaskDeleted, EntityType: audit.EntityTask, EntityID: uuid.New(),
		}))

		list, err := s.audit.ListAuditLogs(ctx, tenant.ID, Pagination{Page: 1, PageSize: 10})
		require.NoError(t, err)
		require.Equal(t, 2, list.TotalItems)

		var updated audit.Entry
		for _, e := range list.Entries {
			if e.Action == audit.ActionProjectUpdated {
				updated = e
			}
		}
		require.Equal(t, "req-42", updated.RequestID)
		require.Equal(t, ip, *updated.IPAddress)
		require.Equal(t, []any{"name"}, updated.Metadata["updatedFields"])
	})
}

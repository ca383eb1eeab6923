package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/zenGate-Global/palmyra-taskhub/platform/go/apperr"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/audit"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/audit/audittest"
	platformauth "github.com/zenGate-Global/palmyra-taskhub/platform/go/auth"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/policy"
)

type mockRepository struct {
	registerFn func(ctx context.Context, tenant persistence.CreateTenantParams, admin persistence.CreateUserParams) (persistence.Tenant, persistence.User, error)
	getFn      func(ctx context.Context, id uuid.UUID) (persistence.Tenant, error)
	statsFn    func(ctx context.Context, id uuid.UUID) (persistence.TenantStats, error)
	updateFn   func(ctx context.Context, id uuid.UUID, params persistence.UpdateTenantParams) (persistence.Tenant, error)
	listFn     func(ctx context.Context, page persistence.Pagination) (persistence.ListTenantsResult, error)
}

func (m *mockRepository) Register(ctx context.Context, tenant persistence.CreateTenantParams, admin persistence.CreateUserParams) (persistence.Tenant, persistence.User, error) {
	if m.registerFn == nil {
		panic("registerFn not configured")
	}
	return m.registerFn(ctx, tenant, admin)
}

func (m *mockRepository) Get(ctx context.Context, id uuid.UUID) (persistence.Tenant, error) {
	if m.getFn == nil {
		panic("getFn not configured")
	}
	return m.getFn(ctx, id)
}

func (m *mockRepository) Stats(ctx context.Context, id uuid.UUID) (persistence.TenantStats, error) {
	if m.statsFn == nil {
		panic("statsFn not configured")
	}
	return m.statsFn(ctx, id)
}

func (m *mockRepository) Update(ctx context.Context, id uuid.UUID, params persistence.UpdateTenantParams) (persistence.Tenant, error) {
	if m.updateFn == nil {
		panic("updateFn not configured")
	}
	return m.updateFn(ctx, id, params)
}

func (m *mockRepository) List(ctx context.Context, page persistence.Pagination) (persistence.ListTenantsResult, error) {
	if m.listFn == nil {
		panic("listFn not configured")
	}
	return m.listFn(ctx, page)
}

type stubHasher struct{}

func (stubHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func tenantActor(role platformauth.Role, tenantID uuid.UUID) policy.Actor {
	return policy.Actor{UserID: uuid.New(), TenantID: &tenantID, Role: role}
}

func superAdmin() policy.Actor {
	return policy.Actor{UserID: uuid.New(), Role: platformauth.RoleSuperAdmin}
}

func validRegisterInput() RegisterInput {
	return RegisterInput{
		TenantName:    " Acme ",
		Subdomain:     "Acme",
		AdminEmail:    "Admin@Acme.test",
		AdminPassword: "s3cret-pass",
		AdminFullName: "Ada Admin",
	}
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()

	svc := New(&mockRepository{}, stubHasher{}, &audittest.Recorder{})

	_, err := svc.Register(context.Background(), RegisterInput{Subdomain: "-bad", AdminEmail: "nope", AdminPassword: "short"})
	require.Error(t, err)

	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, apperr.CodeValidation, appErr.Code)
	for _, field := range []string{"tenantName", "subdomain", "adminEmail", "adminPassword", "adminFullName"} {
		require.Contains(t, appErr.Fields, field)
	}
}

func TestRegisterSuccess(t *testing.T) {
	t.Parallel()

	recorder := &audittest.Recorder{}
	repository := &mockRepository{}
	repository.registerFn = func(ctx context.Context, tenant persistence.CreateTenantParams, admin persistence.CreateUserParams) (persistence.Tenant, persistence.User, error) {
		require.Equal(t, "Acme", tenant.Name)
		require.Equal(t, "acme", tenant.Subdomain)
		require.Equal(t, "admin@acme.test", admin.Email)
		require.Equal(t, "hashed:s3cret-pass", admin.PasswordHash)
		require.Equal(t, "tenant_admin", admin.Role)

		return persistence.Tenant{ID: tenant.ID, Name: tenant.Name, Subdomain: tenant.Subdomain},
			persistence.User{ID: admin.ID, TenantID: &tenant.ID, Email: admin.Email, FullName: admin.FullName, Role: admin.Role},
			nil
	}

	svc := New(repository, stubHasher{}, recorder)

	reg, err := svc.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)
	require.Equal(t, "acme", reg.Subdomain)
	require.Equal(t, "tenant_admin", reg.AdminUser.Role)

	entries := recorder.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, audit.ActionTenantRegistered, entries[0].Action)
	require.Equal(t, reg.TenantID, entries[0].TenantID)
	require.Equal(t, &reg.AdminUser.ID, entries[0].UserID)
}

func TestRegisterDuplicateSubdomain(t *testing.T) {
	t.Parallel()

	recorder := &audittest.Recorder{}
	repository := &mockRepository{
		registerFn: func(ctx context.Context, tenant persistence.CreateTenantParams, admin persistence.CreateUserParams) (persistence.Tenant, persistence.User, error) {
			return persistence.Tenant{}, persistence.User{}, persistence.ErrTenantConflict
		},
	}

	svc := New(repository, stubHasher{}, recorder)

	_, err := svc.Register(context.Background(), validRegisterInput())
	require.ErrorIs(t, err, ErrSubdomainTaken)
	require.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))
	require.Empty(t, recorder.Entries())
}

func TestGetEnforcesTenantIsolation(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	repository := &mockRepository{
		getFn: func(ctx context.Context, id uuid.UUID) (persistence.Tenant, error) {
			return persistence.Tenant{ID: id, Name: "Acme"}, nil
		},
		statsFn: func(ctx context.Context, id uuid.UUID) (persistence.TenantStats, error) {
			return persistence.TenantStats{TotalUsers: 2, TotalProjects: 1, TotalTasks: 7}, nil
		},
	}
	svc := New(repository, stubHasher{}, &audittest.Recorder{})

	details, err := svc.Get(context.Background(), tenantActor(platformauth.RoleUser, tenantID), tenantID)
	require.NoError(t, err)
	require.Equal(t, 7, details.Stats.TotalTasks)

	_, err = svc.Get(context.Background(), tenantActor(platformauth.RoleTenantAdmin, uuid.New()), tenantID)
	require.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))

	_, err = svc.Get(context.Background(), superAdmin(), tenantID)
	require.NoError(t, err)
}

func TestUpdateFiltersFieldsByRole(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	recorder := &audittest.Recorder{}
	repository := &mockRepository{}
	svc := New(repository, stubHasher{}, recorder)

	name := "Acme Corp"
	plan := "enterprise"
	maxUsers := 50

	repository.updateFn = func(ctx context.Context, id uuid.UUID, params persistence.UpdateTenantParams) (persistence.Tenant, error) {
		require.Equal(t, "Acme Corp", *params.Name)
		require.Nil(t, params.SubscriptionPlan)
		require.Nil(t, params.MaxUsers)
		return persistence.Tenant{ID: id, Name: *params.Name}, nil
	}

	tenant, err := svc.Update(context.Background(), tenantActor(platformauth.RoleTenantAdmin, tenantID), tenantID,
		UpdateInput{Name: &name, SubscriptionPlan: &plan, MaxUsers: &maxUsers})
	require.NoError(t, err)
	require.Equal(t, "Acme Corp", tenant.Name)

	entries := recorder.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, audit.ActionTenantUpdated, entries[0].Action)
	require.Equal(t, []string{policy.TenantFieldName}, entries[0].Metadata["updatedFields"])

	_, err = svc.Update(context.Background(), tenantActor(platformauth.RoleTenantAdmin, tenantID), tenantID,
		UpdateInput{SubscriptionPlan: &plan})
	require.ErrorIs(t, err, ErrNoUpdatableFields)

	repository.updateFn = func(ctx context.Context, id uuid.UUID, params persistence.UpdateTenantParams) (persistence.Tenant, error) {
		require.Equal(t, "enterprise", *params.SubscriptionPlan)
		require.Equal(t, 50, *params.MaxUsers)
		return persistence.Tenant{ID: id, SubscriptionPlan: *params.SubscriptionPlan, MaxUsers: *params.MaxUsers}, nil
	}
	tenant, err = svc.Update(context.Background(), superAdmin(), tenantID, UpdateInput{SubscriptionPlan: &plan, MaxUsers: &maxUsers})
	require.NoError(t, err)
	require.Equal(t, 50, tenant.MaxUsers)
}

func TestUpdateRejectsPlainUserAndBadValues(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	svc := New(&mockRepository{}, stubHasher{}, &audittest.Recorder{})
	name := "x"

	_, err := svc.Update(context.Background(), tenantActor(platformauth.RoleUser, tenantID), tenantID, UpdateInput{Name: &name})
	require.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))

	status := "deleted"
	_, err = svc.Update(context.Background(), superAdmin(), tenantID, UpdateInput{Status: &status})
	require.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestListDefaultsAndPagination(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	repository := &mockRepository{
		listFn: func(ctx context.Context, page persistence.Pagination) (persistence.ListTenantsResult, error) {
			require.Equal(t, 1, page.Page)
			require.Equal(t, defaultListLimit, page.PageSize)
			return persistence.ListTenantsResult{
				Tenants:    []persistence.TenantSummary{{Tenant: persistence.Tenant{ID: uuid.New(), CreatedAt: now}, TotalUsers: 3}},
				TotalItems: 21,
			}, nil
		},
	}
	svc := New(repository, stubHasher{}, &audittest.Recorder{})

	result, err := svc.List(context.Background(), superAdmin(), ListOptions{})
	require.NoError(t, err)
	require.Len(t, result.Tenants, 1)
	require.Equal(t, 3, result.Page.TotalPages)
	require.Equal(t, 21, result.TotalItems)

	_, err = svc.List(context.Background(), tenantActor(platformauth.RoleTenantAdmin, uuid.New()), ListOptions{})
	require.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))
}

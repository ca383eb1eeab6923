package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-taskhub/domains/tenants/be/repo"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/apperr"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/audit"
	platformauth "github.com/zenGate-Global/palmyra-taskhub/platform/go/auth"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/policy"
)

const defaultListLimit = 10

// Domain errors.
var (
	ErrNotFound          = apperr.NotFound("Tenant not found")
	ErrSubdomainTaken    = apperr.Conflict("Subdomain already exists")
	ErrAdminEmailTaken   = apperr.Conflict("Email already exists in this tenant")
	ErrNoUpdatableFields = apperr.ValidationField("payload", "No valid fields to update")
)

var tenantStatuses = map[string]bool{"active": true, "suspended": true, "inactive": true}

// PasswordHasher hashes new credentials.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// Tenant represents the domain view of a tenant.
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

// Stats are live counters for a tenant.
type Stats struct {
	TotalUsers    int
	TotalProjects int
	TotalTasks    int
}

// Details is a tenant with its live counters.
type Details struct {
	Tenant
	Stats Stats
}

// Summary is a tenant row in the cross-tenant listing.
type Summary struct {
	Tenant
	TotalUsers    int
	TotalProjects int
}

// AdminUser is the first user created with a tenant.
type AdminUser struct {
	ID       uuid.UUID
	Email    string
	FullName string
	Role     string
}

// RegisterInput is the self-service signup payload.
type RegisterInput struct {
	TenantName    string
	Subdomain     string
	AdminEmail    string
	AdminPassword string
	AdminFullName string
}

// Registration is the result of a successful signup.
type Registration struct {
	TenantID  uuid.UUID
	Subdomain string
	AdminUser AdminUser
}

// UpdateInput carries optional tenant fields. Which ones apply depends on the caller's role.
type UpdateInput struct {
	Name             *string
	Status           *string
	SubscriptionPlan *string
	MaxUsers         *int
	MaxProjects      *int
}

// ListOptions controls pagination.
type ListOptions struct {
	Page  int
	Limit int
}

// ListResult wraps a page of tenants with pagination metadata.
type ListResult struct {
	Tenants    []Summary
	Page       persistence.PageInfo
	TotalItems int
}

// Service defines the business operations for the tenants domain.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (Registration, error)
	Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (Details, error)
	Update(ctx context.Context, actor policy.Actor, id uuid.UUID, input UpdateInput) (Tenant, error)
	List(ctx context.Context, actor policy.Actor, opts ListOptions) (ListResult, error)
}

type service struct {
	repo   repo.Repository
	hasher PasswordHasher
	audit  audit.Recorder
}

// New constructs a tenants Service instance.
func New(r repo.Repository, hasher PasswordHasher, recorder audit.Recorder) Service {
	if r == nil {
		panic("tenants repository is required")
	}
	if hasher == nil {
		panic("password hasher is required")
	}
	if recorder == nil {
		panic("audit recorder is required")
	}
	return &service{repo: r, hasher: hasher, audit: recorder}
}

func (s *service) Register(ctx context.Context, input RegisterInput) (Registration, error) {
	fieldErrors := apperr.FieldErrors{}

	name := strings.TrimSpace(input.TenantName)
	if name == "" {
		fieldErrors.Add("tenantName", "tenantName is required")
	}

	subdomain, err := persistence.NormalizeSubdomain(input.Subdomain)
	if err != nil {
		fieldErrors.Add("subdomain", err.Error())
	}

	email, err := platformauth.NormalizeEmail(input.AdminEmail)
	if err != nil {
		fieldErrors.Add("adminEmail", err.Error())
	}

	if err := platformauth.ValidatePassword(input.AdminPassword); err != nil {
		fieldErrors.Add("adminPassword", err.Error())
	}

	fullName := strings.TrimSpace(input.AdminFullName)
	if fullName == "" {
		fieldErrors.Add("adminFullName", "adminFullName is required")
	}

	if len(fieldErrors) > 0 {
		return Registration{}, apperr.Validation(fieldErrors)
	}

	hash, err := s.hasher.Hash(input.AdminPassword)
	if err != nil {
		return Registration{}, apperr.Wrap(apperr.CodeInternal, "hash password", err)
	}

	tenant, admin, err := s.repo.Register(ctx,
		persistence.CreateTenantParams{ID: uuid.New(), Name: name, Subdomain: subdomain},
		persistence.CreateUserParams{
			ID:           uuid.New(),
			Email:        email,
			PasswordHash: hash,
			FullName:     fullName,
			Role:         string(platformauth.RoleTenantAdmin),
		},
	)
	if err != nil {
		return Registration{}, mapPersistenceError(err)
	}

	entry := audit.NewEntry(ctx, tenant.ID, audit.ActionTenantRegistered, audit.EntityTenant, tenant.ID)
	entry.UserID = &admin.ID
	s.audit.Record(ctx, entry.WithMetadata("subdomain", tenant.Subdomain))

	return Registration{
		TenantID:  tenant.ID,
		Subdomain: tenant.Subdomain,
		AdminUser: AdminUser{ID: admin.ID, Email: admin.Email, FullName: admin.FullName, Role: admin.Role},
	}, nil
}

func (s *service) Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (Details, error) {
	if err := policy.Authorize(actor, policy.TenantRead, policy.Resource{TenantID: id}); err != nil {
		return Details{}, err
	}

	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return Details{}, mapPersistenceError(err)
	}

	stats, err := s.repo.Stats(ctx, id)
	if err != nil {
		return Details{}, mapPersistenceError(err)
	}

	return Details{
		Tenant: mapTenant(record),
		Stats:  Stats{TotalUsers: stats.TotalUsers, TotalProjects: stats.TotalProjects, TotalTasks: stats.TotalTasks},
	}, nil
}

func (s *service) Update(ctx context.Context, actor policy.Actor, id uuid.UUID, input UpdateInput) (Tenant, error) {
	if err := policy.Authorize(actor, policy.TenantUpdate, policy.Resource{TenantID: id}); err != nil {
		return Tenant{}, err
	}

	params, updated, err := buildUpdateParams(policy.TenantUpdatableFields(actor), input)
	if err != nil {
		return Tenant{}, err
	}

	record, err := s.repo.Update(ctx, id, params)
	if err != nil {
		return Tenant{}, mapPersistenceError(err)
	}

	s.audit.Record(ctx, audit.NewEntry(ctx, id, audit.ActionTenantUpdated, audit.EntityTenant, id).
		WithMetadata("updatedFields", updated))

	return mapTenant(record), nil
}

func (s *service) List(ctx context.Context, actor policy.Actor, opts ListOptions) (ListResult, error) {
	if err := policy.Authorize(actor, policy.TenantList, policy.Resource{}); err != nil {
		return ListResult{}, err
	}

	page := persistence.NewPagination(opts.Page, opts.Limit, defaultListLimit)

	result, err := s.repo.List(ctx, page)
	if err != nil {
		return ListResult{}, mapPersistenceError(err)
	}

	tenants := make([]Summary, 0, len(result.Tenants))
	for _, record := range result.Tenants {
		tenants = append(tenants, Summary{
			Tenant:        mapTenant(record.Tenant),
			TotalUsers:    record.TotalUsers,
			TotalProjects: record.TotalProjects,
		})
	}

	return ListResult{Tenants: tenants, Page: page.Info(result.TotalItems), TotalItems: result.TotalItems}, nil
}

// buildUpdateParams keeps only the fields the caller may change and validates them.
// Fields outside allowed are dropped silently.
func buildUpdateParams(allowed map[string]bool, input UpdateInput) (persistence.UpdateTenantParams, []string, error) {
	var (
		params  persistence.UpdateTenantParams
		updated []string
	)
	fieldErrors := apperr.FieldErrors{}

	if input.Name != nil && allowed[policy.TenantFieldName] {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			fieldErrors.Add("name", "name cannot be empty")
		}
		params.Name = &name
		updated = append(updated, policy.TenantFieldName)
	}
	if input.Status != nil && allowed[policy.TenantFieldStatus] {
		if !tenantStatuses[*input.Status] {
			fieldErrors.Add("status", "status must be one of active, suspended, inactive")
		}
		params.Status = input.Status
		updated = append(updated, policy.TenantFieldStatus)
	}
	if input.SubscriptionPlan != nil && allowed[policy.TenantFieldSubscriptionPlan] {
		plan := strings.TrimSpace(*input.SubscriptionPlan)
		if plan == "" {
			fieldErrors.Add("subscriptionPlan", "subscriptionPlan cannot be empty")
		}
		params.SubscriptionPlan = &plan
		updated = append(updated, policy.TenantFieldSubscriptionPlan)
	}
	if input.MaxUsers != nil && allowed[policy.TenantFieldMaxUsers] {
		if *input.MaxUsers < 1 {
			fieldErrors.Add("maxUsers", "maxUsers must be at least 1")
		}
		params.MaxUsers = input.MaxUsers
		updated = append(updated, policy.TenantFieldMaxUsers)
	}
	if input.MaxProjects != nil && allowed[policy.TenantFieldMaxProjects] {
		if *input.MaxProjects < 0 {
			fieldErrors.Add("maxProjects", "maxProjects cannot be negative")
		}
		params.MaxProjects = input.MaxProjects
		updated = append(updated, policy.TenantFieldMaxProjects)
	}

	if len(fieldErrors) > 0 {
		return persistence.UpdateTenantParams{}, nil, apperr.Validation(fieldErrors)
	}
	if len(updated) == 0 {
		return persistence.UpdateTenantParams{}, nil, ErrNoUpdatableFields
	}

	return params, updated, nil
}

func mapTenant(record persistence.Tenant) Tenant {
	return Tenant{
		ID:               record.ID,
		Name:             record.Name,
		Subdomain:        record.Subdomain,
		Status:           record.Status,
		SubscriptionPlan: record.SubscriptionPlan,
		MaxUsers:         record.MaxUsers,
		MaxProjects:      record.MaxProjects,
		CreatedAt:        record.CreatedAt,
		UpdatedAt:        record.UpdatedAt,
	}
}

func mapPersistenceError(err error) error {
	switch {
	case errors.Is(err, persistence.ErrTenantNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrTenantConflict):
		return ErrSubdomainTaken
	case errors.Is(err, persistence.ErrUserConflict):
		return ErrAdminEmailTaken
	default:
		return err
	}
}

package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-taskhub/domains/users/be/repo"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/apperr"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/audit"
	platformauth "github.com/zenGate-Global/palmyra-taskhub/platform/go/auth"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/policy"
)

const defaultListLimit = 50

// Domain sentinel errors.
var (
	ErrNotFound          = apperr.NotFound("User not found")
	ErrTenantNotFound    = apperr.NotFound("Tenant not found")
	ErrConflict          = apperr.Conflict("Email already exists in this tenant")
	ErrUserLimit         = apperr.QuotaExceeded("Subscription limit reached")
	ErrCannotDeleteSelf  = apperr.Forbidden("Cannot delete self")
	ErrNoUpdatableFields = apperr.ValidationField("payload", "No valid fields to update")
)

// PasswordHasher hashes new credentials.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// User represents the domain view of a user record. The password hash never leaves the service.
type User struct {
	ID        uuid.UUID
	TenantID  *uuid.UUID
	Email     string
	FullName  string
	Role      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateInput represents the payload required to create a tenant user.
type CreateInput struct {
	Email    string
	Password string
	FullName string
	Role     string
}

// ListOptions controls filtering and pagination.
type ListOptions struct {
	Search *string
	Role   *string
	Page   int
	Limit  int
}

// ListResult wraps a page of users with the total match count.
type ListResult struct {
	Users []User
	Total int
}

// UpdateInput carries optional user fields; nil fields are left unchanged.
type UpdateInput struct {
	FullName *string
	Role     *string
	IsActive *bool
}

// Service defines the business operations for the users domain.
type Service interface {
	Create(ctx context.Context, actor policy.Actor, tenantID uuid.UUID, input CreateInput) (User, error)
	List(ctx context.Context, actor policy.Actor, tenantID uuid.UUID, opts ListOptions) (ListResult, error)
	Update(ctx context.Context, actor policy.Actor, id uuid.UUID, input UpdateInput) (User, error)
	Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error
}

type service struct {
	repo   repo.Repository
	hasher PasswordHasher
	audit  audit.Recorder
}

// New constructs a users Service instance.
func New(r repo.Repository, hasher PasswordHasher, recorder audit.Recorder) Service {
	if r == nil {
		panic("users repository is required")
	}
	if hasher == nil {
		panic("password hasher is required")
	}
	if recorder == nil {
		panic("audit recorder is required")
	}
	return &service{repo: r, hasher: hasher, audit: recorder}
}

func (s *service) Create(ctx context.Context, actor policy.Actor, tenantID uuid.UUID, input CreateInput) (User, error) {
	if err := policy.Authorize(actor, policy.UserCreate, policy.Resource{TenantID: tenantID}); err != nil {
		return User{}, err
	}

	fieldErrors := apperr.FieldErrors{}

	email, err := platformauth.NormalizeEmail(input.Email)
	if err != nil {
		fieldErrors.Add("email", err.Error())
	}
	if err := platformauth.ValidatePassword(input.Password); err != nil {
		fieldErrors.Add("password", err.Error())
	}
	fullName := strings.TrimSpace(input.FullName)
	if fullName == "" {
		fieldErrors.Add("fullName", "fullName is required")
	}
	role := platformauth.RoleUser
	if strings.TrimSpace(input.Role) != "" {
		role = platformauth.Role(strings.TrimSpace(input.Role))
		if !role.Valid() {
			fieldErrors.Add("role", "role must be one of user, tenant_admin")
		}
	}

	if len(fieldErrors) > 0 {
		return User{}, apperr.Validation(fieldErrors)
	}

	if err := policy.CanAssignRole(actor, role); err != nil {
		return User{}, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return User{}, apperr.Wrap(apperr.CodeInternal, "hash password", err)
	}

	record, err := s.repo.Create(ctx, persistence.CreateUserParams{
		ID:           uuid.New(),
		TenantID:     &tenantID,
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		Role:         string(role),
	})
	if err != nil {
		return User{}, mapPersistenceError(err)
	}

	s.audit.Record(ctx, audit.NewEntry(ctx, tenantID, audit.ActionUserCreated, audit.EntityUser, record.ID).
		WithMetadata("email", record.Email).
		WithMetadata("role", record.Role))

	return mapUser(record), nil
}

func (s *service) List(ctx context.Context, actor policy.Actor, tenantID uuid.UUID, opts ListOptions) (ListResult, error) {
	if err := policy.Authorize(actor, policy.UserList, policy.Resource{TenantID: tenantID}); err != nil {
		return ListResult{}, err
	}

	result, err := s.repo.List(ctx, tenantID, persistence.ListUsersParams{
		Pagination: persistence.NewPagination(opts.Page, opts.Limit, defaultListLimit),
		Search:     opts.Search,
		Role:       opts.Role,
	})
	if err != nil {
		return ListResult{}, mapPersistenceError(err)
	}

	users := make([]User, 0, len(result.Users))
	for _, record := range result.Users {
		users = append(users, mapUser(record))
	}

	return ListResult{Users: users, Total: result.TotalItems}, nil
}

func (s *service) Update(ctx context.Context, actor policy.Actor, id uuid.UUID, input UpdateInput) (User, error) {
	target, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, mapPersistenceError(err)
	}

	tenantID := tenantOf(target)
	if err := policy.Authorize(actor, policy.UserUpdate, policy.Resource{TenantID: tenantID, SubjectID: &target.ID}); err != nil {
		return User{}, err
	}

	var (
		params  persistence.UpdateUserParams
		updated []string
	)
	fieldErrors := apperr.FieldErrors{}

	if input.FullName != nil {
		fullName := strings.TrimSpace(*input.FullName)
		if fullName == "" {
			fieldErrors.Add("fullName", "fullName cannot be empty")
		}
		params.FullName = &fullName
		updated = append(updated, policy.UserFieldFullName)
	}
	if input.Role != nil {
		if !platformauth.Role(*input.Role).Valid() {
			fieldErrors.Add("role", "role must be one of user, tenant_admin")
		}
		params.Role = input.Role
		updated = append(updated, policy.UserFieldRole)
	}
	if input.IsActive != nil {
		params.IsActive = input.IsActive
		updated = append(updated, policy.UserFieldIsActive)
	}

	if len(updated) == 0 {
		return User{}, ErrNoUpdatableFields
	}
	if err := policy.CheckUserUpdate(actor, updated); err != nil {
		return User{}, err
	}
	if len(fieldErrors) > 0 {
		return User{}, apperr.Validation(fieldErrors)
	}
	if params.Role != nil {
		if err := policy.CanAssignRole(actor, platformauth.Role(*params.Role)); err != nil {
			return User{}, err
		}
	}

	record, err := s.repo.Update(ctx, id, params)
	if err != nil {
		return User{}, mapPersistenceError(err)
	}

	s.audit.Record(ctx, audit.NewEntry(ctx, tenantID, audit.ActionUserUpdated, audit.EntityUser, id).
		WithMetadata("updatedFields", updated))

	return mapUser(record), nil
}

func (s *service) Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error {
	if actor.UserID == id {
		return ErrCannotDeleteSelf
	}

	target, err := s.repo.Get(ctx, id)
	if err != nil {
		return mapPersistenceError(err)
	}

	tenantID := tenantOf(target)
	if err := policy.Authorize(actor, policy.UserDelete, policy.Resource{TenantID: tenantID, SubjectID: &target.ID}); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return mapPersistenceError(err)
	}

	s.audit.Record(ctx, audit.NewEntry(ctx, tenantID, audit.ActionUserDeleted, audit.EntityUser, id).
		WithMetadata("email", target.Email))

	return nil
}

// tenantOf returns uuid.Nil for super admins, which never matches an actor's tenant.
func tenantOf(u persistence.User) uuid.UUID {
	if u.TenantID == nil {
		return uuid.Nil
	}
	return *u.TenantID
}

func mapUser(record persistence.User) User {
	return User{
		ID:        record.ID,
		TenantID:  record.TenantID,
		Email:     record.Email,
		FullName:  record.FullName,
		Role:      record.Role,
		IsActive:  record.IsActive,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}

func mapPersistenceError(err error) error {
	switch {
	case errors.Is(err, persistence.ErrUserNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrUserConflict):
		return ErrConflict
	case errors.Is(err, persistence.ErrQuotaExceeded):
		return ErrUserLimit
	case errors.Is(err, persistence.ErrTenantNotFound):
		return ErrTenantNotFound
	default:
		return err
	}
}

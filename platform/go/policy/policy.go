// Package policy centralizes authorization decisions for every tenant-scoped operation.
//
// Handlers gate on authentication and coarse roles; services call Authorize with the loaded
// resource so tenant isolation and ownership are checked in exactly one place.
package policy

import (
	"context"

	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-taskhub/platform/go/apperr"
	platformauth "github.com/zenGate-Global/palmyra-taskhub/platform/go/auth"
)

// Action names an operation subject to authorization.
type Action string

const (
	TenantRead     Action = "tenant:read"
	TenantUpdate   Action = "tenant:update"
	TenantList     Action = "tenant:list"
	UserCreate     Action = "user:create"
	UserList       Action = "user:list"
	UserUpdate     Action = "user:update"
	UserDelete     Action = "user:delete"
	ProjectCreate  Action = "project:create"
	ProjectRead    Action = "project:read"
	ProjectUpdate  Action = "project:update"
	ProjectDelete  Action = "project:delete"
	ProjectListAll Action = "project:list_all"
	TaskCreate     Action = "task:create"
	TaskRead       Action = "task:read"
	TaskUpdate     Action = "task:update"
	TaskDelete     Action = "task:delete"
	TaskListAll    Action = "task:list_all"
)

var (
	ErrForbidden         = apperr.Forbidden("Forbidden")
	ErrTenantMismatch    = apperr.Forbidden("Access denied to this tenant")
	ErrTenantRequired    = apperr.Forbidden("Tenant context required")
	ErrAdminRequired     = apperr.Forbidden("Tenant admin role required")
	ErrSuperAdminOnly    = apperr.Forbidden("Super admin role required")
	ErrNotOwner          = apperr.Forbidden("Only the project creator or a tenant admin may modify this project")
	ErrRoleChange        = apperr.Forbidden("Only a tenant admin may change role or active status")
	ErrRoleNotAssignable = apperr.Forbidden("Role cannot be assigned")
)

// Actor is the authenticated caller.
type Actor struct {
	UserID   uuid.UUID
	TenantID *uuid.UUID
	Role     platformauth.Role
}

// ActorFromCredentials converts request credentials into an Actor.
func ActorFromCredentials(creds *platformauth.UserCredentials) Actor {
	if creds == nil {
		return Actor{}
	}
	return Actor{UserID: creds.UserID, TenantID: creds.TenantID, Role: creds.Role}
}

// ActorFromContext returns the authenticated actor stored on ctx by the auth middleware.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	creds, ok := platformauth.UserFromContext(ctx)
	if !ok {
		return Actor{}, false
	}
	return ActorFromCredentials(creds), true
}

// ErrUnauthenticated is returned by RequireActor when no credentials are present.
var ErrUnauthenticated = apperr.Unauthenticated("Missing token")

// RequireActor is ActorFromContext for handlers that sit behind authentication.
func RequireActor(ctx context.Context) (Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return Actor{}, ErrUnauthenticated
	}
	return actor, nil
}

func (a Actor) IsSuperAdmin() bool  { return a.Role == platformauth.RoleSuperAdmin }
func (a Actor) IsTenantAdmin() bool { return a.Role == platformauth.RoleTenantAdmin }

// InTenant reports whether the actor belongs to tenantID.
func (a Actor) InTenant(tenantID uuid.UUID) bool {
	return a.TenantID != nil && *a.TenantID == tenantID
}

// Resource describes the target of an action. OwnerID is the creator for projects;
// SubjectID is the target user for user operations.
type Resource struct {
	TenantID  uuid.UUID
	OwnerID   *uuid.UUID
	SubjectID *uuid.UUID
}

// Authorize returns nil when actor may perform action on resource, otherwise a Forbidden error.
func Authorize(actor Actor, action Action, resource Resource) error {
	switch action {
	case TenantList, ProjectListAll, TaskListAll:
		if actor.IsSuperAdmin() {
			return nil
		}
		return ErrSuperAdminOnly

	case TenantRead, UserList, ProjectRead, TaskRead:
		if actor.IsSuperAdmin() {
			return nil
		}
		return sameTenant(actor, resource)

	case TenantUpdate:
		if actor.IsSuperAdmin() {
			return nil
		}
		if err := sameTenant(actor, resource); err != nil {
			return err
		}
		if !actor.IsTenantAdmin() {
			return ErrAdminRequired
		}
		return nil

	case UserCreate, UserDelete:
		if err := sameTenant(actor, resource); err != nil {
			return err
		}
		if !actor.IsTenantAdmin() {
			return ErrAdminRequired
		}
		return nil

	case UserUpdate, ProjectCreate, TaskCreate, TaskUpdate, TaskDelete:
		return sameTenant(actor, resource)

	case ProjectUpdate, ProjectDelete:
		if err := sameTenant(actor, resource); err != nil {
			return err
		}
		if actor.IsTenantAdmin() {
			return nil
		}
		if resource.OwnerID != nil && *resource.OwnerID == actor.UserID {
			return nil
		}
		return ErrNotOwner

	default:
		return ErrForbidden
	}
}

func sameTenant(actor Actor, resource Resource) error {
	if actor.TenantID == nil {
		return ErrTenantRequired
	}
	if *actor.TenantID != resource.TenantID {
		return ErrTenantMismatch
	}
	return nil
}

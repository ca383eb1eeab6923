// Package audit records append-only entries describing committed mutations.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-taskhub/platform/go/requesttrace"
)

// Action names stored in audit_logs.action.
const (
	ActionTenantRegistered  = "TENANT_REGISTERED"
	ActionTenantUpdated     = "TENANT_UPDATED"
	ActionUserCreated       = "USER_CREATED"
	ActionUserUpdated       = "USER_UPDATED"
	ActionUserDeleted       = "USER_DELETED"
	ActionProjectCreated    = "PROJECT_CREATED"
	ActionProjectUpdated    = "PROJECT_UPDATED"
	ActionProjectDeleted    = "PROJECT_DELETED"
	ActionTaskCreated       = "TASK_CREATED"
	ActionTaskUpdated       = "TASK_UPDATED"
	ActionTaskStatusUpdated = "TASK_STATUS_UPDATED"
	ActionTaskDeleted       = "TASK_DELETED"
)

// Entity types stored in audit_logs.entity_type.
const (
	EntityTenant  = "tenant"
	EntityUser    = "user"
	EntityProject = "project"
	EntityTask    = "task"
)

// Entry is one audit record. ID and CreatedAt are assigned when persisted.
type Entry struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	UserID     *uuid.UUID
	Action     string
	EntityType string
	EntityID   uuid.UUID
	IPAddress  *string
	RequestID  string
	Metadata   map[string]any
	CreatedAt  time.Time
}

// Recorder accepts entries after the mutation they describe has committed.
// Implementations must never surface a failure to the caller.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

// Sink persists entries.
type Sink interface {
	Insert(ctx context.Context, entry Entry) error
}

// NewEntry builds an entry for the actor found on ctx.
func NewEntry(ctx context.Context, tenantID uuid.UUID, action, entityType string, entityID uuid.UUID) Entry {
	trace := requesttrace.FromContextOrAnonymous(ctx)

	entry := Entry{
		TenantID:   tenantID,
		UserID:     trace.UserID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		RequestID:  trace.RequestID,
	}
	if trace.IPAddress != "" {
		ip := trace.IPAddress
		entry.IPAddress = &ip
	}

	return entry
}

// WithMetadata returns a copy of e carrying the given key.
func (e Entry) WithMetadata(key string, value any) Entry {
	md := make(map[string]any, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		md[k] = v
	}
	md[key] = value
	e.Metadata = md
	return e
}

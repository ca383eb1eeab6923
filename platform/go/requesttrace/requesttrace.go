package requesttrace

import (
	"context"
	"errors"

	"github.com/google/uuid"

	platformauth "github.com/zenGate-Global/palmyra-taskhub/platform/go/auth"
)

type contextKey string

const (
	ctxAuditInfo contextKey = "TASKHUB_REQUEST_TRACE"
)

// ActorKind represents who initiated a request.
type ActorKind string

const (
	ActorKindUser      ActorKind = "user"
	ActorKindAnonymous ActorKind = "anonymous"
	ActorKindSystem    ActorKind = "system"
)

// AuditInfo captures request-scoped metadata stamped onto audit entries.
// UserID is set only when ActorKind is user; TenantID is nil for super admins and anonymous callers.
type AuditInfo struct {
	ActorKind ActorKind
	UserID    *uuid.UUID
	TenantID  *uuid.UUID
	Role      platformauth.Role
	RequestID string
	IPAddress string
}

// IntoContext stores the AuditInfo in the provided context.
func IntoContext(ctx context.Context, audit AuditInfo) context.Context {
	return context.WithValue(ctx, ctxAuditInfo, audit)
}

// FromContext extracts the AuditInfo from context, returning false when not present.
func FromContext(ctx context.Context) (AuditInfo, bool) {
	if ctx == nil {
		return AuditInfo{}, false
	}
	audit, ok := ctx.Value(ctxAuditInfo).(AuditInfo)
	return audit, ok
}

// FromContextOrAnonymous returns the AuditInfo stored on the context, or an anonymous record when absent.
func FromContextOrAnonymous(ctx context.Context) AuditInfo {
	if audit, ok := FromContext(ctx); ok {
		return audit
	}
	return Anonymous("", "")
}

// FromCredentials builds an AuditInfo from authenticated credentials.
func FromCredentials(creds *platformauth.UserCredentials, requestID, ip string) (AuditInfo, error) {
	if creds == nil {
		return AuditInfo{}, errors.New("credentials are required to build audit info")
	}
	if creds.UserID == uuid.Nil {
		return AuditInfo{}, errors.New("user id is required to build audit info")
	}

	userID := creds.UserID
	return AuditInfo{
		ActorKind: ActorKindUser,
		UserID:    &userID,
		TenantID:  creds.TenantID,
		Role:      creds.Role,
		RequestID: requestID,
		IPAddress: ip,
	}, nil
}

// Anonymous builds an AuditInfo for unauthenticated requests such as tenant registration and login.
func Anonymous(requestID, ip string) AuditInfo {
	return AuditInfo{ActorKind: ActorKindAnonymous, RequestID: requestID, IPAddress: ip}
}

// System builds an AuditInfo for CLI and other non-HTTP operations.
func System(requestID string) AuditInfo {
	return AuditInfo{ActorKind: ActorKindSystem, RequestID: requestID}
}

package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-taskhub/platform/go/httpapi"
)

type ctxKey string

const (
	ctxUserCredentials ctxKey = "TASKHUB_USER_CREDENTIALS"
)

// Role is the caller's authorization role.
type Role string

const (
	RoleSuperAdmin  Role = "super_admin"
	RoleTenantAdmin Role = "tenant_admin"
	RoleUser        Role = "user"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleTenantAdmin, RoleUser:
		return true
	default:
		return false
	}
}

// UserCredentials is the authenticated identity carried on the request context.
// TenantID is nil only for super admins.
type UserCredentials struct {
	UserID   uuid.UUID
	TenantID *uuid.UUID
	Role     Role
}

// WithCredentials stores creds on the context.
func WithCredentials(ctx context.Context, creds *UserCredentials) context.Context {
	return context.WithValue(ctx, ctxUserCredentials, creds)
}

func UserFromContext(ctx context.Context) (*UserCredentials, bool) {
	v := ctx.Value(ctxUserCredentials)
	if v == nil {
		return nil, false
	}
	u, ok := v.(*UserCredentials)
	return u, ok && u != nil
}

// VerifyFunc validates a bearer token and returns its identity claims.
type VerifyFunc func(ctx context.Context, token string) (Claims, error)

// JWT parses the bearer token, if any, and sets the context credentials.
// Requests without a token pass through; RequireAuthenticated rejects them where needed.
func JWT(verify VerifyFunc) func(http.Handler) http.Handler {
	if verify == nil {
		panic("auth.JWT: verify func must not be nil")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token, found := ExtractJWTToken(r)
			if token == "" || !found {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := verify(r.Context(), token)
			if err != nil {
				w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Bearer realm="api", error="invalid_token", error_description="%s"`, err.Error()))
				httpapi.Fail(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			creds := &UserCredentials{
				UserID:   claims.UserID,
				TenantID: claims.TenantID,
				Role:     claims.Role,
			}

			next.ServeHTTP(w, r.WithContext(WithCredentials(r.Context(), creds)))
		})
	}
}

// RequireAuthenticated rejects requests that reached it without credentials.
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
			httpapi.Fail(w, http.StatusUnauthorized, "Missing token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole gates a route group on the caller holding one of the given roles.
func RequireRole(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			creds, ok := UserFromContext(r.Context())
			if !ok {
				httpapi.Fail(w, http.StatusUnauthorized, "Missing token")
				return
			}

			for _, role := range roles {
				if creds.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			httpapi.Fail(w, http.StatusForbidden, "Forbidden")
		})
	}
}

package middleware

import (
	"net"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	platformauth "github.com/zenGate-Global/palmyra-taskhub/platform/go/auth"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/httpapi"
	platformlogging "github.com/zenGate-Global/palmyra-taskhub/platform/go/logging"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/requesttrace"
)

// RequestTrace populates the context with request-scoped AuditInfo so services can stamp audit entries.
// It must run after the JWT middleware so credentials are available when present.
func RequestTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := platformlogging.FromRequest(r, nil)
		requestID := middleware.GetReqID(r.Context())
		ip := clientIP(r)

		var audit requesttrace.AuditInfo
		if creds, ok := platformauth.UserFromContext(r.Context()); ok {
			var err error
			audit, err = requesttrace.FromCredentials(creds, requestID, ip)
			if err != nil {
				if logger != nil {
					logger.Error("build audit info from credentials", zap.Error(err))
				}
				httpapi.Fail(w, http.StatusUnauthorized, "Invalid token")
				return
			}
		} else {
			audit = requesttrace.Anonymous(requestID, ip)
		}

		ctx := requesttrace.IntoContext(r.Context(), audit)
		if logger != nil {
			fields := []zap.Field{zap.String("actor_kind", string(audit.ActorKind))}
			if audit.UserID != nil {
				fields = append(fields, zap.String("user_id", audit.UserID.String()))
			}
			if audit.TenantID != nil {
				fields = append(fields, zap.String("tenant_id", audit.TenantID.String()))
			}
			if audit.Role != "" {
				fields = append(fields, zap.String("role", string(audit.Role)))
			}
			ctx = platformlogging.WithLogger(ctx, logger.With(fields...))
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// clientIP strips the port from RemoteAddr. chi's RealIP has already applied forwarding headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

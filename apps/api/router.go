package main

import (
	"context"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	authhandler "github.com/zenGate-Global/palmyra-taskhub/domains/auth/be/handler"
	projectshandler "github.com/zenGate-Global/palmyra-taskhub/domains/projects/be/handler"
	taskshandler "github.com/zenGate-Global/palmyra-taskhub/domains/tasks/be/handler"
	tenantshandler "github.com/zenGate-Global/palmyra-taskhub/domains/tenants/be/handler"
	usershandler "github.com/zenGate-Global/palmyra-taskhub/domains/users/be/handler"
	platformauth "github.com/zenGate-Global/palmyra-taskhub/platform/go/auth"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/httpapi"
	platformlogging "github.com/zenGate-Global/palmyra-taskhub/platform/go/logging"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/metrics"
	platformmiddleware "github.com/zenGate-Global/palmyra-taskhub/platform/go/middleware"
)

type routerDeps struct {
	Logger         *zap.Logger
	Metrics        *metrics.Metrics
	Spec           *openapi3.T
	Verify         platformauth.VerifyFunc
	Ready          func(ctx context.Context) error
	CORSOrigins    []string
	RequestTimeout time.Duration

	Auth     *authhandler.Handler
	Tenants  *tenantshandler.Handler
	Users    *usershandler.Handler
	Projects *projectshandler.Handler
	Tasks    *taskshandler.Handler
}

func newRouter(deps routerDeps) http.Handler {
	root := chi.NewRouter()

	root.Use(
		chimw.RequestID,
		chimw.RealIP,
		platformlogging.RequestLogger(deps.Logger),
		chimw.Recoverer,
		deps.Metrics.Middleware,
		platformmiddleware.CORS(deps.CORSOrigins),
	)
	if deps.RequestTimeout > 0 {
		root.Use(chimw.Timeout(deps.RequestTimeout))
	}

	root.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	root.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if deps.Ready != nil {
			if err := deps.Ready(r.Context()); err != nil {
				platformlogging.FromRequest(r, deps.Logger).Warn("readiness check failed", zap.Error(err))
				httpapi.Fail(w, http.StatusServiceUnavailable, "database unavailable")
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	root.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

	registerDocsRoutes(root, deps.Spec, deps.Logger)

	validator := newSpecValidator(deps.Spec)

	api := chi.NewRouter()
	api.Use(platformauth.JWT(deps.Verify))
	api.Use(platformmiddleware.RequestTrace)

	api.Group(func(r chi.Router) {
		r.Use(validator)
		r.Post("/auth/register-tenant", deps.Tenants.Register)
		r.Post("/auth/login", deps.Auth.Login)
	})

	api.Group(func(r chi.Router) {
		r.Use(platformauth.RequireAuthenticated)
		r.Use(validator)

		r.Get("/auth/me", deps.Auth.Me)
		r.Post("/auth/logout", deps.Auth.Logout)

		r.Get("/tenants/{tenantId}", deps.Tenants.Get)
		r.Put("/tenants/{tenantId}", deps.Tenants.Update)
		r.Get("/tenants/{tenantId}/users", deps.Users.List)
		r.Put("/users/{userId}", deps.Users.Update)

		r.Post("/projects", deps.Projects.Create)
		r.Get("/projects", deps.Projects.List)
		r.Get("/projects/{projectId}", deps.Projects.Get)
		r.Put("/projects/{projectId}", deps.Projects.Update)
		r.Delete("/projects/{projectId}", deps.Projects.Delete)

		r.Post("/projects/{projectId}/tasks", deps.Tasks.Create)
		r.Get("/projects/{projectId}/tasks", deps.Tasks.List)
		r.Patch("/tasks/{taskId}/status", deps.Tasks.UpdateStatus)
		r.Put("/tasks/{taskId}", deps.Tasks.Update)
		r.Delete("/tasks/{taskId}", deps.Tasks.Delete)
	})

	api.Group(func(r chi.Router) {
		r.Use(platformauth.RequireRole(platformauth.RoleTenantAdmin))
		r.Use(validator)

		r.Post("/tenants/{tenantId}/users", deps.Users.Create)
		r.Delete("/users/{userId}", deps.Users.Delete)
	})

	api.Group(func(r chi.Router) {
		r.Use(platformauth.RequireRole(platformauth.RoleSuperAdmin))
		r.Use(validator)

		r.Get("/tenants", deps.Tenants.List)
		r.Get("/projects/all", deps.Projects.ListAll)
		r.Get("/tasks/all", deps.Tasks.ListAll)
	})

	root.Mount("/api/v1", api)

	return root
}

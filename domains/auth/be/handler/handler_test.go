package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/zenGate-Global/palmyra-taskhub/domains/auth/be/service"
	platformauth "github.com/zenGate-Global/palmyra-taskhub/platform/go/auth"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/policy"
)

type mockService struct {
	loginFn func(ctx context.Context, input service.LoginInput) (service.Session, error)
	meFn    func(ctx context.Context, actor policy.Actor) (service.Profile, error)
}

func (m *mockService) Login(ctx context.Context, input service.LoginInput) (service.Session, error) {
	if m.loginFn == nil {
		panic("loginFn not configured")
	}
	return m.loginFn(ctx, input)
}

func (m *mockService) Me(ctx context.Context, actor policy.Actor) (service.Profile, error) {
	if m.meFn == nil {
		panic("meFn not configured")
	}
	return m.meFn(ctx, actor)
}

type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Errors  map[string][]string `json:"errors"`
}

func newRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/auth/login", h.Login)
	r.Get("/auth/me", h.Me)
	r.Post("/auth/logout", h.Logout)
	return r
}

func serve(t *testing.T, router http.Handler, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func withCreds(req *http.Request, userID uuid.UUID, role platformauth.Role, tenantID *uuid.UUID) *http.Request {
	creds := &platformauth.UserCredentials{UserID: userID, TenantID: tenantID, Role: role}
	return req.WithContext(platformauth.WithCredentials(req.Context(), creds))
}

func TestHandlerLogin(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	svc := &mockService{
		loginFn: func(ctx context.Context, input service.LoginInput) (service.Session, error) {
			require.Equal(t, "ada@acme.test", input.Email)
			require.Equal(t, "acme", input.TenantSubdomain)
			return service.Session{
				User:      service.User{ID: uuid.New(), TenantID: &tenantID, Email: input.Email, FullName: "Ada", Role: "tenant_admin"},
				Token:     "signed",
				ExpiresIn: 86400,
			}, nil
		},
	}
	router := newRouter(New(svc, zaptest.NewLogger(t)))

	body := `{"email":"ada@acme.test","password":"password123","tenantSubdomain":"acme"}`
	rec, env := serve(t, router, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Login successful", env.Message)

	var data loginResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Equal(t, "signed", data.Token)
	require.Equal(t, 86400, data.ExpiresIn)
	require.Equal(t, tenantID, *data.User.TenantID)
}

func TestHandlerLoginErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"bad credentials", service.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
		{"suspended", service.ErrAccountSuspended, http.StatusForbidden, "Account suspended"},
		{"tenant inactive", service.ErrTenantInactive, http.StatusForbidden, "Tenant inactive or suspended"},
		{"subdomain required", service.ErrSubdomainRequired, http.StatusBadRequest, "Tenant subdomain required"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockService{
				loginFn: func(ctx context.Context, input service.LoginInput) (service.Session, error) {
					return service.Session{}, tc.err
				},
			}
			router := newRouter(New(svc, zaptest.NewLogger(t)))

			rec, env := serve(t, router, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"a@b.test","password":"x"}`)))
			require.Equal(t, tc.status, rec.Code)
			require.False(t, env.Success)
			require.Equal(t, tc.msg, env.Message)
		})
	}
}

func TestHandlerMe(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	tenantID := uuid.New()
	svc := &mockService{
		meFn: func(ctx context.Context, actor policy.Actor) (service.Profile, error) {
			require.Equal(t, userID, actor.UserID)
			return service.Profile{
				User:   service.User{ID: userID, TenantID: &tenantID, Email: "ada@acme.test", Role: "user"},
				Tenant: &service.Tenant{ID: tenantID, Name: "Acme", Subdomain: "acme", SubscriptionPlan: "free", MaxUsers: 5, MaxProjects: 3},
			}, nil
		},
	}
	router := newRouter(New(svc, zaptest.NewLogger(t)))

	req := withCreds(httptest.NewRequest(http.MethodGet, "/auth/me", nil), userID, platformauth.RoleUser, &tenantID)
	rec, env := serve(t, router, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var data meResponse
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Equal(t, userID, data.ID)
	require.NotNil(t, data.Tenant)
	require.Equal(t, "acme", data.Tenant.Subdomain)
}

func TestHandlerMeWithoutCredentials(t *testing.T) {
	t.Parallel()

	router := newRouter(New(&mockService{}, zaptest.NewLogger(t)))
	rec, env := serve(t, router, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Missing token", env.Message)
}

func TestHandlerLogout(t *testing.T) {
	t.Parallel()

	router := newRouter(New(&mockService{}, zaptest.NewLogger(t)))
	req := withCreds(httptest.NewRequest(http.MethodPost, "/auth/logout", nil), uuid.New(), platformauth.RoleSuperAdmin, nil)
	rec, env := serve(t, router, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)
	require.Equal(t, "Logged out successfully", env.Message)
}

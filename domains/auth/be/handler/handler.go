package handler

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-taskhub/domains/auth/be/service"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/httpapi"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/policy"
)

const (
	opLogin  = "auth.login"
	opMe     = "auth.me"
	opLogout = "auth.logout"
)

// Handler exposes the auth service over HTTP.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("auth service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

type loginRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	TenantSubdomain string `json:"tenantSubdomain"`
}

type userResponse struct {
	ID       uuid.UUID  `json:"id"`
	TenantID *uuid.UUID `json:"tenantId,omitempty"`
	Email    string     `json:"email"`
	FullName string     `json:"fullName"`
	Role     string     `json:"role"`
}

type loginResponse struct {
	User      userResponse `json:"user"`
	Token     string       `json:"token"`
	ExpiresIn int          `json:"expiresIn"`
}

type tenantResponse struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Subdomain        string    `json:"subdomain"`
	SubscriptionPlan string    `json:"subscriptionPlan"`
	MaxUsers         int       `json:"maxUsers"`
	MaxProjects      int       `json:"maxProjects"`
}

type meResponse struct {
	userResponse
	Tenant *tenantResponse `json:"tenant,omitempty"`
}

// Login implements POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if err := httpapi.Decode(r, &body); err != nil {
		httpapi.WriteError(w, r, h.logger, opLogin, err)
		return
	}

	session, err := h.svc.Login(r.Context(), service.LoginInput{
		Email:           body.Email,
		Password:        body.Password,
		TenantSubdomain: body.TenantSubdomain,
	})
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opLogin, err)
		return
	}

	httpapi.JSON(w, http.StatusOK, loginResponse{
		User:      toUserResponse(session.User),
		Token:     session.Token,
		ExpiresIn: session.ExpiresIn,
	}, "Login successful")
}

// Me implements GET /auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	actor, err := policy.RequireActor(r.Context())
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opMe, err)
		return
	}

	profile, err := h.svc.Me(r.Context(), actor)
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opMe, err)
		return
	}

	resp := meResponse{userResponse: toUserResponse(profile.User)}
	if t := profile.Tenant; t != nil {
		resp.Tenant = &tenantResponse{
			ID:               t.ID,
			Name:             t.Name,
			Subdomain:        t.Subdomain,
			SubscriptionPlan: t.SubscriptionPlan,
			MaxUsers:         t.MaxUsers,
			MaxProjects:      t.MaxProjects,
		}
	}
	httpapi.OK(w, resp)
}

// Logout implements POST /auth/logout. Tokens are stateless; clients discard theirs.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if _, err := policy.RequireActor(r.Context()); err != nil {
		httpapi.WriteError(w, r, h.logger, opLogout, err)
		return
	}
	httpapi.JSON(w, http.StatusOK, nil, "Logged out successfully")
}

func toUserResponse(u service.User) userResponse {
	return userResponse{ID: u.ID, TenantID: u.TenantID, Email: u.Email, FullName: u.FullName, Role: u.Role}
}

package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-taskhub/domains/tenants/be/service"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/httpapi"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/policy"
)

const (
	opRegister = "tenants.register"
	opGet      = "tenants.get"
	opUpdate   = "tenants.update"
	opList     = "tenants.list"
)

// Handler exposes the tenants service over HTTP.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("tenants service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

type registerRequest struct {
	TenantName    string `json:"tenantName"`
	Subdomain     string `json:"subdomain"`
	AdminEmail    string `json:"adminEmail"`
	AdminPassword string `json:"adminPassword"`
	AdminFullName string `json:"adminFullName"`
}

type updateRequest struct {
	Name             *string `json:"name"`
	Status           *string `json:"status"`
	SubscriptionPlan *string `json:"subscriptionPlan"`
	MaxUsers         *int    `json:"maxUsers"`
	MaxProjects      *int    `json:"maxProjects"`
}

type adminUserResponse struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	FullName string    `json:"fullName"`
	Role     string    `json:"role"`
}

type registerResponse struct {
	TenantID  uuid.UUID         `json:"tenantId"`
	Subdomain string            `json:"subdomain"`
	AdminUser adminUserResponse `json:"adminUser"`
}

type tenantResponse struct {
	ID               uuid.UUID `json:"id"`
	Name             string    `json:"name"`
	Subdomain        string    `json:"subdomain"`
	Status           string    `json:"status"`
	SubscriptionPlan string    `json:"subscriptionPlan"`
	MaxUsers         int       `json:"maxUsers"`
	MaxProjects      int       `json:"maxProjects"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

type statsResponse struct {
	TotalUsers    int `json:"totalUsers"`
	TotalProjects int `json:"totalProjects"`
	TotalTasks    int `json:"totalTasks"`
}

type tenantDetailsResponse struct {
	tenantResponse
	Stats statsResponse `json:"stats"`
}

type tenantSummaryResponse struct {
	tenantResponse
	TotalUsers    int `json:"totalUsers"`
	TotalProjects int `json:"totalProjects"`
}

type paginationResponse struct {
	CurrentPage  int `json:"currentPage"`
	TotalPages   int `json:"totalPages"`
	TotalTenants int `json:"totalTenants"`
	Limit        int `json:"limit"`
}

type listResponse struct {
	Tenants    []tenantSummaryResponse `json:"tenants"`
	Pagination paginationResponse      `json:"pagination"`
}

// Register implements POST /auth/register-tenant.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	if err := httpapi.Decode(r, &body); err != nil {
		httpapi.WriteError(w, r, h.logger, opRegister, err)
		return
	}

	reg, err := h.svc.Register(r.Context(), service.RegisterInput{
		TenantName:    body.TenantName,
		Subdomain:     body.Subdomain,
		AdminEmail:    body.AdminEmail,
		AdminPassword: body.AdminPassword,
		AdminFullName: body.AdminFullName,
	})
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opRegister, err)
		return
	}

	httpapi.Created(w, registerResponse{
		TenantID:  reg.TenantID,
		Subdomain: reg.Subdomain,
		AdminUser: adminUserResponse{
			ID:       reg.AdminUser.ID,
			Email:    reg.AdminUser.Email,
			FullName: reg.AdminUser.FullName,
			Role:     reg.AdminUser.Role,
		},
	}, "Tenant registered successfully")
}

// Get implements GET /tenants/{tenantId}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor, err := policy.RequireActor(r.Context())
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opGet, err)
		return
	}

	id, err := httpapi.UUIDParam(r, "tenantId", service.ErrNotFound)
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opGet, err)
		return
	}

	details, err := h.svc.Get(r.Context(), actor, id)
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opGet, err)
		return
	}

	httpapi.OK(w, tenantDetailsResponse{
		tenantResponse: toTenantResponse(details.Tenant),
		Stats: statsResponse{
			TotalUsers:    details.Stats.TotalUsers,
			TotalProjects: details.Stats.TotalProjects,
			TotalTasks:    details.Stats.TotalTasks,
		},
	})
}

// Update implements PUT /tenants/{tenantId}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, err := policy.RequireActor(r.Context())
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opUpdate, err)
		return
	}

	id, err := httpapi.UUIDParam(r, "tenantId", service.ErrNotFound)
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opUpdate, err)
		return
	}

	var body updateRequest
	if err := httpapi.Decode(r, &body); err != nil {
		httpapi.WriteError(w, r, h.logger, opUpdate, err)
		return
	}

	tenant, err := h.svc.Update(r.Context(), actor, id, service.UpdateInput{
		Name:             body.Name,
		Status:           body.Status,
		SubscriptionPlan: body.SubscriptionPlan,
		MaxUsers:         body.MaxUsers,
		MaxProjects:      body.MaxProjects,
	})
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opUpdate, err)
		return
	}

	httpapi.JSON(w, http.StatusOK, toTenantResponse(tenant), "Tenant updated successfully")
}

// List implements GET /tenants.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, err := policy.RequireActor(r.Context())
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opList, err)
		return
	}

	result, err := h.svc.List(r.Context(), actor, service.ListOptions{
		Page:  httpapi.QueryInt(r, "page"),
		Limit: httpapi.QueryInt(r, "limit"),
	})
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opList, err)
		return
	}

	tenants := make([]tenantSummaryResponse, 0, len(result.Tenants))
	for _, t := range result.Tenants {
		tenants = append(tenants, tenantSummaryResponse{
			tenantResponse: toTenantResponse(t.Tenant),
			TotalUsers:     t.TotalUsers,
			TotalProjects:  t.TotalProjects,
		})
	}

	httpapi.OK(w, listResponse{
		Tenants: tenants,
		Pagination: paginationResponse{
			CurrentPage:  result.Page.CurrentPage,
			TotalPages:   result.Page.TotalPages,
			TotalTenants: result.TotalItems,
			Limit:        result.Page.Limit,
		},
	})
}

func toTenantResponse(t service.Tenant) tenantResponse {
	return tenantResponse{
		ID:               t.ID,
		Name:             t.Name,
		Subdomain:        t.Subdomain,
		Status:           t.Status,
		SubscriptionPlan: t.SubscriptionPlan,
		MaxUsers:         t.MaxUsers,
		MaxProjects:      t.MaxProjects,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}

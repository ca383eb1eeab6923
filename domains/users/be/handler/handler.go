package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-taskhub/domains/users/be/service"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/httpapi"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/policy"
)

const (
	opCreate = "users.create"
	opList   = "users.list"
	opUpdate = "users.update"
	opDelete = "users.delete"
)

// Handler exposes the users service over HTTP.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("users service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

type createRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
}

type updateRequest struct {
	FullName *string `json:"fullName"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"isActive"`
}

type userResponse struct {
	ID        uuid.UUID  `json:"id"`
	TenantID  *uuid.UUID `json:"tenantId,omitempty"`
	Email     string     `json:"email"`
	FullName  string     `json:"fullName"`
	Role      string     `json:"role"`
	IsActive  bool       `json:"isActive"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type listResponse struct {
	Users []userResponse `json:"users"`
	Total int            `json:"total"`
}

// Create implements POST /tenants/{tenantId}/users.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := policy.RequireActor(r.Context())
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opCreate, err)
		return
	}

	tenantID, err := httpapi.UUIDParam(r, "tenantId", service.ErrTenantNotFound)
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opCreate, err)
		return
	}

	var body createRequest
	if err := httpapi.Decode(r, &body); err != nil {
		httpapi.WriteError(w, r, h.logger, opCreate, err)
		return
	}

	user, err := h.svc.Create(r.Context(), actor, tenantID, service.CreateInput{
		Email:    body.Email,
		Password: body.Password,
		FullName: body.FullName,
		Role:     body.Role,
	})
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opCreate, err)
		return
	}

	httpapi.Created(w, toUserResponse(user), "User created successfully")
}

// List implements GET /tenants/{tenantId}/users.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, err := policy.RequireActor(r.Context())
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opList, err)
		return
	}

	tenantID, err := httpapi.UUIDParam(r, "tenantId", service.ErrTenantNotFound)
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opList, err)
		return
	}

	result, err := h.svc.List(r.Context(), actor, tenantID, service.ListOptions{
		Search: httpapi.QueryString(r, "search"),
		Role:   httpapi.QueryString(r, "role"),
		Page:   httpapi.QueryInt(r, "page"),
		Limit:  httpapi.QueryInt(r, "limit"),
	})
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opList, err)
		return
	}

	users := make([]userResponse, 0, len(result.Users))
	for _, u := range result.Users {
		users = append(users, toUserResponse(u))
	}

	httpapi.OK(w, listResponse{Users: users, Total: result.Total})
}

// Update implements PUT /users/{userId}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, err := policy.RequireActor(r.Context())
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opUpdate, err)
		return
	}

	id, err := httpapi.UUIDParam(r, "userId", service.ErrNotFound)
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opUpdate, err)
		return
	}

	var body updateRequest
	if err := httpapi.Decode(r, &body); err != nil {
		httpapi.WriteError(w, r, h.logger, opUpdate, err)
		return
	}

	user, err := h.svc.Update(r.Context(), actor, id, service.UpdateInput{
		FullName: body.FullName,
		Role:     body.Role,
		IsActive: body.IsActive,
	})
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opUpdate, err)
		return
	}

	httpapi.JSON(w, http.StatusOK, toUserResponse(user), "User updated successfully")
}

// Delete implements DELETE /users/{userId}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, err := policy.RequireActor(r.Context())
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opDelete, err)
		return
	}

	id, err := httpapi.UUIDParam(r, "userId", service.ErrNotFound)
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opDelete, err)
		return
	}

	if err := h.svc.Delete(r.Context(), actor, id); err != nil {
		httpapi.WriteError(w, r, h.logger, opDelete, err)
		return
	}

	httpapi.JSON(w, http.StatusOK, nil, "User deleted successfully")
}

func toUserResponse(u service.User) userResponse {
	return userResponse{
		ID:        u.ID,
		TenantID:  u.TenantID,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

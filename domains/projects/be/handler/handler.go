package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-taskhub/domains/projects/be/service"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/httpapi"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/optional"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/policy"
)

const (
	opCreate  = "projects.create"
	opList    = "projects.list"
	opGet     = "projects.get"
	opUpdate  = "projects.update"
	opDelete  = "projects.delete"
	opListAll = "projects.list_all"
)

// Handler exposes the projects service over HTTP.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("projects service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

type createRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Status      string  `json:"status"`
}

type updateRequest struct {
	Name        *string                `json:"name"`
	Description optional.Value[string] `json:"description"`
	Status      *string                `json:"status"`
}

type creatorResponse struct {
	ID       uuid.UUID `json:"id"`
	FullName *string   `json:"fullName"`
}

type projectResponse struct {
	ID          uuid.UUID        `json:"id"`
	TenantID    uuid.UUID        `json:"tenantId"`
	Name        string           `json:"name"`
	Description *string          `json:"description"`
	Status      string           `json:"status"`
	CreatedBy   *creatorResponse `json:"createdBy"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

type summaryResponse struct {
	projectResponse
	TaskCount          int `json:"taskCount"`
	CompletedTaskCount int `json:"completedTaskCount"`
}

type paginationResponse struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	Limit       int `json:"limit"`
}

type listResponse struct {
	Projects   []summaryResponse  `json:"projects"`
	Total      int                `json:"total"`
	Pagination paginationResponse `json:"pagination"`
}

type listAllResponse struct {
	Projects []summaryResponse `json:"projects"`
	Total    int               `json:"total"`
}

// Create implements POST /projects.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := policy.RequireActor(r.Context())
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opCreate, err)
		return
	}

	var body createRequest
	if err := httpapi.Decode(r, &body); err != nil {
		httpapi.WriteError(w, r, h.logger, opCreate, err)
		return
	}

	project, err := h.svc.Create(r.Context(), actor, service.CreateInput{
		Name:        body.Name,
		Description: body.Description,
		Status:      body.Status,
	})
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opCreate, err)
		return
	}

	httpapi.Created(w, toProjectResponse(project, nil), "Project created successfully")
}

// List implements GET /projects.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, err := policy.RequireActor(r.Context())
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opList, err)
		return
	}

	result, err := h.svc.List(r.Context(), actor, service.ListOptions{
		Status: httpapi.QueryString(r, "status"),
		Search: httpapi.QueryString(r, "search"),
		Page:   httpapi.QueryInt(r, "page"),
		Limit:  httpapi.QueryInt(r, "limit"),
	})
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opList, err)
		return
	}

	httpapi.OK(w, listResponse{
		Projects: toSummaryResponses(result.Projects),
		Total:    result.Total,
		Pagination: paginationResponse{
			CurrentPage: result.Page.CurrentPage,
			TotalPages:  result.Page.TotalPages,
			Limit:       result.Page.Limit,
		},
	})
}

// ListAll implements GET /projects/all.
func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	actor, err := policy.RequireActor(r.Context())
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opListAll, err)
		return
	}

	projects, err := h.svc.ListAll(r.Context(), actor)
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opListAll, err)
		return
	}

	httpapi.OK(w, listAllResponse{Projects: toSummaryResponses(projects), Total: len(projects)})
}

// Get implements GET /projects/{projectId}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor, err := policy.RequireActor(r.Context())
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opGet, err)
		return
	}

	id, err := httpapi.UUIDParam(r, "projectId", service.ErrNotFound)
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opGet, err)
		return
	}

	summary, err := h.svc.Get(r.Context(), actor, id)
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opGet, err)
		return
	}

	httpapi.OK(w, toSummaryResponse(summary))
}

// Update implements PUT /projects/{projectId}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, err := policy.RequireActor(r.Context())
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opUpdate, err)
		return
	}

	id, err := httpapi.UUIDParam(r, "projectId", service.ErrNotFound)
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opUpdate, err)
		return
	}

	var body updateRequest
	if err := httpapi.Decode(r, &body); err != nil {
		httpapi.WriteError(w, r, h.logger, opUpdate, err)
		return
	}

	project, err := h.svc.Update(r.Context(), actor, id, service.UpdateInput{
		Name:        body.Name,
		Description: body.Description,
		Status:      body.Status,
	})
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opUpdate, err)
		return
	}

	httpapi.JSON(w, http.StatusOK, toProjectResponse(project, nil), "Project updated successfully")
}

// Delete implements DELETE /projects/{projectId}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, err := policy.RequireActor(r.Context())
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opDelete, err)
		return
	}

	id, err := httpapi.UUIDParam(r, "projectId", service.ErrNotFound)
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opDelete, err)
		return
	}

	if err := h.svc.Delete(r.Context(), actor, id); err != nil {
		httpapi.WriteError(w, r, h.logger, opDelete, err)
		return
	}

	httpapi.JSON(w, http.StatusOK, nil, "Project deleted successfully")
}

func toProjectResponse(p service.Project, creatorName *string) projectResponse {
	resp := projectResponse{
		ID:          p.ID,
		TenantID:    p.TenantID,
		Name:        p.Name,
		Description: p.Description,
		Status:      p.Status,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.CreatedBy != nil {
		resp.CreatedBy = &creatorResponse{ID: *p.CreatedBy, FullName: creatorName}
	}
	return resp
}

func toSummaryResponse(s service.Summary) summaryResponse {
	return summaryResponse{
		projectResponse:    toProjectResponse(s.Project, s.CreatorName),
		TaskCount:          s.TaskCount,
		CompletedTaskCount: s.CompletedTaskCount,
	}
}

func toSummaryResponses(summaries []service.Summary) []summaryResponse {
	out := make([]summaryResponse, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, toSummaryResponse(s))
	}
	return out
}

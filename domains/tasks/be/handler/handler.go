package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-taskhub/domains/tasks/be/service"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/apperr"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/httpapi"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/optional"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/policy"
)

const (
	opCreate       = "tasks.create"
	opList         = "tasks.list"
	opUpdateStatus = "tasks.update_status"
	opUpdate       = "tasks.update"
	opDelete       = "tasks.delete"
	opListAll      = "tasks.list_all"
)

// Handler exposes the tasks service over HTTP.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("tasks service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

type createRequest struct {
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	AssignedTo  *uuid.UUID `json:"assignedTo"`
	Priority    string     `json:"priority"`
	DueDate     *string    `json:"dueDate"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type updateRequest struct {
	Title       *string                   `json:"title"`
	Description optional.Value[string]    `json:"description"`
	Status      *string                   `json:"status"`
	Priority    *string                   `json:"priority"`
	AssignedTo  optional.Value[uuid.UUID] `json:"assignedTo"`
	DueDate     optional.Value[string]    `json:"dueDate"`
}

type taskResponse struct {
	ID          uuid.UUID  `json:"id"`
	ProjectID   uuid.UUID  `json:"projectId"`
	TenantID    uuid.UUID  `json:"tenantId"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	AssignedTo  *uuid.UUID `json:"assignedTo"`
	DueDate     *string    `json:"dueDate"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type assigneeResponse struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"fullName"`
	Email    string    `json:"email"`
}

type projectRefResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type summaryResponse struct {
	taskResponse
	AssignedTo *assigneeResponse   `json:"assignedTo"`
	Project    *projectRefResponse `json:"project,omitempty"`
}

type paginationResponse struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	Limit       int `json:"limit"`
}

type listResponse struct {
	Tasks      []summaryResponse  `json:"tasks"`
	Total      int                `json:"total"`
	Pagination paginationResponse `json:"pagination"`
}

type listAllResponse struct {
	Tasks []summaryResponse `json:"tasks"`
	Total int               `json:"total"`
}

// Create implements POST /projects/{projectId}/tasks.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := policy.RequireActor(r.Context())
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opCreate, err)
		return
	}

	projectID, err := httpapi.UUIDParam(r, "projectId", service.ErrProjectNotFound)
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opCreate, err)
		return
	}

	var body createRequest
	if err := httpapi.Decode(r, &body); err != nil {
		httpapi.WriteError(w, r, h.logger, opCreate, err)
		return
	}

	task, err := h.svc.Create(r.Context(), actor, projectID, service.CreateInput{
		Title:       body.Title,
		Description: body.Description,
		AssignedTo:  body.AssignedTo,
		Priority:    body.Priority,
		DueDate:     body.DueDate,
	})
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opCreate, err)
		return
	}

	httpapi.Created(w, toTaskResponse(task), "Task created successfully")
}

// List implements GET /projects/{projectId}/tasks.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, err := policy.RequireActor(r.Context())
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opList, err)
		return
	}

	projectID, err := httpapi.UUIDParam(r, "projectId", service.ErrProjectNotFound)
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opList, err)
		return
	}

	opts := service.ListOptions{
		Status:   httpapi.QueryString(r, "status"),
		Priority: httpapi.QueryString(r, "priority"),
		Search:   httpapi.QueryString(r, "search"),
		Page:     httpapi.QueryInt(r, "page"),
		Limit:    httpapi.QueryInt(r, "limit"),
	}
	if raw := httpapi.QueryString(r, "assignedTo"); raw != nil {
		assignee, err := uuid.Parse(*raw)
		if err != nil {
			httpapi.WriteError(w, r, h.logger, opList, apperr.ValidationField("assignedTo", "assignedTo must be a UUID"))
			return
		}
		opts.AssignedTo = &assignee
	}

	result, err := h.svc.List(r.Context(), actor, projectID, opts)
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opList, err)
		return
	}

	httpapi.OK(w, listResponse{
		Tasks: toSummaryResponses(result.Tasks, false),
		Total: result.Total,
		Pagination: paginationResponse{
			CurrentPage: result.Page.CurrentPage,
			TotalPages:  result.Page.TotalPages,
			Limit:       result.Page.Limit,
		},
	})
}

// ListAll implements GET /tasks/all.
func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	actor, err := policy.RequireActor(r.Context())
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opListAll, err)
		return
	}

	tasks, err := h.svc.ListAll(r.Context(), actor)
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opListAll, err)
		return
	}

	httpapi.OK(w, listAllResponse{Tasks: toSummaryResponses(tasks, true), Total: len(tasks)})
}

// UpdateStatus implements PATCH /tasks/{taskId}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, err := policy.RequireActor(r.Context())
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opUpdateStatus, err)
		return
	}

	id, err := httpapi.UUIDParam(r, "taskId", service.ErrNotFound)
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opUpdateStatus, err)
		return
	}

	var body statusRequest
	if err := httpapi.Decode(r, &body); err != nil {
		httpapi.WriteError(w, r, h.logger, opUpdateStatus, err)
		return
	}

	task, err := h.svc.UpdateStatus(r.Context(), actor, id, body.Status)
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opUpdateStatus, err)
		return
	}

	httpapi.JSON(w, http.StatusOK, toTaskResponse(task), "Task status updated successfully")
}

// Update implements PUT /tasks/{taskId}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	actor, err := policy.RequireActor(r.Context())
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opUpdate, err)
		return
	}

	id, err := httpapi.UUIDParam(r, "taskId", service.ErrNotFound)
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opUpdate, err)
		return
	}

	var body updateRequest
	if err := httpapi.Decode(r, &body); err != nil {
		httpapi.WriteError(w, r, h.logger, opUpdate, err)
		return
	}

	task, err := h.svc.Update(r.Context(), actor, id, service.UpdateInput{
		Title:       body.Title,
		Description: body.Description,
		Status:      body.Status,
		Priority:    body.Priority,
		AssignedTo:  body.AssignedTo,
		DueDate:     body.DueDate,
	})
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opUpdate, err)
		return
	}

	httpapi.JSON(w, http.StatusOK, toTaskResponse(task), "Task updated successfully")
}

// Delete implements DELETE /tasks/{taskId}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, err := policy.RequireActor(r.Context())
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opDelete, err)
		return
	}

	id, err := httpapi.UUIDParam(r, "taskId", service.ErrNotFound)
	if err != nil {
		httpapi.WriteError(w, r, h.logger, opDelete, err)
		return
	}

	if err := h.svc.Delete(r.Context(), actor, id); err != nil {
		httpapi.WriteError(w, r, h.logger, opDelete, err)
		return
	}

	httpapi.JSON(w, http.StatusOK, nil, "Task deleted successfully")
}

func toTaskResponse(t service.Task) taskResponse {
	resp := taskResponse{
		ID:          t.ID,
		ProjectID:   t.ProjectID,
		TenantID:    t.TenantID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		AssignedTo:  t.AssignedTo,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.DueDate != nil {
		formatted := t.DueDate.Format(service.DateLayout)
		resp.DueDate = &formatted
	}
	return resp
}

func toSummaryResponses(summaries []service.Summary, withProject bool) []summaryResponse {
	out := make([]summaryResponse, 0, len(summaries))
	for _, s := range summaries {
		resp := summaryResponse{taskResponse: toTaskResponse(s.Task)}
		if s.Assignee != nil {
			resp.AssignedTo = &assigneeResponse{ID: s.Assignee.ID, FullName: s.Assignee.FullName, Email: s.Assignee.Email}
		}
		if withProject {
			resp.Project = &projectRefResponse{ID: s.ProjectID, Name: s.ProjectName}
		}
		out = append(out, resp)
	}
	return out
}

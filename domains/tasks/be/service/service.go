package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-taskhub/domains/tasks/be/repo"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/apperr"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/audit"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/optional"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/policy"
)

const defaultListLimit = 50

// DateLayout is the wire format of due dates.
const DateLayout = "2006-01-02"

// Task statuses.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Domain sentinel errors.
var (
	ErrNotFound          = apperr.NotFound("Task not found")
	ErrProjectNotFound   = apperr.NotFound("Project not found")
	ErrAssigneeTenant    = apperr.ValidationField("assignedTo", "assignedTo user doesn't belong to same tenant")
	ErrNoUpdatableFields = apperr.ValidationField("payload", "No valid fields to update")
)

var (
	statuses   = map[string]bool{StatusTodo: true, StatusInProgress: true, StatusCompleted: true}
	priorities = map[string]bool{PriorityLow: true, PriorityMedium: true, PriorityHigh: true}
)

// Task represents the domain view of a task. DueDate is a calendar date at UTC midnight.
type Task struct {
	ID          uuid.UUID
	ProjectID   uuid.UUID
	TenantID    uuid.UUID
	Title       string
	Description *string
	Status      string
	Priority    string
	AssignedTo  *uuid.UUID
	DueDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Assignee identifies the user a task is assigned to.
type Assignee struct {
	ID       uuid.UUID
	FullName string
	Email    string
}

// Summary is a task with its assignee and project name.
type Summary struct {
	Task
	Assignee    *Assignee
	ProjectName string
}

// CreateInput represents the payload required to create a task. DueDate uses DateLayout.
type CreateInput struct {
	Title       string
	Description *string
	AssignedTo  *uuid.UUID
	Priority    string
	DueDate     *string
}

// UpdateInput carries optional task fields. Description, assignee and due date may be nulled.
type UpdateInput struct {
	Title       *string
	Description optional.Value[string]
	Status      *string
	Priority    *string
	AssignedTo  optional.Value[uuid.UUID]
	DueDate     optional.Value[string]
}

// ListOptions controls filtering and pagination.
type ListOptions struct {
	Status     *string
	Priority   *string
	AssignedTo *uuid.UUID
	Search     *string
	Page       int
	Limit      int
}

// ListResult wraps a page of tasks with pagination metadata.
type ListResult struct {
	Tasks []Summary
	Total int
	Page  persistence.PageInfo
}

// Service defines the business operations for the tasks domain.
type Service interface {
	Create(ctx context.Context, actor policy.Actor, projectID uuid.UUID, input CreateInput) (Task, error)
	List(ctx context.Context, actor policy.Actor, projectID uuid.UUID, opts ListOptions) (ListResult, error)
	UpdateStatus(ctx context.Context, actor policy.Actor, id uuid.UUID, status string) (Task, error)
	Update(ctx context.Context, actor policy.Actor, id uuid.UUID, input UpdateInput) (Task, error)
	Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error
	ListAll(ctx context.Context, actor policy.Actor) ([]Summary, error)
}

type service struct {
	repo  repo.Repository
	audit audit.Recorder
}

// New constructs a tasks Service instance.
func New(r repo.Repository, recorder audit.Recorder) Service {
	if r == nil {
		panic("tasks repository is required")
	}
	if recorder == nil {
		panic("audit recorder is required")
	}
	return &service{repo: r, audit: recorder}
}

func (s *service) Create(ctx context.Context, actor policy.Actor, projectID uuid.UUID, input CreateInput) (Task, error) {
	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return Task{}, mapPersistenceError(err)
	}
	if err := policy.Authorize(actor, policy.TaskCreate, policy.Resource{TenantID: project.TenantID}); err != nil {
		return Task{}, err
	}

	fieldErrors := apperr.FieldErrors{}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		fieldErrors.Add("title", "title is required")
	}
	priority := PriorityMedium
	if strings.TrimSpace(input.Priority) != "" {
		priority = strings.TrimSpace(input.Priority)
		if !priorities[priority] {
			fieldErrors.Add("priority", "priority must be one of low, medium, high")
		}
	}
	var dueDate *time.Time
	if input.DueDate != nil {
		parsed, err := ParseDate(*input.DueDate)
		if err != nil {
			fieldErrors.Add("dueDate", err.Error())
		}
		dueDate = &parsed
	}
	if len(fieldErrors) > 0 {
		return Task{}, apperr.Validation(fieldErrors)
	}

	if input.AssignedTo != nil {
		if err := s.checkAssignee(ctx, *input.AssignedTo, project.TenantID); err != nil {
			return Task{}, err
		}
	}

	record, err := s.repo.Create(ctx, persistence.CreateTaskParams{
		ID:          uuid.New(),
		ProjectID:   project.ID,
		TenantID:    project.TenantID,
		Title:       title,
		Description: input.Description,
		Status:      StatusTodo,
		Priority:    priority,
		AssignedTo:  input.AssignedTo,
		DueDate:     dueDate,
	})
	if err != nil {
		return Task{}, mapPersistenceError(err)
	}

	s.audit.Record(ctx, audit.NewEntry(ctx, record.TenantID, audit.ActionTaskCreated, audit.EntityTask, record.ID).
		WithMetadata("projectId", project.ID.String()).
		WithMetadata("title", record.Title))

	return mapTask(record), nil
}

func (s *service) List(ctx context.Context, actor policy.Actor, projectID uuid.UUID, opts ListOptions) (ListResult, error) {
	project, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return ListResult{}, mapPersistenceError(err)
	}
	if err := policy.Authorize(actor, policy.TaskRead, policy.Resource{TenantID: project.TenantID}); err != nil {
		return ListResult{}, err
	}

	page := persistence.NewPagination(opts.Page, opts.Limit, defaultListLimit)
	result, err := s.repo.List(ctx, projectID, persistence.ListTasksParams{
		Pagination: page,
		Status:     opts.Status,
		Priority:   opts.Priority,
		AssignedTo: opts.AssignedTo,
		Search:     opts.Search,
	})
	if err != nil {
		return ListResult{}, mapPersistenceError(err)
	}

	return ListResult{
		Tasks: mapSummaries(result.Tasks),
		Total: result.TotalItems,
		Page:  page.Info(result.TotalItems),
	}, nil
}

func (s *service) UpdateStatus(ctx context.Context, actor policy.Actor, id uuid.UUID, status string) (Task, error) {
	current, err := s.load(ctx, actor, policy.TaskUpdate, id)
	if err != nil {
		return Task{}, err
	}

	status = strings.TrimSpace(status)
	if !statuses[status] {
		return Task{}, apperr.ValidationField("status", "status must be one of todo, in_progress, completed")
	}

	record, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return Task{}, mapPersistenceError(err)
	}

	s.audit.Record(ctx, audit.NewEntry(ctx, current.TenantID, audit.ActionTaskStatusUpdated, audit.EntityTask, id).
		WithMetadata("status", status))

	return mapTask(record), nil
}

func (s *service) Update(ctx context.Context, actor policy.Actor, id uuid.UUID, input UpdateInput) (Task, error) {
	current, err := s.load(ctx, actor, policy.TaskUpdate, id)
	if err != nil {
		return Task{}, err
	}

	var (
		params  persistence.UpdateTaskParams
		updated []string
	)
	fieldErrors := apperr.FieldErrors{}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			fieldErrors.Add("title", "title cannot be empty")
		}
		params.Title = &title
		updated = append(updated, "title")
	}
	if input.Description.Set {
		params.Description = input.Description
		updated = append(updated, "description")
	}
	if input.Status != nil {
		if !statuses[*input.Status] {
			fieldErrors.Add("status", "status must be one of todo, in_progress, completed")
		}
		params.Status = input.Status
		updated = append(updated, "status")
	}
	if input.Priority != nil {
		if !priorities[*input.Priority] {
			fieldErrors.Add("priority", "priority must be one of low, medium, high")
		}
		params.Priority = input.Priority
		updated = append(updated, "priority")
	}
	if input.AssignedTo.Set {
		params.AssignedTo = input.AssignedTo
		updated = append(updated, "assignedTo")
	}
	if input.DueDate.Set {
		params.DueDate = optional.Null[time.Time]()
		if input.DueDate.Valid {
			parsed, err := ParseDate(input.DueDate.V)
			if err != nil {
				fieldErrors.Add("dueDate", err.Error())
			}
			params.DueDate = optional.Of(parsed)
		}
		updated = append(updated, "dueDate")
	}

	if len(fieldErrors) > 0 {
		return Task{}, apperr.Validation(fieldErrors)
	}
	if len(updated) == 0 {
		return Task{}, ErrNoUpdatableFields
	}

	if assignee := params.AssignedTo.Ptr(); assignee != nil {
		if err := s.checkAssignee(ctx, *assignee, current.TenantID); err != nil {
			return Task{}, err
		}
	}

	record, err := s.repo.Update(ctx, id, params)
	if err != nil {
		return Task{}, mapPersistenceError(err)
	}

	s.audit.Record(ctx, audit.NewEntry(ctx, current.TenantID, audit.ActionTaskUpdated, audit.EntityTask, id).
		WithMetadata("updatedFields", updated))

	return mapTask(record), nil
}

func (s *service) Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error {
	current, err := s.load(ctx, actor, policy.TaskDelete, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return mapPersistenceError(err)
	}

	s.audit.Record(ctx, audit.NewEntry(ctx, current.TenantID, audit.ActionTaskDeleted, audit.EntityTask, id).
		WithMetadata("projectId", current.ProjectID.String()))

	return nil
}

func (s *service) ListAll(ctx context.Context, actor policy.Actor) ([]Summary, error) {
	if err := policy.Authorize(actor, policy.TaskListAll, policy.Resource{}); err != nil {
		return nil, err
	}

	records, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, mapPersistenceError(err)
	}
	return mapSummaries(records), nil
}

func (s *service) load(ctx context.Context, actor policy.Actor, action policy.Action, id uuid.UUID) (persistence.Task, error) {
	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return persistence.Task{}, mapPersistenceError(err)
	}
	if err := policy.Authorize(actor, action, policy.Resource{TenantID: record.TenantID}); err != nil {
		return persistence.Task{}, err
	}
	return record, nil
}

func (s *service) checkAssignee(ctx context.Context, userID, tenantID uuid.UUID) error {
	ok, err := s.repo.UserInTenant(ctx, userID, tenantID)
	if err != nil {
		return fmt.Errorf("check assignee: %w", err)
	}
	if !ok {
		return ErrAssigneeTenant
	}
	return nil
}

// ParseDate parses a DateLayout calendar date.
func ParseDate(value string) (time.Time, error) {
	parsed, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, errors.New("dueDate must be a date in YYYY-MM-DD format")
	}
	return parsed, nil
}

func mapTask(record persistence.Task) Task {
	return Task{
		ID:          record.ID,
		ProjectID:   record.ProjectID,
		TenantID:    record.TenantID,
		Title:       record.Title,
		Description: record.Description,
		Status:      record.Status,
		Priority:    record.Priority,
		AssignedTo:  record.AssignedTo,
		DueDate:     record.DueDate,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
}

func mapSummaries(records []persistence.TaskSummary) []Summary {
	out := make([]Summary, 0, len(records))
	for _, record := range records {
		summary := Summary{Task: mapTask(record.Task), ProjectName: record.ProjectName}
		if record.Assignee != nil {
			summary.Assignee = &Assignee{ID: record.Assignee.ID, FullName: record.Assignee.FullName, Email: record.Assignee.Email}
		}
		out = append(out, summary)
	}
	return out
}

func mapPersistenceError(err error) error {
	switch {
	case errors.Is(err, persistence.ErrTaskNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrProjectNotFound):
		return ErrProjectNotFound
	case errors.Is(err, persistence.ErrAssigneeNotFound):
		return ErrAssigneeTenant
	default:
		return err
	}
}

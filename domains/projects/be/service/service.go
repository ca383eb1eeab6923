package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-taskhub/domains/projects/be/repo"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/apperr"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/audit"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/optional"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-taskhub/platform/go/policy"
)

const defaultListLimit = 20

// Project statuses.
const (
	StatusActive   = "active"
	StatusArchived = "archived"
)

// Domain sentinel errors.
var (
	ErrNotFound          = apperr.NotFound("Project not found")
	ErrTenantNotFound    = apperr.NotFound("Tenant not found")
	ErrProjectLimit      = apperr.QuotaExceeded("Project limit reached")
	ErrNoUpdatableFields = apperr.ValidationField("payload", "No valid fields to update")
)

// Project represents the domain view of a project.
type Project struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Name        string
	Description *string
	Status      string
	CreatedBy   *uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Summary is a project with its creator's name and task counters.
type Summary struct {
	Project
	CreatorName        *string
	TaskCount          int
	CompletedTaskCount int
}

// CreateInput represents the payload required to create a project.
type CreateInput struct {
	Name        string
	Description *string
	Status      string
}

// UpdateInput carries optional project fields. Description may be explicitly nulled.
type UpdateInput struct {
	Name        *string
	Description optional.Value[string]
	Status      *string
}

// ListOptions controls filtering and pagination.
type ListOptions struct {
	Status *string
	Search *string
	Page   int
	Limit  int
}

// ListResult wraps a page of projects with pagination metadata.
type ListResult struct {
	Projects []Summary
	Total    int
	Page     persistence.PageInfo
}

// Service defines the business operations for the projects domain.
type Service interface {
	Create(ctx context.Context, actor policy.Actor, input CreateInput) (Project, error)
	List(ctx context.Context, actor policy.Actor, opts ListOptions) (ListResult, error)
	Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (Summary, error)
	Update(ctx context.Context, actor policy.Actor, id uuid.UUID, input UpdateInput) (Project, error)
	Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error
	ListAll(ctx context.Context, actor policy.Actor) ([]Summary, error)
}

type service struct {
	repo  repo.Repository
	audit audit.Recorder
}

// New constructs a projects Service instance.
func New(r repo.Repository, recorder audit.Recorder) Service {
	if r == nil {
		panic("projects repository is required")
	}
	if recorder == nil {
		panic("audit recorder is required")
	}
	return &service{repo: r, audit: recorder}
}

func (s *service) Create(ctx context.Context, actor policy.Actor, input CreateInput) (Project, error) {
	tenantID := actorTenant(actor)
	if err := policy.Authorize(actor, policy.ProjectCreate, policy.Resource{TenantID: tenantID}); err != nil {
		return Project{}, err
	}

	fieldErrors := apperr.FieldErrors{}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		fieldErrors.Add("name", "name is required")
	}
	status := StatusActive
	if strings.TrimSpace(input.Status) != "" {
		status = strings.TrimSpace(input.Status)
		if !validStatus(status) {
			fieldErrors.Add("status", "status must be one of active, archived")
		}
	}
	if len(fieldErrors) > 0 {
		return Project{}, apperr.Validation(fieldErrors)
	}

	record, err := s.repo.Create(ctx, persistence.CreateProjectParams{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Name:        name,
		Description: input.Description,
		Status:      status,
		CreatedBy:   actor.UserID,
	})
	if err != nil {
		return Project{}, mapPersistenceError(err)
	}

	s.audit.Record(ctx, audit.NewEntry(ctx, tenantID, audit.ActionProjectCreated, audit.EntityProject, record.ID).
		WithMetadata("name", record.Name))

	return mapProject(record), nil
}

func (s *service) List(ctx context.Context, actor policy.Actor, opts ListOptions) (ListResult, error) {
	if actor.TenantID == nil {
		return ListResult{}, policy.ErrTenantRequired
	}
	tenantID := *actor.TenantID
	if err := policy.Authorize(actor, policy.ProjectRead, policy.Resource{TenantID: tenantID}); err != nil {
		return ListResult{}, err
	}

	page := persistence.NewPagination(opts.Page, opts.Limit, defaultListLimit)
	result, err := s.repo.List(ctx, tenantID, persistence.ListProjectsParams{
		Pagination: page,
		Status:     opts.Status,
		Search:     opts.Search,
	})
	if err != nil {
		return ListResult{}, mapPersistenceError(err)
	}

	return ListResult{
		Projects: mapSummaries(result.Projects),
		Total:    result.TotalItems,
		Page:     page.Info(result.TotalItems),
	}, nil
}

func (s *service) Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (Summary, error) {
	record, err := s.repo.GetSummary(ctx, id)
	if err != nil {
		return Summary{}, mapPersistenceError(err)
	}

	if err := policy.Authorize(actor, policy.ProjectRead, policy.Resource{TenantID: record.TenantID}); err != nil {
		return Summary{}, err
	}

	return mapSummary(record), nil
}

func (s *service) Update(ctx context.Context, actor policy.Actor, id uuid.UUID, input UpdateInput) (Project, error) {
	current, err := s.loadForChange(ctx, actor, policy.ProjectUpdate, id)
	if err != nil {
		return Project{}, err
	}

	var (
		params  persistence.UpdateProjectParams
		updated []string
	)
	fieldErrors := apperr.FieldErrors{}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			fieldErrors.Add("name", "name cannot be empty")
		}
		params.Name = &name
		updated = append(updated, "name")
	}
	if input.Description.Set {
		params.Description = input.Description
		updated = append(updated, "description")
	}
	if input.Status != nil {
		if !validStatus(*input.Status) {
			fieldErrors.Add("status", "status must be one of active, archived")
		}
		params.Status = input.Status
		updated = append(updated, "status")
	}

	if len(fieldErrors) > 0 {
		return Project{}, apperr.Validation(fieldErrors)
	}
	if len(updated) == 0 {
		return Project{}, ErrNoUpdatableFields
	}

	record, err := s.repo.Update(ctx, id, params)
	if err != nil {
		return Project{}, mapPersistenceError(err)
	}

	s.audit.Record(ctx, audit.NewEntry(ctx, current.TenantID, audit.ActionProjectUpdated, audit.EntityProject, id).
		WithMetadata("updatedFields", updated))

	return mapProject(record), nil
}

func (s *service) Delete(ctx context.Context, actor policy.Actor, id uuid.UUID) error {
	current, err := s.loadForChange(ctx, actor, policy.ProjectDelete, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return mapPersistenceError(err)
	}

	s.audit.Record(ctx, audit.NewEntry(ctx, current.TenantID, audit.ActionProjectDeleted, audit.EntityProject, id).
		WithMetadata("name", current.Name))

	return nil
}

func (s *service) ListAll(ctx context.Context, actor policy.Actor) ([]Summary, error) {
	if err := policy.Authorize(actor, policy.ProjectListAll, policy.Resource{}); err != nil {
		return nil, err
	}

	records, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, mapPersistenceError(err)
	}
	return mapSummaries(records), nil
}

// loadForChange fetches the project and checks tenant isolation and ownership.
func (s *service) loadForChange(ctx context.Context, actor policy.Actor, action policy.Action, id uuid.UUID) (persistence.Project, error) {
	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return persistence.Project{}, mapPersistenceError(err)
	}

	resource := policy.Resource{TenantID: record.TenantID, OwnerID: record.CreatedBy}
	if err := policy.Authorize(actor, action, resource); err != nil {
		return persistence.Project{}, err
	}
	return record, nil
}

func actorTenant(actor policy.Actor) uuid.UUID {
	if actor.TenantID == nil {
		return uuid.Nil
	}
	return *actor.TenantID
}

func validStatus(status string) bool {
	return status == StatusActive || status == StatusArchived
}

func mapProject(record persistence.Project) Project {
	return Project{
		ID:          record.ID,
		TenantID:    record.TenantID,
		Name:        record.Name,
		Description: record.Description,
		Status:      record.Status,
		CreatedBy:   record.CreatedBy,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
}

func mapSummary(record persistence.ProjectSummary) Summary {
	return Summary{
		Project:            mapProject(record.Project),
		CreatorName:        record.CreatorName,
		TaskCount:          record.TaskCount,
		CompletedTaskCount: record.CompletedTaskCount,
	}
}

func mapSummaries(records []persistence.ProjectSummary) []Summary {
	out := make([]Summary, 0, len(records))
	for _, record := range records {
		out = append(out, mapSummary(record))
	}
	return out
}

func mapPersistenceError(err error) error {
	switch {
	case errors.Is(err, persistence.ErrProjectNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrQuotaExceeded):
		return ErrProjectLimit
	case errors.Is(err, persistence.ErrTenantNotFound):
		return ErrTenantNotFound
	default:
		return err
	}
}

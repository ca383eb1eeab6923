package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zenGate-Global/palmyra-taskhub/platform/go/optional"
)

const TasksTable = "tasks"

// ErrTaskNotFound indicates a missing task record.
var ErrTaskNotFound = errors.New("task not found")

// Task represents a row in the tasks table. DueDate carries a calendar date at UTC midnight.
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

// TaskAssignee is the identity of the user a task is assigned to.
type TaskAssignee struct {
	ID       uuid.UUID
	FullName string
	Email    string
}

// TaskSummary is a task enriched with its assignee and project name.
type TaskSummary struct {
	Task
	Assignee    *TaskAssignee
	ProjectName string
}

// TaskStore exposes persistence helpers for the tasks table.
type TaskStore struct {
	pool *pgxpool.Pool
}

// NewTaskStore returns a store; assumes migrations already created the table.
func NewTaskStore(ctx context.Context, pool *pgxpool.Pool) (*TaskStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &TaskStore{pool: pool}, nil
}

// CreateTaskParams captures the fields required to insert a task.
type CreateTaskParams struct {
	ID          uuid.UUID
	ProjectID   uuid.UUID
	TenantID    uuid.UUID
	Title       string
	Description *string
	Status      string
	Priority    string
	AssignedTo  *uuid.UUID
	DueDate     *time.Time
}

// CreateTask inserts a new task and returns the persisted record.
func (s *TaskStore) CreateTask(ctx context.Context, params CreateTaskParams) (Task, error) {
	if params.ID == uuid.Nil {
		return Task{}, errors.New("task id is required")
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (id, project_id, tenant_id, title, description, status, priority, assigned_to, due_date)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING %s
    `, TasksTable, taskColumns),
		params.ID,
		params.ProjectID,
		params.TenantID,
		strings.TrimSpace(params.Title),
		params.Description,
		params.Status,
		params.Priority,
		params.AssignedTo,
		params.DueDate,
	)

	task, err := scanTask(row)
	if err != nil {
		if mapped := taskForeignKeyError(err); mapped != nil {
			return Task{}, mapped
		}
		return Task{}, fmt.Errorf("insert task: %w", err)
	}
	return task, nil
}

// GetTask returns a single task by identifier.
func (s *TaskStore) GetTask(ctx context.Context, id uuid.UUID) (Task, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, taskColumns, TasksTable), id)
	return scanTaskOrNotFound(row)
}

// ListTasksParams captures filters and pagination for ListTasks.
type ListTasksParams struct {
	Pagination
	Status     *string
	Priority   *string
	AssignedTo *uuid.UUID
	Search     *string
}

// ListTasksResult includes the rows and the total count for pagination metadata.
type ListTasksResult struct {
	Tasks      []TaskSummary
	TotalItems int
}

// ListTasks returns the project's tasks ordered by priority rank, then due date with
// undated tasks last.
func (s *TaskStore) ListTasks(ctx context.Context, projectID uuid.UUID, params ListTasksParams) (ListTasksResult, error) {
	where := sq.And{sq.Eq{"t.project_id": projectID}}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		where = append(where, sq.Eq{"t.status": strings.TrimSpace(*params.Status)})
	}
	if params.Priority != nil && strings.TrimSpace(*params.Priority) != "" {
		where = append(where, sq.Eq{"t.priority": strings.TrimSpace(*params.Priority)})
	}
	if params.AssignedTo != nil {
		where = append(where, sq.Eq{"t.assigned_to": *params.AssignedTo})
	}
	if params.Search != nil && strings.TrimSpace(*params.Search) != "" {
		where = append(where, sq.ILike{"t.title": containsPattern(strings.TrimSpace(*params.Search))})
	}

	countQuery, countArgs, err := psql.Select("COUNT(*)").From(TasksTable + " t").Where(where).ToSql()
	if err != nil {
		return ListTasksResult{}, fmt.Errorf("build task count: %w", err)
	}

	var total int
	if err := s.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return ListTasksResult{}, fmt.Errorf("count tasks: %w", err)
	}

	result := ListTasksResult{Tasks: []TaskSummary{}, TotalItems: total}
	if total == 0 {
		return result, nil
	}

	query, args, err := params.Pagination.apply(
		taskSummarySelect().Where(where).OrderBy(
			"CASE t.priority WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END",
			"t.due_date ASC NULLS LAST",
			"t.created_at DESC",
			"t.id",
		),
	).ToSql()
	if err != nil {
		return ListTasksResult{}, fmt.Errorf("build task list: %w", err)
	}

	result.Tasks, err = s.querySummaries(ctx, query, args)
	if err != nil {
		return ListTasksResult{}, err
	}
	return result, nil
}

// ListAllTasks returns every task across tenants, newest first.
func (s *TaskStore) ListAllTasks(ctx context.Context) ([]TaskSummary, error) {
	query, args, err := taskSummarySelect().OrderBy("t.created_at DESC", "t.id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build task list: %w", err)
	}
	return s.querySummaries(ctx, query, args)
}

func (s *TaskStore) querySummaries(ctx context.Context, query string, args []any) ([]TaskSummary, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]TaskSummary, 0)
	for rows.Next() {
		summary, scanErr := scanTaskSummary(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan task: %w", scanErr)
		}
		tasks = append(tasks, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}

	return tasks, nil
}

// UpdateTaskStatus sets only the task status.
func (s *TaskStore) UpdateTaskStatus(ctx context.Context, id uuid.UUID, status string) (Task, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        UPDATE %s SET status = $1, updated_at = NOW()
        WHERE id = $2
        RETURNING %s
    `, TasksTable, taskColumns), status, id)
	return scanTaskOrNotFound(row)
}

// UpdateTaskParams lists the mutable task columns. Description, assignee and due date may be cleared.
type UpdateTaskParams struct {
	Title       *string
	Description optional.Value[string]
	Status      *string
	Priority    *string
	AssignedTo  optional.Value[uuid.UUID]
	DueDate     optional.Value[time.Time]
}

// UpdateTask applies the provided fields and returns the updated record.
func (s *TaskStore) UpdateTask(ctx context.Context, id uuid.UUID, params UpdateTaskParams) (Task, error) {
	set := map[string]any{}
	if params.Title != nil {
		set["title"] = strings.TrimSpace(*params.Title)
	}
	if params.Description.Set {
		set["description"] = params.Description.Ptr()
	}
	if params.Status != nil {
		set["status"] = *params.Status
	}
	if params.Priority != nil {
		set["priority"] = *params.Priority
	}
	if params.AssignedTo.Set {
		set["assigned_to"] = params.AssignedTo.Ptr()
	}
	if params.DueDate.Set {
		set["due_date"] = params.DueDate.Ptr()
	}
	if len(set) == 0 {
		return Task{}, errors.New("no fields to update")
	}

	query, args, err := psql.Update(TasksTable).
		SetMap(set).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + taskColumns).
		ToSql()
	if err != nil {
		return Task{}, fmt.Errorf("build task update: %w", err)
	}

	task, err := scanTaskOrNotFound(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if mapped := taskForeignKeyError(err); mapped != nil {
			return Task{}, mapped
		}
		return Task{}, err
	}
	return task, nil
}

// DeleteTask removes a task by identifier.
func (s *TaskStore) DeleteTask(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, TasksTable), id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

const taskColumns = "id, project_id, tenant_id, title, description, status, priority, assigned_to, due_date, created_at, updated_at"

// taskForeignKeyError maps a foreign key violation on tasks to the missing referent.
func taskForeignKeyError(err error) error {
	switch foreignKeyConstraint(err) {
	case "":
		return nil
	case tasksAssigneeFKey:
		return ErrAssigneeNotFound
	default:
		return ErrProjectNotFound
	}
}

func taskSummarySelect() sq.SelectBuilder {
	return psql.Select(
		prefixColumns("t", taskColumns),
		"u.id", "u.full_name", "u.email",
		"p.name",
	).
		From(TasksTable + " t").
		Join(ProjectsTable + " p ON p.id = t.project_id").
		LeftJoin(UsersTable + " u ON u.id = t.assigned_to")
}

func taskScanTargets(t *Task) []any {
	return []any{
		&t.ID, &t.ProjectID, &t.TenantID, &t.Title, &t.Description, &t.Status,
		&t.Priority, &t.AssignedTo, &t.DueDate, &t.CreatedAt, &t.UpdatedAt,
	}
}

func scanTask(row pgx.Row) (Task, error) {
	var task Task
	if err := row.Scan(taskScanTargets(&task)...); err != nil {
		return Task{}, err
	}
	return task, nil
}

func scanTaskOrNotFound(row pgx.Row) (Task, error) {
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Task{}, ErrTaskNotFound
		}
		return Task{}, err
	}
	return task, nil
}

func scanTaskSummary(row pgx.Row) (TaskSummary, error) {
	var (
		summary       TaskSummary
		assigneeID    *uuid.UUID
		assigneeName  *string
		assigneeEmail *string
	)

	targets := append(taskScanTargets(&summary.Task), &assigneeID, &assigneeName, &assigneeEmail, &summary.ProjectName)
	if err := row.Scan(targets...); err != nil {
		return TaskSummary{}, err
	}

	if assigneeID != nil {
		summary.Assignee = &TaskAssignee{ID: *assigneeID}
		if assigneeName != nil {
			summary.Assignee.FullName = *assigneeName
		}
		if assigneeEmail != nil {
			summary.Assignee.Email = *assigneeEmail
		}
	}

	return summary, nil
}

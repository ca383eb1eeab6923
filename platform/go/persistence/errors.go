package persistence

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"

	tasksAssigneeFKey = "tasks_assigned_to_fkey"
)

var (
	// ErrQuotaExceeded is returned when a tenant limit would be exceeded by an insert.
	ErrQuotaExceeded = errors.New("tenant quota exceeded")
	// ErrAssigneeNotFound is returned when a task references a user that no longer exists.
	ErrAssigneeNotFound = errors.New("assignee not found")
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}

// foreignKeyConstraint returns the violated constraint name, or "" when err is not a foreign key violation.
func foreignKeyConstraint(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return pgErr.ConstraintName
	}
	return ""
}

package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zenGate-Global/palmyra-taskhub/platform/go/audit"
)

const AuditLogsTable = "audit_logs"

// AuditStore appends and reads audit_logs rows. It is the audit dispatcher's sink.
type AuditStore struct {
	pool *pgxpool.Pool
}

var _ audit.Sink = (*AuditStore)(nil)

// NewAuditStore returns a store; assumes migrations already created the table.
func NewAuditStore(ctx context.Context, pool *pgxpool.Pool) (*AuditStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &AuditStore{pool: pool}, nil
}

// Insert appends entry. Audit rows are never updated or deleted.
func (s *AuditStore) Insert(ctx context.Context, entry audit.Entry) error {
	id := entry.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	var metadata any
	if len(entry.Metadata) > 0 {
		metadata = entry.Metadata
	}

	var requestID *string
	if entry.RequestID != "" {
		requestID = &entry.RequestID
	}

	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
        INSERT INTO %s (id, tenant_id, user_id, action, entity_type, entity_id, ip_address, request_id, metadata)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, AuditLogsTable),
		id,
		entry.TenantID,
		entry.UserID,
		entry.Action,
		entry.EntityType,
		entry.EntityID,
		entry.IPAddress,
		requestID,
		metadata,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// ListAuditLogsResult includes the rows and the total count for pagination metadata.
type ListAuditLogsResult struct {
	Entries    []audit.Entry
	TotalItems int
}

// ListAuditLogs returns the tenant's audit entries, newest first.
func (s *AuditStore) ListAuditLogs(ctx context.Context, tenantID uuid.UUID, page Pagination) (ListAuditLogsResult, error) {
	var total int
	if err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE tenant_id = $1`, AuditLogsTable), tenantID).Scan(&total); err != nil {
		return ListAuditLogsResult{}, fmt.Errorf("count audit logs: %w", err)
	}

	result := ListAuditLogsResult{Entries: []audit.Entry{}, TotalItems: total}
	if total == 0 {
		return result, nil
	}

	query, args, err := page.apply(
		psql.Select("id, tenant_id, user_id, action, entity_type, entity_id, ip_address, COALESCE(request_id, ''), metadata, created_at").
			From(AuditLogsTable).
			Where("tenant_id = ?", tenantID).
			OrderBy("created_at DESC", "id"),
	).ToSql()
	if err != nil {
		return ListAuditLogsResult{}, fmt.Errorf("build audit list: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return ListAuditLogsResult{}, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		entry, scanErr := scanAuditEntry(rows)
		if scanErr != nil {
			return ListAuditLogsResult{}, fmt.Errorf("scan audit log: %w", scanErr)
		}
		result.Entries = append(result.Entries, entry)
	}
	if err := rows.Err(); err != nil {
		return ListAuditLogsResult{}, fmt.Errorf("iterate audit logs: %w", err)
	}

	return result, nil
}

func scanAuditEntry(row pgx.Row) (audit.Entry, error) {
	var entry audit.Entry
	if err := row.Scan(
		&entry.ID, &entry.TenantID, &entry.UserID, &entry.Action, &entry.EntityType,
		&entry.EntityID, &entry.IPAddress, &entry.RequestID, &entry.Metadata, &entry.CreatedAt,
	); err != nil {
		return audit.Entry{}, err
	}
	return entry, nil
}

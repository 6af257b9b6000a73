package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresRepo appends to the audit_events table. It never updates or deletes.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const insertEventSQL = `
INSERT INTO audit_events (id, tenant_id, type, actor_user_id, actor_role, ip_address, call_id, message, metadata, created_at)
VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), $10)`

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	if _, err := r.db.ExecContext(ctx, insertEventSQL,
		e.ID, e.TenantID, string(e.Type), e.ActorUserID, e.ActorRole, e.IPAddress, e.CallID, e.Message, e.Metadata, e.CreatedAt,
	); err != nil {
		return fmt.Errorf("audit: append event: %w", err)
	}
	return nil
}

package audit

import (
	"context"
	"database/sql"

	"outdial-platform/internal/apperr"
)

// PostgresRepo appends audit events to the audit_events table.
// The table is INSERT-only; no update or delete paths exist here.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
		INSERT INTO audit_events
			(id, type, actor_user_id, actor_role, ip_address, job_id, agent_id, call_run_id, phone_e164, message, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.ExecContext(ctx, q,
		e.ID, string(e.Type), e.ActorUserID, e.ActorRole, e.IPAddress,
		e.JobID, e.AgentID, e.CallRunID, e.PhoneE164, e.Message, e.Metadata, e.CreatedAt,
	)
	if err != nil {
		return apperr.Storef("append audit event: %v", err)
	}
	return nil
}

package calls

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"outdial-platform/internal/apperr"

	"github.com/google/uuid"
)

// PostgresStore persists call runs.
//
// Assumed table: call_runs.
type PostgresStore struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, clock: time.Now}
}

const runColumns = `id, external_call_id, agent_id, contact_id, provider, direction, status, started_at, stopped_at`

func (s *PostgresStore) Insert(ctx context.Context, r CallRun) (CallRun, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = s.clock().UTC()
	}

	const q = `
INSERT INTO call_runs (` + runColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`
	_, err := s.db.ExecContext(ctx, q,
		r.ID, r.ExternalCallID, r.AgentID, r.ContactID, r.Provider,
		r.Direction, string(r.Status), r.StartedAt, r.StoppedAt,
	)
	if err != nil {
		return CallRun{}, apperr.Storef("insert call run: %v", err)
	}
	return r, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (CallRun, error) {
	const q = `SELECT ` + runColumns + ` FROM call_runs WHERE id = $1`
	r, err := scanRun(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CallRun{}, apperr.NotFoundf("Call run not found")
		}
		return CallRun{}, apperr.Storef("get call run: %v", err)
	}
	return r, nil
}

func (s *PostgresStore) MarkStopped(ctx context.Context, id string) (CallRun, error) {
	const q = `
UPDATE call_runs
SET status = $1, stopped_at = $2
WHERE id = $3
RETURNING ` + runColumns
	r, err := scanRun(s.db.QueryRowContext(ctx, q, string(StatusStopped), s.clock().UTC(), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CallRun{}, apperr.NotFoundf("Call run not found")
		}
		return CallRun{}, apperr.Storef("mark stopped: %v", err)
	}
	return r, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(r rowScanner) (CallRun, error) {
	var run CallRun
	var status string
	var stoppedAt sql.NullTime

	if err := r.Scan(
		&run.ID, &run.ExternalCallID, &run.AgentID, &run.ContactID,
		&run.Provider, &run.Direction, &status, &run.StartedAt, &stoppedAt,
	); err != nil {
		return CallRun{}, err
	}
	run.Status = Status(status)
	if stoppedAt.Valid {
		t := stoppedAt.Time
		run.StoppedAt = &t
	}
	return run, nil
}

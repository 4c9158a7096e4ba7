package calljobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"outdial-platform/internal/apperr"
	"outdial-platform/pkg/utils"

	"github.com/google/uuid"
)

// PostgresStore persists call jobs.
//
// Assumed tables:
// - call_jobs
// - call_job_contacts (PRIMARY KEY (call_job_id, contact_id))
type PostgresStore struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, clock: time.Now}
}

const jobColumns = `id, agent_id, name, status, total_contacts, config_json, created_at, updated_at`

func (s *PostgresStore) CreateWithContacts(ctx context.Context, job CallJob, contactIDs []string) (CallJob, error) {
	now := s.clock().UTC()
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.CreatedAt = now
	job.UpdatedAt = now
	job.TotalContacts = len(contactIDs)

	cfg, err := json.Marshal(job.Config)
	if err != nil {
		return CallJob{}, apperr.Storef("encode config: %v", err)
	}

	err = utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		const insertJob = `
INSERT INTO call_jobs (` + jobColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`
		if _, err := tx.ExecContext(ctx, insertJob,
			job.ID, job.AgentID, job.Name, string(job.Status),
			job.TotalContacts, string(cfg), job.CreatedAt, job.UpdatedAt,
		); err != nil {
			return fmt.Errorf("insert job: %w", err)
		}

		const insertContact = `
INSERT INTO call_job_contacts (call_job_id, contact_id, status, attempts, updated_at)
VALUES ($1, $2, $3, $4, $5)
`
		for _, contactID := range contactIDs {
			if _, err := tx.ExecContext(ctx, insertContact,
				job.ID, contactID, string(ContactQueued), 0, now,
			); err != nil {
				return fmt.Errorf("enroll contact %s: %w", contactID, err)
			}
		}
		return nil
	})
	if err != nil {
		return CallJob{}, apperr.Storef("create job: %v", err)
	}
	return job, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (CallJob, error) {
	const q = `SELECT ` + jobColumns + ` FROM call_jobs WHERE id = $1`
	job, err := scanJob(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CallJob{}, apperr.NotFoundf("Job not found")
		}
		return CallJob{}, apperr.Storef("get job: %v", err)
	}
	return job, nil
}

func (s *PostgresStore) ListByStatus(ctx context.Context, statuses ...Status) ([]CallJob, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, st := range statuses {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = string(st)
	}

	q := `SELECT ` + jobColumns + ` FROM call_jobs WHERE status IN (` +
		strings.Join(placeholders, ", ") + `) ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, apperr.Storef("list jobs: %v", err)
	}
	defer rows.Close()

	var out []CallJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, apperr.Storef("scan job: %v", err)
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storef("list jobs: %v", err)
	}
	return out, nil
}

func (s *PostgresStore) Transition(ctx context.Context, id string, to Status, allowedFrom ...Status) (CallJob, error) {
	args := []any{string(to), s.clock().UTC(), id}

	guard := ""
	if len(allowedFrom) > 0 {
		placeholders := make([]string, len(allowedFrom))
		for i, st := range allowedFrom {
			args = append(args, string(st))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		guard = ` AND status IN (` + strings.Join(placeholders, ", ") + `)`
	}

	// Single guarded statement: the status check and the write are one
	// atomic operation, so concurrent control calls cannot interleave.
	q := `UPDATE call_jobs SET status = $1, updated_at = $2 WHERE id = $3` + guard +
		` RETURNING ` + jobColumns

	job, err := scanJob(s.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Distinguish missing job from a lost guard.
			if _, getErr := s.GetByID(ctx, id); getErr != nil {
				return CallJob{}, getErr
			}
			return CallJob{}, ErrConflict
		}
		return CallJob{}, apperr.Storef("transition job: %v", err)
	}
	return job, nil
}

func (s *PostgresStore) LeaseContacts(ctx context.Context, jobID string, limit int) ([]CallJobContact, error) {
	const q = `
UPDATE call_job_contacts
SET status = $1, updated_at = $2
WHERE (call_job_id, contact_id) IN (
	SELECT call_job_id, contact_id
	FROM call_job_contacts
	WHERE call_job_id = $3
	  AND (status = $4 OR (status = $1 AND updated_at < $5))
	ORDER BY contact_id
	LIMIT $6
	FOR UPDATE SKIP LOCKED
)
RETURNING call_job_id, contact_id, status, attempts, updated_at
`
	now := s.clock().UTC()
	rows, err := s.db.QueryContext(ctx, q,
		string(ContactCalling), now, jobID, string(ContactQueued), now.Add(-staleLeaseAfter), limit)
	if err != nil {
		return nil, apperr.Storef("lease contacts: %v", err)
	}
	defer rows.Close()

	var out []CallJobContact
	for rows.Next() {
		jc, err := scanJobContact(rows)
		if err != nil {
			return nil, apperr.Storef("scan job contact: %v", err)
		}
		out = append(out, jc)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storef("lease contacts: %v", err)
	}
	return out, nil
}

func (s *PostgresStore) SetContactStatus(ctx context.Context, jobID, contactID string, to ContactStatus, countAttempt bool) (CallJobContact, error) {
	attemptDelta := 0
	if countAttempt {
		attemptDelta = 1
	}

	const q = `
UPDATE call_job_contacts
SET status = $1, attempts = attempts + $2, updated_at = $3
WHERE call_job_id = $4 AND contact_id = $5
RETURNING call_job_id, contact_id, status, attempts, updated_at
`
	jc, err := scanJobContact(s.db.QueryRowContext(ctx, q,
		string(to), attemptDelta, s.clock().UTC(), jobID, contactID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CallJobContact{}, apperr.NotFoundf("Job contact not found")
		}
		return CallJobContact{}, apperr.Storef("set contact status: %v", err)
	}
	return jc, nil
}

func (s *PostgresStore) PendingCount(ctx context.Context, jobID string) (int, error) {
	const q = `
SELECT COUNT(*) FROM call_job_contacts
WHERE call_job_id = $1 AND status IN ($2, $3)
`
	var n int
	if err := s.db.QueryRowContext(ctx, q, jobID, string(ContactQueued), string(ContactCalling)).Scan(&n); err != nil {
		return 0, apperr.Storef("pending count: %v", err)
	}
	return n, nil
}

func (s *PostgresStore) Progress(ctx context.Context, jobID string) (Progress, error) {
	const q = `
SELECT status, COUNT(*) FROM call_job_contacts
WHERE call_job_id = $1
GROUP BY status
`
	rows, err := s.db.QueryContext(ctx, q, jobID)
	if err != nil {
		return Progress{}, apperr.Storef("progress: %v", err)
	}
	defer rows.Close()

	var p Progress
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return Progress{}, apperr.Storef("progress scan: %v", err)
		}
		switch ContactStatus(status) {
		case ContactQueued:
			p.Queued = n
		case ContactCalling:
			p.Calling = n
		case ContactCompleted:
			p.Completed = n
		case ContactFailed:
			p.Failed = n
		case ContactSkipped:
			p.Skipped = n
		}
	}
	if err := rows.Err(); err != nil {
		return Progress{}, apperr.Storef("progress: %v", err)
	}
	return p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(r rowScanner) (CallJob, error) {
	var job CallJob
	var status string
	var cfgRaw sql.NullString

	if err := r.Scan(
		&job.ID, &job.AgentID, &job.Name, &status,
		&job.TotalContacts, &cfgRaw, &job.CreatedAt, &job.UpdatedAt,
	); err != nil {
		return CallJob{}, err
	}
	job.Status = Status(status)
	if cfgRaw.Valid && cfgRaw.String != "" {
		if err := json.Unmarshal([]byte(cfgRaw.String), &job.Config); err != nil {
			return CallJob{}, fmt.Errorf("decode config: %w", err)
		}
	}
	return job, nil
}

func scanJobContact(r rowScanner) (CallJobContact, error) {
	var jc CallJobContact
	var status string
	if err := r.Scan(&jc.CallJobID, &jc.ContactID, &status, &jc.Attempts, &jc.UpdatedAt); err != nil {
		return CallJobContact{}, err
	}
	jc.Status = ContactStatus(status)
	return jc, nil
}

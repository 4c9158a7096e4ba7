package agents

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"outdial-platform/internal/apperr"

	"github.com/google/uuid"
)

// PostgresStore persists agents.
//
// Assumed table: agents (UNIQUE (provider, external_agent_id)).
type PostgresStore struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, clock: time.Now}
}

const agentColumns = `id, name, provider, external_agent_id, mode, is_active, prompt, config_json, created_at, updated_at`

func (s *PostgresStore) GetByID(ctx context.Context, id string) (Agent, error) {
	const q = `SELECT ` + agentColumns + ` FROM agents WHERE id = $1`
	a, err := scanAgent(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Agent{}, apperr.NotFoundf("Agent not found")
		}
		return Agent{}, apperr.Storef("get agent: %v", err)
	}
	return a, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Agent, error) {
	const q = `SELECT ` + agentColumns + ` FROM agents ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, apperr.Storef("list agents: %v", err)
	}
	defer rows.Close()

	var out []Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, apperr.Storef("scan agent: %v", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storef("list agents: %v", err)
	}
	return out, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, a Agent) (Agent, error) {
	now := s.clock().UTC()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	const q = `
INSERT INTO agents (` + agentColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (provider, external_agent_id) DO UPDATE SET
	name = EXCLUDED.name,
	mode = EXCLUDED.mode,
	is_active = EXCLUDED.is_active,
	prompt = EXCLUDED.prompt,
	config_json = EXCLUDED.config_json,
	updated_at = EXCLUDED.updated_at
RETURNING ` + agentColumns + `
`
	out, err := scanAgent(s.db.QueryRowContext(ctx, q,
		a.ID, a.Name, a.Provider, a.ExternalAgentID, string(a.Mode),
		a.IsActive, a.Prompt, a.ConfigJSON, a.CreatedAt, a.UpdatedAt,
	))
	if err != nil {
		return Agent{}, apperr.Storef("upsert agent: %v", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(r rowScanner) (Agent, error) {
	var a Agent
	var name, prompt, configJSON sql.NullString
	var mode string

	if err := r.Scan(
		&a.ID, &name, &a.Provider, &a.ExternalAgentID, &mode,
		&a.IsActive, &prompt, &configJSON, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return Agent{}, err
	}
	a.Name = name.String
	a.Mode = Mode(mode)
	a.Prompt = prompt.String
	a.ConfigJSON = configJSON.String
	return a, nil
}

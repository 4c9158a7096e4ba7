package agents

import "context"

// Store is the persistence contract for agents.
type Store interface {
	GetByID(ctx context.Context, id string) (Agent, error)
	List(ctx context.Context) ([]Agent, error)

	// Upsert inserts or replaces the agent keyed by (provider, external_agent_id).
	Upsert(ctx context.Context, a Agent) (Agent, error)
}

package agents

import (
	"context"
	"sort"
	"sync"
	"time"

	"outdial-platform/internal/apperr"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store useful for tests.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string]Agent
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]Agent)}
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.rows[id]
	if !ok {
		return Agent{}, apperr.NotFoundf("Agent not found")
	}
	return a, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Agent, 0, len(s.rows))
	for _, a := range s.rows {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, a Agent) (Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for id, existing := range s.rows {
		if existing.Provider == a.Provider && existing.ExternalAgentID == a.ExternalAgentID {
			a.ID = id
			a.CreatedAt = existing.CreatedAt
			a.UpdatedAt = now
			s.rows[id] = a
			return a, nil
		}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = now
	a.UpdatedAt = now
	s.rows[a.ID] = a
	return a, nil
}

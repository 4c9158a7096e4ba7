package calls

import (
	"context"
	"sync"
	"time"

	"outdial-platform/internal/apperr"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store useful for tests.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string]CallRun
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]CallRun)}
}

func (s *MemoryStore) Insert(ctx context.Context, r CallRun) (CallRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now().UTC()
	}
	s.rows[r.ID] = r
	return r, nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (CallRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return CallRun{}, apperr.NotFoundf("Call run not found")
	}
	return r, nil
}

func (s *MemoryStore) MarkStopped(ctx context.Context, id string) (CallRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return CallRun{}, apperr.NotFoundf("Call run not found")
	}
	now := time.Now().UTC()
	r.Status = StatusStopped
	r.StoppedAt = &now
	s.rows[id] = r
	return r, nil
}

// All returns every stored run, for test assertions.
func (s *MemoryStore) All() []CallRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CallRun, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	return out
}

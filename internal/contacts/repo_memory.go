package contacts

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"outdial-platform/internal/apperr"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store useful for tests.
// It is not intended for production use.
type MemoryStore struct {
	mu   sync.Mutex
	rows map[string]Contact
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[string]Contact)}
}

func (s *MemoryStore) Create(ctx context.Context, c Contact) (Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.rows {
		if existing.PhoneE164 == c.PhoneE164 {
			return Contact{}, ErrDuplicatePhone
		}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	s.rows[c.ID] = c
	return c, nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.rows[id]
	if !ok {
		return Contact{}, apperr.NotFoundf("Contact not found")
	}
	return c, nil
}

func (s *MemoryStore) List(ctx context.Context, q ListQuery) (ListResult, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 || q.PerPage > 100 {
		q.PerPage = 20
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []Contact
	for _, c := range s.rows {
		if q.Q != "" {
			needle := strings.ToLower(q.Q)
			if !strings.Contains(strings.ToLower(c.FirstName), needle) &&
				!strings.Contains(strings.ToLower(c.LastName), needle) &&
				!strings.Contains(strings.ToLower(c.Email), needle) {
				continue
			}
		}
		if len(q.Tags) > 0 && !hasAllTags(c.Tags, q.Tags) {
			continue
		}
		if q.Source != "" && c.Source != q.Source {
			continue
		}
		if q.Phone != "" && c.PhoneE164 != q.Phone {
			continue
		}
		matched = append(matched, c)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	from := (q.Page - 1) * q.PerPage
	if from > total {
		from = total
	}
	to := from + q.PerPage
	if to > total {
		to = total
	}

	return ListResult{
		Contacts: append([]Contact{}, matched[from:to]...),
		Page:     q.Page,
		PerPage:  q.PerPage,
		Total:    total,
	}, nil
}

func (s *MemoryStore) FindByFilter(ctx context.Context, f Filter) ([]Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idSet := make(map[string]struct{}, len(f.IDs))
	for _, id := range f.IDs {
		idSet[id] = struct{}{}
	}

	var out []Contact
	for _, c := range s.rows {
		if len(f.IDs) > 0 {
			if _, ok := idSet[c.ID]; !ok {
				continue
			}
		}
		if len(f.Tags) > 0 && !hasAllTags(c.Tags, f.Tags) {
			continue
		}
		if f.Source != "" && c.Source != f.Source {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) ExistingPhones(ctx context.Context) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]struct{}, len(s.rows))
	for _, c := range s.rows {
		out[c.PhoneE164] = struct{}{}
	}
	return out, nil
}

func hasAllTags(have, want []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, t := range have {
		set[t] = struct{}{}
	}
	for _, t := range want {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}

// MemoryDNCStore is an in-memory DNCStore useful for tests.
type MemoryDNCStore struct {
	mu   sync.Mutex
	rows map[string]DNCEntry
}

func NewMemoryDNCStore() *MemoryDNCStore {
	return &MemoryDNCStore{rows: make(map[string]DNCEntry)}
}

func (s *MemoryDNCStore) IsListed(ctx context.Context, phoneE164 string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rows[phoneE164]
	return ok, nil
}

func (s *MemoryDNCStore) ListPhones(ctx context.Context) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]struct{}, len(s.rows))
	for p := range s.rows {
		out[p] = struct{}{}
	}
	return out, nil
}

func (s *MemoryDNCStore) Add(ctx context.Context, e DNCEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	s.rows[e.PhoneE164] = e
	return nil
}

func (s *MemoryDNCStore) Remove(ctx context.Context, phoneE164 string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, phoneE164)
	return nil
}

func (s *MemoryDNCStore) List(ctx context.Context) ([]DNCEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]DNCEntry, 0, len(s.rows))
	for _, e := range s.rows {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PhoneE164 < out[j].PhoneE164 })
	return out, nil
}

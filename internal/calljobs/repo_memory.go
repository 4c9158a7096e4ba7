package calljobs

import (
	"context"
	"sort"
	"sync"
	"time"

	"outdial-platform/internal/apperr"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store useful for tests.
//
// FailEnrollment, when set, makes CreateWithContacts fail after the job
// would have been written, which lets tests exercise the all-or-nothing
// guarantee.
type MemoryStore struct {
	mu       sync.Mutex
	jobs     map[string]CallJob
	contacts map[string]map[string]CallJobContact // jobID -> contactID -> row

	FailEnrollment error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:     make(map[string]CallJob),
		contacts: make(map[string]map[string]CallJobContact),
	}
}

func (s *MemoryStore) CreateWithContacts(ctx context.Context, job CallJob, contactIDs []string) (CallJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailEnrollment != nil {
		// Atomicity: the job must not be observable either.
		return CallJob{}, s.FailEnrollment
	}

	now := time.Now().UTC()
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.CreatedAt = now
	job.UpdatedAt = now
	job.TotalContacts = len(contactIDs)
	s.jobs[job.ID] = job

	rows := make(map[string]CallJobContact, len(contactIDs))
	for _, contactID := range contactIDs {
		rows[contactID] = CallJobContact{
			CallJobID: job.ID,
			ContactID: contactID,
			Status:    ContactQueued,
			UpdatedAt: now,
		}
	}
	s.contacts[job.ID] = rows
	return job, nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (CallJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return CallJob{}, apperr.NotFoundf("Job not found")
	}
	return job, nil
}

func (s *MemoryStore) ListByStatus(ctx context.Context, statuses ...Status) ([]CallJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := make(map[Status]struct{}, len(statuses))
	for _, st := range statuses {
		want[st] = struct{}{}
	}

	var out []CallJob
	for _, job := range s.jobs {
		if _, ok := want[job.Status]; ok {
			out = append(out, job)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) Transition(ctx context.Context, id string, to Status, allowedFrom ...Status) (CallJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return CallJob{}, apperr.NotFoundf("Job not found")
	}

	if len(allowedFrom) > 0 {
		allowed := false
		for _, st := range allowedFrom {
			if job.Status == st {
				allowed = true
				break
			}
		}
		if !allowed {
			return CallJob{}, ErrConflict
		}
	}

	job.Status = to
	job.UpdatedAt = time.Now().UTC()
	s.jobs[id] = job
	return job, nil
}

func (s *MemoryStore) LeaseContacts(ctx context.Context, jobID string, limit int) ([]CallJobContact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	staleBefore := time.Now().UTC().Add(-staleLeaseAfter)
	rows := s.contacts[jobID]
	ids := make([]string, 0, len(rows))
	for id, jc := range rows {
		if jc.Status == ContactQueued {
			ids = append(ids, id)
			continue
		}
		// Orphaned lease from a crashed pass or failed release.
		if jc.Status == ContactCalling && jc.UpdatedAt.Before(staleBefore) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}

	now := time.Now().UTC()
	out := make([]CallJobContact, 0, len(ids))
	for _, id := range ids {
		jc := rows[id]
		jc.Status = ContactCalling
		jc.UpdatedAt = now
		rows[id] = jc
		out = append(out, jc)
	}
	return out, nil
}

func (s *MemoryStore) SetContactStatus(ctx context.Context, jobID, contactID string, to ContactStatus, countAttempt bool) (CallJobContact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.contacts[jobID]
	jc, ok := rows[contactID]
	if !ok {
		return CallJobContact{}, apperr.NotFoundf("Job contact not found")
	}
	jc.Status = to
	if countAttempt {
		jc.Attempts++
	}
	jc.UpdatedAt = time.Now().UTC()
	rows[contactID] = jc
	return jc, nil
}

func (s *MemoryStore) PendingCount(ctx context.Context, jobID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, jc := range s.contacts[jobID] {
		if jc.Status == ContactQueued || jc.Status == ContactCalling {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Progress(ctx context.Context, jobID string) (Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var p Progress
	for _, jc := range s.contacts[jobID] {
		switch jc.Status {
		case ContactQueued:
			p.Queued++
		case ContactCalling:
			p.Calling++
		case ContactCompleted:
			p.Completed++
		case ContactFailed:
			p.Failed++
		case ContactSkipped:
			p.Skipped++
		}
	}
	return p, nil
}

// Contacts returns a job's enrollment rows, for test assertions.
func (s *MemoryStore) Contacts(jobID string) []CallJobContact {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.contacts[jobID]
	out := make([]CallJobContact, 0, len(rows))
	for _, jc := range rows {
		out = append(out, jc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContactID < out[j].ContactID })
	return out
}

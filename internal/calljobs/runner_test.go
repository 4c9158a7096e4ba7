package calljobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"outdial-platform/internal/apperr"
	"outdial-platform/internal/calls"
	"outdial-platform/internal/config"
)

// fakeDialer records dial attempts and maps contact ids to canned errors.
type fakeDialer struct {
	mu       sync.Mutex
	dialed   []string
	failWith map[string]error
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{failWith: make(map[string]error)}
}

func (d *fakeDialer) Start(ctx context.Context, agentID, contactID string) (calls.StartResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dialed = append(d.dialed, contactID)
	if err, ok := d.failWith[contactID]; ok {
		return calls.StartResult{}, err
	}
	return calls.StartResult{CallRunID: "run-" + contactID, ExternalCallID: "ext-" + contactID, Status: calls.StatusInitiated}, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.dialed)
}

// fakeLimiter admits a fixed number of dials, then denies.
type fakeLimiter struct {
	mu        sync.Mutex
	remaining int
}

func (l *fakeLimiter) Allow(ctx context.Context, key string, perMinute int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.remaining <= 0 {
		return false, nil
	}
	l.remaining--
	return true, nil
}

type runnerFixture struct {
	runner *Runner
	store  *MemoryStore
	dialer *fakeDialer
}

func newRunnerFixture(t *testing.T, limiter *fakeLimiter, cfg config.RunnerConfig) *runnerFixture {
	t.Helper()
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 10
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	f := &runnerFixture{
		store:  NewMemoryStore(),
		dialer: newFakeDialer(),
	}
	f.runner = NewRunner(f.store, f.dialer, limiter, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return f
}

func (f *runnerFixture) seedJob(t *testing.T, status Status, contactIDs ...string) CallJob {
	t.Helper()
	job, err := f.store.CreateWithContacts(context.Background(), CallJob{
		AgentID: "agent-1",
		Name:    "batch",
		Status:  status,
		Config:  Config{RateLimit: 10},
	}, contactIDs)
	if err != nil {
		t.Fatalf("seed job: %v", err)
	}
	return job
}

func (f *runnerFixture) contactStatus(t *testing.T, jobID, contactID string) CallJobContact {
	t.Helper()
	for _, cjc := range f.store.Contacts(jobID) {
		if cjc.ContactID == contactID {
			return cjc
		}
	}
	t.Fatalf("contact %s not found on job %s", contactID, jobID)
	return CallJobContact{}
}

func TestRunnerCompletesQueuedJob(t *testing.T) {
	f := newRunnerFixture(t, &fakeLimiter{remaining: 100}, config.RunnerConfig{})
	job := f.seedJob(t, StatusQueued, "c1", "c2", "c3")

	if err := f.runner.ProcessOnce(context.Background()); err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}

	got, _ := f.store.GetByID(context.Background(), job.ID)
	if got.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
	if f.dialer.dialCount() != 3 {
		t.Fatalf("expected 3 dials, got %d", f.dialer.dialCount())
	}
	for _, id := range []string{"c1", "c2", "c3"} {
		if st := f.contactStatus(t, job.ID, id).Status; st != ContactCompleted {
			t.Fatalf("contact %s: expected completed, got %s", id, st)
		}
	}
}

func TestRunnerIgnoresNonQueuedJobs(t *testing.T) {
	f := newRunnerFixture(t, &fakeLimiter{remaining: 100}, config.RunnerConfig{})
	f.seedJob(t, StatusDraft, "c1")
	f.seedJob(t, StatusPaused, "c2")
	f.seedJob(t, StatusFailed, "c3")

	if err := f.runner.ProcessOnce(context.Background()); err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}
	if f.dialer.dialCount() != 0 {
		t.Fatalf("nothing should be dialed, got %d", f.dialer.dialCount())
	}
}

func TestRunnerRateLimitDenialRequeuesContact(t *testing.T) {
	f := newRunnerFixture(t, &fakeLimiter{remaining: 1}, config.RunnerConfig{})
	job := f.seedJob(t, StatusQueued, "c1", "c2")

	if err := f.runner.ProcessOnce(context.Background()); err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}

	if f.dialer.dialCount() != 1 {
		t.Fatalf("expected exactly 1 dial under the cap, got %d", f.dialer.dialCount())
	}
	got, _ := f.store.GetByID(context.Background(), job.ID)
	if got.Status != StatusQueued {
		t.Fatalf("job with pending work must return to queued, got %s", got.Status)
	}

	var queued int
	for _, cjc := range f.store.Contacts(job.ID) {
		if cjc.Status == ContactQueued {
			queued++
		}
	}
	if queued != 1 {
		t.Fatalf("expected 1 contact released back to queued, got %d", queued)
	}
}

func TestRunnerSkipsPermanentFailures(t *testing.T) {
	f := newRunnerFixture(t, &fakeLimiter{remaining: 100}, config.RunnerConfig{})
	job := f.seedJob(t, StatusQueued, "c1", "c2")
	f.dialer.failWith["c1"] = apperr.InvalidStatef("Contact is on DNC list")

	if err := f.runner.ProcessOnce(context.Background()); err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}

	if st := f.contactStatus(t, job.ID, "c1").Status; st != ContactSkipped {
		t.Fatalf("DNC failure must skip, got %s", st)
	}
	if st := f.contactStatus(t, job.ID, "c2").Status; st != ContactCompleted {
		t.Fatalf("other contact should complete, got %s", st)
	}
	got, _ := f.store.GetByID(context.Background(), job.ID)
	if got.Status != StatusCompleted {
		t.Fatalf("skipped contacts still count toward completion, got %s", got.Status)
	}
}

func TestRunnerRetriesTransientFailuresUntilExhausted(t *testing.T) {
	f := newRunnerFixture(t, &fakeLimiter{remaining: 100}, config.RunnerConfig{MaxAttempts: 2})
	job := f.seedJob(t, StatusQueued, "c1")
	f.dialer.failWith["c1"] = errors.New("upstream timeout")

	// First pass: attempt 1 fails, contact requeued, job back to queued.
	if err := f.runner.ProcessOnce(context.Background()); err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}
	cjc := f.contactStatus(t, job.ID, "c1")
	if cjc.Status != ContactQueued || cjc.Attempts != 1 {
		t.Fatalf("expected requeued with 1 attempt, got %s/%d", cjc.Status, cjc.Attempts)
	}
	got, _ := f.store.GetByID(context.Background(), job.ID)
	if got.Status != StatusQueued {
		t.Fatalf("expected queued, got %s", got.Status)
	}

	// Second pass: attempts exhausted, contact failed, job completes.
	if err := f.runner.ProcessOnce(context.Background()); err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}
	cjc = f.contactStatus(t, job.ID, "c1")
	if cjc.Status != ContactFailed || cjc.Attempts != 2 {
		t.Fatalf("expected failed with 2 attempts, got %s/%d", cjc.Status, cjc.Attempts)
	}
	got, _ = f.store.GetByID(context.Background(), job.ID)
	if got.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
}

func TestRunnerHonorsMidBatchPause(t *testing.T) {
	f := newRunnerFixture(t, &fakeLimiter{remaining: 100}, config.RunnerConfig{})
	job := f.seedJob(t, StatusQueued, "c1", "c2", "c3")

	// Pause the job as soon as the first dial lands.
	paused := false
	dialer := f.dialer
	f.runner.dialer = dialerFunc(func(ctx context.Context, agentID, contactID string) (calls.StartResult, error) {
		res, err := dialer.Start(ctx, agentID, contactID)
		if !paused {
			paused = true
			if _, terr := f.store.Transition(ctx, job.ID, StatusPaused); terr != nil {
				t.Fatalf("pause mid-batch: %v", terr)
			}
		}
		return res, err
	})

	if err := f.runner.ProcessOnce(context.Background()); err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}

	if f.dialer.dialCount() != 1 {
		t.Fatalf("pause must stop the batch after 1 dial, got %d", f.dialer.dialCount())
	}
	got, _ := f.store.GetByID(context.Background(), job.ID)
	if got.Status != StatusPaused {
		t.Fatalf("paused job must stay paused, got %s", got.Status)
	}

	var queued int
	for _, cjc := range f.store.Contacts(job.ID) {
		if cjc.Status == ContactQueued {
			queued++
		}
	}
	if queued != 2 {
		t.Fatalf("undialed contacts must be released, got %d queued", queued)
	}
}

type dialerFunc func(ctx context.Context, agentID, contactID string) (calls.StartResult, error)

func (fn dialerFunc) Start(ctx context.Context, agentID, contactID string) (calls.StartResult, error) {
	return fn(ctx, agentID, contactID)
}

// erringLimiter fails exactly one admission check, then behaves.
type erringLimiter struct {
	mu     sync.Mutex
	calls  int
	failOn int
}

func (l *erringLimiter) Allow(ctx context.Context, key string, perMinute int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.calls == l.failOn {
		return false, errors.New("redis timeout")
	}
	return true, nil
}

func TestRunnerLimiterErrorDoesNotStrandJob(t *testing.T) {
	f := newRunnerFixture(t, &fakeLimiter{remaining: 100}, config.RunnerConfig{})
	f.runner.limiter = &erringLimiter{failOn: 2}
	job := f.seedJob(t, StatusQueued, "c1", "c2", "c3")

	// The failing pass must back out cleanly: undialed leases released,
	// job handed back to the queue.
	if err := f.runner.ProcessOnce(context.Background()); err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}

	got, _ := f.store.GetByID(context.Background(), job.ID)
	if got.Status != StatusQueued {
		t.Fatalf("job must return to queued after a limiter failure, got %s", got.Status)
	}
	if f.dialer.dialCount() != 1 {
		t.Fatalf("expected 1 dial before the failure, got %d", f.dialer.dialCount())
	}
	for _, id := range []string{"c2", "c3"} {
		if st := f.contactStatus(t, job.ID, id).Status; st != ContactQueued {
			t.Fatalf("contact %s must be released, got %s", id, st)
		}
	}

	// The next healthy pass finishes the job.
	if err := f.runner.ProcessOnce(context.Background()); err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}
	got, _ = f.store.GetByID(context.Background(), job.ID)
	if got.Status != StatusCompleted {
		t.Fatalf("expected completed after recovery, got %s", got.Status)
	}
	if f.dialer.dialCount() != 3 {
		t.Fatalf("expected all 3 contacts dialed, got %d", f.dialer.dialCount())
	}
}

func TestLeaseContactsReclaimsStaleCallingRows(t *testing.T) {
	store := NewMemoryStore()
	job, err := store.CreateWithContacts(context.Background(), CallJob{
		AgentID: "agent-1", Status: StatusQueued, Config: Config{RateLimit: 10},
	}, []string{"c1"})
	if err != nil {
		t.Fatalf("seed job: %v", err)
	}

	leased, err := store.LeaseContacts(context.Background(), job.ID, 10)
	if err != nil || len(leased) != 1 {
		t.Fatalf("first lease: %v (%d rows)", err, len(leased))
	}

	// A fresh lease is held; a second pass must not steal it.
	again, err := store.LeaseContacts(context.Background(), job.ID, 10)
	if err != nil || len(again) != 0 {
		t.Fatalf("fresh lease must not be reclaimed: %v (%d rows)", err, len(again))
	}

	// Age the lease past the staleness bound, as if the holding pass
	// crashed without releasing it.
	store.mu.Lock()
	jc := store.contacts[job.ID]["c1"]
	jc.UpdatedAt = time.Now().UTC().Add(-staleLeaseAfter - time.Minute)
	store.contacts[job.ID]["c1"] = jc
	store.mu.Unlock()

	reclaimed, err := store.LeaseContacts(context.Background(), job.ID, 10)
	if err != nil || len(reclaimed) != 1 {
		t.Fatalf("stale lease must be reclaimed: %v (%d rows)", err, len(reclaimed))
	}
	if reclaimed[0].ContactID != "c1" || reclaimed[0].Status != ContactCalling {
		t.Fatalf("unexpected reclaimed row: %+v", reclaimed[0])
	}
}

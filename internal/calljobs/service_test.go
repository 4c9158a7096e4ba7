package calljobs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"outdial-platform/internal/agents"
	"outdial-platform/internal/apperr"
	"outdial-platform/internal/contacts"
)

type serviceFixture struct {
	svc      *Service
	jobs     *MemoryStore
	agents   *agents.MemoryStore
	contacts *contacts.MemoryStore
	dnc      *contacts.MemoryDNCStore
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		jobs:     NewMemoryStore(),
		agents:   agents.NewMemoryStore(),
		contacts: contacts.NewMemoryStore(),
		dnc:      contacts.NewMemoryDNCStore(),
	}
	f.svc = NewService(f.jobs, f.agents, f.contacts, f.dnc)
	return f
}

func (f *serviceFixture) seedAgent(t *testing.T, mode agents.Mode, active bool) agents.Agent {
	t.Helper()
	a, err := f.agents.Upsert(context.Background(), agents.Agent{
		Name:            "Sales Agent",
		Provider:        "retell",
		ExternalAgentID: "agent_ext_1",
		Mode:            mode,
		IsActive:        active,
	})
	if err != nil {
		t.Fatalf("seed agent: %v", err)
	}
	return a
}

func (f *serviceFixture) seedContact(t *testing.T, phone string, tags []string) contacts.Contact {
	t.Helper()
	c, err := f.contacts.Create(context.Background(), contacts.Contact{
		FirstName: "Test",
		PhoneE164: phone,
		Phone:     phone,
		Tags:      tags,
		Source:    "test",
	})
	if err != nil {
		t.Fatalf("seed contact %s: %v", phone, err)
	}
	return c
}

func TestCreateRejectsMissingAgent(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Create(context.Background(), CreateRequest{AgentID: "nope"})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if jobs, _ := f.jobs.ListByStatus(context.Background(), StatusDraft); len(jobs) != 0 {
		t.Fatalf("no job should be persisted, found %d", len(jobs))
	}
}

func TestCreateRejectsWrongAgentMode(t *testing.T) {
	f := newServiceFixture(t)
	a := f.seedAgent(t, agents.ModeInbound, true)
	f.seedContact(t, "+447700900001", nil)

	_, err := f.svc.Create(context.Background(), CreateRequest{AgentID: a.ID})
	if !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if got := apperr.Message(err); got != "Agent must be outbound mode" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestCreateRejectsInactiveAgent(t *testing.T) {
	f := newServiceFixture(t)
	a := f.seedAgent(t, agents.ModeOutbound, false)

	_, err := f.svc.Create(context.Background(), CreateRequest{AgentID: a.ID})
	if got := apperr.Message(err); got != "Agent is not active" {
		t.Fatalf("unexpected message %q (err %v)", got, err)
	}
}

func TestCreateFiltersAndSubtractsDNC(t *testing.T) {
	f := newServiceFixture(t)
	a := f.seedAgent(t, agents.ModeOutbound, true)

	// Ten contacts, three tagged hot, one of the hot ones on the DNC list.
	for i := 0; i < 10; i++ {
		var tags []string
		if i < 3 {
			tags = []string{"hot"}
		}
		f.seedContact(t, fmt.Sprintf("+4477009000%02d", i), tags)
	}
	if err := f.dnc.Add(context.Background(), contacts.DNCEntry{PhoneE164: "+447700900000", Reason: "requested"}); err != nil {
		t.Fatalf("seed dnc: %v", err)
	}

	res, err := f.svc.Create(context.Background(), CreateRequest{
		AgentID:        a.ID,
		ContactFilters: &contacts.Filter{Tags: []string{"hot"}},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.TotalContacts != 2 {
		t.Fatalf("expected 2 enrolled contacts, got %d", res.TotalContacts)
	}
	if res.Status != StatusDraft {
		t.Fatalf("new job should be draft, got %s", res.Status)
	}
	if got := len(f.jobs.Contacts(res.JobID)); got != 2 {
		t.Fatalf("expected 2 enrollment rows, got %d", got)
	}
}

func TestCreateRejectsEmptyContactSet(t *testing.T) {
	f := newServiceFixture(t)
	a := f.seedAgent(t, agents.ModeOutbound, true)
	c := f.seedContact(t, "+447700900001", nil)
	if err := f.dnc.Add(context.Background(), contacts.DNCEntry{PhoneE164: c.PhoneE164}); err != nil {
		t.Fatalf("seed dnc: %v", err)
	}

	_, err := f.svc.Create(context.Background(), CreateRequest{AgentID: a.ID})
	if got := apperr.Message(err); got != "No valid contacts found" {
		t.Fatalf("unexpected message %q (err %v)", got, err)
	}
	if jobs, _ := f.jobs.ListByStatus(context.Background(), StatusDraft); len(jobs) != 0 {
		t.Fatalf("no job should be persisted, found %d", len(jobs))
	}
}

func TestCreateRollsBackOnEnrollmentFailure(t *testing.T) {
	f := newServiceFixture(t)
	a := f.seedAgent(t, agents.ModeOutbound, true)
	f.seedContact(t, "+447700900001", nil)
	f.jobs.FailEnrollment = errors.New("constraint violation")

	_, err := f.svc.Create(context.Background(), CreateRequest{AgentID: a.ID})
	if err == nil {
		t.Fatal("expected error")
	}
	if jobs, _ := f.jobs.ListByStatus(context.Background(),
		StatusDraft, StatusQueued, StatusRunning, StatusPaused, StatusCompleted, StatusFailed); len(jobs) != 0 {
		t.Fatalf("failed creation must leave no job row, found %d", len(jobs))
	}
}

func TestCreateDefaultsNameAndRateLimit(t *testing.T) {
	f := newServiceFixture(t)
	a := f.seedAgent(t, agents.ModeOutbound, true)
	f.seedContact(t, "+447700900001", nil)

	res, err := f.svc.Create(context.Background(), CreateRequest{AgentID: a.ID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	job, err := f.jobs.GetByID(context.Background(), res.JobID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if job.Name == "" {
		t.Fatal("expected a generated default name")
	}
	if job.Config.RateLimit != defaultRateLimit {
		t.Fatalf("expected default rate limit %d, got %d", defaultRateLimit, job.Config.RateLimit)
	}
}

func TestControlTransitions(t *testing.T) {
	cases := []struct {
		from    Status
		action  Action
		want    Status
		wantErr string
	}{
		{StatusDraft, ActionStart, StatusQueued, ""},
		{StatusQueued, ActionStart, "", "Job already started"},
		{StatusRunning, ActionStart, "", "Job already started"},
		{StatusQueued, ActionPause, StatusPaused, ""},
		{StatusRunning, ActionPause, StatusPaused, ""},
		{StatusDraft, ActionPause, "", "Job not running"},
		{StatusPaused, ActionPause, "", "Job not running"},
		{StatusPaused, ActionResume, StatusQueued, ""},
		{StatusDraft, ActionResume, "", "Job not paused"},
		{StatusRunning, ActionResume, "", "Job not paused"},
		{StatusDraft, ActionCancel, StatusFailed, ""},
		{StatusQueued, ActionCancel, StatusFailed, ""},
		{StatusRunning, ActionCancel, StatusFailed, ""},
		{StatusPaused, ActionCancel, StatusFailed, ""},
		{StatusCompleted, ActionCancel, StatusFailed, ""},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s_%s", tc.from, tc.action), func(t *testing.T) {
			f := newServiceFixture(t)
			a := f.seedAgent(t, agents.ModeOutbound, true)
			f.seedContact(t, "+447700900001", nil)

			created, err := f.svc.Create(context.Background(), CreateRequest{AgentID: a.ID})
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if tc.from != StatusDraft {
				if _, err := f.jobs.Transition(context.Background(), created.JobID, tc.from); err != nil {
					t.Fatalf("seed status %s: %v", tc.from, err)
				}
			}

			res, err := f.svc.Control(context.Background(), created.JobID, tc.action)
			if tc.wantErr != "" {
				if !errors.Is(err, apperr.ErrInvalidState) {
					t.Fatalf("expected ErrInvalidState, got %v", err)
				}
				if got := apperr.Message(err); got != tc.wantErr {
					t.Fatalf("expected %q, got %q", tc.wantErr, got)
				}
				job, _ := f.jobs.GetByID(context.Background(), created.JobID)
				if job.Status != tc.from {
					t.Fatalf("rejected action must not move the job, got %s", job.Status)
				}
				return
			}
			if err != nil {
				t.Fatalf("Control: %v", err)
			}
			if res.Status != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, res.Status)
			}
		})
	}
}

func TestControlUnknownJob(t *testing.T) {
	f := newServiceFixture(t)
	_, err := f.svc.Control(context.Background(), "missing", ActionStart)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestControlInvalidAction(t *testing.T) {
	f := newServiceFixture(t)
	a := f.seedAgent(t, agents.ModeOutbound, true)
	f.seedContact(t, "+447700900001", nil)
	created, err := f.svc.Create(context.Background(), CreateRequest{AgentID: a.ID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = f.svc.Control(context.Background(), created.JobID, Action("explode"))
	if !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestGetReturnsProgress(t *testing.T) {
	f := newServiceFixture(t)
	a := f.seedAgent(t, agents.ModeOutbound, true)
	f.seedContact(t, "+447700900001", nil)
	f.seedContact(t, "+447700900002", nil)

	created, err := f.svc.Create(context.Background(), CreateRequest{AgentID: a.ID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	job, progress, err := f.svc.Get(context.Background(), created.JobID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if job.TotalContacts != 2 {
		t.Fatalf("expected 2 total contacts, got %d", job.TotalContacts)
	}
	if progress.Queued != 2 {
		t.Fatalf("expected 2 queued, got %+v", progress)
	}
}

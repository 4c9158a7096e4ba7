package audit

import (
	"context"
	"testing"
)

func TestService_AppendRequiresType(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Event{Message: "no type"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestService_AppendsImmutableEvents(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogJobControl(context.Background(), "user-1", "operator", "10.0.0.1", "job-1", "pause", "accepted"); err != nil {
		t.Fatalf("LogJobControl: %v", err)
	}
	if err := svc.LogDNCChange(context.Background(), "user-1", "admin", "10.0.0.1", "+447700900123", "added"); err != nil {
		t.Fatalf("LogDNCChange: %v", err)
	}

	events := repo.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Type != EventTypeJobControl || events[0].JobID != "job-1" {
		t.Fatalf("unexpected first event: %+v", events[0])
	}
	if events[0].ID == "" || events[0].CreatedAt.IsZero() {
		t.Fatalf("id and created_at must be filled in")
	}
	if events[1].Type != EventTypeDNCChange || events[1].PhoneE164 != "+447700900123" {
		t.Fatalf("unexpected second event: %+v", events[1])
	}

	dnc := repo.EventsOfType(EventTypeDNCChange)
	if len(dnc) != 1 || dnc[0].PhoneE164 != "+447700900123" {
		t.Fatalf("unexpected dnc trail: %+v", dnc)
	}
}

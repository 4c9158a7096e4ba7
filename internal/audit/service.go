package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
//
// IMPORTANT:
// - Audit is internal-only. Do not expose these records to API consumers.
// - Callers should treat audit logging as best-effort.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogJobControl records a control action applied to a call job.
func (s *Service) LogJobControl(ctx context.Context, actorUserID, actorRole, ip, jobID, action, outcome string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeJobControl,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		JobID:       jobID,
		Message:     action + ": " + outcome,
	})
}

// LogDNCChange records an addition to or removal from the do-not-call list.
func (s *Service) LogDNCChange(ctx context.Context, actorUserID, actorRole, ip, phoneE164, change string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeDNCChange,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		PhoneE164:   phoneE164,
		Message:     change,
	})
}

// LogAgentImport records an agent definition pulled from a vendor.
func (s *Service) LogAgentImport(ctx context.Context, actorUserID, actorRole, ip, agentID, provider string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeAgentImport,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		AgentID:     agentID,
		Message:     "imported from " + provider,
	})
}

// LogCallStart records a manually initiated outbound call.
func (s *Service) LogCallStart(ctx context.Context, actorUserID, actorRole, ip, callRunID, agentID string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeCallStart,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		CallRunID:   callRunID,
		AgentID:     agentID,
		Message:     "call started",
	})
}

package audit

import "time"

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - Actor and ip capture are best-effort; do not block critical flows on audit failures.
//
// Storage (Postgres): table audit_events with an INSERT-only policy.

type Event struct {
	ID string `json:"id" db:"id"`

	// Type indicates the business category of the audit record.
	Type EventType `json:"type" db:"type"`

	// ActorUserID is the authenticated user causing the event (if applicable).
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`

	// IPAddress should capture the original client IP when available.
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	// Target identifiers (optional, depending on the event type).
	JobID     string `json:"job_id,omitempty" db:"job_id"`
	AgentID   string `json:"agent_id,omitempty" db:"agent_id"`
	CallRunID string `json:"call_run_id,omitempty" db:"call_run_id"`
	PhoneE164 string `json:"phone_e164,omitempty" db:"phone_e164"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeJobControl  EventType = "job_control"
	EventTypeDNCChange   EventType = "dnc_change"
	EventTypeAgentImport EventType = "agent_import"
	EventTypeCallStart   EventType = "call_start"
)

package calls

import "time"

// CallRun is the record of one concrete dial attempt, append-only.
// One row exists per provider-accepted dial; nothing is written when the
// vendor rejects the call.
type CallRun struct {
	ID             string `json:"id" db:"id"`
	ExternalCallID string `json:"external_call_id" db:"external_call_id"`
	AgentID        string `json:"agent_id" db:"agent_id"`
	ContactID      string `json:"contact_id" db:"contact_id"`
	Provider       string `json:"provider" db:"provider"`
	Direction      string `json:"direction" db:"direction"`

	Status Status `json:"status" db:"status"`

	StartedAt time.Time  `json:"started_at" db:"started_at"`
	StoppedAt *time.Time `json:"stopped_at,omitempty" db:"stopped_at"`
}

type Status string

const (
	StatusInitiated Status = "initiated"
	StatusStopped   Status = "stopped"
)

const DirectionOutbound = "outbound"

package agents

import "time"

// Agent maps an internal agent id to a vendor-side agent.
//
// The call core reads agents; writes happen only through import. An agent
// must be outbound and active to be eligible for call jobs.
type Agent struct {
	ID              string `json:"id" db:"id"`
	Name            string `json:"name" db:"name"`
	Provider        string `json:"provider" db:"provider"` // retell | vapi
	ExternalAgentID string `json:"external_agent_id" db:"external_agent_id"`
	Mode            Mode   `json:"mode" db:"mode"`
	IsActive        bool   `json:"is_active" db:"is_active"`

	// Prompt and ConfigJSON are vendor snapshots captured at import time.
	Prompt     string `json:"prompt,omitempty" db:"prompt"`
	ConfigJSON string `json:"-" db:"config_json"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Mode string

const (
	ModeInbound  Mode = "inbound"
	ModeOutbound Mode = "outbound"
)

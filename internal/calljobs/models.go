package calljobs

import "time"

// CallJob is a batch outbound-dial campaign against a filtered contact set.
//
// Lifecycle:
//
//	draft -> queued -> running -> completed
//	          ^  |        |
//	          |  v        v
//	          paused <----+        cancel: any -> failed
//
// draft is the only state start accepts; pause works from queued or
// running; resume only from paused; cancel is unconditional. completed is
// reached solely by the runner draining the last enrolled contact.
type CallJob struct {
	ID            string `json:"id" db:"id"`
	AgentID       string `json:"agent_id" db:"agent_id"`
	Name          string `json:"name" db:"name"`
	Status        Status `json:"status" db:"status"`
	TotalContacts int    `json:"total_contacts" db:"total_contacts"`

	// Config is stored as config_json in Postgres.
	Config Config `json:"config" db:"config_json"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Config carries per-job dialing policy.
type Config struct {
	// RateLimit is the dial admission cap in calls per minute.
	RateLimit int `json:"rate_limit"`
}

type Status string

const (
	StatusDraft     Status = "draft"
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// CallJobContact is one contact enrolled in a job. The set is fixed at
// creation; rows only change status and attempts afterwards.
type CallJobContact struct {
	CallJobID string        `json:"call_job_id" db:"call_job_id"`
	ContactID string        `json:"contact_id" db:"contact_id"`
	Status    ContactStatus `json:"status" db:"status"`
	Attempts  int           `json:"attempts" db:"attempts"`

	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type ContactStatus string

const (
	ContactQueued    ContactStatus = "queued"
	ContactCalling   ContactStatus = "calling"
	ContactCompleted ContactStatus = "completed"
	ContactFailed    ContactStatus = "failed"

	// ContactSkipped marks permanent precondition failures discovered at
	// dial time (e.g. the phone landed on the DNC list after enrollment).
	ContactSkipped ContactStatus = "skipped"
)

// Action is a control-endpoint verb.
type Action string

const (
	ActionStart  Action = "start"
	ActionPause  Action = "pause"
	ActionResume Action = "resume"
	ActionCancel Action = "cancel"
)

// Progress summarizes job contact counts for the status endpoint.
type Progress struct {
	Queued    int `json:"queued"`
	Calling   int `json:"calling"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

package calljobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"outdial-platform/internal/agents"
	"outdial-platform/internal/apperr"
	"outdial-platform/internal/contacts"
)

const defaultRateLimit = 10 // calls per minute

// Service owns job creation and the control-endpoint state machine.
type Service struct {
	jobs     Store
	agents   agents.Store
	contacts contacts.Store
	dnc      contacts.DNCStore
	clock    func() time.Time
}

func NewService(jobStore Store, agentStore agents.Store, contactStore contacts.Store, dncStore contacts.DNCStore) *Service {
	return &Service{
		jobs:     jobStore,
		agents:   agentStore,
		contacts: contactStore,
		dnc:      dncStore,
		clock:    time.Now,
	}
}

// CreateRequest is the job-creation contract.
type CreateRequest struct {
	AgentID        string           `json:"agentId"`
	Name           string           `json:"name"`
	ContactFilters *contacts.Filter `json:"contactFilters"`
	RateLimit      int              `json:"rateLimit"`
}

// CreateResult is returned on successful job creation.
type CreateResult struct {
	JobID         string `json:"jobId"`
	TotalContacts int    `json:"totalContacts"`
	Status        Status `json:"status"`
}

// Create builds the candidate contact set (intersection of all provided
// filter predicates), subtracts the DNC list, and persists the draft job
// with its enrollment in one atomic write.
func (s *Service) Create(ctx context.Context, req CreateRequest) (CreateResult, error) {
	if req.AgentID == "" {
		return CreateResult{}, apperr.InvalidStatef("agentId required")
	}

	agent, err := s.agents.GetByID(ctx, req.AgentID)
	if err != nil {
		return CreateResult{}, err
	}
	if agent.Mode != agents.ModeOutbound {
		return CreateResult{}, apperr.InvalidStatef("Agent must be outbound mode")
	}
	if !agent.IsActive {
		return CreateResult{}, apperr.InvalidStatef("Agent is not active")
	}

	filter := contacts.Filter{}
	if req.ContactFilters != nil {
		filter = *req.ContactFilters
	}
	candidates, err := s.contacts.FindByFilter(ctx, filter)
	if err != nil {
		return CreateResult{}, err
	}

	dncPhones, err := s.dnc.ListPhones(ctx)
	if err != nil {
		return CreateResult{}, err
	}

	var valid []string
	for _, c := range candidates {
		if _, excluded := dncPhones[c.PhoneE164]; excluded {
			continue
		}
		valid = append(valid, c.ID)
	}
	if len(valid) == 0 {
		return CreateResult{}, apperr.InvalidStatef("No valid contacts found")
	}

	name := req.Name
	if name == "" {
		name = fmt.Sprintf("Job %s", s.clock().UTC().Format(time.RFC3339))
	}
	rateLimit := req.RateLimit
	if rateLimit <= 0 {
		rateLimit = defaultRateLimit
	}

	job, err := s.jobs.CreateWithContacts(ctx, CallJob{
		AgentID: agent.ID,
		Name:    name,
		Status:  StatusDraft,
		Config:  Config{RateLimit: rateLimit},
	}, valid)
	if err != nil {
		return CreateResult{}, err
	}

	return CreateResult{
		JobID:         job.ID,
		TotalContacts: job.TotalContacts,
		Status:        job.Status,
	}, nil
}

// ControlResult is returned by every accepted control action.
type ControlResult struct {
	JobID  string `json:"jobId"`
	Status Status `json:"status"`
}

// Control applies one state-machine action:
//
//	start:  draft -> queued            (else "Job already started")
//	pause:  running|queued -> paused   (else "Job not running")
//	resume: paused -> queued           (else "Job not paused")
//	cancel: any -> failed
//
// Transitions are single guarded updates; a concurrent move between the
// precondition read and the write surfaces as the same rejection.
func (s *Service) Control(ctx context.Context, jobID string, action Action) (ControlResult, error) {
	if jobID == "" {
		return ControlResult{}, apperr.InvalidStatef("jobId required")
	}

	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return ControlResult{}, err
	}

	var to Status
	var allowedFrom []Status
	var rejection string

	switch action {
	case ActionStart:
		to, allowedFrom, rejection = StatusQueued, []Status{StatusDraft}, "Job already started"
	case ActionPause:
		to, allowedFrom, rejection = StatusPaused, []Status{StatusRunning, StatusQueued}, "Job not running"
	case ActionResume:
		to, allowedFrom, rejection = StatusQueued, []Status{StatusPaused}, "Job not paused"
	case ActionCancel:
		to, allowedFrom, rejection = StatusFailed, nil, ""
	default:
		return ControlResult{}, apperr.InvalidStatef("Invalid action")
	}

	if len(allowedFrom) > 0 && !statusIn(job.Status, allowedFrom) {
		return ControlResult{}, apperr.InvalidStatef("%s", rejection)
	}

	updated, err := s.jobs.Transition(ctx, jobID, to, allowedFrom...)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return ControlResult{}, apperr.InvalidStatef("%s", rejection)
		}
		return ControlResult{}, err
	}

	return ControlResult{JobID: updated.ID, Status: updated.Status}, nil
}

// Get returns a job with its contact progress.
func (s *Service) Get(ctx context.Context, jobID string) (CallJob, Progress, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return CallJob{}, Progress{}, err
	}
	progress, err := s.jobs.Progress(ctx, jobID)
	if err != nil {
		return CallJob{}, Progress{}, err
	}
	return job, progress, nil
}

func statusIn(status Status, set []Status) bool {
	for _, st := range set {
		if status == st {
			return true
		}
	}
	return false
}

package calls

import (
	"context"
	"time"

	"outdial-platform/internal/agents"
	"outdial-platform/internal/apperr"
	"outdial-platform/internal/contacts"
	"outdial-platform/internal/telephony"
)

// Dialer is the single-call initiator: one agent, one contact, one dial.
//
// Ordering invariant: the DNC check happens before any provider traffic,
// and the CallRun row is written only after the provider accepts. A vendor
// rejection leaves no CallRun behind.
type Dialer struct {
	agents    agents.Store
	contacts  contacts.Store
	dnc       contacts.DNCStore
	runs      Store
	providers *telephony.Registry
	clock     func() time.Time
}

func NewDialer(agentStore agents.Store, contactStore contacts.Store, dncStore contacts.DNCStore, runStore Store, providers *telephony.Registry) *Dialer {
	return &Dialer{
		agents:    agentStore,
		contacts:  contactStore,
		dnc:       dncStore,
		runs:      runStore,
		providers: providers,
		clock:     time.Now,
	}
}

// StartResult is the API response shape for a started call.
type StartResult struct {
	CallRunID      string `json:"callRunId"`
	ExternalCallID string `json:"externalCallId"`
	Status         Status `json:"status"`
}

func (d *Dialer) Start(ctx context.Context, agentID, contactID string) (StartResult, error) {
	if agentID == "" || contactID == "" {
		return StartResult{}, apperr.InvalidStatef("agentId and contactId required")
	}

	agent, err := d.agents.GetByID(ctx, agentID)
	if err != nil {
		return StartResult{}, err
	}
	if !agent.IsActive {
		return StartResult{}, apperr.NotFoundf("Agent not found or inactive")
	}

	contact, err := d.contacts.GetByID(ctx, contactID)
	if err != nil {
		return StartResult{}, err
	}

	listed, err := d.dnc.IsListed(ctx, contact.PhoneE164)
	if err != nil {
		return StartResult{}, err
	}
	if listed {
		return StartResult{}, apperr.InvalidStatef("Contact is on DNC list")
	}

	provider, err := d.providers.Get(agent.Provider)
	if err != nil {
		return StartResult{}, apperr.InvalidStatef("%v", err)
	}

	res, err := provider.StartCall(ctx, telephony.StartCallParams{
		AgentExternalID: agent.ExternalAgentID,
		ToPhoneE164:     contact.PhoneE164,
		Metadata: map[string]string{
			"contact_id": contact.ID,
			"first_name": contact.FirstName,
			"last_name":  contact.LastName,
		},
	})
	if err != nil {
		return StartResult{}, err
	}

	run, err := d.runs.Insert(ctx, CallRun{
		ExternalCallID: res.ExternalCallID,
		AgentID:        agent.ID,
		ContactID:      contact.ID,
		Provider:       agent.Provider,
		Direction:      DirectionOutbound,
		Status:         StatusInitiated,
		StartedAt:      d.clock().UTC(),
	})
	if err != nil {
		return StartResult{}, err
	}

	return StartResult{
		CallRunID:      run.ID,
		ExternalCallID: run.ExternalCallID,
		Status:         run.Status,
	}, nil
}

// Stop asks the vendor to end a previously started call and marks the run.
func (d *Dialer) Stop(ctx context.Context, callRunID string) (CallRun, error) {
	if callRunID == "" {
		return CallRun{}, apperr.InvalidStatef("callRunId required")
	}

	run, err := d.runs.GetByID(ctx, callRunID)
	if err != nil {
		return CallRun{}, err
	}
	if run.Status == StatusStopped {
		return run, nil
	}

	provider, err := d.providers.Get(run.Provider)
	if err != nil {
		return CallRun{}, apperr.InvalidStatef("%v", err)
	}
	if err := provider.StopCall(ctx, run.ExternalCallID); err != nil {
		return CallRun{}, err
	}

	return d.runs.MarkStopped(ctx, run.ID)
}

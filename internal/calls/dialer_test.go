package calls

import (
	"context"
	"errors"
	"testing"

	"outdial-platform/internal/agents"
	"outdial-platform/internal/apperr"
	"outdial-platform/internal/contacts"
	"outdial-platform/internal/telephony"
)

// recordingProvider counts vendor traffic so tests can assert the DNC
// guard fires before any provider call.
type recordingProvider struct {
	name       string
	startCalls int
	stopCalls  int
	startErr   error
	callID     string
}

func (p *recordingProvider) Name() string { return p.name }
func (p *recordingProvider) StartCall(ctx context.Context, params telephony.StartCallParams) (telephony.StartCallResult, error) {
	p.startCalls++
	if p.startErr != nil {
		return telephony.StartCallResult{}, p.startErr
	}
	id := p.callID
	if id == "" {
		id = "ext-1"
	}
	return telephony.StartCallResult{ExternalCallID: id}, nil
}
func (p *recordingProvider) StopCall(ctx context.Context, id string) error {
	p.stopCalls++
	return nil
}
func (p *recordingProvider) GetAgentPrompt(ctx context.Context, id string) (string, error) {
	return "", nil
}
func (p *recordingProvider) ImportAgent(ctx context.Context, id string) (telephony.AgentImport, error) {
	return telephony.AgentImport{}, nil
}

type dialerFixture struct {
	agents   *agents.MemoryStore
	contacts *contacts.MemoryStore
	dnc      *contacts.MemoryDNCStore
	runs     *MemoryStore
	provider *recordingProvider
	dialer   *Dialer

	agent   agents.Agent
	contact contacts.Contact
}

func newDialerFixture(t *testing.T) *dialerFixture {
	t.Helper()
	f := &dialerFixture{
		agents:   agents.NewMemoryStore(),
		contacts: contacts.NewMemoryStore(),
		dnc:      contacts.NewMemoryDNCStore(),
		runs:     NewMemoryStore(),
		provider: &recordingProvider{name: telephony.ProviderRetell},
	}
	f.dialer = NewDialer(f.agents, f.contacts, f.dnc, f.runs,
		telephony.NewRegistryWithProviders(f.provider))

	ctx := context.Background()
	f.agent, _ = f.agents.Upsert(ctx, agents.Agent{
		Provider:        telephony.ProviderRetell,
		ExternalAgentID: "agent-ext",
		Mode:            agents.ModeOutbound,
		IsActive:        true,
	})
	f.contact, _ = f.contacts.Create(ctx, contacts.Contact{
		FirstName: "Ada",
		LastName:  "Lovelace",
		PhoneE164: "+447700900123",
	})
	return f
}

func TestDialer_Start(t *testing.T) {
	f := newDialerFixture(t)

	res, err := f.dialer.Start(context.Background(), f.agent.ID, f.contact.ID)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if res.Status != StatusInitiated {
		t.Fatalf("expected initiated, got %s", res.Status)
	}
	if res.ExternalCallID != "ext-1" {
		t.Fatalf("expected ext-1, got %q", res.ExternalCallID)
	}

	runs := f.runs.All()
	if len(runs) != 1 {
		t.Fatalf("expected one call run, got %d", len(runs))
	}
	run := runs[0]
	if run.AgentID != f.agent.ID || run.ContactID != f.contact.ID {
		t.Fatalf("run references wrong entities: %+v", run)
	}
	if run.Direction != DirectionOutbound || run.Provider != telephony.ProviderRetell {
		t.Fatalf("unexpected run: %+v", run)
	}
}

func TestDialer_Start_DNCNeverReachesProvider(t *testing.T) {
	f := newDialerFixture(t)
	_ = f.dnc.Add(context.Background(), contacts.DNCEntry{PhoneE164: f.contact.PhoneE164})

	_, err := f.dialer.Start(context.Background(), f.agent.ID, f.contact.ID)
	if !errors.Is(err, apperr.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if f.provider.startCalls != 0 {
		t.Fatalf("provider must not be invoked for DNC contact")
	}
	if len(f.runs.All()) != 0 {
		t.Fatalf("no call run may be recorded for rejected dial")
	}
}

func TestDialer_Start_InactiveAgent(t *testing.T) {
	f := newDialerFixture(t)
	f.agent.IsActive = false
	f.agents.Upsert(context.Background(), f.agent)

	_, err := f.dialer.Start(context.Background(), f.agent.ID, f.contact.ID)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for inactive agent, got %v", err)
	}
	if f.provider.startCalls != 0 {
		t.Fatalf("provider must not be invoked")
	}
}

func TestDialer_Start_MissingEntities(t *testing.T) {
	f := newDialerFixture(t)

	if _, err := f.dialer.Start(context.Background(), "missing", f.contact.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for agent, got %v", err)
	}
	if _, err := f.dialer.Start(context.Background(), f.agent.ID, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for contact, got %v", err)
	}
}

func TestDialer_Start_ProviderFailureWritesNoRun(t *testing.T) {
	f := newDialerFixture(t)
	f.provider.startErr = apperr.Upstreamf("retell: status 500")

	_, err := f.dialer.Start(context.Background(), f.agent.ID, f.contact.ID)
	if !errors.Is(err, apperr.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if len(f.runs.All()) != 0 {
		t.Fatalf("failed dial must not record a call run")
	}
}

func TestDialer_Stop(t *testing.T) {
	f := newDialerFixture(t)

	res, err := f.dialer.Start(context.Background(), f.agent.ID, f.contact.ID)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	run, err := f.dialer.Stop(context.Background(), res.CallRunID)
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if run.Status != StatusStopped {
		t.Fatalf("expected stopped, got %s", run.Status)
	}
	if run.StoppedAt == nil {
		t.Fatalf("expected stopped_at set")
	}
	if f.provider.stopCalls != 1 {
		t.Fatalf("expected one vendor stop call, got %d", f.provider.stopCalls)
	}

	// Stopping twice is a no-op, not a second vendor call.
	if _, err := f.dialer.Stop(context.Background(), res.CallRunID); err != nil {
		t.Fatalf("second Stop failed: %v", err)
	}
	if f.provider.stopCalls != 1 {
		t.Fatalf("expected stop to be idempotent, got %d vendor calls", f.provider.stopCalls)
	}
}

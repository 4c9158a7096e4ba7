package agents

import (
	"context"

	"outdial-platform/internal/apperr"
	"outdial-platform/internal/telephony"
)

// Service owns agent lookup and vendor import.
type Service struct {
	store     Store
	providers *telephony.Registry
}

func NewService(store Store, providers *telephony.Registry) *Service {
	return &Service{store: store, providers: providers}
}

func (s *Service) Get(ctx context.Context, id string) (Agent, error) {
	if id == "" {
		return Agent{}, apperr.InvalidStatef("agent id required")
	}
	return s.store.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Agent, error) {
	return s.store.List(ctx)
}

// ImportRequest pulls a vendor agent into the local registry.
type ImportRequest struct {
	Provider        string `json:"provider"`
	ExternalAgentID string `json:"external_agent_id"`
	Mode            Mode   `json:"mode"`
}

// ImportFromProvider fetches the vendor agent config and prompt and
// upserts a local agent row. Imported agents start active.
func (s *Service) ImportFromProvider(ctx context.Context, req ImportRequest) (Agent, error) {
	if req.ExternalAgentID == "" {
		return Agent{}, apperr.InvalidStatef("external_agent_id required")
	}
	if req.Mode == "" {
		req.Mode = ModeOutbound
	}
	if req.Mode != ModeInbound && req.Mode != ModeOutbound {
		return Agent{}, apperr.InvalidStatef("mode must be inbound or outbound")
	}

	provider, err := s.providers.Get(req.Provider)
	if err != nil {
		return Agent{}, apperr.InvalidStatef("%v", err)
	}

	imp, err := provider.ImportAgent(ctx, req.ExternalAgentID)
	if err != nil {
		return Agent{}, err
	}

	return s.store.Upsert(ctx, Agent{
		Name:            imp.Name,
		Provider:        req.Provider,
		ExternalAgentID: req.ExternalAgentID,
		Mode:            req.Mode,
		IsActive:        true,
		Prompt:          imp.Prompt,
		ConfigJSON:      imp.RawConfig,
	})
}

// GetPrompt fetches the live vendor prompt for a stored agent.
func (s *Service) GetPrompt(ctx context.Context, agentID string) (string, error) {
	a, err := s.Get(ctx, agentID)
	if err != nil {
		return "", err
	}
	provider, err := s.providers.Get(a.Provider)
	if err != nil {
		return "", apperr.InvalidStatef("%v", err)
	}
	return provider.GetAgentPrompt(ctx, a.ExternalAgentID)
}

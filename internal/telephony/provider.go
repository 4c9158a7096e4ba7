package telephony

import "context"

// Provider is the vendor-agnostic telephony contract used by business logic.
//
// Rules:
// - No vendor HTTP calls outside this package.
// - Adapters translate shapes only: no retries, no backoff. The shared
//   HTTP client carries the one explicit timeout policy.
// - Vendor errors surface as apperr.ErrUpstream with status context.
type Provider interface {
	Name() string

	StartCall(ctx context.Context, params StartCallParams) (StartCallResult, error)
	StopCall(ctx context.Context, externalCallID string) error
	GetAgentPrompt(ctx context.Context, externalAgentID string) (string, error)
	ImportAgent(ctx context.Context, externalAgentID string) (AgentImport, error)
}

// StartCallParams identifies the agent placing the call and the dial target.
type StartCallParams struct {
	AgentExternalID string            `json:"agent_external_id"`
	ToPhoneE164     string            `json:"to_phone_e164"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// StartCallResult carries the vendor's identifier for the accepted call.
type StartCallResult struct {
	ExternalCallID string `json:"external_call_id"`
}

// AgentImport is a vendor agent snapshot pulled into our registry.
type AgentImport struct {
	Name      string `json:"name"`
	Prompt    string `json:"prompt"`
	RawConfig string `json:"raw_config"` // vendor payload as JSON, kept for audit
}

package telephony

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"outdial-platform/internal/apperr"
	"outdial-platform/internal/config"
)

// VapiProvider translates the Provider contract onto the VAPI REST API.
//
// Endpoint shapes:
// - POST /calls            -> {"id": "..."}
// - POST /calls/{id}/stop
// - GET  /agents/{id}      -> {"name": ..., "prompt": ...}
type VapiProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewVapiProvider(cfg config.ProviderConfig, client *http.Client) *VapiProvider {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &VapiProvider{baseURL: cfg.BaseURL, apiKey: cfg.APIKey, client: client}
}

func (p *VapiProvider) Name() string { return ProviderVapi }

func (p *VapiProvider) StartCall(ctx context.Context, params StartCallParams) (StartCallResult, error) {
	body := map[string]any{
		"agent_id": params.AgentExternalID,
		"to":       params.ToPhoneE164,
	}
	if len(params.Metadata) > 0 {
		body["metadata"] = params.Metadata
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := p.do(ctx, http.MethodPost, "/calls", body, &out); err != nil {
		return StartCallResult{}, err
	}
	if out.ID == "" {
		return StartCallResult{}, apperr.Upstreamf("vapi: create call returned no id")
	}
	return StartCallResult{ExternalCallID: out.ID}, nil
}

func (p *VapiProvider) StopCall(ctx context.Context, externalCallID string) error {
	return p.do(ctx, http.MethodPost, "/calls/"+externalCallID+"/stop", nil, nil)
}

func (p *VapiProvider) GetAgentPrompt(ctx context.Context, externalAgentID string) (string, error) {
	var agent struct {
		Prompt string `json:"prompt"`
	}
	if err := p.do(ctx, http.MethodGet, "/agents/"+externalAgentID, nil, &agent); err != nil {
		return "", err
	}
	return agent.Prompt, nil
}

func (p *VapiProvider) ImportAgent(ctx context.Context, externalAgentID string) (AgentImport, error) {
	var raw json.RawMessage
	if err := p.do(ctx, http.MethodGet, "/agents/"+externalAgentID, nil, &raw); err != nil {
		return AgentImport{}, err
	}

	var agent struct {
		Name   string `json:"name"`
		Prompt string `json:"prompt"`
	}
	if err := json.Unmarshal(raw, &agent); err != nil {
		return AgentImport{}, apperr.Upstreamf("vapi: decode agent: %v", err)
	}
	if agent.Name == "" {
		agent.Name = externalAgentID
	}

	return AgentImport{Name: agent.Name, Prompt: agent.Prompt, RawConfig: string(raw)}, nil
}

func (p *VapiProvider) do(ctx context.Context, method, path string, body any, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("telephony: encode request: %w", err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("telephony: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := p.client.Do(req)
	if err != nil {
		return apperr.Upstreamf("vapi: %s %s: %v", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return apperr.Upstreamf("vapi: %s %s: status %d: %s", method, path, res.StatusCode, string(snippet))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return apperr.Upstreamf("vapi: decode response: %v", err)
	}
	return nil
}

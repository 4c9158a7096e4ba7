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

// RetellProvider translates the Provider contract onto the Retell REST API.
//
// Endpoint shapes:
// - POST   /create-phone-call          -> {"call_id": "..."}
// - DELETE /delete-call/{id}
// - GET    /get-agent/{id}             -> agent with response_engine.llm_id
// - GET    /get-retell-llm/{id}        -> prompt under several field names
type RetellProvider struct {
	baseURL    string
	apiKey     string
	fromNumber string
	client     *http.Client
}

func NewRetellProvider(cfg config.ProviderConfig, client *http.Client) *RetellProvider {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &RetellProvider{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		fromNumber: cfg.FromNumber,
		client:     client,
	}
}

func (p *RetellProvider) Name() string { return ProviderRetell }

func (p *RetellProvider) StartCall(ctx context.Context, params StartCallParams) (StartCallResult, error) {
	body := map[string]any{
		"agent_id":    params.AgentExternalID,
		"from_number": p.fromNumber,
		"to_number":   params.ToPhoneE164,
	}
	if len(params.Metadata) > 0 {
		body["metadata"] = params.Metadata
	}

	var out struct {
		CallID string `json:"call_id"`
	}
	if err := p.do(ctx, http.MethodPost, "/create-phone-call", body, &out); err != nil {
		return StartCallResult{}, err
	}
	if out.CallID == "" {
		return StartCallResult{}, apperr.Upstreamf("retell: create-phone-call returned no call_id")
	}
	return StartCallResult{ExternalCallID: out.CallID}, nil
}

func (p *RetellProvider) StopCall(ctx context.Context, externalCallID string) error {
	return p.do(ctx, http.MethodDelete, "/delete-call/"+externalCallID, nil, nil)
}

func (p *RetellProvider) GetAgentPrompt(ctx context.Context, externalAgentID string) (string, error) {
	agent, err := p.getAgent(ctx, externalAgentID)
	if err != nil {
		return "", err
	}
	if agent.ResponseEngine.LLMID == "" {
		// Agent exists but has no LLM linked; an empty prompt is the answer.
		return "", nil
	}
	return p.getLLMPrompt(ctx, agent.ResponseEngine.LLMID)
}

func (p *RetellProvider) ImportAgent(ctx context.Context, externalAgentID string) (AgentImport, error) {
	var raw json.RawMessage
	if err := p.do(ctx, http.MethodGet, "/get-agent/"+externalAgentID, nil, &raw); err != nil {
		return AgentImport{}, err
	}

	var agent retellAgent
	if err := json.Unmarshal(raw, &agent); err != nil {
		return AgentImport{}, apperr.Upstreamf("retell: decode agent: %v", err)
	}

	prompt := ""
	if agent.ResponseEngine.LLMID != "" {
		var err error
		prompt, err = p.getLLMPrompt(ctx, agent.ResponseEngine.LLMID)
		if err != nil {
			return AgentImport{}, err
		}
	}

	name := agent.AgentName
	if name == "" {
		name = agent.Name
	}
	if name == "" {
		name = externalAgentID
	}

	return AgentImport{Name: name, Prompt: prompt, RawConfig: string(raw)}, nil
}

type retellAgent struct {
	AgentName      string `json:"agent_name"`
	Name           string `json:"name"`
	ResponseEngine struct {
		LLMID string `json:"llm_id"`
	} `json:"response_engine"`
}

func (p *RetellProvider) getAgent(ctx context.Context, externalAgentID string) (retellAgent, error) {
	var agent retellAgent
	if err := p.do(ctx, http.MethodGet, "/get-agent/"+externalAgentID, nil, &agent); err != nil {
		return retellAgent{}, err
	}
	return agent, nil
}

func (p *RetellProvider) getLLMPrompt(ctx context.Context, llmID string) (string, error) {
	// Retell has shipped the prompt under several names; probe them in order.
	var llm struct {
		Prompt        string `json:"prompt"`
		GeneralPrompt string `json:"general_prompt"`
		SystemPrompt  string `json:"system_prompt"`
		LLM           struct {
			Prompt        string `json:"prompt"`
			GeneralPrompt string `json:"general_prompt"`
		} `json:"llm"`
	}
	if err := p.do(ctx, http.MethodGet, "/get-retell-llm/"+llmID, nil, &llm); err != nil {
		return "", err
	}

	for _, candidate := range []string{llm.Prompt, llm.GeneralPrompt, llm.SystemPrompt, llm.LLM.Prompt, llm.LLM.GeneralPrompt} {
		if candidate != "" {
			return candidate, nil
		}
	}
	return "", nil
}

func (p *RetellProvider) do(ctx context.Context, method, path string, body any, out any) error {
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
		return apperr.Upstreamf("retell: %s %s: %v", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return apperr.Upstreamf("retell: %s %s: status %d: %s", method, path, res.StatusCode, string(snippet))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return apperr.Upstreamf("retell: decode response: %v", err)
	}
	return nil
}

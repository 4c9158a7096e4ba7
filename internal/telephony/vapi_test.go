package telephony

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"outdial-platform/internal/apperr"
	"outdial-platform/internal/config"
)

func TestVapiProvider_ImplementsProvider(t *testing.T) {
	var _ Provider = (*VapiProvider)(nil)
}

func newVapiServer(t *testing.T, handler http.HandlerFunc) *VapiProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewVapiProvider(config.ProviderConfig{BaseURL: srv.URL, APIKey: "vapi-key"}, srv.Client())
}

func TestVapiProvider_StartCall_ParsesID(t *testing.T) {
	var gotBody map[string]any
	p := newVapiServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/calls" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "vapi-42"})
	})

	res, err := p.StartCall(context.Background(), StartCallParams{AgentExternalID: "a", ToPhoneE164: "+447700900123"})
	if err != nil {
		t.Fatalf("StartCall failed: %v", err)
	}
	if res.ExternalCallID != "vapi-42" {
		t.Fatalf("expected vapi-42, got %q", res.ExternalCallID)
	}
	if gotBody["to"] != "+447700900123" {
		t.Fatalf("expected 'to' field, got %v", gotBody)
	}
}

func TestVapiProvider_StartCall_MissingID(t *testing.T) {
	p := newVapiServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{})
	})

	_, err := p.StartCall(context.Background(), StartCallParams{AgentExternalID: "a", ToPhoneE164: "+1"})
	if !errors.Is(err, apperr.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestVapiProvider_StopCall(t *testing.T) {
	var gotPath string
	p := newVapiServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	})

	if err := p.StopCall(context.Background(), "vapi-42"); err != nil {
		t.Fatalf("StopCall failed: %v", err)
	}
	if gotPath != "/calls/vapi-42/stop" {
		t.Fatalf("unexpected path %s", gotPath)
	}
}

func TestVapiProvider_ImportAgent(t *testing.T) {
	p := newVapiServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"name": "Booker", "prompt": "Book the demo."})
	})

	imp, err := p.ImportAgent(context.Background(), "a1")
	if err != nil {
		t.Fatalf("ImportAgent failed: %v", err)
	}
	if imp.Name != "Booker" || imp.Prompt != "Book the demo." {
		t.Fatalf("unexpected import: %+v", imp)
	}
}

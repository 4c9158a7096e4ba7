package telephony

import (
	"fmt"
	"net/http"
	"time"

	"outdial-platform/internal/config"
)

// Provider name tags. These are the values stored in agents.provider.
const (
	ProviderRetell = "retell"
	ProviderVapi   = "vapi"
)

// defaultHTTPTimeout bounds every vendor call. The source system had no
// timeout at all; 15s is generous for a call-create round trip.
const defaultHTTPTimeout = 15 * time.Second

// Registry resolves a provider-name tag to its adapter.
//
// The set is closed: adding a vendor means adding an adapter and one line
// here, never branching at call sites.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry wires both vendor adapters from config. The adapters share
// one HTTP client so the timeout policy lives in exactly one place.
func NewRegistry(retellCfg, vapiCfg config.ProviderConfig) *Registry {
	client := &http.Client{Timeout: defaultHTTPTimeout}
	return NewRegistryWithProviders(
		NewRetellProvider(retellCfg, client),
		NewVapiProvider(vapiCfg, client),
	)
}

// NewRegistryWithProviders builds a registry from explicit adapters.
// Tests use it to inject fakes.
func NewRegistryWithProviders(providers ...Provider) *Registry {
	m := make(map[string]Provider, len(providers))
	for _, p := range providers {
		m[p.Name()] = p
	}
	return &Registry{providers: m}
}

// Get returns the adapter for the given provider tag.
// An unknown tag is a configuration error, never a silent fallback.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("telephony: unsupported provider %q", name)
	}
	return p, nil
}

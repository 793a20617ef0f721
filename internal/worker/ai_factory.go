package worker

import (
	"fmt"

	"github.com/pulseplatform/pulse/internal/ai"
	"github.com/pulseplatform/pulse/internal/ai/gemini"
	"github.com/pulseplatform/pulse/internal/ai/kimi"
	"github.com/pulseplatform/pulse/internal/types"
)

// AIWorkerFactory builds a per-tenant ai.Worker from that tenant's
// AIConfig, sharing one CircuitBreaker per provider across every tenant
// bound to it: a sustained Gemini outage trips the Gemini breaker
// regardless of which tenant's job triggered the failures, while a
// Kimi-bound tenant is unaffected.
type AIWorkerFactory struct {
	store      ai.Store
	publisher  ai.Publisher
	aiDefaults map[types.AIProvider]string
	breakers   map[types.AIProvider]*ai.CircuitBreaker
}

// NewAIWorkerFactory builds a factory. aiDefaults supplies a fallback API
// key per provider (config.Config.AIDefaults) for a tenant that hasn't
// set its own AIConfig.APIKey.
func NewAIWorkerFactory(store ai.Store, publisher ai.Publisher, aiDefaults map[types.AIProvider]string) *AIWorkerFactory {
	return &AIWorkerFactory{
		store:      store,
		publisher:  publisher,
		aiDefaults: aiDefaults,
		breakers: map[types.AIProvider]*ai.CircuitBreaker{
			types.AIProviderGemini: ai.NewCircuitBreaker(),
			types.AIProviderKimi:   ai.NewCircuitBreaker(),
		},
	}
}

// Build constructs the ai.Worker for tenant, resolving its provider
// client and falling back to aiDefaults when the tenant has no API key of
// its own.
func (f *AIWorkerFactory) Build(tenant *types.Tenant) (*ai.Worker, error) {
	apiKey := tenant.AI.APIKey
	if apiKey == "" {
		apiKey = f.aiDefaults[tenant.AI.Provider]
	}
	if apiKey == "" {
		return nil, fmt.Errorf("worker: tenant %s has no API key configured for provider %q", tenant.ID, tenant.AI.Provider)
	}

	var provider ai.Provider
	switch tenant.AI.Provider {
	case types.AIProviderGemini:
		provider = gemini.New(apiKey, tenant.AI.Model).WithBaseURL(tenant.AI.BaseURL)
	case types.AIProviderKimi:
		provider = kimi.New(apiKey, tenant.AI.Model).WithBaseURL(tenant.AI.BaseURL)
	default:
		return nil, fmt.Errorf("worker: tenant %s has unknown AI provider %q", tenant.ID, tenant.AI.Provider)
	}

	breaker, ok := f.breakers[tenant.AI.Provider]
	if !ok {
		breaker = ai.NewCircuitBreaker()
		f.breakers[tenant.AI.Provider] = breaker
	}

	return ai.New(f.store, f.publisher, provider, breaker), nil
}

package llm

import (
	"fmt"
	"slices"

	domainllm "outliner/internal/domain/services/llm"
	"outliner/internal/service/llm/providers/anthropic"
	"outliner/internal/service/llm/providers/lorem"
	"outliner/internal/service/llm/providers/openai"
)

// ProviderConstructor builds a provider for one API key.
type ProviderConstructor func(apiKey string) (domainllm.Provider, error)

type providerEntry struct {
	requiresKey bool
	construct   ProviderConstructor
}

// ProviderFactory creates provider instances by name.
// Providers are registered once at startup; keys are supplied per call so that
// each user's credential gets its own client.
type ProviderFactory struct {
	entries map[string]providerEntry
}

// NewProviderFactory creates an empty factory.
func NewProviderFactory() *ProviderFactory {
	return &ProviderFactory{
		entries: make(map[string]providerEntry),
	}
}

// Endpoints overrides provider base URLs (gateways, proxies). Empty fields use the public APIs.
type Endpoints struct {
	OpenAI    string
	Anthropic string
}

// NewDefaultProviderFactory registers the OpenAI, Anthropic and lorem providers.
//
// Supported providers:
//   - "openai" - GPT and o-series models via the OpenAI API (or a compatible gateway)
//   - "anthropic" - Claude models via the Anthropic API
//   - "lorem" - offline mock provider, no API key required
func NewDefaultProviderFactory(endpoints Endpoints) *ProviderFactory {
	f := NewProviderFactory()
	f.Register(ProviderOpenAI, true, func(apiKey string) (domainllm.Provider, error) {
		return openai.NewProvider(apiKey, endpoints.OpenAI)
	})
	f.Register(ProviderAnthropic, true, func(apiKey string) (domainllm.Provider, error) {
		return anthropic.NewProvider(apiKey, endpoints.Anthropic)
	})
	f.Register(ProviderLorem, false, func(string) (domainllm.Provider, error) {
		return lorem.NewProvider(), nil
	})
	return f
}

// Register adds or replaces a provider constructor.
func (f *ProviderFactory) Register(name string, requiresKey bool, construct ProviderConstructor) {
	f.entries[name] = providerEntry{requiresKey: requiresKey, construct: construct}
}

// Has reports whether name is registered.
func (f *ProviderFactory) Has(name string) bool {
	_, ok := f.entries[name]
	return ok
}

// RequiresKey reports whether the provider needs an API key.
func (f *ProviderFactory) RequiresKey(name string) bool {
	return f.entries[name].requiresKey
}

// Names returns the registered provider names in KnownProviders order, followed by any others.
func (f *ProviderFactory) Names() []string {
	names := make([]string, 0, len(f.entries))
	seen := make(map[string]bool, len(f.entries))
	for _, name := range KnownProviders {
		if f.Has(name) {
			names = append(names, name)
			seen[name] = true
		}
	}
	var extra []string
	for name := range f.entries {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	slices.Sort(extra)
	return append(names, extra...)
}

// GetProvider returns a new provider instance for the given provider name and key.
func (f *ProviderFactory) GetProvider(providerName, apiKey string) (domainllm.Provider, error) {
	entry, ok := f.entries[providerName]
	if !ok {
		return nil, fmt.Errorf("unsupported provider: %s", providerName)
	}

	provider, err := entry.construct(apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s provider: %w", providerName, err)
	}
	return provider, nil
}

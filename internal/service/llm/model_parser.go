package llm

import (
	"fmt"
	"strings"
)

// Provider names known to the registry.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderLorem     = "lorem"
)

// KnownProviders lists every provider a model string may resolve to.
var KnownProviders = []string{ProviderOpenAI, ProviderAnthropic, ProviderLorem}

// modelPrefixes maps bare model name prefixes to their provider, checked in order.
var modelPrefixes = []struct {
	prefix   string
	provider string
}{
	{"claude-", ProviderAnthropic},
	{"gpt-", ProviderOpenAI},
	{"o1", ProviderOpenAI},
	{"o3", ProviderOpenAI},
	{"o4", ProviderOpenAI},
	{"lorem-", ProviderLorem},
}

// ModelInfo is a model string resolved to its provider.
type ModelInfo struct {
	Provider string
	Model    string
}

// String returns the canonical "provider/model" form stored on sessions.
func (m ModelInfo) String() string {
	return m.Provider + "/" + m.Model
}

// ParseModel resolves "provider/model" or a bare model name.
//
//	"openai/gpt-4.1-nano" → openai, gpt-4.1-nano
//	"claude-haiku-4-5"    → anthropic (inferred from the prefix)
//	"lorem-fast"          → lorem
//
// The provider of the explicit form is not checked here; the registry rejects unknown ones.
func ParseModel(s string) (*ModelInfo, error) {
	if s == "" {
		return nil, fmt.Errorf("model string cannot be empty")
	}

	if provider, model, ok := strings.Cut(s, "/"); ok {
		if provider == "" || model == "" {
			return nil, fmt.Errorf("model string %q must be provider/model", s)
		}
		return &ModelInfo{Provider: provider, Model: model}, nil
	}

	lower := strings.ToLower(s)
	for _, p := range modelPrefixes {
		if strings.HasPrefix(lower, p.prefix) {
			return &ModelInfo{Provider: p.provider, Model: s}, nil
		}
	}
	return nil, fmt.Errorf("unable to infer provider from model: %s", s)
}

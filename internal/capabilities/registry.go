package capabilities

import (
	"embed"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

//go:embed config/*.yaml
var configFiles embed.FS

// catalogueOrder is the display order of the embedded provider files.
var catalogueOrder = []string{"openai", "anthropic", "lorem"}

// Registry is the read-only model catalogue. It is safe for concurrent use because nothing
// mutates it after NewRegistry returns.
type Registry struct {
	byName map[string]*ProviderCapabilities
	order  []string
}

// NewRegistry parses the embedded provider catalogues.
func NewRegistry() (*Registry, error) {
	r := &Registry{byName: make(map[string]*ProviderCapabilities, len(catalogueOrder))}
	for _, name := range catalogueOrder {
		caps, err := readProvider(name)
		if err != nil {
			return nil, fmt.Errorf("capabilities %s: %w", name, err)
		}
		r.byName[name] = caps
		r.order = append(r.order, name)
	}
	return r, nil
}

func readProvider(name string) (*ProviderCapabilities, error) {
	raw, err := configFiles.ReadFile("config/" + name + ".yaml")
	if err != nil {
		return nil, err
	}
	var caps ProviderCapabilities
	if err := yaml.Unmarshal(raw, &caps); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if caps.Provider != name {
		return nil, fmt.Errorf("file declares provider %q", caps.Provider)
	}
	return &caps, nil
}

func (r *Registry) provider(name string) (*ProviderCapabilities, error) {
	p, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
	return p, nil
}

// GetModelCapabilities looks up one model of a provider.
func (r *Registry) GetModelCapabilities(provider, model string) (*ModelCapabilities, error) {
	p, err := r.provider(provider)
	if err != nil {
		return nil, err
	}
	i := slices.IndexFunc(p.Models, func(m ModelCapabilities) bool { return m.ID == model })
	if i < 0 {
		return nil, fmt.Errorf("unknown model %s for provider %s", model, provider)
	}
	m := p.Models[i]
	return &m, nil
}

func (r *Registry) HasModel(provider, model string) bool {
	_, err := r.GetModelCapabilities(provider, model)
	return err == nil
}

// DefaultModel returns the model marked default, falling back to the first one listed.
func (r *Registry) DefaultModel(provider string) (string, error) {
	p, err := r.provider(provider)
	if err != nil {
		return "", err
	}
	if len(p.Models) == 0 {
		return "", fmt.Errorf("provider %s has no models", provider)
	}
	if i := slices.IndexFunc(p.Models, func(m ModelCapabilities) bool { return m.Default }); i >= 0 {
		return p.Models[i].ID, nil
	}
	return p.Models[0].ID, nil
}

// ListProviderModels returns a copy of the provider's models in file order.
func (r *Registry) ListProviderModels(provider string) ([]ModelCapabilities, error) {
	p, err := r.provider(provider)
	if err != nil {
		return nil, err
	}
	return slices.Clone(p.Models), nil
}

func (r *Registry) Providers() []string {
	return slices.Clone(r.order)
}

// Catalogue returns copies of every provider entry, in display order.
func (r *Registry) Catalogue() []ProviderCapabilities {
	out := make([]ProviderCapabilities, len(r.order))
	for i, name := range r.order {
		out[i] = *r.byName[name]
		out[i].Models = slices.Clone(out[i].Models)
	}
	return out
}

// RequiresKey reports whether provider needs an API key. Unknown providers are assumed to.
func (r *Registry) RequiresKey(provider string) bool {
	p, ok := r.byName[provider]
	return !ok || p.RequiresKey
}

package llm

import (
	"fmt"
	"log/slog"

	"outliner/internal/config"
	"outliner/internal/service/llm/prompts"
)

// SetupProviders initializes the provider factory and registry for routing.
// keys resolves per-user credentials; nil falls back to the environment keys in cfg.
func SetupProviders(cfg *config.Config, keys KeyResolver, logger *slog.Logger) (*ProviderRegistry, error) {
	library, err := prompts.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}

	if keys == nil {
		keys = StaticKeys(cfg.ProviderKeys())
	}

	factory := NewDefaultProviderFactory(Endpoints{OpenAI: cfg.OpenAIBaseURL, Anthropic: cfg.AnthropicBaseURL})
	registry := NewProviderRegistry(factory, keys, library, Limits{
		PerSecond: cfg.GenerationRateLimit,
		Burst:     cfg.GenerationBurst,
		MaxTokens: cfg.GenerationMaxTokens,
	}, logger)

	if err := registry.Validate(); err != nil {
		return nil, fmt.Errorf("provider registry validation failed: %w", err)
	}

	// Log which providers work without a per-user key
	envKeys := cfg.ProviderKeys()
	for _, name := range factory.Names() {
		switch {
		case !factory.RequiresKey(name):
			logger.Info("provider available", "name", name, "requires_key", false)
		case envKeys[name] != "":
			logger.Info("provider available", "name", name, "key_source", "environment")
		default:
			logger.Warn("provider has no environment key - users must store their own", "name", name)
		}
	}

	logger.Info("provider registry initialized",
		"default_model", cfg.DefaultModel,
		"rate_limit", cfg.GenerationRateLimit,
		"burst", cfg.GenerationBurst,
		"max_tokens", cfg.GenerationMaxTokens,
	)

	return registry, nil
}

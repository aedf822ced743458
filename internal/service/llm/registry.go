package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"outliner/internal/domain"
	domainllm "outliner/internal/domain/services/llm"
	"outliner/internal/metrics"
	"outliner/internal/service/llm/prompts"
)

// KeyResolver looks up the API key a user has configured for a provider.
// An empty key with a nil error means no key is configured.
type KeyResolver interface {
	ResolveAPIKey(ctx context.Context, userID, provider string) (string, error)
}

// StaticKeys resolves keys from a fixed provider → key map (environment configuration).
type StaticKeys map[string]string

// ResolveAPIKey returns the configured key for provider, ignoring the user.
func (k StaticKeys) ResolveAPIKey(_ context.Context, _ string, provider string) (string, error) {
	return k[provider], nil
}

// Limits bounds the requests a registry's generators send.
type Limits struct {
	PerSecond float64 // per provider; <= 0 disables rate limiting
	Burst     int
	MaxTokens int // completion cap per request; <= 0 leaves the provider default
}

// ProviderRegistry routes model requests to providers.
// Uses ParseModel to extract the provider from a model string, resolves the caller's key, then
// creates (or reuses) a provider instance through the ProviderFactory.
type ProviderRegistry struct {
	factory  *ProviderFactory
	keys     KeyResolver
	prompts  *prompts.Library
	limit    Limits
	logger   *slog.Logger
	cache    map[string]domainllm.Provider // provider + key fingerprint
	limiters map[string]*rate.Limiter      // provider
	mu       sync.RWMutex
}

// NewProviderRegistry creates a new provider registry.
func NewProviderRegistry(factory *ProviderFactory, keys KeyResolver, library *prompts.Library, limit Limits, logger *slog.Logger) *ProviderRegistry {
	if keys == nil {
		keys = StaticKeys{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProviderRegistry{
		factory:  factory,
		keys:     keys,
		prompts:  library,
		limit:    limit,
		logger:   logger,
		cache:    make(map[string]domainllm.Provider),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Validate checks if the registry is properly configured.
// Should be called at startup to fail fast if misconfigured.
func (r *ProviderRegistry) Validate() error {
	if r.factory == nil {
		return fmt.Errorf("provider factory is not configured")
	}
	if r.prompts == nil {
		return fmt.Errorf("prompt library is not configured")
	}
	if len(r.factory.Names()) == 0 {
		return fmt.Errorf("no providers registered")
	}
	return nil
}

// Providers returns the registered provider names.
func (r *ProviderRegistry) Providers() []string {
	return r.factory.Names()
}

// Generator returns a child generator for the user and model.
//
// Returns domain.ErrMissingCredential (wrapped) when the provider needs a key and none is
// configured for the user; no request is opened in that case.
func (r *ProviderRegistry) Generator(ctx context.Context, userID, model string) (domainllm.ChildGenerator, error) {
	info, err := ParseModel(model)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if !r.factory.Has(info.Provider) {
		return nil, fmt.Errorf("%w: unsupported provider: %s", domain.ErrValidation, info.Provider)
	}

	apiKey, err := r.keys.ResolveAPIKey(ctx, userID, info.Provider)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve API key: %w", err)
	}
	if apiKey == "" && r.factory.RequiresKey(info.Provider) {
		return nil, fmt.Errorf("%w for provider %s", domain.ErrMissingCredential, info.Provider)
	}

	provider, err := r.getProvider(info.Provider, apiKey)
	if err != nil {
		return nil, &domain.TransportError{Provider: info.Provider, Err: err}
	}

	return &ChildClient{
		provider:  provider,
		model:     info.Model,
		prompts:   r.prompts,
		limiter:   r.limiter(info.Provider),
		maxTokens: r.limit.MaxTokens,
		logger:    r.logger,
	}, nil
}

// getProvider returns the cached provider instance for name and key, creating it on first use.
func (r *ProviderRegistry) getProvider(name, apiKey string) (domainllm.Provider, error) {
	cacheKey := name + ":" + fingerprint(apiKey)

	// Fast path: check cache with read lock
	r.mu.RLock()
	if cached, exists := r.cache[cacheKey]; exists {
		r.mu.RUnlock()
		return cached, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another goroutine may have created the provider while we waited for the lock
	if cached, exists := r.cache[cacheKey]; exists {
		return cached, nil
	}

	provider, err := r.factory.GetProvider(name, apiKey)
	if err != nil {
		return nil, err
	}
	r.cache[cacheKey] = provider
	return provider, nil
}

// limiter returns the shared limiter for a provider. A non-positive rate disables limiting.
func (r *ProviderRegistry) limiter(name string) *rate.Limiter {
	if r.limit.PerSecond <= 0 {
		return nil
	}

	r.mu.RLock()
	l, ok := r.limiters[name]
	r.mu.RUnlock()
	if ok {
		return l
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.limiters[name]; ok {
		return l
	}
	burst := r.limit.Burst
	if burst < 1 {
		burst = 1
	}
	l = rate.NewLimiter(rate.Limit(r.limit.PerSecond), burst)
	r.limiters[name] = l
	return l
}

// fingerprint identifies a key in cache maps without keeping the key itself as a map key.
func fingerprint(apiKey string) string {
	if apiKey == "" {
		return "none"
	}
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:8])
}

// ChildClient implements domainllm.ChildGenerator on top of a streaming provider.
type ChildClient struct {
	provider  domainllm.Provider
	model     string
	prompts   *prompts.Library
	limiter   *rate.Limiter
	maxTokens int
	logger    *slog.Logger
}

// Provider names the backend.
func (c *ChildClient) Provider() string {
	return c.provider.Name()
}

// Model returns the provider-side model id.
func (c *ChildClient) Model() string {
	return c.model
}

// GenerateChildren renders the prompts, waits for the provider's rate limiter and opens a stream.
// Errors, including those delivered on the stream, are wrapped in *domain.TransportError.
func (c *ChildClient) GenerateChildren(ctx context.Context, prompt, parentContext string) (<-chan domainllm.StreamChunk, error) {
	userPrompt, err := c.prompts.User(prompt, parentContext)
	if err != nil {
		return nil, err
	}

	if err := c.wait(ctx); err != nil {
		return nil, &domain.TransportError{Provider: c.Provider(), Err: err}
	}

	upstream, err := c.provider.StreamResponse(ctx, &domainllm.GenerateRequest{
		Model:        c.model,
		SystemPrompt: c.prompts.System(),
		UserPrompt:   userPrompt,
		MaxTokens:    c.maxTokens,
	})
	if err != nil {
		return nil, &domain.TransportError{Provider: c.Provider(), Err: err}
	}

	out := make(chan domainllm.StreamChunk, cap(upstream))
	go func() {
		defer close(out)
		for chunk := range upstream {
			if chunk.Err != nil {
				chunk.Err = &domain.TransportError{Provider: c.Provider(), Err: chunk.Err}
			}
			select {
			case out <- chunk:
			case <-ctx.Done():
				for range upstream {
				}
				return
			}
		}
	}()
	return out, nil
}

// wait blocks until the limiter admits a request or ctx is done.
func (c *ChildClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}

	reservation := c.limiter.Reserve()
	if !reservation.OK() {
		return fmt.Errorf("rate limiter cannot admit request")
	}
	delay := reservation.Delay()
	if delay == 0 {
		return nil
	}

	metrics.TransportRateLimited.WithLabelValues(c.Provider()).Inc()
	c.logger.Debug("waiting for rate limiter", "provider", c.Provider(), "delay", delay)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		reservation.Cancel()
		return ctx.Err()
	}
}

// Prompts returns the prompt library the registry renders requests with.
func (r *ProviderRegistry) Prompts() *prompts.Library {
	return r.prompts
}

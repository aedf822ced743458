// Package credentials stores per-user provider API keys in the key-value store.
package credentials

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"outliner/internal/config"
	"outliner/internal/domain"
	"outliner/internal/domain/models"
	"outliner/internal/domain/repositories"
	"outliner/internal/domain/services"
)

// ProviderInfo tells the service which providers exist and which need a key.
type ProviderInfo interface {
	Providers() []string
	RequiresKey(provider string) bool
}

// Service implements services.CredentialService
type Service struct {
	store     repositories.KeyValueStore
	providers ProviderInfo
	envKeys   map[string]string
	logger    *slog.Logger
}

// NewService creates a credential service. envKeys are the fallback keys from the environment.
func NewService(
	store repositories.KeyValueStore,
	providers ProviderInfo,
	envKeys map[string]string,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:     store,
		providers: providers,
		envKeys:   envKeys,
		logger:    logger,
	}
}

var _ services.CredentialService = (*Service)(nil)

func credentialKey(userID, provider string) string {
	return "credentials/" + userID + "/" + provider
}

// GetCredential reports the key status for one provider
func (s *Service) GetCredential(ctx context.Context, userID, provider string) (*models.CredentialStatus, error) {
	if err := s.validateProvider(provider); err != nil {
		return nil, err
	}

	stored, err := s.store.Get(ctx, credentialKey(userID, provider))
	if err != nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}

	status := &models.CredentialStatus{
		Provider:    provider,
		Source:      models.KeySourceNone,
		RequiresKey: s.providers.RequiresKey(provider),
	}
	switch {
	case len(stored) > 0:
		status.Configured = true
		status.Source = models.KeySourceUser
		status.MaskedKey = MaskKey(string(stored))
	case s.envKeys[provider] != "":
		status.Configured = true
		status.Source = models.KeySourceEnvironment
	case !status.RequiresKey:
		status.Configured = true
	}
	return status, nil
}

// ListCredentials reports every known provider in registry order
func (s *Service) ListCredentials(ctx context.Context, userID string) ([]models.CredentialStatus, error) {
	names := s.providers.Providers()
	out := make([]models.CredentialStatus, 0, len(names))
	for _, name := range names {
		status, err := s.GetCredential(ctx, userID, name)
		if err != nil {
			return nil, err
		}
		out = append(out, *status)
	}
	return out, nil
}

// SetCredential stores the user's key for the provider
func (s *Service) SetCredential(ctx context.Context, userID, provider string, req *models.SetCredentialRequest) (*models.CredentialStatus, error) {
	if err := s.validateProvider(provider); err != nil {
		return nil, err
	}
	req.APIKey = strings.TrimSpace(req.APIKey)
	if err := validation.ValidateStruct(req,
		validation.Field(&req.APIKey, validation.Required, validation.Length(1, config.MaxAPIKeyLength)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if err := s.store.Set(ctx, credentialKey(userID, provider), []byte(req.APIKey)); err != nil {
		return nil, fmt.Errorf("store credential: %w", err)
	}

	s.logger.Info("credential stored", "user_id", userID, "provider", provider)
	return s.GetCredential(ctx, userID, provider)
}

// DeleteCredential removes the user's key for the provider
func (s *Service) DeleteCredential(ctx context.Context, userID, provider string) error {
	if err := s.validateProvider(provider); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, credentialKey(userID, provider)); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	s.logger.Info("credential deleted", "user_id", userID, "provider", provider)
	return nil
}

// ResolveAPIKey returns the user's key, else the environment key, else "".
func (s *Service) ResolveAPIKey(ctx context.Context, userID, provider string) (string, error) {
	stored, err := s.store.Get(ctx, credentialKey(userID, provider))
	if err != nil {
		return "", fmt.Errorf("get credential: %w", err)
	}
	if len(stored) > 0 {
		return string(stored), nil
	}
	return s.envKeys[provider], nil
}

func (s *Service) validateProvider(provider string) error {
	for _, name := range s.providers.Providers() {
		if name == provider {
			return nil
		}
	}
	return &domain.NotFoundError{Message: fmt.Sprintf("unknown provider: %s", provider)}
}

// MaskKey keeps the first 3 and last 4 characters of a key. Short keys are fully masked.
func MaskKey(key string) string {
	if len(key) <= 10 {
		return strings.Repeat("*", len(key))
	}
	return key[:3] + strings.Repeat("*", len(key)-7) + key[len(key)-4:]
}

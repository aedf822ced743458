// Package preferences stores each user's default provider and model.
package preferences

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"outliner/internal/domain"
	"outliner/internal/domain/models"
	"outliner/internal/domain/repositories"
	"outliner/internal/domain/services"
)

// Catalogue is the model list preferences are validated against.
type Catalogue interface {
	Providers() []string
	HasModel(provider, model string) bool
	DefaultModel(provider string) (string, error)
}

// Service implements services.UserPreferencesService on the key-value store
type Service struct {
	store           repositories.KeyValueStore
	catalogue       Catalogue
	defaultProvider string
	defaultModel    string
	logger          *slog.Logger
}

// NewService creates a preferences service. defaultProvider and defaultModel apply to users
// without stored preferences.
func NewService(
	store repositories.KeyValueStore,
	catalogue Catalogue,
	defaultProvider, defaultModel string,
	logger *slog.Logger,
) services.UserPreferencesService {
	return &Service{
		store:           store,
		catalogue:       catalogue,
		defaultProvider: defaultProvider,
		defaultModel:    defaultModel,
		logger:          logger,
	}
}

func preferencesKey(userID string) string {
	return "preferences/" + userID
}

// getDefaultPreferences returns the configured defaults
func (s *Service) getDefaultPreferences(userID string) *models.UserPreferences {
	return &models.UserPreferences{
		UserID:   userID,
		Provider: s.defaultProvider,
		Model:    s.defaultModel,
	}
}

// GetPreferences retrieves preferences for a user
func (s *Service) GetPreferences(ctx context.Context, userID string) (*models.UserPreferences, error) {
	data, err := s.store.Get(ctx, preferencesKey(userID))
	if err != nil {
		return nil, fmt.Errorf("get preferences: %w", err)
	}

	// If no preferences exist yet, return defaults
	if data == nil {
		s.logger.Debug("no preferences found, returning defaults", "user_id", userID)
		return s.getDefaultPreferences(userID), nil
	}

	var prefs models.UserPreferences
	if err := json.Unmarshal(data, &prefs); err != nil {
		return nil, fmt.Errorf("decode preferences: %w", err)
	}
	prefs.UserID = userID
	return &prefs, nil
}

// UpdatePreferences applies a partial update.
// Changing only the provider selects that provider's default model.
func (s *Service) UpdatePreferences(ctx context.Context, userID string, req *models.UpdatePreferencesRequest) (*models.UserPreferences, error) {
	existing, err := s.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Provider != nil && *req.Provider != existing.Provider {
		existing.Provider = *req.Provider
		if req.Model == nil {
			if err := s.validateProvider(existing.Provider); err != nil {
				return nil, err
			}
			model, err := s.catalogue.DefaultModel(existing.Provider)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
			}
			existing.Model = model
		}
	}
	if req.Model != nil {
		existing.Model = *req.Model
	}

	if err := s.validateProvider(existing.Provider); err != nil {
		return nil, err
	}
	if err := validation.ValidateStruct(existing,
		validation.Field(&existing.Model, validation.Required, validation.By(func(any) error {
			if !s.catalogue.HasModel(existing.Provider, existing.Model) {
				return fmt.Errorf("unknown model %s for provider %s", existing.Model, existing.Provider)
			}
			return nil
		})),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	existing.UpdatedAt = time.Now()
	data, err := json.Marshal(existing)
	if err != nil {
		return nil, fmt.Errorf("encode preferences: %w", err)
	}
	if err := s.store.Set(ctx, preferencesKey(userID), data); err != nil {
		return nil, fmt.Errorf("store preferences: %w", err)
	}

	s.logger.Info("user preferences updated",
		"user_id", userID,
		"provider", existing.Provider,
		"model", existing.Model,
	)

	return existing, nil
}

func (s *Service) validateProvider(provider string) error {
	providers := s.catalogue.Providers()
	anyProviders := make([]any, len(providers))
	for i, p := range providers {
		anyProviders[i] = p
	}
	if err := validation.Validate(provider, validation.Required, validation.In(anyProviders...)); err != nil {
		return fmt.Errorf("%w: provider: %v", domain.ErrValidation, err)
	}
	return nil
}

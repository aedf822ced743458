package handler

import (
	"log/slog"
	"net/http"

	"outliner/internal/capabilities"
	"outliner/internal/domain/services"
	"outliner/internal/httputil"
)

// ModelsHandler handles HTTP requests for the model catalogue
type ModelsHandler struct {
	registry    *capabilities.Registry
	credentials services.CredentialService
	logger      *slog.Logger
}

// NewModelsHandler creates a new models handler
func NewModelsHandler(registry *capabilities.Registry, credentials services.CredentialService, logger *slog.Logger) *ModelsHandler {
	return &ModelsHandler{
		registry:    registry,
		credentials: credentials,
		logger:      logger,
	}
}

// ProviderResponse represents a provider with its models
type ProviderResponse struct {
	capabilities.ProviderCapabilities
	// Available is true when the provider needs no key or the user has one configured.
	Available bool `json:"available"`
}

// GetModels returns the catalogue, marking which providers the user can call
// GET /api/models
func (h *ModelsHandler) GetModels(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	catalogue := h.registry.Catalogue()
	providers := make([]ProviderResponse, 0, len(catalogue))
	for _, p := range catalogue {
		available := !p.RequiresKey
		if !available {
			status, err := h.credentials.GetCredential(r.Context(), userID, p.Provider)
			if err != nil {
				h.logger.Warn("credential lookup failed", "provider", p.Provider, "error", err)
			} else {
				available = status.Configured
			}
		}
		providers = append(providers, ProviderResponse{ProviderCapabilities: p, Available: available})
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"providers": providers,
	})
}

package handler

import (
	"log/slog"
	"net/http"

	"outliner/internal/domain/models"
	"outliner/internal/domain/services"
	"outliner/internal/httputil"
)

// CredentialsHandler manages the user's provider API keys
type CredentialsHandler struct {
	service services.CredentialService
	logger  *slog.Logger
}

// NewCredentialsHandler creates a new credentials handler
func NewCredentialsHandler(service services.CredentialService, logger *slog.Logger) *CredentialsHandler {
	return &CredentialsHandler{
		service: service,
		logger:  logger,
	}
}

// ListCredentials reports the key status of every provider
// GET /api/users/me/credentials
func (h *CredentialsHandler) ListCredentials(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.service.ListCredentials(r.Context(), httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"credentials": statuses})
}

// GetCredential reports the key status of one provider
// GET /api/users/me/credentials/{provider}
func (h *CredentialsHandler) GetCredential(w http.ResponseWriter, r *http.Request) {
	provider, ok := PathParam(w, r, "provider", "Provider")
	if !ok {
		return
	}
	status, err := h.service.GetCredential(r.Context(), httputil.GetUserID(r), provider)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, status)
}

// SetCredential stores the user's key for a provider
// PUT /api/users/me/credentials/{provider}
func (h *CredentialsHandler) SetCredential(w http.ResponseWriter, r *http.Request) {
	provider, ok := PathParam(w, r, "provider", "Provider")
	if !ok {
		return
	}

	var req models.SetCredentialRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	status, err := h.service.SetCredential(r.Context(), httputil.GetUserID(r), provider, &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, status)
}

// DeleteCredential removes the user's key for a provider
// DELETE /api/users/me/credentials/{provider}
func (h *CredentialsHandler) DeleteCredential(w http.ResponseWriter, r *http.Request) {
	provider, ok := PathParam(w, r, "provider", "Provider")
	if !ok {
		return
	}
	if err := h.service.DeleteCredential(r.Context(), httputil.GetUserID(r), provider); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package handler

import (
	"log/slog"
	"net/http"

	"outliner/internal/domain/models"
	"outliner/internal/domain/services"
	"outliner/internal/httputil"
)

// UserPreferencesHandler serves the caller's default provider and model.
type UserPreferencesHandler struct {
	service services.UserPreferencesService
	logger  *slog.Logger
}

func NewUserPreferencesHandler(service services.UserPreferencesService, logger *slog.Logger) *UserPreferencesHandler {
	return &UserPreferencesHandler{service: service, logger: logger}
}

// GetPreferences handles GET /api/users/me/preferences. Users who never saved anything get
// the server defaults.
func (h *UserPreferencesHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(userID string) (*models.UserPreferences, error) {
		return h.service.GetPreferences(r.Context(), userID)
	})
}

// UpdatePreferences handles PATCH /api/users/me/preferences. Omitted fields keep their value.
func (h *UserPreferencesHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req models.UpdatePreferencesRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	h.respond(w, r, func(userID string) (*models.UserPreferences, error) {
		return h.service.UpdatePreferences(r.Context(), userID, &req)
	})
}

func (h *UserPreferencesHandler) respond(w http.ResponseWriter, r *http.Request, load func(userID string) (*models.UserPreferences, error)) {
	prefs, err := load(httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, prefs)
}

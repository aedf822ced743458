package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"outliner/internal/config"
	"outliner/internal/httputil"
	"outliner/internal/service/llm/prompts"
)

// SuggestionsHandler serves starter topics for an empty outline
type SuggestionsHandler struct {
	library *prompts.Library
	logger  *slog.Logger
}

// NewSuggestionsHandler creates a new suggestions handler
func NewSuggestionsHandler(library *prompts.Library, logger *slog.Logger) *SuggestionsHandler {
	return &SuggestionsHandler{library: library, logger: logger}
}

// GetSuggestions returns distinct topics in random order
// GET /api/suggestions?count=5
func (h *SuggestionsHandler) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	count := prompts.DefaultSuggestionCount
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > config.MaxSuggestionCount {
			httputil.RespondError(w, http.StatusBadRequest, "count must be between 1 and "+strconv.Itoa(config.MaxSuggestionCount))
			return
		}
		count = n
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"suggestions": h.library.Sample(count),
	})
}

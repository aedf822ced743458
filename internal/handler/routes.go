package handler

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups every HTTP handler the server exposes.
type Handlers struct {
	Sessions    *SessionHandler
	Events      *SSEHandler
	Credentials *CredentialsHandler
	Preferences *UserPreferencesHandler
	Models      *ModelsHandler
	Suggestions *SuggestionsHandler
}

// RegisterRoutes registers the API on mux (Go 1.22+ method and wildcard patterns).
func RegisterRoutes(mux *http.ServeMux, h Handlers) {
	mux.HandleFunc("GET /health", HealthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/models", h.Models.GetModels)
	mux.HandleFunc("GET /api/suggestions", h.Suggestions.GetSuggestions)

	// Session routes
	mux.HandleFunc("POST /api/sessions", h.Sessions.CreateSession)
	mux.HandleFunc("GET /api/sessions", h.Sessions.ListSessions)
	mux.HandleFunc("GET /api/sessions/{id}", h.Sessions.GetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.Sessions.DeleteSession)
	mux.HandleFunc("POST /api/sessions/{id}/actions", h.Sessions.Dispatch)
	mux.HandleFunc("POST /api/sessions/{id}/reset", h.Sessions.Reset)
	mux.HandleFunc("GET /api/sessions/{id}/outline", h.Sessions.GetOutline)
	mux.HandleFunc("GET /api/sessions/{id}/events", h.Events.StreamEvents) // SSE
	mux.HandleFunc("GET /api/sessions/{id}/nodes/{path}", h.Sessions.GetNode)
	mux.HandleFunc("POST /api/sessions/{id}/nodes/{path}/children", h.Sessions.AddChild)
	mux.HandleFunc("POST /api/sessions/{id}/nodes/{path}/generate", h.Sessions.Generate)
	mux.HandleFunc("POST /api/sessions/{id}/nodes/{path}/generate-more", h.Sessions.GenerateMore)

	// User routes
	mux.HandleFunc("GET /api/users/me/credentials", h.Credentials.ListCredentials)
	mux.HandleFunc("GET /api/users/me/credentials/{provider}", h.Credentials.GetCredential)
	mux.HandleFunc("PUT /api/users/me/credentials/{provider}", h.Credentials.SetCredential)
	mux.HandleFunc("DELETE /api/users/me/credentials/{provider}", h.Credentials.DeleteCredential)
	mux.HandleFunc("GET /api/users/me/preferences", h.Preferences.GetPreferences)
	mux.HandleFunc("PATCH /api/users/me/preferences", h.Preferences.UpdatePreferences)
}

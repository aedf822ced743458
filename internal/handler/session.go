package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"outliner/internal/domain/models/outline"
	"outliner/internal/domain/services"
	"outliner/internal/httputil"
	serviceOutline "outliner/internal/service/outline"
)

// SessionHandler handles outline session HTTP requests
type SessionHandler struct {
	sessions services.SessionService
	logger   *slog.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions services.SessionService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// CreateSession starts a new outline session
// POST /api/sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req services.CreateSessionRequest
	if _, err := httputil.ParseOptionalJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	view, err := h.sessions.CreateSession(r.Context(), httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, view)
}

// ListSessions lists the user's sessions
// GET /api/sessions
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessions.ListSessions(r.Context(), httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

// GetSession returns the full session state
// GET /api/sessions/{id}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Session ID")
	if !ok {
		return
	}
	view, err := h.sessions.GetSession(r.Context(), httputil.GetUserID(r), id)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, view)
}

// DeleteSession removes a session
// DELETE /api/sessions/{id}
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Session ID")
	if !ok {
		return
	}
	if err := h.sessions.DeleteSession(r.Context(), httputil.GetUserID(r), id); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Dispatch applies one reducer action
// POST /api/sessions/{id}/actions
// Body: {"type": "SET_TEXT", "payload": {"node_path": "root.0", "text": "..."}}
func (h *SessionHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Session ID")
	if !ok {
		return
	}

	var action outline.Action
	if err := httputil.ParseJSON(w, r, &action); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := h.sessions.Dispatch(r.Context(), httputil.GetUserID(r), id, action)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, view)
}

// Reset clears the tree, or replaces it with the supplied state
// POST /api/sessions/{id}/reset
func (h *SessionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Session ID")
	if !ok {
		return
	}

	var req services.ResetSessionRequest
	if _, err := httputil.ParseOptionalJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	view, err := h.sessions.Reset(r.Context(), httputil.GetUserID(r), id, &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, view)
}

// GetOutline renders the tree
// GET /api/sessions/{id}/outline?format=json|text&all=true
func (h *SessionHandler) GetOutline(w http.ResponseWriter, r *http.Request) {
	id, ok := PathParam(w, r, "id", "Session ID")
	if !ok {
		return
	}

	query := r.URL.Query()
	includeCollapsed, _ := strconv.ParseBool(query.Get("all"))
	format := query.Get("format")
	if format != "" && format != "json" && format != "text" {
		httputil.RespondError(w, http.StatusBadRequest, "format must be json or text")
		return
	}

	view, err := h.sessions.Outline(r.Context(), httputil.GetUserID(r), id, serviceOutline.RenderOptions{
		IncludeCollapsed: includeCollapsed,
	})
	if err != nil {
		handleError(w, err)
		return
	}

	if format == "text" {
		httputil.RespondText(w, http.StatusOK, serviceOutline.RenderText(*view))
		return
	}
	httputil.RespondJSON(w, http.StatusOK, view)
}

// AddChild appends a user-authored child to a node
// POST /api/sessions/{id}/nodes/{path}/children
// Body: {"text": "..."}
func (h *SessionHandler) AddChild(w http.ResponseWriter, r *http.Request) {
	id, path, ok := sessionAndPath(w, r)
	if !ok {
		return
	}

	var req services.AddChildRequest
	if _, err := httputil.ParseOptionalJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	view, err := h.sessions.AddChild(r.Context(), httputil.GetUserID(r), id, path, &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, view)
}

// GetNode returns one node's generation status
// GET /api/sessions/{id}/nodes/{path}
func (h *SessionHandler) GetNode(w http.ResponseWriter, r *http.Request) {
	id, path, ok := sessionAndPath(w, r)
	if !ok {
		return
	}
	status, err := h.sessions.Node(r.Context(), httputil.GetUserID(r), id, path)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, status)
}

// Generate starts a background generation for a node
// POST /api/sessions/{id}/nodes/{path}/generate
// Returns 202; progress arrives on the event stream. 409 when the node is already generating.
func (h *SessionHandler) Generate(w http.ResponseWriter, r *http.Request) {
	id, path, ok := sessionAndPath(w, r)
	if !ok {
		return
	}

	var req services.GenerateRequest
	if _, err := httputil.ParseOptionalJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	status, err := h.sessions.Generate(r.Context(), httputil.GetUserID(r), id, path, &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusAccepted, status)
}

// GenerateMore starts a background generation for additional children
// POST /api/sessions/{id}/nodes/{path}/generate-more
func (h *SessionHandler) GenerateMore(w http.ResponseWriter, r *http.Request) {
	id, path, ok := sessionAndPath(w, r)
	if !ok {
		return
	}
	status, err := h.sessions.GenerateMore(r.Context(), httputil.GetUserID(r), id, path)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusAccepted, status)
}

func sessionAndPath(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	id, ok := PathParam(w, r, "id", "Session ID")
	if !ok {
		return "", "", false
	}
	path, ok := PathParam(w, r, "path", "Node path")
	if !ok {
		return "", "", false
	}
	return id, path, true
}

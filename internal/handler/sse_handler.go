package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"outliner/internal/domain/services"
	"outliner/internal/handler/sse"
	"outliner/internal/httputil"
)

// SSEHandler streams session events via Server-Sent Events
type SSEHandler struct {
	sessions services.SessionService
	config   sse.Config
	logger   *slog.Logger
}

// NewSSEHandler creates a new SSE handler. A nil config uses sse.DefaultConfig.
func NewSSEHandler(sessions services.SessionService, logger *slog.Logger, config *sse.Config) *SSEHandler {
	return &SSEHandler{
		sessions: sessions,
		config:   config.Resolved(),
		logger:   logger,
	}
}

// StreamEvents handles GET /api/sessions/{id}/events
//
// The first event is the full state; after that every applied action produces a "state" event
// (id = store version) and every generation start, completion or failure a "notification" event.
// The stream ends when the client disconnects or the session is deleted.
func (h *SSEHandler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := PathParam(w, r, "id", "Session ID")
	if !ok {
		return
	}
	userID := httputil.GetUserID(r)
	ctx := r.Context()

	events, err := h.sessions.Subscribe(ctx, userID, sessionID)
	if err != nil {
		handleError(w, err)
		return
	}

	clientID := uuid.NewString()
	logger := h.logger.With("session_id", sessionID, "client_id", clientID)

	writer, err := sse.NewWriter(w, clientID)
	if err != nil {
		logger.Error("SSE not supported by response writer", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	logger.Debug("SSE stream established", "user_id", userID)

	if err := writer.WriteRetry(h.config.RetryInterval); err != nil {
		return
	}

	pingCtx, stopPings := context.WithCancel(ctx)
	defer stopPings()
	keepAliveStopped := sse.KeepAlive(pingCtx, h.config.KeepAliveInterval, writer, logger)

	for {
		select {
		case ev, open := <-events:
			if !open {
				logger.Debug("event channel closed, ending stream")
				return
			}
			if err := writer.WriteEvent(ev.Type, ev.Version, ev); err != nil {
				logger.Debug("client disconnected during event write", "error", err)
				return
			}
		case <-keepAliveStopped:
			return
		case <-ctx.Done():
			logger.Debug("client disconnected")
			return
		}
	}
}

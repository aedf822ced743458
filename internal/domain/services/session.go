package services

import (
	"context"
	"time"

	"outliner/internal/domain/models/outline"
	"outliner/internal/service/generation"
	serviceOutline "outliner/internal/service/outline"
)

// SessionService hosts independent outline sessions, each owning one TreeState.
type SessionService interface {
	CreateSession(ctx context.Context, userID string, req *CreateSessionRequest) (*SessionView, error)
	GetSession(ctx context.Context, userID, sessionID string) (*SessionView, error)
	ListSessions(ctx context.Context, userID string) ([]SessionSummary, error)
	DeleteSession(ctx context.Context, userID, sessionID string) error

	// Dispatch applies one reducer action to the session's tree.
	Dispatch(ctx context.Context, userID, sessionID string, action outline.Action) (*SessionView, error)

	// AddChild inserts a user-authored child under path at the next free slot.
	AddChild(ctx context.Context, userID, sessionID, path string, req *AddChildRequest) (*SessionView, error)

	// Reset replaces the tree with the blank initial state, or with req.State when given.
	Reset(ctx context.Context, userID, sessionID string, req *ResetSessionRequest) (*SessionView, error)

	// Node returns the generation status of one node.
	Node(ctx context.Context, userID, sessionID, path string) (*generation.NodeStatus, error)

	// Generate starts a background generation for a node.
	Generate(ctx context.Context, userID, sessionID, path string, req *GenerateRequest) (*generation.NodeStatus, error)

	// GenerateMore starts a background "more children" generation for a node.
	GenerateMore(ctx context.Context, userID, sessionID, path string) (*generation.NodeStatus, error)

	// Outline renders the tree from root.
	Outline(ctx context.Context, userID, sessionID string, opts serviceOutline.RenderOptions) (*serviceOutline.NodeView, error)

	// Subscribe streams session events until ctx is done. The first event is the current state.
	Subscribe(ctx context.Context, userID, sessionID string) (<-chan SessionEvent, error)
}

// CreateSessionRequest starts a session, optionally with a root topic and a model override.
type CreateSessionRequest struct {
	Topic    string `json:"topic"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// ResetSessionRequest replaces the session's tree. A nil State resets to a blank root.
type ResetSessionRequest struct {
	State outline.TreeState `json:"state"`
}

// AddChildRequest is the text of a manually added node.
type AddChildRequest struct {
	Text string `json:"text"`
}

// GenerateRequest asks for children of a node.
type GenerateRequest struct {
	ExtraPrompt string `json:"extra_prompt"`
	Append      bool   `json:"append"`
}

// SessionSummary is the list view of a session.
type SessionSummary struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Model     string    `json:"model"`
	NodeCount int       `json:"node_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionView is the full state of a session.
type SessionView struct {
	SessionSummary
	Version         uint64            `json:"version"`
	State           outline.TreeState `json:"state"`
	RootIntent      string            `json:"root_intent,omitempty"`
	Loading         []string          `json:"loading"`
	ShowSuggestions bool              `json:"show_suggestions"`
}

// Session event types.
const (
	EventState        = "state"
	EventNotification = "notification"
)

// SessionEvent is one message on a session's event stream.
type SessionEvent struct {
	Type         string                   `json:"type"`
	Version      uint64                   `json:"version,omitempty"`
	State        outline.TreeState        `json:"state,omitempty"`
	Action       *outline.Action          `json:"action,omitempty"`
	Notification *generation.Notification `json:"notification,omitempty"`
}

package session

import (
	"slices"
	"sync"
	"time"

	"outliner/internal/domain/models/outline"
	"outliner/internal/domain/services"
	"outliner/internal/service/generation"
	serviceOutline "outliner/internal/service/outline"
)

// Session is one outline being edited: a store, the orchestrator reacting to it and the
// subscribers watching it.
type Session struct {
	ID        string
	UserID    string
	Model     string // "provider/model"
	CreatedAt time.Time

	now       func() time.Time
	mu        sync.Mutex
	updatedAt time.Time

	store        *serviceOutline.Store
	orchestrator *generation.Orchestrator
	hub          *hub
	unlisten     func()
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.After(s.updatedAt) {
		s.updatedAt = now
	}
}

func (s *Session) lastUpdate() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// onTransition forwards every applied action to subscribers.
func (s *Session) onTransition(t serviceOutline.Transition) {
	s.touch(s.now())
	action := t.Action
	s.hub.publish(services.SessionEvent{
		Type:    services.EventState,
		Version: t.Version,
		State:   t.After,
		Action:  &action,
	})
}

func (s *Session) notify(n generation.Notification) {
	s.hub.publish(services.SessionEvent{
		Type:         services.EventNotification,
		Notification: &n,
	})
}

func (s *Session) summary() services.SessionSummary {
	state, _ := s.store.Snapshot()
	return s.summaryOf(state)
}

func (s *Session) summaryOf(state outline.TreeState) services.SessionSummary {
	return services.SessionSummary{
		ID:        s.ID,
		Topic:     state[outline.RootPath].Text,
		Model:     s.Model,
		NodeCount: len(state),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.lastUpdate(),
	}
}

func (s *Session) view() *services.SessionView {
	state, version := s.store.Snapshot()
	root := state[outline.RootPath]
	loading := s.orchestrator.Loading()
	slices.SortFunc(loading, outline.ComparePaths)
	return &services.SessionView{
		SessionSummary:  s.summaryOf(state),
		Version:         version,
		State:           state,
		RootIntent:      s.store.RootIntent(),
		Loading:         loading,
		ShowSuggestions: len(root.Children) == 0 && !root.HasGeneratedChildren,
	}
}

// close stops generations first so no event is published after subscribers are gone.
func (s *Session) close() {
	s.orchestrator.Close()
	if s.unlisten != nil {
		s.unlisten()
	}
	s.hub.close()
}

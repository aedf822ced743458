// Package session hosts outline sessions: one store, orchestrator and event hub per session.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"outliner/internal/config"
	"outliner/internal/domain"
	"outliner/internal/domain/models/outline"
	"outliner/internal/domain/services"
	domainllm "outliner/internal/domain/services/llm"
	"outliner/internal/metrics"
	"outliner/internal/service/generation"
	"outliner/internal/service/llm"
	serviceOutline "outliner/internal/service/outline"
)

// GeneratorSource builds child generators for a user and model.
type GeneratorSource interface {
	Generator(ctx context.Context, userID, model string) (domainllm.ChildGenerator, error)
}

// Catalogue validates model choices.
type Catalogue interface {
	HasModel(provider, model string) bool
	DefaultModel(provider string) (string, error)
}

// Options configures a Manager.
type Options struct {
	// TTL is how long a session may stay untouched before the sweeper removes it.
	TTL time.Duration
	// GenerationTimeout bounds each generation.
	GenerationTimeout time.Duration
}

// Manager implements services.SessionService with in-memory sessions.
type Manager struct {
	generators GeneratorSource
	prefs      services.UserPreferencesService
	catalogue  Catalogue
	opts       Options
	logger     *slog.Logger
	now        func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session manager.
func NewManager(
	generators GeneratorSource,
	prefs services.UserPreferencesService,
	catalogue Catalogue,
	opts Options,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		generators: generators,
		prefs:      prefs,
		catalogue:  catalogue,
		opts:       opts,
		logger:     logger,
		now:        time.Now,
		sessions:   make(map[string]*Session),
	}
}

var _ services.SessionService = (*Manager)(nil)

// CreateSession starts a session for the user. Without a model in the request the user's
// preferred model is used.
func (m *Manager) CreateSession(ctx context.Context, userID string, req *services.CreateSessionRequest) (*services.SessionView, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Topic, validation.Length(0, config.MaxNodeTextLength)),
		validation.Field(&req.Provider, validation.Length(0, 64)),
		validation.Field(&req.Model, validation.Length(0, 128)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	model, err := m.resolveModel(ctx, userID, req.Provider, req.Model)
	if err != nil {
		return nil, err
	}

	now := m.now()
	s := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Model:     model,
		CreatedAt: now,
		now:       m.now,
		updatedAt: now,
		store:     serviceOutline.NewStore(nil),
		hub:       newHub(m.logger),
	}
	logger := m.logger.With("session_id", s.ID)
	s.orchestrator = generation.NewOrchestrator(s.store, func(ctx context.Context) (domainllm.ChildGenerator, error) {
		return m.generators.Generator(ctx, s.UserID, s.Model)
	}, generation.Options{
		Notifier: generation.NotifierFunc(s.notify),
		Logger:   logger,
		Timeout:  m.opts.GenerationTimeout,
	})
	s.orchestrator.Attach()
	s.unlisten = s.store.Listen(s.onTransition)

	if req.Topic != "" {
		s.store.Dispatch(outline.SetText(outline.RootPath, req.Topic))
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	metrics.ActiveSessions.Inc()

	logger.Info("session created", "user_id", userID, "model", model, "has_topic", req.Topic != "")
	return s.view(), nil
}

// resolveModel returns "provider/model" for the request, falling back to preferences.
func (m *Manager) resolveModel(ctx context.Context, userID, provider, model string) (string, error) {
	switch {
	case model == "" && provider == "":
		prefs, err := m.prefs.GetPreferences(ctx, userID)
		if err != nil {
			return "", fmt.Errorf("get preferences: %w", err)
		}
		provider, model = prefs.Provider, prefs.Model
	case model == "":
		def, err := m.catalogue.DefaultModel(provider)
		if err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		model = def
	}

	spec := model
	if provider != "" {
		spec = provider + "/" + model
	}
	info, err := llm.ParseModel(spec)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if !m.catalogue.HasModel(info.Provider, info.Model) {
		return "", fmt.Errorf("%w: unknown model %s for provider %s", domain.ErrValidation, info.Model, info.Provider)
	}
	return info.String(), nil
}

// get returns the user's session or a not-found error; other users' sessions are not revealed.
func (m *Manager) get(userID, sessionID string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok || s.UserID != userID {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("session not found: %s", sessionID)}
	}
	s.touch(m.now())
	return s, nil
}

// GetSession returns the session's full state.
func (m *Manager) GetSession(_ context.Context, userID, sessionID string) (*services.SessionView, error) {
	s, err := m.get(userID, sessionID)
	if err != nil {
		return nil, err
	}
	return s.view(), nil
}

// ListSessions returns the user's sessions, most recently updated first.
func (m *Manager) ListSessions(_ context.Context, userID string) ([]services.SessionSummary, error) {
	m.mu.RLock()
	out := make([]services.SessionSummary, 0)
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, s.summary())
		}
	}
	m.mu.RUnlock()

	slices.SortFunc(out, func(a, b services.SessionSummary) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return out, nil
}

// DeleteSession stops the session's generations and ends its event streams.
func (m *Manager) DeleteSession(_ context.Context, userID, sessionID string) error {
	s, err := m.get(userID, sessionID)
	if err != nil {
		return err
	}
	m.remove(s)
	m.logger.Info("session deleted", "session_id", sessionID, "user_id", userID)
	return nil
}

func (m *Manager) remove(s *Session) {
	m.mu.Lock()
	_, ok := m.sessions[s.ID]
	delete(m.sessions, s.ID)
	m.mu.Unlock()
	if !ok {
		return
	}
	s.close()
	metrics.ActiveSessions.Dec()
}

// Dispatch validates and applies one reducer action.
func (m *Manager) Dispatch(_ context.Context, userID, sessionID string, action outline.Action) (*services.SessionView, error) {
	s, err := m.get(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := validateAction(action); err != nil {
		return nil, err
	}
	if action.Type == outline.ActionResetState {
		s.store.SetRootIntent("")
	}
	s.store.Dispatch(action)
	return s.view(), nil
}

// AddChild inserts a child of path numbered after the existing slots. The slot is allocated
// against the state the action is applied to, so concurrent additions never collide.
func (m *Manager) AddChild(_ context.Context, userID, sessionID, path string, req *services.AddChildRequest) (*services.SessionView, error) {
	s, err := m.get(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := validatePath(path); err != nil {
		return nil, err
	}
	if err := validation.Validate(req.Text, validation.Length(0, config.MaxNodeTextLength)); err != nil {
		return nil, fmt.Errorf("%w: text: %v", domain.ErrValidation, err)
	}

	var allocErr error
	_, applied := s.store.Update(func(current outline.TreeState) (outline.Action, bool) {
		if _, ok := current[path]; !ok {
			allocErr = &domain.NotFoundError{Message: fmt.Sprintf("node not found: %s", path)}
			return outline.Action{}, false
		}
		slot, err := outline.NextSlotID(current, path)
		if err != nil {
			allocErr = fmt.Errorf("%w: %v", domain.ErrValidation, err)
			return outline.Action{}, false
		}
		return outline.AddNode(outline.ChildPath(path, slot), req.Text), true
	})
	if !applied {
		return nil, allocErr
	}
	return s.view(), nil
}

// Reset replaces the tree with the blank initial state or the supplied one.
func (m *Manager) Reset(ctx context.Context, userID, sessionID string, req *services.ResetSessionRequest) (*services.SessionView, error) {
	state := outline.InitialState()
	if req != nil && len(req.State) > 0 {
		state = req.State
	}
	return m.Dispatch(ctx, userID, sessionID, outline.ResetState(state))
}

// Node returns the status of one node.
func (m *Manager) Node(_ context.Context, userID, sessionID, path string) (*generation.NodeStatus, error) {
	s, err := m.get(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := validatePath(path); err != nil {
		return nil, err
	}
	status := s.orchestrator.Node(path).View()
	if !status.Exists {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("node not found: %s", path)}
	}
	return &status, nil
}

// Generate starts a background generation. Returns domain.ErrGenerationInFlight when the node
// is already generating.
func (m *Manager) Generate(_ context.Context, userID, sessionID, path string, req *services.GenerateRequest) (*generation.NodeStatus, error) {
	s, err := m.get(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := validatePath(path); err != nil {
		return nil, err
	}
	if err := validation.ValidateStruct(req,
		validation.Field(&req.ExtraPrompt, validation.Length(0, config.MaxExtraPromptLength)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	node := s.orchestrator.Node(path)
	if err := node.Start(req.ExtraPrompt, req.Append); err != nil {
		return nil, err
	}
	status := node.View()
	return &status, nil
}

// GenerateMore starts a background generation for additional children.
func (m *Manager) GenerateMore(_ context.Context, userID, sessionID, path string) (*generation.NodeStatus, error) {
	s, err := m.get(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := validatePath(path); err != nil {
		return nil, err
	}
	node := s.orchestrator.Node(path)
	if err := node.StartMore(); err != nil {
		return nil, err
	}
	status := node.View()
	return &status, nil
}

// Outline renders the session's tree from root.
func (m *Manager) Outline(_ context.Context, userID, sessionID string, opts serviceOutline.RenderOptions) (*serviceOutline.NodeView, error) {
	s, err := m.get(userID, sessionID)
	if err != nil {
		return nil, err
	}
	state, _ := s.store.Snapshot()
	view := serviceOutline.Render(state, outline.RootPath, opts)
	return &view, nil
}

// Subscribe streams the session's events until ctx is done or the session is removed.
func (m *Manager) Subscribe(ctx context.Context, userID, sessionID string) (<-chan services.SessionEvent, error) {
	s, err := m.get(userID, sessionID)
	if err != nil {
		return nil, err
	}

	id, ch, ok := s.hub.subscribe(func() services.SessionEvent {
		state, version := s.store.Snapshot()
		return services.SessionEvent{Type: services.EventState, Version: version, State: state}
	})
	if !ok {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("session not found: %s", sessionID)}
	}

	go func() {
		<-ctx.Done()
		s.hub.unsubscribe(id)
	}()
	return ch, nil
}

// Wait blocks until the session's background generations finish. Used by the CLI.
func (m *Manager) Wait(userID, sessionID string) error {
	s, err := m.get(userID, sessionID)
	if err != nil {
		return err
	}
	s.orchestrator.Wait()
	return nil
}

// Controller returns the generation controller of a node. Used by the CLI to run
// generations synchronously.
func (m *Manager) Controller(userID, sessionID, path string) (*generation.Controller, error) {
	s, err := m.get(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := validatePath(path); err != nil {
		return nil, err
	}
	return s.orchestrator.Node(path), nil
}

// Run sweeps idle sessions until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	if m.opts.TTL <= 0 {
		return
	}
	interval := m.opts.TTL / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

// sweep removes sessions untouched for longer than the TTL. Sessions with live subscribers
// or running generations are kept.
func (m *Manager) sweep() int {
	cutoff := m.now().Add(-m.opts.TTL)

	m.mu.RLock()
	var idle []*Session
	for _, s := range m.sessions {
		if s.lastUpdate().Before(cutoff) && s.hub.count() == 0 && len(s.orchestrator.Loading()) == 0 {
			idle = append(idle, s)
		}
	}
	m.mu.RUnlock()

	for _, s := range idle {
		m.remove(s)
		m.logger.Info("session expired", "session_id", s.ID, "user_id", s.UserID)
	}
	return len(idle)
}

// Close removes every session.
func (m *Manager) Close() {
	m.mu.RLock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.RUnlock()

	for _, s := range all {
		m.remove(s)
	}
}

package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outliner/internal/capabilities"
	"outliner/internal/domain"
	"outliner/internal/domain/models"
	"outliner/internal/domain/models/outline"
	"outliner/internal/domain/services"
	domainllm "outliner/internal/domain/services/llm"
	serviceOutline "outliner/internal/service/outline"
)

type fixedPrefs struct {
	provider, model string
}

func (p fixedPrefs) GetPreferences(_ context.Context, userID string) (*models.UserPreferences, error) {
	return &models.UserPreferences{UserID: userID, Provider: p.provider, Model: p.model}, nil
}

func (p fixedPrefs) UpdatePreferences(context.Context, string, *models.UpdatePreferencesRequest) (*models.UserPreferences, error) {
	return nil, domain.ErrValidation
}

// staticGenerator answers every request with the same output.
type staticGenerator struct {
	output string
	err    error

	mu     sync.Mutex
	models []string
}

func (g *staticGenerator) Generator(_ context.Context, _ string, model string) (domainllm.ChildGenerator, error) {
	g.mu.Lock()
	g.models = append(g.models, model)
	g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	return g, nil
}

func (g *staticGenerator) Provider() string { return "static" }

func (g *staticGenerator) GenerateChildren(context.Context, string, string) (<-chan domainllm.StreamChunk, error) {
	ch := make(chan domainllm.StreamChunk, 1)
	ch <- domainllm.StreamChunk{Text: g.output}
	close(ch)
	return ch, nil
}

const planets = "<CHILDREN><NODE>Mercury</NODE><NODE>Venus</NODE><NODE>Earth</NODE></CHILDREN>"

func newTestManager(t *testing.T, gen GeneratorSource) *Manager {
	t.Helper()
	catalogue, err := capabilities.NewRegistry()
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := NewManager(gen, fixedPrefs{provider: "lorem", model: "lorem-fast"}, catalogue, Options{TTL: time.Hour}, logger)
	t.Cleanup(m.Close)
	return m
}

func TestCreateSession(t *testing.T) {
	m := newTestManager(t, &staticGenerator{output: planets})
	ctx := context.Background()

	tests := []struct {
		name      string
		req       services.CreateSessionRequest
		wantModel string
		wantErr   error
	}{
		{name: "preferences", req: services.CreateSessionRequest{Topic: "Solar System"}, wantModel: "lorem/lorem-fast"},
		{name: "provider default", req: services.CreateSessionRequest{Provider: "anthropic"}, wantModel: "anthropic/claude-haiku-4-5"},
		{name: "explicit model", req: services.CreateSessionRequest{Model: "openai/gpt-4o"}, wantModel: "openai/gpt-4o"},
		{name: "provider and model", req: services.CreateSessionRequest{Provider: "openai", Model: "gpt-4.1-nano"}, wantModel: "openai/gpt-4.1-nano"},
		{name: "unknown model", req: services.CreateSessionRequest{Model: "openai/gpt-2"}, wantErr: domain.ErrValidation},
		{name: "unknown provider", req: services.CreateSessionRequest{Provider: "gemini"}, wantErr: domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			view, err := m.CreateSession(ctx, "user-1", &req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantModel, view.Model)
			assert.Equal(t, tt.req.Topic, view.Topic)
			assert.NotEmpty(t, view.ID)
			assert.True(t, view.ShowSuggestions)
		})
	}
}

func TestSessionsAreScopedToUser(t *testing.T) {
	m := newTestManager(t, &staticGenerator{output: planets})
	ctx := context.Background()

	view, err := m.CreateSession(ctx, "alice", &services.CreateSessionRequest{Topic: "Jazz"})
	require.NoError(t, err)

	_, err = m.GetSession(ctx, "bob", view.ID)
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)

	list, err := m.ListSessions(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = m.ListSessions(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Jazz", list[0].Topic)

	require.NoError(t, m.DeleteSession(ctx, "alice", view.ID))
	_, err = m.GetSession(ctx, "alice", view.ID)
	assert.ErrorAs(t, err, &notFound)
}

func TestDispatchExpandGenerates(t *testing.T) {
	m := newTestManager(t, &staticGenerator{output: planets})
	ctx := context.Background()

	view, err := m.CreateSession(ctx, "u", &services.CreateSessionRequest{Topic: "Solar System"})
	require.NoError(t, err)

	_, err = m.Dispatch(ctx, "u", view.ID, outline.SetExpanded(outline.RootPath, true))
	require.NoError(t, err)
	require.NoError(t, m.Wait("u", view.ID))

	view, err = m.GetSession(ctx, "u", view.ID)
	require.NoError(t, err)
	assert.Equal(t, "Earth", view.State["root.2"].Text)
	assert.True(t, view.State[outline.RootPath].HasGeneratedChildren)
	assert.False(t, view.ShowSuggestions)
	assert.Empty(t, view.Loading)

	rendered, err := m.Outline(ctx, "u", view.ID, serviceOutline.RenderOptions{})
	require.NoError(t, err)
	require.Len(t, rendered.Children, 3)
	assert.Equal(t, "Mercury", rendered.Children[0].Text)
}

func TestDispatchValidation(t *testing.T) {
	m := newTestManager(t, &staticGenerator{output: planets})
	ctx := context.Background()
	view, err := m.CreateSession(ctx, "u", &services.CreateSessionRequest{})
	require.NoError(t, err)

	tests := []struct {
		name   string
		action outline.Action
	}{
		{name: "unknown type", action: outline.Action{Type: "EXPLODE", Path: "root"}},
		{name: "missing path", action: outline.Action{Type: outline.ActionSetText, Text: "x"}},
		{name: "bad path", action: outline.SetText("root.a", "x")},
		{name: "bad state key", action: outline.ResetState(outline.TreeState{"leaf": outline.NewRecord("x")})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Dispatch(ctx, "u", view.ID, tt.action)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestGenerateInFlight(t *testing.T) {
	gate := make(chan struct{})
	gen := &gatedGenerator{gate: gate}
	m := newTestManager(t, gen)
	ctx := context.Background()

	view, err := m.CreateSession(ctx, "u", &services.CreateSessionRequest{Topic: "Rivers"})
	require.NoError(t, err)

	status, err := m.Generate(ctx, "u", view.ID, outline.RootPath, &services.GenerateRequest{})
	require.NoError(t, err)
	assert.True(t, status.IsLoading)

	_, err = m.Generate(ctx, "u", view.ID, outline.RootPath, &services.GenerateRequest{})
	assert.ErrorIs(t, err, domain.ErrGenerationInFlight)

	close(gate)
	require.NoError(t, m.Wait("u", view.ID))

	node, err := m.Node(ctx, "u", view.ID, "root.0")
	require.NoError(t, err)
	assert.Equal(t, "Nile", node.Text)

	_, err = m.Node(ctx, "u", view.ID, "root.9")
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

type gatedGenerator struct {
	gate chan struct{}
}

func (g *gatedGenerator) Generator(context.Context, string, string) (domainllm.ChildGenerator, error) {
	return g, nil
}

func (g *gatedGenerator) Provider() string { return "gated" }

func (g *gatedGenerator) GenerateChildren(ctx context.Context, _, _ string) (<-chan domainllm.StreamChunk, error) {
	ch := make(chan domainllm.StreamChunk, 1)
	go func() {
		defer close(ch)
		select {
		case <-g.gate:
			ch <- domainllm.StreamChunk{Text: "<CHILDREN><NODE>Nile</NODE></CHILDREN>"}
		case <-ctx.Done():
			ch <- domainllm.StreamChunk{Err: ctx.Err()}
		}
	}()
	return ch, nil
}

func TestResetClearsTree(t *testing.T) {
	m := newTestManager(t, &staticGenerator{output: planets})
	ctx := context.Background()

	view, err := m.CreateSession(ctx, "u", &services.CreateSessionRequest{Topic: "Solar System"})
	require.NoError(t, err)
	_, err = m.Dispatch(ctx, "u", view.ID, outline.AddNode(outline.RootPath, "Sun"))
	require.NoError(t, err)

	view, err = m.Reset(ctx, "u", view.ID, &services.ResetSessionRequest{})
	require.NoError(t, err)
	assert.Equal(t, outline.InitialState(), view.State)
	assert.True(t, view.ShowSuggestions)

	replacement := outline.TreeState{
		"root":   {Text: "Oceans", Children: map[string]bool{"0": true}},
		"root.0": outline.NewRecord("Pacific"),
	}
	view, err = m.Reset(ctx, "u", view.ID, &services.ResetSessionRequest{State: replacement})
	require.NoError(t, err)
	assert.Equal(t, "Pacific", view.State["root.0"].Text)
	assert.Equal(t, "Oceans", view.Topic)
}

func TestSubscribeReceivesSnapshotAndUpdates(t *testing.T) {
	m := newTestManager(t, &staticGenerator{output: planets})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	view, err := m.CreateSession(ctx, "u", &services.CreateSessionRequest{Topic: "Solar System"})
	require.NoError(t, err)

	events, err := m.Subscribe(ctx, "u", view.ID)
	require.NoError(t, err)

	first := <-events
	assert.Equal(t, services.EventState, first.Type)
	assert.Equal(t, view.Version, first.Version)

	_, err = m.Dispatch(ctx, "u", view.ID, outline.SetText(outline.RootPath, "Planets"))
	require.NoError(t, err)

	next := <-events
	assert.Equal(t, services.EventState, next.Type)
	assert.Equal(t, first.Version+1, next.Version)
	require.NotNil(t, next.Action)
	assert.Equal(t, outline.ActionSetText, next.Action.Type)
	assert.Equal(t, "Planets", next.State[outline.RootPath].Text)

	cancel()
	assert.Eventually(t, func() bool {
		_, open := <-events
		return !open
	}, time.Second, 10*time.Millisecond)
}

func TestMissingCredentialIsNotified(t *testing.T) {
	m := newTestManager(t, &staticGenerator{err: domain.ErrMissingCredential})
	ctx := context.Background()

	view, err := m.CreateSession(ctx, "u", &services.CreateSessionRequest{Topic: "Solar System"})
	require.NoError(t, err)
	events, err := m.Subscribe(ctx, "u", view.ID)
	require.NoError(t, err)
	<-events

	_, err = m.Generate(ctx, "u", view.ID, outline.RootPath, &services.GenerateRequest{})
	require.NoError(t, err)
	require.NoError(t, m.Wait("u", view.ID))

	var failed *services.SessionEvent
	timeout := time.After(time.Second)
	for failed == nil {
		select {
		case ev := <-events:
			if ev.Type == services.EventNotification && ev.Notification.Type == "generation_failed" {
				failed = &ev
			}
		case <-timeout:
			t.Fatal("no failure notification")
		}
	}
	assert.Equal(t, "API key missing", failed.Notification.Message)
}

func TestSweepRemovesIdleSessions(t *testing.T) {
	m := newTestManager(t, &staticGenerator{output: planets})
	ctx := context.Background()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	idle, err := m.CreateSession(ctx, "u", &services.CreateSessionRequest{Topic: "Idle"})
	require.NoError(t, err)
	watched, err := m.CreateSession(ctx, "u", &services.CreateSessionRequest{Topic: "Watched"})
	require.NoError(t, err)

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	_, err = m.Subscribe(subCtx, "u", watched.ID)
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	assert.Equal(t, 1, m.sweep())

	_, err = m.GetSession(ctx, "u", idle.ID)
	assert.Error(t, err)
	_, err = m.GetSession(ctx, "u", watched.ID)
	assert.NoError(t, err)
}

func TestAddChildAllocatesSlots(t *testing.T) {
	m := newTestManager(t, &staticGenerator{output: planets})
	ctx := context.Background()
	view, err := m.CreateSession(ctx, "user-1", &services.CreateSessionRequest{Topic: "Planets"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.AddChild(ctx, "user-1", view.ID, outline.RootPath, &services.AddChildRequest{Text: "moon"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	view, err = m.GetSession(ctx, "user-1", view.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, outline.ChildKeys(view.State, outline.RootPath))
	assert.True(t, view.State[outline.RootPath].IsExpanded)

	_, err = m.AddChild(ctx, "user-1", view.ID, "root.42", &services.AddChildRequest{Text: "x"})
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)

	_, err = m.AddChild(ctx, "user-1", view.ID, "root/1", &services.AddChildRequest{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAddChildRejectsOversizedSlots(t *testing.T) {
	m := newTestManager(t, &staticGenerator{output: planets})
	ctx := context.Background()
	view, err := m.CreateSession(ctx, "user-1", &services.CreateSessionRequest{Topic: "Planets"})
	require.NoError(t, err)

	_, err = m.Dispatch(ctx, "user-1", view.ID, outline.AddNode("root.9223372036854775807", "huge"))
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = m.Dispatch(ctx, "user-1", view.ID, outline.ResetState(outline.TreeState{
		"root":                     {Text: "Planets", Children: map[string]bool{}},
		"root.9223372036854775807": {Text: "huge", Children: map[string]bool{}},
	}))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = m.Dispatch(ctx, "user-1", view.ID, outline.AddNode("root.999999999", "last"))
	require.NoError(t, err)
	_, err = m.AddChild(ctx, "user-1", view.ID, outline.RootPath, &services.AddChildRequest{Text: "one more"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.ErrorIs(t, err, outline.ErrSlotsExhausted)

	view, err = m.GetSession(ctx, "user-1", view.ID)
	require.NoError(t, err)
	for path := range view.State {
		assert.True(t, outline.ValidPath(path), path)
	}
}

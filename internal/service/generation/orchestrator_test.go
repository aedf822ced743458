package generation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outliner/internal/domain"
	"outliner/internal/domain/models/outline"
	domainllm "outliner/internal/domain/services/llm"
	serviceOutline "outliner/internal/service/outline"
)

type generatorCall struct {
	prompt  string
	context string
}

// scriptedGenerator answers the n-th request with the n-th script (the last one repeats).
// When gate is set every stream waits for it before sending.
type scriptedGenerator struct {
	mu      sync.Mutex
	scripts [][]domainllm.StreamChunk
	calls   []generatorCall
	gate    chan struct{}
}

func (g *scriptedGenerator) Provider() string { return "scripted" }

func (g *scriptedGenerator) GenerateChildren(ctx context.Context, prompt, parentContext string) (<-chan domainllm.StreamChunk, error) {
	g.mu.Lock()
	n := len(g.calls)
	g.calls = append(g.calls, generatorCall{prompt: prompt, context: parentContext})
	script := g.scripts[min(n, len(g.scripts)-1)]
	gate := g.gate
	g.mu.Unlock()

	ch := make(chan domainllm.StreamChunk)
	go func() {
		defer close(ch)
		if gate != nil {
			select {
			case <-gate:
			case <-ctx.Done():
				ch <- domainllm.StreamChunk{Err: ctx.Err()}
				return
			}
		}
		for _, c := range script {
			ch <- c
		}
	}()
	return ch, nil
}

func (g *scriptedGenerator) Calls() []generatorCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]generatorCall(nil), g.calls...)
}

func text(chunks ...string) []domainllm.StreamChunk {
	out := make([]domainllm.StreamChunk, len(chunks))
	for i, c := range chunks {
		out[i] = domainllm.StreamChunk{Text: c}
	}
	return out
}

type recorder struct {
	mu     sync.Mutex
	events []Notification
}

func (r *recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, n)
}

func (r *recorder) Types() []NotificationType {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]NotificationType, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}

func (r *recorder) Last() Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func newTestOrchestrator(t *testing.T, initial outline.TreeState, gen *scriptedGenerator) (*Orchestrator, *serviceOutline.Store, *recorder) {
	t.Helper()
	store := serviceOutline.NewStore(initial)
	rec := &recorder{}
	o := NewOrchestrator(store, func(context.Context) (domainllm.ChildGenerator, error) {
		return gen, nil
	}, Options{Notifier: rec})
	o.Attach()
	t.Cleanup(o.Close)
	return o, store, rec
}

func record(text string, expanded, generated bool, slots ...string) outline.NodeRecord {
	r := outline.NewRecord(text)
	r.IsExpanded = expanded
	r.HasGeneratedChildren = generated
	for _, s := range slots {
		r.Children[s] = true
	}
	return r
}

func generatedPlanets() outline.TreeState {
	return outline.TreeState{
		"root":     record("Solar System", true, true, "0"),
		"root.0":   record("Planets", true, true, "0", "1"),
		"root.0.0": record("Mercury", false, false),
		"root.0.1": record("Venus", false, false),
	}
}

func TestExpandGeneratesChildren(t *testing.T) {
	gen := &scriptedGenerator{scripts: [][]domainllm.StreamChunk{
		text("<CHILDREN><NODE>Mercury</NODE><NOD", "E>Venus</NODE></CHILDREN>"),
	}}
	o, store, rec := newTestOrchestrator(t, nil, gen)

	store.Dispatch(outline.SetText("root", "Solar System"))
	store.Dispatch(outline.ToggleExpanded("root"))
	o.Wait()

	state := store.State()
	assert.Equal(t, "Mercury", state["root.0"].Text)
	assert.Equal(t, "Venus", state["root.1"].Text)
	assert.Equal(t, map[string]bool{"0": true, "1": true}, state["root"].Children)
	assert.True(t, state["root"].HasGeneratedChildren)
	assert.True(t, state["root"].IsExpanded)
	assert.False(t, state["root.0"].HasGeneratedChildren)

	calls := gen.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Solar System", calls[0].context)
	assert.Empty(t, calls[0].prompt)
	assert.Equal(t, []NotificationType{NotificationStarted, NotificationCompleted}, rec.Types())
	assert.Equal(t, 2, rec.Last().Nodes)
	assert.False(t, o.Node("root").IsLoading())
}

func TestReexpandDoesNotRegenerate(t *testing.T) {
	gen := &scriptedGenerator{scripts: [][]domainllm.StreamChunk{text("<CHILDREN></CHILDREN>")}}
	o, store, _ := newTestOrchestrator(t, generatedPlanets(), gen)

	store.Dispatch(outline.SetExpanded("root.0", false))
	store.Dispatch(outline.SetExpanded("root.0", true))
	store.Dispatch(outline.ToggleExpanded("root.0.0"))
	o.Wait()

	calls := gen.Calls()
	require.Len(t, calls, 1, "only the never-generated leaf is generated")
	assert.Equal(t, "Solar System > Planets > Mercury", calls[0].context)
	assert.Equal(t, "Mercury", store.State()["root.0.0"].Text)
}

func TestRefreshAfterEdit(t *testing.T) {
	gen := &scriptedGenerator{scripts: [][]domainllm.StreamChunk{
		text("<CHILDREN><NODE>Pluto</NODE>", "<NODE>Ceres</NODE></CHILDREN>"),
	}}
	o, store, _ := newTestOrchestrator(t, generatedPlanets(), gen)

	tr := store.Dispatch(outline.SetText("root.0", "Dwarf planets"))
	assert.False(t, tr.After["root.0"].HasGeneratedChildren)
	o.Wait()

	state := store.State()
	assert.Equal(t, "Pluto", state["root.0.0"].Text)
	assert.Equal(t, "Ceres", state["root.0.1"].Text)
	assert.Equal(t, map[string]bool{"0": true, "1": true}, state["root.0"].Children)
	assert.True(t, state["root.0"].HasGeneratedChildren)
	assert.Equal(t, "Dwarf planets", state["root.0"].Text)

	calls := gen.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Solar System > Dwarf planets", calls[0].context)
	assert.Empty(t, calls[0].prompt, "refresh starts from an empty child list")
	assert.False(t, o.Node("root.0").View().IsStale)
}

func TestEditCollapsedNodeRefreshesOnExpand(t *testing.T) {
	initial := generatedPlanets()
	initial["root.0"] = record("Planets", false, true, "0", "1")
	gen := &scriptedGenerator{scripts: [][]domainllm.StreamChunk{text("<CHILDREN><NODE>Pluto</NODE></CHILDREN>")}}
	o, store, _ := newTestOrchestrator(t, initial, gen)

	store.Dispatch(outline.SetText("root.0", "Dwarf planets"))
	o.Wait()
	assert.Empty(t, gen.Calls())
	status := o.Node("root.0").View()
	assert.True(t, status.IsStale)
	assert.Equal(t, 2, status.ChildCount)

	store.Dispatch(outline.ToggleExpanded("root.0"))
	o.Wait()

	state := store.State()
	require.Len(t, gen.Calls(), 1)
	assert.Equal(t, "Pluto", state["root.0.0"].Text)
	_, ok := state["root.0.1"]
	assert.False(t, ok)
}

func TestRegenerateForCurrentTextClearsStale(t *testing.T) {
	gen := &scriptedGenerator{scripts: [][]domainllm.StreamChunk{
		text("<CHILDREN><NODE>Earth</NODE><NODE>Mars</NODE></CHILDREN>"),
	}}
	o, store, _ := newTestOrchestrator(t, generatedPlanets(), gen)

	store.Dispatch(outline.SetExpanded("root.0", false))
	store.Dispatch(outline.SetText("root.0", "Rocky planets"))
	o.Wait()
	require.True(t, o.Node("root.0").View().IsStale)

	require.NoError(t, o.Node("root.0").GenerateChildren(context.Background(), "", false))
	status := o.Node("root.0").View()
	assert.True(t, status.HasGenerated)
	assert.False(t, status.IsStale)

	store.Dispatch(outline.SetExpanded("root.0", true))
	o.Wait()

	assert.Len(t, gen.Calls(), 1, "expanding a freshly generated node does not refresh it")
	state := store.State()
	assert.Equal(t, "Earth", state["root.0.0"].Text)
	assert.Equal(t, "Mars", state["root.0.1"].Text)
	assert.True(t, state["root.0"].HasGeneratedChildren)
}

func TestSameTextDoesNotRefresh(t *testing.T) {
	gen := &scriptedGenerator{scripts: [][]domainllm.StreamChunk{text("<CHILDREN></CHILDREN>")}}
	o, store, _ := newTestOrchestrator(t, generatedPlanets(), gen)

	store.Dispatch(outline.SetText("root.0", "Planets"))
	o.Wait()

	assert.Empty(t, gen.Calls())
	assert.True(t, store.State()["root.0"].HasGeneratedChildren)
	assert.Equal(t, "Mercury", store.State()["root.0.0"].Text)
}

func TestGenerateWhileInFlight(t *testing.T) {
	gen := &scriptedGenerator{
		scripts: [][]domainllm.StreamChunk{text("<CHILDREN><NODE>A</NODE></CHILDREN>")},
		gate:    make(chan struct{}),
	}
	o, store, _ := newTestOrchestrator(t, nil, gen)
	store.Dispatch(outline.SetText("root", "Topic"))

	node := o.Node("root")
	require.NoError(t, node.Start("", false))
	assert.True(t, node.IsLoading())
	assert.True(t, node.View().IsLoading)

	err := node.GenerateChildren(context.Background(), "", false)
	assert.ErrorIs(t, err, domain.ErrGenerationInFlight)
	assert.ErrorIs(t, node.Start("", false), domain.ErrGenerationInFlight)

	close(gen.gate)
	o.Wait()

	assert.False(t, node.IsLoading())
	assert.Len(t, gen.Calls(), 1)
	assert.Equal(t, "A", store.State()["root.0"].Text)
}

func TestGenerateMoreChildrenAppends(t *testing.T) {
	initial := outline.TreeState{
		"root":   record("Solar System", true, true, "0", "1"),
		"root.0": record("Mercury", false, false),
		"root.1": record("Venus", false, false),
	}
	gen := &scriptedGenerator{scripts: [][]domainllm.StreamChunk{
		text("<CHILDREN><NODE>Earth</NODE><NODE>Mars</NODE></CHILDREN>"),
	}}
	o, store, _ := newTestOrchestrator(t, initial, gen)

	require.NoError(t, o.Node("root").GenerateMoreChildren(context.Background()))

	state := store.State()
	assert.Equal(t, "Mercury", state["root.0"].Text)
	assert.Equal(t, "Venus", state["root.1"].Text)
	assert.Equal(t, "Earth", state["root.2"].Text)
	assert.Equal(t, "Mars", state["root.3"].Text)
	assert.Len(t, state["root"].Children, 4)

	calls := gen.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t,
		"Please generate additional children for this topic. Please generate more children different from the existing ones: [Mercury, Venus]",
		calls[0].prompt)
}

func TestMissingCredential(t *testing.T) {
	store := serviceOutline.NewStore(nil)
	rec := &recorder{}
	o := NewOrchestrator(store, func(context.Context) (domainllm.ChildGenerator, error) {
		return nil, domain.ErrMissingCredential
	}, Options{Notifier: rec})
	defer o.Close()

	before := store.State()
	err := o.Node("root").GenerateChildren(context.Background(), "", false)

	assert.ErrorIs(t, err, domain.ErrMissingCredential)
	assert.Equal(t, before, store.State())
	assert.False(t, o.IsLoading("root"))
	require.Equal(t, []NotificationType{NotificationFailed}, rec.Types())
	assert.Equal(t, "API key missing", rec.Last().Message)
}

func TestTransportFailureKeepsMergedChildren(t *testing.T) {
	gen := &scriptedGenerator{scripts: [][]domainllm.StreamChunk{{
		{Text: "<CHILDREN><NODE>Mercury</NODE>"},
		{Err: errors.New("connection reset")},
	}}}
	o, store, rec := newTestOrchestrator(t, nil, gen)

	err := o.Node("root").GenerateChildren(context.Background(), "", false)

	var transportErr *domain.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "scripted", transportErr.Provider)

	state := store.State()
	assert.Equal(t, "Mercury", state["root.0"].Text)
	assert.False(t, state["root"].HasGeneratedChildren)
	assert.False(t, o.IsLoading("root"))
	assert.Equal(t, NotificationFailed, rec.Last().Type)
}

func TestEmptyOutputStillMarksGenerated(t *testing.T) {
	gen := &scriptedGenerator{scripts: [][]domainllm.StreamChunk{text("I cannot help with that.")}}
	o, store, _ := newTestOrchestrator(t, nil, gen)

	require.NoError(t, o.Node("root").GenerateChildren(context.Background(), "", false))

	root := store.State()["root"]
	assert.True(t, root.HasGeneratedChildren)
	assert.Empty(t, root.Children)
}

func TestRootIntentReachesDescendants(t *testing.T) {
	gen := &scriptedGenerator{scripts: [][]domainllm.StreamChunk{
		text("<INTENT>Practical habits for better sleep</INTENT><CHILDREN><NODE>Evening routine</NODE></CHILDREN>"),
		text("<CHILDREN><NODE>No screens</NODE></CHILDREN>"),
	}}
	o, store, _ := newTestOrchestrator(t, nil, gen)
	store.Dispatch(outline.SetText("root", "Fix my sleep"))

	require.NoError(t, o.Node("root").GenerateChildren(context.Background(), "", false))
	assert.Equal(t, "Practical habits for better sleep", store.RootIntent())

	require.NoError(t, o.Node("root.0").GenerateChildren(context.Background(), "", false))

	calls := gen.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "Fix my sleep", calls[0].context)
	assert.Equal(t, "Fix my sleep > Evening routine (Intent: Practical habits for better sleep)", calls[1].context)
	assert.Equal(t, "No screens", store.State()["root.0.0"].Text)
}

func TestEditDuringGenerationRefreshesAfterCompletion(t *testing.T) {
	gen := &scriptedGenerator{
		scripts: [][]domainllm.StreamChunk{
			text("<CHILDREN><NODE>Old child</NODE></CHILDREN>"),
			text("<CHILDREN><NODE>New child</NODE></CHILDREN>"),
		},
		gate: make(chan struct{}),
	}
	o, store, _ := newTestOrchestrator(t, nil, gen)
	store.Dispatch(outline.SetText("root", "Old topic"))
	store.Dispatch(outline.ToggleExpanded("root"))
	require.True(t, o.IsLoading("root"))

	store.Dispatch(outline.SetText("root", "New topic"))
	close(gen.gate)
	o.Wait()

	calls := gen.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "Old topic", calls[0].context)
	assert.Equal(t, "New topic", calls[1].context)

	state := store.State()
	assert.Equal(t, "New child", state["root.0"].Text)
	assert.Len(t, state["root"].Children, 1)
	assert.True(t, state["root"].HasGeneratedChildren)
}

func TestInvalidPath(t *testing.T) {
	gen := &scriptedGenerator{scripts: [][]domainllm.StreamChunk{text("")}}
	o, _, _ := newTestOrchestrator(t, nil, gen)

	err := o.Node("root..1").GenerateChildren(context.Background(), "", false)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, gen.Calls())
}

func TestAppendRefusedWhenSlotsExhausted(t *testing.T) {
	initial := outline.TreeState{
		"root":           record("Solar System", true, true, "999999999"),
		"root.999999999": record("Neptune", false, false),
	}
	gen := &scriptedGenerator{scripts: [][]domainllm.StreamChunk{text("<CHILDREN><NODE>Pluto</NODE></CHILDREN>")}}
	o, store, rec := newTestOrchestrator(t, initial, gen)

	err := o.Node("root").GenerateMoreChildren(context.Background())
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.ErrorIs(t, err, outline.ErrSlotsExhausted)
	assert.Empty(t, gen.Calls())
	assert.False(t, o.Node("root").IsLoading())
	assert.Equal(t, NotificationFailed, rec.Last().Type)
	assert.Len(t, store.State(), 2)
}

package outline

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outliner/internal/domain/models/outline"
)

func TestStoreDispatch(t *testing.T) {
	s := NewStore(nil)

	var seen []Transition
	cancel := s.Listen(func(tr Transition) { seen = append(seen, tr) })

	tr := s.Dispatch(outline.SetText("root", "Solar System"))
	assert.Equal(t, uint64(1), tr.Version)
	assert.Equal(t, "", tr.Before["root"].Text)
	assert.Equal(t, "Solar System", tr.After["root"].Text)
	assert.Equal(t, uint64(1), s.Version())

	cancel()
	cancel()
	s.Dispatch(outline.ToggleExpanded("root"))

	require.Len(t, seen, 1)
	assert.Equal(t, outline.ActionSetText, seen[0].Action.Type)

	rec, ok := s.Record("root")
	require.True(t, ok)
	assert.True(t, rec.IsExpanded)
	_, ok = s.Record("root.4")
	assert.False(t, ok)
}

func TestStoreUpdateSkipsWhenBuildDeclines(t *testing.T) {
	s := NewStore(nil)
	calls := 0
	s.Listen(func(Transition) { calls++ })

	_, applied := s.Update(func(current outline.TreeState) (outline.Action, bool) {
		return outline.Action{}, current["root"].Text != ""
	})

	assert.False(t, applied)
	assert.Equal(t, 0, calls)
	assert.Equal(t, uint64(0), s.Version())
}

func TestStoreStateIsACopy(t *testing.T) {
	s := NewStore(outline.TreeState{"root": outline.NewRecord("x")})
	state := s.State()
	state["root"].Children["0"] = true

	rec, _ := s.Record("root")
	assert.Empty(t, rec.Children)
}

func TestStoreDeliversInVersionOrder(t *testing.T) {
	s := NewStore(nil)

	var mu sync.Mutex
	var versions []uint64
	s.Listen(func(tr Transition) {
		mu.Lock()
		versions = append(versions, tr.Version)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Dispatch(outline.AddNode(outline.ChildPath("root", i), "n"))
		}()
	}
	wg.Wait()

	require.Len(t, versions, 50)
	for i, v := range versions {
		assert.Equal(t, uint64(i+1), v)
	}
	assert.Len(t, s.State()["root"].Children, 50)
}

func TestStoreRootIntent(t *testing.T) {
	s := NewStore(nil)
	s.SetRootIntent("planets of the solar system")
	assert.Equal(t, "planets of the solar system", s.RootIntent())
}

func TestZeroValueStorePanics(t *testing.T) {
	var s Store
	assert.Panics(t, func() { s.Dispatch(outline.SetText("root", "x")) })

	var nilStore *Store
	assert.Panics(t, func() { nilStore.Version() })
}

package outline

import (
	"slices"
	"sync"

	"outliner/internal/domain/models/outline"
	"outliner/internal/metrics"
)

// Transition records one applied action. Before and After are shared snapshots and must not
// be modified by listeners.
type Transition struct {
	Action  outline.Action
	Before  outline.TreeState
	After   outline.TreeState
	Version uint64
}

// Listener observes transitions in version order.
// Listeners may read the store but must not dispatch synchronously: a dispatch waits for
// the delivery of every earlier transition.
type Listener func(Transition)

// Store is the single owner of a session's TreeState. Every mutation goes through Dispatch or
// Update, which apply Reduce atomically.
type Store struct {
	mu sync.Mutex // guards state, version, rootIntent, listeners

	notifyMu  sync.Mutex
	notified  *sync.Cond // signalled when delivered advances
	delivered uint64     // highest version handed to listeners

	state      outline.TreeState
	version    uint64
	rootIntent string

	listeners    map[int]Listener
	nextListener int
	initialized  bool
}

// NewStore creates a store holding initial, or the blank initial state when initial is empty.
func NewStore(initial outline.TreeState) *Store {
	state := outline.InitialState()
	if len(initial) > 0 {
		state = Reduce(state, outline.ResetState(initial))
	}
	s := &Store{
		state:       state,
		listeners:   make(map[int]Listener),
		initialized: true,
	}
	s.notified = sync.NewCond(&s.notifyMu)
	return s
}

// mustBeInitialized panics on a nil or zero-value store.
func (s *Store) mustBeInitialized() {
	if s == nil || !s.initialized {
		panic("outline: store used before NewStore")
	}
}

// Dispatch applies action and returns the resulting transition.
func (s *Store) Dispatch(action outline.Action) Transition {
	t, _ := s.Update(func(outline.TreeState) (outline.Action, bool) {
		return action, true
	})
	return t
}

// Update computes an action from the current state and applies it atomically.
// When build returns false nothing is applied and no listener is notified.
func (s *Store) Update(build func(current outline.TreeState) (outline.Action, bool)) (Transition, bool) {
	s.mustBeInitialized()

	s.mu.Lock()
	action, ok := build(s.state)
	if !ok {
		s.mu.Unlock()
		return Transition{}, false
	}
	before := s.state
	s.state = Reduce(before, action)
	s.version++
	t := Transition{Action: action, Before: before, After: s.state, Version: s.version}
	listeners := make([]Listener, 0, len(s.listeners))
	for _, id := range sortedListenerIDs(s.listeners) {
		listeners = append(listeners, s.listeners[id])
	}

	s.mu.Unlock()

	metrics.ReducerActions.WithLabelValues(string(action.Type)).Inc()

	// Deliver in version order: wait for the previous transition's listeners to finish.
	s.notifyMu.Lock()
	for s.delivered != t.Version-1 {
		s.notified.Wait()
	}
	for _, l := range listeners {
		l(t)
	}
	s.delivered = t.Version
	s.notified.Broadcast()
	s.notifyMu.Unlock()
	return t, true
}

// State returns a deep copy of the current state.
func (s *Store) State() outline.TreeState {
	s.mustBeInitialized()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Snapshot returns the current state and version without copying. The state must not be modified.
func (s *Store) Snapshot() (outline.TreeState, uint64) {
	s.mustBeInitialized()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.version
}

// Record returns the record at path.
func (s *Store) Record(path string) (outline.NodeRecord, bool) {
	s.mustBeInitialized()
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.state[path]
	if !ok {
		return outline.NodeRecord{}, false
	}
	return rec.Clone(), true
}

// Version returns the number of transitions applied so far.
func (s *Store) Version() uint64 {
	s.mustBeInitialized()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// RootIntent returns the intent annotation captured from the root's generation.
func (s *Store) RootIntent() string {
	s.mustBeInitialized()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rootIntent
}

func (s *Store) SetRootIntent(intent string) {
	s.mustBeInitialized()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rootIntent = intent
}

// Listen registers l and returns a function that removes it.
func (s *Store) Listen(l Listener) (cancel func()) {
	s.mustBeInitialized()
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = l
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func sortedListenerIDs(m map[int]Listener) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

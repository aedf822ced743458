package outline

import "outliner/internal/domain/models/outline"

// Reduce applies action to state and returns the next state.
// It never mutates state and never fails: missing records are created and
// impossible requests degrade to no-ops. Unknown action types return state unchanged.
func Reduce(state outline.TreeState, action outline.Action) outline.TreeState {
	switch action.Type {
	case outline.ActionSetText:
		return setText(state, action.Path, action.Text)
	case outline.ActionToggleExpanded:
		return toggleExpanded(state, action.Path, action.Value)
	case outline.ActionSetGenerated:
		return setGenerated(state, action.Path, action.Value != nil && *action.Value)
	case outline.ActionAddNode:
		return addNode(state, action.Path, action.Text)
	case outline.ActionDeleteChildren:
		return deleteChildren(state, action.Path)
	case outline.ActionMergeRemoteChildren:
		return mergeRemoteChildren(state, action.State)
	case outline.ActionResetState:
		return resetState(action.State)
	default:
		return state
	}
}

// shallowCopy copies the path map. Records are values, but their Children maps
// are shared until a transition replaces them via withChild or clear.
func shallowCopy(state outline.TreeState) outline.TreeState {
	next := make(outline.TreeState, len(state)+1)
	for p, r := range state {
		next[p] = r
	}
	return next
}

func withChild(r outline.NodeRecord, slot string) outline.NodeRecord {
	r = r.Clone()
	r.Children[slot] = true
	return r
}

func setText(state outline.TreeState, path, text string) outline.TreeState {
	next := shallowCopy(state)
	rec, ok := next[path]
	if !ok {
		next[path] = outline.NewRecord(text)
		return next
	}
	if rec.Text != text {
		rec.HasGeneratedChildren = false
	}
	rec.Text = text
	next[path] = rec
	return next
}

func toggleExpanded(state outline.TreeState, path string, value *bool) outline.TreeState {
	next := shallowCopy(state)
	rec, ok := next[path]
	if !ok {
		rec = outline.NewRecord("")
		rec.IsExpanded = value == nil || *value
		next[path] = rec
		return next
	}
	if value != nil {
		rec.IsExpanded = *value
	} else {
		rec.IsExpanded = !rec.IsExpanded
	}
	next[path] = rec
	return next
}

func setGenerated(state outline.TreeState, path string, hasGenerated bool) outline.TreeState {
	next := shallowCopy(state)
	rec, ok := next[path]
	if !ok {
		rec = outline.NewRecord("")
	}
	rec.HasGeneratedChildren = hasGenerated
	next[path] = rec
	return next
}

func addNode(state outline.TreeState, path, text string) outline.TreeState {
	next := shallowCopy(state)
	next[path] = outline.NewRecord(text)

	parent, ok := outline.ParentPath(path)
	if !ok {
		return next
	}
	prec, exists := next[parent]
	if !exists {
		prec = outline.NewRecord("")
	}
	prec.IsExpanded = true
	next[parent] = withChild(prec, outline.SlotID(path))
	return next
}

func deleteChildren(state outline.TreeState, path string) outline.TreeState {
	next := make(outline.TreeState, len(state))
	for p, r := range state {
		if outline.IsDescendant(p, path) {
			continue
		}
		next[p] = r
	}
	if rec, ok := next[path]; ok {
		rec.Children = map[string]bool{}
		next[path] = rec
	}
	return next
}

// mergeRemoteChildren folds patch into state. Paths are visited parents first so the
// result does not depend on map iteration order. A parent is marked generated when the
// merge registers a slot that the pre-merge state did not have.
func mergeRemoteChildren(state, patch outline.TreeState) outline.TreeState {
	if len(patch) == 0 {
		return state
	}
	next := shallowCopy(state)

	for _, path := range patch.Paths() {
		incoming := patch[path]
		if local, ok := next[path]; ok {
			merged := local.Clone()
			merged.Text = incoming.Text
			for slot, v := range incoming.Children {
				if _, exists := merged.Children[slot]; !exists {
					merged.Children[slot] = v
				}
			}
			next[path] = merged
		} else {
			rec := incoming.Clone()
			rec.HasGeneratedChildren = false
			next[path] = rec
		}

		parent, ok := outline.ParentPath(path)
		if !ok {
			continue
		}
		slot := outline.SlotID(path)
		prec, exists := next[parent]
		if !exists {
			prec = outline.NewRecord("")
		}
		if _, registered := prec.Children[slot]; !registered {
			prec = withChild(prec, slot)
		}
		if _, had := state[parent].Children[slot]; !had {
			prec.HasGeneratedChildren = true
		}
		next[parent] = prec
	}
	return next
}

func resetState(replacement outline.TreeState) outline.TreeState {
	if len(replacement) == 0 {
		return outline.InitialState()
	}
	next := replacement.Clone()
	if _, ok := next[outline.RootPath]; !ok {
		next[outline.RootPath] = outline.NewRecord("")
	}
	for p, r := range next {
		if r.Children == nil {
			r.Children = map[string]bool{}
			next[p] = r
		}
	}
	return next
}

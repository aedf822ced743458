package generation

import (
	"outliner/internal/domain/models/outline"
	serviceOutline "outliner/internal/service/outline"
)

// Observe reacts to store transitions. It is registered by Attach.
//
//   - Opening a node that has no children, was never generated and is not loading
//     starts a generation.
//   - Changing the text of a node whose children were generated marks it stale; if the node
//     is expanded its children are deleted and generated again.
//   - Opening a stale node refreshes it the same way.
//
// Collapsing, and re-opening a generated node, change nothing. Work is started on new
// goroutines since listeners must not dispatch synchronously.
func (o *Orchestrator) Observe(t serviceOutline.Transition) {
	switch t.Action.Type {
	case outline.ActionToggleExpanded:
		o.onExpand(t)
	case outline.ActionSetText:
		o.onText(t)
	case outline.ActionDeleteChildren:
		o.forgetStale(t.Action.Path, false)
	case outline.ActionResetState:
		o.forgetStale(outline.RootPath, true)
	}
}

func (o *Orchestrator) onExpand(t serviceOutline.Transition) {
	path := t.Action.Path
	after, ok := t.After[path]
	if !ok || !after.IsExpanded {
		return
	}
	if before, existed := t.Before[path]; existed && before.IsExpanded {
		return
	}

	if o.isStale(path) {
		o.scheduleRefresh(path, after.Text)
		return
	}
	if after.HasGeneratedChildren || len(after.Children) > 0 || o.IsLoading(path) {
		return
	}
	// A concurrent start wins the in-flight mark; ours is then a no-op.
	if err := o.start(path, "", false); err != nil {
		o.logger.Debug("expand did not start generation", "path", path, "error", err)
	}
}

func (o *Orchestrator) onText(t serviceOutline.Transition) {
	path := t.Action.Path
	before, existed := t.Before[path]
	after := t.After[path]
	if !existed || before.Text == after.Text {
		return
	}

	o.mu.Lock()
	if before.HasGeneratedChildren {
		o.stale[path] = true
	}
	stale := o.stale[path]
	o.mu.Unlock()

	if stale && after.IsExpanded {
		o.scheduleRefresh(path, after.Text)
	}
}

// forgetStale clears stale marks below path, and path itself when inclusive is set.
func (o *Orchestrator) forgetStale(path string, inclusive bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for p := range o.stale {
		if outline.IsDescendant(p, path) || (inclusive && p == path) {
			delete(o.stale, p)
		}
	}
}

package generation

import (
	"context"
	"fmt"

	"outliner/internal/domain"
	"outliner/internal/domain/models/outline"
)

// NodeStatus is the observable generation state of one node.
type NodeStatus struct {
	Path         string `json:"path"`
	Text         string `json:"text"`
	Exists       bool   `json:"exists"`
	IsExpanded   bool   `json:"is_expanded"`
	IsLoading    bool   `json:"is_loading"`
	HasGenerated bool   `json:"has_generated"`
	HasChildren  bool   `json:"has_children"`
	ChildCount   int    `json:"child_count"`
	IsStale      bool   `json:"is_stale"`
}

// Controller is the generation handle for a single node.
type Controller struct {
	o    *Orchestrator
	path string
}

// Path returns the node path.
func (c *Controller) Path() string {
	return c.path
}

// View returns the node's current status.
func (c *Controller) View() NodeStatus {
	rec, ok := c.o.store.Record(c.path)
	status := NodeStatus{
		Path:      c.path,
		Exists:    ok,
		IsLoading: c.o.IsLoading(c.path),
	}
	if !ok {
		return status
	}
	status.Text = rec.Text
	status.IsExpanded = rec.IsExpanded
	status.HasGenerated = rec.HasGeneratedChildren
	status.ChildCount = len(rec.Children)
	status.HasChildren = status.ChildCount > 0
	status.IsStale = c.o.isStale(c.path) || (!rec.HasGeneratedChildren && status.HasChildren)
	return status
}

// IsLoading reports whether a generation for this node is in flight.
func (c *Controller) IsLoading() bool {
	return c.o.IsLoading(c.path)
}

// GenerateChildren streams children for the node and blocks until the stream ends.
//
// Returns domain.ErrGenerationInFlight when this node is already generating. When appending,
// or when the node already has children, the prompt asks for children distinct from the
// existing ones and numbering continues after the highest slot when appending.
func (c *Controller) GenerateChildren(ctx context.Context, extraPrompt string, appending bool) error {
	if !outline.ValidPath(c.path) {
		return fmt.Errorf("%w: invalid node path %q", domain.ErrValidation, c.path)
	}
	if !c.o.acquire(c.path) {
		return domain.ErrGenerationInFlight
	}
	return c.o.generate(ctx, c.path, extraPrompt, appending)
}

// GenerateMoreChildren asks for additional children, numbered after the existing ones.
func (c *Controller) GenerateMoreChildren(ctx context.Context) error {
	return c.GenerateChildren(ctx, MorePrompt, true)
}

// Start is GenerateChildren in the background. It returns domain.ErrGenerationInFlight
// synchronously; generation failures are reported through the Notifier.
func (c *Controller) Start(extraPrompt string, appending bool) error {
	if !outline.ValidPath(c.path) {
		return fmt.Errorf("%w: invalid node path %q", domain.ErrValidation, c.path)
	}
	return c.o.start(c.path, extraPrompt, appending)
}

// StartMore is GenerateMoreChildren in the background.
func (c *Controller) StartMore() error {
	return c.Start(MorePrompt, true)
}

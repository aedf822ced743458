package outline

import (
	"strings"

	"outliner/internal/domain/models/outline"
)

// NodeView is the nested presentation of a node and its visible subtree.
type NodeView struct {
	Path                 string     `json:"path"`
	Text                 string     `json:"text"`
	IsExpanded           bool       `json:"is_expanded"`
	HasGeneratedChildren bool       `json:"has_generated_children"`
	ChildCount           int        `json:"child_count"`
	Children             []NodeView `json:"children,omitempty"`
}

// RenderOptions controls which children Render descends into.
type RenderOptions struct {
	// IncludeCollapsed renders children of collapsed nodes too.
	IncludeCollapsed bool
}

// Render builds the view rooted at path by looking children up by slot id.
// A registered slot without a record yet is rendered as an empty placeholder.
func Render(state outline.TreeState, path string, opts RenderOptions) NodeView {
	rec := state[path]
	view := NodeView{
		Path:                 path,
		Text:                 rec.Text,
		IsExpanded:           rec.IsExpanded,
		HasGeneratedChildren: rec.HasGeneratedChildren,
		ChildCount:           len(rec.Children),
	}
	if !rec.IsExpanded && !opts.IncludeCollapsed {
		return view
	}
	for _, child := range outline.ChildPaths(state, path) {
		view.Children = append(view.Children, Render(state, child, opts))
	}
	return view
}

// RenderText writes the view as an indented bullet list, two spaces per level.
func RenderText(view NodeView) string {
	var b strings.Builder
	writeText(&b, view, 0)
	return b.String()
}

func writeText(b *strings.Builder, view NodeView, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString("- ")
	if view.Text == "" {
		b.WriteString("(untitled)")
	} else {
		b.WriteString(view.Text)
	}
	b.WriteByte('\n')
	for _, child := range view.Children {
		writeText(b, child, depth+1)
	}
}

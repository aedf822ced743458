package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	serviceOutline "outliner/internal/service/outline"
)

// PrettyPrint writes an outline as an indented, coloured bullet list.
type PrettyPrint struct {
	Out      io.Writer
	ShowPath bool
}

var levelColors = []*color.Color{
	color.New(color.Bold, color.Underline),
	color.New(color.FgCyan, color.Bold),
	color.New(color.FgGreen),
	color.New(color.FgYellow),
	color.New(color.FgMagenta),
}

var faint = color.New(color.Faint)

// Outline prints view and its rendered children.
func (pp *PrettyPrint) Outline(view serviceOutline.NodeView) {
	pp.node(view, 0)
}

func (pp *PrettyPrint) node(view serviceOutline.NodeView, depth int) {
	c := levelColors[min(depth, len(levelColors)-1)]
	text := view.Text
	if text == "" {
		text = "(untitled)"
	}

	if depth == 0 {
		_, _ = c.Fprintln(pp.Out, text)
	} else {
		_, _ = fmt.Fprint(pp.Out, strings.Repeat("  ", depth-1), "• ")
		_, _ = c.Fprint(pp.Out, text)
		if pp.ShowPath {
			_, _ = faint.Fprintf(pp.Out, "  %s", view.Path)
		}
		_, _ = fmt.Fprintln(pp.Out)
	}

	for _, child := range view.Children {
		pp.node(child, depth+1)
	}
}

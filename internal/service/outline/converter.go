package outline

import (
	"strconv"

	"outliner/internal/domain/models/outline"
	"outliner/internal/service/llm/parser"
)

// BuildMergePatch turns parsed nodes into a patch for MERGE_REMOTE_CHILDREN.
//
// The patch holds every parsed node at its path, keeping any existing expansion, children and
// generated flag for that path, and each node's parent with the node's slot registered. Paths
// the nodes do not touch are left out; the reducer's merge leaves them as they are.
func BuildMergePatch(nodes []parser.Node, current outline.TreeState) outline.TreeState {
	patch := make(outline.TreeState, len(nodes)+1)
	for _, n := range nodes {
		rec, ok := patch[n.Path]
		if !ok {
			rec, ok = current[n.Path]
			if ok {
				rec = rec.Clone()
			} else {
				rec = outline.NewRecord("")
			}
		}
		rec.Text = n.Text
		patch[n.Path] = rec

		if n.ParentPath == "" {
			continue
		}
		parent, ok := patch[n.ParentPath]
		if !ok {
			parent, ok = current[n.ParentPath]
			if ok {
				parent = parent.Clone()
			} else {
				parent = outline.NewRecord("")
			}
		}
		parent.Children[strconv.Itoa(n.Slot)] = true
		patch[n.ParentPath] = parent
	}
	return patch
}

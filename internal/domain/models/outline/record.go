package outline

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// LineageSeparator joins ancestor texts in FullLineage.
const LineageSeparator = " > "

// NodeRecord is the value stored per path.
type NodeRecord struct {
	Text       string          `json:"text"`
	IsExpanded bool            `json:"is_expanded"`
	Children   map[string]bool `json:"children"` // slot id -> child reports itself expanded
	// HasGeneratedChildren is true once a generation produced children for the current Text.
	HasGeneratedChildren bool `json:"has_generated_children"`
}

// NewRecord returns a record with the given text and an empty children registry.
func NewRecord(text string) NodeRecord {
	return NodeRecord{Text: text, Children: map[string]bool{}}
}

// Clone returns a copy that shares no maps with r.
func (r NodeRecord) Clone() NodeRecord {
	children := make(map[string]bool, len(r.Children))
	for k, v := range r.Children {
		children[k] = v
	}
	r.Children = children
	return r
}

// TreeState maps node paths to records.
type TreeState map[string]NodeRecord

// InitialState returns the state a session starts with: a blank, collapsed root.
func InitialState() TreeState {
	return TreeState{RootPath: NewRecord("")}
}

// Clone returns a deep copy of s.
func (s TreeState) Clone() TreeState {
	out := make(TreeState, len(s))
	for p, r := range s {
		out[p] = r.Clone()
	}
	return out
}

// Paths returns every path in s, parents before children.
func (s TreeState) Paths() []string {
	paths := make([]string, 0, len(s))
	for p := range s {
		paths = append(paths, p)
	}
	slices.SortFunc(paths, ComparePaths)
	return paths
}

// ChildKeys returns the slot ids registered under path in ascending numeric order.
// A missing record yields an empty result.
func ChildKeys(s TreeState, path string) []string {
	rec, ok := s[path]
	if !ok || len(rec.Children) == 0 {
		return []string{}
	}
	keys := make([]string, 0, len(rec.Children))
	for k := range rec.Children {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareSegments)
	return keys
}

// ChildPaths returns the full paths of the children registered under path.
func ChildPaths(s TreeState, path string) []string {
	keys := ChildKeys(s, path)
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = path + PathSeparator + k
	}
	return out
}

// FullLineage joins the texts from root down to path inclusive, skipping segments without a record.
func FullLineage(s TreeState, path string) string {
	parts := strings.Split(path, PathSeparator)
	texts := make([]string, 0, len(parts))
	current := ""
	for i, part := range parts {
		if i == 0 {
			current = part
		} else {
			current = current + PathSeparator + part
		}
		if rec, ok := s[current]; ok {
			texts = append(texts, rec.Text)
		}
	}
	return strings.Join(texts, LineageSeparator)
}

// maxSlot returns the highest numeric slot id under path, or -1 when there is none.
func maxSlot(s TreeState, path string) int {
	highest := -1
	for k := range s[path].Children {
		if n, err := strconv.Atoi(k); err == nil && n > highest {
			highest = n
		}
	}
	return highest
}

// ErrSlotsExhausted is returned when a node has no slot id left above its highest child.
var ErrSlotsExhausted = errors.New("no slot id left under node")

// NextSlotID is the slot id for a manually inserted child: max+1, or 1 when path has no children.
func NextSlotID(s TreeState, path string) (int, error) {
	m := maxSlot(s, path)
	if m < 0 {
		return 1, nil
	}
	if m >= MaxSlotID {
		return 0, fmt.Errorf("%w: %s", ErrSlotsExhausted, path)
	}
	return m + 1, nil
}

// GenerationStartIndex is the first slot id a generation fills: 0 for a fresh generation,
// max+1 when appending to existing children.
func GenerationStartIndex(s TreeState, path string, appending bool) (int, error) {
	if !appending {
		return 0, nil
	}
	m := maxSlot(s, path)
	if m >= MaxSlotID {
		return 0, fmt.Errorf("%w: %s", ErrSlotsExhausted, path)
	}
	return m + 1, nil
}

// IsStale reports children present under a node whose flag was reset by a text change.
func IsStale(s TreeState, path string) bool {
	rec, ok := s[path]
	return ok && !rec.HasGeneratedChildren && len(rec.Children) > 0
}

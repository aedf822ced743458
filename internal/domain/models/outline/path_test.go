package outline

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"root", true},
		{"root.0", true},
		{"root.12.3", true},
		{"", false},
		{"root.", false},
		{"root.a", false},
		{"root..1", false},
		{"tree.0", false},
		{"root.-1", false},
		{"root.999999999", true},
		{"root.1000000000", false},
		{"root.9223372036854775807", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidPath(tt.path))
		})
	}
}

func TestPathHelpers(t *testing.T) {
	parent, ok := ParentPath("root.2.0")
	assert.True(t, ok)
	assert.Equal(t, "root.2", parent)

	_, ok = ParentPath("root")
	assert.False(t, ok)

	assert.Equal(t, "0", SlotID("root.2.0"))
	assert.Equal(t, "root", SlotID("root"))
	assert.Equal(t, "root.3", ChildPath("root", 3))

	assert.Equal(t, 1, Depth("root"))
	assert.Equal(t, 3, Depth("root.2.0"))

	assert.True(t, IsDescendant("root.1.0", "root.1"))
	assert.True(t, IsDescendant("root.1.0.4", "root.1"))
	assert.False(t, IsDescendant("root.1", "root.1"))
	assert.False(t, IsDescendant("root.10", "root.1"))
}

func TestComparePathsOrdersNumerically(t *testing.T) {
	paths := []string{"root.10", "root.2.1", "root", "root.2", "root.9", "root.2.0"}
	slices.SortFunc(paths, ComparePaths)
	assert.Equal(t, []string{"root", "root.2", "root.2.0", "root.2.1", "root.9", "root.10"}, paths)
}

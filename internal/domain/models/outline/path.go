package outline

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	// RootPath is the path of the single root node of every outline.
	RootPath = "root"

	// PathSeparator joins path segments ("root.2.0").
	PathSeparator = "."

	// MaxSlotID is the largest slot id a path segment may carry (nine digits).
	MaxSlotID = 999_999_999
)

// PathPattern matches a well-formed node path: "root" followed by zero or more numeric slot
// ids of at most nine digits.
var PathPattern = regexp.MustCompile(`^root(\.\d{1,9})*$`)

// ValidPath reports whether path is a well-formed node path.
func ValidPath(path string) bool {
	return PathPattern.MatchString(path)
}

// ChildPath returns the path of slot under parent.
func ChildPath(parent string, slot int) string {
	return parent + PathSeparator + strconv.Itoa(slot)
}

// ParentPath returns the parent of path, or false for a single-segment path.
func ParentPath(path string) (string, bool) {
	i := strings.LastIndex(path, PathSeparator)
	if i < 0 {
		return "", false
	}
	return path[:i], true
}

// SlotID returns the last segment of path.
func SlotID(path string) string {
	i := strings.LastIndex(path, PathSeparator)
	if i < 0 {
		return path
	}
	return path[i+1:]
}

// Depth returns the number of segments in path ("root" has depth 1).
func Depth(path string) int {
	if path == "" {
		return 0
	}
	return strings.Count(path, PathSeparator) + 1
}

// IsDescendant reports whether path lies strictly below ancestor.
func IsDescendant(path, ancestor string) bool {
	return strings.HasPrefix(path, ancestor+PathSeparator)
}

// ComparePaths orders paths segment by segment, comparing numeric segments by value.
// A parent always sorts before its descendants.
func ComparePaths(a, b string) int {
	as := strings.Split(a, PathSeparator)
	bs := strings.Split(b, PathSeparator)
	for i := 0; i < len(as) && i < len(bs); i++ {
		if c := compareSegments(as[i], bs[i]); c != 0 {
			return c
		}
	}
	return len(as) - len(bs)
}

func compareSegments(a, b string) int {
	ai, aErr := strconv.Atoi(a)
	bi, bErr := strconv.Atoi(b)
	switch {
	case aErr == nil && bErr == nil:
		return ai - bi
	case aErr == nil:
		return 1
	case bErr == nil:
		return -1
	default:
		return strings.Compare(a, b)
	}
}

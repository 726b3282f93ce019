package department

import (
	"fmt"
	"strconv"
	"strings"
)

const PathSeparator = "-"

func ComputeLevel(pid int64, parentsByID map[int64]*Department) int {
	if pid == RootPID {
		return 1
	}
	parent, ok := parentsByID[pid]
	if !ok || parent == nil {
		return 1
	}
	return parent.Level + 1
}

// ComputeParentLikeID returns the materialized path a child of pid must carry.
// It is empty for root-level departments and for unknown parents.
func ComputeParentLikeID(pid int64, parentsByID map[int64]*Department) string {
	if pid == RootPID {
		return ""
	}
	parent, ok := parentsByID[pid]
	if !ok || parent == nil {
		return ""
	}
	return SubtreePrefix(parent)
}

// SubtreePrefix is the path every descendant of d has as a leading segment run.
func SubtreePrefix(d *Department) string {
	id := strconv.FormatInt(d.ID, 10)
	if d.ParentLikeID == "" {
		return id
	}
	return d.ParentLikeID + PathSeparator + id
}

// IsDescendantPath reports whether path lies at or below prefix on segment
// boundaries, so "1" never matches "12".
func IsDescendantPath(path, prefix string) bool {
	if prefix == "" {
		return false
	}
	return path == prefix || strings.HasPrefix(path, prefix+PathSeparator)
}

// RebasePath swaps the leading oldPrefix of path for newPrefix. Paths that do
// not start with oldPrefix are returned unchanged.
func RebasePath(oldPrefix, newPrefix, path string) string {
	if !IsDescendantPath(path, oldPrefix) {
		return path
	}
	return newPrefix + path[len(oldPrefix):]
}

func SegmentCount(path string) int {
	if path == "" {
		return 0
	}
	return strings.Count(path, PathSeparator) + 1
}

func ParsePath(path string) ([]int64, error) {
	if path == "" {
		return nil, nil
	}
	parts := strings.Split(path, PathSeparator)
	out := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid path segment %q in %q", part, path)
		}
		out = append(out, id)
	}
	return out, nil
}

func FormatPath(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, PathSeparator)
}

package department

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeLevelAndParentLikeID(t *testing.T) {
	a := &Department{ID: 1, PID: RootPID, Level: 1}
	b := &Department{ID: 2, PID: 1, Level: 2, ParentLikeID: "1"}
	parents := IndexByID([]*Department{a, b})

	require.Equal(t, 1, ComputeLevel(RootPID, parents))
	require.Equal(t, "", ComputeParentLikeID(RootPID, parents))

	require.Equal(t, 2, ComputeLevel(1, parents))
	require.Equal(t, "1", ComputeParentLikeID(1, parents))

	require.Equal(t, 3, ComputeLevel(2, parents))
	require.Equal(t, "1-2", ComputeParentLikeID(2, parents))

	require.Equal(t, 1, ComputeLevel(99, parents))
	require.Equal(t, "", ComputeParentLikeID(99, parents))
}

func TestSubtreePrefix(t *testing.T) {
	require.Equal(t, "7", SubtreePrefix(&Department{ID: 7}))
	require.Equal(t, "1-2-7", SubtreePrefix(&Department{ID: 7, ParentLikeID: "1-2"}))
}

func TestIsDescendantPath_SegmentAligned(t *testing.T) {
	cases := []struct {
		path, prefix string
		want         bool
	}{
		{"1", "1", true},
		{"1-2", "1", true},
		{"1-2-3", "1-2", true},
		{"12", "1", false},
		{"12-3", "1", false},
		{"1-23", "1-2", false},
		{"", "1", false},
		{"1", "", false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, IsDescendantPath(tc.path, tc.prefix), "path=%q prefix=%q", tc.path, tc.prefix)
	}
}

func TestRebasePath(t *testing.T) {
	require.Equal(t, "4-2", RebasePath("1-2", "4-2", "1-2"))
	require.Equal(t, "4-2-3", RebasePath("1-2", "4-2", "1-2-3"))
	require.Equal(t, "9-1-2", RebasePath("1-2", "9-1-2", "1-2"))
	// Only the leading occurrence is rewritten.
	require.Equal(t, "5-1-2-1-2", RebasePath("1-2", "5-1-2", "1-2-1-2"))
	require.Equal(t, "12-3", RebasePath("1", "4-1", "12-3"))
	require.Equal(t, "3-1-2", RebasePath("1-2", "4-2", "3-1-2"))
}

func TestSegmentCount(t *testing.T) {
	require.Equal(t, 0, SegmentCount(""))
	require.Equal(t, 1, SegmentCount("4"))
	require.Equal(t, 3, SegmentCount("1-2-3"))
}

func TestParseAndFormatPath(t *testing.T) {
	ids, err := ParsePath("1-20-300")
	require.NoError(t, err)
	require.Equal(t, []int64{1, 20, 300}, ids)
	require.Equal(t, "1-20-300", FormatPath(ids))

	ids, err = ParsePath("")
	require.NoError(t, err)
	require.Empty(t, ids)

	for _, bad := range []string{"1--2", "a-1", "1-0", "-1"} {
		_, err := ParsePath(bad)
		require.Error(t, err, bad)
	}
}

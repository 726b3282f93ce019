package department

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleTree() []*Department {
	return []*Department{
		{ID: 1, PID: RootPID, Level: 1, Code: "A"},
		{ID: 2, PID: 1, Level: 2, ParentLikeID: "1", Code: "B"},
		{ID: 3, PID: 2, Level: 3, ParentLikeID: "1-2", Code: "C"},
		{ID: 4, PID: RootPID, Level: 1, Code: "D"},
	}
}

func TestCheckInvariants_ValidTree(t *testing.T) {
	require.Empty(t, CheckInvariants(sampleTree()))
}

func TestCheckInvariants_ReportsEachRule(t *testing.T) {
	depts := sampleTree()
	depts[0].Level = 2
	depts[2].ParentLikeID = "2"
	depts[2].Level = 4
	depts[3].Code = "A"
	depts = append(depts, &Department{ID: 5, PID: 42, Level: 2, ParentLikeID: "42", Code: "E"})

	violations := CheckInvariants(depts)
	rules := map[int64][]string{}
	for _, v := range violations {
		rules[v.DepartmentID] = append(rules[v.DepartmentID], v.Rule)
	}

	require.Equal(t, []string{RuleRootLevel}, rules[1])
	require.ElementsMatch(t, []string{RuleLevel, RuleParentPath}, rules[3])
	require.Equal(t, []string{RuleCodeUnique}, rules[4])
	require.Equal(t, []string{RuleOrphan}, rules[5])
}

func TestRebuildPaths_FixesDriftedRows(t *testing.T) {
	depts := sampleTree()
	depts[1].ParentLikeID = "9"
	depts[1].Level = 5
	depts[2].ParentLikeID = "9-2"

	changed, err := RebuildPaths(depts)
	require.NoError(t, err)
	require.Len(t, changed, 2)
	require.Equal(t, int64(2), changed[0].ID)
	require.Equal(t, "1", changed[0].ParentLikeID)
	require.Equal(t, 2, changed[0].Level)
	require.Equal(t, int64(3), changed[1].ID)
	require.Equal(t, "1-2", changed[1].ParentLikeID)
	require.Equal(t, 3, changed[1].Level)

	// inputs are not mutated
	require.Equal(t, "9", depts[1].ParentLikeID)

	var fixed []*Department
	byID := IndexByID(changed)
	for _, d := range depts {
		if c, ok := byID[d.ID]; ok {
			fixed = append(fixed, c)
		} else {
			fixed = append(fixed, d)
		}
	}
	require.Empty(t, CheckInvariants(fixed))
}

func TestRebuildPaths_DetectsCycle(t *testing.T) {
	depts := []*Department{
		{ID: 1, PID: 2},
		{ID: 2, PID: 1},
	}
	_, err := RebuildPaths(depts)
	require.ErrorIs(t, err, ErrParentCycle)
}

func TestRebuildPaths_MissingParent(t *testing.T) {
	_, err := RebuildPaths([]*Department{{ID: 1, PID: 7}})
	require.Error(t, err)
}

func TestPreOrder(t *testing.T) {
	depts := sampleTree()
	depts = append(depts, &Department{ID: 5, PID: 1, Level: 2, ParentLikeID: "1", DisplayOrder: -1})

	ordered := IDs(PreOrder(depts))
	require.Equal(t, []int64{1, 5, 2, 3, 4}, ordered)

	roots := BuildTree(depts)
	require.Len(t, roots, 2)
	require.Len(t, roots[0].Children, 2)
}

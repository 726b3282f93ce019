package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedYAML = `
departments:
  - code: HQ
    name: Headquarters
    children:
      - code: ENG
        name: Engineering
        display_order: 1
        children:
          - code: PLAT
            name: Platform
      - code: OPS
        name: Operations
  - code: LAB
    name: Lab
    parent_id: 7
`

func TestPlanSeed_GroupsByDepth(t *testing.T) {
	f, err := parseSeed(strings.NewReader(seedYAML))
	require.NoError(t, err)

	plan, err := planSeed(f)
	require.NoError(t, err)
	require.Len(t, plan, 3)

	codes := func(level []seedItem) []string {
		out := make([]string, 0, len(level))
		for _, it := range level {
			out = append(out, it.Draft.Code)
		}
		return out
	}
	assert.Equal(t, []string{"HQ", "LAB"}, codes(plan[0]))
	assert.Equal(t, []string{"ENG", "OPS"}, codes(plan[1]))
	assert.Equal(t, []string{"PLAT"}, codes(plan[2]))

	assert.Equal(t, int64(7), plan[0][1].ParentID)
	assert.Equal(t, "HQ", plan[1][0].ParentCode)
	assert.Equal(t, 1, plan[1][0].Draft.DisplayOrder)
	assert.Equal(t, "ENG", plan[2][0].ParentCode)
}

func TestPlanSeed_Rejects(t *testing.T) {
	cases := map[string]string{
		"duplicate code": `
departments:
  - code: A
    name: A
    children:
      - code: A
        name: Again
`,
		"missing code": `
departments:
  - name: Nameless
`,
		"missing name": `
departments:
  - code: X
`,
		"nested parent_id": `
departments:
  - code: A
    name: A
    children:
      - code: B
        name: B
        parent_id: 3
`,
		"empty": `departments: []`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			f, err := parseSeed(strings.NewReader(doc))
			require.NoError(t, err)
			_, err = planSeed(f)
			require.Error(t, err)
		})
	}
}

func TestParseSeed_UnknownField(t *testing.T) {
	_, err := parseSeed(strings.NewReader("departments:\n  - code: A\n    name: A\n    colour: red\n"))
	require.Error(t, err)
}

func TestResolveSeedLevel(t *testing.T) {
	f, err := parseSeed(strings.NewReader(seedYAML))
	require.NoError(t, err)
	plan, err := planSeed(f)
	require.NoError(t, err)

	top, err := resolveSeedLevel(plan[0], map[string]int64{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), top[0].PID)
	assert.Equal(t, int64(7), top[1].PID)

	second, err := resolveSeedLevel(plan[1], map[string]int64{"HQ": 41, "LAB": 42})
	require.NoError(t, err)
	assert.Equal(t, int64(41), second[0].PID)
	assert.Equal(t, int64(41), second[1].PID)

	_, err = resolveSeedLevel(plan[2], map[string]int64{"HQ": 41})
	require.Error(t, err)
}

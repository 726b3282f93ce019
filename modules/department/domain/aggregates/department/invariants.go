package department

import (
	"errors"
	"fmt"
	"sort"
)

const (
	RuleRootLevel  = "root_level"
	RuleOrphan     = "orphan"
	RuleLevel      = "level"
	RuleParentPath = "parent_like_id"
	RuleCodeUnique = "code_unique"
)

var ErrParentCycle = errors.New("department parent chain contains a cycle")

type Violation struct {
	DepartmentID int64
	Rule         string
	Message      string
}

// CheckInvariants validates the stored path encoding of one tenant's departments.
// Violations are ordered by department id, then rule.
func CheckInvariants(departments []*Department) []Violation {
	byID := IndexByID(departments)
	var out []Violation
	add := func(id int64, rule, format string, args ...any) {
		out = append(out, Violation{DepartmentID: id, Rule: rule, Message: fmt.Sprintf(format, args...)})
	}

	codes := make(map[string]int64, len(departments))
	for _, d := range departments {
		if owner, ok := codes[d.Code]; ok {
			add(d.ID, RuleCodeUnique, "code %q already used by department %d", d.Code, owner)
		} else {
			codes[d.Code] = d.ID
		}

		if d.PID == RootPID {
			if d.Level != 1 || d.ParentLikeID != "" {
				add(d.ID, RuleRootLevel, "root-level department has level=%d parent_like_id=%q", d.Level, d.ParentLikeID)
			}
			continue
		}
		parent, ok := byID[d.PID]
		if !ok {
			add(d.ID, RuleOrphan, "parent %d does not exist", d.PID)
			continue
		}
		if d.Level != parent.Level+1 {
			add(d.ID, RuleLevel, "level=%d, expected %d", d.Level, parent.Level+1)
		}
		if want := SubtreePrefix(parent); d.ParentLikeID != want {
			add(d.ID, RuleParentPath, "parent_like_id=%q, expected %q", d.ParentLikeID, want)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DepartmentID != out[j].DepartmentID {
			return out[i].DepartmentID < out[j].DepartmentID
		}
		return out[i].Rule < out[j].Rule
	})
	return out
}

// RebuildPaths derives level and parent_like_id from pid chains and returns
// corrected copies of the departments whose stored values differ, parents first.
func RebuildPaths(departments []*Department) ([]*Department, error) {
	byID := IndexByID(departments)
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[int64]int, len(departments))
	computed := make(map[int64]*Department, len(departments))

	var resolve func(d *Department) (*Department, error)
	resolve = func(d *Department) (*Department, error) {
		switch state[d.ID] {
		case done:
			return computed[d.ID], nil
		case visiting:
			return nil, fmt.Errorf("%w at department %d", ErrParentCycle, d.ID)
		}
		state[d.ID] = visiting

		fixed := d.Clone()
		if d.PID == RootPID {
			fixed.Level = 1
			fixed.ParentLikeID = ""
		} else {
			parent, ok := byID[d.PID]
			if !ok {
				return nil, fmt.Errorf("department %d references missing parent %d", d.ID, d.PID)
			}
			fixedParent, err := resolve(parent)
			if err != nil {
				return nil, err
			}
			fixed.Level = fixedParent.Level + 1
			fixed.ParentLikeID = SubtreePrefix(fixedParent)
		}

		state[d.ID] = done
		computed[d.ID] = fixed
		return fixed, nil
	}

	var changed []*Department
	for _, d := range departments {
		fixed, err := resolve(d)
		if err != nil {
			return nil, err
		}
		if fixed.Level != d.Level || fixed.ParentLikeID != d.ParentLikeID {
			changed = append(changed, fixed)
		}
	}
	sort.Slice(changed, func(i, j int) bool {
		if changed[i].Level != changed[j].Level {
			return changed[i].Level < changed[j].Level
		}
		return changed[i].ID < changed[j].ID
	})
	return changed, nil
}

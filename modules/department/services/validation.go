package services

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/iota-uz/iota-identity/modules/department/domain/aggregates/department"
	"github.com/iota-uz/iota-identity/pkg/configuration"
)

type uniqueField struct {
	field   string
	code    string
	value   func(d *department.Department) string
	key     func(d *department.Department) string
	find    func(ctx context.Context, tenantID uuid.UUID, values []string) ([]*department.Department, error)
	message string
}

// checkUnique verifies code and name uniqueness for the final state of a batch.
// previous holds the stored state of batch members that already exist; a
// stored row that is itself part of the batch never conflicts, since its final
// value is checked within the batch.
func (s *DepartmentService) checkUnique(ctx context.Context, tenantID uuid.UUID, batch []*department.Department, previous map[int64]*department.Department) error {
	code := func(d *department.Department) string { return d.Code }
	if err := s.checkUniqueField(ctx, tenantID, batch, previous, uniqueField{
		field:   "code",
		code:    CodeCodeDuplicate,
		value:   code,
		key:     code,
		find:    s.repo.FindByCodes,
		message: "department code already exists",
	}); err != nil {
		return err
	}

	name := func(d *department.Department) string { return d.Name }
	key := name
	switch s.nameMode {
	case configuration.NameUniqueDisabled:
		return nil
	case configuration.NameUniqueSibling:
		key = func(d *department.Department) string { return strconv.FormatInt(d.PID, 10) + "/" + d.Name }
	}
	return s.checkUniqueField(ctx, tenantID, batch, previous, uniqueField{
		field:   "name",
		code:    CodeNameDuplicate,
		value:   name,
		key:     key,
		find:    s.repo.FindByNames,
		message: "department name already exists",
	})
}

func (s *DepartmentService) checkUniqueField(ctx context.Context, tenantID uuid.UUID, batch []*department.Department, previous map[int64]*department.Department, f uniqueField) error {
	seen := make(map[string]struct{}, len(batch))
	wanted := make(map[string]*department.Department)
	var values []string
	pending := make(map[int64]struct{}, len(batch))

	for _, d := range batch {
		k := f.key(d)
		if _, dup := seen[k]; dup {
			return validationError(f.code, f.field, f.value(d), fmt.Sprintf("duplicate %s within batch", f.field))
		}
		seen[k] = struct{}{}
		if d.ID != 0 {
			pending[d.ID] = struct{}{}
		}
		if prev, ok := previous[d.ID]; ok && d.ID != 0 && f.key(prev) == k {
			continue
		}
		if _, ok := wanted[k]; !ok {
			values = append(values, f.value(d))
		}
		wanted[k] = d
	}
	if len(values) == 0 {
		return nil
	}

	existing, err := f.find(ctx, tenantID, values)
	if err != nil {
		return err
	}
	for _, e := range existing {
		if _, ok := pending[e.ID]; ok {
			continue
		}
		if d, ok := wanted[f.key(e)]; ok {
			return validationError(f.code, f.field, f.value(d), f.message)
		}
	}
	return nil
}

// loadParents resolves every non-root parent referenced by the batch.
func (s *DepartmentService) loadParents(ctx context.Context, tenantID uuid.UUID, batch []*department.Department, lock bool) (map[int64]*department.Department, error) {
	var pids []int64
	seen := make(map[int64]struct{})
	for _, d := range batch {
		if d.PID == department.RootPID {
			continue
		}
		if _, ok := seen[d.PID]; ok {
			continue
		}
		seen[d.PID] = struct{}{}
		pids = append(pids, d.PID)
	}
	if len(pids) == 0 {
		return map[int64]*department.Department{}, nil
	}

	load := s.repo.FindByIDs
	if lock {
		load = s.repo.LockByIDs
	}
	found, err := load(ctx, tenantID, pids)
	if err != nil {
		return nil, err
	}
	parents := department.IndexByID(found)
	for _, pid := range pids {
		if _, ok := parents[pid]; !ok {
			return nil, validationError(CodeParentNotFound, "pid", pid, "parent department does not exist")
		}
	}
	return parents, nil
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

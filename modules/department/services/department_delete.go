package services

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/iota-identity/modules/department/domain/aggregates/department"
)

// Delete removes the given departments together with all their descendants
// and the associations that reference them. Unknown ids are ignored; when none
// of the ids exist the call is a no-op.
//
// main_dept_id is cleared only for the ids passed in: a user's main department
// is always an explicit assignment and never an implicit descendant.
func (s *DepartmentService) Delete(ctx context.Context, tenantID uuid.UUID, ids []int64) (err error) {
	ctx, span := startSpan(ctx, "delete", tenantID, len(ids))
	var deletedCount int
	defer func() {
		recordWrite("delete", err)
		logOutcome(ctx, "delete", tenantID, err, logrus.Fields{"target_count": len(ids), "deleted_count": deletedCount})
		endSpan(span, err)
	}()

	if err := requireTenant(tenantID); err != nil {
		return err
	}
	targets := dedupeIDs(ids)
	if len(targets) == 0 {
		return nil
	}

	var event *department.DeletedEvent
	err = inTenantTx(ctx, tenantID, func(txCtx context.Context) error {
		event = nil
		found, err := s.repo.LockByIDs(txCtx, tenantID, targets)
		if err != nil {
			return err
		}
		if len(found) == 0 {
			return nil
		}

		all := make(map[int64]struct{}, len(found))
		for _, d := range found {
			all[d.ID] = struct{}{}
			descendants, err := s.repo.FindIDsByPathPrefix(txCtx, tenantID, department.SubtreePrefix(d))
			if err != nil {
				return err
			}
			for _, id := range descendants {
				all[id] = struct{}{}
			}
		}
		allIDs := make([]int64, 0, len(all))
		for id := range all {
			allIDs = append(allIDs, id)
		}
		sort.Slice(allIDs, func(i, j int) bool { return allIDs[i] < allIDs[j] })

		if err := s.repo.DeleteByIDs(txCtx, tenantID, allIDs); err != nil {
			return err
		}
		if err := s.members.RemoveByDepartmentIDs(txCtx, tenantID, allIDs); err != nil {
			return err
		}
		if err := s.tags.RemoveByDepartmentIDs(txCtx, tenantID, allIDs); err != nil {
			return err
		}
		if err := s.policies.RemoveByDepartmentIDs(txCtx, tenantID, allIDs); err != nil {
			return err
		}
		if err := s.users.ClearMainDeptIDs(txCtx, tenantID, targets); err != nil {
			return err
		}

		deletedCount = len(allIDs)
		event = department.NewDeletedEvent(tenantID, department.IDs(found), allIDs)
		return nil
	})
	if err != nil {
		return mapPgError(err)
	}
	if event != nil {
		recordCascade("delete", len(event.DeletedIDs)-len(event.TargetIDs))
		s.publish(ctx, event)
	}
	return nil
}

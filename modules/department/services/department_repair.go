package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/iota-identity/modules/department/domain/aggregates/department"
)

// CheckTree reports every stored department that breaks the path encoding.
func (s *DepartmentService) CheckTree(ctx context.Context, tenantID uuid.UUID) ([]department.Violation, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	var out []department.Violation
	err := inTenantTx(ctx, tenantID, func(txCtx context.Context) error {
		all, err := s.repo.ListAll(txCtx, tenantID)
		if err != nil {
			return err
		}
		out = department.CheckInvariants(all)
		return nil
	})
	return out, mapPgError(err)
}

// RebuildPaths recomputes level and parent_like_id from the pid chains and
// rewrites the rows that drifted. With dryRun the rows are reported but not written.
func (s *DepartmentService) RebuildPaths(ctx context.Context, tenantID uuid.UUID, dryRun bool) (changed []*department.Department, err error) {
	ctx, span := startSpan(ctx, "repair", tenantID, 0)
	defer func() {
		recordWrite("repair", err)
		logOutcome(ctx, "repair", tenantID, err, logrus.Fields{"changed": len(changed), "dry_run": dryRun})
		endSpan(span, err)
	}()

	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	err = inTenantTx(ctx, tenantID, func(txCtx context.Context) error {
		all, err := s.repo.ListAll(txCtx, tenantID)
		if err != nil {
			return err
		}
		fixed, err := department.RebuildPaths(all)
		if err != nil {
			return newServiceError(KindConflict, CodePathConflict, "department parent chains cannot be resolved", err)
		}
		changed = fixed
		if dryRun {
			return nil
		}
		for _, d := range fixed {
			if err := s.repo.Update(txCtx, tenantID, d); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, mapPgError(err)
	}
	return changed, nil
}

package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/iota-identity/modules/department/domain/aggregates/department"
)

// Update applies partial drafts. A draft with a new PID moves the department
// and rebases the paths of its whole subtree.
//
// Batch-wide checks (existence, uniqueness, parent existence, tag quota) run
// before any write. Cycle and depth checks depend on the tree as left by the
// preceding drafts and run per draft before its cascade; a failure there rolls
// back the whole batch.
func (s *DepartmentService) Update(ctx context.Context, tenantID uuid.UUID, drafts []*department.UpdateDTO) (err error) {
	ctx, span := startSpan(ctx, "update", tenantID, len(drafts))
	defer func() {
		recordWrite("update", err)
		logOutcome(ctx, "update", tenantID, err, logrus.Fields{"batch_size": len(drafts)})
		endSpan(span, err)
	}()

	if err := requireTenant(tenantID); err != nil {
		return err
	}
	if len(drafts) == 0 {
		return nil
	}
	if err := validateUpdateDrafts(drafts); err != nil {
		return err
	}

	var events []any
	err = inTenantTx(ctx, tenantID, func(txCtx context.Context) error {
		var innerErr error
		events, innerErr = s.update(txCtx, tenantID, drafts)
		return innerErr
	})
	if err != nil {
		return mapPgError(err)
	}
	s.publish(ctx, events...)
	return nil
}

// Replace routes drafts without an id to Add and overwrites the caller-owned
// fields of drafts with an id. It returns the department ids in draft order.
func (s *DepartmentService) Replace(ctx context.Context, tenantID uuid.UUID, drafts []*department.ReplaceDTO) (ids []int64, err error) {
	ctx, span := startSpan(ctx, "replace", tenantID, len(drafts))
	defer func() {
		recordWrite("replace", err)
		logOutcome(ctx, "replace", tenantID, err, logrus.Fields{"batch_size": len(drafts)})
		endSpan(span, err)
	}()

	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if len(drafts) == 0 {
		return nil, nil
	}

	ids = make([]int64, len(drafts))
	var (
		creates    []*department.CreateDTO
		createsIdx []int
		updates    []*department.UpdateDTO
	)
	for i, dto := range drafts {
		if dto == nil {
			return nil, validationError(CodeInvalidBody, "draft", i, "department draft is nil")
		}
		if err := dto.Validate(); err != nil {
			return nil, fromValidatorError(err, i)
		}
		if dto.ID == 0 {
			creates = append(creates, dto.ToCreateDTO())
			createsIdx = append(createsIdx, i)
			continue
		}
		ids[i] = dto.ID
		updates = append(updates, dto.ToUpdateDTO())
	}
	if err := validateUpdateDrafts(updates); err != nil {
		return nil, err
	}

	var events []any
	err = inTenantTx(ctx, tenantID, func(txCtx context.Context) error {
		events = nil
		if len(updates) > 0 {
			evs, err := s.update(txCtx, tenantID, updates)
			if err != nil {
				return err
			}
			events = append(events, evs...)
		}
		if len(creates) > 0 {
			newIDs, created, err := s.add(txCtx, tenantID, creates)
			if err != nil {
				return err
			}
			for i, idx := range createsIdx {
				ids[idx] = newIDs[i]
			}
			events = append(events, department.NewCreatedEvent(tenantID, created))
		}
		return nil
	})
	if err != nil {
		return nil, mapPgError(err)
	}
	s.publish(ctx, events...)
	return ids, nil
}

func validateUpdateDrafts(drafts []*department.UpdateDTO) error {
	seen := make(map[int64]struct{}, len(drafts))
	for i, dto := range drafts {
		if dto == nil {
			return validationError(CodeInvalidBody, "draft", i, "department draft is nil")
		}
		if err := dto.Validate(); err != nil {
			return fromValidatorError(err, i)
		}
		if _, dup := seen[dto.ID]; dup {
			return validationError(CodeInvalidBody, "id", dto.ID, "department appears twice in batch")
		}
		seen[dto.ID] = struct{}{}
	}
	return nil
}

func (s *DepartmentService) update(ctx context.Context, tenantID uuid.UUID, drafts []*department.UpdateDTO) ([]any, error) {
	ids := make([]int64, len(drafts))
	for i, dto := range drafts {
		ids[i] = dto.ID
	}
	current, err := s.repo.LockByIDs(ctx, tenantID, ids)
	if err != nil {
		return nil, err
	}
	stored := department.IndexByID(current)

	batch := make([]*department.Department, len(drafts))
	var moving []*department.Department
	for i, dto := range drafts {
		old, ok := stored[dto.ID]
		if !ok {
			return nil, notFoundError("id", dto.ID)
		}
		batch[i] = dto.Apply(old)
		if batch[i].PID == old.PID {
			continue
		}
		if batch[i].PID == old.ID {
			return nil, validationError(CodeParentCycle, "pid", batch[i].PID, "department cannot be its own parent")
		}
		moving = append(moving, batch[i])
	}

	if err := s.checkUnique(ctx, tenantID, batch, stored); err != nil {
		return nil, err
	}
	if _, err := s.loadParents(ctx, tenantID, moving, true); err != nil {
		return nil, err
	}
	for i, dto := range drafts {
		if dto.TagIDs == nil {
			continue
		}
		if err := s.quota.CheckTagCount(ctx, tenantID, batch[i].Code, len(batch[i].TagIDs)); err != nil {
			return nil, fromQuotaError(err)
		}
	}

	var events []any
	for _, dto := range drafts {
		evs, err := s.updateOne(ctx, tenantID, dto)
		if err != nil {
			return nil, err
		}
		events = append(events, evs...)
	}
	return events, nil
}

// updateOne re-reads the department so that cascades from earlier drafts of
// the same batch are taken into account.
func (s *DepartmentService) updateOne(ctx context.Context, tenantID uuid.UUID, dto *department.UpdateDTO) ([]any, error) {
	found, err := s.repo.FindByIDs(ctx, tenantID, []int64{dto.ID})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, notFoundError("id", dto.ID)
	}
	if err := s.attachTags(ctx, tenantID, found); err != nil {
		return nil, err
	}
	old := found[0]
	next := dto.Apply(old)
	next.UpdatedAt = time.Now().UTC()
	next.UpdatedBy = actorID(ctx)

	var events []any
	if next.PID != old.PID {
		moved, err := s.move(ctx, tenantID, old, next)
		if err != nil {
			return nil, err
		}
		events = append(events, moved)
	} else {
		next.Level = old.Level
		next.ParentLikeID = old.ParentLikeID
	}

	if err := s.repo.Update(ctx, tenantID, next); err != nil {
		return nil, err
	}
	if dto.TagIDs != nil {
		if err := s.tags.ReplaceFor(ctx, tenantID, next.ID, next.TagIDs); err != nil {
			return nil, err
		}
	}
	return append(events, department.NewUpdatedEvent(tenantID, old, next)), nil
}

// move recomputes next's path against its new parent and rebases every
// descendant of old in one statement.
func (s *DepartmentService) move(ctx context.Context, tenantID uuid.UUID, old, next *department.Department) (*department.MovedEvent, error) {
	oldPrefix := department.SubtreePrefix(old)
	parents := map[int64]*department.Department{}

	if next.PID == old.ID {
		return nil, validationError(CodeParentCycle, "pid", next.PID, "department cannot be its own parent")
	}
	if next.PID != department.RootPID {
		found, err := s.repo.LockByIDs(ctx, tenantID, []int64{next.PID})
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			return nil, validationError(CodeParentNotFound, "pid", next.PID, "parent department does not exist")
		}
		parent := found[0]
		if department.IsDescendantPath(parent.ParentLikeID, oldPrefix) {
			return nil, validationError(CodeParentCycle, "pid", next.PID, "department cannot be moved under its own descendant")
		}
		parents[parent.ID] = parent
	}

	next.Level = department.ComputeLevel(next.PID, parents)
	next.ParentLikeID = department.ComputeParentLikeID(next.PID, parents)
	newPrefix := department.SubtreePrefix(next)
	levelDelta := department.SegmentCount(newPrefix) - department.SegmentCount(oldPrefix)

	descendants, err := s.repo.FindIDsByPathPrefix(ctx, tenantID, oldPrefix)
	if err != nil {
		return nil, err
	}

	depthCheck := []*department.Department{next}
	if len(descendants) > 0 {
		maxLevel, err := s.repo.MaxLevelByPathPrefix(ctx, tenantID, oldPrefix)
		if err != nil {
			return nil, err
		}
		deepest := next.Clone()
		deepest.Level = maxLevel + levelDelta
		depthCheck = append(depthCheck, deepest)
	}
	if err := s.quota.CheckDepth(ctx, tenantID, depthCheck, parents); err != nil {
		return nil, fromQuotaError(err)
	}

	if len(descendants) > 0 {
		if err := s.repo.BulkUpdateSubtree(ctx, tenantID, descendants, levelDelta, oldPrefix, newPrefix); err != nil {
			return nil, err
		}
	}
	recordCascade("move", len(descendants))
	logWithFields(ctx, logrus.InfoLevel, "department.move.cascade", logrus.Fields{
		"tenant_id":     tenantID.String(),
		"department_id": old.ID,
		"old_pid":       old.PID,
		"new_pid":       next.PID,
		"level_delta":   levelDelta,
		"cascade_size":  len(descendants),
	})

	return &department.MovedEvent{
		EventID:       uuid.New(),
		TenantID:      tenantID,
		DepartmentID:  old.ID,
		OldPID:        old.PID,
		NewPID:        next.PID,
		OldPrefix:     oldPrefix,
		NewPrefix:     newPrefix,
		LevelDelta:    levelDelta,
		DescendantIDs: descendants,
		OccurredAt:    time.Now(),
	}, nil
}

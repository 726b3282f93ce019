package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/iota-identity/modules/department/domain/aggregates/department"
	"github.com/iota-uz/iota-identity/pkg/composables"
)

const (
	tagDeleteForQuery = `DELETE FROM department_tags WHERE tenant_id = $1 AND department_id = $2`
	tagInsertQuery    = `
        INSERT INTO department_tags (tenant_id, department_id, tag_id)
        SELECT $1::uuid, $2::bigint, t FROM unnest($3::bigint[]) AS t
        ON CONFLICT DO NOTHING`
	tagListQuery = `
        SELECT department_id, tag_id FROM department_tags
        WHERE tenant_id = $1 AND department_id = ANY($2)
        ORDER BY department_id, tag_id`
	tagDeleteQuery = `DELETE FROM department_tags WHERE tenant_id = $1 AND department_id = ANY($2)`

	memberDeleteQuery = `DELETE FROM department_members WHERE tenant_id = $1 AND department_id = ANY($2)`
	policyDeleteQuery = `DELETE FROM department_policies WHERE tenant_id = $1 AND department_id = ANY($2)`

	mainDeptClearQuery = `
        UPDATE user_main_departments SET department_id = NULL
        WHERE tenant_id = $1 AND department_id = ANY($2)`
)

type TagRepository struct{}

func NewTagRepository() department.TagAssociation {
	return &TagRepository{}
}

// ReplaceFor makes tagIDs the complete tag set of the department.
func (r *TagRepository) ReplaceFor(ctx context.Context, tenantID uuid.UUID, departmentID int64, tagIDs []int64) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	if _, err := tx.Exec(ctx, tagDeleteForQuery, tenantID, departmentID); err != nil {
		return errors.Wrap(err, "failed to clear department tags")
	}
	if len(tagIDs) == 0 {
		return nil
	}
	if _, err := tx.Exec(ctx, tagInsertQuery, tenantID, departmentID, tagIDs); err != nil {
		return errors.Wrap(err, "failed to insert department tags")
	}
	return nil
}

func (r *TagRepository) ListFor(ctx context.Context, tenantID uuid.UUID, departmentIDs []int64) (map[int64][]int64, error) {
	out := make(map[int64][]int64)
	if len(departmentIDs) == 0 {
		return out, nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	rows, err := tx.Query(ctx, tagListQuery, tenantID, departmentIDs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list department tags")
	}
	type tagRow struct {
		DepartmentID int64
		TagID        int64
	}
	pairs, err := pgx.CollectRows(rows, pgx.RowToStructByPos[tagRow])
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan department tags")
	}
	for _, p := range pairs {
		out[p.DepartmentID] = append(out[p.DepartmentID], p.TagID)
	}
	return out, nil
}

func (r *TagRepository) RemoveByDepartmentIDs(ctx context.Context, tenantID uuid.UUID, ids []int64) error {
	return execForIDs(ctx, tagDeleteQuery, tenantID, ids, "failed to remove department tags")
}

type MembershipRepository struct{}

func NewMembershipRepository() department.MembershipCleaner {
	return &MembershipRepository{}
}

func (r *MembershipRepository) RemoveByDepartmentIDs(ctx context.Context, tenantID uuid.UUID, ids []int64) error {
	return execForIDs(ctx, memberDeleteQuery, tenantID, ids, "failed to remove department members")
}

type PolicyRepository struct{}

func NewPolicyRepository() department.PolicyAssociationCleaner {
	return &PolicyRepository{}
}

func (r *PolicyRepository) RemoveByDepartmentIDs(ctx context.Context, tenantID uuid.UUID, ids []int64) error {
	return execForIDs(ctx, policyDeleteQuery, tenantID, ids, "failed to remove department policies")
}

type UserDirectoryRepository struct{}

func NewUserDirectoryRepository() department.UserDirectory {
	return &UserDirectoryRepository{}
}

// ClearMainDeptIDs unsets the main department of every user whose main
// department is one of ids.
func (r *UserDirectoryRepository) ClearMainDeptIDs(ctx context.Context, tenantID uuid.UUID, ids []int64) error {
	return execForIDs(ctx, mainDeptClearQuery, tenantID, ids, "failed to clear main departments")
}

func execForIDs(ctx context.Context, query string, tenantID uuid.UUID, ids []int64, msg string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	if _, err := tx.Exec(ctx, query, tenantID, ids); err != nil {
		return errors.Wrap(err, msg)
	}
	return nil
}

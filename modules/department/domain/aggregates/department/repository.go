package department

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the department store. Implementations run against the
// transaction carried by ctx when there is one.
type Repository interface {
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []int64) ([]*Department, error)
	// LockByIDs is FindByIDs with row locks held until the surrounding transaction ends.
	LockByIDs(ctx context.Context, tenantID uuid.UUID, ids []int64) ([]*Department, error)
	// FindIDsByPathPrefix returns the ids of departments whose parent_like_id
	// equals prefix or starts with prefix followed by a separator.
	// The matching rows are locked until the surrounding transaction ends.
	FindIDsByPathPrefix(ctx context.Context, tenantID uuid.UUID, prefix string) ([]int64, error)
	// ListIDsByPathPrefix matches like FindIDsByPathPrefix without taking locks.
	ListIDsByPathPrefix(ctx context.Context, tenantID uuid.UUID, prefix string) ([]int64, error)
	// MaxLevelByPathPrefix returns 0 when no department matches.
	MaxLevelByPathPrefix(ctx context.Context, tenantID uuid.UUID, prefix string) (int, error)
	FindByCodes(ctx context.Context, tenantID uuid.UUID, codes []string) ([]*Department, error)
	FindByNames(ctx context.Context, tenantID uuid.UUID, names []string) ([]*Department, error)
	Count(ctx context.Context, tenantID uuid.UUID) (int, error)
	ListAll(ctx context.Context, tenantID uuid.UUID) ([]*Department, error)
	BatchInsert(ctx context.Context, tenantID uuid.UUID, departments []*Department) ([]int64, error)
	Update(ctx context.Context, tenantID uuid.UUID, d *Department) error
	BulkUpdateSubtree(ctx context.Context, tenantID uuid.UUID, ids []int64, levelDelta int, oldPrefix, newPrefix string) error
	DeleteByIDs(ctx context.Context, tenantID uuid.UUID, ids []int64) error
}

type QuotaGuard interface {
	CheckCount(ctx context.Context, tenantID uuid.UUID, additional int) error
	CheckDepth(ctx context.Context, tenantID uuid.UUID, departments []*Department, parentsByID map[int64]*Department) error
	CheckTagCount(ctx context.Context, tenantID uuid.UUID, departmentCode string, tagCount int) error
}

type TagAssociation interface {
	// ReplaceFor drops every tag link of the department, then inserts tagIDs.
	ReplaceFor(ctx context.Context, tenantID uuid.UUID, departmentID int64, tagIDs []int64) error
	ListFor(ctx context.Context, tenantID uuid.UUID, departmentIDs []int64) (map[int64][]int64, error)
	RemoveByDepartmentIDs(ctx context.Context, tenantID uuid.UUID, ids []int64) error
}

type MembershipCleaner interface {
	RemoveByDepartmentIDs(ctx context.Context, tenantID uuid.UUID, ids []int64) error
}

type PolicyAssociationCleaner interface {
	RemoveByDepartmentIDs(ctx context.Context, tenantID uuid.UUID, ids []int64) error
}

type UserDirectory interface {
	ClearMainDeptIDs(ctx context.Context, tenantID uuid.UUID, ids []int64) error
}

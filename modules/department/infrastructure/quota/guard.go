package quota

import (
	"context"

	"github.com/google/uuid"

	"github.com/iota-uz/iota-identity/modules/department/domain/aggregates/department"
)

type Counter interface {
	Count(ctx context.Context, tenantID uuid.UUID) (int, error)
}

// Guard checks department writes against tenant limits. Counts are read from
// the store on every call.
type Guard struct {
	counter Counter
	limits  LimitsSource
}

func NewGuard(counter Counter, limits LimitsSource) *Guard {
	return &Guard{counter: counter, limits: limits}
}

func (g *Guard) CheckCount(ctx context.Context, tenantID uuid.UUID, additional int) error {
	limits, err := g.limits.Limits(ctx, tenantID)
	if err != nil {
		return err
	}
	if limits.MaxCount == 0 {
		return nil
	}
	existing, err := g.counter.Count(ctx, tenantID)
	if err != nil {
		return err
	}
	if total := existing + additional; total > limits.MaxCount {
		return &department.QuotaError{Kind: department.QuotaCount, Limit: limits.MaxCount, Actual: total}
	}
	return nil
}

// CheckDepth uses a department's Level when set and derives it from
// parentsByID otherwise.
func (g *Guard) CheckDepth(ctx context.Context, tenantID uuid.UUID, departments []*department.Department, parentsByID map[int64]*department.Department) error {
	limits, err := g.limits.Limits(ctx, tenantID)
	if err != nil {
		return err
	}
	if limits.MaxDepth == 0 {
		return nil
	}
	for _, d := range departments {
		level := d.Level
		if level == 0 {
			level = department.ComputeLevel(d.PID, parentsByID)
		}
		if level > limits.MaxDepth {
			return &department.QuotaError{Kind: department.QuotaDepth, Limit: limits.MaxDepth, Actual: level, Code: d.Code}
		}
	}
	return nil
}

func (g *Guard) CheckTagCount(ctx context.Context, tenantID uuid.UUID, departmentCode string, tagCount int) error {
	limits, err := g.limits.Limits(ctx, tenantID)
	if err != nil {
		return err
	}
	if limits.MaxTags == 0 || tagCount <= limits.MaxTags {
		return nil
	}
	return &department.QuotaError{Kind: department.QuotaTags, Limit: limits.MaxTags, Actual: tagCount, Code: departmentCode}
}

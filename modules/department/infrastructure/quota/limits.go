package quota

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/iota-identity/pkg/configuration"
)

// Limits are per-tenant upper bounds. Zero disables a check.
type Limits struct {
	MaxCount int
	MaxDepth int
	MaxTags  int
}

type LimitsSource interface {
	Limits(ctx context.Context, tenantID uuid.UUID) (Limits, error)
}

// StaticLimits applies the same limits to every tenant.
type StaticLimits Limits

func (l StaticLimits) Limits(context.Context, uuid.UUID) (Limits, error) {
	return Limits(l), nil
}

func LimitsFromConfig(opts configuration.DepartmentOptions) StaticLimits {
	return StaticLimits{MaxCount: opts.MaxCount, MaxDepth: opts.MaxDepth, MaxTags: opts.MaxTags}
}

const (
	fieldMaxCount = "max_count"
	fieldMaxDepth = "max_depth"
	fieldMaxTags  = "max_tags"
)

// RedisLimits reads per-tenant overrides from the hash <prefix><tenant_id>.
// Fields that are absent fall back to the wrapped source, and so does the
// whole lookup when Redis is unreachable.
type RedisLimits struct {
	client   redis.UniversalClient
	prefix   string
	fallback LimitsSource
	log      *logrus.Logger
}

func NewRedisLimits(client redis.UniversalClient, prefix string, fallback LimitsSource, log *logrus.Logger) *RedisLimits {
	if prefix == "" {
		prefix = "quota:department:"
	}
	return &RedisLimits{client: client, prefix: prefix, fallback: fallback, log: log}
}

func (r *RedisLimits) Key(tenantID uuid.UUID) string {
	return r.prefix + tenantID.String()
}

func (r *RedisLimits) Limits(ctx context.Context, tenantID uuid.UUID) (Limits, error) {
	base, err := r.fallback.Limits(ctx, tenantID)
	if err != nil {
		return Limits{}, err
	}

	fields, err := r.client.HGetAll(ctx, r.Key(tenantID)).Result()
	if err != nil {
		if r.log != nil {
			r.log.WithFields(logrus.Fields{
				"tenant_id": tenantID.String(),
				"error":     err.Error(),
			}).Warn("quota.redis.unavailable")
		}
		return base, nil
	}

	for field, target := range map[string]*int{
		fieldMaxCount: &base.MaxCount,
		fieldMaxDepth: &base.MaxDepth,
		fieldMaxTags:  &base.MaxTags,
	} {
		raw, ok := fields[field]
		if !ok {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return Limits{}, fmt.Errorf("invalid quota override %s=%q for tenant %s", field, raw, tenantID)
		}
		*target = v
	}
	return base, nil
}

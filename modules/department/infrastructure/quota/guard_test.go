package quota

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/iota-identity/modules/department/domain/aggregates/department"
)

type fixedCounter int

func (c fixedCounter) Count(context.Context, uuid.UUID) (int, error) { return int(c), nil }

func requireQuotaKind(t *testing.T, err error, kind department.QuotaKind) *department.QuotaError {
	t.Helper()
	var qe *department.QuotaError
	require.True(t, errors.As(err, &qe), "expected QuotaError, got %v", err)
	require.Equal(t, kind, qe.Kind)
	return qe
}

func TestGuard_CheckCount(t *testing.T) {
	ctx := context.Background()
	tenant := uuid.New()
	g := NewGuard(fixedCounter(8), StaticLimits{MaxCount: 10})

	require.NoError(t, g.CheckCount(ctx, tenant, 2))
	qe := requireQuotaKind(t, g.CheckCount(ctx, tenant, 3), department.QuotaCount)
	require.Equal(t, 11, qe.Actual)
	require.Equal(t, 10, qe.Limit)

	unlimited := NewGuard(fixedCounter(1_000_000), StaticLimits{})
	require.NoError(t, unlimited.CheckCount(ctx, tenant, 1))
}

func TestGuard_CheckDepth(t *testing.T) {
	ctx := context.Background()
	tenant := uuid.New()
	g := NewGuard(fixedCounter(0), StaticLimits{MaxDepth: 3})

	parents := map[int64]*department.Department{
		5: {ID: 5, Level: 3, ParentLikeID: "1-2"},
		6: {ID: 6, Level: 2, ParentLikeID: "1"},
	}
	require.NoError(t, g.CheckDepth(ctx, tenant, []*department.Department{{Code: "ok", PID: 6}}, parents))

	qe := requireQuotaKind(t, g.CheckDepth(ctx, tenant, []*department.Department{{Code: "deep", PID: 5}}, parents), department.QuotaDepth)
	require.Equal(t, "deep", qe.Code)
	require.Equal(t, 4, qe.Actual)

	// an explicit level wins over the parent map
	requireQuotaKind(t, g.CheckDepth(ctx, tenant, []*department.Department{{Code: "x", PID: 6, Level: 7}}, parents), department.QuotaDepth)
}

func TestGuard_CheckTagCount(t *testing.T) {
	ctx := context.Background()
	g := NewGuard(fixedCounter(0), StaticLimits{MaxTags: 2})
	require.NoError(t, g.CheckTagCount(ctx, uuid.New(), "FIN", 2))
	qe := requireQuotaKind(t, g.CheckTagCount(ctx, uuid.New(), "FIN", 3), department.QuotaTags)
	require.Equal(t, "FIN", qe.Code)
}

func TestRedisLimits_Overrides(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	tenant := uuid.New()
	other := uuid.New()
	limits := NewRedisLimits(client, "", StaticLimits{MaxCount: 100, MaxDepth: 10, MaxTags: 5}, nil)

	mr.HSet(limits.Key(tenant), fieldMaxDepth, "4", fieldMaxTags, "0")

	got, err := limits.Limits(ctx, tenant)
	require.NoError(t, err)
	require.Equal(t, Limits{MaxCount: 100, MaxDepth: 4, MaxTags: 0}, got)

	got, err = limits.Limits(ctx, other)
	require.NoError(t, err)
	require.Equal(t, Limits{MaxCount: 100, MaxDepth: 10, MaxTags: 5}, got)

	g := NewGuard(fixedCounter(0), limits)
	requireQuotaKind(t, g.CheckDepth(ctx, tenant, []*department.Department{{Code: "x", Level: 5}}, nil), department.QuotaDepth)
	require.NoError(t, g.CheckTagCount(ctx, tenant, "x", 50))
}

func TestRedisLimits_InvalidOverride(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	tenant := uuid.New()
	limits := NewRedisLimits(client, "q:", StaticLimits{}, nil)
	mr.HSet("q:"+tenant.String(), fieldMaxCount, "lots")

	_, err := limits.Limits(context.Background(), tenant)
	require.Error(t, err)
}

func TestRedisLimits_FallsBackWhenUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	limits := NewRedisLimits(client, "", StaticLimits{MaxCount: 3}, nil)
	got, err := limits.Limits(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Equal(t, 3, got.MaxCount)
}

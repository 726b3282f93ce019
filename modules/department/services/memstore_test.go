package services

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/iota-identity/modules/department/domain/aggregates/department"
	"github.com/iota-uz/iota-identity/modules/department/infrastructure/quota"
	"github.com/iota-uz/iota-identity/pkg/composables"
)

type membership struct {
	userID uuid.UUID
	deptID int64
}

// memStore is an in-memory department store with transactional snapshots.
type memStore struct {
	mu          sync.Mutex
	nextID      int64
	depts       map[int64]*department.Department
	tags        map[int64][]int64
	memberships []membership
	policies    map[int64][]string
	mainDept    map[uuid.UUID]int64

	failOn map[string]error
	calls  []string
}

func newMemStore() *memStore {
	return &memStore{
		depts:    map[int64]*department.Department{},
		tags:     map[int64][]int64{},
		policies: map[int64][]string{},
		mainDept: map[uuid.UUID]int64{},
		failOn:   map[string]error{},
	}
}

type memSnapshot struct {
	nextID      int64
	depts       map[int64]*department.Department
	tags        map[int64][]int64
	memberships []membership
	policies    map[int64][]string
	mainDept    map[uuid.UUID]int64
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := memSnapshot{
		nextID:      s.nextID,
		depts:       make(map[int64]*department.Department, len(s.depts)),
		tags:        make(map[int64][]int64, len(s.tags)),
		memberships: slices.Clone(s.memberships),
		policies:    make(map[int64][]string, len(s.policies)),
		mainDept:    make(map[uuid.UUID]int64, len(s.mainDept)),
	}
	for k, v := range s.depts {
		snap.depts[k] = v.Clone()
	}
	for k, v := range s.tags {
		snap.tags[k] = slices.Clone(v)
	}
	for k, v := range s.policies {
		snap.policies[k] = slices.Clone(v)
	}
	for k, v := range s.mainDept {
		snap.mainDept[k] = v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID = snap.nextID
	s.depts = snap.depts
	s.tags = snap.tags
	s.memberships = snap.memberships
	s.policies = snap.policies
	s.mainDept = snap.mainDept
}

// runTx stands in for the database transaction: any error restores the state
// captured before fn ran, and commit hooks only run on success.
func (s *memStore) runTx(ctx context.Context, tenantID uuid.UUID, fn func(context.Context) error) error {
	snap := s.snapshot()
	txCtx, flush := composables.WithCommitHooks(ctx)
	if err := fn(txCtx); err != nil {
		s.restore(snap)
		return err
	}
	flush()
	return nil
}

func (s *memStore) record(op string) error {
	s.calls = append(s.calls, op)
	return s.failOn[op]
}

func (s *memStore) called(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (s *memStore) resetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

func (s *memStore) tenantRows(tenantID uuid.UUID) []*department.Department {
	var out []*department.Department
	for _, d := range s.depts {
		if d.TenantID == tenantID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func cloneAll(in []*department.Department) []*department.Department {
	out := make([]*department.Department, len(in))
	for i, d := range in {
		out[i] = d.Clone()
		out[i].TagIDs = nil
	}
	return out
}

func (s *memStore) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []int64) ([]*department.Department, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("FindByIDs"); err != nil {
		return nil, err
	}
	var out []*department.Department
	for _, d := range s.tenantRows(tenantID) {
		if slices.Contains(ids, d.ID) {
			out = append(out, d)
		}
	}
	return cloneAll(out), nil
}

func (s *memStore) LockByIDs(ctx context.Context, tenantID uuid.UUID, ids []int64) ([]*department.Department, error) {
	s.mu.Lock()
	if err := s.record("LockByIDs"); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.mu.Unlock()
	return s.FindByIDs(ctx, tenantID, ids)
}

func (s *memStore) FindIDsByPathPrefix(ctx context.Context, tenantID uuid.UUID, prefix string) ([]int64, error) {
	return s.subtreeIDs("FindIDsByPathPrefix", tenantID, prefix)
}

func (s *memStore) ListIDsByPathPrefix(ctx context.Context, tenantID uuid.UUID, prefix string) ([]int64, error) {
	return s.subtreeIDs("ListIDsByPathPrefix", tenantID, prefix)
}

func (s *memStore) subtreeIDs(op string, tenantID uuid.UUID, prefix string) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(op); err != nil {
		return nil, err
	}
	var out []int64
	for _, d := range s.tenantRows(tenantID) {
		if department.IsDescendantPath(d.ParentLikeID, prefix) {
			out = append(out, d.ID)
		}
	}
	return out, nil
}

func (s *memStore) MaxLevelByPathPrefix(ctx context.Context, tenantID uuid.UUID, prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("MaxLevelByPathPrefix"); err != nil {
		return 0, err
	}
	deepest := 0
	for _, d := range s.tenantRows(tenantID) {
		if department.IsDescendantPath(d.ParentLikeID, prefix) && d.Level > deepest {
			deepest = d.Level
		}
	}
	return deepest, nil
}

func (s *memStore) findBy(tenantID uuid.UUID, values []string, field func(*department.Department) string) []*department.Department {
	var out []*department.Department
	for _, d := range s.tenantRows(tenantID) {
		if slices.Contains(values, field(d)) {
			out = append(out, d)
		}
	}
	return cloneAll(out)
}

func (s *memStore) FindByCodes(ctx context.Context, tenantID uuid.UUID, codes []string) ([]*department.Department, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("FindByCodes"); err != nil {
		return nil, err
	}
	return s.findBy(tenantID, codes, func(d *department.Department) string { return d.Code }), nil
}

func (s *memStore) FindByNames(ctx context.Context, tenantID uuid.UUID, names []string) ([]*department.Department, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("FindByNames"); err != nil {
		return nil, err
	}
	return s.findBy(tenantID, names, func(d *department.Department) string { return d.Name }), nil
}

func (s *memStore) Count(ctx context.Context, tenantID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("Count"); err != nil {
		return 0, err
	}
	return len(s.tenantRows(tenantID)), nil
}

func (s *memStore) ListAll(ctx context.Context, tenantID uuid.UUID) ([]*department.Department, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("ListAll"); err != nil {
		return nil, err
	}
	return cloneAll(s.tenantRows(tenantID)), nil
}

func (s *memStore) BatchInsert(ctx context.Context, tenantID uuid.UUID, departments []*department.Department) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("BatchInsert"); err != nil {
		return nil, err
	}
	ids := make([]int64, len(departments))
	now := time.Now().UTC()
	for i, d := range departments {
		s.nextID++
		row := d.Clone()
		row.ID = s.nextID
		row.TenantID = tenantID
		row.TagIDs = nil
		row.CreatedAt, row.UpdatedAt = now, now
		s.depts[row.ID] = row
		ids[i] = row.ID
	}
	return ids, nil
}

func (s *memStore) Update(ctx context.Context, tenantID uuid.UUID, d *department.Department) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("Update"); err != nil {
		return err
	}
	current, ok := s.depts[d.ID]
	if !ok || current.TenantID != tenantID {
		return fmt.Errorf("department %d not stored", d.ID)
	}
	row := d.Clone()
	row.TenantID = current.TenantID
	row.CreatedAt = current.CreatedAt
	row.CreatedBy = current.CreatedBy
	row.TagIDs = nil
	s.depts[d.ID] = row
	return nil
}

func (s *memStore) BulkUpdateSubtree(ctx context.Context, tenantID uuid.UUID, ids []int64, levelDelta int, oldPrefix, newPrefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("BulkUpdateSubtree"); err != nil {
		return err
	}
	for _, id := range ids {
		d, ok := s.depts[id]
		if !ok || d.TenantID != tenantID {
			continue
		}
		d.Level += levelDelta
		d.ParentLikeID = department.RebasePath(oldPrefix, newPrefix, d.ParentLikeID)
	}
	return nil
}

func (s *memStore) DeleteByIDs(ctx context.Context, tenantID uuid.UUID, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("DeleteByIDs"); err != nil {
		return err
	}
	for _, id := range ids {
		if d, ok := s.depts[id]; ok && d.TenantID == tenantID {
			delete(s.depts, id)
		}
	}
	return nil
}

func (s *memStore) ReplaceFor(ctx context.Context, tenantID uuid.UUID, departmentID int64, tagIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("ReplaceFor"); err != nil {
		return err
	}
	if len(tagIDs) == 0 {
		delete(s.tags, departmentID)
		return nil
	}
	s.tags[departmentID] = slices.Clone(tagIDs)
	return nil
}

func (s *memStore) ListFor(ctx context.Context, tenantID uuid.UUID, departmentIDs []int64) (map[int64][]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64][]int64)
	for _, id := range departmentIDs {
		if tags, ok := s.tags[id]; ok {
			out[id] = slices.Clone(tags)
		}
	}
	return out, nil
}

// tagStore is the TagAssociation view of the store.
type tagStore struct{ *memStore }

func (c tagStore) RemoveByDepartmentIDs(ctx context.Context, tenantID uuid.UUID, ids []int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record("RemoveTags"); err != nil {
		return err
	}
	for _, id := range ids {
		delete(c.tags, id)
	}
	return nil
}

type memberCleaner struct{ *memStore }

func (c memberCleaner) RemoveByDepartmentIDs(ctx context.Context, tenantID uuid.UUID, ids []int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record("RemoveMemberships"); err != nil {
		return err
	}
	kept := c.memberships[:0]
	for _, m := range c.memberships {
		if !slices.Contains(ids, m.deptID) {
			kept = append(kept, m)
		}
	}
	c.memberships = kept
	return nil
}

type policyCleaner struct{ *memStore }

func (c policyCleaner) RemoveByDepartmentIDs(ctx context.Context, tenantID uuid.UUID, ids []int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.record("RemovePolicies"); err != nil {
		return err
	}
	for _, id := range ids {
		delete(c.policies, id)
	}
	return nil
}

func (s *memStore) ClearMainDeptIDs(ctx context.Context, tenantID uuid.UUID, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("ClearMainDeptIDs"); err != nil {
		return err
	}
	for user, dept := range s.mainDept {
		if slices.Contains(ids, dept) {
			s.mainDept[user] = 0
		}
	}
	return nil
}

type fixture struct {
	svc    *DepartmentService
	store  *memStore
	tenant uuid.UUID
	limits *quota.StaticLimits
}

type limitsRef struct{ l *quota.StaticLimits }

func (r limitsRef) Limits(ctx context.Context, tenantID uuid.UUID) (quota.Limits, error) {
	return r.l.Limits(ctx, tenantID)
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	store := newMemStore()
	limits := &quota.StaticLimits{}

	inTenantTx = store.runTx
	t.Cleanup(func() { inTenantTx = defaultInTenantTx })

	svc := NewDepartmentService(Dependencies{
		Repository:  store,
		Quota:       quota.NewGuard(store, limitsRef{limits}),
		Tags:        tagStore{store},
		Memberships: memberCleaner{store},
		Policies:    policyCleaner{store},
		Users:       store,
	}, opts...)
	return &fixture{svc: svc, store: store, tenant: uuid.New(), limits: limits}
}

// seed stores departments with explicit ids; each pair is {id, pid} and
// parents must come before their children.
func (f *fixture) seed(pairs ...[2]int64) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	for _, p := range pairs {
		id, pid := p[0], p[1]
		parents := map[int64]*department.Department{}
		if parent, ok := f.store.depts[pid]; ok {
			parents[pid] = parent
		}
		f.store.depts[id] = &department.Department{
			ID:           id,
			TenantID:     f.tenant,
			PID:          pid,
			Level:        department.ComputeLevel(pid, parents),
			ParentLikeID: department.ComputeParentLikeID(pid, parents),
			Code:         fmt.Sprintf("D%d", id),
			Name:         fmt.Sprintf("Dept %d", id),
		}
		if id > f.store.nextID {
			f.store.nextID = id
		}
	}
}

func (f *fixture) get(id int64) *department.Department {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	d, ok := f.store.depts[id]
	if !ok {
		return nil
	}
	return d.Clone()
}

func (f *fixture) all() []*department.Department {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return cloneAll(f.store.tenantRows(f.tenant))
}

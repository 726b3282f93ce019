package services

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/iota-identity/modules/department/domain/aggregates/department"
	"github.com/iota-uz/iota-identity/pkg/composables"
	"github.com/iota-uz/iota-identity/pkg/configuration"
	"github.com/iota-uz/iota-identity/pkg/eventbus"
)

// Dependencies are the collaborators of DepartmentService. Publisher may be nil.
type Dependencies struct {
	Repository  department.Repository
	Quota       department.QuotaGuard
	Tags        department.TagAssociation
	Memberships department.MembershipCleaner
	Policies    department.PolicyAssociationCleaner
	Users       department.UserDirectory
	Publisher   eventbus.EventBus
}

type Option func(*DepartmentService)

// WithNameUniqueMode selects how department names must be unique: per tenant,
// per parent, or not at all.
func WithNameUniqueMode(mode string) Option {
	return func(s *DepartmentService) {
		switch mode {
		case configuration.NameUniqueSibling, configuration.NameUniqueDisabled:
			s.nameMode = mode
		default:
			s.nameMode = configuration.NameUniqueTenant
		}
	}
}

// DepartmentService owns the department tree of every tenant: it is the only
// writer of Level and ParentLikeID.
type DepartmentService struct {
	repo      department.Repository
	quota     department.QuotaGuard
	tags      department.TagAssociation
	members   department.MembershipCleaner
	policies  department.PolicyAssociationCleaner
	users     department.UserDirectory
	publisher eventbus.EventBus
	nameMode  string
}

func NewDepartmentService(deps Dependencies, opts ...Option) *DepartmentService {
	s := &DepartmentService{
		repo:      deps.Repository,
		quota:     deps.Quota,
		tags:      deps.Tags,
		members:   deps.Memberships,
		policies:  deps.Policies,
		users:     deps.Users,
		publisher: deps.Publisher,
		nameMode:  configuration.NameUniqueTenant,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add inserts a batch of new departments and returns their ids in draft order.
// Parents must already be stored: a draft cannot reference another draft of
// the same batch.
func (s *DepartmentService) Add(ctx context.Context, tenantID uuid.UUID, drafts []*department.CreateDTO) (ids []int64, err error) {
	ctx, span := startSpan(ctx, "add", tenantID, len(drafts))
	defer func() {
		recordWrite("add", err)
		logOutcome(ctx, "add", tenantID, err, logrus.Fields{"batch_size": len(drafts)})
		endSpan(span, err)
	}()

	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if len(drafts) == 0 {
		return nil, nil
	}
	for i, dto := range drafts {
		if dto == nil {
			return nil, validationError(CodeInvalidBody, "draft", i, "department draft is nil")
		}
		if err := dto.Validate(); err != nil {
			return nil, fromValidatorError(err, i)
		}
	}

	var created []*department.Department
	err = inTenantTx(ctx, tenantID, func(txCtx context.Context) error {
		var innerErr error
		ids, created, innerErr = s.add(txCtx, tenantID, drafts)
		return innerErr
	})
	if err != nil {
		return nil, mapPgError(err)
	}
	s.publish(ctx, department.NewCreatedEvent(tenantID, created))
	return ids, nil
}

func (s *DepartmentService) add(ctx context.Context, tenantID uuid.UUID, drafts []*department.CreateDTO) ([]int64, []*department.Department, error) {
	actor := actorID(ctx)
	batch := make([]*department.Department, len(drafts))
	for i, dto := range drafts {
		batch[i] = dto.ToEntity(tenantID)
		batch[i].CreatedBy, batch[i].UpdatedBy = actor, actor
	}

	if err := s.checkUnique(ctx, tenantID, batch, nil); err != nil {
		return nil, nil, err
	}

	parents, err := s.loadParents(ctx, tenantID, batch, false)
	if err != nil {
		return nil, nil, err
	}

	if err := s.quota.CheckCount(ctx, tenantID, len(batch)); err != nil {
		return nil, nil, fromQuotaError(err)
	}
	for _, d := range batch {
		d.Level = department.ComputeLevel(d.PID, parents)
		d.ParentLikeID = department.ComputeParentLikeID(d.PID, parents)
		if err := s.quota.CheckTagCount(ctx, tenantID, d.Code, len(d.TagIDs)); err != nil {
			return nil, nil, fromQuotaError(err)
		}
	}
	if err := s.quota.CheckDepth(ctx, tenantID, batch, parents); err != nil {
		return nil, nil, fromQuotaError(err)
	}

	ids, err := s.repo.BatchInsert(ctx, tenantID, batch)
	if err != nil {
		return nil, nil, err
	}
	for i, d := range batch {
		d.ID = ids[i]
		if len(d.TagIDs) == 0 {
			continue
		}
		if err := s.tags.ReplaceFor(ctx, tenantID, d.ID, d.TagIDs); err != nil {
			return nil, nil, err
		}
	}
	return ids, batch, nil
}

// Get returns one department with its tag ids.
func (s *DepartmentService) Get(ctx context.Context, tenantID uuid.UUID, id int64) (*department.Department, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	var out *department.Department
	err := inTenantTx(ctx, tenantID, func(txCtx context.Context) error {
		found, err := s.repo.FindByIDs(txCtx, tenantID, []int64{id})
		if err != nil {
			return err
		}
		if len(found) == 0 {
			return notFoundError("id", id)
		}
		if err := s.attachTags(txCtx, tenantID, found); err != nil {
			return err
		}
		out = found[0]
		return nil
	})
	return out, mapPgError(err)
}

// ListTree returns the tenant's departments as a forest ordered for display.
func (s *DepartmentService) ListTree(ctx context.Context, tenantID uuid.UUID) ([]*department.Node, error) {
	all, err := s.ListAll(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return department.BuildTree(all), nil
}

func (s *DepartmentService) ListAll(ctx context.Context, tenantID uuid.UUID) ([]*department.Department, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	var out []*department.Department
	err := inTenantTx(ctx, tenantID, func(txCtx context.Context) error {
		all, err := s.repo.ListAll(txCtx, tenantID)
		if err != nil {
			return err
		}
		if err := s.attachTags(txCtx, tenantID, all); err != nil {
			return err
		}
		out = all
		return nil
	})
	return out, mapPgError(err)
}

// Descendants returns every department below id, shallowest first.
func (s *DepartmentService) Descendants(ctx context.Context, tenantID uuid.UUID, id int64) ([]*department.Department, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	var out []*department.Department
	err := inTenantTx(ctx, tenantID, func(txCtx context.Context) error {
		found, err := s.repo.FindByIDs(txCtx, tenantID, []int64{id})
		if err != nil {
			return err
		}
		if len(found) == 0 {
			return notFoundError("id", id)
		}
		ids, err := s.repo.ListIDsByPathPrefix(txCtx, tenantID, department.SubtreePrefix(found[0]))
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		out, err = s.repo.FindByIDs(txCtx, tenantID, ids)
		return err
	})
	if err != nil {
		return nil, mapPgError(err)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level < out[j].Level
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *DepartmentService) attachTags(ctx context.Context, tenantID uuid.UUID, departments []*department.Department) error {
	if len(departments) == 0 {
		return nil
	}
	byDept, err := s.tags.ListFor(ctx, tenantID, department.IDs(departments))
	if err != nil {
		return err
	}
	for _, d := range departments {
		d.TagIDs = byDept[d.ID]
	}
	return nil
}

// publish hands events to the bus once the transaction carried by ctx
// commits. A caller-owned transaction that rolls back drops them.
func (s *DepartmentService) publish(ctx context.Context, events ...any) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	composables.AfterCommit(ctx, func() {
		for _, ev := range events {
			s.publisher.Publish(ev)
		}
	})
}

func requireTenant(tenantID uuid.UUID) error {
	if tenantID == uuid.Nil {
		return validationError(CodeInvalidBody, "tenant_id", tenantID, "tenant_id is required")
	}
	return nil
}

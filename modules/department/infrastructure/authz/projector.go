package authz

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/iota-identity/modules/department/domain/aggregates/department"
	"github.com/iota-uz/iota-identity/pkg/authz"
	"github.com/iota-uz/iota-identity/pkg/eventbus"
)

// RoleRemover is the part of the authorization service the projector writes to.
type RoleRemover interface {
	RemoveRole(ctx context.Context, role, domain string) (bool, error)
}

// Projector keeps department roles in the casbin store in step with the
// department tree. It runs after the department transaction commits.
type Projector struct {
	roles RoleRemover
	log   *logrus.Logger
}

func NewProjector(roles RoleRemover, log *logrus.Logger) *Projector {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Projector{roles: roles, log: log}
}

// Register subscribes the projector to department events.
func (p *Projector) Register(bus eventbus.EventBus) {
	bus.Subscribe(p.OnDeleted)
}

// OnDeleted drops the role of every removed department, descendants included.
// Failures are logged; the departments are already gone.
func (p *Projector) OnDeleted(e *department.DeletedEvent) {
	ctx := context.Background()
	domain := authz.DomainFromTenant(e.TenantID)
	removed := 0
	for _, id := range e.DeletedIDs {
		ok, err := p.roles.RemoveRole(ctx, authz.SubjectForDepartment(id), domain)
		if err != nil {
			p.log.WithFields(logrus.Fields{
				"tenant_id":     e.TenantID.String(),
				"department_id": id,
				"error":         err.Error(),
			}).Error("department.authz.remove_role_failed")
			continue
		}
		if ok {
			removed++
		}
	}
	p.log.WithFields(logrus.Fields{
		"tenant_id":     e.TenantID.String(),
		"deleted_count": len(e.DeletedIDs),
		"roles_removed": removed,
	}).Debug("department.authz.projected")
}

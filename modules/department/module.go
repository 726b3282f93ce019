package department

import (
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	deptauthz "github.com/iota-uz/iota-identity/modules/department/infrastructure/authz"
	"github.com/iota-uz/iota-identity/modules/department/infrastructure/persistence"
	"github.com/iota-uz/iota-identity/modules/department/infrastructure/quota"
	"github.com/iota-uz/iota-identity/modules/department/services"
	"github.com/iota-uz/iota-identity/pkg/authz"
	"github.com/iota-uz/iota-identity/pkg/configuration"
	"github.com/iota-uz/iota-identity/pkg/eventbus"
)

// ModuleOptions configures the department module. Redis and Authz are
// optional: without Redis the configured limits apply to every tenant, without
// Authz no casbin roles are maintained.
type ModuleOptions struct {
	Config    *configuration.Configuration
	Publisher eventbus.EventBus
	Redis     redis.UniversalClient
	Authz     *authz.Service
	Logger    *logrus.Logger
}

type Module struct {
	Service   *services.DepartmentService
	Publisher eventbus.EventBus
	Limits    quota.LimitsSource
}

func NewModule(opts *ModuleOptions) (*Module, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = configuration.Use()
	}
	log := opts.Logger
	if log == nil {
		log = cfg.Logger()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	publisher := opts.Publisher
	if publisher == nil {
		publisher = eventbus.NewEventPublisher(log)
	}

	var limits quota.LimitsSource = quota.LimitsFromConfig(cfg.Departments)
	if cfg.QuotaRedisEnabled {
		client := opts.Redis
		if client == nil {
			redisOpts, err := redis.ParseURL(redisURL(cfg.RedisURL))
			if err != nil {
				return nil, err
			}
			client = redis.NewClient(redisOpts)
		}
		limits = quota.NewRedisLimits(client, cfg.Departments.QuotaRedisPrefix, limits, log)
	}

	repo := persistence.NewDepartmentRepository()
	svc := services.NewDepartmentService(services.Dependencies{
		Repository:  repo,
		Quota:       quota.NewGuard(repo, limits),
		Tags:        persistence.NewTagRepository(),
		Memberships: persistence.NewMembershipRepository(),
		Policies:    persistence.NewPolicyRepository(),
		Users:       persistence.NewUserDirectoryRepository(),
		Publisher:   publisher,
	}, services.WithNameUniqueMode(cfg.Departments.NameUniqueMode))

	if opts.Authz != nil {
		deptauthz.NewProjector(opts.Authz, log).Register(publisher)
	}

	return &Module{Service: svc, Publisher: publisher, Limits: limits}, nil
}

func (m *Module) Name() string {
	return "department"
}

// redisURL accepts both redis://host:port/db and a bare host:port.
func redisURL(raw string) string {
	for _, scheme := range []string{"redis://", "rediss://", "unix://"} {
		if strings.HasPrefix(raw, scheme) {
			return raw
		}
	}
	return "redis://" + raw
}

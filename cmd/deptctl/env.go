package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	departmentmodule "github.com/iota-uz/iota-identity/modules/department"
	"github.com/iota-uz/iota-identity/modules/department/services"
	"github.com/iota-uz/iota-identity/pkg/authz"
	"github.com/iota-uz/iota-identity/pkg/composables"
	"github.com/iota-uz/iota-identity/pkg/configuration"
	"github.com/iota-uz/iota-identity/pkg/tracing"
)

// cliEnv is what every database-backed subcommand works with.
type cliEnv struct {
	ctx      context.Context
	pool     *pgxpool.Pool
	service  *services.DepartmentService
	authz    *authz.Service
	log      *logrus.Logger
	shutdown func(context.Context) error
}

func (e *cliEnv) Close() {
	if e.authz != nil {
		if err := e.authz.SavePolicy(); err != nil {
			e.log.WithError(err).Warn("deptctl.authz.save_failed")
		}
	}
	if e.shutdown != nil {
		_ = e.shutdown(context.Background())
	}
	e.pool.Close()
	configuration.Use().Unload()
}

func connectDB(ctx context.Context, cfg *configuration.Configuration) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.Database.ConnectionString())
	if err != nil {
		return nil, withCode(exitDB, fmt.Errorf("connect db: %w", err))
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, withCode(exitDB, fmt.Errorf("ping db: %w", err))
	}
	return pool, nil
}

// openEnv connects to the database and builds the department module. With
// withAuthz the casbin policy files from configuration are loaded too, so
// deletions made through the CLI are projected into them.
func openEnv(cmd *cobra.Command, withAuthz bool) (*cliEnv, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rawActor, _ := cmd.Flags().GetString("actor")
	actor, err := parseActor(rawActor)
	if err != nil {
		return nil, err
	}
	cfg := configuration.Use()
	log := cfg.Logger()
	if log == nil {
		log = logrus.StandardLogger()
	}

	shutdown, err := tracing.Setup(ctx, cfg.OpenTelemetry)
	if err != nil {
		return nil, withCode(exitUsage, err)
	}
	pool, err := connectDB(ctx, cfg)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}

	var authzSvc *authz.Service
	if withAuthz {
		authzSvc, err = authz.NewService(authz.DefaultConfig())
		if err != nil {
			pool.Close()
			_ = shutdown(ctx)
			return nil, withCode(exitUsage, err)
		}
	}

	module, err := departmentmodule.NewModule(&departmentmodule.ModuleOptions{Config: cfg, Logger: log, Authz: authzSvc})
	if err != nil {
		pool.Close()
		_ = shutdown(ctx)
		return nil, withCode(exitUsage, err)
	}

	ctx = composables.WithPool(ctx, pool)
	if actor != uuid.Nil {
		ctx = composables.WithUserID(ctx, actor)
	}
	ctx = composables.WithLogger(ctx, logrus.NewEntry(log).WithField("component", "deptctl"))
	return &cliEnv{
		ctx:      ctx,
		pool:     pool,
		service:  module.Service,
		authz:    authzSvc,
		log:      log,
		shutdown: shutdown,
	}, nil
}

func parseTenant(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, withCode(exitUsage, fmt.Errorf("invalid --tenant: %w", err))
	}
	if id == uuid.Nil {
		return uuid.Nil, withCode(exitUsage, fmt.Errorf("--tenant must not be the nil uuid"))
	}
	return id, nil
}

// parseActor accepts an empty value as "no actor".
func parseActor(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, withCode(exitUsage, fmt.Errorf("invalid --actor: %w", err))
	}
	return id, nil
}

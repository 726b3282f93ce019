package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/spf13/cobra"

	"github.com/iota-uz/iota-identity/modules/department/domain/aggregates/department"
	"github.com/iota-uz/iota-identity/pkg/configuration"
	"github.com/iota-uz/iota-identity/pkg/metrics"
)

var (
	treeViolations = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "department_tree_violations",
		Help: "Invariant violations found by the last tree check, per tenant.",
	}, []string{"tenant_id"})
	treeChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "department_tree_checks_total",
		Help: "Tree checks run by the monitor.",
	}, []string{"result"})
)

type treeChecker interface {
	CheckTree(ctx context.Context, tenantID uuid.UUID) ([]department.Violation, error)
}

// checkTenants runs one round of tree checks and records the results.
func checkTenants(ctx context.Context, checker treeChecker, tenants []uuid.UUID) error {
	var errs []error
	for _, tenantID := range tenants {
		violations, err := checker.CheckTree(ctx, tenantID)
		if err != nil {
			treeChecks.WithLabelValues("error").Inc()
			errs = append(errs, fmt.Errorf("tenant %s: %w", tenantID, err))
			continue
		}
		treeChecks.WithLabelValues("ok").Inc()
		treeViolations.WithLabelValues(tenantID.String()).Set(float64(len(violations)))
	}
	return errors.Join(errs...)
}

func newMonitorCmd() *cobra.Command {
	var (
		tenants  []string
		addr     string
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Periodically check department trees and expose the results as Prometheus metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]uuid.UUID, 0, len(tenants))
			for _, raw := range tenants {
				id, err := parseTenant(raw)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			if interval <= 0 {
				return withCode(exitUsage, fmt.Errorf("--interval must be positive"))
			}
			env, err := openEnv(cmd, false)
			if err != nil {
				return err
			}
			defer env.Close()

			srv := &http.Server{
				Addr:              addr,
				Handler:           metrics.NewRouter(configuration.Use().Prometheus.Path, prometheus.DefaultGatherer),
				ReadHeaderTimeout: 5 * time.Second,
			}
			serveErr := make(chan error, 1)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(ctx)
			}()

			log := env.log.WithField("addr", addr)
			log.Info("deptctl.monitor.started")
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				if err := checkTenants(env.ctx, env.service, ids); err != nil {
					log.WithError(err).Warn("deptctl.monitor.check_failed")
				}
				select {
				case <-env.ctx.Done():
					return nil
				case err, ok := <-serveErr:
					if ok {
						return withCode(exitUsage, fmt.Errorf("metrics server: %w", err))
					}
					return nil
				case <-ticker.C:
				}
			}
		},
	}
	cmd.Flags().StringSliceVar(&tenants, "tenant", nil, "Tenant UUID to check (repeatable, required)")
	cmd.Flags().StringVar(&addr, "addr", ":9090", "Metrics listen address")
	cmd.Flags().DurationVar(&interval, "interval", time.Minute, "Time between checks")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

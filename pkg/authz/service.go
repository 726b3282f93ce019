package authz

import (
	"context"
	"fmt"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
	"github.com/sirupsen/logrus"
)

// Service wraps a casbin enforcer whose role groupings follow department membership.
type Service struct {
	cfg      Config
	enforcer *casbin.Enforcer
	logger   *logrus.Entry
	mu       sync.RWMutex
}

func NewService(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg = cfg.normalized()

	var logger *logrus.Entry
	if cfg.Logger != nil {
		logger = cfg.Logger.WithField("component", "authz")
	} else {
		logger = logrus.WithField("component", "authz")
	}

	var (
		enf *casbin.Enforcer
		err error
	)
	if cfg.ModelText != "" {
		m, mErr := model.NewModelFromString(cfg.ModelText)
		if mErr != nil {
			return nil, fmt.Errorf("authz: failed to parse model: %w", mErr)
		}
		enf, err = casbin.NewEnforcer(m)
	} else {
		enf, err = casbin.NewEnforcer(cfg.ModelPath, fileadapter.NewAdapter(cfg.PolicyPath))
	}
	if err != nil {
		return nil, fmt.Errorf("authz: failed to initialize enforcer: %w", err)
	}
	if cfg.ModelText == "" {
		if err := enf.LoadPolicy(); err != nil {
			return nil, fmt.Errorf("authz: failed to load policies: %w", err)
		}
	}

	return &Service{
		cfg:      cfg,
		enforcer: enf,
		logger:   logger,
	}, nil
}

// Check evaluates a request.
func (s *Service) Check(ctx context.Context, req Request) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res, err := s.enforcer.Enforce(req.Subject, req.Domain, req.Object, req.Action)
	if err != nil {
		return false, fmt.Errorf("authz: enforce failed: %w", err)
	}
	return res, nil
}

// AddPolicy grants action on object to subject within domain.
func (s *Service) AddPolicy(subject, domain, object, action string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.enforcer.AddPolicy(subject, domain, object, action); err != nil {
		return fmt.Errorf("authz: add policy failed: %w", err)
	}
	return nil
}

// AddGrouping places subject into role within domain.
func (s *Service) AddGrouping(subject, role, domain string) (err error) {
	defer func() { recordGroupingChange("add", err) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.enforcer.AddGroupingPolicy(subject, role, domain); err != nil {
		return fmt.Errorf("authz: add grouping failed: %w", err)
	}
	return nil
}

// RemoveRole drops every grouping that points at role within domain and
// reports whether anything was removed.
func (s *Service) RemoveRole(ctx context.Context, role, domain string) (removed bool, err error) {
	defer func() { recordGroupingChange("remove_role", err) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed, err = s.enforcer.RemoveFilteredGroupingPolicy(1, role, domain)
	if err != nil {
		return false, fmt.Errorf("authz: remove groupings for %s failed: %w", role, err)
	}
	if removed {
		s.logger.WithContext(ctx).WithFields(logrus.Fields{"role": role, "domain": domain}).Debug("authz groupings removed")
	}
	return removed, nil
}

// Members lists the subjects grouped into role within domain.
func (s *Service) Members(role, domain string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users, err := s.enforcer.GetUsersForRole(role, domain)
	if err != nil {
		return nil, fmt.Errorf("authz: list members of %s failed: %w", role, err)
	}
	return users, nil
}

// SavePolicy persists the in-memory policy through the file adapter. It is a
// no-op for services built from ModelText.
func (s *Service) SavePolicy() error {
	if s.cfg.ModelText != "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enforcer.SavePolicy(); err != nil {
		return fmt.Errorf("authz: save policy failed: %w", err)
	}
	return nil
}

// ReloadPolicy reloads policy data from disk.
func (s *Service) ReloadPolicy(ctx context.Context) error {
	if s.cfg.ModelText != "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enforcer.LoadPolicy(); err != nil {
		return fmt.Errorf("authz: reload policy failed: %w", err)
	}
	s.logger.WithContext(ctx).Info("authz policy reloaded")
	return nil
}

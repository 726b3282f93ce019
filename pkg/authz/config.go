package authz

import (
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/iota-identity/pkg/configuration"
)

// Config captures all inputs necessary to initialize the Casbin enforcer.
// ModelText, when set, replaces ModelPath and keeps policies in memory only.
type Config struct {
	ModelPath  string
	PolicyPath string
	ModelText  string
	Logger     *logrus.Logger
}

func (c Config) validate() error {
	if c.ModelText != "" {
		return nil
	}
	if c.ModelPath == "" {
		return configError("missing model path")
	}
	if c.PolicyPath == "" {
		return configError("missing policy path")
	}
	return nil
}

func (c Config) normalized() Config {
	if c.ModelPath != "" {
		c.ModelPath = filepath.Clean(c.ModelPath)
	}
	if c.PolicyPath != "" {
		c.PolicyPath = filepath.Clean(c.PolicyPath)
	}
	return c
}

// DefaultConfig builds a Config using the global configuration singleton.
func DefaultConfig() Config {
	cfg := configuration.Use()
	return Config{
		ModelPath:  cfg.Authz.ModelPath,
		PolicyPath: cfg.Authz.PolicyPath,
		Logger:     cfg.Logger(),
	}
}

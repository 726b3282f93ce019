package configuration

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/iota-identity/pkg/logging"
)

const Production = "production"

const (
	NameUniqueTenant   = "tenant"
	NameUniqueSibling  = "sibling"
	NameUniqueDisabled = "disabled"
)

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

// LoadEnv loads the given env files from the working directory, or from the
// nearest ancestor holding a go.mod when none exist in the working directory.
func LoadEnv(envFiles []string) (int, error) {
	existing := existingFiles("", envFiles)
	if len(existing) == 0 {
		if root, ok := findModuleRoot(); ok {
			existing = existingFiles(root, envFiles)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

func existingFiles(dir string, envFiles []string) []string {
	out := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		path := file
		if dir != "" {
			path = filepath.Join(dir, file)
		}
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			out = append(out, path)
		}
	}
	return out
}

func findModuleRoot() (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"iota_identity"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

type OpenTelemetryOptions struct {
	Enabled     bool   `env:"OTEL_ENABLED" envDefault:"false"`
	TempoURL    string `env:"OTEL_TEMPO_URL" envDefault:"localhost:4318"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"iota-identity"`
}

type PrometheusOptions struct {
	Enabled bool   `env:"PROMETHEUS_METRICS_ENABLED" envDefault:"false"`
	Path    string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/debug/prometheus"`
}

// DepartmentOptions holds the default per-tenant department limits.
// A zero limit disables the corresponding check.
type DepartmentOptions struct {
	MaxCount         int    `env:"DEPARTMENT_MAX_COUNT" envDefault:"5000"`
	MaxDepth         int    `env:"DEPARTMENT_MAX_DEPTH" envDefault:"15"`
	MaxTags          int    `env:"DEPARTMENT_MAX_TAGS" envDefault:"20"`
	NameUniqueMode   string `env:"DEPARTMENT_NAME_UNIQUE_MODE" envDefault:"tenant"`
	QuotaRedisPrefix string `env:"DEPARTMENT_QUOTA_REDIS_PREFIX" envDefault:"quota:department:"`
}

func (d *DepartmentOptions) Validate() error {
	if d.MaxCount < 0 || d.MaxDepth < 0 || d.MaxTags < 0 {
		return fmt.Errorf("department limits must be non-negative (count=%d depth=%d tags=%d)", d.MaxCount, d.MaxDepth, d.MaxTags)
	}
	mode := strings.ToLower(strings.TrimSpace(d.NameUniqueMode))
	if mode == "" {
		mode = NameUniqueTenant
	}
	switch mode {
	case NameUniqueTenant, NameUniqueSibling, NameUniqueDisabled:
	default:
		return fmt.Errorf("invalid DEPARTMENT_NAME_UNIQUE_MODE=%q (expected tenant|sibling|disabled)", d.NameUniqueMode)
	}
	d.NameUniqueMode = mode
	return nil
}

type AuthzOptions struct {
	ModelPath  string `env:"AUTHZ_MODEL_PATH" envDefault:"config/access/model.conf"`
	PolicyPath string `env:"AUTHZ_POLICY_PATH" envDefault:"config/access/policy.csv"`
}

type Configuration struct {
	Database      DatabaseOptions
	OpenTelemetry OpenTelemetryOptions
	Prometheus    PrometheusOptions
	Departments   DepartmentOptions
	Authz         AuthzOptions

	RedisURL          string `env:"REDIS_URL" envDefault:"localhost:6379"`
	QuotaRedisEnabled bool   `env:"QUOTA_REDIS_ENABLED" envDefault:"false"`
	GoAppEnvironment  string `env:"GO_APP_ENV" envDefault:"development"`
	LogLevel          string `env:"LOG_LEVEL" envDefault:"error"`
	LogPath           string `env:"LOG_PATH" envDefault:""`

	// RLS enforcement mode (disabled/enforce).
	RLSEnforce string `env:"RLS_ENFORCE" envDefault:"disabled"`

	logFile *os.File
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

func Use() *Configuration {
	return singleton()
}

// Parse reads configuration from the process environment without touching
// .env files or opening log files.
func Parse() (*Configuration, error) {
	c := &Configuration{}
	if err := env.Parse(c); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	c.Database.Opts = c.Database.ConnectionString()
	return c, nil
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}
	if err := c.validate(); err != nil {
		return err
	}

	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogPath)
	if err != nil {
		return err
	}
	if c.GoAppEnvironment == Production {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	c.logFile = f
	c.logger = logger

	c.Database.Opts = c.Database.ConnectionString()
	return nil
}

func (c *Configuration) validate() error {
	if err := c.Departments.Validate(); err != nil {
		return fmt.Errorf("department configuration error: %w", err)
	}
	if err := c.validateRLS(); err != nil {
		return err
	}
	if c.QuotaRedisEnabled && strings.TrimSpace(c.RedisURL) == "" {
		return errors.New("QUOTA_REDIS_ENABLED requires REDIS_URL")
	}
	return nil
}

func (c *Configuration) validateRLS() error {
	mode := strings.ToLower(strings.TrimSpace(c.RLSEnforce))
	if mode == "" {
		mode = "disabled"
	}
	switch mode {
	case "disabled", "enforce":
	default:
		return fmt.Errorf("invalid RLS_ENFORCE=%q (expected disabled|enforce)", c.RLSEnforce)
	}

	if mode == "enforce" && strings.EqualFold(strings.TrimSpace(c.Database.User), "postgres") {
		return fmt.Errorf("RLS_ENFORCE=enforce requires a non-superuser DB_USER (postgres will bypass RLS)")
	}

	c.RLSEnforce = mode
	return nil
}

// Unload handles a graceful shutdown.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
	}
}

package configuration

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnv_FallsBackToGoModRoot(t *testing.T) {
	tmp := t.TempDir()

	requireWriteFile(t, filepath.Join(tmp, "go.mod"), "module example.com/test\n\ngo 1.22\n")
	requireWriteFile(t, filepath.Join(tmp, ".env.local"), "IDENTITY_TEST_ENV_LOAD=ok\n")

	sub := filepath.Join(tmp, "modules", "department")
	requireMkdirAll(t, sub)

	origWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(origWd) })
	if err := os.Chdir(sub); err != nil {
		t.Fatalf("chdir: %v", err)
	}

	_ = os.Unsetenv("IDENTITY_TEST_ENV_LOAD")
	t.Cleanup(func() { _ = os.Unsetenv("IDENTITY_TEST_ENV_LOAD") })

	n, err := LoadEnv([]string{".env", ".env.local"})
	if err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 env file loaded, got %d", n)
	}
	if got := os.Getenv("IDENTITY_TEST_ENV_LOAD"); got != "ok" {
		t.Fatalf("expected env var loaded from repo root, got %q", got)
	}
}

func TestParse_DepartmentDefaults(t *testing.T) {
	t.Setenv("DEPARTMENT_NAME_UNIQUE_MODE", " Sibling ")
	t.Setenv("DEPARTMENT_MAX_DEPTH", "4")

	c, err := Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Departments.NameUniqueMode != NameUniqueSibling {
		t.Fatalf("expected normalized mode %q, got %q", NameUniqueSibling, c.Departments.NameUniqueMode)
	}
	if c.Departments.MaxDepth != 4 {
		t.Fatalf("expected max depth 4, got %d", c.Departments.MaxDepth)
	}
	if c.Departments.MaxCount != 5000 {
		t.Fatalf("expected default max count 5000, got %d", c.Departments.MaxCount)
	}
	if c.Database.Opts == "" {
		t.Fatalf("expected connection string to be populated")
	}
}

func TestParse_RejectsInvalidDepartmentOptions(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown name mode": {"DEPARTMENT_NAME_UNIQUE_MODE": "global"},
		"negative depth":    {"DEPARTMENT_MAX_DEPTH": "-1"},
		"rls superuser":     {"RLS_ENFORCE": "enforce", "DB_USER": "postgres"},
		"redis without url": {"QUOTA_REDIS_ENABLED": "true", "REDIS_URL": " "},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range vars {
				t.Setenv(k, v)
			}
			if _, err := Parse(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func requireWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func requireMkdirAll(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
}

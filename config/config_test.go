package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/samzhu/scim/errors"
)

type fixtureConfig struct {
	Image          string        `mapstructure:"image"`
	StartupTimeout time.Duration `mapstructure:"startup_timeout"`
}

type tlsConfig struct {
	Cert string `mapstructure:"cert"`
	Key  string `mapstructure:"key"`
}

type engineConfig struct {
	Host string     `mapstructure:"host"`
	TLS  *tlsConfig `mapstructure:"tls"`
}

type testConfig struct {
	ServiceConfig `mapstructure:",squash"`
	Postgres      fixtureConfig     `mapstructure:"postgres"`
	Docker        engineConfig      `mapstructure:"docker"`
	Labels        map[string]string `mapstructure:"labels"`
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestServiceConfigDefaults(t *testing.T) {
	cfg := ServiceConfig{Name: "scim-testenv"}
	cfg.ApplyDefaults()

	if cfg.Environment != "test" {
		t.Errorf("expected environment 'test', got %q", cfg.Environment)
	}
	if cfg.Logging.ServiceName != "scim-testenv" {
		t.Errorf("expected logging service name to follow Name, got %q", cfg.Logging.ServiceName)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected logging defaults applied, got level %q", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestServiceConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  ServiceConfig
	}{
		{"missing name", ServiceConfig{Environment: "test"}},
		{"unknown environment", ServiceConfig{Name: "svc", Environment: "production"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.Logging.ApplyDefaults()
			err := tc.cfg.Validate()
			if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
				t.Errorf("expected INVALID_INPUT, got %v", err)
			}
		})
	}
}

func TestLoadConfigFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", `
name: scim-testenv
postgres:
  image: postgres:17-alpine
  startup_timeout: 90s
`)

	var cfg testConfig
	if err := LoadConfig("testenv", &cfg, WithConfigFile(path), WithEnvFile(filepath.Join(dir, "missing.env"))); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "scim-testenv" {
		t.Errorf("expected name from yaml, got %q", cfg.Name)
	}
	if cfg.Postgres.Image != "postgres:17-alpine" {
		t.Errorf("expected image from yaml, got %q", cfg.Postgres.Image)
	}
	if cfg.Postgres.StartupTimeout != 90*time.Second {
		t.Errorf("expected 90s, got %v", cfg.Postgres.StartupTimeout)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", "postgres:\n  image: postgres:16\n")
	t.Setenv("POSTGRES_STARTUP_TIMEOUT", "3m")
	t.Setenv("POSTGRES_IMAGE", "postgres:17")

	var cfg testConfig
	if err := LoadConfig("testenv", &cfg, WithConfigFile(path), WithEnvFile(filepath.Join(dir, "missing.env"))); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Postgres.Image != "postgres:17" {
		t.Errorf("expected env to win, got %q", cfg.Postgres.Image)
	}
	if cfg.Postgres.StartupTimeout != 3*time.Minute {
		t.Errorf("expected 3m from env, got %v", cfg.Postgres.StartupTimeout)
	}
}

func TestLoadConfigOverridesWinLast(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", "postgres:\n  image: postgres:16\n")
	t.Setenv("POSTGRES_IMAGE", "postgres:17")

	var cfg testConfig
	err := LoadConfig("testenv", &cfg,
		WithConfigFile(path),
		WithEnvFile(filepath.Join(dir, "missing.env")),
		WithOverrides(map[string]string{"postgres.image": "postgres:18"}),
	)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Postgres.Image != "postgres:18" {
		t.Errorf("expected override to win, got %q", cfg.Postgres.Image)
	}
}

func TestLoadConfigExplicitMissingFile(t *testing.T) {
	var cfg testConfig
	err := LoadConfig("testenv", &cfg, WithConfigFile("/nonexistent/config.yml"))
	if err == nil {
		t.Fatal("expected error for explicit missing config file")
	}
}

func TestResolverSearchesCmdDirectory(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"../cmd/testenv/config.yml": true,
		"../../.env":                true,
	}}
	resolver := &Resolver{FileSystem: fs}
	files := resolver.ResolveFiles("testenv", LoaderConfig{})
	if files.ConfigFile != "../cmd/testenv/config.yml" {
		t.Errorf("unexpected config file %q", files.ConfigFile)
	}
	if files.EnvFile != "../../.env" {
		t.Errorf("unexpected env file %q", files.EnvFile)
	}
}

func TestResolverPrefersExplicitPaths(t *testing.T) {
	resolver := &Resolver{FileSystem: &mockFS{files: map[string]bool{"./config.yml": true}}}
	files := resolver.ResolveFiles("testenv", LoaderConfig{ConfigFile: "custom.yml", EnvFile: "custom.env"})
	if files.ConfigFile != "custom.yml" || files.EnvFile != "custom.env" {
		t.Errorf("explicit paths not kept: %+v", files)
	}
}

func TestLoadConfigIgnoresUndeclaredEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", "name: scim-testenv\n")
	t.Setenv("DOCKER_TLS_VERIFY", "1")
	t.Setenv("DOCKER_CERT_PATH", "/home/ci/.docker/machine/certs")
	t.Setenv("POSTGRES_EXTRA_SETTING", "x")

	var cfg testConfig
	if err := LoadConfig("testenv", &cfg, WithConfigFile(path), WithEnvFile(filepath.Join(dir, "missing.env"))); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Docker.TLS != nil {
		t.Errorf("expected no TLS section from undeclared variables, got %+v", cfg.Docker.TLS)
	}
}

func TestLoadConfigBindsNestedPointerKeys(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", "name: scim-testenv\n")
	t.Setenv("DOCKER_HOST", "tcp://10.0.0.5:2376")
	t.Setenv("DOCKER_TLS_CERT", "/certs/cert.pem")

	var cfg testConfig
	if err := LoadConfig("testenv", &cfg, WithConfigFile(path), WithEnvFile(filepath.Join(dir, "missing.env"))); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Docker.Host != "tcp://10.0.0.5:2376" {
		t.Errorf("expected host from DOCKER_HOST, got %q", cfg.Docker.Host)
	}
	if cfg.Docker.TLS == nil || cfg.Docker.TLS.Cert != "/certs/cert.pem" {
		t.Errorf("expected tls.cert from DOCKER_TLS_CERT, got %+v", cfg.Docker.TLS)
	}
}

func TestLoadBindsFileKeys(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", "grafana:\n  admin_user: admin\n")
	t.Setenv("GRAFANA_ADMIN_USER", "ci")

	v, err := Load("testenv", WithConfigFile(path), WithEnvFile(filepath.Join(dir, "missing.env")))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := v.GetString("grafana.admin_user"); got != "ci" {
		t.Errorf("expected env to override file key, got %q", got)
	}
	if slices.Contains(v.AllKeys(), "grafana.admin.user") {
		t.Error("expected no key derived from the variable name")
	}
}

func TestEnvKey(t *testing.T) {
	if got := EnvKey("postgres.startup_timeout"); got != "POSTGRES_STARTUP_TIMEOUT" {
		t.Errorf("unexpected env key %q", got)
	}
}

func TestStructKeys(t *testing.T) {
	keys := StructKeys(&testConfig{})
	for _, want := range []string{
		"name",
		"logging.level",
		"postgres.image",
		"postgres.startup_timeout",
		"docker.host",
		"docker.tls.cert",
		"docker.tls.key",
	} {
		if !slices.Contains(keys, want) {
			t.Errorf("missing key %q in %v", want, keys)
		}
	}
	for _, unwanted := range []string{"labels", "serviceconfig", "docker.tls"} {
		if slices.Contains(keys, unwanted) {
			t.Errorf("unexpected key %q", unwanted)
		}
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool { return m.files[path] }
func (m *mockFS) LoadEnv(string) error    { return nil }

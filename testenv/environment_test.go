package testenv

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/samzhu/scim/component"
	"github.com/samzhu/scim/config"
	"github.com/samzhu/scim/connection"
	"github.com/samzhu/scim/container"
	"github.com/samzhu/scim/errors"
	"github.com/samzhu/scim/logger"
	"github.com/samzhu/scim/observability"
	"github.com/samzhu/scim/workload"
)

type calls struct {
	mu   sync.Mutex
	list []string
}

func (c *calls) add(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.list = append(c.list, s)
}

func (c *calls) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.list...)
}

type fakeWorkloads struct {
	mu      sync.Mutex
	left    []workload.WorkloadInfo
	filters []workload.ListFilter
	closed  bool
}

func (f *fakeWorkloads) HealthCheck(context.Context) error { return nil }

func (f *fakeWorkloads) Status(_ context.Context, id string) (*workload.WorkloadStatus, error) {
	return &workload.WorkloadStatus{ID: id, Status: workload.StatusNotFound}, nil
}

func (f *fakeWorkloads) List(_ context.Context, filter workload.ListFilter) ([]workload.WorkloadInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	return f.left, nil
}

func (f *fakeWorkloads) Remove(context.Context, string) error { return nil }

func (f *fakeWorkloads) Close() error {
	f.closed = true
	return nil
}

type fakeRuntime struct {
	rec        *calls
	startErr   error
	wl         *fakeWorkloads
	mu         sync.Mutex
	running    bool
	stopCtxErr error
}

func (r *fakeRuntime) Name() string { return workload.ComponentName }

func (r *fakeRuntime) Start(context.Context) error {
	r.rec.add("start:runtime")
	if r.startErr != nil {
		return r.startErr
	}
	r.mu.Lock()
	r.running = true
	r.mu.Unlock()
	return nil
}

func (r *fakeRuntime) Stop(ctx context.Context) error {
	r.rec.add("stop:runtime")
	r.mu.Lock()
	r.stopCtxErr = ctx.Err()
	r.running = false
	r.mu.Unlock()
	return nil
}

func (r *fakeRuntime) Health(context.Context) component.Health {
	return component.Health{Name: r.Name(), Status: component.StatusHealthy}
}

func (r *fakeRuntime) Manager() workload.Manager {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return nil
	}
	return r.wl
}

type fakeSource struct {
	name       string
	rec        *calls
	details    connection.Details
	startErr   error
	started    bool
	cancel     context.CancelFunc
	stopCtxErr error
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) Start(ctx context.Context) error {
	s.rec.add("start:" + s.name)
	if s.cancel != nil {
		s.cancel()
		return ctx.Err()
	}
	if s.startErr != nil {
		return s.startErr
	}
	s.started = true
	return nil
}

func (s *fakeSource) Stop(ctx context.Context) error {
	s.rec.add("stop:" + s.name)
	s.stopCtxErr = ctx.Err()
	s.started = false
	return nil
}

func (s *fakeSource) Health(context.Context) component.Health {
	if !s.started {
		return component.Health{Name: s.name, Status: component.StatusUnhealthy, Message: "container not started"}
	}
	return component.Health{Name: s.name, Status: component.StatusHealthy}
}

func (s *fakeSource) ConnectionDetails(context.Context) (connection.Details, error) {
	if !s.started {
		return nil, errors.Configuration(s.name + " not started")
	}
	return s.details, nil
}

var (
	pgDetails = connection.DatabaseDetails{
		Host: "localhost", Port: 55432, Name: "test", Username: "test", Password: "test", SSLMode: "disable",
	}
	otlpDetails = connection.OTLPDetails{
		HTTPEndpoint: "localhost:54318",
		GRPCEndpoint: "localhost:54317",
		GrafanaURL:   "http://localhost:53000",
	}
)

type harness struct {
	env     *Environment
	rec     *calls
	runtime *fakeRuntime
	pg      *fakeSource
	otlp    *fakeSource
}

func newHarness(t *testing.T, mutate func(h *harness)) *harness {
	t.Helper()
	rec := &calls{}
	h := &harness{
		rec:     rec,
		runtime: &fakeRuntime{rec: rec, wl: &fakeWorkloads{}},
		pg:      &fakeSource{name: "postgres", rec: rec, details: pgDetails},
		otlp:    &fakeSource{name: "lgtm", rec: rec, details: otlpDetails},
	}
	if mutate != nil {
		mutate(h)
	}

	cfg := DefaultConfig()
	env, err := newEnvironment(cfg, "session-1", logger.Nop(), h.runtime, h.pg, h.otlp)
	if err != nil {
		t.Fatalf("newEnvironment failed: %v", err)
	}
	env.openRuntime = func(workload.Config, any, *logger.Logger) (workload.Manager, error) {
		return h.runtime.wl, nil
	}
	h.env = env
	return h
}

func TestStartBindsBothConnections(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.env.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	bindings := h.env.Connections()
	if len(bindings) != 2 {
		t.Fatalf("expected 2 bindings, got %d", len(bindings))
	}
	if bindings[0].Source != "postgres" || bindings[0].Details.Kind() != connection.KindDatabase {
		t.Errorf("unexpected first binding %+v", bindings[0])
	}
	if bindings[1].Source != "lgtm" || bindings[1].Details.Kind() != connection.KindOTLP {
		t.Errorf("unexpected second binding %+v", bindings[1])
	}

	props := h.env.Properties()
	if props[connection.PropDatabaseDSN] != pgDetails.DSN() {
		t.Errorf("database.dsn = %q", props[connection.PropDatabaseDSN])
	}
	if props[connection.PropObsEndpoint] != "localhost:54318" {
		t.Errorf("observability.endpoint = %q", props[connection.PropObsEndpoint])
	}
	if !slices.Contains(h.env.Environ(), "DATABASE_PORT=55432") {
		t.Errorf("DATABASE_PORT missing from %v", h.env.Environ())
	}
}

func TestStartIsOnce(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := h.env.Start(ctx); err != nil {
			t.Fatalf("Start #%d failed: %v", i, err)
		}
	}
	want := []string{"start:runtime", "start:postgres", "start:lgtm"}
	if got := h.rec.all(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

func TestStopTearsDownInReverse(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	if err := h.env.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := h.env.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	want := []string{
		"start:runtime", "start:postgres", "start:lgtm",
		"stop:lgtm", "stop:postgres", "stop:runtime",
	}
	if got := h.rec.all(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
	if h.env.Registry().Len() != 0 {
		t.Error("registry should be empty after Stop")
	}

	filters := h.runtime.wl.filters
	if len(filters) != 1 || filters[0].Labels[container.LabelSession] != "session-1" {
		t.Errorf("expected one session-scoped orphan check, got %+v", filters)
	}

	if err := h.env.Stop(ctx); err != nil {
		t.Errorf("second Stop should be a no-op, got %v", err)
	}
	if len(h.rec.all()) != len(want) {
		t.Error("second Stop should not touch components")
	}

	err := h.env.Start(ctx)
	if !errors.HasCode(err, errors.ErrCodeConfiguration) {
		t.Errorf("Start after Stop should be a configuration error, got %v", err)
	}
}

func TestStopReportsOrphans(t *testing.T) {
	h := newHarness(t, nil)
	h.runtime.wl.left = []workload.WorkloadInfo{{ID: "abc", Name: "postgres-abc", Image: "postgres:latest", Status: "exited"}}

	ctx := context.Background()
	if err := h.env.Start(ctx); err != nil {
		t.Fatal(err)
	}
	err := h.env.Stop(ctx)
	if !errors.HasCode(err, errors.ErrCodeTeardownIncomplete) {
		t.Fatalf("expected teardown error, got %v", err)
	}
	appErr, _ := errors.As(err)
	if got := appErr.Details["containers"].([]string); len(got) != 1 {
		t.Errorf("expected the orphan to be listed, got %v", got)
	}
}

func TestOrphansAfterStopOpensRuntime(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	if err := h.env.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := h.env.Stop(ctx); err != nil {
		t.Fatal(err)
	}

	left, err := h.env.Orphans(ctx)
	if err != nil {
		t.Fatalf("Orphans failed: %v", err)
	}
	if len(left) != 0 {
		t.Errorf("expected no orphans, got %v", left)
	}
	if !h.runtime.wl.closed {
		t.Error("temporary runtime client should be closed")
	}
}

func TestFixtureFailureRollsBack(t *testing.T) {
	h := newHarness(t, func(h *harness) {
		h.otlp.startErr = errors.ProvisioningFailed("lgtm", "grafana/otel-lgtm:latest", container.ReasonImageUnavailable)
	})
	ctx := context.Background()

	err := h.env.Start(ctx)
	if !errors.HasCode(err, errors.ErrCodeProvisioningFailed) {
		t.Fatalf("expected provisioning error, got %v", err)
	}

	want := []string{
		"start:runtime", "start:postgres", "start:lgtm",
		"stop:lgtm", "stop:postgres", "stop:runtime",
	}
	if got := h.rec.all(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
	if h.env.Registry().Len() != 0 {
		t.Error("no connection should stay bound")
	}
	if again := h.env.Start(ctx); again == nil {
		t.Error("second Start should return the first failure")
	}
	if err := h.env.Stop(ctx); err != nil {
		t.Errorf("Stop after failed Start should be a no-op, got %v", err)
	}
}

func TestCancelledStartStillTearsDown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := newHarness(t, func(h *harness) {
		h.otlp.cancel = cancel
	})

	err := h.env.Start(ctx)
	if !stderrors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}

	want := []string{
		"start:runtime", "start:postgres", "start:lgtm",
		"stop:lgtm", "stop:postgres", "stop:runtime",
	}
	if got := h.rec.all(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
	for name, stopErr := range map[string]error{
		"postgres": h.pg.stopCtxErr,
		"lgtm":     h.otlp.stopCtxErr,
		"runtime":  h.runtime.stopCtxErr,
	} {
		if stopErr != nil {
			t.Errorf("%s stopped with a dead context: %v", name, stopErr)
		}
	}
	if len(h.runtime.wl.filters) != 1 {
		t.Errorf("expected teardown verification after rollback, got %d listings", len(h.runtime.wl.filters))
	}
}

func TestStopWithCancelledContext(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.env.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := h.env.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if h.pg.stopCtxErr != nil || h.otlp.stopCtxErr != nil || h.runtime.stopCtxErr != nil {
		t.Error("teardown should not inherit the caller's cancellation")
	}
}

func TestRuntimeUnavailableStartsNothing(t *testing.T) {
	h := newHarness(t, func(h *harness) {
		h.runtime.startErr = errors.ProvisioningFailed(workload.ComponentName, "", container.ReasonRuntimeUnavailable)
	})

	err := h.env.Start(context.Background())
	if !errors.HasCode(err, errors.ErrCodeProvisioningFailed) {
		t.Fatalf("expected provisioning error, got %v", err)
	}
	for _, c := range h.rec.all() {
		if c == "start:postgres" || c == "start:lgtm" {
			t.Errorf("fixture started without a runtime: %v", h.rec.all())
		}
	}
}

func TestDuplicateKindIsConfigurationError(t *testing.T) {
	h := newHarness(t, func(h *harness) {
		h.otlp.details = pgDetails
	})

	err := h.env.Start(context.Background())
	if !errors.HasCode(err, errors.ErrCodeConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if h.pg.started || h.otlp.started {
		t.Error("fixtures should be stopped after a binding conflict")
	}
}

func TestHealth(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	if got := h.env.Health(ctx); got.Status != observability.HealthStatusDown {
		t.Errorf("expected down before start, got %s", got.Status)
	}
	if err := h.env.Start(ctx); err != nil {
		t.Fatal(err)
	}
	got := h.env.Health(ctx)
	if got.Status != observability.HealthStatusUp || len(got.Components) != 3 {
		t.Errorf("unexpected health %+v", got)
	}
}

func TestFailureReason(t *testing.T) {
	err := errors.ProvisioningFailed("postgres", "postgres:latest", container.ReasonNotReady)
	if got := failureReason(err); got != container.ReasonNotReady {
		t.Errorf("got %s", got)
	}
	if got := failureReason(stderrors.New("plain")); got != container.ReasonUnknown {
		t.Errorf("got %s", got)
	}
}

func TestNewDeclaresFixtures(t *testing.T) {
	env, err := New(DefaultConfig(), WithLogger(logger.Nop()), WithSession("fixed"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if env.Session() != "fixed" {
		t.Errorf("session = %s", env.Session())
	}
	if env.Postgres() == nil || env.LGTM() == nil {
		t.Fatal("expected both fixtures")
	}
	if env.Postgres().Session() != "fixed" || env.LGTM().Session() != "fixed" {
		t.Error("fixtures should carry the session")
	}
	if env.Postgres().Image() != "postgres:latest" || env.LGTM().Image() != "grafana/otel-lgtm:latest" {
		t.Errorf("unexpected images %s, %s", env.Postgres().Image(), env.LGTM().Image())
	}

	other, err := New(DefaultConfig(), WithLogger(logger.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	if other.Session() == "" || other.Session() == env.Session() {
		t.Errorf("expected a generated session, got %q", other.Session())
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Postgres.Image = "Not An Image"
	_, err := New(cfg, WithLogger(logger.Nop()))
	if !errors.HasCode(err, errors.ErrCodeConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "testenv.yml")
	content := `
name: scim-it
preflight: false
postgres:
  image: postgres:16-alpine
  database: scim
  startup_timeout: 90s
lgtm:
  image: grafana/otel-lgtm:0.8.1
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(
		config.WithConfigFile(path),
		config.WithOverrides(map[string]string{"verify_teardown": "false"}),
	)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "scim-it" || cfg.Preflight || cfg.VerifyTeardown {
		t.Errorf("unexpected top-level values %+v", cfg)
	}
	if cfg.Postgres.Image != "postgres:16-alpine" || cfg.Postgres.Database != "scim" {
		t.Errorf("unexpected postgres config %+v", cfg.Postgres)
	}
	if cfg.Postgres.StartupTimeout != 90*time.Second {
		t.Errorf("startup_timeout = %s", cfg.Postgres.StartupTimeout)
	}
	if cfg.Postgres.Username != "test" {
		t.Errorf("username default lost: %q", cfg.Postgres.Username)
	}
	if cfg.LGTM.StartupTimeout != container.DefaultStartupTimeout {
		t.Errorf("lgtm startup_timeout = %s", cfg.LGTM.StartupTimeout)
	}
}

func TestLoadConfigWithDockerMachineEnv(t *testing.T) {
	t.Setenv("DOCKER_TLS_VERIFY", "1")
	t.Setenv("DOCKER_CERT_PATH", filepath.Join(t.TempDir(), "certs"))

	cfg, err := LoadConfig(config.WithConfigFile(filepath.Join("..", "cmd", "testenv", "config.yml")))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Docker.TLS != nil {
		t.Errorf("standard Docker variables should not build a TLS section, got %+v", cfg.Docker.TLS)
	}
}

func TestCurrent(t *testing.T) {
	env, err := New(DefaultConfig(), WithLogger(logger.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	setCurrent(env)
	defer setCurrent(nil)

	if Current(t) != env {
		t.Error("Current should return the shared environment")
	}
}

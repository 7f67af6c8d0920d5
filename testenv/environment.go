package testenv

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samzhu/scim/component"
	"github.com/samzhu/scim/connection"
	"github.com/samzhu/scim/container"
	"github.com/samzhu/scim/container/lgtm"
	"github.com/samzhu/scim/container/postgres"
	"github.com/samzhu/scim/errors"
	"github.com/samzhu/scim/logger"
	"github.com/samzhu/scim/observability"
	"github.com/samzhu/scim/testutil"
	"github.com/samzhu/scim/version"
	"github.com/samzhu/scim/workload"
)

const (
	instrumentationName = "github.com/samzhu/scim/testenv"

	// verifyTimeout bounds the orphan listing after teardown.
	verifyTimeout = 30 * time.Second
)

// runtime is the container-engine client component.
type runtime interface {
	component.Component
	Manager() workload.Manager
}

type openRuntimeFunc func(workload.Config, any, *logger.Logger) (workload.Manager, error)

// Environment is one test context: a PostgreSQL database and an
// observability stack, started once and bound as service connections.
type Environment struct {
	cfg        Config
	runtimeCfg workload.Config
	session    string
	log        *logger.Logger

	runtime     runtime
	openRuntime openRuntimeFunc
	pg          *postgres.Fixture
	lgtm        *lgtm.Fixture
	sources     []source
	manager     *testutil.Manager
	registry    *connection.Registry

	mu          sync.Mutex
	startCalled bool
	startErr    error
	stopped     bool
}

// New declares the database and observability fixtures. Nothing is
// started until Start.
func New(cfg Config, opts ...Option) (*Environment, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Configuration(fmt.Sprintf("testenv: %s", err.Error())).WithCause(err)
	}

	o := buildOptions(opts)
	session := o.session
	if session == "" {
		session = uuid.NewString()
	}
	base := o.log
	if base == nil {
		base = logger.New(&cfg.Logging, cfg.Name)
	}
	base = base.WithFields(logger.Fields(logger.FieldSession, session))

	fixtureOpts := []container.Option{container.WithSession(session), container.WithLogger(base)}
	pg := postgres.NewFixture(cfg.Postgres, fixtureOpts...)
	otlp := lgtm.NewFixture(cfg.LGTM, fixtureOpts...)

	runtimeCfg := workload.Config{Provider: workload.ProviderDocker, Preflight: cfg.Preflight}
	rt := workload.NewComponent(runtimeCfg, &cfg.Docker, base)

	env, err := newEnvironment(cfg, session, base, rt, pg, otlp)
	if err != nil {
		return nil, err
	}
	env.runtimeCfg = runtimeCfg
	env.pg = pg
	env.lgtm = otlp
	return env, nil
}

func newEnvironment(cfg Config, session string, log *logger.Logger, rt runtime, sources ...source) (*Environment, error) {
	metrics, err := observability.NewLifecycleMetrics(observability.Meter(instrumentationName))
	if err != nil {
		return nil, fmt.Errorf("testenv: %w", err)
	}

	m := testutil.NewManager().WithLogger(log)
	for _, s := range sources {
		if err := m.Add(instrument(s, metrics)); err != nil {
			return nil, err
		}
	}

	return &Environment{
		cfg:         cfg,
		session:     session,
		log:         log.WithComponent("testenv"),
		runtime:     rt,
		openRuntime: workload.New,
		sources:     sources,
		manager:     m,
		registry:    connection.NewRegistry().WithLogger(log),
	}, nil
}

// Start connects to the container engine, starts the fixtures in
// declaration order and binds their connections. It runs once; later calls
// return the first result without touching the containers, and a stopped
// environment cannot be started again. On failure
// everything already started is torn down before the error is returned.
func (e *Environment) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return errors.Configuration("testenv: environment already stopped").WithDetail(logger.FieldSession, e.session)
	}
	if e.startCalled {
		return e.startErr
	}
	e.startCalled = true

	ctx, span := observability.StartSpan(ctx, "testenv.start", attribute.String(logger.FieldSession, e.session))
	begin := time.Now()
	err := e.start(ctx)
	observability.EndSpan(span, err)

	if err != nil {
		e.startErr = err
		e.log.Error("environment failed to start", logger.ErrorFields("start", err))
		return err
	}
	e.log.Info("environment ready", logger.DurationFields("start", time.Since(begin)))
	return nil
}

func (e *Environment) start(ctx context.Context) error {
	if err := e.runtime.Start(ctx); err != nil {
		return stderrors.Join(err, e.runtime.Stop(context.WithoutCancel(ctx)))
	}
	if err := e.manager.StartAll(ctx); err != nil {
		return stderrors.Join(err, e.teardown(ctx))
	}
	for _, s := range e.sources {
		if err := e.registry.Bind(ctx, s); err != nil {
			return stderrors.Join(err, e.teardown(ctx))
		}
	}
	return nil
}

// Stop removes the fixtures in reverse order and clears the connections.
// With VerifyTeardown set it fails when a container of the session is still
// present. Stop is idempotent and a no-op when Start failed, since a failed
// Start already tore everything down.
func (e *Environment) Stop(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.startCalled || e.stopped || e.startErr != nil {
		return nil
	}
	e.stopped = true

	begin := time.Now()
	if err := e.teardown(ctx); err != nil {
		e.log.Error("environment teardown incomplete", logger.ErrorFields("stop", err))
		return err
	}
	e.log.Info("environment stopped", logger.DurationFields("stop", time.Since(begin)))
	return nil
}

// teardown runs detached from ctx's cancellation: an interrupted start or
// an expired caller deadline still removes the containers.
func (e *Environment) teardown(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	e.registry.Reset()
	errs := []error{e.manager.StopAll(ctx)}
	if e.cfg.VerifyTeardown {
		errs = append(errs, e.verify(ctx))
	}
	errs = append(errs, e.runtime.Stop(ctx))
	return stderrors.Join(errs...)
}

func (e *Environment) verify(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, verifyTimeout)
	defer cancel()
	left, err := e.Orphans(ctx)
	if err != nil {
		return fmt.Errorf("verify teardown: %w", err)
	}
	if len(left) == 0 {
		return nil
	}
	names := make([]string, 0, len(left))
	for _, w := range left {
		names = append(names, fmt.Sprintf("%s (%s, %s)", w.Name, w.Image, w.Status))
	}
	return errors.TeardownIncomplete(e.session, names)
}

// Orphans lists containers carrying this environment's session label,
// stopped ones included. After a clean Stop the list is empty.
func (e *Environment) Orphans(ctx context.Context) ([]workload.WorkloadInfo, error) {
	filter := workload.ListFilter{Labels: container.SessionSelector(e.session)}
	if m := e.runtime.Manager(); m != nil {
		return m.List(ctx, filter)
	}

	m, err := e.openRuntime(e.runtimeCfg, &e.cfg.Docker, e.log)
	if err != nil {
		return nil, err
	}
	defer m.Close()
	return m.List(ctx, filter)
}

// Reset rewinds every resettable fixture to its state right after Start.
func (e *Environment) Reset(ctx context.Context) error {
	return e.manager.ResetAll(ctx)
}

// Properties returns the published connection properties.
func (e *Environment) Properties() map[string]string {
	return e.registry.Properties()
}

// Environ returns the published properties as KEY=value pairs.
func (e *Environment) Environ() []string {
	return e.registry.Environ()
}

// Apply overrides v with the published properties.
func (e *Environment) Apply(v *viper.Viper) {
	e.registry.Apply(v)
}

// Connections returns the bound service connections in start order.
func (e *Environment) Connections() []connection.Binding {
	return e.registry.Bindings()
}

// Registry exposes the service-connection registry.
func (e *Environment) Registry() *connection.Registry { return e.registry }

// Postgres returns the database fixture.
func (e *Environment) Postgres() *postgres.Fixture { return e.pg }

// LGTM returns the observability stack fixture.
func (e *Environment) LGTM() *lgtm.Fixture { return e.lgtm }

// Session returns the id every container of the environment is labelled with.
func (e *Environment) Session() string { return e.session }

// Config returns the configuration with defaults applied.
func (e *Environment) Config() Config { return e.cfg }

// Describe lists the runtime and fixtures that can describe themselves.
func (e *Environment) Describe() []component.Description {
	var out []component.Description
	if d, ok := e.runtime.(component.Describable); ok {
		out = append(out, d.Describe())
	}
	for _, s := range e.sources {
		if d, ok := s.(component.Describable); ok {
			out = append(out, d.Describe())
		}
	}
	return out
}

// Health reports the container engine and every fixture.
func (e *Environment) Health(ctx context.Context) observability.ServiceHealth {
	sh := observability.NewServiceHealth(e.cfg.Name, version.Get().Short())
	sh.AddComponent(observability.FromComponent(e.runtime.Health(ctx)))
	for _, h := range e.manager.HealthAll(ctx) {
		sh.AddComponent(observability.FromComponent(h))
	}
	return *sh
}

package container

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"

	"github.com/samzhu/scim/component"
	"github.com/samzhu/scim/errors"
	"github.com/samzhu/scim/logger"
)

// State is the lifecycle state of a Fixture.
type State string

const (
	StateCreated  State = "created"
	StateStarting State = "starting"
	StateStarted  State = "started"
	StateStopped  State = "stopped"
	StateFailed   State = "failed"
)

// terminateTimeout bounds cleanup of a container whose launch failed.
const terminateTimeout = 30 * time.Second

// LaunchFunc runs a container with the fixture's customizers appended to
// the module's own options. It returns a nil interface, not a typed nil,
// when no container was created.
type LaunchFunc func(ctx context.Context, customizers ...testcontainers.ContainerCustomizer) (testcontainers.Container, error)

// Fixture is the lifecycle shared by every container-backed fixture.
type Fixture struct {
	name string
	cfg  Config
	opts options
	log  *logger.Logger

	mu    sync.RWMutex
	state State
	ctr   testcontainers.Container
	id    string
}

// NewFixture creates a fixture in the created state. cfg must already have
// its defaults applied.
func NewFixture(name string, cfg Config, opts ...Option) *Fixture {
	o := buildOptions(opts)
	return &Fixture{
		name:  name,
		cfg:   cfg,
		opts:  o,
		log:   o.log.WithComponent(name),
		state: StateCreated,
	}
}

// Name returns the fixture name.
func (f *Fixture) Name() string { return f.name }

// Image returns the configured image reference.
func (f *Fixture) Image() string { return f.cfg.Image }

// Session returns the session id the container is labelled with.
func (f *Fixture) Session() string { return f.opts.session }

// Logger returns the fixture-scoped logger.
func (f *Fixture) Logger() *logger.Logger { return f.log }

// State returns the current lifecycle state.
func (f *Fixture) State() State {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state
}

// ContainerID returns the id of the launched container, empty before launch.
// It stays set after Stop so teardown can be verified.
func (f *Fixture) ContainerID() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.id
}

// Container returns the running container, nil unless started.
func (f *Fixture) Container() testcontainers.Container {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.state != StateStarted {
		return nil
	}
	return f.ctr
}

// Launch validates the configuration and runs the container, blocking until
// it is ready or the startup timeout expires. A fixture launches at most once.
func (f *Fixture) Launch(ctx context.Context, run LaunchFunc) error {
	f.mu.Lock()
	if f.state != StateCreated {
		state := f.state
		f.mu.Unlock()
		return errors.Configuration(fmt.Sprintf("%s fixture cannot start from state %s", f.name, state)).
			WithDetail("fixture", f.name)
	}
	f.state = StateStarting
	f.mu.Unlock()

	if err := f.cfg.Validate(); err != nil {
		f.setState(StateFailed)
		return errors.Configuration(fmt.Sprintf("%s fixture: %s", f.name, err.Error())).WithCause(err)
	}

	f.log.Info("starting container", logger.Fields(
		logger.FieldImage, f.cfg.Image,
		logger.FieldSession, f.opts.session,
	))
	startedAt := time.Now()

	launchCtx, cancel := context.WithTimeout(ctx, f.cfg.StartupTimeout)
	defer cancel()

	labels := Labels(f.name, f.opts.session, f.cfg.Labels)
	ctr, err := run(launchCtx, WithLabels(labels))
	if err != nil {
		f.setState(StateFailed)
		f.discard(ctr)
		provErr := ProvisioningError(f.name, f.cfg.Image, err)
		f.log.Error("container failed to start", logger.Fields(
			logger.FieldImage, f.cfg.Image,
			"reason", provErr.Details["reason"],
			logger.FieldError, err.Error(),
		))
		return provErr
	}

	f.mu.Lock()
	f.ctr = ctr
	f.id = ctr.GetContainerID()
	f.state = StateStarted
	f.mu.Unlock()

	f.log.Info("container ready", logger.Fields(
		logger.FieldContainerID, shortID(f.id),
		logger.FieldDuration, time.Since(startedAt).Milliseconds(),
	))
	return nil
}

// discard terminates a container left behind by a failed launch.
func (f *Fixture) discard(ctr testcontainers.Container) {
	if ctr == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), terminateTimeout)
	defer cancel()
	if err := ctr.Terminate(ctx); err != nil {
		f.log.Warn("failed to remove container after failed start", logger.ErrorFields("terminate", err))
	}
}

func (f *Fixture) setState(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

// Stop terminates and removes the container. Stopping a fixture that is not
// running is a no-op.
func (f *Fixture) Stop(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateStarted || f.ctr == nil {
		if f.state == StateCreated || f.state == StateFailed {
			f.state = StateStopped
		}
		return nil
	}

	if err := f.ctr.Terminate(ctx); err != nil {
		f.log.Error("failed to terminate container", logger.Fields(
			logger.FieldContainerID, shortID(f.id),
			logger.FieldError, err.Error(),
		))
		return fmt.Errorf("terminate %s container: %w", f.name, err)
	}
	f.ctr = nil
	f.state = StateStopped
	f.log.Info("container removed", logger.Fields(logger.FieldContainerID, shortID(f.id)))
	return nil
}

// Health reports healthy while the container runs and, when the image
// defines a health check, that check passes.
func (f *Fixture) Health(ctx context.Context) component.Health {
	f.mu.RLock()
	state, ctr := f.state, f.ctr
	f.mu.RUnlock()

	h := component.Health{Name: f.name, Status: component.StatusUnhealthy}
	if state != StateStarted || ctr == nil {
		h.Message = fmt.Sprintf("container %s", state)
		return h
	}

	st, err := ctr.State(ctx)
	if err != nil {
		h.Message = fmt.Sprintf("inspect failed: %v", err)
		return h
	}
	if !st.Running {
		h.Message = fmt.Sprintf("container %s", st.Status)
		return h
	}
	if st.Health != nil && st.Health.Status != "healthy" {
		h.Status = component.StatusDegraded
		h.Message = "health check " + string(st.Health.Status)
		return h
	}
	h.Status = component.StatusHealthy
	return h
}

// Endpoint returns host:port of an exposed container port.
func (f *Fixture) Endpoint(ctx context.Context, port nat.Port) (string, error) {
	ctr := f.Container()
	if ctr == nil {
		return "", f.NotStarted()
	}
	host, err := ctr.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve %s host: %w", f.name, err)
	}
	mapped, err := ctr.MappedPort(ctx, port)
	if err != nil {
		return "", fmt.Errorf("resolve %s port %s: %w", f.name, port, err)
	}
	return net.JoinHostPort(host, mapped.Port()), nil
}

// NotStarted returns the error for reading coordinates of a fixture that
// is not running.
func (f *Fixture) NotStarted() *errors.AppError {
	return errors.Configuration(fmt.Sprintf("%s fixture is not started", f.name)).
		WithDetail("fixture", f.name).
		WithDetail("state", string(f.State()))
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/samzhu/scim/component"
	apperrors "github.com/samzhu/scim/errors"
	"github.com/samzhu/scim/logger"
)

// Manager owns the components of one test context. Components start in
// registration order, at most once, and stop in reverse order.
type Manager struct {
	mu          sync.Mutex
	registry    *component.Registry
	log         *logger.Logger
	stopTimeout time.Duration
	startCalled bool
	startErr    error
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{
		registry:    component.NewRegistry().WithLogger(logger.Nop()),
		log:         logger.Nop(),
		stopTimeout: component.DefaultStopTimeout,
	}
}

// WithLogger sets the manager logger.
func (m *Manager) WithLogger(l *logger.Logger) *Manager {
	if l != nil {
		m.log = l.WithComponent("testutil")
		m.registry.WithLogger(m.log)
	}
	return m
}

// WithStopTimeout bounds each component's Stop.
func (m *Manager) WithStopTimeout(d time.Duration) *Manager {
	if d > 0 {
		m.stopTimeout = d
	}
	m.registry.WithStopTimeout(d)
	return m
}

// Add registers c. Names must be unique and components cannot be added
// once StartAll has run.
func (m *Manager) Add(c component.Component) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.startCalled {
		return apperrors.Configuration(fmt.Sprintf("cannot add component %s after start", c.Name()))
	}
	return m.registry.Register(c)
}

// Components returns the registered components in registration order.
func (m *Manager) Components() []component.Component {
	return m.registry.All()
}

// Get returns the component with the given name, or nil.
func (m *Manager) Get(name string) component.Component {
	return m.registry.Get(name)
}

// Started reports whether StartAll has completed successfully.
func (m *Manager) Started() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startCalled && m.startErr == nil
}

// StartAll starts every component in registration order. Only the first
// call does any work; later calls return the first call's result.
//
// When a component fails to start, it and the components already started
// are stopped before the error is returned. The rollback outlives ctx, so a
// cancelled start still removes what it created; each Stop is bounded by
// the stop timeout.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.startCalled {
		return m.startErr
	}
	m.startCalled = true

	err := m.registry.StartAll(ctx)
	if err == nil {
		return nil
	}

	m.log.Error("start failed, rolling back", logger.ErrorFields("start", err))
	rollbackCtx := context.WithoutCancel(ctx)
	errs := []error{err}
	var se *component.StartError
	if errors.As(err, &se) {
		if c := m.registry.Get(se.Component); c != nil {
			stopCtx, cancel := context.WithTimeout(rollbackCtx, m.stopTimeout)
			if stopErr := c.Stop(stopCtx); stopErr != nil {
				errs = append(errs, fmt.Errorf("failed to stop %s: %w", se.Component, stopErr))
			}
			cancel()
		}
	}
	errs = append(errs, m.registry.StopAll(rollbackCtx))

	m.startErr = errors.Join(errs...)
	return m.startErr
}

// StopAll stops started components in reverse order. It keeps going past
// failures and returns them joined. Calling it again is a no-op.
func (m *Manager) StopAll(ctx context.Context) error {
	return m.registry.StopAll(ctx)
}

// Cleanup stops everything with a background context. It fits t.Cleanup
// and defer.
func (m *Manager) Cleanup() error {
	return m.StopAll(context.Background())
}

// ResetAll resets every registered TestComponent; other components are
// skipped. It stops at the first failure.
func (m *Manager) ResetAll(ctx context.Context) error {
	for _, c := range m.registry.All() {
		tc, ok := c.(TestComponent)
		if !ok {
			continue
		}
		if err := tc.Reset(ctx); err != nil {
			return fmt.Errorf("failed to reset component %s: %w", c.Name(), err)
		}
	}
	return nil
}

// HealthAll reports the health of every registered component.
func (m *Manager) HealthAll(ctx context.Context) []component.Health {
	return m.registry.HealthAll(ctx)
}

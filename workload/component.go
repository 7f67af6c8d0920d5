package workload

import (
	"context"
	"fmt"
	"sync"

	"github.com/samzhu/scim/component"
	"github.com/samzhu/scim/container"
	"github.com/samzhu/scim/errors"
	"github.com/samzhu/scim/logger"
)

// ComponentName is the registry name of the runtime component.
const ComponentName = "runtime"

// Component connects to the container runtime as the first step of a test
// environment. With preflight enabled, Start fails fast with a
// runtime_unavailable provisioning error instead of letting the first
// fixture time out.
type Component struct {
	cfg         Config
	providerCfg any
	log         *logger.Logger
	newManager  func(Config, any, *logger.Logger) (Manager, error)

	mu      sync.RWMutex
	manager Manager
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates a runtime component.
func NewComponent(cfg Config, providerCfg any, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{
		cfg:         cfg,
		providerCfg: providerCfg,
		log:         log.WithComponent(ComponentName),
		newManager:  New,
	}
}

// Manager returns the underlying Manager, or nil if not started.
func (c *Component) Manager() Manager {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.manager
}

func (c *Component) Name() string { return ComponentName }

func (c *Component) Start(ctx context.Context) error {
	m, err := c.newManager(c.cfg, c.providerCfg, c.log)
	if err != nil {
		return errors.ProvisioningFailed(ComponentName, "", container.ReasonRuntimeUnavailable).WithCause(err)
	}
	if c.cfg.Preflight {
		if err := m.HealthCheck(ctx); err != nil {
			_ = m.Close()
			c.log.Error("container runtime unreachable", logger.ErrorFields("preflight", err))
			return errors.ProvisioningFailed(ComponentName, "", container.ReasonRuntimeUnavailable).WithCause(err)
		}
		c.log.Debug("container runtime reachable")
	}

	c.mu.Lock()
	c.manager = m
	c.mu.Unlock()
	return nil
}

func (c *Component) Stop(_ context.Context) error {
	c.mu.Lock()
	m := c.manager
	c.manager = nil
	c.mu.Unlock()
	if m == nil {
		return nil
	}
	return m.Close()
}

func (c *Component) Health(ctx context.Context) component.Health {
	m := c.Manager()
	if m == nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: "runtime client not initialized",
		}
	}
	if err := m.HealthCheck(ctx); err != nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: fmt.Sprintf("health check failed: %v", err),
		}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Container runtime",
		Type:    "runtime",
		Details: fmt.Sprintf("provider=%s", c.cfg.Provider),
	}
}

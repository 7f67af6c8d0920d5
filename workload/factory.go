package workload

import (
	"fmt"
	"sync"

	"github.com/samzhu/scim/logger"
)

// ManagerFactory creates a Manager from core config and provider-specific config.
type ManagerFactory func(cfg Config, providerCfg any, log *logger.Logger) (Manager, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]ManagerFactory)
)

// RegisterFactory registers a workload provider factory.
func RegisterFactory(name string, f ManagerFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// New creates a Manager for the configured provider.
func New(cfg Config, providerCfg any, log *logger.Logger) (Manager, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	factoriesMu.RLock()
	f, ok := factories[cfg.Provider]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("workload: provider %q is not registered", cfg.Provider)
	}

	l := log.WithComponent("workload")
	l.Debug("initializing workload manager", logger.Fields("provider", cfg.Provider))
	return f(cfg, providerCfg, l)
}

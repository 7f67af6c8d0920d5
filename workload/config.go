package workload

import (
	"github.com/samzhu/scim/validation"
)

// Config holds provider-agnostic runtime configuration.
type Config struct {
	Provider string `mapstructure:"provider" validate:"required,oneof=docker"`
	// Preflight pings the runtime before any container is started.
	Preflight bool `mapstructure:"preflight"`
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderDocker
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	return validation.Validate(c)
}

package container

import (
	"time"

	"github.com/samzhu/scim/validation"
)

// DefaultStartupTimeout bounds how long a container may take to become ready.
const DefaultStartupTimeout = 2 * time.Minute

// Config is the part of a fixture configuration every container shares.
// Fixture configs embed it with `mapstructure:",squash"`.
type Config struct {
	Image          string            `mapstructure:"image" validate:"required,image"`
	StartupTimeout time.Duration     `mapstructure:"startup_timeout" validate:"gt=0"`
	Labels         map[string]string `mapstructure:"labels"`
}

// ApplyDefaults fills the image and the startup timeout when unset.
func (c *Config) ApplyDefaults(image string) {
	if c.Image == "" {
		c.Image = image
	}
	if c.StartupTimeout == 0 {
		c.StartupTimeout = DefaultStartupTimeout
	}
}

// Validate checks the image reference and the timeout.
func (c *Config) Validate() error {
	return validation.Validate(c)
}

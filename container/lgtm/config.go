package lgtm

import (
	"github.com/samzhu/scim/container"
	"github.com/samzhu/scim/validation"
)

// DefaultImage is the observability stack image used when none is configured.
const DefaultImage = "grafana/otel-lgtm:latest"

// Config configures the observability stack fixture.
type Config struct {
	container.Config `mapstructure:",squash"`

	// AdminUser and AdminPassword override Grafana's admin login when both are set.
	AdminUser     string `mapstructure:"admin_user"`
	AdminPassword string `mapstructure:"admin_password" validate:"required_with=AdminUser"`
}

// ApplyDefaults sets the image and startup timeout.
func (c *Config) ApplyDefaults() {
	c.Config.ApplyDefaults(DefaultImage)
}

// Validate checks the container settings and the admin credentials.
func (c *Config) Validate() error {
	return validation.Validate(c)
}

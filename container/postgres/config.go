package postgres

import (
	"fmt"

	"github.com/samzhu/scim/container"
)

// DefaultImage is the PostgreSQL image used when none is configured.
const DefaultImage = "postgres:latest"

// Config configures the PostgreSQL fixture.
type Config struct {
	container.Config `mapstructure:",squash"`

	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`

	// DisableSnapshot skips the template snapshot taken after start.
	// Reset is unavailable when set.
	DisableSnapshot bool `mapstructure:"disable_snapshot"`
}

// ApplyDefaults sets the image and the test/test/test credentials.
func (c *Config) ApplyDefaults() {
	c.Config.ApplyDefaults(DefaultImage)
	if c.Database == "" {
		c.Database = "test"
	}
	if c.Username == "" {
		c.Username = "test"
	}
	if c.Password == "" {
		c.Password = "test"
	}
}

// Validate checks the container settings. Snapshots copy the database
// through a template, which PostgreSQL refuses for the maintenance database.
func (c *Config) Validate() error {
	if err := c.Config.Validate(); err != nil {
		return err
	}
	if !c.DisableSnapshot && c.Database == "postgres" {
		return fmt.Errorf("database %q cannot be snapshotted; pick another name or set disable_snapshot", c.Database)
	}
	return nil
}

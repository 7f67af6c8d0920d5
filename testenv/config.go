package testenv

import (
	"fmt"

	"github.com/samzhu/scim/config"
	"github.com/samzhu/scim/container/lgtm"
	"github.com/samzhu/scim/container/postgres"
	"github.com/samzhu/scim/workload/docker"
)

// ConfigName selects config.yml, testenv.yml and .env.testenv lookups.
const ConfigName = "testenv"

// Config declares the fixtures of a test environment.
type Config struct {
	config.ServiceConfig `mapstructure:",squash"`

	Postgres postgres.Config `mapstructure:"postgres"`
	LGTM     lgtm.Config     `mapstructure:"lgtm"`
	Docker   docker.Config   `mapstructure:"docker"`

	// Preflight pings the container engine before any image is pulled.
	Preflight bool `mapstructure:"preflight"`
	// VerifyTeardown lists containers still carrying the session label
	// after Stop and reports them as an error.
	VerifyTeardown bool `mapstructure:"verify_teardown"`
}

// DefaultConfig returns the configuration used when no file sets anything.
func DefaultConfig() Config {
	cfg := Config{
		ServiceConfig:  config.ServiceConfig{Name: "scim-testenv"},
		Preflight:      true,
		VerifyTeardown: true,
	}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills every nested config.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "scim-testenv"
	}
	c.ServiceConfig.ApplyDefaults()
	c.Postgres.ApplyDefaults()
	c.LGTM.ApplyDefaults()
	c.Docker.ApplyDefaults()
}

// Validate checks every nested config.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Postgres.Validate(); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	if err := c.LGTM.Validate(); err != nil {
		return fmt.Errorf("lgtm: %w", err)
	}
	return c.Docker.Validate()
}

// LoadConfig reads the environment configuration on top of DefaultConfig.
// Sources, lowest precedence first: config file, .env file, environment
// variables, overrides.
func LoadConfig(opts ...config.LoaderOption) (Config, error) {
	cfg := DefaultConfig()
	if err := config.LoadConfig(ConfigName, &cfg, opts...); err != nil {
		return Config{}, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

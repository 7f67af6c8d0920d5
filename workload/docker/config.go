package docker

import (
	"fmt"

	"github.com/samzhu/scim/validation"
)

// Config holds Docker-specific settings. An empty Host selects the engine
// the way testcontainers does, so the manager and the fixtures share it.
type Config struct {
	Host       string     `mapstructure:"host"`
	APIVersion string     `mapstructure:"api_version"`
	TLS        *TLSConfig `mapstructure:"tls"`
}

// TLSConfig holds Docker TLS settings.
type TLSConfig struct {
	CACert string `mapstructure:"ca_cert"`
	Cert   string `mapstructure:"cert" validate:"required"`
	Key    string `mapstructure:"key" validate:"required"`
}

// ApplyDefaults is a no-op kept for the config contract; the host is
// resolved when the client is created.
func (c *Config) ApplyDefaults() {}

// Validate checks the Docker configuration.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return fmt.Errorf("docker: %w", err)
	}
	return nil
}

package config

import (
	"fmt"

	"github.com/samzhu/scim/logger"
	"github.com/samzhu/scim/validation"
)

// ServiceConfig holds the fields every tool in this module shares.
// Embed it with `mapstructure:",squash"`:
//
//	type Config struct {
//	    config.ServiceConfig `mapstructure:",squash"`
//	    Postgres postgres.Config `mapstructure:"postgres"`
//	}
type ServiceConfig struct {
	Name        string        `mapstructure:"name" validate:"required"`
	Environment string        `mapstructure:"environment" validate:"oneof=test development ci"`
	Logging     logger.Config `mapstructure:"logging"`
}

// GetServiceConfig returns the embedded ServiceConfig.
func (c *ServiceConfig) GetServiceConfig() *ServiceConfig {
	return c
}

// ApplyDefaults fills empty fields. Embedding structs call it first.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "test"
	}
	if c.Logging.ServiceName == "" {
		c.Logging.ServiceName = c.Name
	}
	c.Logging.ApplyDefaults()
}

// Validate checks the shared fields.
func (c *ServiceConfig) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

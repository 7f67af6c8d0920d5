package observability

import (
	"time"

	"github.com/samzhu/scim/validation"
	"github.com/samzhu/scim/version"
)

// Config configures the OTLP exporters.
type Config struct {
	ServiceName    string `mapstructure:"service_name" validate:"required"`
	ServiceVersion string `mapstructure:"service_version"`
	Environment    string `mapstructure:"environment"`

	// Endpoint is the OTLP/HTTP receiver as host:port, e.g. "localhost:4318".
	Endpoint string `mapstructure:"endpoint" validate:"required,hostname_port"`
	Insecure bool   `mapstructure:"insecure"`

	SampleRate     float64       `mapstructure:"sample_rate" validate:"min=0,max=1"`
	MetricInterval time.Duration `mapstructure:"metric_interval"`

	DisableTraces  bool `mapstructure:"disable_traces"`
	DisableMetrics bool `mapstructure:"disable_metrics"`
	DisableLogs    bool `mapstructure:"disable_logs"`
}

// DefaultConfig returns defaults for a local collector.
func DefaultConfig(serviceName string) Config {
	cfg := Config{ServiceName: serviceName, Endpoint: "localhost:4318", Insecure: true}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.ServiceVersion == "" {
		c.ServiceVersion = version.Get().Short()
	}
	if c.Environment == "" {
		c.Environment = "test"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
	if c.MetricInterval == 0 {
		c.MetricInterval = 15 * time.Second
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.Validate(c)
}

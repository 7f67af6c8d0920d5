package lgtm

import (
	"context"
	"fmt"
	"sync"

	"github.com/testcontainers/testcontainers-go"
	grafanalgtm "github.com/testcontainers/testcontainers-go/modules/grafana-lgtm"

	"github.com/samzhu/scim/component"
	"github.com/samzhu/scim/connection"
	"github.com/samzhu/scim/container"
	"github.com/samzhu/scim/errors"
	"github.com/samzhu/scim/logger"
)

// Name is the component name of the fixture.
const Name = "lgtm"

type runFunc func(ctx context.Context, img string, opts ...testcontainers.ContainerCustomizer) (*grafanalgtm.GrafanaLGTMContainer, error)

// Fixture is an ephemeral grafana/otel-lgtm container: an OpenTelemetry
// collector in front of Loki, Tempo, Prometheus and Grafana.
type Fixture struct {
	*container.Fixture

	cfg Config
	run runFunc

	mu      sync.RWMutex
	details *connection.OTLPDetails
}

var (
	_ component.Component   = (*Fixture)(nil)
	_ component.Describable = (*Fixture)(nil)
	_ connection.Source     = (*Fixture)(nil)
)

// NewFixture creates an observability stack fixture. Defaults are applied to cfg.
func NewFixture(cfg Config, opts ...container.Option) *Fixture {
	cfg.ApplyDefaults()
	return &Fixture{
		Fixture: container.NewFixture(Name, cfg.Config, opts...),
		cfg:     cfg,
		run:     grafanalgtm.Run,
	}
}

// Start runs the container and waits for the collector and Grafana.
func (f *Fixture) Start(ctx context.Context) error {
	if err := f.cfg.Validate(); err != nil {
		return errors.Configuration(fmt.Sprintf("lgtm fixture: %s", err.Error())).WithCause(err)
	}

	var lgtm *grafanalgtm.GrafanaLGTMContainer
	err := f.Launch(ctx, func(ctx context.Context, customizers ...testcontainers.ContainerCustomizer) (testcontainers.Container, error) {
		var opts []testcontainers.ContainerCustomizer
		if f.cfg.AdminUser != "" {
			opts = append(opts, grafanalgtm.WithAdminCredentials(f.cfg.AdminUser, f.cfg.AdminPassword))
		}
		opts = append(opts, customizers...)

		c, err := f.run(ctx, f.cfg.Image, opts...)
		if c == nil {
			return nil, err
		}
		lgtm = c
		return c, err
	})
	if err != nil {
		return err
	}

	details, err := readDetails(ctx, lgtm)
	if err != nil {
		return container.ProvisioningError(Name, f.cfg.Image, err)
	}
	f.mu.Lock()
	f.details = &details
	f.mu.Unlock()

	f.Logger().Info("observability stack ready", logger.Fields(
		logger.FieldEndpoint, details.HTTPEndpoint,
		"grafana", details.GrafanaURL,
	))
	return nil
}

func readDetails(ctx context.Context, c *grafanalgtm.GrafanaLGTMContainer) (connection.OTLPDetails, error) {
	httpEndpoint, err := c.OtlpHttpEndpoint(ctx)
	if err != nil {
		return connection.OTLPDetails{}, fmt.Errorf("otlp http endpoint: %w", err)
	}
	grpcEndpoint, err := c.OtlpGrpcEndpoint(ctx)
	if err != nil {
		return connection.OTLPDetails{}, fmt.Errorf("otlp grpc endpoint: %w", err)
	}
	grafana, err := c.HttpEndpoint(ctx)
	if err != nil {
		return connection.OTLPDetails{}, fmt.Errorf("grafana endpoint: %w", err)
	}
	return connection.OTLPDetails{
		HTTPEndpoint: httpEndpoint,
		GRPCEndpoint: grpcEndpoint,
		GrafanaURL:   "http://" + grafana,
	}, nil
}

// Details returns the cached OTLP coordinates.
func (f *Fixture) Details(_ context.Context) (connection.OTLPDetails, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.details == nil || f.State() != container.StateStarted {
		return connection.OTLPDetails{}, f.NotStarted()
	}
	return *f.details, nil
}

// ConnectionDetails implements connection.Source.
func (f *Fixture) ConnectionDetails(ctx context.Context) (connection.Details, error) {
	d, err := f.Details(ctx)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Describe implements component.Describable.
func (f *Fixture) Describe() component.Description {
	desc := component.Description{Name: "Grafana LGTM", Type: "observability", Details: f.cfg.Image}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.details != nil {
		desc.Details = f.cfg.Image + " otlp=" + f.details.HTTPEndpoint + " grafana=" + f.details.GrafanaURL
	}
	return desc
}

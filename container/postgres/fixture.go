package postgres

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/samzhu/scim/component"
	"github.com/samzhu/scim/connection"
	"github.com/samzhu/scim/container"
	"github.com/samzhu/scim/errors"
	"github.com/samzhu/scim/logger"
	"github.com/samzhu/scim/testutil"
)

const (
	// Name is the component name of the fixture.
	Name = "postgres"

	port         nat.Port = "5432/tcp"
	baselineName          = "scim_baseline"
	pingTimeout           = 5 * time.Second
)

type runFunc func(ctx context.Context, img string, opts ...testcontainers.ContainerCustomizer) (*tcpostgres.PostgresContainer, error)

// Fixture is an ephemeral PostgreSQL container.
type Fixture struct {
	*container.Fixture

	cfg Config
	run runFunc

	mu        sync.RWMutex
	pg        *tcpostgres.PostgresContainer
	details   *connection.DatabaseDetails
	snapshots int
}

var (
	_ component.Component    = (*Fixture)(nil)
	_ component.Describable  = (*Fixture)(nil)
	_ connection.Source      = (*Fixture)(nil)
	_ testutil.TestComponent = (*Fixture)(nil)
)

// NewFixture creates a PostgreSQL fixture. Defaults are applied to cfg.
func NewFixture(cfg Config, opts ...container.Option) *Fixture {
	cfg.ApplyDefaults()
	return &Fixture{
		Fixture: container.NewFixture(Name, cfg.Config, opts...),
		cfg:     cfg,
		run:     tcpostgres.Run,
	}
}

// Start runs the container and waits until PostgreSQL accepts connections.
// Coordinates are read once here and cached.
func (f *Fixture) Start(ctx context.Context) error {
	if err := f.cfg.Validate(); err != nil {
		return errors.Configuration(fmt.Sprintf("postgres fixture: %s", err.Error())).WithCause(err)
	}

	err := f.Launch(ctx, func(ctx context.Context, customizers ...testcontainers.ContainerCustomizer) (testcontainers.Container, error) {
		opts := append([]testcontainers.ContainerCustomizer{
			tcpostgres.WithDatabase(f.cfg.Database),
			tcpostgres.WithUsername(f.cfg.Username),
			tcpostgres.WithPassword(f.cfg.Password),
			tcpostgres.BasicWaitStrategies(),
		}, customizers...)

		pg, err := f.run(ctx, f.cfg.Image, opts...)
		if pg == nil {
			return nil, err
		}
		f.mu.Lock()
		f.pg = pg
		f.mu.Unlock()
		return pg, err
	})
	if err != nil {
		f.mu.Lock()
		f.pg = nil
		f.mu.Unlock()
		return err
	}

	details, err := f.readDetails(ctx)
	if err != nil {
		return container.ProvisioningError(Name, f.cfg.Image, err)
	}
	f.mu.Lock()
	f.details = &details
	f.mu.Unlock()

	if !f.cfg.DisableSnapshot {
		if err := f.snapshot(ctx, baselineName); err != nil {
			return container.ProvisioningError(Name, f.cfg.Image, err)
		}
	}

	f.Logger().Info("database ready", logger.Fields(
		logger.FieldEndpoint, details.Address(),
		"database", details.Name,
	))
	return nil
}

func (f *Fixture) readDetails(ctx context.Context) (connection.DatabaseDetails, error) {
	endpoint, err := f.Endpoint(ctx, port)
	if err != nil {
		return connection.DatabaseDetails{}, err
	}
	host, p, err := splitHostPort(endpoint)
	if err != nil {
		return connection.DatabaseDetails{}, err
	}
	return connection.DatabaseDetails{
		Host:     host,
		Port:     p,
		Name:     f.cfg.Database,
		Username: f.cfg.Username,
		Password: f.cfg.Password,
		SSLMode:  "disable",
	}, nil
}

// Stop terminates and removes the container.
func (f *Fixture) Stop(ctx context.Context) error {
	if err := f.Fixture.Stop(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	f.pg = nil
	f.mu.Unlock()
	return nil
}

// Health combines the container state with a round trip over the
// PostgreSQL protocol.
func (f *Fixture) Health(ctx context.Context) component.Health {
	h := f.Fixture.Health(ctx)
	if h.Status != component.StatusHealthy {
		return h
	}

	d, err := f.Details(ctx)
	if err != nil {
		return component.Health{Name: Name, Status: component.StatusUnhealthy, Message: err.Error()}
	}
	if err := ping(ctx, d.DSN()); err != nil {
		return component.Health{Name: Name, Status: component.StatusUnhealthy, Message: fmt.Sprintf("ping failed: %v", err)}
	}
	return h
}

func ping(ctx context.Context, dsn string) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())
	return conn.Ping(ctx)
}

// Details returns the cached coordinates of the running database.
func (f *Fixture) Details(_ context.Context) (connection.DatabaseDetails, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.details == nil || f.State() != container.StateStarted {
		return connection.DatabaseDetails{}, f.NotStarted()
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
	desc := component.Description{Name: "PostgreSQL", Type: "database", Details: f.cfg.Image}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.details != nil {
		desc.Details = f.cfg.Image + " " + f.details.Address()
		desc.Port = f.details.Port
	}
	return desc
}

// Reset restores the database to the state captured right after start.
func (f *Fixture) Reset(ctx context.Context) error {
	if f.cfg.DisableSnapshot {
		return errors.Configuration("postgres fixture: reset needs snapshots, disable_snapshot is set")
	}
	return f.restore(ctx, baselineName)
}

// Snapshot captures the current database into a template and returns its name.
func (f *Fixture) Snapshot(ctx context.Context) (interface{}, error) {
	f.mu.Lock()
	f.snapshots++
	name := "scim_snapshot_" + strconv.Itoa(f.snapshots)
	f.mu.Unlock()

	if err := f.snapshot(ctx, name); err != nil {
		return nil, err
	}
	return name, nil
}

// Restore returns the database to a snapshot taken by Snapshot.
func (f *Fixture) Restore(ctx context.Context, snap interface{}) error {
	name, ok := snap.(string)
	if !ok || name == "" {
		return errors.Validation(fmt.Sprintf("postgres fixture: invalid snapshot %v", snap))
	}
	return f.restore(ctx, name)
}

func (f *Fixture) snapshot(ctx context.Context, name string) error {
	pg, err := f.container()
	if err != nil {
		return err
	}
	if err := pg.Snapshot(ctx, tcpostgres.WithSnapshotName(name)); err != nil {
		return fmt.Errorf("snapshot %s: %w", name, err)
	}
	f.Logger().Debug("snapshot taken", logger.Fields("snapshot", name))
	return nil
}

func (f *Fixture) restore(ctx context.Context, name string) error {
	pg, err := f.container()
	if err != nil {
		return err
	}
	if err := pg.Restore(ctx, tcpostgres.WithSnapshotName(name)); err != nil {
		return fmt.Errorf("restore %s: %w", name, err)
	}
	f.Logger().Debug("snapshot restored", logger.Fields("snapshot", name))
	return nil
}

func (f *Fixture) container() (*tcpostgres.PostgresContainer, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.pg == nil || f.State() != container.StateStarted {
		return nil, f.NotStarted()
	}
	return f.pg, nil
}

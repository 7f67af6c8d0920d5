package docker

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/testcontainers/testcontainers-go"

	"github.com/samzhu/scim/logger"
	"github.com/samzhu/scim/workload"
)

func init() {
	workload.RegisterFactory(workload.ProviderDocker, func(_ workload.Config, providerCfg any, log *logger.Logger) (workload.Manager, error) {
		c := &Config{}
		if providerCfg != nil {
			pc, ok := providerCfg.(*Config)
			if !ok {
				return nil, fmt.Errorf("docker: expected *docker.Config, got %T", providerCfg)
			}
			c = pc
		}
		c.ApplyDefaults()
		if err := c.Validate(); err != nil {
			return nil, err
		}
		return NewManager(c, log)
	})
}

// apiClient is the subset of the Docker Engine API the manager uses.
type apiClient interface {
	Ping(ctx context.Context) (types.Ping, error)
	ContainerInspect(ctx context.Context, id string) (container.InspectResponse, error)
	ContainerList(ctx context.Context, opts container.ListOptions) ([]container.Summary, error)
	ContainerRemove(ctx context.Context, id string, opts container.RemoveOptions) error
	Close() error
}

// Manager implements workload.Manager using the Docker Engine SDK.
type Manager struct {
	client apiClient
	log    *logger.Logger
}

var _ workload.Manager = (*Manager)(nil)

// resolveTimeout bounds engine discovery when no host is configured.
const resolveTimeout = 10 * time.Second

// newEngineClient connects to the engine testcontainers resolves: the
// tc.host and docker.host properties, DOCKER_HOST, the Docker context and
// the rootless or Desktop sockets, in that order. Containers launched by
// the fixtures live on that engine.
var newEngineClient = testcontainers.NewDockerClientWithOpts

func engineClient(ctx context.Context, opts ...client.Opt) (c apiClient, err error) {
	defer func() {
		// testcontainers panics when no engine can be found
		if r := recover(); r != nil {
			c, err = nil, fmt.Errorf("resolve engine: %v", r)
		}
	}()
	cli, err := newEngineClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return cli, nil
}

// NewManager creates a Docker workload manager. Without an explicit Host it
// talks to the same engine the fixtures use.
func NewManager(cfg *Config, log *logger.Logger) (*Manager, error) {
	var opts []client.Opt
	if cfg.APIVersion != "" {
		opts = append(opts, client.WithVersion(cfg.APIVersion))
	}
	if cfg.TLS != nil {
		opts = append(opts, client.WithTLSClientConfig(cfg.TLS.CACert, cfg.TLS.Cert, cfg.TLS.Key))
	}

	if cfg.Host == "" {
		ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
		defer cancel()
		cli, err := engineClient(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("docker: create client: %w", err)
		}
		return newManager(cli, log), nil
	}

	opts = append([]client.Opt{client.FromEnv, client.WithHost(cfg.Host)}, opts...)
	if cfg.APIVersion == "" {
		opts = append(opts, client.WithAPIVersionNegotiation())
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("docker: create client: %w", err)
	}
	return newManager(cli, log), nil
}

func newManager(c apiClient, log *logger.Logger) *Manager {
	return &Manager{client: c, log: log}
}

// HealthCheck verifies the Docker daemon answers.
func (m *Manager) HealthCheck(ctx context.Context) error {
	if _, err := m.client.Ping(ctx); err != nil {
		return fmt.Errorf("docker: health check failed: %w", err)
	}
	return nil
}

// Remove force-removes a container and its anonymous volumes.
func (m *Manager) Remove(ctx context.Context, id string) error {
	err := m.client.ContainerRemove(ctx, id, container.RemoveOptions{
		RemoveVolumes: true,
		Force:         true,
	})
	if err != nil {
		if client.IsErrNotFound(err) {
			return nil
		}
		return fmt.Errorf("docker: remove container %s: %w", shortID(id), err)
	}
	m.log.Info("container removed", logger.Fields(logger.FieldContainerID, shortID(id)))
	return nil
}

// Status returns the current status of a Docker container.
func (m *Manager) Status(ctx context.Context, id string) (*workload.WorkloadStatus, error) {
	info, err := m.client.ContainerInspect(ctx, id)
	if err != nil {
		if client.IsErrNotFound(err) {
			return &workload.WorkloadStatus{ID: id, Status: workload.StatusNotFound}, nil
		}
		return nil, fmt.Errorf("docker: inspect container: %w", err)
	}

	ws := &workload.WorkloadStatus{
		ID:   info.ID,
		Name: strings.TrimPrefix(info.Name, "/"),
	}
	if info.Config != nil {
		ws.Image = info.Config.Image
	}
	if info.State == nil {
		ws.Status = workload.StatusCreated
		return ws, nil
	}

	ws.Running = info.State.Running
	ws.Healthy = info.State.Running
	if info.State.Health != nil {
		ws.Healthy = info.State.Health.Status == "healthy"
	}

	switch {
	case info.State.Running:
		ws.Status = workload.StatusRunning
	case info.State.Restarting:
		ws.Status = workload.StatusRestarting
	case info.State.ExitCode != 0:
		ws.Status = workload.StatusError
	default:
		ws.Status = workload.StatusStopped
	}
	ws.ExitCode = info.State.ExitCode
	ws.Message = string(info.State.Status)
	ws.StartedAt = parseTime(info.State.StartedAt)
	ws.StoppedAt = parseTime(info.State.FinishedAt)
	return ws, nil
}

// List returns containers, stopped ones included, matching the filter.
func (m *Manager) List(ctx context.Context, filter workload.ListFilter) ([]workload.WorkloadInfo, error) {
	containers, err := m.client.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: listArgs(filter),
	})
	if err != nil {
		return nil, fmt.Errorf("docker: list containers: %w", err)
	}

	infos := make([]workload.WorkloadInfo, len(containers))
	for i, c := range containers {
		name := ""
		if len(c.Names) > 0 {
			name = strings.TrimPrefix(c.Names[0], "/")
		}
		infos[i] = workload.WorkloadInfo{
			ID:      c.ID,
			Name:    name,
			Image:   c.Image,
			Status:  string(c.State),
			Ports:   formatPorts(c.Ports),
			Labels:  c.Labels,
			Created: time.Unix(c.Created, 0),
		}
	}
	return infos, nil
}

// Close releases the Docker client.
func (m *Manager) Close() error {
	return m.client.Close()
}

func listArgs(filter workload.ListFilter) filters.Args {
	f := filters.NewArgs()
	for k, v := range filter.Labels {
		f.Add("label", k+"="+v)
	}
	if filter.Name != "" {
		f.Add("name", filter.Name)
	}
	if filter.Status != "" {
		f.Add("status", filter.Status)
	}
	return f
}

// formatPorts renders published ports as host:port->private/proto.
func formatPorts(ports []container.Port) []string {
	out := make([]string, 0, len(ports))
	for _, p := range ports {
		if p.PublicPort == 0 {
			continue
		}
		host := p.IP
		if host == "" {
			host = "0.0.0.0"
		}
		out = append(out, fmt.Sprintf("%s->%d/%s",
			net.JoinHostPort(host, strconv.Itoa(int(p.PublicPort))), p.PrivatePort, p.Type))
	}
	return out
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

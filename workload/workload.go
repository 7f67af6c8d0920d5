package workload

import (
	"context"
	"time"
)

// Manager inspects workloads on a container runtime.
type Manager interface {
	// HealthCheck verifies the runtime is reachable.
	HealthCheck(ctx context.Context) error

	// Status returns the current status of a workload. A missing workload is
	// reported with StatusNotFound rather than an error.
	Status(ctx context.Context, id string) (*WorkloadStatus, error)

	// List returns workloads matching the filter, stopped ones included.
	List(ctx context.Context, filter ListFilter) ([]WorkloadInfo, error)

	// Remove force-removes a workload and its anonymous volumes.
	Remove(ctx context.Context, id string) error

	// Close releases the runtime client.
	Close() error
}

// Status constants for workload state.
const (
	StatusCreated    = "created"
	StatusRunning    = "running"
	StatusStopped    = "stopped"
	StatusError      = "error"
	StatusRestarting = "restarting"
	StatusNotFound   = "not_found"
)

// ProviderDocker is the Docker Engine backend.
const ProviderDocker = "docker"

// WorkloadStatus represents the current state of a workload.
type WorkloadStatus struct {
	ID        string
	Name      string
	Image     string
	Status    string
	Running   bool
	Healthy   bool
	StartedAt time.Time
	StoppedAt time.Time
	ExitCode  int
	Message   string
}

// WorkloadInfo summarizes a workload in List results.
type WorkloadInfo struct {
	ID      string
	Name    string
	Image   string
	Status  string
	Ports   []string
	Labels  map[string]string
	Created time.Time
}

// ListFilter selects workloads in List.
type ListFilter struct {
	Labels map[string]string // match all
	Name   string
	Status string
}

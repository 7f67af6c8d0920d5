package component

import "context"

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDegraded  HealthStatus = "degraded"
)

// Health holds health information for a component.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component represents a lifecycle-managed piece of test infrastructure.
type Component interface {
	// Name returns the unique name of the component for registration.
	Name() string

	// Start brings the component up. It blocks until the component is ready.
	Start(ctx context.Context) error

	// Stop shuts the component down and releases its resources.
	Stop(ctx context.Context) error

	// Health returns the current health status of the component.
	Health(ctx context.Context) Health
}

// Description holds summary information for startup logs and the CLI.
type Description struct {
	// Name is the human-readable display name (e.g. "PostgreSQL").
	// If empty, the component's Name() is used.
	Name string
	// Type categorizes the component: "database", "observability", ...
	Type string
	// Details is a one-liner such as "postgres:latest localhost:55012".
	Details string
	// Port is the primary published port, 0 if not applicable.
	Port int
}

// Describable is optionally implemented by Components that can describe
// themselves once started.
type Describable interface {
	Describe() Description
}

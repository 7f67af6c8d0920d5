package container

import (
	"maps"

	"github.com/testcontainers/testcontainers-go"
)

// Labels put on every container a fixture launches.
const (
	LabelManagedBy = "managed-by"
	LabelSession   = "scim.testenv.session"
	LabelFixture   = "scim.testenv.fixture"

	// ManagedByValue marks containers owned by this module.
	ManagedByValue = "scim-testenv"
)

// Labels returns the labels for a fixture container. Extra labels cannot
// override the managed-by, session or fixture labels.
func Labels(fixture, session string, extra map[string]string) map[string]string {
	labels := make(map[string]string, len(extra)+3)
	maps.Copy(labels, extra)
	labels[LabelManagedBy] = ManagedByValue
	labels[LabelFixture] = fixture
	if session != "" {
		labels[LabelSession] = session
	}
	return labels
}

// WithLabels adds labels to the container request.
func WithLabels(labels map[string]string) testcontainers.CustomizeRequestOption {
	return func(req *testcontainers.GenericContainerRequest) error {
		if req.Labels == nil {
			req.Labels = make(map[string]string, len(labels))
		}
		maps.Copy(req.Labels, labels)
		return nil
	}
}

// SessionSelector returns the label selector for the managed containers of
// one session, or of every session when session is empty.
func SessionSelector(session string) map[string]string {
	sel := map[string]string{LabelManagedBy: ManagedByValue}
	if session != "" {
		sel[LabelSession] = session
	}
	return sel
}

package testutil

import (
	"context"

	"github.com/samzhu/scim/component"
)

// TestComponent is a component whose state can be rewound between tests.
type TestComponent interface {
	component.Component

	// Reset returns the component to the state it had right after Start.
	Reset(ctx context.Context) error

	// Snapshot captures the current state. The value is opaque and only
	// meaningful to Restore on the same component.
	Snapshot(ctx context.Context) (interface{}, error)

	// Restore rewinds to a value returned by Snapshot.
	Restore(ctx context.Context, snapshot interface{}) error
}

package testenv

import (
	"context"
	"time"

	"github.com/samzhu/scim/component"
	"github.com/samzhu/scim/connection"
	"github.com/samzhu/scim/container"
	"github.com/samzhu/scim/errors"
	"github.com/samzhu/scim/observability"
	"github.com/samzhu/scim/testutil"
)

// source is a fixture that publishes connection details once started.
type source interface {
	component.Component
	connection.Source
}

// instrumented records lifecycle metrics around a fixture.
type instrumented struct {
	source
	metrics *observability.LifecycleMetrics
	running bool
}

func (i *instrumented) Start(ctx context.Context) error {
	begin := time.Now()
	if err := i.source.Start(ctx); err != nil {
		i.metrics.RecordFailure(ctx, i.Name(), failureReason(err))
		return err
	}
	i.metrics.RecordStart(ctx, i.Name(), time.Since(begin))
	i.running = true
	return nil
}

func (i *instrumented) Stop(ctx context.Context) error {
	err := i.source.Stop(ctx)
	if i.running && err == nil {
		i.metrics.RecordStop(ctx, i.Name())
		i.running = false
	}
	return err
}

// failureReason reads the classification attached to a provisioning error.
func failureReason(err error) string {
	if appErr, ok := errors.As(err); ok {
		if reason, ok := appErr.Details["reason"].(string); ok {
			return reason
		}
	}
	return container.ReasonUnknown
}

// rewindable keeps Reset, Snapshot and Restore reachable through the
// metrics wrapper.
type rewindable struct {
	*instrumented
	tc testutil.TestComponent
}

func (r *rewindable) Reset(ctx context.Context) error { return r.tc.Reset(ctx) }

func (r *rewindable) Snapshot(ctx context.Context) (interface{}, error) {
	return r.tc.Snapshot(ctx)
}

func (r *rewindable) Restore(ctx context.Context, snap interface{}) error {
	return r.tc.Restore(ctx, snap)
}

func instrument(s source, metrics *observability.LifecycleMetrics) component.Component {
	i := &instrumented{source: s, metrics: metrics}
	if tc, ok := s.(testutil.TestComponent); ok {
		return &rewindable{instrumented: i, tc: tc}
	}
	return i
}

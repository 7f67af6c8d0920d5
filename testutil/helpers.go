package testutil

import (
	"context"
	"testing"

	"github.com/samzhu/scim/component"
)

// CleanupFunc stops whatever Setup started.
type CleanupFunc func() error

// Setup starts c and returns a function that stops it. Stopping does not
// depend on ctx still being live and is bounded by the default stop timeout.
//
//	cleanup, err := testutil.Setup(ctx, fixture)
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer cleanup()
func Setup(ctx context.Context, c component.Component) (CleanupFunc, error) {
	stop := func() error {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), component.DefaultStopTimeout)
		defer cancel()
		return c.Stop(stopCtx)
	}
	if err := c.Start(ctx); err != nil {
		// a failed start may still have created resources
		_ = stop()
		return nil, err
	}
	return stop, nil
}

// Teardown stops c.
func Teardown(ctx context.Context, c component.Component) error {
	return c.Stop(ctx)
}

// THelper binds component lifecycles to a test.
type THelper struct {
	tb  testing.TB
	ctx context.Context
}

// T wraps tb. Components started through the helper are stopped by
// tb.Cleanup.
func T(tb testing.TB) *THelper {
	return &THelper{tb: tb, ctx: context.Background()}
}

// WithContext sets the context passed to the component.
func (h *THelper) WithContext(ctx context.Context) *THelper {
	h.ctx = ctx
	return h
}

// Setup starts c or fails the test, and registers its Stop with Cleanup.
func (h *THelper) Setup(c component.Component) {
	h.tb.Helper()
	cleanup, err := Setup(h.ctx, c)
	if err != nil {
		h.tb.Fatalf("failed to start component %s: %v", c.Name(), err)
	}
	h.tb.Cleanup(func() {
		if err := cleanup(); err != nil {
			h.tb.Errorf("failed to stop component %s: %v", c.Name(), err)
		}
	})
}

// Reset resets c or fails the test.
func (h *THelper) Reset(c TestComponent) {
	h.tb.Helper()
	if err := c.Reset(h.ctx); err != nil {
		h.tb.Fatalf("failed to reset component %s: %v", c.Name(), err)
	}
}

// Snapshot captures c's state or fails the test.
func (h *THelper) Snapshot(c TestComponent) interface{} {
	h.tb.Helper()
	snap, err := c.Snapshot(h.ctx)
	if err != nil {
		h.tb.Fatalf("failed to snapshot component %s: %v", c.Name(), err)
	}
	return snap
}

// Restore rewinds c to snap or fails the test.
func (h *THelper) Restore(c TestComponent, snap interface{}) {
	h.tb.Helper()
	if err := c.Restore(h.ctx, snap); err != nil {
		h.tb.Fatalf("failed to restore component %s: %v", c.Name(), err)
	}
}

package testutil_test

import (
	"context"
	"errors"
	"testing"

	"github.com/samzhu/scim/testutil"
)

func TestSetupAndCleanup(t *testing.T) {
	comp := newMockComponent("postgres", nil)

	cleanup, err := testutil.Setup(context.Background(), comp)
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if !comp.started {
		t.Error("component should be started")
	}
	if err := cleanup(); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if !comp.stopped {
		t.Error("component should be stopped")
	}
}

func TestSetupFailureStopsComponent(t *testing.T) {
	rec := &recorder{}
	comp := newMockComponent("postgres", rec)
	comp.startErr = errors.New("no docker")

	cleanup, err := testutil.Setup(context.Background(), comp)
	if err == nil || cleanup != nil {
		t.Fatal("expected error and no cleanup")
	}
	calls := rec.list()
	if len(calls) != 2 || calls[1] != "stop:postgres" {
		t.Errorf("expected start then stop, got %v", calls)
	}
}

func TestSetupCleanupOutlivesContext(t *testing.T) {
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	comp := &ctxComponent{name: "postgres", rec: rec}

	cleanup, err := testutil.Setup(ctx, comp)
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	cancel()
	if err := cleanup(); err != nil {
		t.Errorf("cleanup should run on a live, bounded context: %v", err)
	}
}

func TestTeardown(t *testing.T) {
	comp := newMockComponent("postgres", nil)
	if err := testutil.Teardown(context.Background(), comp); err != nil {
		t.Fatal(err)
	}
	if !comp.stopped {
		t.Error("component should be stopped")
	}
}

func TestTHelperSetupRegistersCleanup(t *testing.T) {
	comp := newMockComponent("postgres", nil)

	t.Run("inner", func(t *testing.T) {
		testutil.T(t).Setup(comp)
		if !comp.started {
			t.Error("component should be started inside the test")
		}
	})

	if !comp.stopped {
		t.Error("component should be stopped after the subtest ends")
	}
}

func TestTHelperSnapshotRestore(t *testing.T) {
	comp := newMockComponent("postgres", nil)
	h := testutil.T(t).WithContext(context.Background())
	h.Setup(comp)

	snap := h.Snapshot(comp)
	comp.state = "dirty"
	h.Restore(comp, snap)
	if comp.state != "initial" {
		t.Errorf("state = %s, want initial", comp.state)
	}

	comp.state = "dirty"
	h.Reset(comp)
	if comp.state != "initial" || comp.resets != 1 {
		t.Errorf("Reset did not rewind: state=%s resets=%d", comp.state, comp.resets)
	}
}

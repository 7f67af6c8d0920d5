package testutil_test

import (
	"context"
	"errors"
	"sync"

	"github.com/samzhu/scim/component"
	"github.com/samzhu/scim/testutil"
)

// recorder collects lifecycle calls across components.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// mockComponent implements testutil.TestComponent.
type mockComponent struct {
	name     string
	rec      *recorder
	started  bool
	stopped  bool
	resets   int
	state    string
	startErr error
	stopErr  error
	resetErr error
}

var _ testutil.TestComponent = (*mockComponent)(nil)

func newMockComponent(name string, rec *recorder) *mockComponent {
	if rec == nil {
		rec = &recorder{}
	}
	return &mockComponent{name: name, rec: rec, state: "initial"}
}

func (m *mockComponent) Name() string { return m.name }

func (m *mockComponent) Start(context.Context) error {
	m.rec.add("start:" + m.name)
	if m.startErr != nil {
		return m.startErr
	}
	m.started = true
	return nil
}

func (m *mockComponent) Stop(context.Context) error {
	m.rec.add("stop:" + m.name)
	if m.stopErr != nil {
		return m.stopErr
	}
	m.stopped = true
	m.started = false
	return nil
}

func (m *mockComponent) Health(context.Context) component.Health {
	if !m.started {
		return component.Health{Name: m.name, Status: component.StatusUnhealthy, Message: "not started"}
	}
	return component.Health{Name: m.name, Status: component.StatusHealthy}
}

func (m *mockComponent) Reset(context.Context) error {
	if m.resetErr != nil {
		return m.resetErr
	}
	m.resets++
	m.state = "initial"
	return nil
}

func (m *mockComponent) Snapshot(context.Context) (interface{}, error) {
	return m.state, nil
}

func (m *mockComponent) Restore(_ context.Context, snap interface{}) error {
	s, ok := snap.(string)
	if !ok {
		return errors.New("unexpected snapshot type")
	}
	m.state = s
	return nil
}

// plainComponent implements only component.Component.
type plainComponent struct {
	name string
}

func (p *plainComponent) Name() string                { return p.name }
func (p *plainComponent) Start(context.Context) error { return nil }
func (p *plainComponent) Stop(context.Context) error  { return nil }
func (p *plainComponent) Health(context.Context) component.Health {
	return component.Health{Name: p.name, Status: component.StatusHealthy}
}

// ctxComponent records whether the context passed to Stop was still live.
// With cancel set, Start cancels the caller's context and fails.
type ctxComponent struct {
	name    string
	rec     *recorder
	cancel  context.CancelFunc
	stopErr error
}

func (c *ctxComponent) Name() string { return c.name }

func (c *ctxComponent) Start(ctx context.Context) error {
	c.rec.add("start:" + c.name)
	if c.cancel != nil {
		c.cancel()
		return ctx.Err()
	}
	return nil
}

func (c *ctxComponent) Stop(ctx context.Context) error {
	c.rec.add("stop:" + c.name)
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("stop without deadline")
	}
	return ctx.Err()
}

func (c *ctxComponent) Health(context.Context) component.Health {
	return component.Health{Name: c.name, Status: component.StatusHealthy}
}

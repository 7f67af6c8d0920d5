package connection

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/samzhu/scim/errors"
	"github.com/samzhu/scim/logger"
)

// Source is a started fixture that can report its connection details.
type Source interface {
	Name() string
	ConnectionDetails(ctx context.Context) (Details, error)
}

// Binding ties one set of details to the fixture that published them.
type Binding struct {
	Source  string
	Details Details
}

// Registry holds at most one binding per Kind. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	bindings map[Kind]Binding
	order    []Kind
	log      *logger.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		bindings: make(map[Kind]Binding),
		log:      logger.WithComponent("connection"),
	}
}

// WithLogger replaces the registry logger.
func (r *Registry) WithLogger(l *logger.Logger) *Registry {
	r.log = l.WithComponent("connection")
	return r
}

// Register binds details published by source. A second binding for the same
// kind is a configuration error and the first binding is kept.
func (r *Registry) Register(source string, d Details) error {
	if d == nil {
		return errors.Configuration(fmt.Sprintf("connection details from %q are nil", source))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	kind := d.Kind()
	if existing, ok := r.bindings[kind]; ok {
		return errors.Configuration(fmt.Sprintf("%s connection already bound to %q", kind, existing.Source)).
			WithDetail("kind", string(kind)).
			WithDetail("source", source).
			WithDetail("bound_to", existing.Source)
	}
	r.bindings[kind] = Binding{Source: source, Details: d}
	r.order = append(r.order, kind)

	r.log.Info("connection bound", logger.Fields(logger.FieldKind, string(kind), logger.FieldFixture, source))
	return nil
}

// Bind reads the details of a started source and registers them.
func (r *Registry) Bind(ctx context.Context, src Source) error {
	d, err := src.ConnectionDetails(ctx)
	if err != nil {
		return fmt.Errorf("read connection details of %s: %w", src.Name(), err)
	}
	return r.Register(src.Name(), d)
}

// Get returns the binding for kind.
func (r *Registry) Get(kind Kind) (Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bindings[kind]
	return b, ok
}

// Bindings returns all bindings in registration order.
func (r *Registry) Bindings() []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Binding, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.bindings[k])
	}
	return out
}

// Properties merges the properties of every binding.
func (r *Registry) Properties() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	props := make(map[string]string)
	for _, k := range r.order {
		maps.Copy(props, r.bindings[k].Details.Properties())
	}
	return props
}

// Environ returns the properties as sorted KEY=value pairs, the form
// exec.Cmd.Env and os.Setenv expect. database.dsn becomes DATABASE_DSN.
func (r *Registry) Environ() []string {
	props := r.Properties()
	env := make([]string, 0, len(props))
	for _, k := range slices.Sorted(maps.Keys(props)) {
		env = append(env, EnvKey(k)+"="+props[k])
	}
	return env
}

// Apply sets every property on v, overriding file and env values.
func (r *Registry) Apply(v *viper.Viper) {
	for k, val := range r.Properties() {
		v.Set(k, val)
	}
}

// Reset drops every binding.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.bindings)
	r.order = nil
}

// Len returns the number of bindings.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// EnvKey converts a dotted property key to its environment variable name.
func EnvKey(key string) string {
	return strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

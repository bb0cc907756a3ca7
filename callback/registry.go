package callback

import (
	"errors"
	"fmt"
	"sync"

	restpf "github.com/guxiaodai/restpf"
	"github.com/guxiaodai/restpf/scheduler"
)

var (
	ErrDuplicateCallback = errors.New("callback already registered")
	ErrDuplicateName     = errors.New("callback name already registered")
	ErrNilHandler        = errors.New("nil callback handler")
)

type entryKey struct {
	node   *restpf.Node
	method restpf.Method
}

// Registry maps (schema node, method) pairs of one collection to callbacks.
type Registry struct {
	mu sync.RWMutex

	name     string
	root     *restpf.Node
	implicit map[string][]Option

	entries map[entryKey]*Entry
	names   map[restpf.Method]map[string]*Entry
	order   []*Entry
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// Implicit adds opts to every registration whose path starts with first.
func Implicit(first string, opts ...Option) RegistryOption {
	return func(r *Registry) { r.implicit[first] = append(r.implicit[first], opts...) }
}

// NewRegistry creates a registry for the collection name rooted at root.
func NewRegistry(name string, root *restpf.Node, opts ...RegistryOption) *Registry {
	r := &Registry{
		name:     name,
		root:     root,
		implicit: make(map[string][]Option),
		entries:  make(map[entryKey]*Entry),
		names:    make(map[restpf.Method]map[string]*Entry),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Registry) Name() string { return r.name }

func (r *Registry) Root() *restpf.Node { return r.root }

// Register binds h to the node at path for method m.
func (r *Registry) Register(path []string, m restpf.Method, h Handler, opts ...Option) error {
	if !m.Valid() {
		return fmt.Errorf("register %s: unknown method %q", PathName(path), m)
	}
	if h == nil {
		return fmt.Errorf("register %s %s: %w", m, PathName(path), ErrNilHandler)
	}
	node, ok := r.root.Lookup(path)
	if !ok {
		return &restpf.SchemaError{Path: append([]string{r.name}, path...), Reason: "no such schema node"}
	}

	var o Options
	if len(path) > 0 {
		for _, opt := range r.implicit[path[0]] {
			opt(&o)
		}
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.BeforeAll && (o.AfterAll || len(o.RunAfter) > 0) {
		return &restpf.SchedulingError{Collection: r.name, Method: m, Err: scheduler.ErrConflictingOptions}
	}

	e := &Entry{
		Path:    append([]string(nil), path...),
		Method:  m,
		Node:    node,
		Handler: h,
		Options: o,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	k := entryKey{node: node, method: m}
	if _, exists := r.entries[k]; exists {
		return fmt.Errorf("register %s %s.%s: %w", m, r.name, PathName(path), ErrDuplicateCallback)
	}
	byName := r.names[m]
	if byName == nil {
		byName = make(map[string]*Entry)
		r.names[m] = byName
	}
	if _, exists := byName[e.Name()]; exists {
		return fmt.Errorf("register %s %s: name %q: %w", m, r.name, e.Name(), ErrDuplicateName)
	}
	if o.BeforeAll {
		for _, other := range byName {
			if other.Options.BeforeAll {
				return &restpf.SchedulingError{Collection: r.name, Method: m, Err: scheduler.ErrMultipleBeforeAll}
			}
		}
	}

	r.entries[k] = e
	byName[e.Name()] = e
	r.order = append(r.order, e)
	return nil
}

// Lookup returns the callback bound to node for method m.
func (r *Registry) Lookup(node *restpf.Node, m restpf.Method) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[entryKey{node: node, method: m}]
	return e, ok
}

// Entries returns the callbacks for m in registration order.
func (r *Registry) Entries(m restpf.Method) []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Entry
	for _, e := range r.order {
		if e.Method == m {
			out = append(out, e)
		}
	}
	return out
}

// Len is the number of registrations across all methods.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Check reports RunAfter references that name no registered callback of the
// same method.
func (r *Registry) Check() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var errs []error
	for _, e := range r.order {
		for _, dep := range e.Options.RunAfter {
			if _, ok := r.names[e.Method][dep]; !ok {
				errs = append(errs, &restpf.SchedulingError{
					Collection: r.name,
					Method:     e.Method,
					Err:        fmt.Errorf("%s after %q: %w", e.Name(), dep, scheduler.ErrUnknownDependency),
				})
			}
		}
	}
	return errors.Join(errs...)
}

// At starts a registration path at the given names.
func (r *Registry) At(names ...string) *Path {
	return &Path{reg: r, names: append([]string(nil), names...)}
}

// Field starts a registration path at a root field.
func (r *Registry) Field(name string) *Path { return r.At(name) }

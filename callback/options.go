package callback

import (
	"context"
	"strings"

	restpf "github.com/guxiaodai/restpf"
)

// Handler runs for one selected schema node. A non-nil result is merged into
// the output tree at the node path.
type Handler func(ctx context.Context, c *Context) (any, error)

// Options are the scheduling and naming options of one registration.
type Options struct {
	Name      string
	BeforeAll bool
	AfterAll  bool
	RunAfter  []string
	// Extra holds caller defined values handed to the handler untouched.
	Extra map[string]any
}

// Option configures Options.
type Option func(*Options)

// Name overrides the callback name used by RunAfter references.
func Name(name string) Option { return func(o *Options) { o.Name = name } }

// BeforeAll runs the callback in its own batch ahead of every callback of
// the collection that has no other dependency.
func BeforeAll() Option { return func(o *Options) { o.BeforeAll = true } }

// AfterAll runs the callback after every other callback of the collection.
func AfterAll() Option { return func(o *Options) { o.AfterAll = true } }

// RunAfter orders the callback after the named callbacks.
func RunAfter(names ...string) Option {
	return func(o *Options) { o.RunAfter = append(o.RunAfter, names...) }
}

// With attaches an extra value.
func With(key string, v any) Option {
	return func(o *Options) {
		if o.Extra == nil {
			o.Extra = map[string]any{}
		}
		o.Extra[key] = v
	}
}

// Entry is one registered callback.
type Entry struct {
	Path    []string
	Method  restpf.Method
	Node    *restpf.Node
	Handler Handler
	Options Options
}

// Name is the explicit Name option or the dotted path ("<root>" for the
// collection root).
func (e *Entry) Name() string {
	if e.Options.Name != "" {
		return e.Options.Name
	}
	return PathName(e.Path)
}

// PathName renders a schema path as a callback name.
func PathName(path []string) string {
	if len(path) == 0 {
		return "<root>"
	}
	return strings.Join(path, ".")
}

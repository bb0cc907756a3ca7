package callback

import (
	restpf "github.com/guxiaodai/restpf"
)

// Context is what a Handler sees: its node and state, the verb bindings of
// the request and a view of the variable collector.
type Context struct {
	Entry    *Entry
	State    restpf.State
	bindings map[string]any
	vars     *Vars
}

// NewContext builds the handler context for one selected callback.
func NewContext(sel Selected, bindings map[string]any, vars *Vars) *Context {
	if vars == nil {
		vars = NewVars()
	}
	return &Context{Entry: sel.Entry, State: sel.State, bindings: bindings, vars: vars}
}

func (c *Context) Node() *restpf.Node    { return c.Entry.Node }
func (c *Context) Path() []string        { return append([]string(nil), c.Entry.Path...) }
func (c *Context) Method() restpf.Method { return c.Entry.Method }
func (c *Context) Options() Options      { return c.Entry.Options }

// Value resolves name among the request bindings first, then among the
// variables committed by earlier batches.
func (c *Context) Value(name string) (any, bool) {
	if v, ok := c.bindings[name]; ok {
		return v, true
	}
	return c.vars.Get(name)
}

// Publish makes a value visible to callbacks of later batches.
func (c *Context) Publish(name string, v any) error { return c.vars.Publish(name, v) }

// LeafValue returns the value of a leaf state.
func (c *Context) LeafValue() (any, bool) {
	leaf, ok := c.State.(*restpf.LeafState)
	if !ok {
		return nil, false
	}
	return leaf.Value(), true
}

// Lookup resolves name like Context.Value and asserts its type.
func Lookup[T any](c *Context, name string) (T, bool) {
	var zero T
	v, ok := c.Value(name)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

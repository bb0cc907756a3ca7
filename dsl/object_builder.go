package dsl

import (
	restpf "github.com/guxiaodai/restpf"
)

type objectBuilder struct {
	policies
	names  []string
	fields map[string]Builder
	extra  map[string][]restpf.Option
	dups   []string
}

type fieldStep struct {
	b    *objectBuilder
	name string
}

// Object creates a new object builder. Fields keep their declaration order.
func Object() *objectBuilder {
	return &objectBuilder{
		fields: map[string]Builder{},
		extra:  map[string][]restpf.Option{},
	}
}

// Field registers a field with its builder.
func (b *objectBuilder) Field(name string, fb Builder) *fieldStep {
	if _, dup := b.fields[name]; dup {
		b.dups = append(b.dups, name)
	} else {
		b.names = append(b.names, name)
	}
	b.fields[name] = fb
	return &fieldStep{b: b, name: name}
}

// Appear sets the appearance of the object itself for method m.
func (b *objectBuilder) Appear(m restpf.Method, a restpf.Appearance) *objectBuilder {
	b.appear(m, a)
	return b
}

// Unknown sets the unknown-key policy of the object for method m.
func (b *objectBuilder) Unknown(m restpf.Method, p restpf.UnknownPolicy) *objectBuilder {
	b.unknown(m, p)
	return b
}

// UnknownIgnore accepts unknown keys for every method.
func (b *objectBuilder) UnknownIgnore() *objectBuilder {
	for _, m := range restpf.Methods {
		b.unknown(m, restpf.UnknownIgnore)
	}
	return b
}

// UnknownProhibit rejects unknown keys for every method.
func (b *objectBuilder) UnknownProhibit() *objectBuilder {
	for _, m := range restpf.Methods {
		b.unknown(m, restpf.UnknownProhibit)
	}
	return b
}

// Appear sets the appearance of the current field for method m.
func (f *fieldStep) Appear(m restpf.Method, a restpf.Appearance) *fieldStep {
	f.b.extra[f.name] = append(f.b.extra[f.name], restpf.Appear(m, a))
	return f
}

// Required makes the current field mandatory for every method.
func (f *fieldStep) Required() *objectBuilder {
	f.b.extra[f.name] = append(f.b.extra[f.name], restpf.AppearAll(restpf.AppearRequire))
	return f.b
}

// Optional makes the current field free for every method.
func (f *fieldStep) Optional() *objectBuilder {
	f.b.extra[f.name] = append(f.b.extra[f.name], restpf.AppearAll(restpf.AppearFree))
	return f.b
}

// ReadOnly prohibits the current field in POST, PUT and PATCH input.
func (f *fieldStep) ReadOnly() *objectBuilder {
	for _, m := range []restpf.Method{restpf.POST, restpf.PUT, restpf.PATCH} {
		f.b.extra[f.name] = append(f.b.extra[f.name], restpf.Appear(m, restpf.AppearProhibit))
	}
	return f.b
}

func (f *fieldStep) Field(name string, fb Builder) *fieldStep { return f.b.Field(name, fb) }
func (f *fieldStep) Unknown(m restpf.Method, p restpf.UnknownPolicy) *objectBuilder {
	return f.b.Unknown(m, p)
}
func (f *fieldStep) Build() (*restpf.Node, error) { return f.b.Build() }
func (f *fieldStep) MustBuild() *restpf.Node      { return f.b.MustBuild() }

func (f *fieldStep) build(extra []restpf.Option) (*restpf.Node, error) { return f.b.build(extra) }

// Build constructs the object node.
func (b *objectBuilder) Build() (*restpf.Node, error) { return b.build(nil) }

// MustBuild constructs the object node and panics on error.
func (b *objectBuilder) MustBuild() *restpf.Node {
	n, err := b.Build()
	if err != nil {
		panic(err)
	}
	return n
}

func (b *objectBuilder) build(extra []restpf.Option) (*restpf.Node, error) {
	if len(b.dups) > 0 {
		return nil, &restpf.SchemaError{Path: []string{b.dups[0]}, Reason: "duplicate field name"}
	}
	fields := make([]restpf.Field, 0, len(b.names))
	for _, name := range b.names {
		fb := b.fields[name]
		if fb == nil {
			return nil, &restpf.SchemaError{Path: []string{name}, Reason: "nil field builder"}
		}
		n, err := fb.build(b.extra[name])
		if err != nil {
			return nil, err
		}
		fields = append(fields, restpf.Field{Name: name, Node: n})
	}
	return restpf.NewObject(fields, b.with(extra)...)
}

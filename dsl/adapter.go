package dsl

import (
	restpf "github.com/guxiaodai/restpf"
)

// Builder produces a schema node. Every builder in this package implements it
// and can be nested inside Array, Tuple and Object builders.
type Builder interface {
	Build() (*restpf.Node, error)
	build(extra []restpf.Option) (*restpf.Node, error)
}

// MustBuild builds b and panics on error.
func MustBuild(b Builder) *restpf.Node {
	n, err := b.Build()
	if err != nil {
		panic(err)
	}
	return n
}

// policies accumulates per-method policy options shared by all builders.
type policies struct {
	opts []restpf.Option
}

func (p *policies) appear(m restpf.Method, a restpf.Appearance) {
	p.opts = append(p.opts, restpf.Appear(m, a))
}

func (p *policies) unknown(m restpf.Method, u restpf.UnknownPolicy) {
	p.opts = append(p.opts, restpf.Unknown(m, u))
}

func (p *policies) with(extra []restpf.Option) []restpf.Option {
	out := make([]restpf.Option, 0, len(p.opts)+len(extra))
	out = append(out, p.opts...)
	return append(out, extra...)
}

type nodeBuilder struct{ n *restpf.Node }

// Node adapts an already constructed, unattached node into a Builder.
// Field level policy options cannot be applied to it.
func Node(n *restpf.Node) Builder { return nodeBuilder{n: n} }

func (b nodeBuilder) Build() (*restpf.Node, error) { return b.build(nil) }

func (b nodeBuilder) build(extra []restpf.Option) (*restpf.Node, error) {
	if b.n == nil {
		return nil, &restpf.SchemaError{Reason: "nil node"}
	}
	if len(extra) > 0 {
		return nil, &restpf.SchemaError{Path: b.n.Path(), Reason: "policy options cannot be applied to a prebuilt node"}
	}
	return b.n, nil
}

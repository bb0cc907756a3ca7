package dsl

import (
	restpf "github.com/guxiaodai/restpf"
)

type arrayBuilder struct {
	policies
	elem Builder
}

// Array creates an array builder whose elements all follow elem.
func Array(elem Builder) *arrayBuilder { return &arrayBuilder{elem: elem} }

func (b *arrayBuilder) Appear(m restpf.Method, a restpf.Appearance) *arrayBuilder {
	b.appear(m, a)
	return b
}

func (b *arrayBuilder) Build() (*restpf.Node, error) { return b.build(nil) }

func (b *arrayBuilder) build(extra []restpf.Option) (*restpf.Node, error) {
	if b.elem == nil {
		return nil, &restpf.SchemaError{Reason: "array without element builder"}
	}
	elem, err := b.elem.Build()
	if err != nil {
		return nil, err
	}
	return restpf.NewArray(elem, b.with(extra)...)
}

type tupleBuilder struct {
	policies
	elems []Builder
}

// Tuple creates a fixed-arity tuple builder.
func Tuple(elems ...Builder) *tupleBuilder { return &tupleBuilder{elems: elems} }

func (b *tupleBuilder) Appear(m restpf.Method, a restpf.Appearance) *tupleBuilder {
	b.appear(m, a)
	return b
}

func (b *tupleBuilder) Build() (*restpf.Node, error) { return b.build(nil) }

func (b *tupleBuilder) build(extra []restpf.Option) (*restpf.Node, error) {
	nodes := make([]*restpf.Node, len(b.elems))
	for i, e := range b.elems {
		if e == nil {
			return nil, &restpf.SchemaError{Reason: "tuple with nil element builder"}
		}
		n, err := e.Build()
		if err != nil {
			return nil, err
		}
		nodes[i] = n
	}
	return restpf.NewTuple(nodes, b.with(extra)...)
}

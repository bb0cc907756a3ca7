package dsl

import (
	restpf "github.com/guxiaodai/restpf"
)

type leafBuilder struct {
	policies
	kind restpf.Kind
}

func Bool() *leafBuilder            { return &leafBuilder{kind: restpf.KindBool} }
func Integer() *leafBuilder         { return &leafBuilder{kind: restpf.KindInteger} }
func Float() *leafBuilder           { return &leafBuilder{kind: restpf.KindFloat} }
func String() *leafBuilder          { return &leafBuilder{kind: restpf.KindString} }
func PrimitiveArray() *leafBuilder  { return &leafBuilder{kind: restpf.KindPrimitiveArray} }
func PrimitiveObject() *leafBuilder { return &leafBuilder{kind: restpf.KindPrimitiveObject} }

// Leaf returns a builder for any leaf kind.
func Leaf(k restpf.Kind) *leafBuilder { return &leafBuilder{kind: k} }

// Appear sets the appearance for method m.
func (b *leafBuilder) Appear(m restpf.Method, a restpf.Appearance) *leafBuilder {
	b.appear(m, a)
	return b
}

func (b *leafBuilder) Build() (*restpf.Node, error) { return b.build(nil) }

func (b *leafBuilder) build(extra []restpf.Option) (*restpf.Node, error) {
	return restpf.NewLeaf(b.kind, b.with(extra)...)
}

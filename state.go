package restpf

// State is the value-carrying counterpart of a schema Node. Implementations
// are *LeafState, *ArrayState, *TupleState, *ObjectState and *UnknownState.
type State interface {
	// Node is the schema node the state is bound to; nil for *UnknownState.
	Node() *Node
	Mode() Mode
	// Absent reports whether the state carries no value: a nil leaf value or a
	// nested state without children.
	Absent() bool
	isState()
}

// LeafState holds one primitive value.
type LeafState struct {
	node  *Node
	mode  Mode
	value any
}

func (s *LeafState) Node() *Node  { return s.node }
func (s *LeafState) Mode() Mode   { return s.mode }
func (s *LeafState) Absent() bool { return s.value == nil }
func (s *LeafState) Value() any   { return s.value }
func (*LeafState) isState()       {}

type seqState struct {
	node  *Node
	mode  Mode
	elems []State
}

func (s *seqState) Node() *Node  { return s.node }
func (s *seqState) Mode() Mode   { return s.mode }
func (s *seqState) Absent() bool { return len(s.elems) == 0 }
func (s *seqState) Len() int     { return len(s.elems) }

// At returns the i-th element or nil when out of range.
func (s *seqState) At(i int) State {
	if i < 0 || i >= len(s.elems) {
		return nil
	}
	return s.elems[i]
}

// Elems returns the elements in order.
func (s *seqState) Elems() []State { return append([]State(nil), s.elems...) }

// ArrayState holds a homogeneous sequence.
type ArrayState struct{ seqState }

func (*ArrayState) isState() {}

// TupleState holds a fixed-arity positional sequence.
type TupleState struct{ seqState }

func (*TupleState) isState() {}

// ObjectState holds named fields. Known fields come first in declaration
// order, unknown placeholders follow sorted by name.
type ObjectState struct {
	node   *Node
	mode   Mode
	names  []string
	fields map[string]State
}

func (s *ObjectState) Node() *Node  { return s.node }
func (s *ObjectState) Mode() Mode   { return s.mode }
func (s *ObjectState) Absent() bool { return len(s.names) == 0 }
func (*ObjectState) isState()       {}

// Field returns the state stored under name, or nil.
func (s *ObjectState) Field(name string) State {
	if st, ok := s.fields[name]; ok {
		return st
	}
	return nil
}

// Names returns the field names in state order.
func (s *ObjectState) Names() []string { return append([]string(nil), s.names...) }

func (s *ObjectState) Len() int { return len(s.names) }

// UnknownState preserves an input Object field that the schema does not declare.
type UnknownState struct {
	name string
	raw  any
}

func (*UnknownState) Node() *Node    { return nil }
func (*UnknownState) Mode() Mode     { return ModeInput }
func (s *UnknownState) Absent() bool { return false }
func (s *UnknownState) Name() string { return s.name }
func (s *UnknownState) Raw() any     { return s.raw }
func (*UnknownState) isState()       {}

package callback

import (
	restpf "github.com/guxiaodai/restpf"
)

// Selected pairs a callback with the state of its node for this request.
type Selected struct {
	Entry *Entry
	State restpf.State
}

// Select walks the registry schema breadth first in declaration order and
// returns the callbacks registered for m that apply to root.
//
// A callback applies when its node has a paired state, or when the whole
// collection has no state (root == nil). Object fields pair with the field
// state of the same name, tuple positions with the element state, and array
// elements with nothing.
func Select(r *Registry, m restpf.Method, root restpf.State) []Selected {
	type item struct {
		node  *restpf.Node
		state restpf.State
	}
	var out []Selected
	queue := []item{{node: r.root, state: root}}
	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]
		if e, ok := r.Lookup(it.node, m); ok && (it.state != nil || root == nil) {
			out = append(out, Selected{Entry: e, State: it.state})
		}
		for i, c := range it.node.Children() {
			queue = append(queue, item{node: c, state: childState(it.state, c, i)})
		}
	}
	return out
}

func childState(s restpf.State, child *restpf.Node, i int) restpf.State {
	switch st := s.(type) {
	case *restpf.ObjectState:
		if f := st.Field(child.Name()); f != nil && f.Node() == child {
			return f
		}
	case *restpf.TupleState:
		if e := st.At(i); e != nil && e.Node() == child {
			return e
		}
	}
	return nil
}

// Package treestate collects per-node callback results and merges them into
// one nested value.
package treestate

import (
	"strconv"
	"strings"
)

// Tree is a sparse path-keyed tree. It is not safe for concurrent use; the
// pipeline stages results after each batch has finished.
type Tree struct {
	root *Node
}

// Node is one entry of a Tree: an optional value plus named children in
// insertion order.
type Node struct {
	value    any
	set      bool
	names    []string
	children map[string]*Node
}

func New() *Tree { return &Tree{root: &Node{}} }

// Touch returns the node at path, creating missing nodes on the way.
// An empty path addresses the root.
func (t *Tree) Touch(path ...string) *Node {
	cur := t.root
	for _, name := range path {
		next, ok := cur.children[name]
		if !ok {
			if cur.children == nil {
				cur.children = map[string]*Node{}
			}
			next = &Node{}
			cur.children[name] = next
			cur.names = append(cur.names, name)
		}
		cur = next
	}
	return cur
}

// Set stores v at the node, replacing any earlier value.
func (n *Node) Set(v any) {
	n.value = v
	n.set = true
}

// Value returns the stored value and whether one was set.
func (n *Node) Value() (any, bool) { return n.value, n.set }

// Merge folds the tree into one value. Deeper values override the matching
// keys of values set higher up; keys set only higher up are kept. A stored
// []any takes overrides from children named element_<i> at position i. Any
// other stored value is used as is and its descendants are ignored. Nodes with neither a value nor contributing descendants
// vanish. The second result is false when nothing was set.
func (t *Tree) Merge() (any, bool) { return merge(t.root, nil, false) }

func merge(n *Node, inherited any, hasInherited bool) (any, bool) {
	base, has := inherited, hasInherited
	if n.set {
		base, has = n.value, true
	}
	var m map[string]any
	if has {
		if seq, ok := base.([]any); ok {
			return mergeSequence(n, seq), true
		}
		bm, ok := base.(map[string]any)
		if !ok {
			return base, true
		}
		m = make(map[string]any, len(bm)+len(n.names))
		for k, v := range bm {
			m[k] = v
		}
	}
	for _, name := range n.names {
		var childInherited any
		childHas := false
		if m != nil {
			childInherited, childHas = m[name]
		}
		v, ok := merge(n.children[name], childInherited, childHas)
		if !ok {
			continue
		}
		if m == nil {
			m = map[string]any{}
		}
		m[name] = v
	}
	if m == nil {
		return nil, false
	}
	return m, true
}

func mergeSequence(n *Node, seq []any) []any {
	out := append([]any(nil), seq...)
	for _, name := range n.names {
		i, ok := elementIndex(name)
		if !ok || i >= len(out) {
			continue
		}
		if v, ok := merge(n.children[name], out[i], true); ok {
			out[i] = v
		}
	}
	return out
}

func elementIndex(name string) (int, bool) {
	s, ok := strings.CutPrefix(name, "element_")
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(s)
	return i, err == nil && i >= 0
}

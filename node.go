package restpf

import (
	"strconv"
	"strings"
)

// Node is one vertex of a schema tree. Nodes are immutable once attached to
// a parent and may be shared read-only across goroutines.
type Node struct {
	name     string
	kind     Kind
	parent   *Node
	children []*Node
	byName   map[string]*Node
	appear   map[Method]Appearance
	unknown  map[Method]UnknownPolicy
}

// Option overrides a per-method policy of a node.
type Option func(*Node)

// Appear sets the appearance of the node for method m.
func Appear(m Method, a Appearance) Option {
	return func(n *Node) {
		if n.appear == nil {
			n.appear = map[Method]Appearance{}
		}
		n.appear[m] = a
	}
}

// AppearAll sets the same appearance for every method.
func AppearAll(a Appearance) Option {
	return func(n *Node) {
		for _, m := range Methods {
			Appear(m, a)(n)
		}
	}
}

// Unknown sets the unknown-field policy of the node for method m.
func Unknown(m Method, p UnknownPolicy) Option {
	return func(n *Node) {
		if n.unknown == nil {
			n.unknown = map[Method]UnknownPolicy{}
		}
		n.unknown[m] = p
	}
}

func newNode(k Kind, opts []Option) *Node {
	n := &Node{name: k.Tag(), kind: k}
	for _, o := range opts {
		if o != nil {
			o(n)
		}
	}
	return n
}

// Name is the node name, unique among its siblings.
func (n *Node) Name() string { return n.name }

func (n *Node) Kind() Kind { return n.kind }

// Tag is the wire type tag of the node.
func (n *Node) Tag() string { return n.kind.Tag() }

// Parent returns nil for a root node.
func (n *Node) Parent() *Node { return n.parent }

func (n *Node) IsRoot() bool { return n.parent == nil }

// Children returns the children in declaration (or positional) order.
func (n *Node) Children() []*Node { return append([]*Node(nil), n.children...) }

// Child resolves a direct child by name.
func (n *Node) Child(name string) (*Node, bool) {
	c, ok := n.byName[name]
	return c, ok
}

// Elem is the element schema of an Array node.
func (n *Node) Elem() *Node {
	if n.kind != KindArray || len(n.children) == 0 {
		return nil
	}
	return n.children[0]
}

// Len is the arity of a Tuple node or the field count of an Object node.
func (n *Node) Len() int { return len(n.children) }

// Policy returns the appearance and unknown-field policy in effect for m.
func (n *Node) Policy(m Method) (Appearance, UnknownPolicy) {
	return n.Appearance(m), n.UnknownPolicy(m)
}

func (n *Node) Appearance(m Method) Appearance {
	if a, ok := n.appear[m]; ok {
		return a
	}
	return defaultAppearance(m)
}

func (n *Node) UnknownPolicy(m Method) UnknownPolicy {
	if p, ok := n.unknown[m]; ok {
		return p
	}
	return defaultUnknown(m)
}

// Path returns the names from the tree root down to n, root excluded.
func (n *Node) Path() []string {
	var rev []string
	for cur := n; cur.parent != nil; cur = cur.parent {
		rev = append(rev, cur.name)
	}
	out := make([]string, len(rev))
	for i, s := range rev {
		out[len(rev)-1-i] = s
	}
	return out
}

// Lookup resolves a path relative to n.
func (n *Node) Lookup(path []string) (*Node, bool) {
	cur := n
	for _, name := range path {
		c, ok := cur.Child(name)
		if !ok {
			return nil, false
		}
		cur = c
	}
	return cur, true
}

// Walk visits n and its descendants breadth first in declaration order.
func (n *Node) Walk(fn func(*Node) bool) {
	queue := []*Node{n}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if !fn(cur) {
			return
		}
		queue = append(queue, cur.children...)
	}
}

func (n *Node) String() string {
	p := n.Path()
	if len(p) == 0 {
		return n.Tag() + "(<root>)"
	}
	return n.Tag() + "(" + strings.Join(p, ".") + ")"
}

func elementName(i int) string { return "element_" + strconv.Itoa(i) }

// attachAll binds children under parent with the given names. Nothing is
// attached unless every pair is acceptable.
func attachAll(parent *Node, names []string, children []*Node) error {
	seen := map[string]bool{}
	for i, child := range children {
		name := names[i]
		at := append(parent.Path(), name)
		switch {
		case name == "":
			return &SchemaError{Path: parent.Path(), Reason: "empty child name"}
		case child == nil:
			return &SchemaError{Path: at, Reason: "nil child node"}
		case child == parent:
			return &SchemaError{Path: at, Reason: "node cannot be its own child"}
		case child.parent != nil:
			return &SchemaError{Path: at, Reason: "node already has a parent"}
		case seen[name]:
			return &SchemaError{Path: at, Reason: "duplicate child name"}
		}
		for j := 0; j < i; j++ {
			if children[j] == child {
				return &SchemaError{Path: at, Reason: "node attached twice"}
			}
		}
		seen[name] = true
	}
	parent.byName = make(map[string]*Node, len(children))
	for i, child := range children {
		child.parent = parent
		child.name = names[i]
		parent.children = append(parent.children, child)
		parent.byName[names[i]] = child
	}
	return nil
}

package restpf

// ArrayElementName is the name of the element child of an Array node.
const ArrayElementName = "element"

// Field pairs an Object field name with its schema node.
type Field struct {
	Name string
	Node *Node
}

// NewArray returns an Array node whose elements all conform to elem.
func NewArray(elem *Node, opts ...Option) (*Node, error) {
	n := newNode(KindArray, opts)
	if err := attachAll(n, []string{ArrayElementName}, []*Node{elem}); err != nil {
		return nil, err
	}
	return n, nil
}

// NewTuple returns a Tuple node with one positional child per element.
func NewTuple(elems []*Node, opts ...Option) (*Node, error) {
	n := newNode(KindTuple, opts)
	if len(elems) == 0 {
		return nil, &SchemaError{Reason: "tuple needs at least one element"}
	}
	names := make([]string, len(elems))
	for i := range elems {
		names[i] = elementName(i)
	}
	if err := attachAll(n, names, elems); err != nil {
		return nil, err
	}
	return n, nil
}

// NewObject returns an Object node with fields in declaration order.
func NewObject(fields []Field, opts ...Option) (*Node, error) {
	n := newNode(KindObject, opts)
	names := make([]string, len(fields))
	nodes := make([]*Node, len(fields))
	for i, f := range fields {
		names[i] = f.Name
		nodes[i] = f.Node
	}
	if err := attachAll(n, names, nodes); err != nil {
		return nil, err
	}
	return n, nil
}

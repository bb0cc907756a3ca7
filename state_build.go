package restpf

// BuildInput turns a raw decoded client value into an input-mode state tree
// rooted at n. Unknown Object keys are kept as *UnknownState placeholders.
// Structural failures are returned as Issues.
func BuildInput(n *Node, raw any) (State, error) { return build(n, raw, ModeInput) }

// BuildOutput turns a raw value produced by callbacks (or a serialized
// document) into an output-mode state tree rooted at n. Unknown Object keys
// are reported as unknown_key.
func BuildOutput(n *Node, raw any) (State, error) { return build(n, raw, ModeOutput) }

func build(n *Node, raw any, mode Mode) (State, error) {
	if n == nil {
		return nil, &SchemaError{Reason: "nil schema node"}
	}
	b := &stateBuilder{mode: mode}
	st := b.node(n, raw, RootRef())
	if len(b.issues) > 0 {
		return nil, b.issues
	}
	return st, nil
}

type stateBuilder struct {
	mode   Mode
	issues Issues
}

func (b *stateBuilder) node(n *Node, raw any, at PathRef) State {
	switch n.kind {
	case KindArray, KindTuple:
		return b.sequence(n, raw, at)
	case KindObject:
		return b.object(n, raw, at)
	default:
		return b.leaf(n, raw)
	}
}

func (b *stateBuilder) leaf(n *Node, raw any) State {
	v := raw
	if inner, ok := unwrapEnvelope(raw, n.Tag()); ok {
		v = inner
	}
	if b.mode == ModeInput {
		v = normalizeNumber(n.kind, v)
	}
	return &LeafState{node: n, mode: b.mode, value: v}
}

func (b *stateBuilder) sequence(n *Node, raw any, at PathRef) State {
	v := raw
	if inner, ok := unwrapEnvelope(raw, n.Tag()); ok {
		v = inner
	}
	var items []any
	if v != nil {
		s, ok := asSequence(v)
		if !ok && n.kind == KindTuple && b.mode == ModeOutput {
			s, ok = tupleFromMapping(n, v)
		}
		if !ok {
			b.issues = append(b.issues, at.Issue(CodeInvalidType, "expected", n.Tag(), "got", typeName(v)))
			return nil
		}
		items = s
		if n.kind == KindTuple && len(items) != n.Len() {
			it := at.Issue(CodeLengthMismatch, "want", n.Len(), "got", len(items))
			it.Cause = &LengthMismatchError{Path: at.Pointer(), Want: n.Len(), Got: len(items)}
			b.issues = append(b.issues, it)
			return nil
		}
	}
	elems := make([]State, len(items))
	for i, item := range items {
		child := n.Elem()
		if n.kind == KindTuple {
			child = n.children[i]
		}
		elems[i] = b.node(child, item, at.Index(i))
	}
	seq := seqState{node: n, mode: b.mode, elems: elems}
	if n.kind == KindTuple {
		return &TupleState{seq}
	}
	return &ArrayState{seq}
}

// tupleFromMapping accepts positional results keyed by element name, which is
// how per-position callback results are merged.
func tupleFromMapping(n *Node, v any) ([]any, bool) {
	m, ok := asMapping(v)
	if !ok {
		return nil, false
	}
	for k := range m {
		if _, known := n.byName[k]; !known {
			return nil, false
		}
	}
	out := make([]any, n.Len())
	for i, c := range n.children {
		out[i] = m[c.name]
	}
	return out, true
}

func (b *stateBuilder) object(n *Node, raw any, at PathRef) State {
	st := &ObjectState{node: n, mode: b.mode, fields: map[string]State{}}
	if raw == nil {
		return st
	}
	m, ok := asMapping(raw)
	if !ok {
		b.issues = append(b.issues, at.Issue(CodeInvalidType, "expected", n.Tag(), "got", typeName(raw)))
		return nil
	}
	for _, c := range n.children {
		v, present := m[c.name]
		if !present {
			continue
		}
		st.names = append(st.names, c.name)
		st.fields[c.name] = b.node(c, v, at.Field(c.name))
	}
	for _, k := range sortedKeys(m) {
		if _, known := n.byName[k]; known {
			continue
		}
		if b.mode == ModeOutput {
			b.issues = append(b.issues, at.Field(k).Issue(CodeUnknownKey, "key", k))
			continue
		}
		st.names = append(st.names, k)
		st.fields[k] = &UnknownState{name: k, raw: m[k]}
	}
	return st
}

// unwrapEnvelope returns the inner value of a {type, value} envelope whose
// type equals tag. An optional element_type key is tolerated.
func unwrapEnvelope(raw any, tag string) (any, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, false
	}
	if t, _ := m["type"].(string); t != tag {
		return nil, false
	}
	v, ok := m["value"]
	if !ok {
		return nil, false
	}
	for k := range m {
		switch k {
		case "type", "value", "element_type":
		default:
			return nil, false
		}
	}
	return v, true
}

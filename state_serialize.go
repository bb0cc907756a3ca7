package restpf

// Serialize renders an output-mode state tree in wire format. It returns
// (nil, false) for input-mode states, which are never echoed back.
//
// Leaves become {"type": tag, "value": v}. Arrays and tuples become
// {"type": tag, "value": [...]}; when every element is a leaf of the same
// tag the elements are written bare and "element_type" names their tag.
// Objects become a mapping of field name to serialized field.
func Serialize(s State) (any, bool) {
	if s == nil || s.Mode() != ModeOutput {
		return nil, false
	}
	return serializeState(s), true
}

func serializeState(s State) any {
	switch st := s.(type) {
	case *LeafState:
		return envelope(st.node.Tag(), st.value)
	case *ArrayState:
		return serializeSequence(st.node.Tag(), st.elems)
	case *TupleState:
		return serializeSequence(st.node.Tag(), st.elems)
	case *ObjectState:
		out := make(map[string]any, len(st.names))
		for _, name := range st.names {
			f := st.fields[name]
			if _, isUnknown := f.(*UnknownState); isUnknown || f == nil {
				continue
			}
			out[name] = serializeState(f)
		}
		return out
	}
	return nil
}

func envelope(tag string, v any) map[string]any {
	return map[string]any{"type": tag, "value": v}
}

func serializeSequence(tag string, elems []State) map[string]any {
	if elemTag, ok := abbreviatedTag(elems); ok {
		values := make([]any, len(elems))
		for i, e := range elems {
			values[i] = e.(*LeafState).value
		}
		out := envelope(tag, values)
		out["element_type"] = elemTag
		return out
	}
	values := make([]any, len(elems))
	for i, e := range elems {
		values[i] = serializeState(e)
	}
	return envelope(tag, values)
}

// abbreviatedTag reports the shared leaf tag of a non-empty element list.
func abbreviatedTag(elems []State) (string, bool) {
	if len(elems) == 0 {
		return "", false
	}
	tag := ""
	for _, e := range elems {
		leaf, ok := e.(*LeafState)
		if !ok {
			return "", false
		}
		if tag == "" {
			tag = leaf.node.Tag()
		} else if leaf.node.Tag() != tag {
			return "", false
		}
	}
	return tag, true
}

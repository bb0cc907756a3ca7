package restpf

// Validate checks a state tree against the policies of method m and returns
// Issues, or nil when the tree is valid.
//
// An absent state is valid unless its node requires a value for m. A present
// state is invalid when its node prohibits a value for m.
func Validate(s State, m Method) error {
	if s == nil {
		return nil
	}
	if iss := validateState(s, m, RootRef()); len(iss) > 0 {
		return iss
	}
	return nil
}

func validateState(s State, m Method, at PathRef) Issues {
	n := s.Node()
	if n == nil {
		return nil
	}
	appear := n.Appearance(m)
	if s.Absent() {
		if appear == AppearRequire {
			return Issues{at.Issue(CodeRequired, "method", string(m))}
		}
		return nil
	}
	if appear == AppearProhibit {
		return Issues{at.Issue(CodeProhibited, "method", string(m))}
	}

	var iss Issues
	switch st := s.(type) {
	case *LeafState:
		if !leafMatches(n.kind, st.value) {
			iss = append(iss, at.Issue(CodeInvalidType, "expected", n.Tag(), "got", typeName(st.value)))
		}
	case *ArrayState:
		elem := n.Elem()
		for i, e := range st.elems {
			if e == nil || e.Node() != elem {
				iss = append(iss, at.Index(i).Issue(CodeSchemaMismatch))
				continue
			}
			iss = append(iss, validateState(e, m, at.Index(i))...)
		}
	case *TupleState:
		if len(st.elems) != n.Len() {
			it := at.Issue(CodeLengthMismatch, "want", n.Len(), "got", len(st.elems))
			it.Cause = &LengthMismatchError{Path: at.Pointer(), Want: n.Len(), Got: len(st.elems)}
			return append(iss, it)
		}
		for i, e := range st.elems {
			if e == nil || e.Node() != n.children[i] {
				iss = append(iss, at.Index(i).Issue(CodeSchemaMismatch))
				continue
			}
			iss = append(iss, validateState(e, m, at.Index(i))...)
		}
	case *ObjectState:
		for _, c := range n.children {
			if _, ok := st.fields[c.name]; !ok && c.Appearance(m) == AppearRequire {
				iss = append(iss, at.Field(c.name).Issue(CodeRequired, "method", string(m)))
			}
		}
		unknown := n.UnknownPolicy(m)
		for _, name := range st.names {
			f := st.fields[name]
			if _, isUnknown := f.(*UnknownState); isUnknown {
				if unknown == UnknownProhibit {
					iss = append(iss, at.Field(name).Issue(CodeUnknownKey, "key", name))
				}
				continue
			}
			c, ok := n.byName[name]
			if f == nil || !ok || f.Node() != c {
				iss = append(iss, at.Field(name).Issue(CodeSchemaMismatch))
				continue
			}
			iss = append(iss, validateState(f, m, at.Field(name))...)
		}
	}
	return iss
}

package dsl

import (
	"fmt"
	"sort"
	"strings"

	restpf "github.com/guxiaodai/restpf"
	"gopkg.in/yaml.v3"
)

// Spec is the YAML form of a schema node. A scalar is shorthand for a leaf
// type tag, so `foo: integer` and `foo: {type: integer}` are equivalent.
//
//	type: object
//	unknown: {get: ignore}
//	fields:
//	  foo: integer
//	  bar:
//	    type: string
//	    appear: {post: free, "*": free}
//	  tags: {type: array, element: string}
//	  pair: {type: tuple, elements: [integer, string]}
type Spec struct {
	Type     string            `yaml:"type"`
	Element  *Spec             `yaml:"element,omitempty"`
	Elements []*Spec           `yaml:"elements,omitempty"`
	Fields   Fields            `yaml:"fields,omitempty"`
	Appear   map[string]string `yaml:"appear,omitempty"`
	Unknown  map[string]string `yaml:"unknown,omitempty"`
}

// NamedSpec is one Object field of a Spec.
type NamedSpec struct {
	Name string
	Spec *Spec
}

// Fields keeps Object fields in document order.
type Fields []NamedSpec

func (s *Spec) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		s.Type = n.Value
		return nil
	}
	type plain Spec
	var p plain
	if err := n.Decode(&p); err != nil {
		return err
	}
	*s = Spec(p)
	return nil
}

func (f *Fields) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: fields must be a mapping", n.Line)
	}
	out := make(Fields, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		var spec Spec
		if err := n.Content[i+1].Decode(&spec); err != nil {
			return err
		}
		out = append(out, NamedSpec{Name: n.Content[i].Value, Spec: &spec})
	}
	*f = out
	return nil
}

// FromYAML decodes a Spec document and builds its schema node.
func FromYAML(data []byte) (*restpf.Node, error) {
	var s Spec
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	return s.Build()
}

// Build converts the spec into a schema node.
func (s *Spec) Build() (*restpf.Node, error) {
	b, err := s.Builder()
	if err != nil {
		return nil, err
	}
	return b.Build()
}

// Builder converts the spec into a DSL builder.
func (s *Spec) Builder() (Builder, error) {
	if s == nil {
		return nil, &restpf.SchemaError{Reason: "empty schema definition"}
	}
	var p policies
	for _, key := range policyKeys(s.Appear) {
		a, err := restpf.ParseAppearance(s.Appear[key])
		if err != nil {
			return nil, &restpf.SchemaError{Reason: err.Error()}
		}
		methods, err := methodsOf(key)
		if err != nil {
			return nil, err
		}
		for _, m := range methods {
			p.appear(m, a)
		}
	}
	for _, key := range policyKeys(s.Unknown) {
		u, err := restpf.ParseUnknownPolicy(s.Unknown[key])
		if err != nil {
			return nil, &restpf.SchemaError{Reason: err.Error()}
		}
		methods, err := methodsOf(key)
		if err != nil {
			return nil, err
		}
		for _, m := range methods {
			p.unknown(m, u)
		}
	}

	typ := strings.ToLower(s.Type)
	if typ == "" && len(s.Fields) > 0 {
		typ = "object"
	}
	switch typ {
	case "array":
		elem, err := s.Element.Builder()
		if err != nil {
			return nil, err
		}
		return &arrayBuilder{policies: p, elem: elem}, nil
	case "tuple":
		elems := make([]Builder, len(s.Elements))
		for i, e := range s.Elements {
			eb, err := e.Builder()
			if err != nil {
				return nil, err
			}
			elems[i] = eb
		}
		return &tupleBuilder{policies: p, elems: elems}, nil
	case "object":
		ob := Object()
		ob.policies = p
		for _, f := range s.Fields {
			fb, err := f.Spec.Builder()
			if err != nil {
				return nil, err
			}
			ob.Field(f.Name, fb)
		}
		return ob, nil
	}
	k, ok := restpf.KindFromTag(typ)
	if !ok {
		return nil, &restpf.SchemaError{Reason: fmt.Sprintf("unknown type %q", s.Type)}
	}
	return &leafBuilder{policies: p, kind: k}, nil
}

// policyKeys orders wildcard keys before method keys so that method specific
// entries win.
func policyKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		wi, wj := isWildcard(keys[i]), isWildcard(keys[j])
		if wi != wj {
			return wi
		}
		return keys[i] < keys[j]
	})
	return keys
}

func isWildcard(key string) bool { return key == "*" || strings.EqualFold(key, "all") }

// methodsOf expands "*" and "all" to every method.
func methodsOf(key string) ([]restpf.Method, error) {
	if isWildcard(key) {
		return restpf.Methods, nil
	}
	m, err := restpf.ParseMethod(key)
	if err != nil {
		return nil, &restpf.SchemaError{Reason: err.Error()}
	}
	return []restpf.Method{m}, nil
}

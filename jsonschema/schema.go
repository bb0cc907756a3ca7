// Package jsonschema exports resource schema trees as JSON Schema documents
// describing the request body a method accepts.
package jsonschema

import (
	restpf "github.com/guxiaodai/restpf"
	"github.com/guxiaodai/restpf/resource"
)

// Draft is the $schema URI of exported documents.
const Draft = "https://json-schema.org/draft/2020-12/schema"

// Schema is the subset of JSON Schema that schema trees map to.
type Schema struct {
	Schema      string `json:"$schema,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type,omitempty"`

	// Object
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	AdditionalProperties *bool              `json:"additionalProperties,omitempty"`

	// Array and tuple
	Items       *Schema   `json:"items,omitempty"`
	PrefixItems []*Schema `json:"prefixItems,omitempty"`
	MinItems    *int      `json:"minItems,omitempty"`
	MaxItems    *int      `json:"maxItems,omitempty"`

	// Prohibited values
	Not *Schema `json:"not,omitempty"`
}

var leafTypes = map[restpf.Kind]string{
	restpf.KindBool:            "boolean",
	restpf.KindInteger:         "integer",
	restpf.KindFloat:           "number",
	restpf.KindString:          "string",
	restpf.KindPrimitiveArray:  "array",
	restpf.KindPrimitiveObject: "object",
}

// FromNode maps the subtree at n to the plain value shape accepted for m.
// Fields with AppearRequire are listed as required and fields with
// AppearProhibit only validate when absent.
func FromNode(n *restpf.Node, m restpf.Method) *Schema {
	if t, ok := leafTypes[n.Kind()]; ok {
		return &Schema{Type: t}
	}
	switch n.Kind() {
	case restpf.KindArray:
		s := &Schema{Type: "array"}
		if e := n.Elem(); e != nil {
			s.Items = FromNode(e, m)
		}
		return s
	case restpf.KindTuple:
		size := n.Len()
		s := &Schema{Type: "array", MinItems: &size, MaxItems: &size}
		for _, c := range n.Children() {
			s.PrefixItems = append(s.PrefixItems, FromNode(c, m))
		}
		return s
	}

	s := &Schema{Type: "object", Properties: map[string]*Schema{}}
	for _, c := range n.Children() {
		switch c.Appearance(m) {
		case restpf.AppearProhibit:
			s.Properties[c.Name()] = &Schema{Not: &Schema{}}
			continue
		case restpf.AppearRequire:
			s.Required = append(s.Required, c.Name())
		}
		s.Properties[c.Name()] = FromNode(c, m)
	}
	if n.UnknownPolicy(m) == restpf.UnknownProhibit {
		closed := false
		s.AdditionalProperties = &closed
	}
	return s
}

// ForResource describes the {"data": {"attributes", "relationships"}} body
// of an m request for res. The resource id travels in the URL and is not
// part of the body.
func ForResource(res *resource.Resource, m restpf.Method) *Schema {
	data := &Schema{Type: "object", Properties: map[string]*Schema{}}
	for _, reg := range []string{resource.Attributes, resource.Relationships} {
		coll, ok := res.Collection(reg)
		if !ok || coll.Root() == nil {
			continue
		}
		data.Properties[reg] = FromNode(coll.Root(), m)
	}
	return &Schema{
		Schema:      Draft,
		Title:       res.Name,
		Description: string(m) + " " + res.Name,
		Type:        "object",
		Properties:  map[string]*Schema{"data": data},
		Required:    []string{"data"},
	}
}

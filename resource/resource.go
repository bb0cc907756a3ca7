// Package resource declares REST resources: a name, an ID node and the
// callback collections the pipeline runs.
package resource

import (
	"errors"
	"fmt"
	"os"

	restpf "github.com/guxiaodai/restpf"
	"github.com/guxiaodai/restpf/callback"
	"github.com/guxiaodai/restpf/dsl"
	"gopkg.in/yaml.v3"
)

// Collection names.
const (
	Attributes    = "attributes"
	Relationships = "relationships"
	SpecialHooks  = "special_hooks"
)

// Special hook registration points.
const (
	HookBeforeAll = "before_all"
	HookAfterAll  = "after_all"
)

// Resource bundles the schema trees and callback registries of one resource
// type.
type Resource struct {
	Name          string
	ID            *restpf.Node
	Attributes    *callback.Registry
	Relationships *callback.Registry
	SpecialHooks  *callback.Registry
}

// Option configures a Resource.
type Option func(*config)

type config struct {
	id *restpf.Node
}

// WithID replaces the default Integer ID node.
func WithID(n *restpf.Node) Option { return func(c *config) { c.id = n } }

// DefaultID is an Integer node that POST prohibits and GET requires.
func DefaultID() *restpf.Node {
	return restpf.Integer(
		restpf.Appear(restpf.POST, restpf.AppearProhibit),
		restpf.Appear(restpf.GET, restpf.AppearRequire),
	)
}

// New creates a resource. A nil attributes or relationships root is replaced
// by an empty Object.
func New(name string, attributes, relationships *restpf.Node, opts ...Option) (*Resource, error) {
	if name == "" {
		return nil, errors.New("resource name is empty")
	}
	var c config
	for _, o := range opts {
		o(&c)
	}
	if c.id == nil {
		c.id = DefaultID()
	}
	if c.id.Kind().Nested() {
		return nil, &restpf.SchemaError{Path: []string{"id"}, Reason: "resource id must be a leaf"}
	}
	var err error
	if attributes == nil {
		if attributes, err = restpf.NewObject(nil); err != nil {
			return nil, err
		}
	}
	if relationships == nil {
		if relationships, err = restpf.NewObject(nil); err != nil {
			return nil, err
		}
	}
	for coll, root := range map[string]*restpf.Node{Attributes: attributes, Relationships: relationships} {
		if root.Kind() != restpf.KindObject {
			return nil, &restpf.SchemaError{Path: []string{coll}, Reason: "collection root must be an object"}
		}
	}
	hooks, err := restpf.NewObject([]restpf.Field{
		{Name: HookBeforeAll, Node: restpf.Bool()},
		{Name: HookAfterAll, Node: restpf.Bool()},
	})
	if err != nil {
		return nil, err
	}
	return &Resource{
		Name:          name,
		ID:            c.id,
		Attributes:    callback.NewRegistry(Attributes, attributes),
		Relationships: callback.NewRegistry(Relationships, relationships),
		SpecialHooks: callback.NewRegistry(SpecialHooks, hooks,
			callback.Implicit(HookBeforeAll, callback.BeforeAll()),
			callback.Implicit(HookAfterAll, callback.AfterAll()),
		),
	}, nil
}

// BeforeAll registers a hook that runs ahead of every other callback for m.
func (r *Resource) BeforeAll(m restpf.Method, h callback.Handler, opts ...callback.Option) error {
	return r.SpecialHooks.Field(HookBeforeAll).On(m, h, opts...)
}

// AfterAll registers a hook that runs after every other callback for m.
func (r *Resource) AfterAll(m restpf.Method, h callback.Handler, opts ...callback.Option) error {
	return r.SpecialHooks.Field(HookAfterAll).On(m, h, opts...)
}

// Collection returns a registry by collection name.
func (r *Resource) Collection(name string) (*callback.Registry, bool) {
	switch name {
	case Attributes:
		return r.Attributes, true
	case Relationships:
		return r.Relationships, true
	case SpecialHooks:
		return r.SpecialHooks, true
	}
	return nil, false
}

// Collections returns the registries in pipeline order.
func (r *Resource) Collections() []*callback.Registry {
	return []*callback.Registry{r.SpecialHooks, r.Attributes, r.Relationships}
}

// Check validates the RunAfter references of every collection.
func (r *Resource) Check() error {
	var errs []error
	for _, reg := range r.Collections() {
		if err := reg.Check(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("resource %s: %w", r.Name, err)
	}
	return nil
}

// Definition is the YAML form of a resource.
//
//	name: article
//	id: {type: string, appear: {post: prohibit, get: require}}
//	attributes:
//	  fields:
//	    title: string
//	relationships:
//	  fields:
//	    author: integer
type Definition struct {
	Name          string    `yaml:"name"`
	ID            *dsl.Spec `yaml:"id,omitempty"`
	Attributes    *dsl.Spec `yaml:"attributes,omitempty"`
	Relationships *dsl.Spec `yaml:"relationships,omitempty"`
}

// Build turns the definition into a Resource.
func (d *Definition) Build() (*Resource, error) {
	var opts []Option
	if d.ID != nil {
		id, err := d.ID.Build()
		if err != nil {
			return nil, fmt.Errorf("resource %s id: %w", d.Name, err)
		}
		opts = append(opts, WithID(id))
	}
	attrs, err := buildCollection(d.Attributes)
	if err != nil {
		return nil, fmt.Errorf("resource %s attributes: %w", d.Name, err)
	}
	rels, err := buildCollection(d.Relationships)
	if err != nil {
		return nil, fmt.Errorf("resource %s relationships: %w", d.Name, err)
	}
	return New(d.Name, attrs, rels, opts...)
}

func buildCollection(s *dsl.Spec) (*restpf.Node, error) {
	if s == nil {
		return nil, nil
	}
	if s.Type == "" {
		s.Type = "object"
	}
	return s.Build()
}

// ParseYAML decodes and builds one resource definition.
func ParseYAML(data []byte) (*Resource, error) {
	var d Definition
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse resource: %w", err)
	}
	return d.Build()
}

// LoadYAML reads a resource definition file.
func LoadYAML(path string) (*Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read resource file: %w", err)
	}
	return ParseYAML(data)
}

package pipeline

import (
	"context"
	"errors"
	"fmt"

	restpf "github.com/guxiaodai/restpf"
)

// Names of the values every callback of a single-resource request can read
// through callback.Context.Value.
const (
	BindResourceID       = "resource_id"
	BindRawResourceID    = "raw_resource_id"
	BindRawAttributes    = "raw_attributes"
	BindRawRelationships = "raw_relationships"
	BindQuery            = "query"
	BindHeaders          = "headers"
	BindResourceType     = "resource_type"
)

// ErrUnsupportedMethod is returned by ForMethod for verbs without a
// single-resource runner.
var ErrUnsupportedMethod = errors.New("no single-resource runner for method")

// Slots selects the ResourceState slots a builder fills.
type Slots struct {
	ResourceID    bool
	Attributes    bool
	Relationships bool
}

// SingleBuilder builds the states of a request addressing one resource.
// Input slots come from the raw request, output slots from the merged
// callback results.
type SingleBuilder struct {
	Input  Slots
	Output Slots
}

// BuildInput implements StateTreeBuilder.
func (b SingleBuilder) BuildInput(_ context.Context, req *Request) (ResourceState, error) {
	res := req.Resource
	var (
		out  ResourceState
		errs []error
	)
	build := func(slot string, n *restpf.Node, raw any) restpf.State {
		st, err := restpf.BuildInput(n, raw)
		if err != nil {
			errs = append(errs, slotError("input", slot, err))
		}
		return st
	}
	if b.Input.ResourceID {
		out.ResourceID = build(SlotResourceID, res.ID, req.Raw.ResourceID)
	}
	if b.Input.Attributes && collectionInput(res.Attributes.Root(), req.Raw.Attributes) {
		out.Attributes = build(SlotAttributes, res.Attributes.Root(), req.Raw.Attributes)
	}
	if b.Input.Relationships && collectionInput(res.Relationships.Root(), req.Raw.Relationships) {
		out.Relationships = build(SlotRelationships, res.Relationships.Root(), req.Raw.Relationships)
	}
	return out, errors.Join(errs...)
}

// BuildOutput implements StateTreeBuilder.
func (b SingleBuilder) BuildOutput(_ context.Context, req *Request, merged Merged) (ResourceState, error) {
	res := req.Resource
	var (
		out  ResourceState
		errs []error
	)
	build := func(slot string, n *restpf.Node, raw any) restpf.State {
		st, err := restpf.BuildOutput(n, raw)
		if err != nil {
			errs = append(errs, slotError("output", slot, err))
		}
		return st
	}
	if b.Output.ResourceID {
		out.ResourceID = build(SlotResourceID, res.ID, req.Raw.ResourceID)
	}
	if b.Output.Attributes {
		out.Attributes = build(SlotAttributes, res.Attributes.Root(), merged.Attributes)
	}
	if b.Output.Relationships {
		out.Relationships = build(SlotRelationships, res.Relationships.Root(), merged.Relationships)
	}
	return out, errors.Join(errs...)
}

// collectionInput reports whether a collection is built at all: a resource
// without fields in the collection accepts a request that omits it.
func collectionInput(root *restpf.Node, raw any) bool {
	return raw != nil || root.Len() > 0
}

func slotError(stage, slot string, err error) error {
	if iss, ok := restpf.AsIssues(err); ok {
		return &restpf.ValidationError{Stage: stage, Collection: slot, Issues: iss}
	}
	return fmt.Errorf("%s %s: %w", stage, slot, err)
}

// ResourceGenerator renders {id, type, attributes, relationships}.
type ResourceGenerator struct{}

// Generate implements RepresentationGenerator.
func (ResourceGenerator) Generate(_ context.Context, req *Request, out ResourceState) (Document, error) {
	return Document{
		"id":            resourceID(req),
		"type":          req.Resource.Name,
		"attributes":    serializeOrEmpty(out.Attributes),
		"relationships": serializeOrEmpty(out.Relationships),
	}, nil
}

// CreatedGenerator renders {id, type} once a callback published the id of
// the new resource, and no document otherwise.
type CreatedGenerator struct{}

// Generate implements RepresentationGenerator.
func (CreatedGenerator) Generate(_ context.Context, req *Request, _ ResourceState) (Document, error) {
	id, ok := req.Vars.Get(BindResourceID)
	if !ok {
		return nil, nil
	}
	return Document{"id": id, "type": req.Resource.Name}, nil
}

// EmptyGenerator renders no document.
type EmptyGenerator struct{}

// Generate implements RepresentationGenerator.
func (EmptyGenerator) Generate(context.Context, *Request, ResourceState) (Document, error) {
	return nil, nil
}

func serializeOrEmpty(s restpf.State) any {
	if v, ok := restpf.Serialize(s); ok && v != nil {
		return v
	}
	return map[string]any{}
}

func resourceID(req *Request) any {
	if leaf, ok := req.Input.ResourceID.(*restpf.LeafState); ok && leaf.Value() != nil {
		return leaf.Value()
	}
	return req.Raw.ResourceID
}

// DefaultBindings returns the values handed to callbacks of a single
// resource request for m. POST has no resource_id binding: the id of a new
// resource is published by a callback instead.
func DefaultBindings(m restpf.Method) Bindings {
	b := Bindings{
		BindRawResourceID:    func(r *Request) any { return r.Raw.ResourceID },
		BindRawAttributes:    func(r *Request) any { return r.Raw.Attributes },
		BindRawRelationships: func(r *Request) any { return r.Raw.Relationships },
		BindQuery:            func(r *Request) any { return r.Raw.Query },
		BindHeaders:          func(r *Request) any { return r.Raw.Headers },
		BindResourceType:     func(r *Request) any { return r.Resource.Name },
	}
	if m != restpf.POST {
		b[BindResourceID] = resourceID
	}
	return b
}

// ForMethod returns the single-resource pipeline for m. opts are applied
// after the default bindings.
func ForMethod(m restpf.Method, opts ...Option) (*Pipeline, error) {
	all := Slots{ResourceID: true, Attributes: true, Relationships: true}
	var (
		builder   SingleBuilder
		generator RepresentationGenerator
	)
	switch m {
	case restpf.GET:
		builder = SingleBuilder{
			Input:  Slots{ResourceID: true},
			Output: Slots{Attributes: true, Relationships: true},
		}
		generator = ResourceGenerator{}
	case restpf.POST:
		builder = SingleBuilder{Input: all}
		generator = CreatedGenerator{}
	case restpf.PUT, restpf.PATCH:
		builder = SingleBuilder{Input: all}
		generator = EmptyGenerator{}
	case restpf.DELETE:
		builder = SingleBuilder{Input: Slots{ResourceID: true}}
		generator = EmptyGenerator{}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, m)
	}
	return New(m, builder, generator, append([]Option{WithBindings(DefaultBindings(m))}, opts...)...)
}

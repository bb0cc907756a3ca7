package pipeline

import (
	"context"

	restpf "github.com/guxiaodai/restpf"
	"github.com/guxiaodai/restpf/callback"
	"github.com/guxiaodai/restpf/resource"
)

// Slot names of a ResourceState.
const (
	SlotResourceID    = "resource_id"
	SlotAttributes    = resource.Attributes
	SlotRelationships = resource.Relationships
)

// ResourceState holds the state trees of one request. Each slot is nil when
// the verb does not build it.
type ResourceState struct {
	ResourceID    restpf.State
	Attributes    restpf.State
	Relationships restpf.State
}

// Slot returns a slot by name; unknown names yield nil.
func (s ResourceState) Slot(name string) restpf.State {
	switch name {
	case SlotResourceID:
		return s.ResourceID
	case SlotAttributes:
		return s.Attributes
	case SlotRelationships:
		return s.Relationships
	}
	return nil
}

// Raw is the decoded request as handed over by a transport.
type Raw struct {
	ResourceID    any
	Attributes    any
	Relationships any
	Query         map[string][]string
	Headers       map[string][]string
	Body          []byte
}

// Request is the per-run context shared by builders, callbacks and
// generators.
type Request struct {
	ID       string
	Method   restpf.Method
	Resource *resource.Resource
	Raw      Raw
	// Input is set once the input states are built.
	Input ResourceState
	Vars  *callback.Vars
}

// Merged is the merged callback output per collection; nil when no callback
// of the collection produced a value.
type Merged struct {
	Attributes    any
	Relationships any
}

// Document is the representation returned to the transport; nil means no
// body.
type Document = map[string]any

// StateTreeBuilder builds the input and output states of a verb.
type StateTreeBuilder interface {
	BuildInput(ctx context.Context, req *Request) (ResourceState, error)
	BuildOutput(ctx context.Context, req *Request, merged Merged) (ResourceState, error)
}

// RepresentationGenerator renders the final document of a verb.
type RepresentationGenerator interface {
	Generate(ctx context.Context, req *Request, out ResourceState) (Document, error)
}

// Binding computes one named value handed to every callback of a request.
type Binding func(req *Request) any

// Bindings maps callback value names to their sources.
type Bindings map[string]Binding

// Publish evaluates every binding for req.
func (b Bindings) Publish(req *Request) map[string]any {
	out := make(map[string]any, len(b))
	for name, fn := range b {
		if fn != nil {
			out[name] = fn(req)
		}
	}
	return out
}

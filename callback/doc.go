// Package callback registers handlers against schema nodes and selects the
// ones that apply to a request.
//
// A Registry belongs to one collection (attributes, relationships, special
// hooks) of a resource. Handlers are bound to a (node path, method) pair:
//
//	reg := callback.NewRegistry("attributes", attrs)
//	err := reg.Field("foo").GET(func(ctx context.Context, c *callback.Context) (any, error) {
//	    id, _ := callback.Lookup[*restpf.LeafState](c, "resource_id")
//	    return id.Value().(int) * 10, nil
//	})
//
// Select returns the applicable callbacks in breadth-first declaration order;
// the scheduler package orders them into concurrent batches.
package callback

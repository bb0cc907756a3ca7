package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	restpf "github.com/guxiaodai/restpf"
	"github.com/guxiaodai/restpf/callback"
	"github.com/guxiaodai/restpf/scheduler"
	"github.com/guxiaodai/restpf/treestate"
)

// job is one callback to invoke.
type job struct {
	collection string
	sel        callback.Selected
}

type batch []job

// schedule selects the callbacks of every collection and orders them into
// batches: leading hooks, attributes, relationships, trailing hooks.
func (p *Pipeline) schedule(req *Request) ([]batch, error) {
	res := req.Resource
	hooks, err := p.plan(res.SpecialHooks, nil)
	if err != nil {
		return nil, err
	}
	attrs, err := p.plan(res.Attributes, req.Input.Slot(SlotAttributes))
	if err != nil {
		return nil, err
	}
	rels, err := p.plan(res.Relationships, req.Input.Slot(SlotRelationships))
	if err != nil {
		return nil, err
	}

	// Hook groups from the first after-all group on keep their order at the end.
	split := len(hooks)
	for i, b := range hooks {
		if afterAllOnly(b) {
			split = i
			break
		}
	}
	leading, trailing := hooks[:split], hooks[split:]
	out := make([]batch, 0, len(hooks)+len(attrs)+len(rels))
	out = append(out, leading...)
	out = append(out, attrs...)
	out = append(out, rels...)
	out = append(out, trailing...)
	return out, nil
}

func afterAllOnly(b batch) bool {
	for _, j := range b {
		if !j.sel.Entry.Options.AfterAll {
			return false
		}
	}
	return len(b) > 0
}

// plan selects the callbacks of reg that apply to root and groups them.
func (p *Pipeline) plan(reg *callback.Registry, root restpf.State) ([]batch, error) {
	selected := callback.Select(reg, p.method, root)
	if len(selected) == 0 {
		return nil, nil
	}
	tasks := make([]scheduler.Task, len(selected))
	byName := make(map[string]callback.Selected, len(selected))
	for i, s := range selected {
		o := s.Entry.Options
		tasks[i] = scheduler.Task{
			Name:      s.Entry.Name(),
			BeforeAll: o.BeforeAll,
			AfterAll:  o.AfterAll,
			RunAfter:  o.RunAfter,
		}
		byName[tasks[i].Name] = s
	}
	groups, err := scheduler.Plan(tasks)
	if err != nil {
		return nil, &restpf.SchedulingError{Collection: reg.Name(), Method: p.method, Err: err}
	}
	out := make([]batch, len(groups))
	for i, g := range groups {
		out[i] = make(batch, len(g))
		for j, t := range g {
			out[i][j] = job{collection: reg.Name(), sel: byName[t.Name]}
		}
	}
	return out, nil
}

type outcomeSlot struct {
	value any
	err   error
}

// executeBatches runs the batches in order. Callbacks of one batch run
// concurrently; the run stops after the first batch with a failing callback.
func (r *run) executeBatches(ctx context.Context, batches []batch) (map[string]*treestate.Tree, error) {
	trees := newTrees()
	bindings := r.p.bindings.Publish(r.req)

	for bi, b := range batches {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("batch %d: %w", bi, err)
		}
		r.p.metrics.observeBatch(len(b))
		r.log.Debug().Int("batch", bi).Int("size", len(b)).Msg("running batch")

		results := make([]outcomeSlot, len(b))
		var g errgroup.Group
		if r.p.maxConcurrency > 0 {
			g.SetLimit(r.p.maxConcurrency)
		}
		for i, j := range b {
			g.Go(func() error {
				v, err := r.invoke(ctx, j, bindings)
				results[i] = outcomeSlot{value: v, err: err}
				return nil
			})
		}
		_ = g.Wait()
		r.result.Executed += len(b)

		if names := r.req.Vars.Commit(); len(names) > 0 {
			r.log.Debug().Int("batch", bi).Strs("vars", names).Msg("variables committed")
		}
		for _, res := range results {
			if res.err != nil {
				return nil, res.err
			}
		}
		for i, j := range b {
			stage(trees, j, results[i].value)
		}
	}
	return trees, nil
}

// stage records a callback result in the tree of its collection. Hook
// results and results for nodes below an array are dropped.
func stage(trees map[string]*treestate.Tree, j job, v any) {
	if v == nil {
		return
	}
	t, ok := trees[j.collection]
	if !ok || underArray(j.sel.Entry.Node) {
		return
	}
	t.Touch(j.sel.Entry.Path...).Set(v)
}

func underArray(n *restpf.Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p.Kind() == restpf.KindArray {
			return true
		}
	}
	return false
}

// invoke runs one callback with its own span, timeout and panic guard.
func (r *run) invoke(ctx context.Context, j job, bindings map[string]any) (v any, err error) {
	e := j.sel.Entry
	name := e.Name()
	ctx, span := tracer().Start(ctx, "restpf.Callback",
		trace.WithAttributes(
			attribute.String("restpf.collection", j.collection),
			attribute.String("restpf.callback", name),
		),
	)
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			v, err = nil, fmt.Errorf("panic: %v", rec)
		}
		if err != nil {
			err = &restpf.CallbackError{Name: j.collection + "/" + name, Path: e.Path, Err: err}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
		d := time.Since(start)
		r.p.metrics.observeCallback(r.req.Resource.Name, string(r.p.method), j.collection, d, err)
		r.log.Debug().
			Str("collection", j.collection).
			Str("callback", name).
			Dur("duration", d).
			Bool("ok", err == nil).
			Msg("callback finished")
	}()

	if r.p.callbackTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.p.callbackTimeout)
		defer cancel()
	}
	return e.Handler(ctx, callback.NewContext(j.sel, bindings, r.req.Vars))
}

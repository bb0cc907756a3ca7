package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	restpf "github.com/guxiaodai/restpf"
	"github.com/guxiaodai/restpf/callback"
	"github.com/guxiaodai/restpf/resource"
	"github.com/guxiaodai/restpf/treestate"
)

// tracer resolves against the current global provider so a provider
// installed after package init still receives spans.
func tracer() trace.Tracer { return otel.Tracer("restpf.pipeline") }

// ErrNilResource is returned by Run when no resource is given.
var ErrNilResource = errors.New("nil resource")

// Pipeline runs one HTTP verb against resources.
//
// Description:
//
//	A run builds and validates the input states, selects and schedules the
//	callbacks of every collection, executes them batch by batch, merges
//	their results, builds and validates the output states and renders the
//	document.
//
// Thread Safety:
//
//	Pipeline is safe for concurrent use. Each Run owns its request state.
type Pipeline struct {
	method          restpf.Method
	builder         StateTreeBuilder
	generator       RepresentationGenerator
	bindings        Bindings
	logger          zerolog.Logger
	metrics         *Metrics
	callbackTimeout time.Duration
	maxConcurrency  int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger; the default discards everything.
func WithLogger(l zerolog.Logger) Option { return func(p *Pipeline) { p.logger = l } }

// WithMetrics records runs into m.
func WithMetrics(m *Metrics) Option { return func(p *Pipeline) { p.metrics = m } }

// WithCallbackTimeout bounds every callback invocation; zero disables it.
func WithCallbackTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.callbackTimeout = d }
}

// WithMaxConcurrency limits the callbacks running at once inside a batch;
// zero or less means no limit.
func WithMaxConcurrency(n int) Option { return func(p *Pipeline) { p.maxConcurrency = n } }

// WithBindings adds or replaces callback bindings.
func WithBindings(b Bindings) Option {
	return func(p *Pipeline) {
		if p.bindings == nil {
			p.bindings = Bindings{}
		}
		for k, v := range b {
			p.bindings[k] = v
		}
	}
}

// New creates a pipeline for method.
func New(method restpf.Method, builder StateTreeBuilder, generator RepresentationGenerator, opts ...Option) (*Pipeline, error) {
	if !method.Valid() {
		return nil, fmt.Errorf("pipeline: unknown method %q", method)
	}
	if builder == nil || generator == nil {
		return nil, errors.New("pipeline: builder and generator are required")
	}
	p := &Pipeline{
		method:    method,
		builder:   builder,
		generator: generator,
		logger:    zerolog.Nop(),
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

func (p *Pipeline) Method() restpf.Method { return p.method }

// Result describes a finished run.
type Result struct {
	RequestID string
	// Phase is PhaseDone or PhaseFailed; FailedIn names the phase that failed.
	Phase    Phase
	FailedIn Phase
	Input    ResourceState
	Output   ResourceState
	Merged   Merged
	Document Document
	Batches  int
	Executed int
	Duration time.Duration
}

// Run executes the pipeline for res. The returned Result is non-nil even on
// error and tells which phase failed.
func (p *Pipeline) Run(ctx context.Context, res *resource.Resource, raw Raw) (*Result, error) {
	if res == nil {
		return nil, ErrNilResource
	}
	req := &Request{
		ID:       uuid.NewString(),
		Method:   p.method,
		Resource: res,
		Raw:      raw,
		Vars:     callback.NewVars(),
	}

	ctx, span := tracer().Start(ctx, "restpf.Pipeline",
		trace.WithAttributes(
			attribute.String("restpf.resource", res.Name),
			attribute.String("restpf.method", string(p.method)),
			attribute.String("restpf.request_id", req.ID),
		),
	)
	defer span.End()

	r := &run{
		p:      p,
		req:    req,
		result: &Result{RequestID: req.ID},
		log: p.logger.With().
			Str("request_id", req.ID).
			Str("resource", res.Name).
			Str("method", string(p.method)).
			Logger(),
		phase:   PhaseIdle,
		entered: time.Now(),
	}
	start := r.entered
	r.log.Debug().Msg("pipeline started")

	err := r.execute(ctx)
	r.result.Duration = time.Since(start)
	p.metrics.observeRun(res.Name, string(p.method), r.result.Duration, err)

	if err != nil {
		r.result.FailedIn = r.phase
		r.enter(PhaseFailed)
		r.result.Phase = PhaseFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.log.Error().Err(err).Str("phase", r.result.FailedIn.String()).Msg("pipeline failed")
		return r.result, err
	}
	r.enter(PhaseDone)
	r.result.Phase = PhaseDone
	span.SetStatus(codes.Ok, "")
	r.log.Debug().
		Dur("duration", r.result.Duration).
		Int("batches", r.result.Batches).
		Int("executed", r.result.Executed).
		Msg("pipeline completed")
	return r.result, nil
}

// run is the state of one Pipeline.Run.
type run struct {
	p       *Pipeline
	req     *Request
	result  *Result
	log     zerolog.Logger
	phase   Phase
	entered time.Time
}

func (r *run) enter(next Phase) {
	now := time.Now()
	r.p.metrics.observePhase(r.phase, now.Sub(r.entered))
	r.log.Debug().Str("from", r.phase.String()).Str("to", next.String()).Msg("phase transition")
	r.phase = next
	r.entered = now
}

func (r *run) execute(ctx context.Context) error {
	p, req := r.p, r.req

	r.enter(PhaseBuildingInput)
	in, err := p.builder.BuildInput(ctx, req)
	if err != nil {
		return fmt.Errorf("build input: %w", err)
	}
	req.Input = in
	r.result.Input = in

	r.enter(PhaseValidatingInput)
	if err := validateSlots(in, p.method, "input"); err != nil {
		return err
	}

	r.enter(PhaseScheduling)
	batches, err := p.schedule(req)
	if err != nil {
		return err
	}
	r.result.Batches = len(batches)

	r.enter(PhaseExecuting)
	trees, err := r.executeBatches(ctx, batches)
	if err != nil {
		return err
	}

	r.enter(PhaseMergingOutput)
	var merged Merged
	if v, ok := trees[resource.Attributes].Merge(); ok {
		merged.Attributes = v
	}
	if v, ok := trees[resource.Relationships].Merge(); ok {
		merged.Relationships = v
	}
	r.result.Merged = merged

	r.enter(PhaseBuildingOutput)
	out, err := p.builder.BuildOutput(ctx, req, merged)
	if err != nil {
		return fmt.Errorf("build output: %w", err)
	}
	r.result.Output = out

	r.enter(PhaseValidatingOutput)
	if err := validateSlots(out, p.method, "output"); err != nil {
		return err
	}

	r.enter(PhaseRepresenting)
	doc, err := p.generator.Generate(ctx, req, out)
	if err != nil {
		return fmt.Errorf("represent: %w", err)
	}
	r.result.Document = doc
	return nil
}

// validateSlots validates every non-nil slot and reports each failing one as
// a *restpf.ValidationError.
func validateSlots(s ResourceState, m restpf.Method, stage string) error {
	var errs []error
	for _, slot := range []string{SlotResourceID, SlotAttributes, SlotRelationships} {
		st := s.Slot(slot)
		if st == nil {
			continue
		}
		if err := restpf.Validate(st, m); err != nil {
			iss, _ := restpf.AsIssues(err)
			errs = append(errs, &restpf.ValidationError{Stage: stage, Collection: slot, Issues: iss})
		}
	}
	return errors.Join(errs...)
}

func newTrees() map[string]*treestate.Tree {
	return map[string]*treestate.Tree{
		resource.Attributes:    treestate.New(),
		resource.Relationships: treestate.New(),
	}
}

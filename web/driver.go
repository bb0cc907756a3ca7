// Package web binds resources to HTTP routes with chi. Requests are decoded
// into pipeline.Raw values, run through the verb pipeline and the resulting
// document is written back as JSON.
package web

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	restpf "github.com/guxiaodai/restpf"
	"github.com/guxiaodai/restpf/pipeline"
	"github.com/guxiaodai/restpf/resource"
)

// ErrDuplicateResource is returned when a resource name is registered twice.
var ErrDuplicateResource = errors.New("resource already registered")

// Methods served for every resource, in route registration order.
var servedMethods = []restpf.Method{restpf.GET, restpf.POST, restpf.PUT, restpf.PATCH, restpf.DELETE}

// Driver routes HTTP requests to resource pipelines.
type Driver struct {
	mu        sync.Mutex
	router    chi.Router
	logger    zerolog.Logger
	pipelines map[restpf.Method]*pipeline.Pipeline
	resources map[string]*resource.Resource

	basePath     string
	metricsPath  string
	gatherer     prometheus.Gatherer
	pipelineOpts []pipeline.Option
	maxBodyBytes int64
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the request logger; it is also handed to the default
// pipelines.
func WithLogger(l zerolog.Logger) Option { return func(d *Driver) { d.logger = l } }

// WithPipeline replaces the pipeline of its method.
func WithPipeline(p *pipeline.Pipeline) Option {
	return func(d *Driver) { d.pipelines[p.Method()] = p }
}

// WithPipelineOptions adds options to the default pipelines.
func WithPipelineOptions(opts ...pipeline.Option) Option {
	return func(d *Driver) { d.pipelineOpts = append(d.pipelineOpts, opts...) }
}

// WithBasePath mounts resource routes under prefix.
func WithBasePath(prefix string) Option { return func(d *Driver) { d.basePath = prefix } }

// WithMetrics serves g in the Prometheus text format at path.
func WithMetrics(path string, g prometheus.Gatherer) Option {
	return func(d *Driver) {
		d.metricsPath = path
		d.gatherer = g
	}
}

// WithMaxBodyBytes limits request bodies; zero disables the limit.
func WithMaxBodyBytes(n int64) Option { return func(d *Driver) { d.maxBodyBytes = n } }

// NewDriver builds a driver with a pipeline for every served method that no
// WithPipeline option provides.
func NewDriver(opts ...Option) (*Driver, error) {
	d := &Driver{
		logger:       zerolog.Nop(),
		pipelines:    make(map[restpf.Method]*pipeline.Pipeline),
		resources:    make(map[string]*resource.Resource),
		maxBodyBytes: 1 << 20,
	}
	for _, o := range opts {
		o(d)
	}
	for _, m := range servedMethods {
		if _, ok := d.pipelines[m]; ok {
			continue
		}
		popts := append([]pipeline.Option{pipeline.WithLogger(d.logger)}, d.pipelineOpts...)
		p, err := pipeline.ForMethod(m, popts...)
		if err != nil {
			return nil, fmt.Errorf("pipeline %s: %w", m, err)
		}
		d.pipelines[m] = p
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(newLoggingMiddleware(d.logger))
	r.Use(middleware.Recoverer)
	if d.gatherer != nil && d.metricsPath != "" {
		r.Handle(d.metricsPath, promhttp.HandlerFor(d.gatherer, promhttp.HandlerOpts{}))
	}
	d.router = r
	return d, nil
}

// Handler returns the HTTP handler serving every registered resource.
func (d *Driver) Handler() http.Handler { return d.router }

// Resources returns the registered resource names.
func (d *Driver) Resources() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.resources))
	for name := range d.resources {
		out = append(out, name)
	}
	return out
}

// Register checks res and adds its routes:
//
//	GET, PUT, PATCH, DELETE {base}/{type}/{id}
//	POST                    {base}/{type}
func (d *Driver) Register(res *resource.Resource) error {
	if res == nil {
		return errors.New("register: nil resource")
	}
	if err := res.Check(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.resources[res.Name]; ok {
		return fmt.Errorf("register %s: %w", res.Name, ErrDuplicateResource)
	}
	d.resources[res.Name] = res

	base := d.basePath + "/" + res.Name
	d.router.Post(base, d.handle(res, restpf.POST, false))
	d.router.Get(base+"/{id}", d.handle(res, restpf.GET, true))
	d.router.Put(base+"/{id}", d.handle(res, restpf.PUT, true))
	d.router.Patch(base+"/{id}", d.handle(res, restpf.PATCH, true))
	d.router.Delete(base+"/{id}", d.handle(res, restpf.DELETE, true))

	d.logger.Info().Str("resource", res.Name).Str("path", base).Msg("resource registered")
	return nil
}

func (d *Driver) handle(res *resource.Resource, m restpf.Method, withID bool) http.HandlerFunc {
	p := d.pipelines[m]
	return func(w http.ResponseWriter, r *http.Request) {
		var raw pipeline.Raw
		if withID {
			id, err := parseID(res.ID, chi.URLParam(r, "id"))
			if err != nil {
				writeErrors(w, http.StatusNotFound, apiError{
					Status: http.StatusNotFound,
					Code:   "invalid_id",
					Title:  "Resource not found",
					Detail: err.Error(),
				})
				return
			}
			raw.ResourceID = id
		}
		if err := decodeRequest(r, d.maxBodyBytes, &raw); err != nil {
			writeErrors(w, http.StatusBadRequest, bodyErrors(err)...)
			return
		}

		start := time.Now()
		result, err := p.Run(r.Context(), res, raw)
		if err != nil {
			d.writeRunError(w, r, err)
			return
		}
		d.logger.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("run_id", result.RequestID).
			Dur("duration", time.Since(start)).
			Msg("pipeline run")

		switch {
		case result.Document == nil:
			w.WriteHeader(http.StatusNoContent)
		case m == restpf.POST:
			writeDocument(w, http.StatusCreated, result.Document)
		default:
			writeDocument(w, http.StatusOK, result.Document)
		}
	}
}

func (d *Driver) writeRunError(w http.ResponseWriter, r *http.Request, err error) {
	status, errs := errorResponse(err)
	ev := d.logger.Warn()
	if status >= http.StatusInternalServerError {
		ev = d.logger.Error()
	}
	ev.Err(err).
		Str("request_id", middleware.GetReqID(r.Context())).
		Int("status", status).
		Msg("request failed")
	writeErrors(w, status, errs...)
}

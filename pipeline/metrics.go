package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records pipeline runs for Prometheus scraping. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	runsTotal        *prometheus.CounterVec
	runDuration      *prometheus.HistogramVec
	phaseDuration    *prometheus.HistogramVec
	callbacksTotal   *prometheus.CounterVec
	callbackDuration *prometheus.HistogramVec
	batchSize        prometheus.Histogram
}

// DefaultBuckets returns default histogram buckets in seconds.
func DefaultBuckets() []float64 {
	return []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
}

// NewMetrics creates the pipeline collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer, prefix string) (*Metrics, error) {
	if prefix == "" {
		prefix = "restpf"
	}
	m := &Metrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_pipeline_runs_total",
				Help: "Pipeline runs by resource, method and outcome",
			},
			[]string{"resource", "method", "outcome"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_pipeline_duration_seconds",
				Help:    "Pipeline run duration in seconds",
				Buckets: DefaultBuckets(),
			},
			[]string{"resource", "method"},
		),
		phaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_pipeline_phase_duration_seconds",
				Help:    "Time spent in each pipeline phase",
				Buckets: DefaultBuckets(),
			},
			[]string{"phase"},
		),
		callbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_callbacks_total",
				Help: "Callback invocations by collection and outcome",
			},
			[]string{"resource", "method", "collection", "outcome"},
		),
		callbackDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_callback_duration_seconds",
				Help:    "Callback duration in seconds",
				Buckets: DefaultBuckets(),
			},
			[]string{"resource", "method", "collection"},
		),
		batchSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    prefix + "_batch_size",
				Help:    "Number of callbacks run concurrently in one batch",
				Buckets: prometheus.LinearBuckets(1, 2, 8),
			},
		),
	}
	for _, c := range []prometheus.Collector{
		m.runsTotal, m.runDuration, m.phaseDuration, m.callbacksTotal, m.callbackDuration, m.batchSize,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func (m *Metrics) observeRun(resource, method string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(resource, method, outcome(err)).Inc()
	m.runDuration.WithLabelValues(resource, method).Observe(d.Seconds())
}

func (m *Metrics) observePhase(p Phase, d time.Duration) {
	if m == nil {
		return
	}
	m.phaseDuration.WithLabelValues(p.String()).Observe(d.Seconds())
}

func (m *Metrics) observeCallback(resource, method, collection string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.callbacksTotal.WithLabelValues(resource, method, collection, outcome(err)).Inc()
	m.callbackDuration.WithLabelValues(resource, method, collection).Observe(d.Seconds())
}

func (m *Metrics) observeBatch(size int) {
	if m == nil {
		return
	}
	m.batchSize.Observe(float64(size))
}

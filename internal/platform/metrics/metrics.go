// Package metrics holds the Prometheus instruments for the diagnostic engine.
// A nil *Manager is valid and records nothing
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns a registry and the engine's instruments
type Manager struct {
	namespace string
	subsystem string
	buckets   []float64
	enabled   bool
	runtime   bool
	registry  *prometheus.Registry

	evaluations    *prometheus.CounterVec
	evalDuration   prometheus.Histogram
	degraded       *prometheus.CounterVec
	strikeActions  *prometheus.CounterVec
	pivots         prometheus.Counter
	normalizations *prometheus.CounterVec
	jobs           *prometheus.CounterVec
	llmRequests    *prometheus.CounterVec
	llmDuration    *prometheus.HistogramVec
	workerInflight prometheus.Gauge
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// New builds a Manager on its own registry
func New(opts ...Option) *Manager {
	m := &Manager{
		namespace: "atlas",
		subsystem: "diagnostics",
		buckets:   prometheus.DefBuckets,
		enabled:   true,
		runtime:   true,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}
	if m.runtime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	m.init()
	return m
}

func (m *Manager) init() {
	auto := promauto.With(m.registry)
	ns, sub := m.namespace, m.subsystem

	m.evaluations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: sub,
		Name: "evaluations_total",
		Help: "Completed evaluations by status color",
	}, []string{"color"})
	m.evalDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: ns, Subsystem: sub,
		Name:    "evaluation_duration_seconds",
		Help:    "Wall time of one evaluation pipeline run",
		Buckets: m.buckets,
	})
	m.degraded = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: sub,
		Name: "degraded_total",
		Help: "Evaluations that fell back because a dependency failed",
	}, []string{"dependency"})
	m.strikeActions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: sub,
		Name: "class_strike_actions_total",
		Help: "Class strike transitions by action",
	}, []string{"action"})
	m.pivots = auto.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Subsystem: sub,
		Name: "pivots_total",
		Help: "Pivot events recorded",
	})
	m.normalizations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: sub,
		Name: "topic_normalizations_total",
		Help: "Topic normalizations by method",
	}, []string{"method"})
	m.jobs = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: sub,
		Name: "jobs_total",
		Help: "Worker job results",
	}, []string{"result"})
	m.llmRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "llm",
		Name: "requests_total",
		Help: "LLM completions by provider and outcome",
	}, []string{"provider", "outcome"})
	m.llmDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns, Subsystem: "llm",
		Name:    "request_duration_seconds",
		Help:    "LLM completion latency",
		Buckets: m.buckets,
	}, []string{"provider"})
	m.workerInflight = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: ns, Subsystem: sub,
		Name: "worker_inflight",
		Help: "Jobs currently being processed",
	})
	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "http",
		Name: "requests_total",
		Help: "HTTP requests by route pattern and status code",
	}, []string{"method", "route", "code"})
	m.httpDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns, Subsystem: "http",
		Name:    "request_duration_seconds",
		Help:    "HTTP handler latency by route pattern",
		Buckets: m.buckets,
	}, []string{"route"})
}

func (m *Manager) on() bool { return m != nil && m.enabled }

// Evaluation records a finished pipeline run
func (m *Manager) Evaluation(color string, took time.Duration) {
	if !m.on() {
		return
	}
	m.evaluations.WithLabelValues(color).Inc()
	m.evalDuration.Observe(took.Seconds())
}

// Degraded counts a fallback for dependency
func (m *Manager) Degraded(dependency string) {
	if m.on() {
		m.degraded.WithLabelValues(dependency).Inc()
	}
}

// StrikeAction counts a class strike transition; force_pivot also counts a pivot
func (m *Manager) StrikeAction(action string, pivot bool) {
	if !m.on() {
		return
	}
	m.strikeActions.WithLabelValues(action).Inc()
	if pivot {
		m.pivots.Inc()
	}
}

// Normalization counts a topic normalization
func (m *Manager) Normalization(method string) {
	if m.on() {
		m.normalizations.WithLabelValues(method).Inc()
	}
}

// Job counts a worker result: done, retry, dropped
func (m *Manager) Job(result string) {
	if m.on() {
		m.jobs.WithLabelValues(result).Inc()
	}
}

// Inflight moves the in-flight job gauge by delta
func (m *Manager) Inflight(delta int) {
	if m.on() {
		m.workerInflight.Add(float64(delta))
	}
}

// ObserveLLM records one completion
func (m *Manager) ObserveLLM(provider, outcome string, took time.Duration) {
	if !m.on() {
		return
	}
	m.llmRequests.WithLabelValues(provider, outcome).Inc()
	m.llmDuration.WithLabelValues(provider).Observe(took.Seconds())
}

// HTTPRequest records one served request; route is the matched pattern, not the raw path
func (m *Manager) HTTPRequest(method, route string, status int, took time.Duration) {
	if !m.on() {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(took.Seconds())
}

// Registry exposes the underlying registry, mostly for tests
func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

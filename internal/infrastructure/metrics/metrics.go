package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garyjia/approval-ledger/internal/application/dispatcher"
	"github.com/garyjia/approval-ledger/internal/domain/event"
)

// Config controls metric collection
type Config struct {
	Enabled   bool
	Namespace string
	Path      string
}

// Metrics provides Prometheus metrics for the ledger. A disabled instance
// accepts every call and records nothing.
type Metrics struct {
	config Config

	workflowsCreated    prometheus.Counter
	transitions         *prometheus.CounterVec
	workflowsCompleted  *prometheus.CounterVec
	transitionsRejected *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
	verifications       *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates the collectors on a private registry
func New(cfg Config) *Metrics {
	if !cfg.Enabled {
		return &Metrics{config: cfg}
	}

	ns := cfg.Namespace
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		workflowsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "workflows_created_total",
			Help:      "Total number of workflows created",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "transitions_total",
			Help:      "Total number of committed state transitions",
		}, []string{"from_state", "to_state"}),
		workflowsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "workflows_completed_total",
			Help:      "Total number of workflows that reached a terminal state",
		}, []string{"state"}),
		transitionsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "transitions_rejected_total",
			Help:      "Total number of transition calls that failed",
		}, []string{"reason"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of API requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "integrity_checks_total",
			Help:      "Workflows whose history was replayed against the stored record",
		}, []string{"result"}),
	}

	registry.MustRegister(
		m.workflowsCreated,
		m.transitions,
		m.workflowsCompleted,
		m.transitionsRejected,
		m.httpDuration,
		m.verifications,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Enabled reports whether metrics are collected
func (m *Metrics) Enabled() bool {
	return m.registry != nil
}

// Path is where the handler should be mounted
func (m *Metrics) Path() string {
	if m.config.Path == "" {
		return "/metrics"
	}
	return m.config.Path
}

// Subscribe registers the recorder for every ledger event
func (m *Metrics) Subscribe(d dispatcher.Dispatcher) {
	if !m.Enabled() {
		return
	}
	d.SubscribeAll("metrics", m.HandleEvent)
}

// HandleEvent updates counters from a ledger event
func (m *Metrics) HandleEvent(_ context.Context, evt *event.Event) error {
	if !m.Enabled() {
		return nil
	}
	switch evt.Type {
	case event.TypeWorkflowCreated:
		m.workflowsCreated.Inc()
	case event.TypeWorkflowTransitioned:
		m.transitions.WithLabelValues(
			evt.GetPayloadString(event.KeyFromState),
			evt.GetPayloadString(event.KeyToState),
		).Inc()
	case event.TypeWorkflowCompleted:
		m.workflowsCompleted.WithLabelValues(evt.GetPayloadString(event.KeyToState)).Inc()
	case event.TypeTransitionRejected:
		m.transitionsRejected.WithLabelValues(evt.GetPayloadString(event.KeyReason)).Inc()
	}
	return nil
}

// ObserveRequest records one API request
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if !m.Enabled() {
		return
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// ObserveVerification records the outcome of one integrity check
func (m *Metrics) ObserveVerification(err error) {
	if !m.Enabled() {
		return
	}
	result := "ok"
	if err != nil {
		result = "mismatch"
	}
	m.verifications.WithLabelValues(result).Inc()
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

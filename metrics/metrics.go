package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry         *prometheus.Registry
	passRuns         *prometheus.CounterVec // reconciliation passes
	passDuration     prometheus.Histogram   // time per pass
	resolveAttempts  *prometheus.CounterVec // discovery endpoint attempts
	providerRequests *prometheus.CounterVec // dns provider requests
	recordOutcomes   *prometheus.CounterVec // per-target outcomes
	stateRequests    *prometheus.CounterVec // badgerdb requests
}

// Public interface for metrics operations
func (m *Metrics) IncPassRun(success bool) {
	m.passRuns.WithLabelValues(boolToResult(success)).Inc()
}

func (m *Metrics) SetPassDuration(duration time.Duration) {
	m.passDuration.Observe(duration.Seconds())
}

func (m *Metrics) IncResolveAttempt(version string, success bool) {
	m.resolveAttempts.WithLabelValues(version, boolToResult(success)).Inc()
}

func (m *Metrics) IncProviderRequest(operation string, success bool) {
	if !isValidOperation(operation) {
		return
	}
	m.providerRequests.WithLabelValues(operation, boolToResult(success)).Inc()
}

func (m *Metrics) IncRecordOutcome(outcome string) {
	m.recordOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncStateRequest(success bool) {
	m.stateRequests.WithLabelValues(boolToResult(success)).Inc()
}

func boolToResult(b bool) string {
	if b {
		return "success"
	}
	return "failure"
}

func isValidOperation(op string) bool {
	switch op {
	case "read", "create", "update":
		return true
	}
	return false
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	namespace := "ddns_sync"

	m := &Metrics{
		registry: registry,

		passRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pass_runs_total",
			Help:      "Total number of reconciliation passes",
		}, []string{"status"}),

		passDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Duration of reconciliation passes in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		resolveAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolve_attempts_total",
			Help:      "Total public address discovery attempts",
		}, []string{"version", "status"}),

		providerRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Total DNS provider requests",
		}, []string{"operation", "status"}),

		recordOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "record_outcomes_total",
			Help:      "Per-target reconciliation outcomes",
		}, []string{"outcome"}),

		stateRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "badgerdb_requests_total",
			Help:      "Total badgerdb requests",
		}, []string{"status"}),
	}

	registry.MustRegister(
		m.passRuns,
		m.passDuration,
		m.resolveAttempts,
		m.providerRequests,
		m.recordOutcomes,
		m.stateRequests,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

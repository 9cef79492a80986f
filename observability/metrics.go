package observability

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type moduleMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

// CourtMetrics tracks dispute engine actions executed by the node.
type CourtMetrics struct {
	actions    *prometheus.CounterVec
	failures   *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	outcomes   *prometheus.CounterVec
	settlement *prometheus.CounterVec
	commits    prometheus.Counter
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	courtMetricsOnce sync.Once
	courtRegistry    *CourtMetrics
)

// ModuleMetrics returns the lazily-initialised registry used to record HTTP
// API activity.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "agora",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total API requests segmented by module and method.",
			}, []string{"module", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "agora",
				Subsystem: "rpc",
				Name:      "errors_total",
				Help:      "Total API errors segmented by module, method, and status code.",
			}, []string{"module", "method", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "agora",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for API handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "agora",
				Subsystem: "rpc",
				Name:      "throttles_total",
				Help:      "Count of API requests rejected due to throttling policies.",
			}, []string{"module", "reason"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
			moduleRegistry.throttles,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of an API request. The status code should be
// the HTTP status that was ultimately written to the response writer.
func (m *moduleMetrics) Observe(module, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if status >= 400 {
		outcome = "error"
	}
	m.requests.WithLabelValues(module, method, outcome).Inc()
	if status >= 400 {
		m.errors.WithLabelValues(module, method, fmt.Sprintf("%d", status)).Inc()
	}
	m.latency.WithLabelValues(module, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter for the supplied module and
// reason.
func (m *moduleMetrics) RecordThrottle(module, reason string) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(module, reason).Inc()
}

// Court returns the singleton registry for dispute engine metrics.
func Court() *CourtMetrics {
	courtMetricsOnce.Do(func() {
		courtRegistry = &CourtMetrics{
			actions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "agora",
				Subsystem: "court",
				Name:      "actions_total",
				Help:      "Count of court actions segmented by action and result.",
			}, []string{"action", "result"}),
			failures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "agora",
				Subsystem: "court",
				Name:      "action_failures_total",
				Help:      "Count of rejected court actions segmented by action and error kind.",
			}, []string{"action", "kind"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "agora",
				Subsystem: "court",
				Name:      "action_duration_seconds",
				Help:      "Latency distribution for court actions including commit.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"action"}),
			outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "agora",
				Subsystem: "court",
				Name:      "dispute_outcomes_total",
				Help:      "Count of resolved disputes segmented by outcome.",
			}, []string{"outcome"}),
			settlement: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "agora",
				Subsystem: "court",
				Name:      "settlement_volume_total",
				Help:      "Token units released from dispute vaults segmented by asset and reason.",
			}, []string{"asset", "reason"}),
			commits: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "agora",
				Subsystem: "state",
				Name:      "commits_total",
				Help:      "Count of state commits that changed the root.",
			}),
		}
		prometheus.MustRegister(
			courtRegistry.actions,
			courtRegistry.failures,
			courtRegistry.latency,
			courtRegistry.outcomes,
			courtRegistry.settlement,
			courtRegistry.commits,
		)
	})
	return courtRegistry
}

// ObserveAction records an executed action. kind is empty on success.
func (m *CourtMetrics) ObserveAction(action, kind string, duration time.Duration) {
	if m == nil {
		return
	}
	result := "committed"
	if kind != "" {
		result = "rejected"
		m.failures.WithLabelValues(action, kind).Inc()
	}
	m.actions.WithLabelValues(action, result).Inc()
	m.latency.WithLabelValues(action).Observe(duration.Seconds())
}

// RecordOutcome increments the resolved dispute counter.
func (m *CourtMetrics) RecordOutcome(outcome string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(outcome).Inc()
}

// RecordSettlement adds released vault units.
func (m *CourtMetrics) RecordSettlement(asset, reason string, amount uint64) {
	if m == nil || amount == 0 {
		return
	}
	m.settlement.WithLabelValues(asset, reason).Add(float64(amount))
}

// RecordCommit increments the state commit counter.
func (m *CourtMetrics) RecordCommit() {
	if m == nil {
		return
	}
	m.commits.Inc()
}

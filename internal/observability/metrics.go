package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpRequestsTotal     *prometheus.CounterVec
	httpLatencySeconds    *prometheus.HistogramVec
	remoteRequestsTotal   *prometheus.CounterVec
	remoteLatencySeconds  *prometheus.HistogramVec
	submissionsTotal      *prometheus.CounterVec
	evidenceRefsTotal     *prometheus.CounterVec
	replaysTotal          *prometheus.CounterVec
	pendingEntries        prometheus.Gauge
	eventSubscribersGauge prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used by the companion.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skp_http_requests_total",
			Help: "Total number of companion API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "skp_http_latency_seconds",
			Help:    "Latency distribution for companion API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		}, []string{"method", "route"})

		remoteRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skp_remote_requests_total",
			Help: "Requests sent to the remote SKP service by path and answer.",
		}, []string{"method", "path", "status"})

		remoteLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "skp_remote_latency_seconds",
			Help:    "Latency distribution of remote SKP service calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"})

		submissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skp_submissions_total",
			Help: "Activity claim submissions by outcome and failure class.",
		}, []string{"outcome", "failure"})

		evidenceRefsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skp_evidence_references_total",
			Help: "Evidence references produced by kind.",
		}, []string{"kind"})

		replaysTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "skp_pending_replays_total",
			Help: "Pending submission replay attempts by result.",
		}, []string{"result"})

		pendingEntries = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "skp_pending_entries",
			Help: "Number of claims waiting in the local pending queue.",
		})

		eventSubscribersGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "skp_event_subscribers",
			Help: "Active pending-queue event stream subscribers.",
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			remoteRequestsTotal,
			remoteLatencySeconds,
			submissionsTotal,
			evidenceRefsTotal,
			replaysTotal,
			pendingEntries,
			eventSubscribersGauge,
		)
	})
}

// HTTPRequests exposes the counter for companion API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for companion API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// RemoteRequests exposes the counter for outgoing remote calls.
func RemoteRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return remoteRequestsTotal
}

// RemoteLatency exposes the latency histogram for outgoing remote calls.
func RemoteLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return remoteLatencySeconds
}

// Submissions exposes the submission outcome counter.
func Submissions() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsTotal
}

// EvidenceReferences exposes the evidence reference counter.
func EvidenceReferences() *prometheus.CounterVec {
	RegisterMetrics()
	return evidenceRefsTotal
}

// Replays exposes the pending replay counter.
func Replays() *prometheus.CounterVec {
	RegisterMetrics()
	return replaysTotal
}

// PendingEntries exposes the pending queue size gauge.
func PendingEntries() prometheus.Gauge {
	RegisterMetrics()
	return pendingEntries
}

// EventSubscribers exposes the live event stream subscriber gauge.
func EventSubscribers() prometheus.Gauge {
	RegisterMetrics()
	return eventSubscribersGauge
}

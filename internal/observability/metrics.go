package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequestsTotal  *prometheus.CounterVec
	httpLatencySeconds *prometheus.HistogramVec
	httpErrorsTotal    *prometheus.CounterVec

	lifecycleTransitionsTotal *prometheus.CounterVec
	badgeChangesTotal         *prometheus.CounterVec
	sweepExpiredTotal         prometheus.Counter
	sweepRunsTotal            *prometheus.CounterVec
	changeEventsTotal         *prometheus.CounterVec
	streamClients             prometheus.Gauge
	uploadsTotal              *prometheus.CounterVec
	uploadLatencySeconds      prometheus.Histogram
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "syncmind_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "syncmind_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "syncmind_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		lifecycleTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "syncmind_assignment_transitions_total",
			Help: "Accepted assignment lifecycle transitions.",
		}, []string{"event", "kind"})

		badgeChangesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "syncmind_badge_changes_total",
			Help: "Badge ledger changes by direction and highest tier reached.",
		}, []string{"direction", "tier"})

		sweepExpiredTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "syncmind_sweep_expired_total",
			Help: "Assignments completed by the deadline sweep.",
		})

		sweepRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "syncmind_sweep_runs_total",
			Help: "Deadline sweep runs by result.",
		}, []string{"result"})

		changeEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "syncmind_change_events_total",
			Help: "Change events published to subscribers.",
		}, []string{"table", "source"})

		streamClients = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "syncmind_stream_clients",
			Help: "Currently connected change feed clients.",
		})

		uploadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "syncmind_resource_uploads_total",
			Help: "Resource uploads by outcome.",
		}, []string{"outcome"})

		uploadLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "syncmind_resource_upload_latency_seconds",
			Help:    "Latency of resource uploads including storage.",
			Buckets: prometheus.DefBuckets,
		})

		prometheus.MustRegister(
			httpRequestsTotal, httpLatencySeconds, httpErrorsTotal,
			lifecycleTransitionsTotal, badgeChangesTotal,
			sweepExpiredTotal, sweepRunsTotal,
			changeEventsTotal, streamClients,
			uploadsTotal, uploadLatencySeconds,
		)
	})
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the error response counter.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// LifecycleTransitions counts accepted transitions by event and assignment kind.
func LifecycleTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return lifecycleTransitionsTotal
}

// BadgeChanges counts ledger updates.
func BadgeChanges() *prometheus.CounterVec {
	RegisterMetrics()
	return badgeChangesTotal
}

// SweepExpired counts assignments the sweep completed by deadline.
func SweepExpired() prometheus.Counter {
	RegisterMetrics()
	return sweepExpiredTotal
}

// SweepRuns counts sweep runs by result.
func SweepRuns() *prometheus.CounterVec {
	RegisterMetrics()
	return sweepRunsTotal
}

// ChangeEvents counts published change events.
func ChangeEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return changeEventsTotal
}

// StreamClients tracks connected SSE and WebSocket clients.
func StreamClients() prometheus.Gauge {
	RegisterMetrics()
	return streamClients
}

// Uploads counts resource uploads by outcome.
func Uploads() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadsTotal
}

// UploadLatency observes resource upload duration.
func UploadLatency() prometheus.Histogram {
	RegisterMetrics()
	return uploadLatencySeconds
}

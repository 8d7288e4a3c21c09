package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce              sync.Once
	gatewayRequestsTotal      *prometheus.CounterVec
	gatewayLatencySeconds     *prometheus.HistogramVec
	gatewayErrorsTotal        *prometheus.CounterVec
	notificationsEmittedTotal *prometheus.CounterVec
	notificationsExpiredTotal prometheus.Counter
	streamClientsActive       prometheus.Gauge
	pollTransitionsTotal      *prometheus.CounterVec
	intakeFilesTotal          *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used for gateway observability.
func RegisterMetrics() {
	registerOnce.Do(func() {
		gatewayRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "praxis_gateway_requests_total",
			Help: "Total number of gateway API requests served.",
		}, []string{"method", "route", "status"})

		gatewayLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "praxis_gateway_latency_seconds",
			Help:    "Latency distribution for gateway API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		gatewayErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "praxis_gateway_errors_total",
			Help: "Total number of error responses returned by gateway endpoints.",
		}, []string{"method", "route", "status"})

		notificationsEmittedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "praxis_notifications_emitted_total",
			Help: "Total number of notifications published to student feeds.",
		}, []string{"kind"})

		notificationsExpiredTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "praxis_notifications_expired_total",
			Help: "Total number of notifications removed by TTL expiry.",
		})

		streamClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "praxis_stream_clients_active",
			Help: "Number of clients currently subscribed to notification streams.",
		})

		pollTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "praxis_status_transitions_total",
			Help: "Total number of approval status transitions observed by refreshes.",
		}, []string{"status"})

		intakeFilesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "praxis_intake_files_total",
			Help: "Total number of files handled by the submission intake flow.",
		}, []string{"flow", "outcome"})

		prometheus.MustRegister(
			gatewayRequestsTotal,
			gatewayLatencySeconds,
			gatewayErrorsTotal,
			notificationsEmittedTotal,
			notificationsExpiredTotal,
			streamClientsActive,
			pollTransitionsTotal,
			intakeFilesTotal,
		)
	})
}

// GatewayRequests exposes the counter for gateway requests.
func GatewayRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return gatewayRequestsTotal
}

// GatewayLatency exposes the latency histogram for gateway requests.
func GatewayLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return gatewayLatencySeconds
}

// GatewayErrors exposes the counter for gateway error responses.
func GatewayErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return gatewayErrorsTotal
}

// NotificationsEmitted exposes the counter for published notifications.
func NotificationsEmitted() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsEmittedTotal
}

// NotificationsExpired exposes the counter for TTL-expired notifications.
func NotificationsExpired() prometheus.Counter {
	RegisterMetrics()
	return notificationsExpiredTotal
}

// StreamClientsActive exposes the gauge of live stream subscribers.
func StreamClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return streamClientsActive
}

// PollTransitions exposes the counter for observed approval transitions.
func PollTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return pollTransitionsTotal
}

// IntakeFiles exposes the counter for intake file outcomes.
func IntakeFiles() *prometheus.CounterVec {
	RegisterMetrics()
	return intakeFilesTotal
}

// Package metrics declares the Prometheus collectors exported by pacto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector. Build one per registry with New.
type Metrics struct {
	// Lifecycle
	PactEvents             *prometheus.CounterVec
	ActivityAppendFailures prometheus.Counter

	// Delivery
	NotificationsSent    *prometheus.CounterVec
	NotificationFailures *prometheus.CounterVec
	NotificationsDropped prometheus.Counter
	DeviceTokensPruned   prometheus.Counter

	// Overdue sweep
	OverdueScans    prometheus.Counter
	OverdueNotified prometheus.Counter

	// HTTP
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{}

	m.PactEvents = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pacto_pact_events_total",
			Help: "activity entries emitted by the lifecycle engine, by type",
		},
		[]string{"type"},
	)
	m.ActivityAppendFailures = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "pacto_activity_append_failures_total",
			Help: "activity entries lost after exhausting retries",
		},
	)

	m.NotificationsSent = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pacto_notifications_sent_total",
			Help: "push messages accepted by the delivery service, by platform",
		},
		[]string{"platform"},
	)
	m.NotificationFailures = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pacto_notification_failures_total",
			Help: "push messages that failed to deliver, by platform",
		},
		[]string{"platform"},
	)
	m.NotificationsDropped = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "pacto_notifications_dropped_total",
			Help: "messages dropped because the notify queue was full",
		},
	)
	m.DeviceTokensPruned = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "pacto_device_tokens_pruned_total",
			Help: "device tokens deleted after the push service rejected them",
		},
	)

	m.OverdueScans = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "pacto_overdue_scans_total",
			Help: "overdue sweeps executed",
		},
	)
	m.OverdueNotified = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "pacto_overdue_notified_total",
			Help: "overdue notifications sent to assignees",
		},
	)

	m.HTTPRequests = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pacto_http_requests_total",
			Help: "HTTP requests served, by method and status code",
		},
		[]string{"method", "code"},
	)
	m.HTTPDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pacto_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	return m
}

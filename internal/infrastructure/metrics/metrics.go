package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Newsletter-API Metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "newsletter_api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jan",
			Subsystem: "newsletter_api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	IssuesPublishedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "newsletter_api",
			Name:      "issues_published_total",
			Help:      "Newsletter issues created",
		},
	)

	DeliveriesEnqueuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "newsletter_api",
			Name:      "deliveries_enqueued_total",
			Help:      "Delivery tasks written to the queue",
		},
	)

	// Idempotency outcomes: executed, replayed, conflict
	IdempotencyOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "newsletter_api",
			Name:      "idempotency_outcomes_total",
			Help:      "Idempotent command outcomes",
		},
		[]string{"outcome"},
	)

	// Delivery outcomes: completed, failed, empty, error
	DeliveryOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jan",
			Subsystem: "newsletter_api",
			Name:      "delivery_outcomes_total",
			Help:      "Delivery worker iteration outcomes",
		},
		[]string{"outcome"},
	)

	DeliveryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "jan",
			Subsystem: "newsletter_api",
			Name:      "delivery_duration_seconds",
			Help:      "Duration of one delivery worker iteration",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)

	// Queue depth gauge
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "jan",
			Subsystem: "newsletter_api",
			Name:      "queue_depth",
			Help:      "Pending delivery tasks",
		},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordPublish records a newly created issue and its enqueued tasks
func RecordPublish(enqueued int64) {
	IssuesPublishedTotal.Inc()
	DeliveriesEnqueuedTotal.Add(float64(enqueued))
}

// RecordIdempotency records how an idempotent command was resolved
func RecordIdempotency(outcome string) {
	IdempotencyOutcomesTotal.WithLabelValues(outcome).Inc()
}

// RecordDelivery records one worker iteration
func RecordDelivery(outcome string, durationSec float64) {
	DeliveryOutcomesTotal.WithLabelValues(outcome).Inc()
	DeliveryDuration.Observe(durationSec)
}

// SetQueueDepth sets the current queue depth
func SetQueueDepth(depth int64) {
	QueueDepth.Set(float64(depth))
}

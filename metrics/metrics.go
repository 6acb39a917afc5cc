// Package metrics holds the Prometheus collectors of the analytics API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsAccepted counts persisted analytics events by event type.
	EventsAccepted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_events_accepted_total",
			Help: "Total number of analytics events persisted",
		},
		[]string{"event_type"},
	)

	// BatchesRejected counts ingestion batches refused before any write.
	// Labels:
	//   - reason: "shape", "invalid_item", "store_error"
	BatchesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_batches_rejected_total",
			Help: "Total number of analytics batches rejected",
		},
		[]string{"reason"},
	)

	// SummaryDuration measures one summary build, scan included.
	SummaryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analytics_summary_duration_seconds",
			Help:    "Duration of analytics summary builds in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"kind"},
	)

	// SummaryEventsScanned counts events folded into summaries.
	SummaryEventsScanned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_summary_events_scanned_total",
			Help: "Total number of events scanned while building summaries",
		},
		[]string{"kind"},
	)
)

// ObserveSummary records one finished summary build of the given kind.
func ObserveSummary(kind string, started time.Time, scanned int) {
	SummaryDuration.WithLabelValues(kind).Observe(time.Since(started).Seconds())
	SummaryEventsScanned.WithLabelValues(kind).Add(float64(scanned))
}

// ObserveAccepted records a persisted batch.
func ObserveAccepted(eventTypes []string) {
	for _, t := range eventTypes {
		EventsAccepted.WithLabelValues(t).Inc()
	}
}

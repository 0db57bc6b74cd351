// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PaymentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_created_total",
		Help: "Payments accepted by intake.",
	})

	ValidationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_validation_failures_total",
		Help: "Intake requests rejected by validation, by field.",
	}, []string{"field"})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_events_published_total",
		Help: "Events handed to the bus, by topic.",
	}, []string{"topic"})

	PaymentsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_processed_total",
		Help: "Payments that completed the simulated acquirer round-trip.",
	})
)

// Package metrics holds the Prometheus collectors of the booking service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slotbook_booking_operations_total",
			Help: "Booking operations by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	BookingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "slotbook_booking_operation_duration_seconds",
			Help:    "Latency of booking operations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	SlotClaimConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "slotbook_slot_claim_conflicts_total",
			Help: "Conditional slot claims that matched no row.",
		},
	)

	SlotsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slotbook_slots_created_total",
			Help: "Slots created by source (single, bulk, generated).",
		},
		[]string{"source"},
	)

	TxRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "slotbook_tx_retries_total",
			Help: "Transactions restarted after a serialization failure or deadlock.",
		},
	)

	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slotbook_cache_requests_total",
			Help: "Read-through cache lookups by result (hit, miss, error).",
		},
		[]string{"result"},
	)

	CacheInvalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "slotbook_cache_invalidations_total",
			Help: "Cache scopes invalidated after committed writes.",
		},
	)

	RemindersProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slotbook_reminders_processed_total",
			Help: "Reminders dispatched by channel and result.",
		},
		[]string{"channel", "result"},
	)

	NotificationsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slotbook_notifications_published_total",
			Help: "Booking lifecycle events by type and result.",
		},
		[]string{"event", "result"},
	)
)

// ObserveBooking records the outcome and latency of a booking operation.
func ObserveBooking(op string, start time.Time, outcome string) {
	BookingOperations.WithLabelValues(op, outcome).Inc()
	BookingDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

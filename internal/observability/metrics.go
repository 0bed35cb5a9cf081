package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wb_requests_total",
			Help: "Total number of requests",
		},
		[]string{"route", "code", "method"},
	)

	AvailabilityDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wb_availability_seconds",
			Help:    "Duration of availability computations",
			Buckets: prometheus.DefBuckets,
		},
	)

	DBTxDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wb_db_tx_seconds",
			Help:    "Duration of DB transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	DBTxRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wb_db_tx_retries_total",
			Help: "Transactions retried after a serialization failure",
		},
	)

	BookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wb_bookings_created_total",
			Help: "Bookings created",
		},
	)

	SlotConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wb_slot_conflicts_total",
			Help: "Booking attempts rejected because the slot was taken",
		},
	)

	LocksAcquired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wb_locks_acquired_total",
			Help: "Reservation locks acquired",
		},
	)

	LocksPurged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wb_locks_purged_total",
			Help: "Expired reservation locks deleted by the sweeper",
		},
	)

	OutboxLag = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wb_outbox_lag_seconds",
			Help: "Age of the oldest outbox record published in the last batch",
		},
	)

	RabbitPublishRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wb_rabbit_publish_retries_total",
			Help: "Total rabbit publish retries",
		},
	)

	RateLimitExceeded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wb_rate_limit_exceeded_total",
			Help: "Total rate limit exceeded",
		},
	)
)

var registerOnce sync.Once

func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestsTotal,
			AvailabilityDuration,
			DBTxDuration,
			DBTxRetries,
			BookingsCreated,
			SlotConflicts,
			LocksAcquired,
			LocksPurged,
			OutboxLag,
			RabbitPublishRetries,
			RateLimitExceeded,
		)
	})
}

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rentero",
			Name:      "booking_created_total",
			Help:      "Count of bookings created by channel.",
		},
		[]string{"source"},
	)

	bookingConflict = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rentero",
			Name:      "booking_conflict_total",
			Help:      "Count of booking requests rejected due to date conflicts.",
		},
	)

	liquidationComputed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rentero",
			Name:      "liquidation_computed_total",
			Help:      "Count of monthly liquidations computed by grouping type.",
		},
		[]string{"type"},
	)

	malformedRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rentero",
			Name:      "malformed_rows_total",
			Help:      "Count of malformed rows skipped during aggregation.",
		},
		[]string{"kind"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rentero",
			Name:      "http_requests_total",
			Help:      "Count of HTTP API requests by handler.",
		},
		[]string{"handler"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingCreated, bookingConflict, liquidationComputed, malformedRows, httpRequests)
	})
}

func IncBookingCreated(source string) {
	bookingCreated.WithLabelValues(source).Inc()
}

func IncBookingConflict() {
	bookingConflict.Inc()
}

func IncLiquidationComputed(typ string) {
	liquidationComputed.WithLabelValues(typ).Inc()
}

func IncMalformedRows(kind string, n int) {
	malformedRows.WithLabelValues(kind).Add(float64(n))
}

func IncHTTP(handler string) {
	httpRequests.WithLabelValues(handler).Inc()
}

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotwise",
			Name:      "http_requests_total",
			Help:      "Count of HTTP API requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	bookingCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotwise",
			Name:      "booking_created_total",
			Help:      "Count of booking create attempts by outcome.",
		},
		[]string{"outcome"},
	)

	bookingCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "slotwise",
			Name:      "booking_cancelled_total",
			Help:      "Count of bookings cancelled.",
		},
	)

	bookingRescheduled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotwise",
			Name:      "booking_rescheduled_total",
			Help:      "Count of booking reschedule attempts by outcome.",
		},
		[]string{"outcome"},
	)

	slotRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "slotwise",
			Name:      "slot_requests_total",
			Help:      "Count of slot listing computations.",
		},
	)

	providerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotwise",
			Name:      "provider_failures_total",
			Help:      "Count of failed external provider calls by provider and operation.",
		},
		[]string{"provider", "op"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests, bookingCreated, bookingCancelled,
			bookingRescheduled, slotRequests, providerFailures,
		)
	})
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncBookingCreated(outcome string) {
	bookingCreated.WithLabelValues(outcome).Inc()
}

func IncBookingCancelled() {
	bookingCancelled.Inc()
}

func IncBookingRescheduled(outcome string) {
	bookingRescheduled.WithLabelValues(outcome).Inc()
}

func IncSlotRequest() {
	slotRequests.Inc()
}

func IncProviderFailure(provider, op string) {
	providerFailures.WithLabelValues(provider, op).Inc()
}

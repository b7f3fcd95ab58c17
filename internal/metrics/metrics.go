package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bookline",
			Name:      "bookings_created_total",
			Help:      "Bookings accepted by the orchestrator.",
		},
	)

	bookingRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookline",
			Name:      "booking_rejections_total",
			Help:      "Booking rejections by code.",
		},
		[]string{"code"},
	)

	schedulesGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bookline",
			Name:      "schedules_generated_total",
			Help:      "Schedules created by the recurring generator.",
		},
	)

	settlements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookline",
			Name:      "payment_settlements_total",
			Help:      "Payment callbacks applied by result.",
		},
		[]string{"result"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookline",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			bookingsCreated,
			bookingRejections,
			schedulesGenerated,
			settlements,
			httpRequests,
		)
	})
}

// IncBookingCreated counts an accepted booking.
func IncBookingCreated() {
	bookingsCreated.Inc()
}

// IncBookingRejected counts a rejection by its code label.
func IncBookingRejected(code string) {
	bookingRejections.WithLabelValues(code).Inc()
}

// AddSchedulesGenerated counts schedules created in one bulk run.
func AddSchedulesGenerated(n int) {
	schedulesGenerated.Add(float64(n))
}

// IncSettlement counts one processed payment callback.
func IncSettlement(result string) {
	settlements.WithLabelValues(result).Inc()
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BookingsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediconnect_bookings_total",
		Help: "Appointments successfully booked.",
	})

	BookingConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediconnect_booking_conflicts_total",
		Help: "Booking attempts rejected because the slot was taken or unavailable.",
	})

	CancellationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediconnect_cancellations_total",
		Help: "Appointments cancelled.",
	})

	SlotsGeneratedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediconnect_slots_generated_total",
		Help: "Time slots created by the generator.",
	})
)

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

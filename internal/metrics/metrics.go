package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "busbooking"

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status code.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	BookingHolds = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "booking_holds_total",
		Help:      "Seat hold attempts by outcome (created, conflict, error).",
	}, []string{"outcome"})

	Settlements = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "settlements_total",
		Help:      "Payment settlements by outcome (settled, rejected, error).",
	}, []string{"outcome"})

	SweepTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sweep_transitions_total",
		Help:      "Bookings moved by the background sweeper, by job.",
	}, []string{"job"})

	SweepFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sweep_failures_total",
		Help:      "Failed sweeper passes, by job.",
	}, []string{"job"})

	RouteSearchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "route_search_duration_seconds",
		Help:      "Wall time of route searches.",
		Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	TicketsRendered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tickets_rendered_total",
		Help:      "E-ticket render attempts by outcome.",
	}, []string{"outcome"})
)

func ObserveSince(h prometheus.Observer, started time.Time) {
	h.Observe(time.Since(started).Seconds())
}

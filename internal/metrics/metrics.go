package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BookingMetrics exposes counters/histograms for the booking flows.
type BookingMetrics struct {
	bookingsTotal   *prometheus.CounterVec
	bookingLatency  *prometheus.HistogramVec
	pricingTotal    *prometheus.CounterVec
	promoTotal      *prometheus.CounterVec
	sideEffectTotal *prometheus.CounterVec
	consumerTotal   *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpLatency     *prometheus.HistogramVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notary",
			Subsystem: "booking",
			Name:      "created_total",
			Help:      "Booking creation attempts by outcome",
		}, []string{"outcome"}),
		bookingLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "notary",
			Subsystem: "booking",
			Name:      "create_latency_seconds",
			Help:      "Latency of booking creation including side effects",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		pricingTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notary",
			Subsystem: "pricing",
			Name:      "calculations_total",
			Help:      "Pricing calculations by outcome",
		}, []string{"outcome"}),
		promoTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notary",
			Subsystem: "promo",
			Name:      "validations_total",
			Help:      "Promo code validations by result",
		}, []string{"result"}),
		sideEffectTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notary",
			Subsystem: "booking",
			Name:      "side_effects_total",
			Help:      "Post-commit side effects by task and outcome",
		}, []string{"task", "outcome"}),
		consumerTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notary",
			Subsystem: "consumer",
			Name:      "messages_total",
			Help:      "RabbitMQ messages handled by consumer and outcome",
		}, []string{"consumer", "outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notary",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "notary",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.bookingLatency, m.pricingTotal, m.promoTotal, m.sideEffectTotal, m.consumerTotal, m.httpRequests, m.httpLatency)
	return m
}

func (m *BookingMetrics) ObserveBooking(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
	m.bookingLatency.WithLabelValues(outcome).Observe(seconds)
}

func (m *BookingMetrics) ObservePricing(outcome string) {
	if m == nil {
		return
	}
	m.pricingTotal.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObservePromo(result string) {
	if m == nil {
		return
	}
	m.promoTotal.WithLabelValues(result).Inc()
}

func (m *BookingMetrics) ObserveSideEffect(task string, ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	m.sideEffectTotal.WithLabelValues(task, outcome).Inc()
}

func (m *BookingMetrics) ObserveConsumer(consumer, outcome string) {
	if m == nil {
		return
	}
	m.consumerTotal.WithLabelValues(consumer, outcome).Inc()
}

// ObserveHTTP records one request. route is the matched pattern, not the raw path.
func (m *BookingMetrics) ObserveHTTP(method, route string, status int, latency time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(latency.Seconds())
}

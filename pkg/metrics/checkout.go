package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records counters and latency for order placement.
type CheckoutMetrics struct {
	duration *prometheus.HistogramVec
	placed   prometheus.Counter
	rejected *prometheus.CounterVec
	soldOut  prometheus.Counter
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of order placement transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	placed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Successfully placed orders.",
	})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_rejected_total",
		Help: "Rejected order placements by reason.",
	}, []string{"reason"})
	soldOut := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stock_sold_out_total",
		Help: "Stock entries that transitioned to zero during checkout.",
	})
	reg.MustRegister(duration, placed, rejected, soldOut)
	return &CheckoutMetrics{
		duration: duration,
		placed:   placed,
		rejected: rejected,
		soldOut:  soldOut,
	}
}

// ObserveDuration records the placement latency for the given outcome.
func (c *CheckoutMetrics) ObserveDuration(outcome string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncPlaced increments the placed-orders counter.
func (c *CheckoutMetrics) IncPlaced() {
	if c == nil || c.placed == nil {
		return
	}
	c.placed.Inc()
}

// IncRejected increments the rejection counter for the named reason.
func (c *CheckoutMetrics) IncRejected(reason string) {
	if c == nil || c.rejected == nil {
		return
	}
	c.rejected.WithLabelValues(normalizeLabel(reason)).Inc()
}

// AddSoldOut adds the number of keys that just hit zero stock.
func (c *CheckoutMetrics) AddSoldOut(n int) {
	if c == nil || c.soldOut == nil || n <= 0 {
		return
	}
	c.soldOut.Add(float64(n))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

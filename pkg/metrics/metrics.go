package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SearchMetrics records catalog lookup outcomes.
type SearchMetrics struct {
	duration *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
}

// NewSearchMetrics registers the search metrics on the provided registerer.
func NewSearchMetrics(reg prometheus.Registerer) *SearchMetrics {
	if reg == nil {
		return &SearchMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_search_duration_seconds",
		Help:    "Duration of catalog search round trips in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_search_total",
		Help: "Catalog search attempts by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(duration, outcomes)
	return &SearchMetrics{
		duration: duration,
		outcomes: outcomes,
	}
}

// Observe records one search attempt.
func (s *SearchMetrics) Observe(outcome string, duration time.Duration) {
	if s == nil {
		return
	}
	label := normalizeLabel(outcome)
	if s.outcomes != nil {
		s.outcomes.WithLabelValues(label).Inc()
	}
	if s.duration != nil {
		s.duration.WithLabelValues(label).Observe(duration.Seconds())
	}
}

// CheckoutMetrics records order submission outcomes.
type CheckoutMetrics struct {
	duration *prometheus.HistogramVec
	outcomes *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of checkout submissions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_total",
		Help: "Checkout submissions by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(duration, outcomes)
	return &CheckoutMetrics{
		duration: duration,
		outcomes: outcomes,
	}
}

// Observe records one checkout attempt.
func (c *CheckoutMetrics) Observe(outcome string, duration time.Duration) {
	if c == nil {
		return
	}
	label := normalizeLabel(outcome)
	if c.outcomes != nil {
		c.outcomes.WithLabelValues(label).Inc()
	}
	if c.duration != nil {
		c.duration.WithLabelValues(label).Observe(duration.Seconds())
	}
}

func normalizeLabel(outcome string) string {
	if outcome == "" {
		return "unknown"
	}
	return outcome
}

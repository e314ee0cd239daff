// Package metrics holds the Prometheus collectors of the storefront service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "storefront"

// Metrics groups the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	cartOperations    *prometheus.CounterVec
	checkouts         *prometheus.CounterVec
	paymentLatency    *prometheus.HistogramVec
	retractionRetries prometheus.Counter
	intentsReconciled *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		cartOperations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_operations_total",
			Help:      "Cart mutations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		checkouts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_total",
			Help:      "Checkout attempts by terminal state.",
		}, []string{"state"}),
		paymentLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "payment_duration_seconds",
			Help:      "Payment gateway latency by outcome.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"outcome"}),
		retractionRetries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_retraction_retries_total",
			Help:      "Retried cart retractions after a paid checkout.",
		}),
		intentsReconciled: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_intents_reconciled_total",
			Help:      "Checkout intents handled by the reconciler, by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) ObserveHTTP(method, route, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) CartOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.cartOperations.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) Checkout(state string) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(state).Inc()
}

func (m *Metrics) Payment(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.paymentLatency.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) RetractionRetry() {
	if m == nil {
		return
	}
	m.retractionRetries.Inc()
}

func (m *Metrics) IntentReconciled(result string) {
	if m == nil {
		return
	}
	m.intentsReconciled.WithLabelValues(result).Inc()
}

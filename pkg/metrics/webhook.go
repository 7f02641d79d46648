package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "checkout"

// WebhookMetrics counts webhook deliveries and reconciliation results.
type WebhookMetrics struct {
	deliveries     *prometheus.CounterVec
	unknownStatus  *prometheus.CounterVec
	unverified     *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	disallowed     *prometheus.CounterVec
	cascadeFailure *prometheus.CounterVec
}

// NewWebhookMetrics registers the webhook metrics on reg. A nil registerer
// yields a no-op recorder.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	m := &WebhookMetrics{
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "deliveries_total",
			Help:      "Webhook deliveries by provider and outcome.",
		}, []string{"provider", "outcome"}),
		unknownStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "unknown_status_total",
			Help:      "Provider statuses with no canonical mapping.",
		}, []string{"provider"}),
		unverified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "unverified_total",
			Help:      "Deliveries accepted without a verified signature or known reference.",
		}, []string{"provider", "reason"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "duration_seconds",
			Help:      "Time spent applying a canonical event.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		disallowed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "disallowed_transitions_total",
			Help:      "Status changes outside the allowed transitions table.",
		}, []string{"provider", "from", "to"}),
		cascadeFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "cascade_failures_total",
			Help:      "Order updates that failed after the payment was written.",
		}, []string{"provider"}),
	}
	reg.MustRegister(m.deliveries, m.unknownStatus, m.unverified, m.duration, m.disallowed, m.cascadeFailure)
	return m
}

// IncDelivery counts a delivery that finished with outcome.
func (m *WebhookMetrics) IncDelivery(provider, outcome string) {
	if m == nil || m.deliveries == nil {
		return
	}
	m.deliveries.WithLabelValues(labelOrUnknown(provider), labelOrUnknown(outcome)).Inc()
}

// IncUnknownStatus counts an unmapped provider status.
func (m *WebhookMetrics) IncUnknownStatus(provider string) {
	if m == nil || m.unknownStatus == nil {
		return
	}
	m.unknownStatus.WithLabelValues(labelOrUnknown(provider)).Inc()
}

// IncUnverified counts a delivery accepted without authentication.
func (m *WebhookMetrics) IncUnverified(provider, reason string) {
	if m == nil || m.unverified == nil {
		return
	}
	m.unverified.WithLabelValues(labelOrUnknown(provider), labelOrUnknown(reason)).Inc()
}

// ObserveReconcile records how long applying one event took.
func (m *WebhookMetrics) ObserveReconcile(provider string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(labelOrUnknown(provider)).Observe(d.Seconds())
}

// IncDisallowedTransition counts a status change outside the transitions table.
func (m *WebhookMetrics) IncDisallowedTransition(provider, from, to string) {
	if m == nil || m.disallowed == nil {
		return
	}
	m.disallowed.WithLabelValues(labelOrUnknown(provider), labelOrUnknown(from), labelOrUnknown(to)).Inc()
}

// IncCascadeFailure counts an order update that failed after the payment write.
func (m *WebhookMetrics) IncCascadeFailure(provider string) {
	if m == nil || m.cascadeFailure == nil {
		return
	}
	m.cascadeFailure.WithLabelValues(labelOrUnknown(provider)).Inc()
}

// Handler exposes the gatherer in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

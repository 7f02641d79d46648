package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWebhookMetrics(reg)

	m.IncDelivery("aggregator", "applied")
	m.IncDelivery("aggregator", "applied")
	m.IncUnknownStatus("card_gateway")
	m.IncUnverified("mobile_money", "unresolved")
	m.IncDisallowedTransition("card_gateway", "completed", "pending")
	m.IncCascadeFailure("aggregator")
	m.ObserveReconcile("aggregator", 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.deliveries.WithLabelValues("aggregator", "applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.unknownStatus.WithLabelValues("card_gateway")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.unverified.WithLabelValues("mobile_money", "unresolved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.disallowed.WithLabelValues("card_gateway", "completed", "pending")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cascadeFailure.WithLabelValues("aggregator")))

	n, err := testutil.GatherAndCount(reg, "checkout_reconcile_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestReconcileDurationPerProvider(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWebhookMetrics(reg)

	m.ObserveReconcile("card_gateway", 10*time.Millisecond)
	m.ObserveReconcile("card_gateway", 30*time.Millisecond)
	m.ObserveReconcile("mobile_money", 2*time.Second)

	families, err := reg.Gather()
	require.NoError(t, err)

	var family *dto.MetricFamily
	for _, f := range families {
		if f.GetName() == "checkout_reconcile_duration_seconds" {
			family = f
		}
	}
	require.NotNil(t, family)
	assert.Equal(t, dto.MetricType_HISTOGRAM, family.GetType())
	require.Len(t, family.GetMetric(), 2)

	byProvider := map[string]*dto.Histogram{}
	for _, metric := range family.GetMetric() {
		for _, label := range metric.GetLabel() {
			if label.GetName() == "provider" {
				byProvider[label.GetValue()] = metric.GetHistogram()
			}
		}
	}
	require.Contains(t, byProvider, "card_gateway")
	assert.Equal(t, uint64(2), byProvider["card_gateway"].GetSampleCount())
	assert.InDelta(t, 0.04, byProvider["card_gateway"].GetSampleSum(), 1e-9)
	assert.Equal(t, uint64(1), byProvider["mobile_money"].GetSampleCount())
}

func TestWebhookMetricsNilSafe(t *testing.T) {
	var m *WebhookMetrics
	m.IncDelivery("a", "b")
	m.ObserveReconcile("a", time.Second)

	empty := NewWebhookMetrics(nil)
	empty.IncCascadeFailure("a")
}

func TestHandlerServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewWebhookMetrics(reg).IncDelivery("aggregator", "duplicate")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `checkout_webhook_deliveries_total{outcome="duplicate",provider="aggregator"} 1`)
}

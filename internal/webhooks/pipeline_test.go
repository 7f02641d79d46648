package webhooks

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/checkout-reconciler/internal/reconcile"
	"github.com/angelmondragon/checkout-reconciler/internal/tracker"
	"github.com/angelmondragon/checkout-reconciler/internal/webhooks/normalize"
	"github.com/angelmondragon/checkout-reconciler/internal/webhooks/verify"
	"github.com/angelmondragon/checkout-reconciler/pkg/enums"
	pkgerrors "github.com/angelmondragon/checkout-reconciler/pkg/errors"
	"github.com/angelmondragon/checkout-reconciler/pkg/logger"
	"github.com/angelmondragon/checkout-reconciler/pkg/metrics"
)

type memoryIdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]string
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{keys: map[string]string{}}
}

func (m *memoryIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.keys[key]
	if !ok {
		return "", errors.New("nil")
	}
	return v, nil
}

func (m *memoryIdempotencyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = "1"
	return true, nil
}

func (m *memoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return scope + ":" + id
}

func (m *memoryIdempotencyStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.keys, k)
	}
	return nil
}

type stubEngine struct {
	calls  int
	err    error
	result reconcile.Result
	last   normalize.Event
}

func (s *stubEngine) Apply(_ context.Context, event normalize.Event) (reconcile.Result, error) {
	s.calls++
	s.last = event
	if s.err != nil {
		return reconcile.Result{}, s.err
	}
	res := s.result
	if res.Status == "" {
		res.Status = event.Status
	}
	if res.Outcome == "" {
		res.Outcome = reconcile.OutcomeApplied
	}
	return res, nil
}

const testSecret = "whsec_pipeline"

type harness struct {
	pipeline *Pipeline
	engine   *stubEngine
	store    *memoryIdempotencyStore
	registry *prometheus.Registry
	card     *verify.HMAC
	agg      *verify.HMAC
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	policy := verify.Policy{Strict: true, Production: true, TestSignature: "test-signature"}
	h := &harness{
		engine:   &stubEngine{},
		store:    newMemoryIdempotencyStore(),
		registry: prometheus.NewRegistry(),
		card:     verify.NewCardGateway(testSecret, policy),
		agg:      verify.NewAggregator(testSecret, policy),
	}
	guard, err := NewIdempotencyGuard(h.store, time.Hour, "webhook")
	require.NoError(t, err)
	pipeline, err := NewPipeline(PipelineParams{
		Verifiers: map[enums.PaymentProvider]verify.Verifier{
			enums.ProviderCardGateway: h.card,
			enums.ProviderMobileMoney: verify.NewMobileMoney(tracker.NewMemory(0), logger.Nop()),
			enums.ProviderAggregator:  h.agg,
		},
		Engine:  h.engine,
		Guard:   guard,
		Metrics: metrics.NewWebhookMetrics(h.registry),
		Logger:  logger.Nop(),
	})
	require.NoError(t, err)
	h.pipeline = pipeline
	return h
}

func signed(name, sig string) http.Header {
	h := http.Header{}
	h.Set(name, sig)
	return h
}

func TestHandleAppliesVerifiedAggregatorEvent(t *testing.T) {
	h := newHarness(t)
	body := []byte(`{"event":"charge.failed","data":{"reference":"order_1700000000_abc123","status":"failed"}}`)

	ack, err := h.pipeline.Handle(context.Background(), enums.ProviderAggregator, signed(verify.AggregatorHeader, h.agg.Sign(body)), body)
	require.NoError(t, err)
	assert.Equal(t, Ack{
		Received:  true,
		Provider:  "aggregator",
		Reference: "order_1700000000_abc123",
		Status:    "failed",
		Outcome:   "applied",
	}, ack)
	assert.Equal(t, enums.PaymentStatusFailed, h.engine.last.Status)
}

func TestHandleRejectsTamperedBody(t *testing.T) {
	h := newHarness(t)
	body := []byte(`{"api_ref":"order_1700000000_abc123","state":"COMPLETE"}`)
	sig := h.card.Sign(body)
	tampered := append([]byte(nil), body...)
	tampered[len(tampered)-3] = 'X'

	_, err := h.pipeline.Handle(context.Background(), enums.ProviderCardGateway, signed("X-Signature", sig), tampered)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeAuthenticity, pkgerrors.CodeOf(err))
	assert.Zero(t, h.engine.calls)
}

func TestHandleMissingSignatureInStrictProduction(t *testing.T) {
	h := newHarness(t)
	body := []byte(`{"api_ref":"order_1700000000_abc123","state":"COMPLETE"}`)

	_, err := h.pipeline.Handle(context.Background(), enums.ProviderCardGateway, http.Header{}, body)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestHandleMissingReferenceIsValidation(t *testing.T) {
	h := newHarness(t)
	body := []byte(`{"status":"SUCCESS"}`)

	_, err := h.pipeline.Handle(context.Background(), enums.ProviderMobileMoney, http.Header{}, body)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	assert.Zero(t, h.engine.calls)
}

func TestHandleDuplicateDeliveryIsAcknowledged(t *testing.T) {
	h := newHarness(t)
	body := []byte(`{"reference":"TX-1","status":"SUCCESS"}`)

	first, err := h.pipeline.Handle(context.Background(), enums.ProviderMobileMoney, http.Header{}, body)
	require.NoError(t, err)
	assert.Equal(t, "applied", first.Outcome)

	second, err := h.pipeline.Handle(context.Background(), enums.ProviderMobileMoney, http.Header{}, body)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, second.Outcome)
	assert.Equal(t, 1, h.engine.calls)
}

func TestHandleReleasesGuardOnFailure(t *testing.T) {
	h := newHarness(t)
	h.engine.err = pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	body := []byte(`{"reference":"TX-2","status":"FAILED"}`)

	_, err := h.pipeline.Handle(context.Background(), enums.ProviderMobileMoney, http.Header{}, body)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
	assert.Empty(t, h.store.keys)

	h.engine.err = nil
	ack, err := h.pipeline.Handle(context.Background(), enums.ProviderMobileMoney, http.Header{}, body)
	require.NoError(t, err)
	assert.Equal(t, "applied", ack.Outcome)
	assert.Equal(t, 2, h.engine.calls)
}

func TestHandleCountsUnknownStatusAndUnresolvedReference(t *testing.T) {
	h := newHarness(t)
	body := []byte(`{"reference":"TX-3","status":"WEIRD"}`)

	ack, err := h.pipeline.Handle(context.Background(), enums.ProviderMobileMoney, http.Header{}, body)
	require.NoError(t, err)
	assert.Equal(t, "unknown", ack.Status)

	n, err := testutil.GatherAndCount(h.registry, "checkout_webhook_unknown_status_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = testutil.GatherAndCount(h.registry, "checkout_webhook_unverified_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestHandleIgnoredOutcomeFromEngine(t *testing.T) {
	h := newHarness(t)
	h.engine.result = reconcile.Result{Status: enums.PaymentStatusCompleted, Outcome: reconcile.OutcomeIgnored}
	body := []byte(`{"api_ref":"order_1700000000_abc123","state":"FAILED"}`)

	ack, err := h.pipeline.Handle(context.Background(), enums.ProviderCardGateway, signed("Signature", h.card.Sign(body)), body)
	require.NoError(t, err)
	assert.Equal(t, "ignored", ack.Outcome)
	assert.Equal(t, "completed", ack.Status)
}

func TestHandleUnsupportedProvider(t *testing.T) {
	h := newHarness(t)
	_, err := h.pipeline.Handle(context.Background(), enums.PaymentProvider("paypal"), http.Header{}, []byte(`{}`))
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestDeliveryIDDependsOnProviderAndBody(t *testing.T) {
	a := DeliveryID("card_gateway", []byte("x"))
	assert.NotEqual(t, a, DeliveryID("aggregator", []byte("x")))
	assert.NotEqual(t, a, DeliveryID("card_gateway", []byte("y")))
	assert.Equal(t, a, DeliveryID("card_gateway", []byte("x")))
}

func TestNewIdempotencyGuardValidates(t *testing.T) {
	_, err := NewIdempotencyGuard(nil, time.Hour, "webhook")
	assert.Error(t, err)
	_, err = NewIdempotencyGuard(newMemoryIdempotencyStore(), -time.Second, "webhook")
	assert.Error(t, err)
	_, err = NewIdempotencyGuard(newMemoryIdempotencyStore(), time.Hour, "")
	assert.Error(t, err)
}

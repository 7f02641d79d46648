package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePaymentStatus(t *testing.T) {
	for _, raw := range []string{"pending", "processing", "completed", "failed", "refunded", "disputed", "unknown"} {
		status, err := ParsePaymentStatus(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, raw, status.String())
		assert.True(t, status.IsValid())
	}

	_, err := ParsePaymentStatus("COMPLETE")
	require.Error(t, err)
}

func TestPaymentStatusIsTerminal(t *testing.T) {
	assert.True(t, PaymentStatusCompleted.IsTerminal())
	assert.True(t, PaymentStatusFailed.IsTerminal())
	assert.False(t, PaymentStatusPending.IsTerminal())
	assert.False(t, PaymentStatusRefunded.IsTerminal())
}

func TestOrderStatusRejectsPaymentOnlyValues(t *testing.T) {
	_, err := ParseOrderStatus("refunded")
	require.Error(t, err)

	status, err := ParseOrderStatus("cancelled")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCancelled, status)
}

func TestProviderDefaultMethod(t *testing.T) {
	assert.Equal(t, PaymentMethodCard, ProviderCardGateway.DefaultMethod())
	assert.Equal(t, PaymentMethodMobileMoney, ProviderMobileMoney.DefaultMethod())
	assert.Equal(t, PaymentMethodCard, ProviderAggregator.DefaultMethod())
}

func TestParsePaymentProvider(t *testing.T) {
	p, err := ParsePaymentProvider("aggregator")
	require.NoError(t, err)
	assert.Equal(t, ProviderAggregator, p)

	_, err = ParsePaymentProvider("stripe")
	require.Error(t, err)
	assert.False(t, PaymentProvider("").IsValid())
}

func TestOutboxEnums(t *testing.T) {
	assert.True(t, EventPaymentStatusChanged.IsValid())
	assert.False(t, OutboxEventType("ad_created").IsValid())
	_, err := ParseOutboxAggregateType("payment")
	require.NoError(t, err)
}

func TestOutboxEventAggregate(t *testing.T) {
	assert.Equal(t, AggregatePayment, EventPaymentStatusChanged.Aggregate())
	assert.Equal(t, AggregateOrder, EventOrderCreated.Aggregate())
	assert.Equal(t, AggregateOrder, EventOrderAbandoned.Aggregate())
}

func TestParseErrorNamesKind(t *testing.T) {
	_, err := ParsePaymentMethod("cash")
	assert.EqualError(t, err, `invalid payment method "cash"`)
}

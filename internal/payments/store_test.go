package payments

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/checkout-reconciler/pkg/db/dbtest"
	"github.com/angelmondragon/checkout-reconciler/pkg/db/models"
	"github.com/angelmondragon/checkout-reconciler/pkg/enums"
	pkgerrors "github.com/angelmondragon/checkout-reconciler/pkg/errors"
)

func insertPayment(t *testing.T, store *Store, id, ref string) {
	t.Helper()
	require.NoError(t, store.Insert(context.Background(), &models.Payment{
		ID:       id,
		APIRef:   ref,
		Amount:   decimal.NewFromInt(100),
		Currency: "KES",
		Status:   enums.PaymentStatusPending,
		Provider: enums.ProviderAggregator,
	}))
}

func TestFindByAPIRefIsExact(t *testing.T) {
	store := NewStore(dbtest.Open(t))
	insertPayment(t, store, "pay_1", "order_1700000000_abc123")
	insertPayment(t, store, "pay_2", "order_1700000000_abc1234")

	got, err := store.FindByAPIRef(context.Background(), "order_1700000000_abc123")
	require.NoError(t, err)
	assert.Equal(t, "pay_1", got.ID)

	_, err = store.FindByAPIRef(context.Background(), "order_1700000000_abc")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestFindOneRequiresValue(t *testing.T) {
	store := NewStore(dbtest.Open(t))
	_, err := store.FindOne(context.Background(), FieldInvoiceID, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestFindOneNotFoundCarriesDetails(t *testing.T) {
	store := NewStore(dbtest.Open(t))
	_, err := store.FindOne(context.Background(), FieldTrackingID, "trk-1")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, map[string]any{FieldTrackingID: "trk-1"}, typed.Details())
}

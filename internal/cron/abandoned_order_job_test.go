package cron

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/checkout-reconciler/internal/orders"
	dbpkg "github.com/angelmondragon/checkout-reconciler/pkg/db"
	"github.com/angelmondragon/checkout-reconciler/pkg/db/dbtest"
	"github.com/angelmondragon/checkout-reconciler/pkg/db/models"
	"github.com/angelmondragon/checkout-reconciler/pkg/enums"
	"github.com/angelmondragon/checkout-reconciler/pkg/logger"
	"github.com/angelmondragon/checkout-reconciler/pkg/outbox"
	"github.com/angelmondragon/checkout-reconciler/pkg/types"
)

func seedPendingOrder(t *testing.T, db *gorm.DB, number string, createdAt time.Time, withPayment bool) models.Order {
	t.Helper()
	order := models.Order{
		ID:            uuid.NewString(),
		OrderNumber:   number,
		UserID:        "user-1",
		Status:        enums.OrderStatusPending,
		PaymentStatus: enums.PaymentStatusPending,
		PaymentMethod: enums.PaymentMethodCard,
		Subtotal:      decimal.NewFromInt(10),
		Tax:           decimal.Zero,
		Shipping:      decimal.Zero,
		Total:         decimal.NewFromInt(10),
		Currency:      "KES",
		ShippingInfo:  types.ShippingInfo{Name: "A", Phone: "1", Line1: "x", City: "Nairobi", Country: "KE"},
		CreatedAt:     createdAt,
	}
	require.NoError(t, db.Create(&order).Error)
	if withPayment {
		require.NoError(t, db.Create(&models.Payment{
			ID:       "pay_" + uuid.NewString(),
			OrderID:  &order.ID,
			APIRef:   "order_1_" + number[len(number)-6:],
			Amount:   order.Total,
			Currency: "KES",
			Status:   enums.PaymentStatusPending,
			Provider: enums.ProviderCardGateway,
		}).Error)
	}
	return order
}

func TestAbandonedOrderJobCancelsOnlyStaleUnpaidOrders(t *testing.T) {
	db := dbtest.Open(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	stale := seedPendingOrder(t, db, "Order-20260301-000001", now.Add(-3*time.Hour), false)
	paid := seedPendingOrder(t, db, "Order-20260301-000002", now.Add(-3*time.Hour), true)
	fresh := seedPendingOrder(t, db, "Order-20260301-000003", now.Add(-10*time.Minute), false)

	store := orders.NewStore(db)
	jobIface, err := NewAbandonedOrderJob(AbandonedOrderJobParams{
		Logger:  logger.Nop(),
		DB:      dbpkg.Wrap(db),
		Orders:  store,
		Outbox:  outbox.NewService(outbox.NewRepository(db), logger.Nop()),
		Timeout: 2 * time.Hour,
	})
	require.NoError(t, err)
	job := jobIface.(*abandonedOrderJob)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))

	got, err := store.FindByID(context.Background(), stale.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, got.Status)
	require.NotNil(t, got.CancelReason)
	assert.Equal(t, orders.CancelReasonAbandoned, *got.CancelReason)

	for _, id := range []string{paid.ID, fresh.ID} {
		got, err := store.FindByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, enums.OrderStatusPending, got.Status)
	}

	var events []models.OutboxEvent
	require.NoError(t, db.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventOrderAbandoned, events[0].EventType)
	assert.Equal(t, stale.ID, events[0].AggregateID)

	require.NoError(t, job.Run(context.Background()))
	var n int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestNewAbandonedOrderJobValidates(t *testing.T) {
	_, err := NewAbandonedOrderJob(AbandonedOrderJobParams{})
	assert.Error(t, err)
}

package outbox

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/checkout-reconciler/pkg/db/dbtest"
	"github.com/angelmondragon/checkout-reconciler/pkg/db/models"
	"github.com/angelmondragon/checkout-reconciler/pkg/enums"
	"github.com/angelmondragon/checkout-reconciler/pkg/logger"
	"github.com/angelmondragon/checkout-reconciler/pkg/outbox/payloads"
)

func TestEmitWritesEnvelopeInsideTx(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(NewRepository(db), logger.Nop())

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventPaymentStatusChanged,
			AggregateType: enums.AggregatePayment,
			AggregateID:   "pay_1",
			Actor:         &ActorRef{Provider: "aggregator"},
			Data:          payloads.PaymentStatusChangedEvent{PaymentID: "pay_1", Status: enums.PaymentStatusFailed},
		})
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "pay_1", rows[0].AggregateID)

	envelope, err := DecodeEnvelope(rows[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, 1, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)
	assert.Equal(t, enums.EventPaymentStatusChanged, envelope.EventType)
	assert.Equal(t, "pay_1", envelope.Subject)
	assert.Equal(t, "aggregator", envelope.Actor.Provider)

	var data payloads.PaymentStatusChangedEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.Equal(t, enums.PaymentStatusFailed, data.Status)
}

func TestEmitRollsBackWithTx(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(NewRepository(db), nil)

	_ = db.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   "ord-1",
			Data:          map[string]string{"order_id": "ord-1"},
		}))
		return assert.AnError
	})

	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEmitValidatesInput(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(NewRepository(db), nil)

	require.Error(t, svc.Emit(context.Background(), nil, DomainEvent{}))
	require.Error(t, svc.Emit(context.Background(), db, DomainEvent{EventType: "nope", AggregateType: enums.AggregateOrder, AggregateID: "x"}))
	require.Error(t, svc.Emit(context.Background(), db, DomainEvent{EventType: enums.EventOrderCreated, AggregateType: enums.AggregateOrder}))
	require.Error(t, svc.Emit(context.Background(), db, DomainEvent{EventType: enums.EventOrderCreated, AggregateType: enums.AggregatePayment, AggregateID: "x"}))
}

func TestEmitDerivesAggregateType(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(NewRepository(db), nil)

	require.NoError(t, svc.Emit(context.Background(), db, DomainEvent{
		EventType:   enums.EventOrderAbandoned,
		AggregateID: "ord-9",
		Data:        payloads.OrderAbandonedEvent{OrderID: "ord-9"},
	}))

	var row models.OutboxEvent
	require.NoError(t, db.First(&row).Error)
	assert.Equal(t, enums.AggregateOrder, row.AggregateType)
}

func TestDecodeEnvelopeRejectsIncompletePayloads(t *testing.T) {
	for name, raw := range map[string]string{
		"broken json": `{"version":`,
		"no event id": `{"version":1,"data":{}}`,
		"null data":   `{"version":1,"eventId":"e1","data":null}`,
		"no data":     `{"version":1,"eventId":"e1"}`,
	} {
		_, err := DecodeEnvelope([]byte(raw))
		assert.Error(t, err, name)
	}
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewRepository(db)
	svc := NewService(repo, nil)

	for _, id := range []string{"a", "b"} {
		require.NoError(t, svc.Emit(context.Background(), db, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   id,
			Data:          map[string]string{"order_id": id},
		}))
	}

	rows, err := repo.FetchUnpublishedForPublish(db, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.NoError(t, repo.MarkPublishedTx(db, rows[0].ID))
	require.NoError(t, repo.MarkFailedTx(db, rows[1].ID, assert.AnError))

	rows, err = repo.FetchUnpublishedForPublish(db, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].AttemptCount)
	require.NotNil(t, rows[0].LastError)

	require.NoError(t, repo.MarkTerminalTx(db, rows[0].ID, assert.AnError, 3))
	rows, err = repo.FetchUnpublishedForPublish(db, 10, 3)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

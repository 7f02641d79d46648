package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/checkout-reconciler/pkg/enums"
)

// OutboxEvent is one row of outbox_events. Rows are written in the same
// transaction as the payment or order change they describe, then relayed
// to Pub/Sub by the outbox publisher.
type OutboxEvent struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;type:text;not null"`
	AggregateID   string                    `gorm:"column:aggregate_id;not null"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;type:text;not null"`
	// Payload holds the encoded outbox.Envelope, published byte for byte.
	Payload   json.RawMessage `gorm:"column:payload;type:jsonb;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`

	// relay bookkeeping
	AttemptCount int        `gorm:"column:attempt_count;not null;default:0"`
	LastError    *string    `gorm:"column:last_error"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (OutboxEvent) TableName() string { return "outbox_events" }

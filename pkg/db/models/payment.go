package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/angelmondragon/checkout-reconciler/pkg/enums"
)

// Payment is the durable record a provider reports on. APIRef is the
// correlation key echoed back in webhooks.
type Payment struct {
	ID         string                `gorm:"column:id;primaryKey"`
	OrderID    *string               `gorm:"column:order_id;type:uuid;index"`
	APIRef     string                `gorm:"column:api_ref;uniqueIndex;not null"`
	Amount     decimal.Decimal       `gorm:"column:amount;type:numeric(14,2);not null"`
	Currency   string                `gorm:"column:currency;type:text;not null"`
	Status     enums.PaymentStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	Provider   enums.PaymentProvider `gorm:"column:provider;type:text;not null"`
	InvoiceID  *string               `gorm:"column:invoice_id;index"`
	TrackingID *string               `gorm:"column:tracking_id;index"`
	Metadata   datatypes.JSONMap     `gorm:"column:metadata"`
	RawEvent   datatypes.JSON        `gorm:"column:raw_event"`
	CreatedAt  time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/checkout-reconciler/pkg/enums"
	"github.com/angelmondragon/checkout-reconciler/pkg/types"
)

// Order is a buyer's checkout. PaymentStatus mirrors the latest reconciled
// payment status and is repaired by the reconciliation engine.
type Order struct {
	ID            string              `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber   string              `gorm:"column:order_number;uniqueIndex;not null"`
	UserID        string              `gorm:"column:user_id;not null"`
	Status        enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	Subtotal      decimal.Decimal     `gorm:"column:subtotal;type:numeric(14,2);not null"`
	Tax           decimal.Decimal     `gorm:"column:tax;type:numeric(14,2);not null"`
	Shipping      decimal.Decimal     `gorm:"column:shipping;type:numeric(14,2);not null"`
	Total         decimal.Decimal     `gorm:"column:total;type:numeric(14,2);not null"`
	Currency      string              `gorm:"column:currency;type:text;not null"`
	ShippingInfo  types.ShippingInfo  `gorm:"column:shipping_info;type:jsonb;not null"`
	CancelReason  *string             `gorm:"column:cancel_reason"`
	CancelledAt   *time.Time          `gorm:"column:cancelled_at"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

package payloads

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/checkout-reconciler/pkg/enums"
)

// OrderCreatedEvent is emitted when an order and its payment are initialized.
type OrderCreatedEvent struct {
	OrderID     string                `json:"order_id"`
	OrderNumber string                `json:"order_number"`
	UserID      string                `json:"user_id"`
	PaymentID   string                `json:"payment_id"`
	APIRef      string                `json:"api_ref"`
	Provider    enums.PaymentProvider `json:"provider"`
	Total       decimal.Decimal       `json:"total"`
	Currency    string                `json:"currency"`
}

// OrderAbandonedEvent is emitted when the sweep cancels an order with no payment.
type OrderAbandonedEvent struct {
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	CancelledAt time.Time `json:"cancelled_at"`
	Reason      string    `json:"reason"`
}

// PaymentStatusChangedEvent is emitted when a webhook changes a payment's status.
type PaymentStatusChangedEvent struct {
	PaymentID      string                `json:"payment_id"`
	OrderID        *string               `json:"order_id,omitempty"`
	APIRef         string                `json:"api_ref"`
	Provider       enums.PaymentProvider `json:"provider"`
	PreviousStatus enums.PaymentStatus   `json:"previous_status"`
	Status         enums.PaymentStatus   `json:"status"`
	ProviderStatus string                `json:"provider_status,omitempty"`
}

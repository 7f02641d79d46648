package enums

import "slices"

// OrderStatus is the fulfillment lifecycle. It has no refunded or disputed
// values; those stay on the payment.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

func (s OrderStatus) String() string { return string(s) }

func (s OrderStatus) IsValid() bool { return slices.Contains(validOrderStatuses, s) }

func ParseOrderStatus(value string) (OrderStatus, error) {
	return parseEnum("order status", value, validOrderStatuses)
}

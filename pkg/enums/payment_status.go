package enums

import "slices"

// PaymentStatus is the canonical payment lifecycle shared by payments and
// the denormalized copy on orders.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
	PaymentStatusDisputed   PaymentStatus = "disputed"
	// PaymentStatusUnknown records provider strings with no mapping.
	PaymentStatusUnknown PaymentStatus = "unknown"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusProcessing,
	PaymentStatusCompleted,
	PaymentStatusFailed,
	PaymentStatusRefunded,
	PaymentStatusDisputed,
	PaymentStatusUnknown,
}

func (p PaymentStatus) String() string { return string(p) }

func (p PaymentStatus) IsValid() bool { return slices.Contains(validPaymentStatuses, p) }

// IsTerminal is true for completed and failed. Refunds and disputes can
// still follow a completed payment.
func (p PaymentStatus) IsTerminal() bool {
	return p == PaymentStatusCompleted || p == PaymentStatusFailed
}

func ParsePaymentStatus(value string) (PaymentStatus, error) {
	return parseEnum("payment status", value, validPaymentStatuses)
}

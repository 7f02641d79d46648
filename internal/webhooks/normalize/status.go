package normalize

import (
	"strings"

	"github.com/angelmondragon/checkout-reconciler/pkg/enums"
)

var cardGatewayStatuses = map[string]enums.PaymentStatus{
	"PENDING":    enums.PaymentStatusPending,
	"PROCESSING": enums.PaymentStatusProcessing,
	"RETRY":      enums.PaymentStatusProcessing,
	"COMPLETE":   enums.PaymentStatusCompleted,
	"COMPLETED":  enums.PaymentStatusCompleted,
	"FAILED":     enums.PaymentStatusFailed,
	"CANCELLED":  enums.PaymentStatusFailed,
	"REFUNDED":   enums.PaymentStatusRefunded,
	"DISPUTED":   enums.PaymentStatusDisputed,
	"CHARGEBACK": enums.PaymentStatusDisputed,
}

var mobileMoneyStatuses = map[string]enums.PaymentStatus{
	"PENDING":    enums.PaymentStatusPending,
	"QUEUED":     enums.PaymentStatusPending,
	"PROCESSING": enums.PaymentStatusProcessing,
	"SUCCESS":    enums.PaymentStatusCompleted,
	"SUCCESSFUL": enums.PaymentStatusCompleted,
	"COMPLETED":  enums.PaymentStatusCompleted,
	"FAILED":     enums.PaymentStatusFailed,
	"CANCELLED":  enums.PaymentStatusFailed,
	"TIMEOUT":    enums.PaymentStatusFailed,
	"EXPIRED":    enums.PaymentStatusFailed,
}

var aggregatorEventStatuses = map[string]enums.PaymentStatus{
	"charge.success":        enums.PaymentStatusCompleted,
	"charge.failed":         enums.PaymentStatusFailed,
	"charge.pending":        enums.PaymentStatusPending,
	"charge.processing":     enums.PaymentStatusProcessing,
	"refund.processed":      enums.PaymentStatusRefunded,
	"charge.dispute.create": enums.PaymentStatusDisputed,
}

var aggregatorDataStatuses = map[string]enums.PaymentStatus{
	"success":   enums.PaymentStatusCompleted,
	"failed":    enums.PaymentStatusFailed,
	"abandoned": enums.PaymentStatusFailed,
	"pending":   enums.PaymentStatusPending,
	"ongoing":   enums.PaymentStatusPending,
	"reversed":  enums.PaymentStatusRefunded,
}

func lookupUpper(table map[string]enums.PaymentStatus, raw string) enums.PaymentStatus {
	if status, ok := table[strings.ToUpper(strings.TrimSpace(raw))]; ok {
		return status
	}
	return enums.PaymentStatusUnknown
}

func lookupLower(table map[string]enums.PaymentStatus, raw string) (enums.PaymentStatus, bool) {
	status, ok := table[strings.ToLower(strings.TrimSpace(raw))]
	return status, ok
}

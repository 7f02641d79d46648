package reconcile

import "github.com/angelmondragon/checkout-reconciler/pkg/enums"

// allowedTransitions lists the expected forward moves of a payment.
// unknown is reachable from anywhere and may move anywhere.
var allowedTransitions = map[enums.PaymentStatus][]enums.PaymentStatus{
	enums.PaymentStatusPending:    {enums.PaymentStatusProcessing, enums.PaymentStatusCompleted, enums.PaymentStatusFailed},
	enums.PaymentStatusProcessing: {enums.PaymentStatusCompleted, enums.PaymentStatusFailed},
	enums.PaymentStatusCompleted:  {enums.PaymentStatusRefunded, enums.PaymentStatusDisputed},
	enums.PaymentStatusDisputed:   {enums.PaymentStatusCompleted, enums.PaymentStatusRefunded},
}

// Allowed reports whether moving a payment from one status to another is an
// expected transition. Repeating the current status is always allowed.
func Allowed(from, to enums.PaymentStatus) bool {
	if from == to || to == enums.PaymentStatusUnknown || from == enums.PaymentStatusUnknown {
		return true
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

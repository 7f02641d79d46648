package enums

import "slices"

// PaymentMethod is how the buyer paid, as recorded on the order.
type PaymentMethod string

const (
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodMobileMoney  PaymentMethod = "mobile_money"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCard,
	PaymentMethodMobileMoney,
	PaymentMethodBankTransfer,
}

func (m PaymentMethod) String() string { return string(m) }

func (m PaymentMethod) IsValid() bool { return slices.Contains(validPaymentMethods, m) }

func ParsePaymentMethod(value string) (PaymentMethod, error) {
	return parseEnum("payment method", value, validPaymentMethods)
}

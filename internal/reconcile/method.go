package reconcile

import (
	"strings"

	"github.com/angelmondragon/checkout-reconciler/pkg/enums"
)

var channelMethods = []struct {
	needles []string
	method  enums.PaymentMethod
}{
	{[]string{"mobile money", "mobile_money", "mpesa", "momo"}, enums.PaymentMethodMobileMoney},
	{[]string{"card"}, enums.PaymentMethodCard},
	{[]string{"bank"}, enums.PaymentMethodBankTransfer},
}

// MethodForChannel maps a provider channel string to a payment method,
// falling back to the provider's default.
func MethodForChannel(provider enums.PaymentProvider, channel string) enums.PaymentMethod {
	lower := strings.ToLower(channel)
	for _, entry := range channelMethods {
		for _, needle := range entry.needles {
			if strings.Contains(lower, needle) {
				return entry.method
			}
		}
	}
	return provider.DefaultMethod()
}

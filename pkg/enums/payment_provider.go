package enums

import "slices"

// PaymentProvider identifies the processor that sends webhooks about a
// payment. It is also the {provider} path segment of the webhook routes.
type PaymentProvider string

const (
	ProviderCardGateway PaymentProvider = "card_gateway"
	ProviderMobileMoney PaymentProvider = "mobile_money"
	ProviderAggregator  PaymentProvider = "aggregator"
)

var validPaymentProviders = []PaymentProvider{
	ProviderCardGateway,
	ProviderMobileMoney,
	ProviderAggregator,
}

func (p PaymentProvider) String() string { return string(p) }

func (p PaymentProvider) IsValid() bool { return slices.Contains(validPaymentProviders, p) }

// DefaultMethod is assumed when a delivery does not name the channel.
func (p PaymentProvider) DefaultMethod() PaymentMethod {
	if p == ProviderMobileMoney {
		return PaymentMethodMobileMoney
	}
	return PaymentMethodCard
}

func ParsePaymentProvider(value string) (PaymentProvider, error) {
	return parseEnum("payment provider", value, validPaymentProviders)
}

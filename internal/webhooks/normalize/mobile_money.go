package normalize

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/checkout-reconciler/pkg/enums"
)

// MobileMoneyPayload is the push-payment gateway's callback body.
type MobileMoneyPayload struct {
	Reference     string           `json:"reference"`
	TransactionID flexString       `json:"transaction_id"`
	InvoiceID     flexString       `json:"invoice_id"`
	OrderID       string           `json:"order_id"`
	Status        string           `json:"status"`
	ResultCode    flexString       `json:"result_code"`
	Amount        *decimal.Decimal `json:"amount"`
	Phone         string           `json:"phone"`
	Channel       string           `json:"channel"`
}

// Provider implements Payload.
func (p *MobileMoneyPayload) Provider() enums.PaymentProvider {
	return enums.ProviderMobileMoney
}

// Normalize implements Payload.
func (p *MobileMoneyPayload) Normalize(raw []byte) (Event, error) {
	reference := firstNonEmpty(p.Reference, string(p.TransactionID), string(p.InvoiceID), p.OrderID)
	if reference == "" {
		return Event{}, missingReference(p.Provider())
	}

	channel := p.Channel
	if channel == "" {
		channel = "mobile_money"
	}
	return Event{
		Provider:   p.Provider(),
		Reference:  reference,
		Status:     lookupUpper(mobileMoneyStatuses, p.Status),
		RawStatus:  p.Status,
		InvoiceID:  string(p.InvoiceID),
		TrackingID: string(p.TransactionID),
		OrderID:    p.OrderID,
		Amount:     p.Amount,
		Channel:    channel,
		Raw:        rawCopy(raw),
	}, nil
}

package normalize

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/checkout-reconciler/pkg/enums"
)

// CardGatewayPayload is the card gateway's invoice notification.
type CardGatewayPayload struct {
	APIRef     string             `json:"api_ref"`
	Reference  string             `json:"reference"`
	Invoice    *cardGatewayInvoice `json:"invoice"`
	InvoiceID  flexString         `json:"invoice_id"`
	TrackingID flexString         `json:"tracking_id"`
	OrderID    string             `json:"order_id"`
	State      string             `json:"state"`
	Value      *decimal.Decimal   `json:"value"`
	Currency   string             `json:"currency"`
	Channel    string             `json:"channel"`
}

type cardGatewayInvoice struct {
	InvoiceID flexString `json:"invoice_id"`
	APIRef    string     `json:"api_ref"`
	State     string     `json:"state"`
}

// Provider implements Payload.
func (p *CardGatewayPayload) Provider() enums.PaymentProvider {
	return enums.ProviderCardGateway
}

// Normalize implements Payload.
func (p *CardGatewayPayload) Normalize(raw []byte) (Event, error) {
	invoice := cardGatewayInvoice{}
	if p.Invoice != nil {
		invoice = *p.Invoice
	}

	reference := firstNonEmpty(p.APIRef, p.Reference, invoice.APIRef, p.OrderID)
	if reference == "" {
		return Event{}, missingReference(p.Provider())
	}

	rawStatus := firstNonEmpty(p.State, invoice.State)
	return Event{
		Provider:   p.Provider(),
		Reference:  reference,
		Status:     lookupUpper(cardGatewayStatuses, rawStatus),
		RawStatus:  rawStatus,
		InvoiceID:  firstNonEmpty(string(p.InvoiceID), string(invoice.InvoiceID)),
		TrackingID: string(p.TrackingID),
		OrderID:    p.OrderID,
		Amount:     p.Value,
		Currency:   p.Currency,
		Channel:    p.Channel,
		Raw:        rawCopy(raw),
	}, nil
}

package normalize

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/checkout-reconciler/pkg/enums"
)

// AggregatorPayload is the card/mobile-money aggregator's event envelope.
type AggregatorPayload struct {
	Event string         `json:"event"`
	Data  aggregatorData `json:"data"`
}

type aggregatorData struct {
	Reference string             `json:"reference"`
	ID        flexString         `json:"id"`
	Status    string             `json:"status"`
	Amount    *decimal.Decimal   `json:"amount"`
	Currency  string             `json:"currency"`
	Channel   string             `json:"channel"`
	Metadata  aggregatorMetadata `json:"metadata"`
}

type aggregatorMetadata struct {
	Reference        string     `json:"reference"`
	InvoiceReference flexString `json:"invoice_reference"`
	OrderID          string     `json:"order_id"`
}

// Provider implements Payload.
func (p *AggregatorPayload) Provider() enums.PaymentProvider {
	return enums.ProviderAggregator
}

// Normalize implements Payload.
func (p *AggregatorPayload) Normalize(raw []byte) (Event, error) {
	meta := p.Data.Metadata
	reference := firstNonEmpty(p.Data.Reference, meta.Reference, string(meta.InvoiceReference), meta.OrderID)
	if reference == "" {
		return Event{}, missingReference(p.Provider())
	}

	status, rawStatus := p.status()
	return Event{
		Provider:   p.Provider(),
		Reference:  reference,
		Status:     status,
		RawStatus:  rawStatus,
		InvoiceID:  string(meta.InvoiceReference),
		TrackingID: string(p.Data.ID),
		OrderID:    meta.OrderID,
		Amount:     p.Data.Amount,
		Currency:   p.Data.Currency,
		Channel:    p.Data.Channel,
		Raw:        rawCopy(raw),
	}, nil
}

// status maps the event name first and the data status second.
func (p *AggregatorPayload) status() (enums.PaymentStatus, string) {
	if status, ok := lookupLower(aggregatorEventStatuses, p.Event); ok {
		return status, p.Event
	}
	if status, ok := lookupLower(aggregatorDataStatuses, p.Data.Status); ok {
		return status, p.Data.Status
	}
	return enums.PaymentStatusUnknown, firstNonEmpty(p.Event, p.Data.Status)
}

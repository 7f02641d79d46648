// Package normalize turns provider webhook payloads into a canonical Event.
// Each provider has its own payload type and normalization function.
package normalize

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/angelmondragon/checkout-reconciler/pkg/enums"
	pkgerrors "github.com/angelmondragon/checkout-reconciler/pkg/errors"
)

// Event is the provider-independent view of a single webhook delivery.
type Event struct {
	Provider  enums.PaymentProvider
	Reference string
	Status    enums.PaymentStatus
	// RawStatus is the provider string the status was mapped from.
	RawStatus string
	InvoiceID string
	// TrackingID is the provider's transaction identifier.
	TrackingID string
	// OrderID is the legacy order id some payloads still carry.
	OrderID  string
	Amount   *decimal.Decimal
	Currency string
	Channel  string
	Raw      json.RawMessage
}

// UnknownStatus reports whether the provider status had no mapping.
func (e Event) UnknownStatus() bool {
	return e.Status == enums.PaymentStatusUnknown
}

// Payload is implemented by every provider payload variant.
type Payload interface {
	Provider() enums.PaymentProvider
	Normalize(raw []byte) (Event, error)
}

// Decode parses body into the payload variant for provider.
func Decode(provider enums.PaymentProvider, body []byte) (Payload, error) {
	var payload Payload
	switch provider {
	case enums.ProviderCardGateway:
		payload = &CardGatewayPayload{}
	case enums.ProviderMobileMoney:
		payload = &MobileMoneyPayload{}
	case enums.ProviderAggregator:
		payload = &AggregatorPayload{}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported provider").
			WithDetails(map[string]any{"provider": string(provider)})
	}
	if err := json.Unmarshal(body, payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook payload")
	}
	return payload, nil
}

// Normalize decodes and normalizes body in one step.
func Normalize(provider enums.PaymentProvider, body []byte) (Event, error) {
	payload, err := Decode(provider, body)
	if err != nil {
		return Event{}, err
	}
	return payload.Normalize(body)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func missingReference(provider enums.PaymentProvider) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "missing payment reference").
		WithDetails(map[string]any{"provider": string(provider)})
}

func rawCopy(raw []byte) json.RawMessage {
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}

// flexString accepts JSON strings and numbers, since providers disagree on
// whether identifiers are quoted.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return err
	}
	*f = flexString(s)
	return nil
}

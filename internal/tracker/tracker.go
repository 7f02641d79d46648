// Package tracker keeps the short-lived status view used to correlate
// mobile-money callbacks, which carry no signature and often no api_ref.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/checkout-reconciler/internal/webhooks/normalize"
	"github.com/angelmondragon/checkout-reconciler/pkg/enums"
)

// ErrNotFound is returned when no record matches a key.
var ErrNotFound = errors.New("tracker record not found")

// KeyKind names a secondary index.
type KeyKind string

const (
	KeyTransaction KeyKind = "transaction_id"
	KeyInvoice     KeyKind = "invoice_id"
)

// Record is the tracked state of one order's payment.
type Record struct {
	OrderID       string              `json:"order_id"`
	PaymentID     string              `json:"payment_id,omitempty"`
	APIRef        string              `json:"api_ref,omitempty"`
	TransactionID string              `json:"transaction_id,omitempty"`
	InvoiceID     string              `json:"invoice_id,omitempty"`
	Status        enums.PaymentStatus `json:"status"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func (r Record) secondary(kind KeyKind) string {
	switch kind {
	case KeyTransaction:
		return r.TransactionID
	case KeyInvoice:
		return r.InvoiceID
	}
	return ""
}

// Tracker stores records keyed by order id with secondary lookups.
type Tracker interface {
	Get(ctx context.Context, orderID string) (*Record, error)
	Put(ctx context.Context, record Record) error
	FindBySecondaryKey(ctx context.Context, kind KeyKind, value string) (*Record, error)
}

// Keys are the identifiers a callback may carry. Any of them may be empty.
type Keys struct {
	OrderID       string
	TransactionID string
	InvoiceID     string
	// Reference is provider-assigned and may match any of the three indexes.
	Reference string
}

// KeysFor collects the tracker keys of a normalized event.
func KeysFor(event normalize.Event) Keys {
	return Keys{
		OrderID:       event.OrderID,
		TransactionID: event.TrackingID,
		InvoiceID:     event.InvoiceID,
		Reference:     event.Reference,
	}
}

// Lookup searches by order id, then transaction id, then invoice id, then
// tries Reference against all three. A failing index does not stop the
// search; lookup errors are returned only when nothing matched.
func Lookup(ctx context.Context, t Tracker, keys Keys) (*Record, error) {
	get := func(v string) (*Record, error) { return t.Get(ctx, v) }
	by := func(kind KeyKind) func(string) (*Record, error) {
		return func(v string) (*Record, error) { return t.FindBySecondaryKey(ctx, kind, v) }
	}
	steps := []struct {
		index string
		value string
		find  func(string) (*Record, error)
	}{
		{"order_id", keys.OrderID, get},
		{string(KeyTransaction), keys.TransactionID, by(KeyTransaction)},
		{string(KeyInvoice), keys.InvoiceID, by(KeyInvoice)},
		{"order_id", keys.Reference, get},
		{string(KeyTransaction), keys.Reference, by(KeyTransaction)},
		{string(KeyInvoice), keys.Reference, by(KeyInvoice)},
	}

	var errs error
	tried := map[string]bool{}
	for _, step := range steps {
		if step.value == "" || tried[step.index+"|"+step.value] {
			continue
		}
		tried[step.index+"|"+step.value] = true
		rec, err := step.find(step.value)
		switch {
		case err == nil:
			return rec, nil
		case !errors.Is(err, ErrNotFound):
			errs = multierr.Append(errs, fmt.Errorf("%s %q: %w", step.index, step.value, err))
		}
	}
	if errs != nil {
		return nil, errs
	}
	return nil, ErrNotFound
}

// Resolve looks a single reference up as an order id, then a transaction id,
// then an invoice id.
func Resolve(ctx context.Context, t Tracker, reference string) (*Record, error) {
	return Lookup(ctx, t, Keys{Reference: reference})
}

func validateKind(kind KeyKind) error {
	switch kind {
	case KeyTransaction, KeyInvoice:
		return nil
	}
	return fmt.Errorf("unsupported tracker key %q", kind)
}

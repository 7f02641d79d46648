package tracker

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/checkout-reconciler/internal/payments"
	"github.com/angelmondragon/checkout-reconciler/pkg/db/models"
	pkgerrors "github.com/angelmondragon/checkout-reconciler/pkg/errors"
)

// PaymentFinder is the payment store surface used by Store.
type PaymentFinder interface {
	FindOne(ctx context.Context, field, value string) (*models.Payment, error)
	UpdateByID(ctx context.Context, id string, patch map[string]any) error
}

// Store answers tracker lookups from the payments table through its
// order_id, tracking_id and invoice_id indexes, so every instance sees the
// same state and nothing is lost on restart.
type Store struct {
	payments PaymentFinder
}

// NewStore builds a payment-store-backed tracker.
func NewStore(payments PaymentFinder) *Store {
	return &Store{payments: payments}
}

// Get implements Tracker. order_id is a uuid column, so anything else
// cannot match and is not sent to the database.
func (s *Store) Get(ctx context.Context, orderID string) (*Record, error) {
	if _, err := uuid.Parse(orderID); err != nil {
		return nil, ErrNotFound
	}
	return s.find(ctx, payments.FieldOrderID, orderID)
}

// Put records provider identifiers on the payment. Status is owned by the
// payment row and is not written here.
func (s *Store) Put(ctx context.Context, record Record) error {
	id := record.PaymentID
	if id == "" {
		rec, err := s.Get(ctx, record.OrderID)
		if err != nil {
			return err
		}
		id = rec.PaymentID
	}
	patch := map[string]any{}
	if record.TransactionID != "" {
		patch[payments.FieldTrackingID] = record.TransactionID
	}
	if record.InvoiceID != "" {
		patch[payments.FieldInvoiceID] = record.InvoiceID
	}
	return s.payments.UpdateByID(ctx, id, patch)
}

// FindBySecondaryKey implements Tracker.
func (s *Store) FindBySecondaryKey(ctx context.Context, kind KeyKind, value string) (*Record, error) {
	switch kind {
	case KeyTransaction:
		return s.find(ctx, payments.FieldTrackingID, value)
	case KeyInvoice:
		return s.find(ctx, payments.FieldInvoiceID, value)
	}
	return nil, validateKind(kind)
}

func (s *Store) find(ctx context.Context, field, value string) (*Record, error) {
	if value == "" {
		return nil, ErrNotFound
	}
	p, err := s.payments.FindOne(ctx, field, value)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return fromPayment(p), nil
}

func fromPayment(p *models.Payment) *Record {
	rec := &Record{
		PaymentID: p.ID,
		APIRef:    p.APIRef,
		Status:    p.Status,
		UpdatedAt: p.UpdatedAt,
	}
	if p.OrderID != nil {
		rec.OrderID = *p.OrderID
	}
	if p.TrackingID != nil {
		rec.TransactionID = *p.TrackingID
	}
	if p.InvoiceID != nil {
		rec.InvoiceID = *p.InvoiceID
	}
	return rec
}

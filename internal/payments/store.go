package payments

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/checkout-reconciler/internal/repo"
	"github.com/angelmondragon/checkout-reconciler/pkg/db/models"
	pkgerrors "github.com/angelmondragon/checkout-reconciler/pkg/errors"
)

const (
	FieldAPIRef     = "api_ref"
	FieldOrderID    = "order_id"
	FieldInvoiceID  = "invoice_id"
	FieldTrackingID = "tracking_id"
)

// Store persists payments.
type Store struct {
	*repo.Store[models.Payment]
}

// NewStore builds a payment store bound to db.
func NewStore(db *gorm.DB) *Store {
	return &Store{Store: repo.NewStore[models.Payment](db, FieldAPIRef, FieldOrderID, FieldInvoiceID, FieldTrackingID, "status")}
}

// WithTx returns a store bound to tx.
func (s *Store) WithTx(tx *gorm.DB) *Store {
	return &Store{Store: s.Store.WithTx(tx)}
}

// FindByAPIRef resolves the payment for a provider correlation key. Only an
// exact match counts.
func (s *Store) FindByAPIRef(ctx context.Context, apiRef string) (*models.Payment, error) {
	return s.FindOne(ctx, FieldAPIRef, apiRef)
}

// FindOne returns the newest payment whose field equals value.
func (s *Store) FindOne(ctx context.Context, field, value string) (*models.Payment, error) {
	if value == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, field+" is required")
	}
	rows, err := s.FindByField(ctx, field, value, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found").
			WithDetails(map[string]any{field: value})
	}
	return &rows[len(rows)-1], nil
}

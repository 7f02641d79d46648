package orders

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/checkout-reconciler/internal/repo"
	"github.com/angelmondragon/checkout-reconciler/pkg/db/models"
	"github.com/angelmondragon/checkout-reconciler/pkg/enums"
	pkgerrors "github.com/angelmondragon/checkout-reconciler/pkg/errors"
)

// CancelReasonAbandoned marks orders swept because no payment was ever linked.
const CancelReasonAbandoned = "abandoned"

const noPayment = "NOT EXISTS (SELECT 1 FROM payments p WHERE p.order_id = orders.id)"

// Store persists checkout orders.
type Store struct {
	*repo.Store[models.Order]
}

// NewStore builds an order store bound to db.
func NewStore(db *gorm.DB) *Store {
	return &Store{Store: repo.NewStore[models.Order](db, "order_number", "user_id", "status", "payment_status")}
}

// WithTx returns a store bound to tx.
func (s *Store) WithTx(tx *gorm.DB) *Store {
	return &Store{Store: s.Store.WithTx(tx)}
}

// UpdatePaymentState copies the reconciled payment status and method onto the order.
func (s *Store) UpdatePaymentState(ctx context.Context, orderID string, status enums.PaymentStatus, method enums.PaymentMethod) error {
	patch := map[string]any{"payment_status": status}
	if method != "" {
		patch["payment_method"] = method
	}
	return s.UpdateByID(ctx, orderID, patch)
}

// ListAbandoned returns pending orders created before cutoff that have no payment.
func (s *Store) ListAbandoned(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	query := s.DB(ctx).
		Where("status = ?", enums.OrderStatusPending).
		Where("created_at < ?", cutoff).
		Where(noPayment).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.Order
	if err := query.Find(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list abandoned orders")
	}
	return rows, nil
}

// MarkAbandoned cancels a still-pending order with no payment. It reports
// false when the order moved on since it was listed.
func (s *Store) MarkAbandoned(ctx context.Context, orderID string, at time.Time) (bool, error) {
	res := s.DB(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, enums.OrderStatusPending).
		Where(noPayment).
		Updates(map[string]any{
			"status":        enums.OrderStatusCancelled,
			"cancel_reason": CancelReasonAbandoned,
			"cancelled_at":  at,
		})
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "mark order abandoned")
	}
	return res.RowsAffected > 0, nil
}

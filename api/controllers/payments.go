package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/checkout-reconciler/api/responses"
	"github.com/angelmondragon/checkout-reconciler/internal/payments"
	"github.com/angelmondragon/checkout-reconciler/internal/tracker"
	"github.com/angelmondragon/checkout-reconciler/pkg/db/models"
	"github.com/angelmondragon/checkout-reconciler/pkg/enums"
	pkgerrors "github.com/angelmondragon/checkout-reconciler/pkg/errors"
	"github.com/angelmondragon/checkout-reconciler/pkg/logger"
)

const (
	statusSourceTracker = "tracker"
	statusSourceStore   = "store"
)

type StatusTracker interface {
	Get(ctx context.Context, orderID string) (*tracker.Record, error)
}

type PaymentFinder interface {
	FindOne(ctx context.Context, field, value string) (*models.Payment, error)
}

type paymentStatusResponse struct {
	OrderID   string              `json:"order_id"`
	PaymentID string              `json:"payment_id,omitempty"`
	APIRef    string              `json:"api_ref,omitempty"`
	Status    enums.PaymentStatus `json:"status"`
	Source    string              `json:"source"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// PaymentStatus answers client polling for an order's payment. The tracker is
// consulted first and the payment store is the fallback.
func PaymentStatus(track StatusTracker, store PaymentFinder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment store unavailable"))
			return
		}

		orderID := chi.URLParam(r, "orderId")
		if _, err := uuid.Parse(orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id").
				WithDetails(map[string]any{"order_id": orderID}))
			return
		}

		if track != nil {
			rec, err := track.Get(r.Context(), orderID)
			switch {
			case err == nil && rec.Status != "":
				responses.WriteSuccess(w, paymentStatusResponse{
					OrderID:   rec.OrderID,
					PaymentID: rec.PaymentID,
					APIRef:    rec.APIRef,
					Status:    rec.Status,
					Source:    statusSourceTracker,
					UpdatedAt: rec.UpdatedAt,
				})
				return
			case err != nil && !errors.Is(err, tracker.ErrNotFound):
				if logg != nil {
					logg.Warn(logg.WithField(r.Context(), "order_id", orderID), "tracker lookup failed, falling back to store")
				}
			}
		}

		payment, err := store.FindOne(r.Context(), payments.FieldOrderID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, paymentStatusResponse{
			OrderID:   orderID,
			PaymentID: payment.ID,
			APIRef:    payment.APIRef,
			Status:    payment.Status,
			Source:    statusSourceStore,
			UpdatedAt: payment.UpdatedAt,
		})
	}
}

package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/checkout-reconciler/api/middleware"
	"github.com/angelmondragon/checkout-reconciler/api/responses"
	"github.com/angelmondragon/checkout-reconciler/api/validators"
	checkoutsvc "github.com/angelmondragon/checkout-reconciler/internal/checkout"
	"github.com/angelmondragon/checkout-reconciler/pkg/enums"
	pkgerrors "github.com/angelmondragon/checkout-reconciler/pkg/errors"
	"github.com/angelmondragon/checkout-reconciler/pkg/logger"
	"github.com/angelmondragon/checkout-reconciler/pkg/types"
)

type CheckoutService interface {
	Initiate(ctx context.Context, input checkoutsvc.Input) (*checkoutsvc.Result, error)
}

// InitiateCheckout creates the order and its pending payment for the authenticated buyer.
func InitiateCheckout(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		if userID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user"))
			return
		}

		var payload initiateCheckoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Initiate(r.Context(), payload.toInput(userID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

type initiateCheckoutRequest struct {
	Provider     string             `json:"provider" validate:"required,oneof=card_gateway mobile_money aggregator"`
	Subtotal     decimal.Decimal    `json:"subtotal" validate:"money"`
	Tax          decimal.Decimal    `json:"tax" validate:"money"`
	Shipping     decimal.Decimal    `json:"shipping" validate:"money"`
	Currency     string             `json:"currency,omitempty" validate:"omitempty,len=3"`
	ShippingInfo types.ShippingInfo `json:"shipping_info"`
}

func (req initiateCheckoutRequest) toInput(userID string) checkoutsvc.Input {
	info := req.ShippingInfo
	info.Name = validators.SanitizeString(info.Name, 120)
	info.Phone = validators.SanitizeString(info.Phone, 32)
	info.Line1 = validators.SanitizeString(info.Line1, 200)
	info.City = validators.SanitizeString(info.City, 120)
	info.Country = strings.ToUpper(validators.SanitizeString(info.Country, 2))

	return checkoutsvc.Input{
		UserID:       userID,
		Provider:     enums.PaymentProvider(req.Provider),
		Subtotal:     req.Subtotal,
		Tax:          req.Tax,
		Shipping:     req.Shipping,
		Currency:     req.Currency,
		ShippingInfo: info,
	}
}

// Package webhooks exposes one HTTP endpoint per payment provider. Each reads
// the raw body and hands it to the shared reconciliation pipeline.
package webhooks

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/angelmondragon/checkout-reconciler/api/responses"
	"github.com/angelmondragon/checkout-reconciler/internal/webhooks"
	"github.com/angelmondragon/checkout-reconciler/pkg/enums"
	pkgerrors "github.com/angelmondragon/checkout-reconciler/pkg/errors"
	"github.com/angelmondragon/checkout-reconciler/pkg/logger"
)

// maxBodyBytes caps a provider notification.
const maxBodyBytes = 1 << 20

type Pipeline interface {
	Handle(ctx context.Context, provider enums.PaymentProvider, headers http.Header, body []byte) (webhooks.Ack, error)
}

// CardGateway handles notifications from the card gateway.
func CardGateway(p Pipeline, logg *logger.Logger) http.HandlerFunc {
	return handler(enums.ProviderCardGateway, p, logg)
}

// MobileMoney handles callbacks from the mobile-money push gateway.
func MobileMoney(p Pipeline, logg *logger.Logger) http.HandlerFunc {
	return handler(enums.ProviderMobileMoney, p, logg)
}

// Aggregator handles notifications from the card/mobile-money aggregator.
func Aggregator(p Pipeline, logg *logger.Logger) http.HandlerFunc {
	return handler(enums.ProviderAggregator, p, logg)
}

func handler(provider enums.PaymentProvider, p Pipeline, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithProvider(ctx, string(provider))
		}

		if p == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook pipeline unavailable"))
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payload too large"))
				return
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		ack, err := p.Handle(ctx, provider, r.Header, body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteJSON(w, http.StatusOK, ack)
	}
}

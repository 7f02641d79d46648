package verify

import (
	"context"
	"errors"
	"net/http"

	"github.com/angelmondragon/checkout-reconciler/internal/tracker"
	"github.com/angelmondragon/checkout-reconciler/internal/webhooks/normalize"
	"github.com/angelmondragon/checkout-reconciler/pkg/logger"
)

// Reference trusts mobile-money callbacks whose reference is known to the
// tracker. The provider sends no signature, so unresolved references are
// accepted and reported as OutcomeUnresolved for the caller to log.
type Reference struct {
	tracker tracker.Tracker
	logg    *logger.Logger
}

// NewMobileMoney builds the trust-by-reference verifier.
func NewMobileMoney(t tracker.Tracker, logg *logger.Logger) *Reference {
	return &Reference{tracker: t, logg: logg}
}

// VerifyPayload implements Verifier; there is nothing to check before parsing.
func (v *Reference) VerifyPayload(context.Context, http.Header, []byte) (Outcome, error) {
	return OutcomeSkipped, nil
}

// VerifyEvent implements Verifier.
func (v *Reference) VerifyEvent(ctx context.Context, event normalize.Event) (Outcome, error) {
	if v.tracker == nil {
		return OutcomeUnresolved, nil
	}
	_, err := tracker.Lookup(ctx, v.tracker, tracker.KeysFor(event))
	if err == nil {
		return OutcomeTrusted, nil
	}
	if !errors.Is(err, tracker.ErrNotFound) && v.logg != nil {
		v.logg.Error(ctx, "tracker lookup failed", err)
	}
	return OutcomeUnresolved, nil
}

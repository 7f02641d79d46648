package webhooks

import (
	"context"
	"net/http"

	"github.com/angelmondragon/checkout-reconciler/internal/reconcile"
	"github.com/angelmondragon/checkout-reconciler/internal/webhooks/normalize"
	"github.com/angelmondragon/checkout-reconciler/internal/webhooks/verify"
	"github.com/angelmondragon/checkout-reconciler/pkg/enums"
	pkgerrors "github.com/angelmondragon/checkout-reconciler/pkg/errors"
	"github.com/angelmondragon/checkout-reconciler/pkg/logger"
	"github.com/angelmondragon/checkout-reconciler/pkg/metrics"
)

// OutcomeDuplicate acknowledges a delivery that was already processed.
const OutcomeDuplicate = "duplicate"

// Ack is the body returned to the provider on success.
type Ack struct {
	Received  bool   `json:"received"`
	Provider  string `json:"provider"`
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Outcome   string `json:"outcome"`
}

type reconciler interface {
	Apply(ctx context.Context, event normalize.Event) (reconcile.Result, error)
}

type deliveryGuard interface {
	CheckAndMark(ctx context.Context, deliveryID string) (bool, error)
	Delete(ctx context.Context, deliveryID string) error
}

type PipelineParams struct {
	Verifiers map[enums.PaymentProvider]verify.Verifier
	Engine    reconciler
	// Guard is optional; without it every delivery is reconciled.
	Guard   deliveryGuard
	Metrics *metrics.WebhookMetrics
	Logger  *logger.Logger
}

// Pipeline processes one raw delivery end to end.
type Pipeline struct {
	verifiers map[enums.PaymentProvider]verify.Verifier
	engine    reconciler
	guard     deliveryGuard
	metrics   *metrics.WebhookMetrics
	logg      *logger.Logger
}

func NewPipeline(params PipelineParams) (*Pipeline, error) {
	if len(params.Verifiers) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "webhook verifiers required")
	}
	if params.Engine == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reconciliation engine required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Pipeline{
		verifiers: params.Verifiers,
		engine:    params.Engine,
		guard:     params.Guard,
		metrics:   params.Metrics,
		logg:      params.Logger,
	}, nil
}

// Handle verifies, normalizes and reconciles body for provider.
func (p *Pipeline) Handle(ctx context.Context, provider enums.PaymentProvider, headers http.Header, body []byte) (Ack, error) {
	ctx = p.logg.WithProvider(ctx, string(provider))

	ack, err := p.handle(ctx, provider, headers, body)
	if err != nil {
		p.metrics.IncDelivery(string(provider), string(pkgerrors.CodeOf(err)))
		return Ack{}, err
	}
	p.metrics.IncDelivery(string(provider), ack.Outcome)
	p.logg.Info(p.logg.WithFields(ctx, map[string]any{
		"reference": ack.Reference,
		"status":    ack.Status,
		"outcome":   ack.Outcome,
	}), "webhook processed")
	return ack, nil
}

func (p *Pipeline) handle(ctx context.Context, provider enums.PaymentProvider, headers http.Header, body []byte) (Ack, error) {
	verifier, ok := p.verifiers[provider]
	if !ok {
		return Ack{}, pkgerrors.New(pkgerrors.CodeValidation, "unsupported provider").
			WithDetails(map[string]any{"provider": string(provider)})
	}

	outcome, err := verifier.VerifyPayload(ctx, headers, body)
	if err != nil {
		return Ack{}, err
	}
	p.noteVerification(ctx, provider, outcome)

	event, err := normalize.Normalize(provider, body)
	if err != nil {
		return Ack{}, err
	}
	ctx = p.logg.WithFields(ctx, map[string]any{
		"reference": event.Reference,
		"status":    event.Status,
	})
	if event.UnknownStatus() {
		p.metrics.IncUnknownStatus(string(provider))
		p.logg.Warn(p.logg.WithField(ctx, "provider_status", event.RawStatus), "unmapped provider status recorded as unknown")
	}

	outcome, err = verifier.VerifyEvent(ctx, event)
	if err != nil {
		return Ack{}, err
	}
	p.noteVerification(ctx, provider, outcome)

	ack := Ack{
		Received:  true,
		Provider:  string(provider),
		Reference: event.Reference,
		Status:    string(event.Status),
	}

	var deliveryID string
	if p.guard != nil {
		deliveryID = DeliveryID(string(provider), body)
		seen, err := p.guard.CheckAndMark(ctx, deliveryID)
		if err != nil {
			return Ack{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency")
		}
		if seen {
			ack.Outcome = OutcomeDuplicate
			return ack, nil
		}
	}

	result, err := p.engine.Apply(ctx, event)
	if err != nil {
		if deliveryID != "" {
			if delErr := p.guard.Delete(ctx, deliveryID); delErr != nil {
				p.logg.Error(ctx, "release idempotency key", delErr)
			}
		}
		return Ack{}, err
	}
	ack.Status = string(result.Status)
	ack.Outcome = string(result.Outcome)
	return ack, nil
}

func (p *Pipeline) noteVerification(ctx context.Context, provider enums.PaymentProvider, outcome verify.Outcome) {
	if !outcome.Warn() {
		return
	}
	p.metrics.IncUnverified(string(provider), string(outcome))
	p.logg.Warn(p.logg.WithField(ctx, "verification", string(outcome)), "webhook accepted without authentication")
}


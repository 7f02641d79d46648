// Package reconcile applies canonical webhook events to payments and the
// orders they belong to.
package reconcile

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/checkout-reconciler/internal/payments"
	"github.com/angelmondragon/checkout-reconciler/internal/tracker"
	"github.com/angelmondragon/checkout-reconciler/internal/webhooks/normalize"
	"github.com/angelmondragon/checkout-reconciler/pkg/db/models"
	"github.com/angelmondragon/checkout-reconciler/pkg/enums"
	pkgerrors "github.com/angelmondragon/checkout-reconciler/pkg/errors"
	"github.com/angelmondragon/checkout-reconciler/pkg/logger"
	"github.com/angelmondragon/checkout-reconciler/pkg/outbox"
	"github.com/angelmondragon/checkout-reconciler/pkg/outbox/payloads"
)

// Outcome says what the engine did with an event.
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeIgnored Outcome = "ignored"
)

// Result describes one reconciliation.
type Result struct {
	PaymentID string
	OrderID   string
	Previous  enums.PaymentStatus
	Status    enums.PaymentStatus
	Outcome   Outcome
	// CascadeErr is set when the order update failed after the payment committed.
	CascadeErr error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type orderUpdater interface {
	UpdatePaymentState(ctx context.Context, orderID string, status enums.PaymentStatus, method enums.PaymentMethod) error
}

// Metrics is the subset of webhook metrics the engine reports to.
type Metrics interface {
	ObserveReconcile(provider string, d time.Duration)
	IncDisallowedTransition(provider, from, to string)
	IncCascadeFailure(provider string)
}

type EngineParams struct {
	DB       txRunner
	Payments *payments.Store
	Orders   orderUpdater
	Tracker  tracker.Tracker
	Outbox   outboxEmitter
	Metrics  Metrics
	Logger   *logger.Logger
	// EnforceTransitions skips events outside the transitions table instead
	// of applying them last-write-wins.
	EnforceTransitions bool
}

// Engine matches events to payments and applies them.
type Engine struct {
	db       txRunner
	payments *payments.Store
	orders   orderUpdater
	tracker  tracker.Tracker
	outbox   outboxEmitter
	metrics  Metrics
	logg     *logger.Logger
	enforce  bool
	now      func() time.Time
}

func NewEngine(params EngineParams) (*Engine, error) {
	if params.DB == nil {
		return nil, errors.New("db is required")
	}
	if params.Payments == nil {
		return nil, errors.New("payment store is required")
	}
	if params.Orders == nil {
		return nil, errors.New("order store is required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox service is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Engine{
		db:       params.DB,
		payments: params.Payments,
		orders:   params.Orders,
		tracker:  params.Tracker,
		outbox:   params.Outbox,
		metrics:  params.Metrics,
		logg:     params.Logger,
		enforce:  params.EnforceTransitions,
		now:      time.Now,
	}, nil
}

// Apply reconciles event against the stored payment. The payment write and
// its outbox event commit together; the order cascade runs afterwards and
// its failure is reported in Result without failing the call.
func (e *Engine) Apply(ctx context.Context, event normalize.Event) (Result, error) {
	started := e.now()
	defer func() {
		if e.metrics != nil {
			e.metrics.ObserveReconcile(string(event.Provider), e.now().Sub(started))
		}
	}()

	payment, err := e.lookup(ctx, event)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		PaymentID: payment.ID,
		Previous:  payment.Status,
		Status:    event.Status,
		Outcome:   OutcomeApplied,
	}
	if payment.OrderID != nil {
		result.OrderID = *payment.OrderID
	}

	ctx = e.logg.WithFields(ctx, map[string]any{
		"payment_id":  payment.ID,
		"from_status": payment.Status,
		"to_status":   event.Status,
	})

	if !Allowed(payment.Status, event.Status) {
		if e.metrics != nil {
			e.metrics.IncDisallowedTransition(string(event.Provider), string(payment.Status), string(event.Status))
		}
		if e.enforce {
			e.logg.Warn(ctx, "disallowed payment transition skipped")
			result.Status = payment.Status
			result.Outcome = OutcomeIgnored
			return result, nil
		}
		e.logg.Warn(ctx, "disallowed payment transition applied")
	}

	if err := e.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := e.payments.WithTx(tx).UpdateByID(ctx, payment.ID, e.patch(payment, event)); err != nil {
			return err
		}
		if payment.Status == event.Status {
			return nil
		}
		return e.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentStatusChanged,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Actor:         &outbox.ActorRef{Provider: string(event.Provider)},
			Data: payloads.PaymentStatusChangedEvent{
				PaymentID:      payment.ID,
				OrderID:        payment.OrderID,
				APIRef:         payment.APIRef,
				Provider:       event.Provider,
				PreviousStatus: payment.Status,
				Status:         event.Status,
				ProviderStatus: event.RawStatus,
			},
		})
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return Result{}, err
		}
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply payment update")
	}

	if result.OrderID != "" {
		method := MethodForChannel(event.Provider, event.Channel)
		if err := e.orders.UpdatePaymentState(ctx, result.OrderID, event.Status, method); err != nil {
			result.CascadeErr = err
			if e.metrics != nil {
				e.metrics.IncCascadeFailure(string(event.Provider))
			}
			e.logg.Error(e.logg.WithField(ctx, "order_id", result.OrderID), "order cascade failed", err)
		}
		e.track(ctx, payment, event)
	}

	return result, nil
}

func (e *Engine) lookup(ctx context.Context, event normalize.Event) (*models.Payment, error) {
	payment, err := e.payments.FindByAPIRef(ctx, event.Reference)
	if err == nil {
		return payment, nil
	}
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return nil, err
	}

	if event.Provider == enums.ProviderMobileMoney && e.tracker != nil {
		rec, terr := tracker.Lookup(ctx, e.tracker, tracker.KeysFor(event))
		switch {
		case terr == nil:
			p, perr := e.paymentForRecord(ctx, rec)
			if perr == nil || !pkgerrors.IsCode(perr, pkgerrors.CodeNotFound) {
				return p, perr
			}
		case !errors.Is(terr, tracker.ErrNotFound):
			e.logg.Error(ctx, "tracker lookup failed", terr)
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, terr, "tracker lookup")
		}
	}

	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found").
		WithDetails(map[string]any{"api_ref": event.Reference})
}

func (e *Engine) paymentForRecord(ctx context.Context, rec *tracker.Record) (*models.Payment, error) {
	switch {
	case rec.PaymentID != "":
		return e.payments.FindByID(ctx, rec.PaymentID)
	case rec.APIRef != "":
		return e.payments.FindByAPIRef(ctx, rec.APIRef)
	default:
		return e.payments.FindOne(ctx, payments.FieldOrderID, rec.OrderID)
	}
}

// patch overwrites status, provider and provider identifiers, stores the raw
// event, and merges deterministic event details into metadata.
func (e *Engine) patch(payment *models.Payment, event normalize.Event) map[string]any {
	patch := map[string]any{
		"status":    event.Status,
		"provider":  event.Provider,
		"raw_event": datatypes.JSON(event.Raw),
	}
	if event.InvoiceID != "" {
		patch[payments.FieldInvoiceID] = event.InvoiceID
	}
	if event.TrackingID != "" {
		patch[payments.FieldTrackingID] = event.TrackingID
	}

	metadata := datatypes.JSONMap{}
	for k, v := range payment.Metadata {
		metadata[k] = v
	}
	if event.RawStatus != "" {
		metadata["provider_status"] = event.RawStatus
	}
	if event.Channel != "" {
		metadata["channel"] = event.Channel
	}
	if event.Amount != nil {
		metadata["reported_amount"] = event.Amount.String()
	}
	if event.Currency != "" {
		metadata["reported_currency"] = event.Currency
	}
	patch["metadata"] = metadata
	return patch
}

func (e *Engine) track(ctx context.Context, payment *models.Payment, event normalize.Event) {
	if e.tracker == nil || event.Provider != enums.ProviderMobileMoney || payment.OrderID == nil {
		return
	}
	err := e.tracker.Put(ctx, tracker.Record{
		OrderID:       *payment.OrderID,
		PaymentID:     payment.ID,
		APIRef:        payment.APIRef,
		TransactionID: event.TrackingID,
		InvoiceID:     event.InvoiceID,
		Status:        event.Status,
	})
	if err != nil {
		e.logg.Error(ctx, "tracker update failed", err)
	}
}

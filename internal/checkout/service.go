// Package checkout initializes an order and its payment for the buyer.
package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/checkout-reconciler/internal/orders"
	"github.com/angelmondragon/checkout-reconciler/internal/payments"
	"github.com/angelmondragon/checkout-reconciler/internal/tracker"
	"github.com/angelmondragon/checkout-reconciler/pkg/db/models"
	"github.com/angelmondragon/checkout-reconciler/pkg/enums"
	pkgerrors "github.com/angelmondragon/checkout-reconciler/pkg/errors"
	"github.com/angelmondragon/checkout-reconciler/pkg/logger"
	"github.com/angelmondragon/checkout-reconciler/pkg/outbox"
	"github.com/angelmondragon/checkout-reconciler/pkg/outbox/payloads"
	"github.com/angelmondragon/checkout-reconciler/pkg/types"
)

// maxAttempts bounds retries when a generated order number or api_ref
// collides at insert time.
const maxAttempts = 3

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type numberGenerator interface {
	Generate(ctx context.Context) (string, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Input is a validated order initiation request.
type Input struct {
	UserID       string
	Provider     enums.PaymentProvider
	Subtotal     decimal.Decimal
	Tax          decimal.Decimal
	Shipping     decimal.Decimal
	Currency     string
	ShippingInfo types.ShippingInfo
}

// Result identifies the created order and the payment the client hands to
// the provider.
type Result struct {
	OrderID     string                `json:"order_id"`
	OrderNumber string                `json:"order_number"`
	PaymentID   string                `json:"payment_id"`
	APIRef      string                `json:"api_ref"`
	Provider    enums.PaymentProvider `json:"provider"`
	Status      enums.PaymentStatus   `json:"status"`
	Total       decimal.Decimal       `json:"total"`
	Currency    string                `json:"currency"`
}

type ServiceParams struct {
	DB       txRunner
	Orders   *orders.Store
	Payments *payments.Store
	Numbers  numberGenerator
	Outbox   outboxPublisher
	// Tracker is seeded for mobile-money payments; optional.
	Tracker  tracker.Tracker
	Currency string
	Logger   *logger.Logger
}

// Service creates orders together with their pending payment.
type Service struct {
	db       txRunner
	orders   *orders.Store
	payments *payments.Store
	numbers  numberGenerator
	outbox   outboxPublisher
	tracker  tracker.Tracker
	currency string
	logg     *logger.Logger
	now      func() time.Time
	newRef   func(time.Time) string
}

func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order store required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment store required")
	}
	if params.Numbers == nil {
		return nil, fmt.Errorf("order number generator required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	currency := strings.ToUpper(strings.TrimSpace(params.Currency))
	if currency == "" {
		return nil, fmt.Errorf("currency required")
	}
	return &Service{
		db:       params.DB,
		orders:   params.Orders,
		payments: params.Payments,
		numbers:  params.Numbers,
		outbox:   params.Outbox,
		tracker:  params.Tracker,
		currency: currency,
		logg:     params.Logger,
		now:      time.Now,
		newRef:   NewAPIRef,
	}, nil
}

// NewAPIRef returns a correlation key of the form order_<unix>_<6 alnum>.
func NewAPIRef(at time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("order_%d_%s", at.Unix(), suffix)
}

// Initiate writes the order, its payment and the order_created event in one
// transaction.
func (s *Service) Initiate(ctx context.Context, input Input) (*Result, error) {
	if err := s.validate(&input); err != nil {
		return nil, err
	}
	total := input.Subtotal.Add(input.Tax).Add(input.Shipping)
	if !total.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total must be positive")
	}

	var (
		result *Result
		err    error
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err = s.create(ctx, input, total)
		if err == nil || !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			break
		}
		s.logg.Warn(s.logg.WithField(ctx, "attempt", attempt), "order insert collided, retrying")
	}
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "could not allocate order identifiers")
		}
		return nil, err
	}

	s.seedTracker(ctx, result)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":   result.OrderID,
		"payment_id": result.PaymentID,
		"api_ref":    result.APIRef,
		"provider":   result.Provider,
	}), "order initiated")
	return result, nil
}

func (s *Service) validate(input *Input) error {
	if strings.TrimSpace(input.UserID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !input.Provider.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unsupported provider").
			WithDetails(map[string]any{"provider": string(input.Provider)})
	}
	for name, amount := range map[string]decimal.Decimal{"subtotal": input.Subtotal, "tax": input.Tax, "shipping": input.Shipping} {
		if amount.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, name+" must not be negative")
		}
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = s.currency
	}
	if currency != s.currency {
		return pkgerrors.New(pkgerrors.CodeValidation, "unsupported currency").
			WithDetails(map[string]any{"currency": input.Currency, "supported": s.currency})
	}
	input.Currency = currency
	return nil
}

func (s *Service) create(ctx context.Context, input Input, total decimal.Decimal) (*Result, error) {
	// The generator reads outside the transaction; a racing insert surfaces
	// as a conflict and is retried by the caller.
	number, err := s.numbers.Generate(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	order := models.Order{
		ID:            uuid.NewString(),
		OrderNumber:   number,
		UserID:        input.UserID,
		Status:        enums.OrderStatusPending,
		PaymentStatus: enums.PaymentStatusPending,
		PaymentMethod: input.Provider.DefaultMethod(),
		Subtotal:      input.Subtotal,
		Tax:           input.Tax,
		Shipping:      input.Shipping,
		Total:         total,
		Currency:      input.Currency,
		ShippingInfo:  input.ShippingInfo,
	}
	payment := models.Payment{
		ID:       "pay_" + uuid.NewString(),
		OrderID:  &order.ID,
		APIRef:   s.newRef(now),
		Amount:   total,
		Currency: input.Currency,
		Status:   enums.PaymentStatusPending,
		Provider: input.Provider,
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.orders.WithTx(tx).Insert(ctx, &order); err != nil {
			return err
		}
		if err := s.payments.WithTx(tx).Insert(ctx, &payment); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.UserID},
			OccurredAt:    now,
			Data: payloads.OrderCreatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				UserID:      order.UserID,
				PaymentID:   payment.ID,
				APIRef:      payment.APIRef,
				Provider:    payment.Provider,
				Total:       total,
				Currency:    order.Currency,
			},
		})
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}

	return &Result{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		PaymentID:   payment.ID,
		APIRef:      payment.APIRef,
		Provider:    payment.Provider,
		Status:      payment.Status,
		Total:       total,
		Currency:    order.Currency,
	}, nil
}

func (s *Service) seedTracker(ctx context.Context, result *Result) {
	if s.tracker == nil || result.Provider != enums.ProviderMobileMoney {
		return
	}
	err := s.tracker.Put(ctx, tracker.Record{
		OrderID:   result.OrderID,
		PaymentID: result.PaymentID,
		APIRef:    result.APIRef,
		Status:    result.Status,
	})
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "order_id", result.OrderID), "seed status tracker", err)
	}
}

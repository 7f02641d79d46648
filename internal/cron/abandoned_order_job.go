package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/checkout-reconciler/internal/orders"
	"github.com/angelmondragon/checkout-reconciler/pkg/db/models"
	"github.com/angelmondragon/checkout-reconciler/pkg/enums"
	"github.com/angelmondragon/checkout-reconciler/pkg/logger"
	"github.com/angelmondragon/checkout-reconciler/pkg/outbox"
	"github.com/angelmondragon/checkout-reconciler/pkg/outbox/payloads"
)

const (
	defaultAbandonedTimeout = 2 * time.Hour
	defaultAbandonedBatch   = 200
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// AbandonedOrderJobParams configure the abandoned order sweep.
type AbandonedOrderJobParams struct {
	Logger  *logger.Logger
	DB      txRunner
	Orders  *orders.Store
	Outbox  outboxEmitter
	Timeout time.Duration
	Batch   int
}

// NewAbandonedOrderJob builds the job that cancels pending orders which never
// got a payment linked within the timeout.
func NewAbandonedOrderJob(params AbandonedOrderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order store required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultAbandonedTimeout
	}
	batch := params.Batch
	if batch <= 0 {
		batch = defaultAbandonedBatch
	}
	return &abandonedOrderJob{
		logg:    params.Logger,
		db:      params.DB,
		orders:  params.Orders,
		outbox:  params.Outbox,
		timeout: timeout,
		batch:   batch,
		now:     time.Now,
	}, nil
}

type abandonedOrderJob struct {
	logg    *logger.Logger
	db      txRunner
	orders  *orders.Store
	outbox  outboxEmitter
	timeout time.Duration
	batch   int
	now     func() time.Time
}

func (j *abandonedOrderJob) Name() string { return "abandoned-orders" }

// Run cancels each stale order in its own transaction; one failure does not
// stop the rest of the batch.
func (j *abandonedOrderJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.timeout)
	stale, err := j.orders.ListAbandoned(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("query abandoned orders: %w", err)
	}

	var errs error
	cancelled := 0
	for _, order := range stale {
		ok, err := j.cancel(ctx, order)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("cancel order %s: %w", order.ID, err))
			continue
		}
		if ok {
			cancelled++
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":     cutoff,
		"candidates": len(stale),
		"cancelled":  cancelled,
	}), "abandoned order sweep complete")
	return errs
}

func (j *abandonedOrderJob) cancel(ctx context.Context, order models.Order) (bool, error) {
	now := j.now().UTC()
	var marked bool
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := j.orders.WithTx(tx).MarkAbandoned(ctx, order.ID, now)
		if err != nil || !ok {
			return err
		}
		marked = true
		return j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderAbandoned,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			OccurredAt:    now,
			Data: payloads.OrderAbandonedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				CancelledAt: now,
				Reason:      orders.CancelReasonAbandoned,
			},
		})
	})
	if err != nil {
		return false, err
	}
	return marked, nil
}

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/checkout-reconciler/internal/bootstrap"
	"github.com/angelmondragon/checkout-reconciler/internal/cron"
	"github.com/angelmondragon/checkout-reconciler/internal/orders"
	"github.com/angelmondragon/checkout-reconciler/pkg/metrics"
	"github.com/angelmondragon/checkout-reconciler/pkg/outbox"
)

const serviceName = "cron-worker"

func main() {
	rt, err := bootstrap.Start(context.Background(), bootstrap.Options{Service: serviceName, WithRedis: true})
	if err != nil {
		bootstrap.Exit(nil, "cron worker bootstrap failed", err)
	}
	runErr := run(rt)
	if closeErr := rt.Close(); closeErr != nil {
		rt.Logger.Error(context.Background(), "cron worker shutdown left resources open", closeErr)
	}
	if runErr != nil {
		bootstrap.Exit(rt.Logger, "cron worker stopped unexpectedly", runErr)
	}
}

// jobs builds the periodic checkout maintenance jobs.
func jobs(rt *bootstrap.Runtime) ([]cron.Job, error) {
	cfg := rt.Config
	outboxRepo := outbox.NewRepository(rt.DB.DB())

	abandoned, err := cron.NewAbandonedOrderJob(cron.AbandonedOrderJobParams{
		Logger:  rt.Logger,
		DB:      rt.DB,
		Orders:  orders.NewStore(rt.DB.DB()),
		Outbox:  outbox.NewService(outboxRepo, rt.Logger),
		Timeout: cfg.Checkout.AbandonedTimeout,
		Batch:   cfg.Cron.AbandonedBatch,
	})
	if err != nil {
		return nil, fmt.Errorf("abandoned order job: %w", err)
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     rt.Logger,
		DB:         rt.DB,
		Repository: outboxRepo,
		Retention:  cfg.Cron.OutboxRetention,
		BatchSize:  cfg.Cron.OutboxRetentionBatch,
	})
	if err != nil {
		return nil, fmt.Errorf("outbox retention job: %w", err)
	}
	return []cron.Job{abandoned, retention}, nil
}

func run(rt *bootstrap.Runtime) error {
	lock, err := cron.NewRedisLock(rt.Redis, rt.Redis.LockKey(serviceName), 0)
	if err != nil {
		return fmt.Errorf("cron lock: %w", err)
	}

	list, err := jobs(rt)
	if err != nil {
		return err
	}
	reg := cron.NewRegistry()
	for _, job := range list {
		if err := reg.Register(job); err != nil {
			return fmt.Errorf("register %s: %w", job.Name(), err)
		}
	}

	scheduler, err := cron.NewService(cron.ServiceParams{
		Logger:   rt.Logger,
		Registry: reg,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: rt.Config.Cron.Interval,
	})
	if err != nil {
		return fmt.Errorf("cron service: %w", err)
	}

	ctx, stop := rt.SignalContext()
	defer stop()
	rt.Logger.Info(ctx, "cron worker started")
	if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	rt.Logger.Info(ctx, "cron worker drained")
	return nil
}

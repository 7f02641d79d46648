package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/checkout-reconciler/api/routes"
	"github.com/angelmondragon/checkout-reconciler/internal/bootstrap"
	"github.com/angelmondragon/checkout-reconciler/internal/checkout"
	"github.com/angelmondragon/checkout-reconciler/internal/ordernumber"
	"github.com/angelmondragon/checkout-reconciler/internal/orders"
	"github.com/angelmondragon/checkout-reconciler/internal/payments"
	"github.com/angelmondragon/checkout-reconciler/internal/reconcile"
	"github.com/angelmondragon/checkout-reconciler/internal/tracker"
	"github.com/angelmondragon/checkout-reconciler/internal/webhooks"
	"github.com/angelmondragon/checkout-reconciler/internal/webhooks/verify"
	"github.com/angelmondragon/checkout-reconciler/pkg/enums"
	"github.com/angelmondragon/checkout-reconciler/pkg/env"
	"github.com/angelmondragon/checkout-reconciler/pkg/metrics"
	"github.com/angelmondragon/checkout-reconciler/pkg/outbox"
)

const (
	webhookGuardScope = "webhook"
	shutdownTimeout   = 15 * time.Second
)

func main() {
	rt, err := bootstrap.Start(context.Background(), bootstrap.Options{Service: "api", WithRedis: true})
	if err != nil {
		bootstrap.Exit(nil, "api bootstrap failed", err)
	}
	runErr := run(rt)
	if closeErr := rt.Close(); closeErr != nil {
		rt.Logger.Error(context.Background(), "api shutdown left resources open", closeErr)
	}
	if runErr != nil {
		bootstrap.Exit(rt.Logger, "api server stopped unexpectedly", runErr)
	}
}

func run(rt *bootstrap.Runtime) error {
	cfg, logg, dbClient, redisClient := rt.Config, rt.Logger, rt.DB, rt.Redis

	orderStore := orders.NewStore(dbClient.DB())
	paymentStore := payments.NewStore(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	webhookMetrics := metrics.NewWebhookMetrics(prometheus.DefaultRegisterer)

	statusTracker, err := tracker.New(cfg.Tracker, redisClient, paymentStore)
	if err != nil {
		return fmt.Errorf("status tracker: %w", err)
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		DB:       dbClient,
		Orders:   orderStore,
		Payments: paymentStore,
		Numbers:  ordernumber.New(orderStore),
		Outbox:   outboxService,
		Tracker:  statusTracker,
		Currency: cfg.Checkout.Currency,
		Logger:   logg,
	})
	if err != nil {
		return fmt.Errorf("checkout service: %w", err)
	}

	engine, err := reconcile.NewEngine(reconcile.EngineParams{
		DB:                 dbClient,
		Payments:           paymentStore,
		Orders:             orderStore,
		Tracker:            statusTracker,
		Outbox:             outboxService,
		Metrics:            webhookMetrics,
		Logger:             logg,
		EnforceTransitions: cfg.Webhooks.EnforceTransitions,
	})
	if err != nil {
		return fmt.Errorf("reconciliation engine: %w", err)
	}

	guard, err := webhooks.NewIdempotencyGuard(redisClient, cfg.Webhooks.IdempotencyTTL, webhookGuardScope)
	if err != nil {
		return fmt.Errorf("webhook idempotency guard: %w", err)
	}

	policy := verify.PolicyFromConfig(cfg.App, cfg.Webhooks)
	pipeline, err := webhooks.NewPipeline(webhooks.PipelineParams{
		Verifiers: map[enums.PaymentProvider]verify.Verifier{
			enums.ProviderCardGateway: verify.NewCardGateway(cfg.Webhooks.CardGatewaySecret, policy),
			enums.ProviderMobileMoney: verify.NewMobileMoney(statusTracker, logg),
			enums.ProviderAggregator:  verify.NewAggregator(cfg.Webhooks.AggregatorSecret, policy),
		},
		Engine:  engine,
		Guard:   guard,
		Metrics: webhookMetrics,
		Logger:  logg,
	})
	if err != nil {
		return fmt.Errorf("webhook pipeline: %w", err)
	}

	addr := ":" + env.First(cfg.App.Port, "PORT")
	ctx, stop := rt.SignalContext()
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"addr":    addr,
		"tracker": cfg.Tracker.Backend,
	})
	if policy.Production && cfg.Webhooks.AllowUnsigned {
		logg.Warn(ctx, "unsigned webhooks are accepted in production when a provider secret is missing")
	}

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			redisClient,
			checkoutService,
			statusTracker,
			paymentStore,
			pipeline,
			prometheus.DefaultGatherer,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "api server listening")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logg.Info(ctx, "api server drained")
	return nil
}

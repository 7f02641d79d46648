package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/checkout-reconciler/internal/bootstrap"
	"github.com/angelmondragon/checkout-reconciler/pkg/outbox"
	"github.com/angelmondragon/checkout-reconciler/pkg/outbox/registry"
	"github.com/angelmondragon/checkout-reconciler/pkg/pubsub"
)

const serviceName = "outbox-publisher"

func main() {
	rt, err := bootstrap.Start(context.Background(), bootstrap.Options{Service: serviceName})
	if err != nil {
		bootstrap.Exit(nil, "outbox publisher bootstrap failed", err)
	}
	runErr := run(rt)
	if closeErr := rt.Close(); closeErr != nil {
		rt.Logger.Error(context.Background(), "outbox publisher shutdown left resources open", closeErr)
	}
	if runErr != nil {
		bootstrap.Exit(rt.Logger, "outbox publisher stopped unexpectedly", runErr)
	}
}

// run relays payment and order events until a shutdown signal arrives.
func run(rt *bootstrap.Runtime) error {
	cfg := rt.Config

	topics, err := registry.New(cfg.PubSub)
	if err != nil {
		return fmt.Errorf("event registry: %w", err)
	}

	ctx, stop := rt.SignalContext()
	defer stop()

	client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, rt.Logger)
	if err != nil {
		return fmt.Errorf("pubsub client: %w", err)
	}
	rt.OnClose(client.Close)

	relay, err := NewService(ServiceParams{
		Config:     cfg.Outbox,
		Logger:     rt.Logger,
		DB:         rt.DB,
		PubSub:     client,
		Repository: outbox.NewRepository(rt.DB.DB()),
		Registry:   topics,
	})
	if err != nil {
		return fmt.Errorf("outbox relay: %w", err)
	}

	rt.Logger.Info(ctx, "outbox publisher started")
	if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	rt.Logger.Info(ctx, "outbox publisher drained")
	return nil
}

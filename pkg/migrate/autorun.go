package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/checkout-reconciler/pkg/config"
	"github.com/angelmondragon/checkout-reconciler/pkg/db"
	"github.com/angelmondragon/checkout-reconciler/pkg/logger"
)

// MaybeRunDev brings the schema up to date on boot, only in the dev
// environment with CHECKOUT_AUTO_MIGRATE set.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.SQL()
	if err != nil {
		return err
	}
	m, err := New(sqlDB, cfg.DB.Driver, DefaultDir)
	if err != nil {
		return err
	}

	before, err := m.Current(ctx)
	if err != nil {
		return err
	}
	if err := m.Up(ctx); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	after, err := m.Current(ctx)
	if err != nil {
		return err
	}

	logg.Info(logg.WithFields(ctx, map[string]any{
		"from_version": before,
		"to_version":   after,
		"driver":       cfg.DB.Driver,
	}), "schema auto-migrated")
	return nil
}

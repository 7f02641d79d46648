package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/checkout-reconciler/api/responses"
	"github.com/angelmondragon/checkout-reconciler/pkg/config"
	pkgerrors "github.com/angelmondragon/checkout-reconciler/pkg/errors"
	"github.com/angelmondragon/checkout-reconciler/pkg/logger"
)

const envHeader = "X-Checkout-Env"

type pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the database and redis; either failing marks the instance unready.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP, redisP pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		checks := []struct {
			name string
			p    pinger
		}{
			{"database", dbP},
			{"redis", redisP},
		}
		for _, c := range checks {
			if c.p == nil {
				continue
			}
			if err := c.p.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, c.name+" unavailable"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}

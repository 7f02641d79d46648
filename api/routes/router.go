package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/checkout-reconciler/api/controllers"
	webhookcontrollers "github.com/angelmondragon/checkout-reconciler/api/controllers/webhooks"
	"github.com/angelmondragon/checkout-reconciler/api/middleware"
	"github.com/angelmondragon/checkout-reconciler/pkg/config"
	"github.com/angelmondragon/checkout-reconciler/pkg/db"
	"github.com/angelmondragon/checkout-reconciler/pkg/logger"
	"github.com/angelmondragon/checkout-reconciler/pkg/metrics"
	"github.com/angelmondragon/checkout-reconciler/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	idempotencyStore redis.IdempotencyStore,
	checkoutService controllers.CheckoutService,
	statusTracker controllers.StatusTracker,
	paymentFinder controllers.PaymentFinder,
	pipeline webhookcontrollers.Pipeline,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(gatherer))
	}

	// Providers call these server-to-server; authenticity comes from the verifiers.
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/card-gateway", webhookcontrollers.CardGateway(pipeline, logg))
		r.Post("/mobile-money", webhookcontrollers.MobileMoney(pipeline, logg))
		r.Post("/aggregator", webhookcontrollers.Aggregator(pipeline, logg))
	})

	r.Get("/api/v1/payments/{orderId}/status", controllers.PaymentStatus(statusTracker, paymentFinder, logg))

	r.Route("/api/v1/checkout", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.With(middleware.Idempotency(idempotencyStore, cfg.Checkout.IdempotencyTTL, logg)).
			Post("/orders", controllers.InitiateCheckout(checkoutService, logg))
	})

	return r
}

package config

// EnvPrefix is handed to envconfig; every tag below carries the full name.
const EnvPrefix = "CHECKOUT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "CHECKOUT_APP_ENV"
	EnvPort     = "CHECKOUT_APP_PORT"
	EnvDBDSN    = "CHECKOUT_DB_DSN"
	EnvDBHost   = "CHECKOUT_DB_HOST"
	EnvDBUser   = "CHECKOUT_DB_USER"
	EnvDBName   = "CHECKOUT_DB_NAME"
	EnvDBDriver = "CHECKOUT_DB_DRIVER"
	EnvRedisURL = "CHECKOUT_REDIS_URL"

	EnvJWTSecret = "CHECKOUT_JWT_SECRET"
	EnvJWTIssuer = "CHECKOUT_JWT_ISSUER"

	EnvCardGatewaySecret    = "CHECKOUT_CARD_GATEWAY_SECRET"
	EnvAggregatorSecret     = "CHECKOUT_AGGREGATOR_SECRET"
	EnvWebhookStrict        = "CHECKOUT_WEBHOOK_STRICT"
	EnvWebhookAllowUnsigned = "CHECKOUT_WEBHOOK_ALLOW_UNSIGNED"
	EnvEnforceTransitions   = "CHECKOUT_ENFORCE_TRANSITIONS"
	EnvTrackerBackend       = "CHECKOUT_TRACKER_BACKEND"
	EnvGCPProjectID         = "CHECKOUT_GCP_PROJECT_ID"
	EnvPubSubPaymentsTopic  = "CHECKOUT_PUBSUB_PAYMENTS_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

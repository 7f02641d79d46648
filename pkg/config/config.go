package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Webhooks     WebhookConfig
	Tracker      TrackerConfig
	Checkout     CheckoutConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Tracker.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CHECKOUT_APP_ENV" required:"true"`
	Port         string `envconfig:"CHECKOUT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CHECKOUT_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"CHECKOUT_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"CHECKOUT_LOG_WARN_STACK" default:"false"`
	// CORSOrigins lists the storefront origins allowed to initiate checkout and poll status.
	CORSOrigins []string `envconfig:"CHECKOUT_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

// IsProd accepts both "prod" and "production".
func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	DSN    string `envconfig:"CHECKOUT_DB_DSN"`
	Driver string `envconfig:"CHECKOUT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CHECKOUT_DB_HOST"`
	LegacyPort     int    `envconfig:"CHECKOUT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CHECKOUT_DB_USER"`
	LegacyPassword string `envconfig:"CHECKOUT_DB_PASSWORD"`
	LegacyName     string `envconfig:"CHECKOUT_DB_NAME"`
	LegacySSLMode  string `envconfig:"CHECKOUT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CHECKOUT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CHECKOUT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CHECKOUT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CHECKOUT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"CHECKOUT_DB_SLOW_QUERY" default:"500ms"`
}

// IsSQLite reports whether the local single-file driver is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), "sqlite")
}

type RedisConfig struct {
	URL          string        `envconfig:"CHECKOUT_REDIS_URL"`
	Address      string        `envconfig:"CHECKOUT_REDIS_ADDR"`
	Password     string        `envconfig:"CHECKOUT_REDIS_PASSWORD"`
	DB           int           `envconfig:"CHECKOUT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CHECKOUT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CHECKOUT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CHECKOUT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CHECKOUT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CHECKOUT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig configures verification of bearer tokens minted by the auth service.
type JWTConfig struct {
	Secret string `envconfig:"CHECKOUT_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"CHECKOUT_JWT_ISSUER" required:"true"`
}

type WebhookConfig struct {
	CardGatewaySecret string `envconfig:"CHECKOUT_CARD_GATEWAY_SECRET"`
	AggregatorSecret  string `envconfig:"CHECKOUT_AGGREGATOR_SECRET"`
	// Strict requires a signature header in production.
	Strict bool `envconfig:"CHECKOUT_WEBHOOK_STRICT" default:"true"`
	// AllowUnsigned re-opens the development fallback in production when a secret is missing.
	AllowUnsigned      bool          `envconfig:"CHECKOUT_WEBHOOK_ALLOW_UNSIGNED" default:"false"`
	TestSignature      string        `envconfig:"CHECKOUT_WEBHOOK_TEST_SIGNATURE" default:"test-signature"`
	EnforceTransitions bool          `envconfig:"CHECKOUT_ENFORCE_TRANSITIONS" default:"false"`
	IdempotencyTTL     time.Duration `envconfig:"CHECKOUT_WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
}

const (
	TrackerBackendMemory = "memory"
	TrackerBackendRedis  = "redis"
	TrackerBackendStore  = "store"
)

type TrackerConfig struct {
	Backend string        `envconfig:"CHECKOUT_TRACKER_BACKEND" default:"store"`
	TTL     time.Duration `envconfig:"CHECKOUT_TRACKER_TTL" default:"24h"`
}

func (t TrackerConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(t.Backend)) {
	case TrackerBackendMemory, TrackerBackendRedis, TrackerBackendStore:
		return nil
	}
	return fmt.Errorf("unsupported tracker backend %q", t.Backend)
}

type CheckoutConfig struct {
	Currency         string        `envconfig:"CHECKOUT_CURRENCY" default:"KES"`
	AbandonedTimeout time.Duration `envconfig:"CHECKOUT_ABANDONED_TIMEOUT" default:"2h"`
	// IdempotencyTTL is how long an initiation response is replayable.
	IdempotencyTTL time.Duration `envconfig:"CHECKOUT_IDEMPOTENCY_TTL" default:"168h"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"CHECKOUT_CRON_INTERVAL" default:"15m"`
	// AbandonedBatch caps how many orders one sweep cancels.
	AbandonedBatch int `envconfig:"CHECKOUT_CRON_ABANDONED_BATCH" default:"200"`
	// OutboxRetention is how long published outbox rows are kept.
	OutboxRetention time.Duration `envconfig:"CHECKOUT_CRON_OUTBOX_RETENTION" default:"720h"`
	// OutboxRetentionBatch bounds each delete statement.
	OutboxRetentionBatch int `envconfig:"CHECKOUT_CRON_OUTBOX_RETENTION_BATCH" default:"1000"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CHECKOUT_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"CHECKOUT_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"CHECKOUT_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"CHECKOUT_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	PaymentsTopic string `envconfig:"CHECKOUT_PUBSUB_PAYMENTS_TOPIC" default:"checkout-payment-events"`
	OrdersTopic   string `envconfig:"CHECKOUT_PUBSUB_ORDERS_TOPIC" default:"checkout-order-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"CHECKOUT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"CHECKOUT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"CHECKOUT_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

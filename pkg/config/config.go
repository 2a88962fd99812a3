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
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Stripe       StripeConfig
	Checkout     CheckoutConfig
	Cron         CronConfig
	Outbox       OutboxConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Kafka        KafkaConfig
	Notification NotificationConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Outbox.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"BAZAR_APP_ENV" required:"true"`
	Port         string   `envconfig:"BAZAR_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"BAZAR_LOG_LEVEL" default:"info"`
	LogFormat    string   `envconfig:"BAZAR_LOG_FORMAT" default:"json"`
	LogWarnStack bool     `envconfig:"BAZAR_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"BAZAR_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"BAZAR_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"BAZAR_DB_DSN"`
	Driver string `envconfig:"BAZAR_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BAZAR_DB_HOST"`
	LegacyPort     int    `envconfig:"BAZAR_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BAZAR_DB_USER"`
	LegacyPassword string `envconfig:"BAZAR_DB_PASSWORD"`
	LegacyName     string `envconfig:"BAZAR_DB_NAME"`
	LegacySSLMode  string `envconfig:"BAZAR_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BAZAR_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BAZAR_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BAZAR_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BAZAR_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"BAZAR_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

// IsSQLite reports whether the configured driver targets sqlite (local runs and tests).
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"BAZAR_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BAZAR_REDIS_ADDR"`
	Password     string        `envconfig:"BAZAR_REDIS_PASSWORD"`
	DB           int           `envconfig:"BAZAR_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BAZAR_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BAZAR_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BAZAR_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BAZAR_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BAZAR_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BAZAR_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BAZAR_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"BAZAR_JWT_EXPIRATION_MINUTES" default:"60"`
}

type RateLimitConfig struct {
	CheckoutWindow time.Duration `envconfig:"BAZAR_RATE_LIMIT_CHECKOUT_WINDOW" default:"1m"`
	CheckoutLimit  int           `envconfig:"BAZAR_RATE_LIMIT_CHECKOUT_LIMIT" default:"10"`
	CouponWindow   time.Duration `envconfig:"BAZAR_RATE_LIMIT_COUPON_WINDOW" default:"1m"`
	CouponLimit    int           `envconfig:"BAZAR_RATE_LIMIT_COUPON_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BAZAR_AUTO_MIGRATE" default:"false"`
}

type StripeConfig struct {
	APIKey                 string        `envconfig:"BAZAR_STRIPE_API_KEY"`
	Secret                 string        `envconfig:"BAZAR_STRIPE_SECRET"`
	Env                    string        `envconfig:"BAZAR_STRIPE_ENV" default:"test"`
	Currency               string        `envconfig:"BAZAR_STRIPE_CURRENCY" default:"usd"`
	SuccessURL             string        `envconfig:"BAZAR_STRIPE_SUCCESS_URL" default:"http://localhost:5173/payment-success"`
	CancelURL              string        `envconfig:"BAZAR_STRIPE_CANCEL_URL" default:"http://localhost:5173/payment-cancel"`
	SubscriptionSuccessURL string        `envconfig:"BAZAR_STRIPE_SUBSCRIPTION_SUCCESS_URL" default:"http://localhost:5173/seller/subscription/success"`
	SubscriptionCancelURL  string        `envconfig:"BAZAR_STRIPE_SUBSCRIPTION_CANCEL_URL" default:"http://localhost:5173/seller/subscription/cancel"`
	WebhookIdempotencyTTL  time.Duration `envconfig:"BAZAR_STRIPE_WEBHOOK_IDEMPOTENCY_TTL" default:"168h"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// NormalizedCurrency returns the lower-cased ISO currency used for checkout sessions.
func (s StripeConfig) NormalizedCurrency() string {
	cur := strings.TrimSpace(strings.ToLower(s.Currency))
	if cur == "" {
		return "usd"
	}
	return cur
}

type CheckoutConfig struct {
	CorrelationTTL time.Duration `envconfig:"BAZAR_CHECKOUT_CORRELATION_TTL" default:"48h"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"BAZAR_CRON_INTERVAL" default:"24h"`
	LockTTL  time.Duration `envconfig:"BAZAR_CRON_LOCK_TTL" default:"30m"`

	OutboxRetention  time.Duration `envconfig:"BAZAR_OUTBOX_RETENTION" default:"720h"`
	OutboxPurgeBatch int           `envconfig:"BAZAR_OUTBOX_PURGE_BATCH" default:"1000"`
}

type OutboxConfig struct {
	Driver         string `envconfig:"BAZAR_OUTBOX_DRIVER" default:"pubsub"`
	BatchSize      int    `envconfig:"BAZAR_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"BAZAR_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"BAZAR_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (o OutboxConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(o.Driver)) {
	case OutboxDriverPubSub, OutboxDriverKafka:
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q", EnvOutboxDriver, OutboxDriverPubSub, OutboxDriverKafka)
	}
}

// NormalizedDriver returns the lower-cased outbox transport name.
func (o OutboxConfig) NormalizedDriver() string {
	return strings.ToLower(strings.TrimSpace(o.Driver))
}

type GCPConfig struct {
	ProjectID string `envconfig:"BAZAR_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"BAZAR_PUBSUB_ORDERS_TOPIC" default:"bazar-order-events"`
	PaymentsTopic      string `envconfig:"BAZAR_PUBSUB_PAYMENTS_TOPIC" default:"bazar-payment-events"`
	SubscriptionsTopic string `envconfig:"BAZAR_PUBSUB_SUBSCRIPTIONS_TOPIC" default:"bazar-subscription-events"`
}

type KafkaConfig struct {
	Brokers      []string      `envconfig:"BAZAR_KAFKA_BROKERS"`
	TopicPrefix  string        `envconfig:"BAZAR_KAFKA_TOPIC_PREFIX"`
	BatchTimeout time.Duration `envconfig:"BAZAR_KAFKA_BATCH_TIMEOUT" default:"50ms"`
	RequiredAcks int           `envconfig:"BAZAR_KAFKA_REQUIRED_ACKS" default:"-1"`
}

type NotificationConfig struct {
	AWSRegion         string `envconfig:"BAZAR_AWS_REGION" default:"us-east-1"`
	AWSAccessKeyID    string `envconfig:"BAZAR_AWS_ACCESS_KEY_ID"`
	AWSSecretKey      string `envconfig:"BAZAR_AWS_SECRET_ACCESS_KEY"`
	SenderEmail       string `envconfig:"BAZAR_NOTIFICATION_SENDER_EMAIL"`
	DeliveryRecipient string `envconfig:"BAZAR_DELIVERY_RECIPIENT_EMAIL"`
}

// SESEnabled reports whether enough settings exist to send email through SES.
func (n NotificationConfig) SESEnabled() bool {
	return strings.TrimSpace(n.SenderEmail) != "" && strings.TrimSpace(n.AWSRegion) != ""
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required when %s=%s", EnvDBDSN, EnvDBDriver, DriverSQLite)
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

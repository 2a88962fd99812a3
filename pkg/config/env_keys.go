package config

// EnvPrefix is passed to envconfig; every field carries an explicit envconfig tag so the
// prefix only matters for fields without one.
const EnvPrefix = "BAZAR"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	OutboxDriverPubSub = "pubsub"
	OutboxDriverKafka  = "kafka"
)

const (
	EnvAppEnv   = "BAZAR_APP_ENV"
	EnvPort     = "BAZAR_APP_PORT"
	EnvLogLevel = "BAZAR_LOG_LEVEL"

	EnvDBDSN    = "BAZAR_DB_DSN"
	EnvDBDriver = "BAZAR_DB_DRIVER"
	EnvDBHost   = "BAZAR_DB_HOST"
	EnvDBUser   = "BAZAR_DB_USER"
	EnvDBName   = "BAZAR_DB_NAME"

	EnvRedisURL = "BAZAR_REDIS_URL"

	EnvJWTSecret  = "BAZAR_JWT_SECRET"
	EnvJWTIssuer  = "BAZAR_JWT_ISSUER"
	EnvJWTExpMins = "BAZAR_JWT_EXPIRATION_MINUTES"

	EnvStripeAPIKey = "BAZAR_STRIPE_API_KEY"
	EnvStripeSecret = "BAZAR_STRIPE_SECRET"

	EnvOutboxDriver = "BAZAR_OUTBOX_DRIVER"
	EnvKafkaBrokers = "BAZAR_KAFKA_BROKERS"
	EnvCronInterval = "BAZAR_CRON_INTERVAL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

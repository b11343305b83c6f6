package config

const (
	EnvPrefix = "ORDERCORE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	DefaultSQLiteDSN = "file:ordercore.db?cache=shared&_foreign_keys=on"
)

const (
	EnvAppEnv   = "ORDERCORE_APP_ENV"
	EnvPort     = "ORDERCORE_APP_PORT"
	EnvLogLevel = "ORDERCORE_LOG_LEVEL"

	EnvDBDSN    = "ORDERCORE_DB_DSN"
	EnvDBDriver = "ORDERCORE_DB_DRIVER"
	EnvDBHost   = "ORDERCORE_DB_HOST"
	EnvDBPort   = "ORDERCORE_DB_PORT"
	EnvDBUser   = "ORDERCORE_DB_USER"
	EnvDBPass   = "ORDERCORE_DB_PASSWORD"
	EnvDBName   = "ORDERCORE_DB_NAME"

	EnvRedisURL = "ORDERCORE_REDIS_URL"

	EnvJWTSecret  = "ORDERCORE_JWT_SECRET"
	EnvJWTIssuer  = "ORDERCORE_JWT_ISSUER"
	EnvJWTExpMins = "ORDERCORE_JWT_EXPIRATION_MINUTES"

	EnvOrderSerialPrefix = "ORDERCORE_ORDER_SERIAL_PREFIX"

	EnvECPayMerchantID  = "ORDERCORE_ECPAY_MERCHANT_ID"
	EnvECPayHashKey     = "ORDERCORE_ECPAY_HASH_KEY"
	EnvECPayHashIV      = "ORDERCORE_ECPAY_HASH_IV"
	EnvECPayEncryptType = "ORDERCORE_ECPAY_ENCRYPT_TYPE"
	EnvBackendURL       = "ORDERCORE_BACKEND_URL"
	EnvFrontendURL      = "ORDERCORE_FRONTEND_URL"

	EnvGCPProjectID        = "ORDERCORE_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic   = "ORDERCORE_PUBSUB_ORDERS_TOPIC"
	EnvPubSubPaymentsTopic = "ORDERCORE_PUBSUB_PAYMENTS_TOPIC"
	EnvPubSubNotifyTopic   = "ORDERCORE_PUBSUB_NOTIFICATION_TOPIC"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

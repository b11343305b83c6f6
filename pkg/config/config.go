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
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	Orders       OrdersConfig
	ECPay        ECPayConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Metrics      MetricsConfig
	Maintenance  MaintenanceConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env             string        `envconfig:"ORDERCORE_APP_ENV" required:"true"`
	Port            string        `envconfig:"ORDERCORE_APP_PORT" required:"true"`
	LogLevel        string        `envconfig:"ORDERCORE_LOG_LEVEL" default:"info"`
	LogWarnStack    bool          `envconfig:"ORDERCORE_LOG_WARN_STACK" default:"false"`
	ShutdownTimeout time.Duration `envconfig:"ORDERCORE_APP_SHUTDOWN_TIMEOUT" default:"15s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"ORDERCORE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"ORDERCORE_DB_DSN"`
	Driver string `envconfig:"ORDERCORE_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"ORDERCORE_DB_HOST"`
	Port     int    `envconfig:"ORDERCORE_DB_PORT" default:"5432"`
	User     string `envconfig:"ORDERCORE_DB_USER"`
	Password string `envconfig:"ORDERCORE_DB_PASSWORD"`
	Name     string `envconfig:"ORDERCORE_DB_NAME"`
	SSLMode  string `envconfig:"ORDERCORE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ORDERCORE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ORDERCORE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ORDERCORE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ORDERCORE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver is the embedded sqlite driver.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"ORDERCORE_REDIS_URL"`
	Address      string        `envconfig:"ORDERCORE_REDIS_ADDR"`
	Password     string        `envconfig:"ORDERCORE_REDIS_PASSWORD"`
	DB           int           `envconfig:"ORDERCORE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ORDERCORE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ORDERCORE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ORDERCORE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ORDERCORE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ORDERCORE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"ORDERCORE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ORDERCORE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ORDERCORE_JWT_EXPIRATION_MINUTES" default:"60"`
}

type RateLimitConfig struct {
	APIWindow      time.Duration `envconfig:"ORDERCORE_RATE_LIMIT_API_WINDOW" default:"1m"`
	APIIPLimit     int           `envconfig:"ORDERCORE_RATE_LIMIT_API_IP_LIMIT" default:"300"`
	APIUserLimit   int           `envconfig:"ORDERCORE_RATE_LIMIT_API_USER_LIMIT" default:"120"`
	GatewayWindow  time.Duration `envconfig:"ORDERCORE_RATE_LIMIT_GATEWAY_WINDOW" default:"1m"`
	GatewayIPLimit int           `envconfig:"ORDERCORE_RATE_LIMIT_GATEWAY_IP_LIMIT" default:"600"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ORDERCORE_AUTO_MIGRATE" default:"false"`
}

type OrdersConfig struct {
	SerialPrefix        string        `envconfig:"ORDERCORE_ORDER_SERIAL_PREFIX" default:"ORD"`
	SerialMaxAttempts   int           `envconfig:"ORDERCORE_ORDER_SERIAL_MAX_ATTEMPTS" default:"5"`
	IdempotencyTTL      time.Duration `envconfig:"ORDERCORE_ORDER_IDEMPOTENCY_TTL" default:"24h"`
	DefaultPaymentLabel string        `envconfig:"ORDERCORE_ORDER_DEFAULT_PAYMENT_METHOD" default:"mock"`
}

type ECPayConfig struct {
	MerchantID  string        `envconfig:"ORDERCORE_ECPAY_MERCHANT_ID" default:"3002607"`
	HashKey     string        `envconfig:"ORDERCORE_ECPAY_HASH_KEY" default:"pwFHCqoQZGmho4w6"`
	HashIV      string        `envconfig:"ORDERCORE_ECPAY_HASH_IV" default:"EkRm7iFT261dpevs"`
	EncryptType int           `envconfig:"ORDERCORE_ECPAY_ENCRYPT_TYPE" default:"1"`
	ActionURL   string        `envconfig:"ORDERCORE_ECPAY_ACTION_URL" default:"https://payment-stage.ecpay.com.tw/Cashier/AioCheckOut/V5"`
	TradePrefix string        `envconfig:"ORDERCORE_ECPAY_TRADE_PREFIX" default:"OC"`
	TradeDesc   string        `envconfig:"ORDERCORE_ECPAY_TRADE_DESC" default:"ordercore payment"`
	BackendURL  string        `envconfig:"ORDERCORE_BACKEND_URL" default:"http://localhost:8080"`
	FrontendURL string        `envconfig:"ORDERCORE_FRONTEND_URL" default:"http://localhost:5173"`
	NotifyPath  string        `envconfig:"ORDERCORE_ECPAY_NOTIFY_PATH" default:"/api/v1/payments/ecpay/callback"`
	ReturnPath  string        `envconfig:"ORDERCORE_ECPAY_RETURN_PATH" default:"/api/v1/payments/ecpay/return"`
	ResultPath  string        `envconfig:"ORDERCORE_ECPAY_RESULT_PATH" default:"/payment/result"`
	CallbackTTL time.Duration `envconfig:"ORDERCORE_ECPAY_CALLBACK_GUARD_TTL" default:"720h"`
}

// NotifyURL is the server-to-server callback registered as ReturnURL with the gateway.
func (e ECPayConfig) NotifyURL() string {
	return joinURL(e.BackendURL, e.NotifyPath)
}

// OrderResultURL is the browser auto-return target.
func (e ECPayConfig) OrderResultURL() string {
	return joinURL(e.BackendURL, e.ReturnPath)
}

// ResultPageURL is the frontend page the auto-return redirects to.
func (e ECPayConfig) ResultPageURL() string {
	return joinURL(e.FrontendURL, e.ResultPath)
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ORDERCORE_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"ORDERCORE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ORDERCORE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic              string `envconfig:"ORDERCORE_PUBSUB_ORDERS_TOPIC" default:"oc-order-events"`
	OrdersSubscription       string `envconfig:"ORDERCORE_PUBSUB_ORDERS_SUBSCRIPTION"`
	PaymentsTopic            string `envconfig:"ORDERCORE_PUBSUB_PAYMENTS_TOPIC" default:"oc-payment-events"`
	PaymentsSubscription     string `envconfig:"ORDERCORE_PUBSUB_PAYMENTS_SUBSCRIPTION"`
	NotificationTopic        string `envconfig:"ORDERCORE_PUBSUB_NOTIFICATION_TOPIC" default:"oc-notification-events"`
	NotificationSubscription string `envconfig:"ORDERCORE_PUBSUB_NOTIFICATION_SUBSCRIPTION"`
}

type OutboxConfig struct {
	Enabled        bool `envconfig:"ORDERCORE_OUTBOX_ENABLED" default:"true"`
	BatchSize      int  `envconfig:"ORDERCORE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int  `envconfig:"ORDERCORE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int  `envconfig:"ORDERCORE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type MetricsConfig struct {
	Enabled bool   `envconfig:"ORDERCORE_METRICS_ENABLED" default:"true"`
	Path    string `envconfig:"ORDERCORE_METRICS_PATH" default:"/metrics"`
}

// MaintenanceConfig drives cmd/cron-worker.
type MaintenanceConfig struct {
	Interval              time.Duration `envconfig:"ORDERCORE_MAINTENANCE_INTERVAL" default:"1h"`
	LockTTL               time.Duration `envconfig:"ORDERCORE_MAINTENANCE_LOCK_TTL" default:"55m"`
	OutboxRetention       time.Duration `envconfig:"ORDERCORE_MAINTENANCE_OUTBOX_RETENTION" default:"720h"`
	NotificationRetention time.Duration `envconfig:"ORDERCORE_MAINTENANCE_NOTIFICATION_RETENTION" default:"2160h"`
}

func joinURL(base, path string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/") + "/" + strings.TrimLeft(path, "/")
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = DefaultSQLiteDSN
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range discreteDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

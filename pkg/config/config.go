package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Pricing      PricingConfig
	AuthorizeNet AuthorizeNetConfig
	RateLimit    RateLimitConfig
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
	if err := cfg.Pricing.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SIKARS_APP_ENV" required:"true"`
	Port         string `envconfig:"SIKARS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SIKARS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SIKARS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SIKARS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SIKARS_DB_DSN"`
	Driver string `envconfig:"SIKARS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SIKARS_DB_HOST"`
	LegacyPort     int    `envconfig:"SIKARS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SIKARS_DB_USER"`
	LegacyPassword string `envconfig:"SIKARS_DB_PASSWORD"`
	LegacyName     string `envconfig:"SIKARS_DB_NAME"`
	LegacySSLMode  string `envconfig:"SIKARS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SIKARS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SIKARS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SIKARS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SIKARS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SIKARS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SIKARS_REDIS_ADDR"`
	Password     string        `envconfig:"SIKARS_REDIS_PASSWORD"`
	DB           int           `envconfig:"SIKARS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SIKARS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SIKARS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SIKARS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SIKARS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SIKARS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SIKARS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SIKARS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SIKARS_JWT_EXPIRATION_MINUTES" default:"60"`
}

// PricingConfig drives the order pricing calculator. Amounts are integer cents.
type PricingConfig struct {
	TaxRate                string `envconfig:"SIKARS_TAX_RATE" default:"0.08"`
	ShippingStandardCents  int    `envconfig:"SIKARS_SHIPPING_STANDARD_CENTS" default:"999"`
	ShippingExpressCents   int    `envconfig:"SIKARS_SHIPPING_EXPRESS_CENTS" default:"2499"`
	CustomBasePriceCents   int    `envconfig:"SIKARS_CUSTOM_BASE_PRICE_CENTS" default:"3000"`
	MaxOrderTotalCents     int    `envconfig:"SIKARS_MAX_ORDER_TOTAL_CENTS" default:"1000000"`
	OrderNumberMaxAttempts int    `envconfig:"SIKARS_ORDER_NUMBER_MAX_ATTEMPTS" default:"5"`
}

func (p PricingConfig) validate() error {
	rate, err := decimal.NewFromString(p.TaxRate)
	if err != nil {
		return fmt.Errorf("invalid tax rate %q: %w", p.TaxRate, err)
	}
	if rate.IsNegative() {
		return fmt.Errorf("tax rate must not be negative")
	}
	return nil
}

// TaxRateDecimal returns the configured tax rate as a decimal.
// Load has already validated the string.
func (p PricingConfig) TaxRateDecimal() decimal.Decimal {
	rate, err := decimal.NewFromString(p.TaxRate)
	if err != nil {
		return decimal.Zero
	}
	return rate
}

type AuthorizeNetConfig struct {
	LoginID        string        `envconfig:"SIKARS_AUTHNET_LOGIN_ID"`
	TransactionKey string        `envconfig:"SIKARS_AUTHNET_TRANSACTION_KEY"`
	BaseURL        string        `envconfig:"SIKARS_AUTHNET_BASE_URL" default:"https://apitest.authorize.net/xml/v1/request.api"`
	Timeout        time.Duration `envconfig:"SIKARS_AUTHNET_TIMEOUT" default:"15s"`
}

// RateLimitConfig throttles charge attempts to slow down card testing.
type RateLimitConfig struct {
	PaymentWindow    time.Duration `envconfig:"SIKARS_RATE_LIMIT_PAYMENT_WINDOW" default:"1m"`
	PaymentIPLimit   int           `envconfig:"SIKARS_RATE_LIMIT_PAYMENT_IP_LIMIT" default:"10"`
	PaymentUserLimit int           `envconfig:"SIKARS_RATE_LIMIT_PAYMENT_USER_LIMIT" default:"5"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SIKARS_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SIKARS_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"SIKARS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SIKARS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"SIKARS_PUBSUB_ORDERS_TOPIC" default:"skr-order-events"`
	OrdersSubscription string `envconfig:"SIKARS_PUBSUB_ORDERS_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SIKARS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SIKARS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SIKARS_OUTBOX_MAX_ATTEMPTS" default:"10"`
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

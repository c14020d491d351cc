package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every environment variable read by the service.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Razorpay     RazorpayConfig
	Pricing      PricingConfig
	Outbox       OutboxConfig
	Mail         MailConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string   `envconfig:"PIZZABOX_APP_ENV" required:"true"`
	Port         string   `envconfig:"PIZZABOX_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"PIZZABOX_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"PIZZABOX_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"PIZZABOX_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PIZZABOX_DB_DSN"`
	Driver string `envconfig:"PIZZABOX_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PIZZABOX_DB_HOST"`
	LegacyPort     int    `envconfig:"PIZZABOX_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PIZZABOX_DB_USER"`
	LegacyPassword string `envconfig:"PIZZABOX_DB_PASSWORD"`
	LegacyName     string `envconfig:"PIZZABOX_DB_NAME"`
	LegacySSLMode  string `envconfig:"PIZZABOX_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PIZZABOX_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PIZZABOX_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PIZZABOX_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PIZZABOX_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.LegacyHost == "" || d.LegacyUser == "" || d.LegacyName == "" {
		return fmt.Errorf("either PIZZABOX_DB_DSN or host/user/name parts are required")
	}
	d.DSN = fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.LegacyHost, d.LegacyPort, d.LegacyUser, d.LegacyPassword, d.LegacyName, d.LegacySSLMode,
	)
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"PIZZABOX_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PIZZABOX_REDIS_ADDR"`
	Password     string        `envconfig:"PIZZABOX_REDIS_PASSWORD"`
	DB           int           `envconfig:"PIZZABOX_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PIZZABOX_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PIZZABOX_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PIZZABOX_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PIZZABOX_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PIZZABOX_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PIZZABOX_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PIZZABOX_JWT_ISSUER" default:"pizzabox"`
	ExpirationMinutes int    `envconfig:"PIZZABOX_JWT_EXPIRATION_MINUTES" default:"60"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type RazorpayConfig struct {
	KeyID     string        `envconfig:"PIZZABOX_RAZORPAY_KEY_ID" required:"true"`
	KeySecret string        `envconfig:"PIZZABOX_RAZORPAY_KEY_SECRET" required:"true"`
	BaseURL   string        `envconfig:"PIZZABOX_RAZORPAY_BASE_URL" default:"https://api.razorpay.com/v1"`
	Timeout   time.Duration `envconfig:"PIZZABOX_RAZORPAY_TIMEOUT" default:"10s"`
	Currency  string        `envconfig:"PIZZABOX_RAZORPAY_CURRENCY" default:"INR"`
}

type PricingConfig struct {
	TaxRate       string `envconfig:"PIZZABOX_TAX_RATE" default:"0.18"`
	DeliveryFlat  string `envconfig:"PIZZABOX_DELIVERY_CHARGE" default:"50.00"`
	MaxAddresses  int    `envconfig:"PIZZABOX_MAX_ADDRESSES_PER_USER" default:"5"`
	CartCookieTTL int    `envconfig:"PIZZABOX_CART_COOKIE_TTL_DAYS" default:"30"`
}

type OutboxConfig struct {
	PollInterval time.Duration `envconfig:"PIZZABOX_OUTBOX_POLL_INTERVAL" default:"1s"`
	BatchSize    int           `envconfig:"PIZZABOX_OUTBOX_BATCH_SIZE" default:"50"`
	MaxAttempts  int           `envconfig:"PIZZABOX_OUTBOX_MAX_ATTEMPTS" default:"5"`
}

type MailConfig struct {
	FromAddress string `envconfig:"PIZZABOX_MAIL_FROM" default:"orders@pizzabox.example"`
	OpsAddress  string `envconfig:"PIZZABOX_MAIL_OPS" default:"ops@pizzabox.example"`
	Enabled     bool   `envconfig:"PIZZABOX_MAIL_ENABLED" default:"false"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PIZZABOX_AUTO_MIGRATE" default:"false"`
}

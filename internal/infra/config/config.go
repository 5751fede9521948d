package config

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/kelseyhightower/envconfig"

	"carshare/internal/domain/pricing"
)

const (
	StorageMemory = "memory"
	StorageMongo  = "mongo"
)

// Config aggregates application configuration loaded from environment variables.
type Config struct {
	Env             string        `envconfig:"APP_ENV" default:"dev"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	Storage string `envconfig:"STORAGE" default:"memory"`
	Mongo   MongoConfig
	Ledger  LedgerConfig
	Redis   RedisConfig
	Kafka   KafkaConfig
	S3      S3Config
	Auth    AuthConfig
	CORS    CORSConfig

	Pricing  PricingConfig
	Bookings BookingConfig

	CarsFixtures   string        `envconfig:"CARS_FIXTURES"`
	IdempotencyTTL time.Duration `envconfig:"IDEMP_TTL" default:"168h"`
}

type MongoConfig struct {
	URI      string `envconfig:"MONGO_URI"`
	Database string `envconfig:"MONGO_DB" default:"carshare"`
}

// LedgerConfig enables the Postgres booking ledger when DSN is set.
type LedgerConfig struct {
	DSN      string `envconfig:"POSTGRES_DSN"`
	MaxConns int32  `envconfig:"POSTGRES_MAX_CONNS" default:"10"`
}

// RedisConfig switches favorites to Redis when Addr is set.
type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
	Prefix   string `envconfig:"REDIS_PREFIX" default:"carshare:"`
}

// KafkaConfig enables the outbox worker when Brokers is set.
type KafkaConfig struct {
	Brokers      []string        `envconfig:"KAFKA_BROKERS"`
	TopicPrefix  string          `envconfig:"KAFKA_TOPIC_PREFIX"`
	PollInterval time.Duration   `envconfig:"OUTBOX_POLL_INTERVAL" default:"500ms"`
	RetryBackoff []time.Duration `envconfig:"RETRY_BACKOFF" default:"1s,5s,30s"`
}

// S3Config enables photo uploads when Endpoint is set.
type S3Config struct {
	Endpoint       string `envconfig:"S3_ENDPOINT"`
	PublicEndpoint string `envconfig:"S3_PUBLIC_ENDPOINT"`
	AccessKey      string `envconfig:"S3_ACCESS_KEY" default:"minioadmin"`
	SecretKey      string `envconfig:"S3_SECRET_KEY" default:"minioadmin"`
	Bucket         string `envconfig:"S3_BUCKET" default:"carshare-photos"`
	UseSSL         bool   `envconfig:"S3_USE_SSL" default:"false"`
}

type AuthConfig struct {
	JWTSecret  string `envconfig:"AUTH_JWT_SECRET"`
	JWTIssuer  string `envconfig:"AUTH_JWT_ISSUER"`
	DevHeaders bool   `envconfig:"AUTH_DEV_HEADERS" default:"false"`
}

type CORSConfig struct {
	AllowOrigins []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:3000"`
	MaxAge       time.Duration `envconfig:"CORS_MAX_AGE" default:"12h"`
}

type PricingConfig struct {
	ServiceFeeRate  float64 `envconfig:"SERVICE_FEE_RATE" default:"0.10"`
	InsuranceRate   float64 `envconfig:"INSURANCE_RATE" default:"0.05"`
	Currency        string  `envconfig:"DEFAULT_CURRENCY" default:"USD"`
	MembershipTiers string  `envconfig:"MEMBERSHIP_TIERS_FILE"`
}

type BookingConfig struct {
	PendingTTL     time.Duration `envconfig:"BOOKING_PENDING_TTL" default:"24h"`
	ExpirySchedule string        `envconfig:"BOOKING_EXPIRY_SCHEDULE" default:"0 */5 * * * *"`
}

// Load parses configuration from the current environment.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, errors.Wrap(err, "process env config")
	}
	cfg.Storage = strings.ToLower(strings.TrimSpace(cfg.Storage))
	cfg.Pricing.Currency = strings.ToUpper(strings.TrimSpace(cfg.Pricing.Currency))
	if cfg.S3.PublicEndpoint == "" {
		cfg.S3.PublicEndpoint = cfg.S3.Endpoint
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Storage {
	case StorageMemory:
	case StorageMongo:
		if c.Mongo.URI == "" {
			return errors.New("config: MONGO_URI is required when STORAGE=mongo")
		}
	default:
		return errors.Newf("config: unknown STORAGE %q", c.Storage)
	}
	if _, err := c.DefaultRates(); err != nil {
		return err
	}
	if len(c.Pricing.Currency) != 3 {
		return errors.Newf("config: DEFAULT_CURRENCY %q must be an ISO 4217 code", c.Pricing.Currency)
	}
	if c.Bookings.PendingTTL <= 0 {
		return errors.New("config: BOOKING_PENDING_TTL must be positive")
	}
	if c.Auth.JWTSecret == "" && !c.Auth.DevHeaders {
		return errors.New("config: AUTH_JWT_SECRET or AUTH_DEV_HEADERS=true is required")
	}
	for _, d := range c.Kafka.RetryBackoff {
		if d <= 0 {
			return errors.Newf("config: RETRY_BACKOFF component %s must be positive", d)
		}
	}
	return nil
}

// DefaultRates converts SERVICE_FEE_RATE and INSURANCE_RATE.
func (c Config) DefaultRates() (pricing.Rates, error) {
	fee, err := pricing.RateFromFraction(c.Pricing.ServiceFeeRate)
	if err != nil {
		return pricing.Rates{}, errors.Wrap(err, "config: SERVICE_FEE_RATE")
	}
	ins, err := pricing.RateFromFraction(c.Pricing.InsuranceRate)
	if err != nil {
		return pricing.Rates{}, errors.Wrap(err, "config: INSURANCE_RATE")
	}
	return pricing.Rates{ServiceFee: fee, Insurance: ins}, nil
}

func (c Config) Development() bool {
	switch strings.ToLower(c.Env) {
	case "dev", "local", "test":
		return true
	}
	return false
}

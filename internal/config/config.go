package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config is the full runtime configuration, read from the environment (and an
// optional .env file).
type Config struct {
	Environment string `env:"ENVIRONMENT" env-default:"development"`
	Port        string `env:"PORT" env-default:"8787"`
	BaseURL     string `env:"PUBLIC_BASE_URL" env-default:"http://localhost:8787"`

	Log      LogConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Email    EmailConfig
	Stripe   StripeConfig
	Admin    AdminConfig
	Scoring  ScoringConfig
	Jobs     JobsConfig
	URLCheck URLCheckConfig
	Tracing  TracingConfig

	CronSecret  string `env:"CRON_SECRET"`
	VisitorSalt string `env:"VISITOR_SALT"`
}

type LogConfig struct {
	Level string `env:"LOG_LEVEL" env-default:"info"`
	File  string `env:"LOG_FILE" env-default:"server.log"`
}

type DatabaseConfig struct {
	// URL is a postgres DSN, or "sqlite://<path>" for local development.
	URL             string        `env:"DATABASE_URL" env-default:"host=localhost port=5432 user=postgres dbname=affiliateboard sslmode=disable"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" env-default:"50"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"1h"`
}

type RedisConfig struct {
	// Empty URL disables Redis; caching and rate limiting fall back to memory.
	URL string `env:"REDIS_URL"`
}

type StorageConfig struct {
	Endpoint      string `env:"S3_ENDPOINT"`
	Region        string `env:"S3_REGION" env-default:"auto"`
	Bucket        string `env:"S3_BUCKET" env-default:"logos"`
	AccessKey     string `env:"S3_ACCESS_KEY_ID"`
	SecretKey     string `env:"S3_SECRET_ACCESS_KEY"`
	PublicBaseURL string `env:"S3_PUBLIC_BASE_URL"`
}

// EmailConfig enables admin notifications when both addresses are set.
type EmailConfig struct {
	Region     string `env:"SES_REGION" env-default:"us-east-1"`
	FromEmail  string `env:"EMAIL_FROM"`
	FromName   string `env:"EMAIL_FROM_NAME" env-default:"Affiliate Board"`
	AdminEmail string `env:"ADMIN_NOTIFY_EMAIL"`
}

type StripeConfig struct {
	SecretKey     string `env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`
	// FeaturePriceCents is the one-time price of a 30-day featured listing.
	FeaturePriceCents int64  `env:"STRIPE_FEATURE_PRICE_CENTS" env-default:"4900"`
	Currency          string `env:"STRIPE_CURRENCY" env-default:"usd"`
}

type AdminConfig struct {
	// Password is compared in constant time, or as a bcrypt hash when it starts with "$2".
	Password     string        `env:"ADMIN_PASSWORD"`
	JWTSecret    string        `env:"JWT_SECRET"`
	Issuer       string        `env:"JWT_ISSUER" env-default:"affiliateboard"`
	Audience     string        `env:"JWT_AUDIENCE" env-default:"affiliateboard-admin"`
	TokenTTL     time.Duration `env:"ADMIN_TOKEN_TTL" env-default:"12h"`
	CookieName   string        `env:"ADMIN_COOKIE_NAME" env-default:"admin_token"`
	SecureCookie bool          `env:"ADMIN_COOKIE_SECURE" env-default:"true"`
}

type ScoringConfig struct {
	ViewWeight       float64       `env:"SCORE_VIEW_WEIGHT" env-default:"1"`
	ClickWeight      float64       `env:"SCORE_CLICK_WEIGHT" env-default:"5"`
	BoostWeight      float64       `env:"SCORE_BOOST_WEIGHT" env-default:"1"`
	NewListingBoost  float64       `env:"SCORE_NEW_LISTING_BOOST" env-default:"25"`
	NewListingWindow time.Duration `env:"SCORE_NEW_LISTING_WINDOW" env-default:"336h"`
	RollingWindow    time.Duration `env:"SCORE_ROLLING_WINDOW" env-default:"168h"`
}

type JobsConfig struct {
	ChunkSize   int `env:"JOBS_CHUNK_SIZE" env-default:"50"`
	Parallelism int `env:"JOBS_PARALLELISM" env-default:"10"`

	TrafficLogRetention   time.Duration `env:"RETENTION_TRAFFIC_LOGS" env-default:"720h"`
	ProgramEventRetention time.Duration `env:"RETENTION_PROGRAM_EVENTS" env-default:"2160h"`
	SearchLogRetention    time.Duration `env:"RETENTION_SEARCH_LOGS" env-default:"720h"`
}

type URLCheckConfig struct {
	Timeout        time.Duration `env:"URLCHECK_TIMEOUT" env-default:"5s"`
	CheckReachable bool          `env:"URLCHECK_REACHABILITY" env-default:"true"`
}

type TracingConfig struct {
	Enabled      bool    `env:"OTEL_ENABLED" env-default:"false"`
	Endpoint     string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" env-default:"localhost:4318"`
	ServiceName  string  `env:"OTEL_SERVICE_NAME" env-default:"affiliateboard-backend"`
	SamplingRate float64 `env:"OTEL_SAMPLING_RATE" env-default:"1.0"`
}

// Load reads .env (when present) and the process environment into a Config.
func Load() (*Config, error) {
	// Missing .env is fine; the process environment wins either way.
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	return &cfg, nil
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Validate reports settings the server cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.Admin.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	} else if len(c.Admin.JWTSecret) < 32 && c.IsProduction() {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 bytes in production"))
	}
	if c.Admin.Password == "" {
		errs = append(errs, errors.New("ADMIN_PASSWORD is required"))
	}
	if c.Jobs.ChunkSize <= 0 {
		errs = append(errs, errors.New("JOBS_CHUNK_SIZE must be positive"))
	}
	if c.Jobs.Parallelism <= 0 {
		errs = append(errs, errors.New("JOBS_PARALLELISM must be positive"))
	}
	return errors.Join(errs...)
}

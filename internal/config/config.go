// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the REST API listens on (e.g. :5000).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCHealthAddr is the address of the gRPC health endpoint; empty disables it.
	GRPCHealthAddr string `mapstructure:"GRPC_HEALTH_ADDR"`
	// DatabaseURL is the Postgres DSN. Empty selects the in-memory store (not allowed in production).
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// JWTSecret signs session tokens with HS256 when no key pair is configured.
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; takes precedence over JWTSecret.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; used with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	JWTIssuer    string `mapstructure:"JWT_ISSUER"`
	JWTAudience  string `mapstructure:"JWT_AUDIENCE"`
	// SessionTTL is the session token lifetime (e.g. "168h").
	SessionTTL string `mapstructure:"SESSION_TTL"`
	// CookieSecure sets the Secure attribute on the session cookie.
	CookieSecure bool `mapstructure:"COOKIE_SECURE"`
	// BcryptCost is the bcrypt cost factor (4–31); default 10.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// VerificationTTL is how long an email verification token/code stays valid.
	VerificationTTL string `mapstructure:"VERIFICATION_TTL"`
	// ResetTTL is how long a password reset token stays valid.
	ResetTTL string `mapstructure:"RESET_TTL"`
	// PendingTTL is how long an unverified registration is kept before the sweep removes it.
	PendingTTL string `mapstructure:"PENDING_TTL"`
	// SweepSchedule is the cron spec for the pending registration sweep.
	SweepSchedule string `mapstructure:"SWEEP_SCHEDULE"`

	// ClientURL is the storefront base URL used in verification and reset links.
	ClientURL string `mapstructure:"CLIENT_URL"`
	// ClientURLs is a comma-separated CORS allow-list; empty allows any origin.
	ClientURLs   string `mapstructure:"CLIENT_URLS"`
	CompanyName  string `mapstructure:"COMPANY_NAME"`
	CompanyLogo  string `mapstructure:"COMPANY_LOGO"`
	SupportEmail string `mapstructure:"SUPPORT_EMAIL"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	// MailFrom is the sender address; defaults to SMTP_USERNAME.
	MailFrom string `mapstructure:"MAIL_FROM"`
	// MailDevOutbox keeps outgoing mail in memory (GET /dev/outbox) instead of sending it. Must not be true in production.
	MailDevOutbox bool `mapstructure:"MAIL_DEV_OUTBOX"`

	// OTLPEndpoint is the OTLP gRPC collector endpoint; empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// KafkaBrokers is a comma-separated list of brokers for account lifecycle events; empty disables Kafka.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// AccountEventsTopic is the Kafka topic for account lifecycle events.
	AccountEventsTopic string `mapstructure:"ACCOUNT_EVENTS_TOPIC"`

	// Seed-only: bootstrap admin account.
	AdminEmail    string `mapstructure:"ADMIN_EMAIL"`
	AdminUsername string `mapstructure:"ADMIN_USERNAME"`
	AdminPassword string `mapstructure:"ADMIN_PASSWORD"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env.
func Load() (*Config, error) {
	return load(true)
}

// LoadTooling is Load without the session signing checks, for cmd/migrate and cmd/seed.
func LoadTooling() (*Config, error) {
	return load(false)
}

func load(requireSigning bool) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":5000")
	v.SetDefault("GRPC_HEALTH_ADDR", ":8081")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "afriquize-auth")
	v.SetDefault("JWT_AUDIENCE", "afriquize-web")
	v.SetDefault("SESSION_TTL", "168h") // 7d
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("VERIFICATION_TTL", "10m")
	v.SetDefault("RESET_TTL", "10m")
	v.SetDefault("PENDING_TTL", "168h")
	v.SetDefault("SWEEP_SCHEDULE", "@daily")
	v.SetDefault("CLIENT_URL", "http://localhost:3000")
	v.SetDefault("CLIENT_URLS", "")
	v.SetDefault("COMPANY_NAME", "Afriquize Delights")
	v.SetDefault("COMPANY_LOGO", "")
	v.SetDefault("SUPPORT_EMAIL", "")
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("MAIL_FROM", "")
	v.SetDefault("MAIL_DEV_OUTBOX", false)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("ACCOUNT_EVENTS_TOPIC", "afriquize-account-events")
	v.SetDefault("ADMIN_EMAIL", "")
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("ADMIN_PASSWORD", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.MailDevOutbox && cfg.IsProduction() {
		return nil, errors.New("config: MAIL_DEV_OUTBOX must not be true when APP_ENV=production")
	}
	if cfg.DatabaseURL == "" && cfg.IsProduction() {
		return nil, errors.New("config: DATABASE_URL is required when APP_ENV=production")
	}
	if requireSigning {
		if cfg.JWTSecret == "" && cfg.JWTPrivateKey == "" {
			return nil, errors.New("config: JWT_SECRET or JWT_PRIVATE_KEY must be set")
		}
		if cfg.JWTPrivateKey != "" && cfg.JWTPublicKey == "" {
			return nil, errors.New("config: JWT_PUBLIC_KEY is required with JWT_PRIVATE_KEY")
		}
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 10
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if cfg.MailFrom == "" {
		cfg.MailFrom = cfg.SMTPUsername
	}
	if cfg.SupportEmail == "" {
		cfg.SupportEmail = cfg.MailFrom
	}
	cfg.ClientURL = strings.TrimRight(cfg.ClientURL, "/")

	return &cfg, nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// SessionDuration parses SessionTTL. Returns 168h if unset or invalid.
func (c *Config) SessionDuration() time.Duration {
	return parseDuration(c.SessionTTL, 168*time.Hour)
}

// VerificationDuration parses VerificationTTL. Returns 10m if unset or invalid.
func (c *Config) VerificationDuration() time.Duration {
	return parseDuration(c.VerificationTTL, 10*time.Minute)
}

// ResetDuration parses ResetTTL. Returns 10m if unset or invalid.
func (c *Config) ResetDuration() time.Duration {
	return parseDuration(c.ResetTTL, 10*time.Minute)
}

// PendingDuration parses PendingTTL. Returns 168h if unset or invalid.
func (c *Config) PendingDuration() time.Duration {
	return parseDuration(c.PendingTTL, 168*time.Hour)
}

// AllowedOrigins returns the CORS allow-list from the comma-separated CLIENT_URLS.
func (c *Config) AllowedOrigins() []string {
	return splitList(c.ClientURLs)
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// An empty list disables the Kafka event producer.
func (c *Config) KafkaBrokersList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.KafkaBrokers)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

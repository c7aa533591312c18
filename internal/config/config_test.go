package config

import (
	"os"
	"reflect"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	os.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.HTTPAddr != ":5000" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":5000")
	}
	if cfg.JWTIssuer != "afriquize-auth" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "afriquize-auth")
	}
	if cfg.SessionTTL != "168h" {
		t.Errorf("SessionTTL = %q, want %q", cfg.SessionTTL, "168h")
	}
	if cfg.BcryptCost != 10 {
		t.Errorf("BcryptCost = %d, want 10", cfg.BcryptCost)
	}
	if cfg.CompanyName != "Afriquize Delights" {
		t.Errorf("CompanyName = %q, want default", cfg.CompanyName)
	}
	if cfg.SMTPPort != 587 {
		t.Errorf("SMTPPort = %d, want 587", cfg.SMTPPort)
	}
	if cfg.SweepSchedule != "@daily" {
		t.Errorf("SweepSchedule = %q, want @daily", cfg.SweepSchedule)
	}
	if cfg.MailDevOutbox {
		t.Error("MailDevOutbox should default to false")
	}
	if cfg.CookieSecure {
		t.Error("CookieSecure should default to false")
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("JWT_SECRET", "test-secret")
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("JWT_ISSUER", "custom-issuer")
	os.Setenv("BCRYPT_COST", "12")
	os.Setenv("CLIENT_URL", "https://shop.example.com/")
	os.Setenv("SMTP_USERNAME", "mailer@example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.JWTIssuer != "custom-issuer" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "custom-issuer")
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.ClientURL != "https://shop.example.com" {
		t.Errorf("ClientURL = %q, want trailing slash trimmed", cfg.ClientURL)
	}
	if cfg.MailFrom != "mailer@example.com" {
		t.Errorf("MailFrom = %q, want SMTP_USERNAME fallback", cfg.MailFrom)
	}
	if cfg.SupportEmail != "mailer@example.com" {
		t.Errorf("SupportEmail = %q, want MailFrom fallback", cfg.SupportEmail)
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"no signing material", map[string]string{}},
		{"private key without public key", map[string]string{"JWT_PRIVATE_KEY": "x"}},
		{"bcrypt cost too low", map[string]string{"JWT_SECRET": "s", "BCRYPT_COST": "3"}},
		{"bcrypt cost too high", map[string]string{"JWT_SECRET": "s", "BCRYPT_COST": "32"}},
		{"dev outbox in production", map[string]string{"JWT_SECRET": "s", "APP_ENV": "production", "DATABASE_URL": "postgres://x", "MAIL_DEV_OUTBOX": "true"}},
		{"memory store in production", map[string]string{"JWT_SECRET": "s", "APP_ENV": "production"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.env {
				os.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoad_DevOutboxOutsideProduction(t *testing.T) {
	os.Clearenv()
	os.Setenv("JWT_SECRET", "s")
	os.Setenv("APP_ENV", "development")
	os.Setenv("MAIL_DEV_OUTBOX", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.MailDevOutbox {
		t.Error("MailDevOutbox = false, want true")
	}
	if cfg.IsProduction() {
		t.Error("IsProduction = true, want false")
	}
}

func TestLoadTooling_SkipsSigningChecks(t *testing.T) {
	os.Clearenv()
	os.Setenv("DATABASE_URL", "postgres://localhost/afriquize")
	os.Setenv("ADMIN_EMAIL", "boss@example.com")

	if _, err := Load(); err == nil {
		t.Fatal("Load without signing material should fail")
	}
	cfg, err := LoadTooling()
	if err != nil {
		t.Fatalf("LoadTooling: %v", err)
	}
	if cfg.DatabaseURL != "postgres://localhost/afriquize" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.AdminUsername != "admin" {
		t.Errorf("AdminUsername = %q, want default admin", cfg.AdminUsername)
	}
}

func TestDurations(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		got  func(*Config) time.Duration
		want time.Duration
	}{
		{"session default", Config{}, (*Config).SessionDuration, 168 * time.Hour},
		{"session custom", Config{SessionTTL: "1h"}, (*Config).SessionDuration, time.Hour},
		{"verification default", Config{}, (*Config).VerificationDuration, 10 * time.Minute},
		{"verification invalid", Config{VerificationTTL: "soon"}, (*Config).VerificationDuration, 10 * time.Minute},
		{"reset custom", Config{ResetTTL: "30m"}, (*Config).ResetDuration, 30 * time.Minute},
		{"reset negative", Config{ResetTTL: "-5m"}, (*Config).ResetDuration, 10 * time.Minute},
		{"pending default", Config{}, (*Config).PendingDuration, 168 * time.Hour},
		{"pending custom", Config{PendingTTL: "72h"}, (*Config).PendingDuration, 72 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			if got := tt.got(&cfg); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLists(t *testing.T) {
	cfg := &Config{
		ClientURLs:   " https://a.example.com, ,https://b.example.com ",
		KafkaBrokers: "k1:9092,k2:9092",
	}
	if got, want := cfg.AllowedOrigins(), []string{"https://a.example.com", "https://b.example.com"}; !reflect.DeepEqual(got, want) {
		t.Errorf("AllowedOrigins = %v, want %v", got, want)
	}
	if got, want := cfg.KafkaBrokersList(), []string{"k1:9092", "k2:9092"}; !reflect.DeepEqual(got, want) {
		t.Errorf("KafkaBrokersList = %v, want %v", got, want)
	}
	var nilCfg *Config
	if nilCfg.KafkaBrokersList() != nil {
		t.Error("nil config should yield no brokers")
	}
	if (&Config{}).AllowedOrigins() != nil {
		t.Error("empty CLIENT_URLS should yield nil allow-list")
	}
}

// seed creates the bootstrap admin account from ADMIN_EMAIL, ADMIN_USERNAME and ADMIN_PASSWORD.
// Idempotent: an existing account with ADMIN_EMAIL is left untouched.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"afriquize-delights/backend/internal/account/repository"
	"afriquize-delights/backend/internal/account/service"
	"afriquize-delights/backend/internal/config"
	"afriquize-delights/backend/internal/db"
	"afriquize-delights/backend/internal/logging"
	"afriquize-delights/backend/internal/notify"
	"afriquize-delights/backend/internal/security"
)

func main() {
	cfg, err := config.LoadTooling()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env or export DATABASE_URL")
	}
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		log.Fatal("ADMIN_EMAIL and ADMIN_PASSWORD are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	logger := logging.New(os.Stdout, cfg.LogLevel)
	// Seeding never mails or issues sessions; mailer and issuer are unused.
	svc := service.New(
		repository.NewPostgresStore(conn),
		security.NewHasher(cfg.BcryptCost),
		nil,
		notify.MailerFunc(func(context.Context, notify.Message) error { return notify.ErrNotConfigured }),
		&notify.Composer{},
		service.Options{},
		service.WithLogger(logger),
	)

	created, err := svc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminUsername, cfg.AdminPassword)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	if created {
		log.Printf("seed: admin %s created", cfg.AdminEmail)
		return
	}
	log.Printf("seed: admin %s already exists, skipping", cfg.AdminEmail)
}

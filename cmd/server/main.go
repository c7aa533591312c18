// server runs the Afriquize Delights account API (fiber), the gRPC health endpoint and the
// pending registration sweep.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"afriquize-delights/backend/internal/access/engine"
	"afriquize-delights/backend/internal/account/repository"
	"afriquize-delights/backend/internal/account/service"
	"afriquize-delights/backend/internal/account/sweeper"
	"afriquize-delights/backend/internal/config"
	"afriquize-delights/backend/internal/db"
	"afriquize-delights/backend/internal/logging"
	"afriquize-delights/backend/internal/notify"
	"afriquize-delights/backend/internal/security"
	"afriquize-delights/backend/internal/server"
	"afriquize-delights/backend/internal/server/httpapi"
	"afriquize-delights/backend/internal/telemetry"
	oteltel "afriquize-delights/backend/internal/telemetry/otel"
	"afriquize-delights/backend/internal/telemetry/producer"
)

const (
	serviceName    = "afriquize-account"
	serviceVersion = "1.0.0"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(os.Stdout, cfg.LogLevel)
	ctx := context.Background()

	providers, err := oteltel.NewProviders(ctx, oteltel.Options{
		Endpoint:       cfg.OTLPEndpoint,
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Environment:    cfg.Env,
		Insecure:       cfg.OTLPInsecure,
	})
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()

	var (
		store repository.Store
		conn  *sql.DB
	)
	if cfg.DatabaseURL != "" {
		conn, err = db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db: %v", err)
		}
		store = repository.NewPostgresStore(conn)
	} else {
		logger.Warn(ctx, "DATABASE_URL not set; using in-memory store")
		store = repository.NewMemoryStore()
	}

	sessions, err := newSessionIssuer(cfg)
	if err != nil {
		log.Fatalf("session issuer: %v", err)
	}

	var (
		mailer notify.Mailer
		outbox *notify.Outbox
	)
	if cfg.MailDevOutbox {
		outbox = notify.NewOutbox()
		mailer = outbox
		logger.Warn(ctx, "MAIL_DEV_OUTBOX enabled; mail is kept in memory and served on /dev/outbox")
	} else {
		mailer = notify.NewSMTPMailer(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
			FromName: cfg.CompanyName,
		})
	}
	composer := &notify.Composer{
		Brand: notify.Brand{
			Name:         cfg.CompanyName,
			LogoURL:      cfg.CompanyLogo,
			SupportEmail: cfg.SupportEmail,
		},
		ClientURL: cfg.ClientURL,
	}

	emitters := telemetry.Multi{oteltel.NewEventEmitter(providers.LoggerProvider)}
	kafkaProducer := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.AccountEventsTopic)
	if kafkaProducer != nil {
		emitters = append(emitters, kafkaProducer)
		logger.Info(ctx, "account events published to kafka", "topic", cfg.AccountEventsTopic)
	}

	access, err := engine.NewOPAEvaluator(ctx, "")
	if err != nil {
		log.Fatalf("access policy: %v", err)
	}

	accounts := service.New(
		store,
		security.NewHasher(cfg.BcryptCost),
		sessions,
		mailer,
		composer,
		service.Options{
			VerificationTTL: cfg.VerificationDuration(),
			ResetTTL:        cfg.ResetDuration(),
			PendingTTL:      cfg.PendingDuration(),
		},
		service.WithEvents(emitters),
		service.WithLogger(logger),
	)

	sweep, err := sweeper.New(cfg.SweepSchedule, accounts, logger)
	if err != nil {
		log.Fatalf("sweeper: %v", err)
	}
	sweep.Start()
	logger.Info(ctx, "pending registration sweep scheduled", "schedule", cfg.SweepSchedule, "next", sweep.Next())

	app := httpapi.New(httpapi.Config{
		Accounts:       accounts,
		Sessions:       sessions,
		Access:         access,
		Outbox:         outbox,
		Log:            logger,
		AllowedOrigins: cfg.AllowedOrigins(),
		CookieSecure:   cfg.CookieSecure,
	})
	go func() {
		logger.Info(ctx, "http server listening", "addr", cfg.HTTPAddr)
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			log.Fatalf("http: %v", err)
		}
	}()

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	var healthSrv *server.HealthServer
	if cfg.GRPCHealthAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCHealthAddr)
		if err != nil {
			log.Fatalf("grpc health listen: %v", err)
		}
		healthSrv = server.NewHealthServer(accounts, access, logger)
		go healthSrv.Watch(watchCtx, 15*time.Second)
		go func() {
			logger.Info(ctx, "grpc health listening", "addr", cfg.GRPCHealthAddr)
			if err := healthSrv.Serve(lis); err != nil {
				log.Fatalf("grpc health serve: %v", err)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "shutting down...")
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error(ctx, "http shutdown", "error", err)
	}
	stopWatch()
	if healthSrv != nil {
		healthSrv.Stop()
	}
	if err := sweep.Stop(shutdownCtx); err != nil {
		logger.Warn(ctx, "sweeper stop", "error", err)
	}
	// Let async event emits finish before closing their sinks.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "otel shutdown", "error", err)
	}
	if kafkaProducer != nil {
		if err := kafkaProducer.Close(); err != nil {
			logger.Error(ctx, "kafka producer close", "error", err)
		}
	}
	if conn != nil {
		_ = conn.Close()
	}
	logger.Info(ctx, "stopped")
}

func newSessionIssuer(cfg *config.Config) (*security.SessionIssuer, error) {
	ttl := cfg.SessionDuration()
	if cfg.JWTPrivateKey != "" {
		priv, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
		if err != nil {
			return nil, err
		}
		pub, err := security.ParsePublicKey(cfg.JWTPublicKey)
		if err != nil {
			return nil, err
		}
		return security.NewKeyPairSessionIssuer(priv, pub, cfg.JWTIssuer, cfg.JWTAudience, ttl)
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET or JWT_PRIVATE_KEY must be set")
	}
	return security.NewHMACSessionIssuer([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.JWTAudience, ttl)
}

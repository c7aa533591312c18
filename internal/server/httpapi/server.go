// Package httpapi is the REST surface of the account lifecycle, served with fiber.
package httpapi

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"afriquize-delights/backend/internal/access/engine"
	"afriquize-delights/backend/internal/account/service"
	"afriquize-delights/backend/internal/logging"
	"afriquize-delights/backend/internal/notify"
	"afriquize-delights/backend/internal/security"
)

// AccountService is the lifecycle core the handlers call.
type AccountService interface {
	Register(ctx context.Context, email, username, password string) (*service.Registration, error)
	CheckAvailability(ctx context.Context, email, username string) (*service.Availability, error)
	IssueVerification(ctx context.Context, email string) error
	VerifyEmail(ctx context.Context, in service.VerifyInput) (*service.VerifyResult, error)
	Login(ctx context.Context, email, password string) (*service.LoginResult, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	SweepExpiredPending(ctx context.Context) (int64, error)
	SendAdminEmail(ctx context.Context, to, subject, body string) error
}

// SessionValidator checks session tokens.
type SessionValidator interface {
	Validate(token string) (*security.SessionClaims, error)
}

// Config wires the HTTP server.
type Config struct {
	Accounts AccountService
	Sessions SessionValidator
	// Access authorizes admin routes. Required.
	Access engine.Evaluator
	// Outbox, when set, serves GET /dev/outbox. Leave nil in production.
	Outbox *notify.Outbox
	Log    logging.Logger
	// AllowedOrigins is the CORS allow-list. Empty allows any origin without credentials.
	AllowedOrigins []string
	CookieSecure   bool
	// LoginLimit attempts per LoginWindow per IP on POST /api/auth/login (defaults 5 per 15m).
	LoginLimit  int
	LoginWindow time.Duration
}

// Server holds the handlers' dependencies.
type Server struct {
	accounts     AccountService
	sessions     SessionValidator
	access       engine.Evaluator
	outbox       *notify.Outbox
	log          logging.Logger
	cookieSecure bool
}

// New builds the fiber app with every route registered.
func New(cfg Config) *fiber.App {
	if cfg.Log == nil {
		cfg.Log = logging.Nop()
	}
	if cfg.LoginLimit <= 0 {
		cfg.LoginLimit = 5
	}
	if cfg.LoginWindow <= 0 {
		cfg.LoginWindow = 15 * time.Minute
	}
	s := &Server{
		accounts:     cfg.Accounts,
		sessions:     cfg.Sessions,
		access:       cfg.Access,
		outbox:       cfg.Outbox,
		log:          cfg.Log,
		cookieSecure: cfg.CookieSecure,
	}

	app := fiber.New(fiber.Config{
		AppName:               "afriquize-account",
		DisableStartupMessage: true,
		CaseSensitive:         true,
		ErrorHandler:          s.errorHandler,
	})
	app.Use(corsMiddleware(cfg.AllowedOrigins))
	app.Use(s.requestLogger())
	app.Use(s.sessionContext())

	app.Get("/api/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	auth := app.Group("/api/auth")
	auth.Post("/register", s.register)
	auth.Post("/check-user", s.checkUser)
	auth.Post("/login", loginLimiter(cfg.LoginLimit, cfg.LoginWindow), s.login)
	auth.Post("/logout", s.logout)
	auth.Post("/forgot-password", s.forgotPassword)
	auth.Post("/reset-password", s.resetPassword)
	auth.Get("/me", s.requireSession, s.me)

	email := app.Group("/api/email")
	email.Post("/send-verification", s.sendVerification)
	email.Post("/verify", s.verifyEmail)

	admin := app.Group("/api/admin", s.requireSession, s.authorize)
	admin.Post("/email", s.adminEmail)
	admin.Post("/pending/sweep", s.adminSweep)

	if s.outbox != nil {
		app.Get("/dev/outbox", s.devOutbox)
	}
	return app
}

func corsMiddleware(origins []string) fiber.Handler {
	cfg := cors.Config{
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,OPTIONS",
	}
	if len(origins) == 0 {
		cfg.AllowOrigins = "*"
	} else {
		cfg.AllowOrigins = strings.Join(origins, ",")
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

func loginLimiter(max int, window time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(errorBody{
				Message:  "Too many login attempts from this IP, please try again later.",
				Category: "rate_limited",
			})
		},
	})
}

type errorBody struct {
	Message  string `json:"message"`
	Category string `json:"category"`
}

// errorHandler renders lifecycle errors by kind and fiber errors by code. Anything else is a
// 500 with a generic message; the cause is only logged.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var le *service.LifecycleError
	if errors.As(err, &le) {
		code := statusFor(le.Kind)
		if code >= fiber.StatusInternalServerError {
			s.log.Error(c.UserContext(), "http: request failed", "path", c.Path(), "category", le.Kind.String(), "error", err)
		}
		return c.Status(code).JSON(errorBody{Message: service.PublicMessage(err), Category: le.Kind.String()})
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(errorBody{Message: fe.Message, Category: categoryForStatus(fe.Code)})
	}
	s.log.Error(c.UserContext(), "http: unhandled error", "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(errorBody{Message: "Internal server error", Category: "internal"})
}

// statusOf is the status errorHandler will answer err with.
func statusOf(err error) int {
	var le *service.LifecycleError
	if errors.As(err, &le) {
		return statusFor(le.Kind)
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

func statusFor(k service.Kind) int {
	switch k {
	case service.KindValidation, service.KindInvalidOrExpired:
		return fiber.StatusBadRequest
	case service.KindConflict:
		return fiber.StatusConflict
	case service.KindNotFound:
		return fiber.StatusNotFound
	case service.KindUnauthorized:
		return fiber.StatusUnauthorized
	case service.KindDelivery:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func categoryForStatus(code int) string {
	switch code {
	case fiber.StatusBadRequest:
		return service.KindValidation.String()
	case fiber.StatusUnauthorized:
		return service.KindUnauthorized.String()
	case fiber.StatusForbidden:
		return "forbidden"
	case fiber.StatusNotFound:
		return service.KindNotFound.String()
	case fiber.StatusMethodNotAllowed:
		return "method_not_allowed"
	case fiber.StatusTooManyRequests:
		return "rate_limited"
	}
	if code >= fiber.StatusInternalServerError {
		return service.KindInternal.String()
	}
	return "error"
}

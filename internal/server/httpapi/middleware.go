package httpapi

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"afriquize-delights/backend/internal/access/engine"
)

const bearerPrefix = "bearer "

func (s *Server) requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			status = statusOf(err)
		}
		s.log.Debug(c.UserContext(), "http request",
			"method", c.Method(), "path", c.Path(), "status", status, "duration", time.Since(start))
		return err
	}
}

// sessionContext attaches the caller's identity to the request context when a valid session
// token is presented. Requests without one continue anonymously.
func (s *Server) sessionContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractToken(c)
		if token == "" || s.sessions == nil {
			return c.Next()
		}
		claims, err := s.sessions.Validate(token)
		if err != nil {
			return c.Next()
		}
		c.SetUserContext(WithIdentity(c.UserContext(), Identity{
			AccountID: claims.Subject,
			Email:     claims.Email,
			Role:      claims.Role,
		}))
		return c.Next()
	}
}

func (s *Server) requireSession(c *fiber.Ctx) error {
	if _, ok := IdentityFrom(c.UserContext()); !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "Not authenticated.")
	}
	return c.Next()
}

// authorize asks the access policy whether the caller may reach this route.
func (s *Server) authorize(c *fiber.Ctx) error {
	id, ok := IdentityFrom(c.UserContext())
	allowed, err := s.access.Allow(c.UserContext(), engine.Input{
		Authenticated: ok,
		AccountID:     id.AccountID,
		Role:          id.Role,
		Method:        c.Method(),
		Path:          strings.ToLower(c.Path()),
	})
	if err != nil {
		return err
	}
	if !allowed {
		return fiber.NewError(fiber.StatusForbidden, "Access denied.")
	}
	return c.Next()
}

// extractToken prefers an Authorization Bearer header and falls back to the session cookie.
func extractToken(c *fiber.Ctx) string {
	if v := extractBearer(c.Get(fiber.HeaderAuthorization)); v != "" {
		return v
	}
	return strings.TrimSpace(c.Cookies(SessionCookie))
}

// extractBearer returns the token from an Authorization header value, or "" if missing or malformed.
func extractBearer(header string) string {
	v := strings.TrimSpace(header)
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}

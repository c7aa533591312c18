package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"afriquize-delights/backend/internal/account/domain"
	"afriquize-delights/backend/internal/account/service"
)

type userResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

type registerResponse struct {
	Message string       `json:"message"`
	User    userResponse `json:"user"`
}

type checkUserResponse struct {
	Exists bool   `json:"exists"`
	Field  string `json:"field,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type verifyResponse struct {
	Message  string `json:"message"`
	Status   string `json:"status"`
	Redirect string `json:"redirect"`
}

type loginResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type meResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type outboxResponse struct {
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	HTML    string    `json:"html"`
	Text    string    `json:"text,omitempty"`
	SentAt  time.Time `json:"sent_at"`
}

func (s *Server) register(c *fiber.Ctx) error {
	var req registerRequest
	if err := bind(c, &req, "Email, username, and password are required"); err != nil {
		return err
	}
	reg, err := s.accounts.Register(c.UserContext(), req.Email, req.username(), req.Password)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(registerResponse{
		Message: "User registered successfully. Proceed to verification.",
		User:    userResponse{ID: reg.ID, Email: reg.Email, Username: reg.Username},
	})
}

func (s *Server) checkUser(c *fiber.Ctx) error {
	var req checkUserRequest
	if err := bind(c, &req, "Email and username are required"); err != nil {
		return err
	}
	a, err := s.accounts.CheckAvailability(c.UserContext(), req.Email, req.Username)
	if err != nil {
		return err
	}
	return c.JSON(checkUserResponse{Exists: a.Exists, Field: a.Field})
}

func (s *Server) sendVerification(c *fiber.Ctx) error {
	var req emailRequest
	if err := bind(c, &req, "Email is required."); err != nil {
		return err
	}
	if err := s.accounts.IssueVerification(c.UserContext(), req.Email); err != nil {
		return err
	}
	return c.JSON(messageResponse{Message: "Verification link & code sent to email."})
}

func (s *Server) verifyEmail(c *fiber.Ctx) error {
	var req verifyRequest
	if err := bind(c, &req, "Missing verification details."); err != nil {
		return err
	}
	res, err := s.accounts.VerifyEmail(c.UserContext(), service.VerifyInput{Email: req.Email, Token: req.Token, Code: req.Code})
	if err != nil {
		return err
	}
	return c.JSON(verifyResponse{Message: res.Message, Status: string(res.Status), Redirect: res.Redirect})
}

func (s *Server) login(c *fiber.Ctx) error {
	var req loginRequest
	if err := bind(c, &req, "Please provide email and password"); err != nil {
		return err
	}
	res, err := s.accounts.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	s.setSessionCookie(c, res.Token, res.ExpiresAt)
	return c.JSON(loginResponse{Success: true, Message: "Login successful", Token: res.Token, ExpiresAt: res.ExpiresAt})
}

func (s *Server) logout(c *fiber.Ctx) error {
	s.clearSessionCookie(c)
	return c.JSON(messageResponse{Message: "Logged out successfully"})
}

func (s *Server) forgotPassword(c *fiber.Ctx) error {
	var req emailRequest
	if err := bind(c, &req, "Email is required."); err != nil {
		return err
	}
	if err := s.accounts.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
		return err
	}
	return c.JSON(messageResponse{Message: "Password reset link sent to your email."})
}

func (s *Server) resetPassword(c *fiber.Ctx) error {
	var req resetRequest
	if err := bind(c, &req, "Missing token or password."); err != nil {
		return err
	}
	if err := s.accounts.ResetPassword(c.UserContext(), req.Token, req.Password); err != nil {
		return err
	}
	return c.JSON(messageResponse{Message: "Password has been reset successfully."})
}

func (s *Server) me(c *fiber.Ctx) error {
	id, _ := IdentityFrom(c.UserContext())
	return c.JSON(meResponse{ID: id.AccountID, Email: id.Email, Role: id.Role})
}

func (s *Server) adminEmail(c *fiber.Ctx) error {
	var req adminEmailRequest
	if err := bind(c, &req, "Missing email, subject, or message."); err != nil {
		return err
	}
	if err := s.accounts.SendAdminEmail(c.UserContext(), req.Email, req.Subject, req.Message); err != nil {
		return err
	}
	return c.JSON(messageResponse{Message: "Admin message sent successfully!"})
}

func (s *Server) adminSweep(c *fiber.Ctx) error {
	n, err := s.accounts.SweepExpiredPending(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"deleted": n})
}

func (s *Server) devOutbox(c *fiber.Ctx) error {
	email := domain.NormalizeEmail(c.Query("email"))
	if email == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email query parameter is required")
	}
	e, ok := s.outbox.Latest(c.UserContext(), email)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "No message for this address.")
	}
	return c.JSON(outboxResponse{To: e.To, Subject: e.Subject, HTML: e.HTML, Text: e.Text, SentAt: e.SentAt})
}

package httpapi

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type registerRequest struct {
	Email    string `json:"email" validate:"required"`
	Username string `json:"username" validate:"required_without=Name"`
	// Name is accepted as an alias for Username.
	Name     string `json:"name"`
	Password string `json:"password" validate:"required"`
}

func (r registerRequest) username() string {
	if r.Username != "" {
		return r.Username
	}
	return r.Name
}

type checkUserRequest struct {
	Email    string `json:"email" validate:"required_without=Username"`
	Username string `json:"username"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required"`
}

type verifyRequest struct {
	Email string `json:"email" validate:"required"`
	Token string `json:"token" validate:"required_without=Code"`
	Code  string `json:"code"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type resetRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type adminEmailRequest struct {
	Email   string `json:"email" validate:"required"`
	Subject string `json:"subject" validate:"required"`
	Message string `json:"message" validate:"required"`
}

// bind parses the JSON body into req and validates it. Validation failures become a 400
// carrying msg; fields are not named so responses stay uniform.
func bind(c *fiber.Ctx, req any, msg string) error {
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body.")
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fiber.NewError(fiber.StatusBadRequest, msg)
		}
		return err
	}
	return nil
}

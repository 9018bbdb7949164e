package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"doc-assistant-be/internal/service"
)

type SetUsernameRequest struct {
	Username string `json:"username" validate:"required,min=2,max=50"`
}

// UserHandler exposes the display-name endpoint. It is registered only when
// a database is configured.
type UserHandler struct {
	users    service.IUserService
	validate *validator.Validate
}

func NewUserHandler(users service.IUserService) *UserHandler {
	return &UserHandler{
		users:    users,
		validate: validator.New(),
	}
}

func (h *UserHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/username", h.SetUsername)
}

func (h *UserHandler) SetUsername(c *fiber.Ctx) error {
	var req SetUsernameRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request body",
		})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Username must be between 2 and 50 characters",
		})
	}

	if err := h.users.SetUsername(c.Context(), req.Username); err != nil {
		if errors.Is(err, service.ErrUsernameTaken) {
			return c.JSON(fiber.Map{
				"success": false,
				"message": "Username already taken",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to save username",
		})
	}

	return c.JSON(fiber.Map{"success": true})
}

package person

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes owner registration endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a person HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	Phone string `json:"phone"`
	PIN   string `json:"pin"`
}

// Register creates a person together with their wallet.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	p, err := h.service.Register(c.UserContext(), RegisterInput{Phone: req.Phone, PIN: req.PIN})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidPINFormat):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrBlacklisted):
			return c.Status(http.StatusForbidden).JSON(fiber.Map{"code": "BLACKLISTED", "message": err.Error()})
		case errors.Is(err, ErrExists):
			return fiber.NewError(http.StatusConflict, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, "internal server error")
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"id":         p.ID,
		"phone":      p.Phone,
		"created_at": p.CreatedAt,
	})
}

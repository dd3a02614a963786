package security

import (
	"github.com/gofiber/fiber/v2"
	"github.com/otebe/matrix/internal/utils"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// List returns recent security events, newest first
func (h *Handler) List(c *fiber.Ctx) error {
	events, err := h.service.List(c.Query("email"), c.QueryInt("limit"))
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError)
	}

	return c.JSON(fiber.Map{"events": events})
}

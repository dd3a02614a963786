package admin

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/otebe/matrix/internal/domain/session"
	"github.com/otebe/matrix/internal/utils"
)

type Handler struct {
	service  Service
	sessions session.Service
}

func NewHandler(service Service, sessions session.Service) *Handler {
	return &Handler{service: service, sessions: sessions}
}

type loginRequest struct {
	Password string `json:"password"`
}

// Login answers POST /admin/login
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := utils.ParseJSON(c, &req); err != nil {
		return utils.ErrorResponse(c, "invalid_body", fiber.StatusBadRequest)
	}
	if req.Password == "" {
		return utils.ErrorResponse(c, "Password is required", fiber.StatusBadRequest)
	}

	tok, err := h.service.Login(req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			slog.Warn("Failed admin login", "ip", c.IP())
			return utils.ErrorResponse(c, err.Error(), fiber.StatusUnauthorized)
		case errors.Is(err, ErrNotConfigured):
			return utils.ErrorResponse(c, err.Error(), fiber.StatusServiceUnavailable)
		default:
			return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError)
		}
	}

	return c.JSON(fiber.Map{"token": tok})
}

// CleanupUnknownSessions answers DELETE /admin/sessions/unknown
func (h *Handler) CleanupUnknownSessions(c *fiber.Ctx) error {
	n, err := h.sessions.CleanupUnknown()
	if err != nil {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError)
	}

	slog.Info("Removed sessions without device identity", "deleted", n, "by", utils.AdminSubject(c))
	return c.JSON(fiber.Map{"deleted": n})
}

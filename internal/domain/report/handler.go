package report

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/otebe/matrix/internal/utils"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Download answers POST /download-report
func (h *Handler) Download(c *fiber.Ctx) error {
	var req DownloadRequest
	if err := utils.ParseJSON(c, &req); err != nil {
		return utils.ErrorResponse(c, "Invalid JSON body", fiber.StatusBadRequest)
	}

	result, err := h.service.Download(c.UserContext(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailRequired):
			return utils.ErrorResponse(c, "Email is required", fiber.StatusBadRequest)
		case IsDenied(err):
			return utils.ErrorResponse(c, err.Error(), fiber.StatusForbidden)
		default:
			return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError)
		}
	}

	return c.JSON(fiber.Map{
		"success":        true,
		"downloads_left": result.DownloadsLeft,
		"message":        "Download recorded",
		"email_sent":     result.EmailSent,
	})
}

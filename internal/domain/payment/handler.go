package payment

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/otebe/matrix/internal/domain/access"
	"github.com/otebe/matrix/internal/utils"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Submit answers POST /payment-submit
func (h *Handler) Submit(c *fiber.Ctx) error {
	var req SubmitRequest
	if err := utils.ParseJSON(c, &req); err != nil {
		return utils.ErrorResponse(c, "Invalid JSON body", fiber.StatusBadRequest)
	}

	created, err := h.service.Submit(c.UserContext(), req)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"request_id": created.ID,
		"message":    "Payment request received",
	})
}

// List answers GET /admin/requests?status=
func (h *Handler) List(c *fiber.Ctx) error {
	status, err := ParseStatus(c.Query("status"))
	if err != nil {
		return h.fail(c, err)
	}

	reqs, err := h.service.List(status)
	if err != nil {
		return h.fail(c, err)
	}
	if reqs == nil {
		reqs = []Request{}
	}

	return c.JSON(fiber.Map{"requests": reqs})
}

// Approve answers POST /admin/requests/:id/approve
func (h *Handler) Approve(c *fiber.Ctx) error {
	id, err := requestID(c)
	if err != nil {
		return utils.ErrorResponse(c, "Invalid request id", fiber.StatusBadRequest)
	}

	req, err := h.service.Approve(id, utils.AdminSubject(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "request": req})
}

// Reject answers POST /admin/requests/:id/reject
func (h *Handler) Reject(c *fiber.Ctx) error {
	id, err := requestID(c)
	if err != nil {
		return utils.ErrorResponse(c, "Invalid request id", fiber.StatusBadRequest)
	}

	req, err := h.service.Reject(id, utils.AdminSubject(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "request": req})
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrEmailRequired):
		return utils.ErrorResponse(c, "Email is required", fiber.StatusBadRequest)
	case errors.Is(err, access.ErrInvalidPlan), errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidStatus):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest)
	case errors.Is(err, ErrRequestNotFound):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusNotFound)
	case errors.Is(err, ErrAlreadyReviewed):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusConflict)
	default:
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError)
	}
}

func requestID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}

package access

import (
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/otebe/matrix/internal/utils"
)

type Handler struct {
	service  Service
	resolver IdentityResolver
}

func NewHandler(service Service, resolver IdentityResolver) *Handler {
	return &Handler{service: service, resolver: resolver}
}

type emailRequest struct {
	Email string `json:"email"`
}

// GrantRequest is the admin direct-grant body
type GrantRequest struct {
	Email    string `json:"email"`
	PlanType string `json:"plan_type"`
}

// DeviceLimitRequest is the admin device-limit override body
type DeviceLimitRequest struct {
	MaxDevices int `json:"max_devices"`
}

// Check answers GET /access-check?email=
func (h *Handler) Check(c *fiber.Ctx) error {
	device := h.resolver.Resolve(c)

	decision, err := h.service.CheckAccess(c.UserContext(), c.Query("email"), device)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(decision)
}

// Devices answers POST /access-check {email}
func (h *Handler) Devices(c *fiber.Ctx) error {
	email, err := bodyEmail(c)
	if err != nil {
		return utils.ErrorResponse(c, "Invalid JSON body", fiber.StatusBadRequest)
	}

	list, err := h.service.ListDevices(email, h.resolver.Resolve(c).Identity)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(list)
}

// Logout answers DELETE /access-check {email}
func (h *Handler) Logout(c *fiber.Ctx) error {
	email, err := bodyEmail(c)
	if err != nil {
		return utils.ErrorResponse(c, "Invalid JSON body", fiber.StatusBadRequest)
	}

	n, err := h.service.Logout(email, h.resolver.Resolve(c).Identity)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success":          true,
		"sessions_deleted": n,
	})
}

// CreateGrant answers POST /admin/grants
func (h *Handler) CreateGrant(c *fiber.Ctx) error {
	var req GrantRequest
	if err := utils.ParseJSON(c, &req); err != nil {
		return utils.ErrorResponse(c, "Invalid JSON body", fiber.StatusBadRequest)
	}
	if req.PlanType == "" {
		req.PlanType = string(PlanMonth)
	}

	grant, err := h.service.Grant(req.Email, PlanType(req.PlanType), utils.AdminSubject(c))
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{"ok": true, "grant": grant})
}

// RevokeGrant answers DELETE /admin/grants/:email
func (h *Handler) RevokeGrant(c *fiber.Ctx) error {
	if err := h.service.Revoke(paramEmail(c)); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// SetDeviceLimit answers PUT /admin/grants/:email/devices
func (h *Handler) SetDeviceLimit(c *fiber.Ctx) error {
	var req DeviceLimitRequest
	if err := utils.ParseJSON(c, &req); err != nil {
		return utils.ErrorResponse(c, "Invalid JSON body", fiber.StatusBadRequest)
	}

	if err := h.service.SetDeviceLimit(paramEmail(c), req.MaxDevices); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true, "max_devices": req.MaxDevices})
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrEmailRequired):
		return utils.ErrorResponse(c, "Email is required", fiber.StatusBadRequest)
	case errors.Is(err, ErrInvalidPlan), errors.Is(err, ErrInvalidDeviceLimit):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusBadRequest)
	case errors.Is(err, ErrGrantNotFound):
		return utils.ErrorResponse(c, err.Error(), fiber.StatusNotFound)
	default:
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError)
	}
}

// bodyEmail reads email from the JSON body, falling back to the query string
func bodyEmail(c *fiber.Ctx) (string, error) {
	var req emailRequest
	if err := utils.ParseJSON(c, &req); err != nil {
		return "", err
	}
	if req.Email == "" {
		req.Email = c.Query("email")
	}
	return req.Email, nil
}

func paramEmail(c *fiber.Ctx) string {
	email, err := url.PathUnescape(c.Params("email"))
	if err != nil {
		return c.Params("email")
	}
	return email
}

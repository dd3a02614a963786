package utils

import (
	"github.com/gofiber/fiber/v2"
)

// LocalsAdminKey is the fiber.Ctx locals key holding the authenticated admin subject
const LocalsAdminKey = "admin_subject"

// ParseJSON decodes a JSON body into out. An empty body leaves out untouched and
// a body sent without a Content-Type is treated as JSON.
func ParseJSON(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if len(c.Request().Header.ContentType()) == 0 {
		c.Request().Header.SetContentType(fiber.MIMEApplicationJSON)
	}
	return c.BodyParser(out)
}

// AdminSubject returns the authenticated admin name, or "admin" outside the admin group
func AdminSubject(c *fiber.Ctx) string {
	if s, ok := c.Locals(LocalsAdminKey).(string); ok && s != "" {
		return s
	}
	return "admin"
}

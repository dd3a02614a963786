package utils

import (
	"github.com/gofiber/fiber/v2"
)

// ErrorResponse sends an error JSON response with a failure flag and message.
// If an explicit HTTP status code is provided it is used; otherwise 500 Internal Server Error is sent.
// The JSON body contains the fields "success": false and "error": <message>.
func ErrorResponse(c *fiber.Ctx, message string, code ...int) error {
	statusCode := fiber.StatusInternalServerError
	if len(code) > 0 {
		statusCode = code[0]
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

// APIErrorResponse sends a structured API error. An explicit status code
// overrides err.Status for this response only; err itself is never mutated.
func APIErrorResponse(c *fiber.Ctx, err *APIError, code ...int) error {
	statusCode := err.Status
	if len(code) > 0 {
		statusCode = code[0]
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"success": false,
		"error":   err.Message,
		"code":    err.Code,
	})
}

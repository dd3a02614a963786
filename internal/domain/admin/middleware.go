package admin

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/otebe/matrix/internal/utils"
)

// Middleware requires a valid admin bearer token
func Middleware(svc Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return utils.APIErrorResponse(c, utils.ErrUnauthorized)
		}

		scheme, bearer, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || bearer == "" {
			return utils.ErrorResponse(c, "invalid_authorization_header", fiber.StatusUnauthorized)
		}

		claims, err := svc.Authenticate(bearer)
		if err != nil {
			return utils.ErrorResponse(c, "invalid_token", fiber.StatusUnauthorized)
		}

		c.Locals(utils.LocalsAdminKey, claims.Subject)
		return c.Next()
	}
}

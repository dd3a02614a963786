package server

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/otebe/matrix/internal/cache"
	"github.com/otebe/matrix/internal/domain/access"
	"github.com/otebe/matrix/internal/utils"
)

// route binds a method to its handler chain on a public endpoint
type route struct {
	method   string
	handlers []fiber.Handler
}

func on(method string, handlers ...fiber.Handler) route {
	return route{method: method, handlers: handlers}
}

// publicEndpoint registers a browser-facing endpoint open to any origin.
// Preflight gets 200 with an empty body and any unlisted method gets 405.
func publicEndpoint(r fiber.Router, path string, routes ...route) {
	methods := make([]string, 0, len(routes)+1)
	for _, rt := range routes {
		methods = append(methods, rt.method)
	}
	methods = append(methods, fiber.MethodOptions)
	allowed := strings.Join(methods, ", ")

	withCORS := func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
		return c.Next()
	}

	for _, rt := range routes {
		r.Add(rt.method, path, append([]fiber.Handler{withCORS}, rt.handlers...)...)
	}

	r.Options(path, withCORS, func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderAccessControlAllowMethods, allowed)
		c.Set(fiber.HeaderAccessControlAllowHeaders, "Content-Type, Authorization, X-Session-Token")
		c.Set(fiber.HeaderAccessControlMaxAge, "86400")
		c.Status(fiber.StatusOK)
		return nil
	})

	r.All(path, withCORS, func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderAllow, allowed)
		return utils.APIErrorResponse(c, utils.ErrMethodNotAllowed)
	})
}

// allower is satisfied by cache.RateLimiter
type allower interface {
	Allow(ctx context.Context, key string) (bool, time.Duration)
}

var _ allower = (*cache.RateLimiter)(nil)

// rateLimited rejects requests once the client address exceeds l's window
func rateLimited(l allower, clients access.HeaderResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		allowed, retryAfter := l.Allow(c.UserContext(), clients.ClientAddress(c))
		if !allowed {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			return utils.APIErrorResponse(c, utils.ErrTooManyRequests)
		}
		return c.Next()
	}
}

// unavailable answers for an integration that is not configured
func unavailable(name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return utils.ErrorResponse(c, name+" is not configured", fiber.StatusServiceUnavailable)
	}
}

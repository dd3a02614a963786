package access

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/otebe/matrix/internal/domain/session"
)

// IdentityResolver derives the requesting device from a request
type IdentityResolver interface {
	Resolve(c *fiber.Ctx) session.Device
}

// HeaderResolver identifies a device by its client address. With
// TrustProxyHeaders the first X-Forwarded-For entry wins, then X-Real-IP, then
// the socket address; without it only the socket address is used.
type HeaderResolver struct {
	TrustProxyHeaders bool
}

func (r HeaderResolver) Resolve(c *fiber.Ctx) session.Device {
	identity := r.ClientAddress(c)
	if identity == "" {
		identity = session.UnknownIdentity
	}

	return session.Device{
		Identity:  identity,
		UserAgent: c.Get(fiber.HeaderUserAgent),
	}
}

// ClientAddress returns the address the request is attributed to under the
// same header trust policy as Resolve. Rate limiters key on it.
func (r HeaderResolver) ClientAddress(c *fiber.Ctx) string {
	if r.TrustProxyHeaders {
		if xff := c.Get(fiber.HeaderXForwardedFor); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if addr := strings.TrimSpace(first); addr != "" {
				return addr
			}
		}
		if addr := strings.TrimSpace(c.Get("X-Real-IP")); addr != "" {
			return addr
		}
	}
	return c.IP()
}

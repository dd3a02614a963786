package server

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/otebe/matrix/internal/domain/access"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bucketLimiter allows max requests per key
type bucketLimiter struct {
	max  int
	hits map[string]int
}

func (b *bucketLimiter) Allow(ctx context.Context, key string) (bool, time.Duration) {
	b.hits[key]++
	if b.hits[key] > b.max {
		return false, 1500 * time.Millisecond
	}
	return true, 0
}

func TestRateLimited_KeysOnClientAddress(t *testing.T) {
	tests := []struct {
		name     string
		trust    bool
		statuses []int
	}{
		{"trusted proxy headers", true, []int{fiber.StatusOK, fiber.StatusOK, fiber.StatusTooManyRequests}},
		{"socket address only", false, []int{fiber.StatusOK, fiber.StatusTooManyRequests, fiber.StatusTooManyRequests}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &bucketLimiter{max: 1, hits: map[string]int{}}
			app := fiber.New()
			app.Post("/submit", rateLimited(l, access.HeaderResolver{TrustProxyHeaders: tt.trust}), func(c *fiber.Ctx) error {
				return c.SendStatus(fiber.StatusOK)
			})

			for i, xff := range []string{"1.1.1.1", "2.2.2.2", "1.1.1.1, 10.0.0.1"} {
				req := httptest.NewRequest("POST", "/submit", nil)
				req.Header.Set("X-Forwarded-For", xff)
				resp, err := app.Test(req)
				require.NoError(t, err)
				assert.Equal(t, tt.statuses[i], resp.StatusCode, xff)
				if resp.StatusCode == fiber.StatusTooManyRequests {
					assert.Equal(t, "2", resp.Header.Get("Retry-After"))
				}
			}
		})
	}
}

package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/otebe/matrix/internal/config"
	"github.com/otebe/matrix/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHandler(t *testing.T) {
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	app := newApp(cfg)

	app.Get("/api-error", func(c *fiber.Ctx) error {
		return utils.ErrBadRequest
	})
	app.Get("/fiber-error", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "short and stout")
	})
	app.Get("/plain-error", func(c *fiber.Ctx) error {
		return errors.New("database is gone")
	})
	app.Get("/panic", func(c *fiber.Ctx) error {
		panic("boom")
	})

	tests := []struct {
		path   string
		status int
		body   string
	}{
		{"/api-error", fiber.StatusBadRequest, `{"success":false,"error":"Invalid request","code":"BAD_REQUEST"}`},
		{"/fiber-error", fiber.StatusTeapot, `{"success":false,"error":"short and stout","code":"HTTP_ERROR"}`},
		{"/plain-error", fiber.StatusInternalServerError, `{"success":false,"error":"database is gone","code":"INTERNAL_SERVER_ERROR"}`},
		{"/panic", fiber.StatusInternalServerError, `{"success":false,"error":"boom","code":"INTERNAL_SERVER_ERROR"}`},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", tt.path, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			raw, _ := io.ReadAll(resp.Body)
			assert.JSONEq(t, tt.body, string(raw))
		})
	}
}

func TestInitLogger(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	initLogger("debug")
	assert.True(t, slog.Default().Enabled(context.Background(), slog.LevelDebug))

	initLogger("error")
	assert.False(t, slog.Default().Enabled(context.Background(), slog.LevelWarn))

	initLogger("unknown")
	assert.True(t, slog.Default().Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, slog.Default().Enabled(context.Background(), slog.LevelDebug))
}

func TestNewApp_RateLimitPerClient(t *testing.T) {
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	cfg.Server.RateLimit.Max = 1
	app := newApp(cfg)
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	get := func(xff string) int {
		req := httptest.NewRequest("GET", "/ping", nil)
		req.Header.Set("X-Forwarded-For", xff)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, fiber.StatusOK, get("1.1.1.1"))
	assert.Equal(t, fiber.StatusOK, get("2.2.2.2"))
	assert.Equal(t, fiber.StatusOK, get("3.3.3.3"))
	assert.Equal(t, fiber.StatusTooManyRequests, get("1.1.1.1"))
}

package server

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/otebe/matrix/internal/cache"
	"github.com/otebe/matrix/internal/config"
	"github.com/otebe/matrix/internal/domain/access"
	"github.com/otebe/matrix/internal/domain/admin"
	"github.com/otebe/matrix/internal/domain/payment"
	"github.com/otebe/matrix/internal/domain/report"
	"github.com/otebe/matrix/internal/domain/security"
	"github.com/otebe/matrix/internal/domain/session"
	"github.com/otebe/matrix/internal/telegram"
	"github.com/otebe/matrix/internal/token"
	"github.com/otebe/matrix/internal/utils"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Dependencies are the shared handles the routes are built from.
// Redis, Uploader, Mailer and Bot are optional.
type Dependencies struct {
	Config   *config.Config
	DB       *gorm.DB
	Redis    *redis.Client
	Signer   *token.Signer
	Recorder security.Recorder
	Uploader payment.Uploader
	Mailer   report.Mailer
	Bot      *telegram.Bot
}

// clientResolver attributes requests to a client address per the access trust policy
func clientResolver(cfg *config.Config) access.HeaderResolver {
	return access.HeaderResolver{TrustProxyHeaders: cfg.Access.TrustsProxyHeaders()}
}

// SetupRoutes builds repositories and services from deps and registers the
// public function endpoints, the health check and the admin API.
func SetupRoutes(app *fiber.App, deps *Dependencies) error {
	if deps == nil || deps.Config == nil || deps.DB == nil {
		return errors.New("routes require a config and a database")
	}
	cfg := deps.Config

	// Initialize repositories
	grantRepo := access.NewRepository(deps.DB)
	sessionRepo := session.NewRepository(deps.DB)
	securityRepo := security.NewRepository(deps.DB)
	paymentRepo := payment.NewRepository(deps.DB)
	downloadRepo := report.NewRepository(deps.DB)

	// Initialize services
	sessionService := session.NewService(sessionRepo, cfg.Access.SessionWindow)
	accessService := access.NewService(deps.DB, grantRepo, sessionService, deps.Recorder, deps.Signer, access.Options{
		DefaultMaxDevices: cfg.Access.DefaultMaxDevices,
		StrictDeviceLimit: cfg.Access.StrictDeviceLimit,
		TokenTTL:          cfg.Access.TokenTTL,
	})

	var notifier payment.Notifier
	if deps.Bot != nil {
		notifier = deps.Bot
	}
	paymentService := payment.NewService(paymentRepo, accessService, deps.Uploader, notifier, cfg.Payment.Prices)

	reportService := report.NewService(deps.DB, downloadRepo, grantRepo, deps.Mailer, deps.Signer)
	securityService := security.NewService(securityRepo)
	adminService := admin.NewService(cfg.Admin.PasswordHash, deps.Signer, cfg.Admin.TokenTTL)

	// Initialize handlers
	clients := clientResolver(cfg)
	accessHandler := access.NewHandler(accessService, clients)
	paymentHandler := payment.NewHandler(paymentService)
	reportHandler := report.NewHandler(reportService)
	securityHandler := security.NewHandler(securityService)
	adminHandler := admin.NewHandler(adminService, sessionService)

	submitLimiter := cache.NewRateLimiter(deps.Redis, "payment_submit", cfg.Payment.SubmitLimit, time.Hour)
	loginLimiter := cache.NewRateLimiter(deps.Redis, "admin_login", cfg.Admin.LoginLimit, time.Minute)

	telegramWebhook := unavailable("Telegram bot")
	registerWebhook := unavailable("Telegram bot")
	if deps.Bot != nil {
		webhookHandler := telegram.NewWebhookHandler(deps.Bot, paymentService, cache.NewCallbackDeduplicator(deps.Redis))
		telegramWebhook = webhookHandler.Handle
		registerWebhook = webhookHandler.RegisterWebhook
	}

	// Public function endpoints
	publicEndpoint(app, "/access-check",
		on(fiber.MethodGet, accessHandler.Check),
		on(fiber.MethodPost, accessHandler.Devices),
		on(fiber.MethodDelete, accessHandler.Logout),
	)
	publicEndpoint(app, "/payment-submit", on(fiber.MethodPost, rateLimited(submitLimiter, clients), paymentHandler.Submit))
	publicEndpoint(app, "/download-report", on(fiber.MethodPost, reportHandler.Download))
	publicEndpoint(app, "/telegram-webhook", on(fiber.MethodPost, telegramWebhook))

	api := app.Group("/v1")
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ok",
		})
	})

	// Admin API
	origins := "*"
	if len(cfg.Server.AllowedOrigins) > 0 {
		origins = strings.Join(cfg.Server.AllowedOrigins, ",")
	}
	adminGroup := app.Group("/admin", cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:  "Origin,Content-Type,Accept,Authorization",
		ExposeHeaders: "Content-Length",
		MaxAge:        3600,
	}))
	adminGroup.Post("/login", rateLimited(loginLimiter, clients), adminHandler.Login)

	protected := adminGroup.Group("", admin.Middleware(adminService))
	protected.Get("/requests", paymentHandler.List)
	protected.Post("/requests/:id/approve", paymentHandler.Approve)
	protected.Post("/requests/:id/reject", paymentHandler.Reject)
	protected.Post("/grants", accessHandler.CreateGrant)
	protected.Delete("/grants/:email", accessHandler.RevokeGrant)
	protected.Put("/grants/:email/devices", accessHandler.SetDeviceLimit)
	protected.Delete("/sessions/unknown", adminHandler.CleanupUnknownSessions)
	protected.Get("/security-logs", securityHandler.List)
	protected.Post("/telegram/webhook", registerWebhook)

	app.Use(func(c *fiber.Ctx) error {
		return utils.APIErrorResponse(c, utils.ErrNotFound)
	})

	return nil
}

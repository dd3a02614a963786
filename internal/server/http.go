package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/otebe/matrix/internal/cache"
	"github.com/otebe/matrix/internal/config"
	"github.com/otebe/matrix/internal/database"
	"github.com/otebe/matrix/internal/domain/security"
	"github.com/otebe/matrix/internal/mail"
	"github.com/otebe/matrix/internal/migrations"
	"github.com/otebe/matrix/internal/storage"
	"github.com/otebe/matrix/internal/telegram"
	"github.com/otebe/matrix/internal/token"
	"github.com/otebe/matrix/internal/utils"
)

const shutdownTimeout = 10 * time.Second

// Start initializes logging, connects to the database and Redis, runs migrations,
// wires the optional integrations, registers routes and serves until SIGINT or SIGTERM.
func Start(cfg *config.Config) error {
	initLogger(cfg.Logging.Level)

	app := newApp(cfg)

	if err := database.ConnectDB(cfg); err != nil {
		slog.Error("Failed to connect to database", "error", err)
		return err
	}
	defer database.CloseDB()
	slog.Info("Database connected successfully")

	if err := cache.ConnectRedis(&cfg.Redis); err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		return err
	}
	defer cache.CloseRedis()

	if err := migrations.RunMigrations(cfg); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return err
	}
	slog.Info("Migrations completed successfully")

	envConfig := config.LoadEnv()
	slog.Info("Environment loaded", "environment", envConfig.Environment.String())

	secret, err := envConfig.SigningSecret()
	if err != nil {
		slog.Error("Failed to load signing secret", "error", err)
		return err
	}
	signer, err := token.NewSigner(secret, cfg.App.Name)
	if err != nil {
		return fmt.Errorf("failed to create token signer: %w", err)
	}

	recorder := security.NewAsyncRecorder(security.NewRepository(database.DB))
	defer recorder.Flush()

	deps := &Dependencies{
		Config:   cfg,
		DB:       database.DB,
		Redis:    cache.RedisClient,
		Signer:   signer,
		Recorder: recorder,
	}
	connectIntegrations(cfg, deps)

	if err := SetupRoutes(app, deps); err != nil {
		slog.Error("Failed to setup routes", "error", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listenErr := make(chan error, 1)
	go func() {
		addr := cfg.Server.Address()
		slog.Info("Server starting",
			"address", addr,
			"app", cfg.App.Name,
			"version", cfg.App.Version,
		)
		listenErr <- app.Listen(addr)
	}()

	select {
	case err := <-listenErr:
		if err != nil {
			slog.Error("Failed to start server", "error", err)
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		slog.Error("Failed to shut down server", "error", err)
		return err
	}
	return nil
}

// connectIntegrations enables object storage, SMTP and the Telegram bot when
// configured. A failing integration is logged and left disabled.
func connectIntegrations(cfg *config.Config, deps *Dependencies) {
	if cfg.Storage.Enabled() {
		uploader, err := storage.NewUploader(cfg.Storage)
		if err != nil {
			slog.Warn("Object storage disabled", "error", err)
		} else {
			deps.Uploader = uploader
		}
	}

	if cfg.Mail.Enabled() {
		deps.Mailer = mail.NewSender(cfg.Mail)
	}

	if cfg.Telegram.Enabled() {
		bot, err := telegram.NewBot(cfg.Telegram)
		if err != nil {
			slog.Warn("Telegram bot disabled", "error", err)
		} else {
			deps.Bot = bot
		}
	}
}

// newApp creates the Fiber app with the error handler and global middleware
func newApp(cfg *config.Config) *fiber.App {
	clients := clientResolver(cfg)
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    cfg.Server.BodyLimitMB * 1024 * 1024,
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))

	// Use Helmet for security headers
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	// Configure Rate Limiting
	app.Use(limiter.New(limiter.Config{
		Max:        cfg.Server.RateLimit.Max,
		Expiration: time.Duration(cfg.Server.RateLimit.Expiration) * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			return clients.ClientAddress(c)
		},
		LimitReached: func(c *fiber.Ctx) error {
			return utils.APIErrorResponse(c, utils.ErrTooManyRequests)
		},
	}))

	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	var apiErr *utils.APIError
	if errors.As(err, &apiErr) {
		return utils.APIErrorResponse(c, apiErr)
	}

	var e *fiber.Error
	if errors.As(err, &e) {
		return utils.APIErrorResponse(c, utils.NewAPIError("HTTP_ERROR", e.Message, e.Code))
	}

	slog.Error("Unhandled request error", "error", err, "path", c.Path())
	return utils.APIErrorResponse(c, utils.NewAPIError(
		"INTERNAL_SERVER_ERROR",
		err.Error(),
		fiber.StatusInternalServerError,
	))
}

func initLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))
}

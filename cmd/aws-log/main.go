package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	httpapi "github.com/202116302/AWS-log/internal/api/http"
	"github.com/202116302/AWS-log/internal/config"
	"github.com/202116302/AWS-log/internal/graphs"
	"github.com/202116302/AWS-log/internal/observability"
	"github.com/202116302/AWS-log/internal/scheduler"
	"github.com/202116302/AWS-log/internal/store"
	"github.com/202116302/AWS-log/internal/telemetry"
	"github.com/202116302/AWS-log/internal/telemetry/dspnet"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	// DuckDB-backed series store.
	db, err := store.Open(store.DefaultConfig(cfg.DBPath), logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer db.Close()

	// Shared HTTP client for outbound feed fetches.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	source := dspnet.New(httpClient, cfg.FeedBaseURL, cfg.Site, cfg.Device)

	// Core service orchestrating ingestion and queries.
	service := telemetry.NewService(db, source, logger)

	// Out-of-process graph renderer.
	renderer := graphs.New(cfg.GraphCommand, cfg.GraphDir, logger)

	// Scheduler that periodically re-ingests the current day.
	sched := scheduler.New(cfg.FetchInterval, service, logger)
	if err := sched.Start(); err != nil {
		logger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "aws-log",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(fiberlogger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "aws-log",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(observability.Handler()))

	// API routes.
	httpapi.RegisterRoutes(app, service, renderer)

	// Start server with graceful shutdown
	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			logger.Error("fiber server stopped", zap.Error(err))
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("error during shutdown", zap.Error(err))
	}
}

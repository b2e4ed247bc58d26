package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/skp-companion/internal/app"
	"github.com/noah-isme/skp-companion/internal/config"
	"github.com/noah-isme/skp-companion/internal/handler"
	"github.com/noah-isme/skp-companion/internal/middleware"
	"github.com/noah-isme/skp-companion/internal/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := app.NewLogger(cfg, os.Stdout)

	container, err := app.Build(context.Background(), cfg, logger)
	if err != nil {
		log.Fatalf("failed to initialise companion: %v", err)
	}
	defer container.Close()

	fiberApp := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.EvidenceMaxMB + 1) * 1024 * 1024,
	})

	middleware.Register(fiberApp, middleware.Config{
		Logger:    &logger,
		Tokens:    container.Sessions,
		AccessLog: cfg.AppEnv == "development",
	})
	router.Register(fiberApp, cfg, router.Dependencies{
		SessionHandler: handler.NewSessionHandler(container.Session, logger),
		ClaimHandler:   handler.NewClaimHandler(container.Submissions, logger),
		PendingHandler: handler.NewPendingHandler(
			container.Queue,
			container.Broker,
			middleware.RateLimit("pending_retry", cfg.RetryRateLimit, cfg.RetryRateWindow),
			logger,
		),
		AdminHandler: handler.NewAdminHandler(container.Catalog, logger),
	})

	go func() {
		if err := fiberApp.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	logger.Info().Str("addr", cfg.HTTPAddress()).Str("remote", cfg.RemoteBaseURL).Msg("skp companion listening")
	waitForShutdown(fiberApp)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}

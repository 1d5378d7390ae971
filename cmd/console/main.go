package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-console/internal/api/http"
	"github.com/spec-kit/ticket-console/internal/api/http/handlers"
	"github.com/spec-kit/ticket-console/internal/auth"
	"github.com/spec-kit/ticket-console/internal/config"
	"github.com/spec-kit/ticket-console/internal/lifecycle"
	"github.com/spec-kit/ticket-console/internal/observability"
	"github.com/spec-kit/ticket-console/internal/persistence"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	dispatcher := lifecycle.NewInMemoryDispatcher()
	notifier := lifecycle.NewNotifier(dispatcher, redis.Client, cfg.Lifecycle.RedisChannel, logger)
	go notifier.Run(ctx)

	sessions := auth.NewSessionManager(cfg.Session.JWTSecret, cfg.Session.TTLMinutes)
	provider := auth.NewCredentialProvider(cfg.Upstream.BaseURL, cfg.Upstream.Timeout())
	authMiddleware := auth.NewMiddleware(sessions)

	metrics := observability.NewMetrics()

	workspaces := handlers.NewWorkspaces(handlers.WorkspaceConfig{
		BaseCtx:         ctx,
		UpstreamBaseURL: cfg.Upstream.BaseURL,
		UpstreamTimeout: cfg.Upstream.Timeout(),
		PollInterval:    cfg.Lifecycle.PollInterval(),
		Sessions:        sessions,
		Notifier:        notifier,
		Metrics:         metrics,
		Logger:          logger,
	})

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(redis),
		Auth:           handlers.NewAuthHandler(provider, sessions, workspaces),
		Dispatch:       handlers.NewDispatchHandler(workspaces),
		Board:          handlers.NewBoardHandler(workspaces),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}

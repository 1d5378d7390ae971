package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-console/internal/config"
	"github.com/spec-kit/ticket-console/internal/observability"
	"github.com/spec-kit/ticket-console/internal/persistence"
	"github.com/spec-kit/ticket-console/internal/supportstub"
)

// The support stub is a standalone stand-in for the real support backend.
// It serves the same wire contract the console's directory client speaks,
// backed by Postgres when POSTGRES_DSN is set and seeded memory otherwise.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	loggerCfg := cfg.Logger
	loggerCfg.Service = "support-stub"
	logger, err := observability.NewLogger(loggerCfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store supportstub.Store
	if cfg.Postgres.DSN != "" {
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()

		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		store = supportstub.NewPostgresStore(pg.PoolHandle())
		logger.Info("support stub using postgres store")
	} else {
		memory := supportstub.NewMemoryStore()
		if err := memory.Seed(cfg.Stub.BcryptCost); err != nil {
			logger.Fatal("failed to seed stub store", zap.Error(err))
		}
		store = memory
		logger.Info("support stub using seeded in-memory store")
	}

	app := fiber.New(fiber.Config{ErrorHandler: supportstub.ErrorHandler})
	server := supportstub.NewServer(store, logger, cfg.Stub.JWTSecret, cfg.Stub.TokenTTLMinutes)
	server.Register(app)

	go func() {
		if err := app.Listen(cfg.Stub.Addr()); err != nil {
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

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-dashboard/internal/api/http"
	"github.com/spec-kit/ticket-dashboard/internal/api/http/handlers"
	"github.com/spec-kit/ticket-dashboard/internal/config"
	"github.com/spec-kit/ticket-dashboard/internal/events"
	"github.com/spec-kit/ticket-dashboard/internal/excel"
	"github.com/spec-kit/ticket-dashboard/internal/observability"
	"github.com/spec-kit/ticket-dashboard/internal/persistence"
	"github.com/spec-kit/ticket-dashboard/internal/repository"
	"github.com/spec-kit/ticket-dashboard/internal/service"
	"github.com/spec-kit/ticket-dashboard/internal/worker"
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

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	ticketRepo := repository.NewTicketRepository(pg.PoolHandle())
	statsCache := repository.NewRedisStatsCache(redis.Client)
	activityFeed := repository.NewRedisActivityFeed(redis.Client, cfg.Import.ActivityFeedSize)

	reconciler := service.NewReconciler(cfg.Import.DefaultHandler, nil, logger)
	ticketService := service.NewTicketService(cfg.Import, service.TicketDependencies{
		TicketRepo: ticketRepo,
		Reconciler: reconciler,
		Dispatcher: dispatcher,
		StatsCache: statsCache,
		Logger:     logger,
	})
	statsService := service.NewStatsService(ticketRepo, statsCache, cfg.Import.StatsCacheTTL(), logger)
	notificationService := service.NewNotificationService(dispatcher, activityFeed, logger)
	worker.StartNotificationWorker(notificationService)

	parser := excel.NewParser(cfg.Import.MaxRows)

	app := fiber.New(fiber.Config{BodyLimit: 32 * 1024 * 1024})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis)
	ticketsHandler := handlers.NewTicketsHandler(ticketService, statsService, notificationService, parser, metrics)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  healthHandler,
		Tickets: ticketsHandler,
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

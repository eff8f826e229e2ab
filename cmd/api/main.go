package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/flowtls/syncplus/internal/api/http"
	"github.com/flowtls/syncplus/internal/api/http/handlers"
	"github.com/flowtls/syncplus/internal/auth"
	"github.com/flowtls/syncplus/internal/config"
	"github.com/flowtls/syncplus/internal/events"
	"github.com/flowtls/syncplus/internal/observability"
	"github.com/flowtls/syncplus/internal/persistence"
	"github.com/flowtls/syncplus/internal/repository"
	"github.com/flowtls/syncplus/internal/service"
	"github.com/flowtls/syncplus/internal/worker"
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

	hashParams := auth.Argon2Params{
		Time:      cfg.Auth.Argon2Time,
		MemoryKiB: cfg.Auth.Argon2MemoryKiB,
		Threads:   cfg.Auth.Argon2Threads,
	}

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}
	if cfg.Postgres.SeedDemoData {
		if err := persistence.SeedDemoData(ctx, pg.PoolHandle(), hashParams, logger); err != nil {
			logger.Fatal("failed to seed demo data", zap.Error(err))
		}
	}

	// Redis backs the login failure counters. Without REDIS_ADDR the
	// counters fall back to process memory.
	var redisStore *persistence.Redis
	var throttle service.LoginThrottle
	if cfg.Redis.Addr != "" {
		redisStore = persistence.NewRedis(cfg.Redis, logger)
		defer redisStore.Close()
		throttle = persistence.NewRedisLoginThrottle(redisStore.Client, cfg.Auth.LockoutThreshold, cfg.Auth.LockoutWindow())
	} else {
		logger.Warn("REDIS_ADDR not provided; using in-process login throttle")
		throttle = service.NewMemoryThrottle(cfg.Auth.LockoutThreshold, cfg.Auth.LockoutWindow())
	}

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	companyRepo := repository.NewCompanyRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	commentRepo := repository.NewTicketCommentRepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)
	lockRepo := repository.NewTicketLockRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(cfg.Auth, userRepo, throttle, logger)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		CommentRepo: commentRepo,
		HistoryRepo: historyRepo,
		LockRepo:    lockRepo,
		Dispatcher:  dispatcher,
		Logger:      logger,
		LockTTL:     cfg.Ticket.LockTTL(),
	})
	userService := service.NewUserService(userRepo, companyRepo, hashParams, dispatcher, logger)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notify)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewMiddleware(authService.TokenManager(), userRepo)
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redisStore),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Users:          handlers.NewUsersHandler(userService),
		Companies:      handlers.NewCompaniesHandler(userService),
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

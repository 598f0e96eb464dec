package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/tablero/tablero/internal/account"
	"github.com/tablero/tablero/internal/app"
	"github.com/tablero/tablero/internal/audit"
	"github.com/tablero/tablero/internal/bo"
	"github.com/tablero/tablero/internal/dispatch"
	"github.com/tablero/tablero/internal/observability"
	"github.com/tablero/tablero/internal/security"
	"github.com/tablero/tablero/internal/session"
	"github.com/tablero/tablero/internal/store"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	queries := store.New(dbpool, logger)

	cache := security.NewCache(queries, logger)
	if err := cache.Reload(ctx); err != nil {
		logger.Error("load permission cache", slog.Any("error", err))
		os.Exit(1)
	}
	if cache.Empty() && !cfg.AllowEmptyCache {
		logger.Error("permission cache is empty, set SECURITY_ALLOW_EMPTY_CACHE=true to serve anyway")
		os.Exit(1)
	}

	sessionManager := session.NewManager(redisClient, cfg.SessionCookie, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	sessionService := session.NewService(queries, logger, cfg.PasswordMode())
	sessionHandler := session.NewHandler(logger, sessionService, sessionManager, cache)

	queue := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Warn("queue close", slog.Any("error", err))
		}
	}()

	var recorder audit.Recorder
	if cfg.EnableAudit {
		recorder = audit.NewQueueRecorder(queue, logger)
	}

	registry := dispatch.NewRegistry()
	bo.RegisterAll(registry, bo.Deps{Store: queries, Cache: cache, Logger: logger, Mode: cfg.PasswordMode()})

	metrics := observability.NewMetrics()
	dispatcher := dispatch.NewDispatcher(registry, cache, sessionService, recorder, logger, func(kind dispatch.Kind) {
		metrics.ObserveDispatch(kind.String())
	})
	dispatchHandler := dispatch.NewHandler(logger, dispatcher, sessionService, cache)

	accountService := account.NewService(queries, redisClient, queue, logger, cfg.PasswordMode())
	accountHandler := account.NewHandler(logger, accountService)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		SessionManager:  sessionManager,
		SessionHandler:  sessionHandler,
		DispatchHandler: dispatchHandler,
		AccountHandler:  accountHandler,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

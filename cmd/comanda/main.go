package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/comanda-pos/comanda/internal/app"
	"github.com/comanda-pos/comanda/internal/auth"
	"github.com/comanda-pos/comanda/internal/authz"
	"github.com/comanda-pos/comanda/internal/observability"
	"github.com/comanda-pos/comanda/internal/platform/cache"
	"github.com/comanda-pos/comanda/internal/platform/db"
	"github.com/comanda-pos/comanda/internal/shared"
	"github.com/comanda-pos/comanda/internal/staff"
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

	resolverCfg, err := cfg.ResolverConfig()
	if err != nil {
		logger.Error("resolver config", slog.Any("error", err))
		os.Exit(1)
	}

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	sessionManager := shared.NewSessionManager(redisClient, "comanda_session", cfg.SessionTTL, cfg.IsProduction())
	principalLock := shared.NewKeyedLock(redisClient, cfg.LockTTL)
	auditLogger := shared.NewAuditLogger(dbpool)

	authzStore := authz.NewPGStore(dbpool)
	guardedOverrides := authz.NewGuardedOverrideStore(authzStore, authzStore, auditLogger, logger, metrics)

	staffRepo := staff.NewRepository(dbpool)

	resolver := authz.NewResolver(resolverCfg, auth.NewSessionValidator(sessionManager), authzStore, staffRepo, logger, metrics)
	engine := authz.NewEngine(resolver, guardedOverrides, cfg.ResolveTimeout)
	overrideService := authz.NewOverrideService(guardedOverrides, principalLock, auditLogger, logger, metrics)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	mw := authz.Middleware{Engine: engine, Sessions: sessionManager, Logger: logger}

	staffService := staff.NewService(staffRepo, guardedOverrides, authService, sessionManager, principalLock, auditLogger, logger, metrics)
	staffHandler := staff.NewHandler(logger, staffService, mw)

	permissionsHandler := authz.NewHandler(logger, engine, overrideService, mw)

	router := app.NewRouter(app.RouterParams{
		Config:             cfg,
		AuthHandler:        authHandler,
		StaffHandler:       staffHandler,
		PermissionsHandler: permissionsHandler,
		Metrics:            metrics,
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

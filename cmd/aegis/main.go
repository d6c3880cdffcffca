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

	"github.com/aegis-erp/aegis-erp/internal/app"
	"github.com/aegis-erp/aegis-erp/internal/auth"
	"github.com/aegis-erp/aegis-erp/internal/authz"
	"github.com/aegis-erp/aegis-erp/internal/lockout"
	"github.com/aegis-erp/aegis-erp/internal/observability"
	"github.com/aegis-erp/aegis-erp/internal/platform/cache"
	"github.com/aegis-erp/aegis-erp/internal/platform/db"
	"github.com/aegis-erp/aegis-erp/internal/rbac"
	"github.com/aegis-erp/aegis-erp/internal/settings"
	"github.com/aegis-erp/aegis-erp/internal/shared"
	"github.com/aegis-erp/aegis-erp/internal/users"
	"github.com/aegis-erp/aegis-erp/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	// Redis backs sessions and the lockout guard, so startup fails without it.
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

	registry, err := authz.NewRegistry(authz.DefaultConfig())
	if err != nil {
		logger.Error("build authorization registry", slog.Any("error", err))
		os.Exit(1)
	}

	sessionManager := shared.NewSessionManager(redisClient, "aegis_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(dbpool)
	metrics := observability.NewMetrics()

	settingsRepo := settings.NewRepository(dbpool)
	settingsService := settings.NewService(settingsRepo, logger)

	guard := lockout.NewGuard(lockout.NewRedisStore(redisClient), settingsService, logger, metrics)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, guard, logger)
	authHandler := auth.NewHandler(logger, authService, registry, sessionManager, csrfManager, auditLogger)
	principalLoader := auth.PrincipalLoader(authService, logger)

	authzMiddleware := authz.Middleware{Registry: registry, Logger: logger, Observer: metrics, Audit: auditLogger}

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo, registry, settingsService)
	usersHandler := users.NewHandler(logger, usersService, auditLogger, authzMiddleware)

	rbacService := rbac.NewService(registry, users.NewPrincipalSource(usersRepo))
	rbacHandler := rbac.NewHandler(logger, rbacService, authzMiddleware)

	settingsHandler := settings.NewHandler(logger, settingsService, auditLogger, authzMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		SessionManager:  sessionManager,
		CSRFManager:     csrfManager,
		AuthHandler:     authHandler,
		UsersHandler:    usersHandler,
		RBACHandler:     rbacHandler,
		SettingsHandler: settingsHandler,
		JobHandler:      jobHandler,
		PrincipalLoader: principalLoader,
		Pool:            dbpool,
		Redis:           redisClient,
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

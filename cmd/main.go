package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"coursedesk/internal/caching"
	"coursedesk/internal/config"
	"coursedesk/internal/handlers"
	"coursedesk/internal/jobs/background"
	"coursedesk/internal/logging"
	"coursedesk/internal/middleware"
	"coursedesk/internal/repositories"
	"coursedesk/internal/security"
	"coursedesk/internal/services"
	"coursedesk/pkg/database"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	store := caching.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err := store.Ping(ctx); err != nil {
		logger.Warn().Err(err).Msg("store ping failed on startup")
	}

	tokens, err := security.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize token manager")
	}

	// Repositories
	accountRepo := repositories.NewAccountRepo(pool)
	userRepo := repositories.NewUserRepo(pool)

	// Services
	sessionSvc := services.NewSessionService(store, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	subscriptionSvc := services.NewSubscriptionService(store, accountRepo, cfg.Subscription.CacheTTL, logger)
	authSvc := services.NewAuthService(
		userRepo,
		accountRepo,
		tokens,
		sessionSvc,
		subscriptionSvc,
		store,
		cfg.Auth.LoginAttemptLimit,
		cfg.Auth.LoginAttemptWindow,
		logger,
	)

	// Handlers
	authHandlers := handlers.NewAuthHandlers(authSvc, logger)
	adminHandlers := handlers.NewAdminHandlers(subscriptionSvc, logger)
	healthHandlers := handlers.NewHealthHandlers(pool, store)

	authorizer := middleware.NewAuthorizer(
		middleware.RouteConfig{
			PublicPrefixes: []string{"/health", "/auth/login", "/auth/refresh", "/auth/logout"},
			AdminPrefixes:  []string{"/admin/"},
		},
		tokens,
		sessionSvc,
		subscriptionSvc,
		cfg.Auth.AdminKey,
		logger,
	)

	e := echo.New()
	e.HideBanner = true

	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.RemoveTrailingSlash())
	e.Use(authorizer.Middleware())

	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)

	auth := e.Group("/auth")
	auth.POST("/login", authHandlers.Login)
	auth.POST("/refresh", authHandlers.Refresh)
	auth.POST("/logout", authHandlers.Logout)
	auth.GET("/me", authHandlers.Me)

	admin := e.Group("/admin")
	admin.GET("/subscriptions/:tenantID", adminHandlers.GetSubscription)
	admin.PUT("/subscriptions/:tenantID", adminHandlers.UpdateSubscription)
	admin.DELETE("/subscriptions/:tenantID", adminHandlers.DeleteSubscription)

	scheduler, err := background.NewJobScheduler(accountRepo, store, cfg.Subscription.SweepInterval, cfg.Subscription.CacheTTL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create job scheduler")
	}
	scheduler.Start()

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		logger.Info().Str("addr", addr).Str("version", version).Msg("coursedesk auth server starting")
		if err := e.Start(addr); err != nil {
			logger.Info().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := scheduler.Shutdown(); err != nil {
		logger.Warn().Err(err).Msg("scheduler shutdown failed")
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
}

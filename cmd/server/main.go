package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/affiliateboard/backend/internal/config"
	"github.com/affiliateboard/backend/internal/container"
	"github.com/affiliateboard/backend/internal/database"
	"github.com/affiliateboard/backend/internal/handlers"
	"github.com/affiliateboard/backend/internal/logger"
	"github.com/affiliateboard/backend/internal/middleware"
)

// listCacheTTL bounds how stale a cached public listing can be
const listCacheTTL = 60 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		// The logger is not set up yet.
		_, _ = os.Stderr.WriteString("Failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Initialize(cfg.Log.Level, cfg.Log.File); err != nil {
		_, _ = os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Close() }()

	logger.Log.Info("=== Affiliate board server starting ===",
		zap.String("environment", cfg.Environment),
	)

	if err := cfg.Validate(); err != nil {
		logger.FatalWithFields("Invalid configuration", err)
	}
	if cfg.CronSecret == "" {
		logger.Log.Warn("CRON_SECRET not set - every cron request will be rejected")
	}

	ctx := context.Background()
	app, err := container.Build(ctx, cfg)
	if err != nil {
		logger.FatalWithFields("Failed to initialize dependencies", err)
	}

	if err := database.Migrate(app.DB()); err != nil {
		_ = app.Cleanup(ctx)
		logger.FatalWithFields("Failed to run migrations", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	responseCache := middleware.NewResponseCache(app.Store(), app.Metrics())
	limiter := middleware.NewRateLimiter(app.Store(), app.Metrics())
	h := handlers.NewHandlers(app.HandlerDeps(responseCache), app.HandlerOptions())

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	if cfg.Tracing.Enabled {
		r.Use(middleware.TracingMiddleware(cfg.Tracing.ServiceName)...)
	}
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware(app.Metrics()))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.BaseURL}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", handlers.VisitorHeader, "X-Request-ID"}
	r.Use(cors.New(corsConfig))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/webhooks/", "/api/upload/"})))
	r.Use(limiter.Middleware(middleware.DefaultRateLimitConfig()))

	r.GET("/metrics", middleware.CronAuth(cfg.CronSecret), gin.WrapH(app.Metrics().Handler()))

	h.Register(r, handlers.RouteMiddleware{
		Cache:      responseCache.Middleware(listCacheTTL),
		Tracking:   limiter.Middleware(middleware.TrackingRateLimitConfig()),
		Submission: limiter.Middleware(middleware.SubmissionRateLimitConfig()),
		Login:      limiter.Middleware(middleware.LoginRateLimitConfig()),
		Upload:     limiter.Middleware(middleware.UploadRateLimitConfig()),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info("Server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.FatalWithFields("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithFields("Server forced to shutdown", err)
	}
	if err := app.Cleanup(shutdownCtx); err != nil {
		logger.ErrorWithFields("Cleanup finished with errors", err)
	}

	logger.Log.Info("Server exited")
}

// Package container builds the service's dependencies once at process start and
// tears them down in reverse order at shutdown.
package container

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/affiliateboard/backend/internal/auth"
	"github.com/affiliateboard/backend/internal/cache"
	"github.com/affiliateboard/backend/internal/config"
	"github.com/affiliateboard/backend/internal/database"
	"github.com/affiliateboard/backend/internal/email"
	"github.com/affiliateboard/backend/internal/handlers"
	"github.com/affiliateboard/backend/internal/jobs"
	"github.com/affiliateboard/backend/internal/logger"
	"github.com/affiliateboard/backend/internal/metrics"
	"github.com/affiliateboard/backend/internal/payments"
	"github.com/affiliateboard/backend/internal/repository"
	"github.com/affiliateboard/backend/internal/storage"
	"github.com/affiliateboard/backend/internal/telemetry"
	"github.com/affiliateboard/backend/internal/tracking"
	"github.com/affiliateboard/backend/internal/urlcheck"
)

// Container holds the application's dependencies
type Container struct {
	cfg *config.Config

	// Core infrastructure
	db      *gorm.DB
	store   cache.Store
	metrics *metrics.Metrics

	// Domain services
	tracker *tracking.Tracker
	jobs    *jobs.Runner
	urls    *urlcheck.Checker

	// Integrations. Logos, payments and notifier stay nil when not configured.
	auth     *auth.Service
	logos    *storage.S3Uploader
	payments *payments.Service
	notifier *email.Async

	// Lifecycle hooks
	cleanupFuncs []func(context.Context) error
	mu           sync.Mutex
}

// New creates an empty container for cfg
func New(cfg *config.Config) *Container {
	return &Container{cfg: cfg}
}

// BuildCore opens the database and builds what the jobs need: metrics, tracking
// and the job runner. The CLI stops here.
func BuildCore(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := New(cfg)
	if err := c.buildCore(ctx); err != nil {
		_ = c.Cleanup(context.Background())
		return nil, err
	}
	return c, nil
}

// Build creates every dependency the HTTP server needs. On failure everything
// already built is cleaned up.
func Build(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := New(cfg)
	if err := c.buildCore(ctx); err != nil {
		_ = c.Cleanup(context.Background())
		return nil, err
	}
	if err := c.buildIntegrations(ctx); err != nil {
		_ = c.Cleanup(context.Background())
		return nil, err
	}
	if err := c.Validate(); err != nil {
		_ = c.Cleanup(context.Background())
		return nil, err
	}
	return c, nil
}

func (c *Container) buildCore(ctx context.Context) error {
	c.metrics = metrics.New()

	shutdownTracer, err := telemetry.InitTracer(ctx, c.cfg.Tracing, c.cfg.Environment)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	c.OnCleanup(shutdownTracer)

	db, err := database.Open(c.cfg.Database, !c.cfg.IsProduction())
	if err != nil {
		return err
	}
	c.db = db
	c.OnCleanup(func(context.Context) error { return database.Close(db) })

	if c.cfg.Tracing.Enabled {
		if err := db.Use(telemetry.GORMTracingPlugin()); err != nil {
			return fmt.Errorf("failed to install database tracing: %w", err)
		}
	}

	programs := repository.NewProgramRepository(db)
	events := repository.NewEventRepository(db)
	logs := repository.NewLogRepository(db)

	c.tracker = tracking.NewTracker(events, logs, c.metrics)
	c.jobs = jobs.NewRunner(programs, events, logs, c.cfg.Scoring, c.cfg.Jobs, c.metrics)
	return nil
}

func (c *Container) buildIntegrations(ctx context.Context) error {
	c.store = c.openStore(ctx)
	store := c.store
	c.OnCleanup(func(context.Context) error { return store.Close() })

	c.auth = auth.NewService(c.cfg.Admin)
	c.urls = urlcheck.NewChecker(c.cfg.URLCheck, telemetry.NewInstrumentedHTTPClient(c.cfg.URLCheck.Timeout, urlcheck.NewTransport()), c.metrics)

	if c.cfg.Storage.PublicBaseURL == "" {
		logger.Log.Warn("S3_PUBLIC_BASE_URL not set - logo uploads disabled")
	} else {
		uploader, err := storage.NewS3Uploader(ctx, c.cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 uploader: %w", err)
		}
		if err := uploader.CheckBucketAccess(ctx); err != nil {
			logger.Log.Warn("S3 bucket access check failed - uploads may fail", zap.Error(err))
		}
		c.logos = uploader
	}

	notifier, err := email.NewSESNotifier(ctx, c.cfg.Email, c.cfg.BaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize email notifier: %w", err)
	}
	if notifier == nil {
		logger.Log.Info("Admin email notifications disabled")
	} else {
		c.notifier = email.NewAsync(notifier, 0)
		async := c.notifier
		c.OnCleanup(async.Wait)
	}

	if c.cfg.Stripe.WebhookSecret == "" && c.cfg.Stripe.SecretKey == "" {
		logger.Log.Warn("Stripe not configured - checkout and webhooks disabled")
	} else {
		var gateway payments.Gateway
		// A nil *StripeGateway must not become a non-nil interface.
		if g := payments.NewStripeGateway(c.cfg.Stripe); g != nil {
			gateway = g
		}
		c.payments = payments.NewService(c.db, gateway, c.cfg.Stripe.WebhookSecret, c.cfg.BaseURL, c.metrics)
		if c.notifier != nil {
			c.payments.WithNotifier(c.notifier)
		}
	}
	return nil
}

// openStore connects to Redis when configured and falls back to process memory
func (c *Container) openStore(ctx context.Context) cache.Store {
	if c.cfg.Redis.URL == "" {
		logger.Log.Info("REDIS_URL not set - using in-memory cache")
		return cache.NewMemoryStore()
	}
	client, err := cache.NewRedisClient(ctx, c.cfg.Redis.URL)
	if err != nil {
		logger.Log.Warn("Redis unavailable - using in-memory cache", zap.Error(err))
		return cache.NewMemoryStore()
	}
	return client
}

// Config returns the configuration the container was built from
func (c *Container) Config() *config.Config { return c.cfg }

// DB returns the database connection
func (c *Container) DB() *gorm.DB { return c.db }

// Store returns the cache store
func (c *Container) Store() cache.Store { return c.store }

// Metrics returns the metrics registry
func (c *Container) Metrics() *metrics.Metrics { return c.metrics }

// Jobs returns the job runner
func (c *Container) Jobs() *jobs.Runner { return c.jobs }

// Auth returns the admin authenticator
func (c *Container) Auth() *auth.Service { return c.auth }

// HandlerDeps assembles the collaborators for the HTTP handlers. cache is the
// response cache to invalidate after writes.
func (c *Container) HandlerDeps(cache handlers.CacheInvalidator) handlers.Deps {
	deps := handlers.Deps{
		DB:       c.db,
		Tracker:  c.tracker,
		Jobs:     c.jobs,
		URLs:     c.urls,
		Payments: c.payments,
		Auth:     c.auth,
		Cache:    cache,
		Metrics:  c.metrics,
	}
	// Interface fields stay nil rather than holding typed nil pointers.
	if c.logos != nil {
		deps.Logos = c.logos
	}
	if c.notifier != nil {
		deps.Notifier = c.notifier
	}
	return deps
}

// HandlerOptions returns the request-independent handler settings
func (c *Container) HandlerOptions() handlers.Options {
	return handlers.Options{
		BaseURL:      c.cfg.BaseURL,
		CookieName:   c.cfg.Admin.CookieName,
		SecureCookie: c.cfg.Admin.SecureCookie,
		VisitorSalt:  c.cfg.VisitorSalt,
		CronSecret:   c.cfg.CronSecret,
	}
}

// OnCleanup registers a function to run at shutdown. Functions run in LIFO order.
func (c *Container) OnCleanup(fn func(context.Context) error) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
	return c
}

// Cleanup runs the registered cleanup functions in reverse order. Every function
// runs; their errors are joined.
func (c *Container) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	funcs := c.cleanupFuncs
	c.cleanupFuncs = nil
	c.mu.Unlock()

	var errs []error
	for i := len(funcs) - 1; i >= 0; i-- {
		if err := funcs[i](ctx); err != nil {
			logger.Log.Error("Cleanup function failed", zap.Int("index", i), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Validate checks that the dependencies every request path needs are present
func (c *Container) Validate() error {
	var missing []string
	if c.db == nil {
		missing = append(missing, "database")
	}
	if c.store == nil {
		missing = append(missing, "cache store")
	}
	if c.auth == nil {
		missing = append(missing, "admin auth")
	}
	if c.urls == nil {
		missing = append(missing, "url checker")
	}
	if c.tracker == nil {
		missing = append(missing, "tracker")
	}
	if c.jobs == nil {
		missing = append(missing, "job runner")
	}
	if len(missing) > 0 {
		return NewInitializationError("missing required dependencies", missing)
	}
	return nil
}

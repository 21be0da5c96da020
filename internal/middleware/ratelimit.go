package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/affiliateboard/backend/internal/cache"
	"github.com/affiliateboard/backend/internal/errors"
	"github.com/affiliateboard/backend/internal/logger"
	"github.com/affiliateboard/backend/internal/metrics"
	"github.com/affiliateboard/backend/internal/util"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	// Name keys the counters and labels the metric
	Name string
	// Requests per window
	Limit int
	// Window duration
	Window time.Duration
	// KeyFunc picks the client key; defaults to the client IP
	KeyFunc func(c *gin.Context) string
}

// DefaultRateLimitConfig returns the general API limit
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Name: "api", Limit: 300, Window: time.Minute}
}

// TrackingRateLimitConfig returns limits for view/click/pageview beacons
func TrackingRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Name: "track", Limit: 120, Window: time.Minute}
}

// SubmissionRateLimitConfig returns limits for submissions, reports and checkout
func SubmissionRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Name: "submit", Limit: 10, Window: time.Hour}
}

// LoginRateLimitConfig returns stricter limits for the admin login
func LoginRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Name: "login", Limit: 10, Window: 15 * time.Minute}
}

// UploadRateLimitConfig returns limits for upload endpoints
func UploadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Name: "upload", Limit: 20, Window: time.Hour}
}

// RateLimiter counts requests per client in fixed windows on a cache.Store, so the
// same code serves the in-memory and the Redis backend.
type RateLimiter struct {
	store   cache.Store
	metrics *metrics.Metrics
}

// NewRateLimiter creates a limiter over store; m may be nil
func NewRateLimiter(store cache.Store, m *metrics.Metrics) *RateLimiter {
	return &RateLimiter{store: store, metrics: m}
}

// Middleware returns the gin handler enforcing config. A store failure rejects
// the request with 503 rather than letting it through.
func (rl *RateLimiter) Middleware(config RateLimitConfig) gin.HandlerFunc {
	keyFunc := config.KeyFunc
	if keyFunc == nil {
		keyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	if config.Name == "" {
		config.Name = "api"
	}
	limit := strconv.Itoa(config.Limit)

	return func(c *gin.Context) {
		clientKey := keyFunc(c)
		key := fmt.Sprintf("rate_limit:%s:%s", config.Name, clientKey)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		count, err := rl.store.IncrWindow(ctx, key, config.Window)
		cancel()
		if err != nil {
			logger.Log.Error("Rate limit check failed - rejecting request",
				zap.String("limiter", config.Name),
				zap.String("client", clientKey),
				zap.Error(err),
			)
			util.RespondWithAPIError(c, errors.ServiceUnavailable("rate limiter"))
			return
		}

		remaining := int64(config.Limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", limit)
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(config.Limit) {
			rl.metrics.RecordRateLimited(config.Name)
			logger.Log.Warn("Rate limit exceeded",
				logger.WithIP(c.ClientIP()),
				zap.String("limiter", config.Name),
				zap.Int("max_requests", config.Limit),
				zap.Int64("current_requests", count),
			)
			c.Header("Retry-After", strconv.Itoa(int(config.Window.Seconds())))
			util.RespondWithAPIError(c, errors.RateLimited("rate limit exceeded"))
			return
		}

		c.Next()
	}
}

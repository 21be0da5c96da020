package middleware

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/affiliateboard/backend/internal/cache"
	"github.com/affiliateboard/backend/internal/logger"
	"github.com/affiliateboard/backend/internal/metrics"
)

// ResponseCachePrefix prefixes every cached response key
const ResponseCachePrefix = "response:"

// cacheTTLKey holds a handler-requested upper bound on the cache lifetime
const cacheTTLKey = "response_cache_ttl"

// cachedResponse is what a cache entry holds
type cachedResponse struct {
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// CapCacheTTL lowers the cache lifetime of the current response to ttl. Handlers
// call it before writing when the body goes stale at a known time. A ttl of zero
// or less keeps the response out of the cache.
func CapCacheTTL(c *gin.Context, ttl time.Duration) {
	if current, ok := c.Get(cacheTTLKey); ok && current.(time.Duration) <= ttl {
		return
	}
	c.Set(cacheTTLKey, ttl)
	if ttl <= 0 {
		c.Header("Cache-Control", "no-store")
		return
	}
	c.Header("Cache-Control", cacheControlFor(ttl))
}

func cacheControlFor(ttl time.Duration) string {
	return fmt.Sprintf("public, max-age=%d", int(ttl.Seconds()))
}

// ResponseCache caches public GET responses in a cache.Store
type ResponseCache struct {
	store   cache.Store
	metrics *metrics.Metrics
}

// NewResponseCache creates a response cache over store; m may be nil
func NewResponseCache(store cache.Store, m *metrics.Metrics) *ResponseCache {
	return &ResponseCache{store: store, metrics: m}
}

// Middleware caches successful GET responses with the given TTL
// Only caches 200 responses
// Adds X-Cache: HIT/MISS header for debugging
// Cache key is: response:{path}?{query_string}
// The content type is stored with the body and replayed on a hit
func (rc *ResponseCache) Middleware(ttl time.Duration) gin.HandlerFunc {
	cacheControl := cacheControlFor(ttl)

	return func(c *gin.Context) {
		if rc == nil || rc.store == nil || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		cacheKey := generateCacheKey(c.Request.URL.Path, c.Request.URL.RawQuery)
		ctx := c.Request.Context()

		cachedData, found, err := rc.store.Get(ctx, cacheKey)
		if err != nil {
			logger.Log.Debug("Cache read failed", zap.String("key", cacheKey), zap.Error(err))
		}
		if found {
			var entry cachedResponse
			err := json.Unmarshal([]byte(cachedData), &entry)
			if err != nil || entry.ContentType == "" {
				logger.Log.Debug("Ignoring unreadable cache entry", zap.String("key", cacheKey), zap.Error(err))
			} else {
				rc.metrics.RecordCache("response_cache", true)
				c.Header("X-Cache", "HIT")
				c.Header("Cache-Control", cacheControl)
				c.Data(http.StatusOK, entry.ContentType, entry.Body)
				c.Abort()
				return
			}
		}
		rc.metrics.RecordCache("response_cache", false)

		// Cache miss - capture response and cache it
		writer := &cachedResponseWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = writer
		c.Header("X-Cache", "MISS")
		c.Header("Cache-Control", cacheControl)

		c.Next()

		if writer.Status() != http.StatusOK || writer.body.Len() == 0 {
			return
		}
		entryTTL := ttl
		if capped, ok := c.Get(cacheTTLKey); ok && capped.(time.Duration) < entryTTL {
			entryTTL = capped.(time.Duration)
		}
		// Whole seconds only. A zero expiry would mean no expiry in Redis.
		entryTTL = entryTTL.Truncate(time.Second)
		if entryTTL <= 0 {
			return
		}

		contentType := writer.Header().Get("Content-Type")
		if contentType == "" {
			contentType = http.DetectContentType(writer.body.Bytes())
		}
		encoded, err := json.Marshal(cachedResponse{
			ContentType: contentType,
			Body:        writer.body.Bytes(),
		})
		if err != nil {
			logger.Log.Debug("Failed to encode cache entry", zap.String("key", cacheKey), zap.Error(err))
			return
		}
		if err := rc.store.SetEx(ctx, cacheKey, string(encoded), entryTTL); err != nil {
			logger.Log.Debug("Failed to write response to cache",
				zap.String("key", cacheKey),
				zap.Error(err),
			)
		}
	}
}

// Invalidate drops every cached response. Called after writes that change
// public listings.
func (rc *ResponseCache) Invalidate(ctx context.Context) {
	if rc == nil || rc.store == nil {
		return
	}
	if err := rc.store.DeletePrefix(ctx, ResponseCachePrefix); err != nil {
		logger.Log.Warn("Failed to invalidate response cache", zap.Error(err))
	}
}

// generateCacheKey creates a cache key from request path and query
func generateCacheKey(path, query string) string {
	if query == "" {
		return ResponseCachePrefix + path
	}
	return ResponseCachePrefix + path + "?" + query
}

// cachedResponseWriter intercepts response writes to capture the response body
type cachedResponseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

// Write writes data to the response while capturing it for caching
func (w *cachedResponseWriter) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

// WriteString keeps c.String responses cacheable too
func (w *cachedResponseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

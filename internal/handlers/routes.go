package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/affiliateboard/backend/internal/middleware"
)

// RouteMiddleware are the per-route limiters and the response cache. Nil entries
// are skipped.
type RouteMiddleware struct {
	Cache      gin.HandlerFunc
	Tracking   gin.HandlerFunc
	Submission gin.HandlerFunc
	Login      gin.HandlerFunc
	Upload     gin.HandlerFunc
}

func (m RouteMiddleware) or(handler gin.HandlerFunc) gin.HandlerFunc {
	if handler == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return handler
}

// Register mounts every route on r. The admin gate is installed on the engine so
// it also covers unmatched /admin pages.
func (h *Handlers) Register(r *gin.Engine, mw RouteMiddleware) {
	cache := mw.or(mw.Cache)
	tracking := mw.or(mw.Tracking)
	submission := mw.or(mw.Submission)
	login := mw.or(mw.Login)
	upload := mw.or(mw.Upload)

	r.Use(middleware.AdminGate(h.auth, h.opts.CookieName))

	r.GET("/health", h.Health)
	r.GET("/robots.txt", cache, h.Robots)
	r.GET("/sitemap.xml", cache, h.Sitemap)
	r.GET("/go/:slug", tracking, h.GoToProgram)

	api := r.Group("/api")
	{
		api.GET("/programs", unlessSearch(cache), h.ListPrograms)
		api.GET("/programs/featured", cache, h.GetFeaturedPrograms)
		api.GET("/programs/check-duplicate", h.CheckDuplicate)
		api.GET("/programs/:id", cache, h.GetProgram)
		api.GET("/programs/:id/similar", cache, h.GetSimilarPrograms)
		api.POST("/programs", submission, h.CreateProgram)
		api.POST("/programs/:id/view", tracking, h.RecordView)
		api.POST("/programs/:id/click", tracking, h.RecordClick)
		api.GET("/categories", cache, h.GetCategories)

		api.POST("/track/pageview", tracking, h.RecordPageview)
		api.POST("/reports", submission, h.CreateReport)
		api.POST("/validate-url", tracking, h.ValidateURL)
		api.POST("/checkout", submission, h.CreateCheckout)
		api.POST("/webhooks/stripe", h.StripeWebhook)
		api.POST("/upload/logo", upload, h.UploadLogo)
	}

	admin := api.Group("/admin")
	{
		admin.POST("/login", login, h.AdminLogin)
		admin.POST("/logout", h.AdminLogout)
		admin.GET("/session", h.AdminSession)

		admin.GET("/programs", h.AdminListPrograms)
		admin.GET("/programs/:id", h.AdminGetProgram)
		admin.PATCH("/programs/:id", h.AdminUpdateProgram)
		admin.DELETE("/programs/:id", h.DeleteProgram)
		admin.POST("/programs/:id/approve", h.ApproveProgram)
		admin.POST("/programs/:id/reject", h.RejectProgram)
		admin.POST("/programs/:id/feature", h.FeatureProgram)
		admin.POST("/programs/:id/unfeature", h.UnfeatureProgram)

		admin.GET("/reports", h.ListReports)
		admin.PATCH("/reports/:id", h.UpdateReport)
		admin.DELETE("/reports/:id", h.DeleteReport)

		admin.GET("/analytics/summary", h.AnalyticsSummary)
		admin.GET("/analytics/traffic", h.AnalyticsTraffic)
		admin.GET("/analytics/searches", h.AnalyticsSearches)
		admin.GET("/analytics/top-programs", h.AnalyticsTopPrograms)
	}

	cron := api.Group("/cron", middleware.CronAuth(h.opts.CronSecret))
	for path, handler := range map[string]gin.HandlerFunc{
		"/cleanup":          h.CronCleanup,
		"/recompute-scores": h.CronRecomputeScores,
		"/rotate-weights":   h.CronRotateWeights,
	} {
		cron.GET(path, handler)
		cron.POST(path, handler)
	}
}

// unlessSearch skips the cache for searches so every search is logged
func unlessSearch(cache gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Query("q") != "" {
			c.Next()
			return
		}
		cache(c)
	}
}

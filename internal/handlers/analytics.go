package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/affiliateboard/backend/internal/dto"
	"github.com/affiliateboard/backend/internal/logger"
	"github.com/affiliateboard/backend/internal/models"
	"github.com/affiliateboard/backend/internal/util"
)

const (
	defaultAnalyticsDays = 7
	maxAnalyticsDays     = 90
	analyticsTopLimit    = 20
)

// analyticsWindow reads ?days= and returns it with the window start
func (h *Handlers) analyticsWindow(c *gin.Context) (int, time.Time) {
	days := util.ParseInt(c.Query("days"), defaultAnalyticsDays)
	if days < 1 {
		days = defaultAnalyticsDays
	}
	if days > maxAnalyticsDays {
		days = maxAnalyticsDays
	}
	since := h.now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -(days - 1))
	return days, since
}

// AnalyticsSummary returns the dashboard totals. Each total that fails to load
// is reported as zero.
// GET /api/admin/analytics/summary?days=
func (h *Handlers) AnalyticsSummary(c *gin.Context) {
	days, since := h.analyticsWindow(c)
	ctx := c.Request.Context()
	summary := dto.AnalyticsSummary{Days: days}

	// Failures are logged and swallowed so one slow table cannot blank the dashboard.
	var g errgroup.Group
	g.Go(func() error {
		views, visitors, err := h.logs.VisitsSince(ctx, since)
		if err != nil {
			logAnalyticsError("visits", err)
			return nil
		}
		summary.PageViews, summary.UniqueVisitors = views, visitors
		return nil
	})
	g.Go(func() error {
		counts, err := h.events.CountSince(ctx, models.DateKey(since))
		if err != nil {
			logAnalyticsError("events", err)
			return nil
		}
		summary.ProgramViews, summary.ProgramClicks = counts.Views, counts.Clicks
		return nil
	})
	g.Go(func() error {
		searches, err := h.logs.SearchCountSince(ctx, since)
		if err != nil {
			logAnalyticsError("searches", err)
			return nil
		}
		summary.Searches = searches
		return nil
	})
	g.Go(func() error {
		programs, err := h.programs.CountVisible(ctx)
		if err != nil {
			logAnalyticsError("programs", err)
			return nil
		}
		summary.Programs = programs
		return nil
	})
	g.Go(func() error {
		pending, err := h.reports.CountPending(ctx)
		if err != nil {
			logAnalyticsError("reports", err)
			return nil
		}
		summary.PendingReports = pending
		return nil
	})
	_ = g.Wait()

	c.JSON(http.StatusOK, summary)
}

// AnalyticsTraffic returns daily page views and the top paths and referrers
// GET /api/admin/analytics/traffic?days=
func (h *Handlers) AnalyticsTraffic(c *gin.Context) {
	days, since := h.analyticsWindow(c)
	traffic, err := h.logs.TrafficSince(c.Request.Context(), since, analyticsTopLimit)
	if err != nil {
		logAnalyticsError("traffic", err)
		c.JSON(http.StatusOK, dto.EmptyTrafficAnalytics(days))
		return
	}
	traffic.Days = days
	c.JSON(http.StatusOK, traffic)
}

// AnalyticsSearches returns the most common and the zero-result searches
// GET /api/admin/analytics/searches?days=
func (h *Handlers) AnalyticsSearches(c *gin.Context) {
	days, since := h.analyticsWindow(c)
	searches, err := h.logs.SearchesSince(c.Request.Context(), since, analyticsTopLimit)
	if err != nil {
		logAnalyticsError("searches", err)
		c.JSON(http.StatusOK, dto.EmptySearchAnalytics(days))
		return
	}
	searches.Days = days
	c.JSON(http.StatusOK, searches)
}

// AnalyticsTopPrograms ranks programs by views and clicks in the window
// GET /api/admin/analytics/top-programs?days=
func (h *Handlers) AnalyticsTopPrograms(c *gin.Context) {
	days, since := h.analyticsWindow(c)
	programs, err := h.events.TopPrograms(c.Request.Context(), models.DateKey(since), analyticsTopLimit)
	if err != nil {
		logAnalyticsError("top programs", err)
		c.JSON(http.StatusOK, dto.EmptyTopPrograms(days))
		return
	}
	if programs == nil {
		programs = []dto.TopProgram{}
	}
	c.JSON(http.StatusOK, dto.TopProgramsAnalytics{Days: days, Programs: programs})
}

func logAnalyticsError(query string, err error) {
	logger.Log.Warn("Analytics query failed", zap.String("query", query), zap.Error(err))
}

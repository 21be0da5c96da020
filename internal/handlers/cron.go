package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/affiliateboard/backend/internal/jobs"
	"github.com/affiliateboard/backend/internal/logger"
	"github.com/affiliateboard/backend/internal/util"
)

// CronCleanup prunes old logs and events and clears lapsed features
// GET /api/cron/cleanup
func (h *Handlers) CronCleanup(c *gin.Context) {
	result, err := h.jobs.Prune(c.Request.Context())
	h.respondJob(c, jobs.JobPrune, result, err)
}

// CronRecomputeScores rewrites every trending score
// GET /api/cron/recompute-scores
func (h *Handlers) CronRecomputeScores(c *gin.Context) {
	result, err := h.jobs.Recompute(c.Request.Context())
	h.respondJob(c, jobs.JobRecompute, result, err)
}

// CronRotateWeights reshuffles the ranking tiebreaker
// GET /api/cron/rotate-weights
func (h *Handlers) CronRotateWeights(c *gin.Context) {
	result, err := h.jobs.Rotate(c.Request.Context())
	h.respondJob(c, jobs.JobRotate, result, err)
}

// respondJob answers with the job counts. A failed run still reports what it did.
func (h *Handlers) respondJob(c *gin.Context, job string, result any, err error) {
	if err != nil {
		logger.Log.Error("Cron job failed",
			logger.WithJob(job),
			logger.WithRequestID(util.GetRequestID(c)),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"job":    job,
			"ok":     false,
			"error":  "job failed",
			"result": result,
		})
		return
	}

	// Rankings changed; cached listings are stale.
	h.invalidate(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"job": job, "ok": true, "result": result})
}

package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/affiliateboard/backend/internal/dto"
	"github.com/affiliateboard/backend/internal/logger"
	"github.com/affiliateboard/backend/internal/repository"
	"github.com/affiliateboard/backend/internal/tracking"
	"github.com/affiliateboard/backend/internal/util"
)

// Stat write statuses
const (
	trackStatusOK     = "ok"
	trackStatusFailed = "failed"
)

type recordFunc func(c *gin.Context, programID string, visit tracking.Visit) (tracking.Result, error)

// RecordView counts a program page view
// POST /api/programs/:id/view
func (h *Handlers) RecordView(c *gin.Context) {
	h.track(c, func(c *gin.Context, id string, v tracking.Visit) (tracking.Result, error) {
		return h.tracker.RecordView(c.Request.Context(), id, v)
	})
}

// RecordClick counts an outbound affiliate click
// POST /api/programs/:id/click
func (h *Handlers) RecordClick(c *gin.Context) {
	h.track(c, func(c *gin.Context, id string, v tracking.Visit) (tracking.Result, error) {
		return h.tracker.RecordClick(c.Request.Context(), id, v)
	})
}

// track runs a strict stat write. A failed write is reported as
// {"status":"failed"} with 200 so beacons never see a 500.
func (h *Handlers) track(c *gin.Context, record recordFunc) {
	var req dto.TrackRequest
	if c.Request.ContentLength != 0 && c.Request.Body != nil && c.Request.Body != http.NoBody {
		if apiErr := util.DecodeStrictJSON(c.Request.Body, &req); apiErr != nil {
			util.RespondWithAPIError(c, apiErr)
			return
		}
	}

	programID := c.Param("id")
	visitorID := h.visitorID(c, req.VisitorID)
	result, err := record(c, programID, h.visit(c, visitorID))
	if err != nil {
		if stderrors.Is(err, repository.ErrProgramNotFound) {
			util.RespondNotFound(c, "program")
			return
		}
		logger.Log.Error("Failed to record program event",
			logger.WithProgramID(programID),
			logger.WithVisitorID(visitorID),
			zap.Error(err),
		)
		c.JSON(http.StatusOK, dto.TrackResponse{Status: trackStatusFailed})
		return
	}

	c.JSON(http.StatusOK, dto.TrackResponse{Status: trackStatusOK, Recorded: result.Recorded})
}

// GoToProgram counts a click and redirects to the program's affiliate URL
// GET /go/:slug
func (h *Handlers) GoToProgram(c *gin.Context) {
	program, err := h.programs.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil || !program.IsVisible() {
		if err != nil && !stderrors.Is(err, repository.ErrProgramNotFound) {
			respondRepoError(c, err, "program", "load")
			return
		}
		util.RespondNotFound(c, "program")
		return
	}

	visitorID := h.visitorID(c, "")
	// The redirect happens whether or not the click was counted.
	if _, err := h.tracker.RecordClick(c.Request.Context(), program.ID, h.visit(c, visitorID)); err != nil {
		logger.Log.Warn("Failed to record redirect click", logger.WithProgramID(program.ID), zap.Error(err))
	}

	c.Header("Cache-Control", "no-store")
	c.Redirect(http.StatusFound, program.AffiliateURL)
}

// RecordPageview stores a raw page visit. It always answers ok.
// POST /api/track/pageview
func (h *Handlers) RecordPageview(c *gin.Context) {
	var req dto.PageviewRequest
	if !util.BindStrictJSON(c, &req) {
		return
	}

	visit := h.visit(c, h.visitorID(c, req.VisitorID))
	visit.Path = req.Path
	if req.Referrer != "" {
		visit.Referrer = req.Referrer
	}
	visit.ProgramID = req.ProgramID
	h.tracker.RecordPageview(c.Request.Context(), visit)

	util.RespondStatus(c, trackStatusOK)
}

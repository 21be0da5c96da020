package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/affiliateboard/backend/internal/dto"
	"github.com/affiliateboard/backend/internal/logger"
	"github.com/affiliateboard/backend/internal/urlcheck"
	"github.com/affiliateboard/backend/internal/util"
)

// ValidateURL checks a URL's format, policy and reachability for a form field.
// A rejected URL is a 200 with valid=false and the reason.
// POST /api/validate-url
func (h *Handlers) ValidateURL(c *gin.Context) {
	var req dto.ValidateURLRequest
	if !util.BindStrictJSON(c, &req) {
		return
	}

	normalized, err := h.urls.Check(c.Request.Context(), req.URL)
	if err != nil {
		var rejection *urlcheck.Rejection
		if !stderrors.As(err, &rejection) {
			logger.Log.Warn("URL validation failed", zap.Error(err))
			c.JSON(http.StatusOK, dto.ValidateURLResponse{Valid: false, Reason: "URL could not be checked"})
			return
		}
		c.JSON(http.StatusOK, dto.ValidateURLResponse{Valid: false, Reason: rejection.Reason})
		return
	}

	c.JSON(http.StatusOK, dto.ValidateURLResponse{Valid: true, Normalized: normalized})
}

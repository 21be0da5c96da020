package handlers

import (
	stderrors "errors"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/affiliateboard/backend/internal/dto"
	"github.com/affiliateboard/backend/internal/errors"
	"github.com/affiliateboard/backend/internal/logger"
	"github.com/affiliateboard/backend/internal/models"
	"github.com/affiliateboard/backend/internal/storage"
	"github.com/affiliateboard/backend/internal/util"
)

// multipartOverhead is headroom for the form boundary and fields
const multipartOverhead = 64 << 10

// UploadLogo stores a logo image and returns its public URL. With programId the
// logo replaces that program's logo (admin only) and the old one is deleted
// best-effort.
// POST /api/upload/logo (multipart: file, programId)
func (h *Handlers) UploadLogo(c *gin.Context) {
	if h.logos == nil {
		util.RespondWithAPIError(c, errors.ServiceUnavailable("storage"))
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, storage.MaxLogoSize+multipartOverhead)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
			h.rejectUpload(c, "too_large", errors.PayloadTooLarge("5MB"))
			return
		}
		h.rejectUpload(c, "bad_request", errors.BadRequest("file is required"))
		return
	}
	if fileHeader.Size > storage.MaxLogoSize {
		h.rejectUpload(c, "too_large", errors.PayloadTooLarge("5MB"))
		return
	}

	var program *models.Program
	programID := strings.TrimSpace(c.PostForm("programId"))
	if programID != "" {
		if !h.requireAdmin(c) {
			return
		}
		p, err := h.programs.GetByID(c.Request.Context(), programID)
		if err != nil {
			respondRepoError(c, err, "program", "load")
			return
		}
		program = p
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.rejectUpload(c, "bad_request", errors.BadRequest("failed to read file"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, storage.MaxLogoSize+1))
	if err != nil {
		h.rejectUpload(c, "bad_request", errors.BadRequest("failed to read file"))
		return
	}

	result, err := h.logos.UploadLogo(c.Request.Context(), data, fileHeader.Filename)
	switch {
	case stderrors.Is(err, storage.ErrFileTooLarge):
		h.rejectUpload(c, "too_large", errors.PayloadTooLarge("5MB"))
		return
	case stderrors.Is(err, storage.ErrUnsupportedType):
		h.rejectUpload(c, "unsupported", errors.UnsupportedMediaType(mimetype.Detect(data).String()))
		return
	case stderrors.Is(err, storage.ErrEmptyFile):
		h.rejectUpload(c, "bad_request", errors.BadRequest("file is empty"))
		return
	case err != nil:
		h.metrics.RecordUpload("error")
		logger.Log.Error("Logo upload failed", zap.String("filename", fileHeader.Filename), zap.Error(err))
		util.RespondInternalError(c, "failed to store logo")
		return
	}
	h.metrics.RecordUpload("success")

	if program != nil {
		if _, err := h.programs.Update(c.Request.Context(), program.ID, map[string]any{"logo_url": result.URL}); err != nil {
			// The new object is orphaned; remove it rather than leak it.
			h.deleteLogo(c, result.URL)
			respondRepoError(c, err, "program", "update")
			return
		}
		h.invalidate(c.Request.Context())
		if program.LogoURL != "" && program.LogoURL != result.URL {
			h.deleteLogo(c, program.LogoURL)
		}
	}

	logger.Log.Info("Logo uploaded",
		zap.String("key", result.Key),
		zap.Int64("size", result.Size),
		zap.String("content_type", result.ContentType),
	)
	c.JSON(http.StatusCreated, dto.UploadResponse{URL: result.URL, Key: result.Key, Size: result.Size})
}

func (h *Handlers) rejectUpload(c *gin.Context, status string, apiErr *errors.APIError) {
	h.metrics.RecordUpload(status)
	util.RespondWithAPIError(c, apiErr)
}

// deleteLogo removes a hosted logo. Failures are logged; external URLs are skipped.
func (h *Handlers) deleteLogo(c *gin.Context, publicURL string) {
	if h.logos == nil || publicURL == "" {
		return
	}
	err := h.logos.DeleteByURL(c.Request.Context(), publicURL)
	switch {
	case err == nil, stderrors.Is(err, storage.ErrForeignURL):
	default:
		logger.Log.Warn("Failed to delete old logo", zap.String("url", publicURL), zap.Error(err))
	}
}

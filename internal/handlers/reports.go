package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/affiliateboard/backend/internal/dto"
	"github.com/affiliateboard/backend/internal/errors"
	"github.com/affiliateboard/backend/internal/logger"
	"github.com/affiliateboard/backend/internal/models"
	"github.com/affiliateboard/backend/internal/repository"
	"github.com/affiliateboard/backend/internal/util"
)

// CreateReport files a public edit suggestion or problem report
// POST /api/reports
func (h *Handlers) CreateReport(c *gin.Context) {
	var req dto.CreateReportRequest
	if !util.BindStrictJSON(c, &req) {
		return
	}

	report := &models.ProgramReport{
		ProgramID:     req.ProgramID,
		Type:          req.Type,
		Message:       strings.TrimSpace(req.Message),
		ReporterEmail: strings.TrimSpace(req.ReporterEmail),
		Status:        models.ReportStatusPending,
	}

	var changes *dto.ProgramChanges
	if req.Type == models.ReportTypeEdit {
		changes = req.SuggestedChanges
		if len(req.SuggestedChanges.Columns()) == 0 {
			util.RespondValidationError(c, "suggested_changes", "an edit must change at least one field")
			return
		}
		normalized, apiErr := h.checkURLs(c.Request.Context(), req.SuggestedChanges.URLs())
		if apiErr != nil {
			util.RespondWithAPIError(c, apiErr)
			return
		}
		applyNormalized(req.SuggestedChanges, normalized)

		encoded, err := json.Marshal(req.SuggestedChanges)
		if err != nil {
			util.RespondInternalError(c, "failed to encode suggested changes")
			return
		}
		report.SuggestedChanges = string(encoded)
	}

	if err := h.reports.Create(c.Request.Context(), report); err != nil {
		respondRepoError(c, err, "report", "create")
		return
	}

	h.notifyReport(c.Request.Context(), report)

	logger.Log.Info("Report filed",
		zap.String("report_id", report.ID),
		logger.WithProgramID(report.ProgramID),
		zap.String("type", report.Type),
	)
	c.JSON(http.StatusCreated, dto.ToReportResponse(report, changes))
}

// ListReports returns moderation tickets, newest first
// GET /api/admin/reports?status=&type=&limit=&offset=
func (h *Handlers) ListReports(c *gin.Context) {
	page := util.ParsePagination(c.Query("limit"), c.Query("offset"), 50, maxPageSize)
	reports, total, err := h.reports.List(c.Request.Context(), repository.ReportFilter{
		Status: strings.ToUpper(c.Query("status")),
		Type:   strings.ToUpper(c.Query("type")),
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		respondRepoError(c, err, "reports", "list")
		return
	}

	out := make([]dto.ReportResponse, 0, len(reports))
	for i := range reports {
		out = append(out, dto.ToReportResponse(&reports[i], decodeChanges(&reports[i])))
	}
	c.JSON(http.StatusOK, gin.H{
		"reports": out,
		"total":   total,
		"limit":   page.Limit,
		"offset":  page.Offset,
	})
}

// UpdateReport moderates a ticket. With apply_changes an EDIT ticket's
// suggestion is written to its program and the ticket resolved, atomically.
// PATCH /api/admin/reports/:id
func (h *Handlers) UpdateReport(c *gin.Context) {
	var req dto.UpdateReportRequest
	if !util.BindStrictJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	report, err := h.reports.Get(ctx, c.Param("id"))
	if err != nil {
		respondRepoError(c, err, "report", "load")
		return
	}

	columns := map[string]any{}
	status := report.Status
	if req.Status != nil {
		status = *req.Status
	}

	var changes *dto.ProgramChanges
	if req.ApplyChanges {
		changes = decodeChanges(report)
		if report.Type != models.ReportTypeEdit || changes == nil {
			util.RespondBadRequest(c, "report has no suggested changes to apply")
			return
		}
		if req.Status == nil {
			status = models.ReportStatusResolved
		}
		if status != models.ReportStatusResolved {
			util.RespondBadRequest(c, "applied reports must be resolved")
			return
		}
	}

	if status != report.Status {
		columns["status"] = status
		if status == models.ReportStatusPending {
			columns["resolved_at"] = nil
		} else {
			columns["resolved_at"] = h.now().UTC()
		}
	}
	if req.AdminNote != nil {
		columns["admin_note"] = strings.TrimSpace(*req.AdminNote)
	}

	var programColumns map[string]any
	if changes != nil {
		var apiErr *errors.APIError
		programColumns, apiErr = h.programChangeColumns(c, report.ProgramID, changes)
		if apiErr != nil {
			util.RespondWithAPIError(c, apiErr)
			return
		}
	}

	var updated *models.ProgramReport
	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(programColumns) > 0 {
			if _, err := repository.NewProgramRepository(tx).Update(ctx, report.ProgramID, programColumns); err != nil {
				return err
			}
		}
		var err error
		updated, err = repository.NewReportRepository(tx).Update(ctx, report.ID, columns)
		return err
	})
	if err != nil {
		respondRepoError(c, err, "report", "update")
		return
	}
	if len(programColumns) > 0 {
		h.invalidate(ctx)
	}

	logger.Log.Info("Report moderated",
		zap.String("report_id", report.ID),
		zap.String("status", updated.Status),
		zap.Bool("applied", len(programColumns) > 0),
	)
	c.JSON(http.StatusOK, dto.ToReportResponse(updated, decodeChanges(updated)))
}

// DeleteReport removes a ticket
// DELETE /api/admin/reports/:id
func (h *Handlers) DeleteReport(c *gin.Context) {
	if err := h.reports.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondRepoError(c, err, "report", "delete")
		return
	}
	c.Status(http.StatusNoContent)
}

// programChangeColumns checks suggested or admin changes against URL policy and
// uniqueness and returns the program columns to write.
func (h *Handlers) programChangeColumns(c *gin.Context, programID string, changes *dto.ProgramChanges) (map[string]any, *errors.APIError) {
	normalized, apiErr := h.checkURLs(c.Request.Context(), changes.URLs())
	if apiErr != nil {
		return nil, apiErr
	}
	applyNormalized(changes, normalized)

	query := repository.DuplicateQuery{ExcludeID: programID}
	if changes.Name != nil {
		query.Name = *changes.Name
	}
	if changes.WebsiteURL != nil {
		query.WebsiteURL = *changes.WebsiteURL
	}
	if changes.AffiliateURL != nil {
		query.AffiliateURL = *changes.AffiliateURL
	}
	if query.Name != "" || query.WebsiteURL != "" || query.AffiliateURL != "" {
		found, err := h.programs.FindDuplicates(c.Request.Context(), query)
		if err != nil {
			logger.Log.Error("Duplicate check failed", zap.Error(err))
			return nil, errors.InternalError("failed to check for duplicates")
		}
		if len(found) > 0 {
			return nil, duplicateError(found)
		}
	}
	return changes.Columns(), nil
}

// applyNormalized writes checked URLs back into changes
func applyNormalized(changes *dto.ProgramChanges, normalized map[string]string) {
	if v, ok := normalized["website_url"]; ok {
		changes.WebsiteURL = &v
	}
	if v, ok := normalized["affiliate_url"]; ok {
		changes.AffiliateURL = &v
	}
}

// decodeChanges parses a report's stored suggestion. Undecodable suggestions are
// logged and treated as absent.
func decodeChanges(report *models.ProgramReport) *dto.ProgramChanges {
	if report.SuggestedChanges == "" {
		return nil
	}
	var changes dto.ProgramChanges
	if err := json.Unmarshal([]byte(report.SuggestedChanges), &changes); err != nil {
		logger.Log.Warn("Stored suggested changes are not valid JSON",
			zap.String("report_id", report.ID),
			zap.Error(err),
		)
		return nil
	}
	return &changes
}

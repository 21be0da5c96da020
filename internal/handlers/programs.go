package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/affiliateboard/backend/internal/dto"
	"github.com/affiliateboard/backend/internal/errors"
	"github.com/affiliateboard/backend/internal/logger"
	"github.com/affiliateboard/backend/internal/middleware"
	"github.com/affiliateboard/backend/internal/models"
	"github.com/affiliateboard/backend/internal/repository"
	"github.com/affiliateboard/backend/internal/util"
)

const (
	defaultPageSize = 24
	maxPageSize     = 100
	featuredLimit   = 12
	similarLimit    = 6
)

// ListPrograms returns the ranked public listing
// GET /api/programs?q=&category=&tag=&sort=trending|newest|name&limit=&offset=
func (h *Handlers) ListPrograms(c *gin.Context) {
	page := util.ParsePagination(c.Query("limit"), c.Query("offset"), defaultPageSize, maxPageSize)
	query := strings.TrimSpace(c.Query("q"))

	category := c.Query("category")
	if category != "" && !models.IsValidCategory(category) {
		util.RespondValidationError(c, "category", "unknown category")
		return
	}

	now := h.now()
	programs, total, err := h.programs.List(c.Request.Context(), repository.ListOptions{
		Category: category,
		Tag:      c.Query("tag"),
		Query:    query,
		Sort:     c.Query("sort"),
		Limit:    page.Limit,
		Offset:   page.Offset,
		Now:      now,
	})
	if err != nil {
		respondRepoError(c, err, "programs", "list")
		return
	}

	// Only the first page of a search counts as a search.
	if query != "" && page.Offset == 0 {
		h.tracker.RecordSearch(c.Request.Context(), query, int(total), h.visitorID(c, ""))
	}

	capAtFeatureExpiry(c, now, programs)
	c.JSON(http.StatusOK, dto.ProgramListResponse{
		Programs: dto.ToProgramResponses(programs, now),
		Total:    total,
		Limit:    page.Limit,
		Offset:   page.Offset,
	})
}

// GetFeaturedPrograms returns programs whose feature is active right now
// GET /api/programs/featured
func (h *Handlers) GetFeaturedPrograms(c *gin.Context) {
	now := h.now()
	programs, err := h.programs.Featured(c.Request.Context(), now, featuredLimit)
	if err != nil {
		respondRepoError(c, err, "programs", "load featured")
		return
	}
	capAtFeatureExpiry(c, now, programs)
	c.JSON(http.StatusOK, gin.H{"programs": dto.ToProgramResponses(programs, now)})
}

// GetCategories returns every category with its program count
// GET /api/categories
func (h *Handlers) GetCategories(c *gin.Context) {
	categories, err := h.programs.Categories(c.Request.Context())
	if err != nil {
		respondRepoError(c, err, "categories", "load")
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// GetProgram returns a visible program by id or slug
// GET /api/programs/:id
func (h *Handlers) GetProgram(c *gin.Context) {
	program, ok := h.loadVisibleProgram(c)
	if !ok {
		return
	}
	now := h.now()
	capAtFeatureExpiry(c, now, []models.Program{*program})
	c.JSON(http.StatusOK, dto.ToProgramResponse(program, now))
}

// GetSimilarPrograms returns programs in the same category, falling back to trending
// GET /api/programs/:id/similar
func (h *Handlers) GetSimilarPrograms(c *gin.Context) {
	program, ok := h.loadVisibleProgram(c)
	if !ok {
		return
	}
	now := h.now()
	similar, err := h.programs.Similar(c.Request.Context(), program, now, similarLimit)
	if err != nil {
		respondRepoError(c, err, "programs", "load similar")
		return
	}
	capAtFeatureExpiry(c, now, similar)
	c.JSON(http.StatusOK, gin.H{"programs": dto.ToProgramResponses(similar, now)})
}

// CreateProgram accepts a public submission. URLs are normalized and checked,
// duplicates are refused, and the program starts in review.
// POST /api/programs
func (h *Handlers) CreateProgram(c *gin.Context) {
	var req dto.CreateProgramRequest
	if !util.BindStrictJSON(c, &req) {
		return
	}

	program, apiErr := h.prepareSubmission(c, &req)
	if apiErr != nil {
		util.RespondWithAPIError(c, apiErr)
		return
	}

	if err := h.programs.Create(c.Request.Context(), program); err != nil {
		respondRepoError(c, err, "program", "create")
		return
	}
	h.invalidate(c.Request.Context())
	h.notifySubmission(c.Request.Context(), program)

	logger.Log.Info("Program submitted",
		logger.WithProgramID(program.ID),
		zap.String("slug", program.Slug),
		logger.WithIP(c.ClientIP()),
	)
	c.JSON(http.StatusCreated, dto.ToProgramResponse(program, h.now()))
}

// prepareSubmission checks a submission's URLs and uniqueness and returns the
// unsaved program with normalized URLs.
func (h *Handlers) prepareSubmission(c *gin.Context, req *dto.CreateProgramRequest) (*models.Program, *errors.APIError) {
	normalized, apiErr := h.checkURLs(c.Request.Context(), submissionURLs(req))
	if apiErr != nil {
		return nil, apiErr
	}

	program := req.ToModel()
	program.WebsiteURL = normalized["website_url"]
	program.AffiliateURL = normalized["affiliate_url"]
	program.Status = models.ProgramStatusPending

	found, err := h.programs.FindDuplicates(c.Request.Context(), repository.DuplicateQuery{
		Name:         program.Name,
		WebsiteURL:   program.WebsiteURL,
		AffiliateURL: program.AffiliateURL,
	})
	if err != nil {
		logger.Log.Error("Duplicate check failed", zap.Error(err))
		return nil, errors.InternalError("failed to check for duplicates")
	}
	if len(found) > 0 {
		return nil, duplicateError(found)
	}
	return program, nil
}

// CheckDuplicate reports which submission fields another program already uses
// GET /api/programs/check-duplicate?name=&website_url=&affiliate_url=
func (h *Handlers) CheckDuplicate(c *gin.Context) {
	query := repository.DuplicateQuery{
		Name:      strings.TrimSpace(c.Query("name")),
		ExcludeID: c.Query("exclude_id"),
	}
	// Unparseable URLs cannot match a stored (normalized) URL.
	if raw := c.Query("website_url"); raw != "" {
		if u, err := urlParse(raw); err == nil {
			query.WebsiteURL = u
		}
	}
	if raw := c.Query("affiliate_url"); raw != "" {
		if u, err := urlParse(raw); err == nil {
			query.AffiliateURL = u
		}
	}
	if query.Name == "" && query.WebsiteURL == "" && query.AffiliateURL == "" {
		c.JSON(http.StatusOK, dto.DuplicateCheckResponse{Duplicate: false})
		return
	}

	found, err := h.programs.FindDuplicates(c.Request.Context(), query)
	if err != nil {
		respondRepoError(c, err, "programs", "check")
		return
	}
	c.JSON(http.StatusOK, dto.DuplicateCheckResponse{
		Duplicate: len(found) > 0,
		Fields:    duplicateFields(found),
	})
}

// capAtFeatureExpiry keeps a cached response from outliving the first feature
// that lapses in it, since featured state and order are rendered at read time.
func capAtFeatureExpiry(c *gin.Context, now time.Time, programs []models.Program) {
	var earliest *time.Time
	for i := range programs {
		p := &programs[i]
		if !p.FeatureActive(now) {
			continue
		}
		if earliest == nil || p.FeaturedExpiresAt.Before(*earliest) {
			earliest = p.FeaturedExpiresAt
		}
	}
	if earliest != nil {
		middleware.CapCacheTTL(c, earliest.Sub(now))
	}
}

func (h *Handlers) loadVisibleProgram(c *gin.Context) (*models.Program, bool) {
	program, err := h.programs.GetByIDOrSlug(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondRepoError(c, err, "program", "load")
		return nil, false
	}
	if !program.IsVisible() {
		util.RespondNotFound(c, "program")
		return nil, false
	}
	return program, true
}

// loadProgram loads any program for the admin API
func (h *Handlers) loadProgram(c *gin.Context) (*models.Program, bool) {
	program, err := h.programs.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondRepoError(c, err, "program", "load")
		return nil, false
	}
	return program, true
}

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

// AdminLogin checks the admin password and sets the session cookie
// POST /api/admin/login
func (h *Handlers) AdminLogin(c *gin.Context) {
	var req dto.LoginRequest
	if !util.BindStrictJSON(c, &req) {
		return
	}

	if !h.auth.CheckPassword(req.Password) {
		h.metrics.RecordAdminLogin("failed")
		logger.Log.Warn("Admin login failed", logger.WithIP(c.ClientIP()))
		util.RespondUnauthorized(c, "invalid password")
		return
	}

	token, err := h.auth.IssueToken()
	if err != nil {
		h.metrics.RecordAdminLogin("error")
		logger.Log.Error("Failed to issue admin token", zap.Error(err))
		util.RespondInternalError(c, "failed to start session")
		return
	}

	h.setSessionCookie(c, token.Value, token.ExpiresAt)
	h.metrics.RecordAdminLogin("success")
	logger.Log.Info("Admin logged in", logger.WithIP(c.ClientIP()))

	expires := token.ExpiresAt
	c.JSON(http.StatusOK, dto.SessionResponse{Authenticated: true, ExpiresAt: &expires})
}

// AdminLogout clears the session cookie
// POST /api/admin/logout
func (h *Handlers) AdminLogout(c *gin.Context) {
	h.setSessionCookie(c, "", time.Time{})
	c.JSON(http.StatusOK, dto.SessionResponse{Authenticated: false})
}

// AdminSession reports whether the request carries a valid session
// GET /api/admin/session
func (h *Handlers) AdminSession(c *gin.Context) {
	claims, err := h.auth.VerifyToken(middleware.AdminToken(c, h.opts.CookieName))
	if err != nil {
		c.JSON(http.StatusOK, dto.SessionResponse{Authenticated: false})
		return
	}
	resp := dto.SessionResponse{Authenticated: true}
	if claims.ExpiresAt != nil {
		expires := claims.ExpiresAt.Time
		resp.ExpiresAt = &expires
	}
	c.JSON(http.StatusOK, resp)
}

// setSessionCookie writes an httpOnly, SameSite=Strict cookie. A zero expiry
// deletes it.
func (h *Handlers) setSessionCookie(c *gin.Context, value string, expires time.Time) {
	maxAge := -1
	if !expires.IsZero() {
		maxAge = int(time.Until(expires).Seconds())
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.opts.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.opts.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}

// AdminListPrograms lists programs in any status for review
// GET /api/admin/programs?status=&q=&category=&sort=&limit=&offset=
func (h *Handlers) AdminListPrograms(c *gin.Context) {
	page := util.ParsePagination(c.Query("limit"), c.Query("offset"), 50, maxPageSize)

	statuses := []string{models.ProgramStatusPending, models.ProgramStatusApproved, models.ProgramStatusRejected}
	if raw := c.Query("status"); raw != "" {
		statuses = nil
		for _, s := range util.SplitList(strings.ToUpper(raw)) {
			switch s {
			case models.ProgramStatusPending, models.ProgramStatusApproved, models.ProgramStatusRejected:
				statuses = append(statuses, s)
			default:
				util.RespondValidationError(c, "status", "unknown status "+s)
				return
			}
		}
	}

	sort := c.Query("sort")
	if sort == "" {
		sort = repository.SortNewest
	}

	now := h.now()
	programs, total, err := h.programs.List(c.Request.Context(), repository.ListOptions{
		Statuses: statuses,
		Category: c.Query("category"),
		Query:    c.Query("q"),
		Sort:     sort,
		Limit:    page.Limit,
		Offset:   page.Offset,
		Now:      now,
	})
	if err != nil {
		respondRepoError(c, err, "programs", "list")
		return
	}

	out := make([]dto.AdminProgramResponse, 0, len(programs))
	for i := range programs {
		out = append(out, dto.ToAdminProgramResponse(&programs[i], now))
	}
	c.JSON(http.StatusOK, gin.H{
		"programs": out,
		"total":    total,
		"limit":    page.Limit,
		"offset":   page.Offset,
	})
}

// AdminGetProgram returns a program with its admin-only fields
// GET /api/admin/programs/:id
func (h *Handlers) AdminGetProgram(c *gin.Context) {
	program, ok := h.loadProgram(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dto.ToAdminProgramResponse(program, h.now()))
}

// AdminUpdateProgram applies a typed, allowlisted update
// PATCH /api/admin/programs/:id
func (h *Handlers) AdminUpdateProgram(c *gin.Context) {
	var req dto.UpdateProgramRequest
	if !util.BindStrictJSON(c, &req) {
		return
	}

	program, ok := h.loadProgram(c)
	if !ok {
		return
	}

	changeColumns, apiErr := h.programChangeColumns(c, program.ID, &req.ProgramChanges)
	if apiErr != nil {
		util.RespondWithAPIError(c, apiErr)
		return
	}
	columns := req.Columns()
	for k, v := range changeColumns {
		columns[k] = v
	}
	if req.Status != nil && *req.Status != program.Status {
		columns["reviewed_at"] = h.now().UTC()
	}
	if len(columns) == 0 {
		util.RespondBadRequest(c, "no fields to update")
		return
	}

	h.writeProgram(c, program.ID, "update", func() (*models.Program, error) {
		return h.programs.Update(c.Request.Context(), program.ID, columns)
	})
}

// ApproveProgram marks a program reviewed and approved
// POST /api/admin/programs/:id/approve
func (h *Handlers) ApproveProgram(c *gin.Context) {
	h.setStatus(c, models.ProgramStatusApproved)
}

// RejectProgram hides a program from public listings
// POST /api/admin/programs/:id/reject
func (h *Handlers) RejectProgram(c *gin.Context) {
	h.setStatus(c, models.ProgramStatusRejected)
}

func (h *Handlers) setStatus(c *gin.Context, status string) {
	id := c.Param("id")
	h.writeProgram(c, id, strings.ToLower(status), func() (*models.Program, error) {
		return h.programs.SetStatus(c.Request.Context(), id, status, h.now())
	})
}

// FeatureProgram features a program by hand, for 30 days unless days is given
// POST /api/admin/programs/:id/feature
func (h *Handlers) FeatureProgram(c *gin.Context) {
	var req dto.FeatureRequest
	if c.Request.ContentLength != 0 && c.Request.Body != http.NoBody {
		if !util.BindStrictJSON(c, &req) {
			return
		}
	}
	duration := models.FeatureDuration
	if req.Days > 0 {
		duration = time.Duration(req.Days) * 24 * time.Hour
	}

	id := c.Param("id")
	until := h.now().Add(duration)
	h.writeProgram(c, id, "feature", func() (*models.Program, error) {
		return h.programs.Feature(c.Request.Context(), id, until)
	})
}

// UnfeatureProgram clears a program's feature
// POST /api/admin/programs/:id/unfeature
func (h *Handlers) UnfeatureProgram(c *gin.Context) {
	id := c.Param("id")
	h.writeProgram(c, id, "unfeature", func() (*models.Program, error) {
		return h.programs.Unfeature(c.Request.Context(), id)
	})
}

// DeleteProgram removes a program with its events and reports. A hosted logo is
// deleted best-effort.
// DELETE /api/admin/programs/:id
func (h *Handlers) DeleteProgram(c *gin.Context) {
	program, ok := h.loadProgram(c)
	if !ok {
		return
	}

	if err := h.programs.Delete(c.Request.Context(), program.ID); err != nil {
		respondRepoError(c, err, "program", "delete")
		return
	}
	h.invalidate(c.Request.Context())
	h.deleteLogo(c, program.LogoURL)

	logger.Log.Info("Program deleted",
		logger.WithProgramID(program.ID),
		zap.String("admin", adminSubject(c)),
	)
	c.Status(http.StatusNoContent)
}

// writeProgram runs an admin program mutation and answers with the fresh row
func (h *Handlers) writeProgram(c *gin.Context, id, action string, write func() (*models.Program, error)) {
	program, err := write()
	if err != nil {
		respondRepoError(c, err, "program", action)
		return
	}
	h.invalidate(c.Request.Context())

	logger.Log.Info("Admin program write",
		zap.String("action", action),
		logger.WithProgramID(id),
		zap.String("admin", adminSubject(c)),
	)
	c.JSON(http.StatusOK, dto.ToAdminProgramResponse(program, h.now()))
}

func adminSubject(c *gin.Context) string {
	subject, _ := util.GetAdminSubject(c)
	return subject
}

// requireAdmin verifies the session on routes outside the admin gate
func (h *Handlers) requireAdmin(c *gin.Context) bool {
	if _, ok := util.GetAdminSubject(c); ok {
		return true
	}
	claims, err := h.auth.VerifyToken(middleware.AdminToken(c, h.opts.CookieName))
	if err != nil {
		util.RespondWithAPIError(c, errors.Unauthorized("admin session required"))
		return false
	}
	c.Set(util.ContextKeyAdmin, claims.Subject)
	return true
}

package handlers

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/affiliateboard/backend/internal/dto"
	"github.com/affiliateboard/backend/internal/errors"
	"github.com/affiliateboard/backend/internal/logger"
	"github.com/affiliateboard/backend/internal/repository"
	"github.com/affiliateboard/backend/internal/tracking"
	"github.com/affiliateboard/backend/internal/urlcheck"
	"github.com/affiliateboard/backend/internal/util"
)

// VisitorHeader carries the client fingerprint
const VisitorHeader = "X-Visitor-ID"

// visitorID resolves the dedupe identity for a request. bodyID wins over the header.
func (h *Handlers) visitorID(c *gin.Context, bodyID string) string {
	fingerprint := bodyID
	if fingerprint == "" {
		fingerprint = c.GetHeader(VisitorHeader)
	}
	id := tracking.VisitorID(fingerprint, c.ClientIP(), c.Request.UserAgent(), h.opts.VisitorSalt, h.now())
	c.Set(util.ContextKeyVisitorID, id)
	return id
}

func (h *Handlers) visit(c *gin.Context, visitorID string) tracking.Visit {
	return tracking.Visit{
		Path:      c.Request.URL.Path,
		Referrer:  c.Request.Referer(),
		UserAgent: c.Request.UserAgent(),
		Country:   country(c),
		VisitorID: visitorID,
	}
}

// country reads the edge-provided country header, if any
func country(c *gin.Context) string {
	for _, header := range []string{"CF-IPCountry", "X-Vercel-IP-Country", "X-Country-Code"} {
		if v := strings.TrimSpace(c.GetHeader(header)); v != "" {
			return strings.ToUpper(v)
		}
	}
	return ""
}

// checkURLs runs every non-empty URL through the checker and returns the
// normalized values. The first rejection is returned as an API error.
func (h *Handlers) checkURLs(ctx context.Context, urls map[string]string) (map[string]string, *errors.APIError) {
	normalized := make(map[string]string, len(urls))
	for _, field := range []string{"website_url", "affiliate_url", "logo_url"} {
		raw, ok := urls[field]
		if !ok || raw == "" {
			continue
		}
		// Logos are hosted by us or checked at upload; only parse them.
		if field == "logo_url" {
			if _, err := urlcheck.Parse(raw); err != nil {
				return nil, errors.InvalidURL(field, err.Error())
			}
			normalized[field] = raw
			continue
		}
		value, err := h.urls.Check(ctx, raw)
		if err != nil {
			return nil, urlError(field, err)
		}
		normalized[field] = value
	}
	return normalized, nil
}

func urlError(field string, err error) *errors.APIError {
	var rejection *urlcheck.Rejection
	if stderrors.As(err, &rejection) {
		return errors.InvalidURL(field, rejection.Reason)
	}
	logger.Log.Warn("URL check failed", zap.String("field", field), zap.Error(err))
	return errors.InvalidURL(field, "URL could not be checked")
}

var duplicateMessages = map[string]string{
	"name":          "a program with this name already exists",
	"website_url":   "a program with this website is already listed",
	"affiliate_url": "this affiliate link is already listed",
}

// duplicateFields turns FindDuplicates output (field to program id) into
// field-level messages
func duplicateFields(found map[string]string) map[string]string {
	fields := make(map[string]string, len(found))
	for field := range found {
		fields[field] = duplicateMessages[field]
	}
	return fields
}

// duplicateError reports the first duplicated field as a 409
func duplicateError(found map[string]string) *errors.APIError {
	for _, field := range []string{"name", "website_url", "affiliate_url"} {
		if _, ok := found[field]; ok {
			return errors.Duplicate(field, duplicateMessages[field])
		}
	}
	return errors.Conflict("program already exists")
}

// respondRepoError maps repository sentinels onto API errors
func respondRepoError(c *gin.Context, err error, resource, action string) {
	switch {
	case stderrors.Is(err, repository.ErrProgramNotFound):
		util.RespondNotFound(c, "program")
	case stderrors.Is(err, repository.ErrReportNotFound):
		util.RespondNotFound(c, "report")
	case stderrors.Is(err, repository.ErrDuplicate):
		util.RespondWithAPIError(c, errors.Conflict(resource+" conflicts with an existing one"))
	case stderrors.Is(err, repository.ErrInvalidInput):
		util.RespondBadRequest(c, "invalid "+resource)
	default:
		logger.Log.Error("Repository call failed",
			zap.String("resource", resource),
			logger.WithRequestID(util.GetRequestID(c)),
			zap.Error(err),
		)
		util.RespondInternalError(c, "failed to "+action+" "+resource)
	}
}

// submissionURLs lists the URL fields of a create request
func submissionURLs(req *dto.CreateProgramRequest) map[string]string {
	return map[string]string{
		"website_url":   strings.TrimSpace(req.WebsiteURL),
		"affiliate_url": strings.TrimSpace(req.AffiliateURL),
		"logo_url":      strings.TrimSpace(req.LogoURL),
	}
}

// urlParse normalizes raw without the policy or reachability checks
func urlParse(raw string) (string, error) {
	u, err := urlcheck.Parse(raw)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

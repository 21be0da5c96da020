package handlers

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/affiliateboard/backend/internal/auth"
	"github.com/affiliateboard/backend/internal/email"
	"github.com/affiliateboard/backend/internal/jobs"
	"github.com/affiliateboard/backend/internal/logger"
	"github.com/affiliateboard/backend/internal/metrics"
	"github.com/affiliateboard/backend/internal/models"
	"github.com/affiliateboard/backend/internal/payments"
	"github.com/affiliateboard/backend/internal/repository"
	"github.com/affiliateboard/backend/internal/storage"
	"github.com/affiliateboard/backend/internal/tracking"
)

// URLChecker normalizes a submitted URL and rejects it with a *urlcheck.Rejection
// when it is malformed, blocked or unreachable.
type URLChecker interface {
	Check(ctx context.Context, raw string) (string, error)
}

// CacheInvalidator drops cached public responses after a write
type CacheInvalidator interface {
	Invalidate(ctx context.Context)
}

// Options are the request-independent settings the handlers need
type Options struct {
	BaseURL      string
	CookieName   string
	SecureCookie bool
	VisitorSalt  string
	CronSecret   string
}

// Deps are the collaborators the handlers are built from. Payments and Logos may
// be nil, in which case their endpoints answer 503. Cache and Notifier may be nil.
type Deps struct {
	DB       *gorm.DB
	Tracker  *tracking.Tracker
	Jobs     *jobs.Runner
	URLs     URLChecker
	Payments *payments.Service
	Logos    storage.LogoStore
	Auth     auth.AdminAuthenticator
	Cache    CacheInvalidator
	Notifier email.Notifier
	Metrics  *metrics.Metrics
}

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	db       *gorm.DB
	programs repository.ProgramRepository
	events   repository.EventRepository
	logs     repository.LogRepository
	reports  repository.ReportRepository

	tracker  *tracking.Tracker
	jobs     *jobs.Runner
	urls     URLChecker
	payments *payments.Service
	logos    storage.LogoStore
	auth     auth.AdminAuthenticator
	cache    CacheInvalidator
	notifier email.Notifier
	metrics  *metrics.Metrics

	opts Options
	now  func() time.Time
}

// NewHandlers creates a new handlers instance
func NewHandlers(deps Deps, opts Options) *Handlers {
	if opts.CookieName == "" {
		opts.CookieName = "admin_token"
	}
	return &Handlers{
		db:       deps.DB,
		programs: repository.NewProgramRepository(deps.DB),
		events:   repository.NewEventRepository(deps.DB),
		logs:     repository.NewLogRepository(deps.DB),
		reports:  repository.NewReportRepository(deps.DB),
		tracker:  deps.Tracker,
		jobs:     deps.Jobs,
		urls:     deps.URLs,
		payments: deps.Payments,
		logos:    deps.Logos,
		auth:     deps.Auth,
		cache:    deps.Cache,
		notifier: deps.Notifier,
		metrics:  deps.Metrics,
		opts:     opts,
		now:      time.Now,
	}
}

// invalidate drops cached listings after a program write
func (h *Handlers) invalidate(ctx context.Context) {
	if h.cache != nil {
		h.cache.Invalidate(ctx)
	}
}

// notifySubmission tells the admin about a new listing. Failures are logged only.
func (h *Handlers) notifySubmission(ctx context.Context, program *models.Program) {
	if h.notifier == nil {
		return
	}
	if err := h.notifier.ProgramSubmitted(ctx, program); err != nil {
		logger.Log.Warn("Failed to notify about submission", logger.WithProgramID(program.ID), zap.Error(err))
	}
}

// notifyReport tells the admin about a new ticket. Failures are logged only.
func (h *Handlers) notifyReport(ctx context.Context, report *models.ProgramReport) {
	if h.notifier == nil {
		return
	}
	if err := h.notifier.ReportFiled(ctx, report); err != nil {
		logger.Log.Warn("Failed to notify about report", zap.String("report_id", report.ID), zap.Error(err))
	}
}

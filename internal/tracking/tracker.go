// Package tracking records program views and clicks and the raw traffic log.
package tracking

import (
	"context"
	"errors"
	"time"

	"github.com/affiliateboard/backend/internal/logger"
	"github.com/affiliateboard/backend/internal/metrics"
	"github.com/affiliateboard/backend/internal/models"
	"github.com/affiliateboard/backend/internal/repository"
	"github.com/affiliateboard/backend/internal/util"
	"go.uber.org/zap"
)

// Visit describes the request behind an event or page view
type Visit struct {
	Path      string
	Referrer  string
	UserAgent string
	Country   string
	VisitorID string
	ProgramID string
}

// Result reports whether a strict stat write counted. Recorded is false for a repeat
// interaction inside the same day.
type Result struct {
	Recorded bool
}

// Tracker records events. Event plus counter is all-or-nothing; the traffic log that
// follows is best-effort.
type Tracker struct {
	events  repository.EventRepository
	logs    repository.LogRepository
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewTracker creates a tracker. m may be nil.
func NewTracker(events repository.EventRepository, logs repository.LogRepository, m *metrics.Metrics) *Tracker {
	return &Tracker{events: events, logs: logs, metrics: m, now: time.Now}
}

// RecordView records a program view
func (t *Tracker) RecordView(ctx context.Context, programID string, visit Visit) (Result, error) {
	return t.record(ctx, models.EventTypeView, programID, visit)
}

// RecordClick records an outbound affiliate click
func (t *Tracker) RecordClick(ctx context.Context, programID string, visit Visit) (Result, error) {
	return t.record(ctx, models.EventTypeClick, programID, visit)
}

func (t *Tracker) record(ctx context.Context, eventType, programID string, visit Visit) (Result, error) {
	now := t.now()
	event := &models.ProgramEvent{
		ProgramID: programID,
		Type:      eventType,
		VisitorID: visit.VisitorID,
		DateKey:   models.DateKey(now),
	}

	recorded, err := t.events.Record(ctx, event)
	if err != nil {
		if !errors.Is(err, repository.ErrProgramNotFound) {
			t.metrics.RecordEvent(eventType, "failed")
		}
		return Result{}, err
	}

	outcome := "duplicate"
	if recorded {
		outcome = "recorded"
	}
	t.metrics.RecordEvent(eventType, outcome)

	visit.ProgramID = programID
	t.logVisit(ctx, visit)
	return Result{Recorded: recorded}, nil
}

// RecordPageview stores a page visit. Failures are logged and swallowed.
func (t *Tracker) RecordPageview(ctx context.Context, visit Visit) {
	t.logVisit(ctx, visit)
}

func (t *Tracker) logVisit(ctx context.Context, visit Visit) {
	entry := &models.TrafficLog{
		Path:      util.Truncate(visit.Path, 512),
		Referrer:  util.Truncate(visit.Referrer, 1024),
		UserAgent: util.Truncate(visit.UserAgent, 1024),
		Country:   util.Truncate(visit.Country, 8),
		VisitorID: visit.VisitorID,
	}
	if visit.ProgramID != "" {
		id := visit.ProgramID
		entry.ProgramID = &id
	}

	if err := t.logs.CreateTrafficLog(ctx, entry); err != nil {
		t.metrics.RecordTrafficLogError()
		logger.Log.Warn("Failed to write traffic log",
			zap.Error(err),
			zap.String("path", visit.Path),
			logger.WithVisitorID(visit.VisitorID),
		)
	}
}

// RecordSearch stores a search query with its result count. Failures are logged and
// swallowed.
func (t *Tracker) RecordSearch(ctx context.Context, query string, results int, visitorID string) {
	normalized := util.NormalizeQuery(query)
	if normalized == "" {
		return
	}
	t.metrics.RecordSearch()

	entry := &models.SearchLog{
		Query:       util.Truncate(query, 255),
		Normalized:  util.Truncate(normalized, 255),
		ResultCount: results,
		VisitorID:   visitorID,
	}
	if err := t.logs.CreateSearchLog(ctx, entry); err != nil {
		logger.Log.Warn("Failed to write search log", zap.Error(err), zap.String("query", normalized))
	}
}

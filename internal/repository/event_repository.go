package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/affiliateboard/backend/internal/dto"
	"github.com/affiliateboard/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Counts is a program's rolling engagement
type Counts struct {
	Views  int64
	Clicks int64
}

// EventRepository handles the program event store
type EventRepository interface {
	// Record inserts the event and bumps the matching lifetime counter in one
	// transaction. It reports false when the (program, type, visitor, day) row exists.
	Record(ctx context.Context, event *models.ProgramEvent) (bool, error)
	RollingCounts(ctx context.Context, sinceDateKey string) (map[string]Counts, error)
	TopPrograms(ctx context.Context, sinceDateKey string, limit int) ([]dto.TopProgram, error)
	CountSince(ctx context.Context, sinceDateKey string) (Counts, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func counterColumn(eventType string) (string, error) {
	switch eventType {
	case models.EventTypeView:
		return "total_views", nil
	case models.EventTypeClick:
		return "clicks", nil
	}
	return "", fmt.Errorf("%w: event type %q", ErrInvalidInput, eventType)
}

// Record inserts the event and increments the counter only when the insert happened
func (r *eventRepository) Record(ctx context.Context, event *models.ProgramEvent) (bool, error) {
	column, err := counterColumn(event.Type)
	if err != nil {
		return false, err
	}
	if event.DateKey == "" {
		event.DateKey = models.DateKey(time.Now())
	}

	recorded := false
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(event)
		if res.Error != nil {
			return fmt.Errorf("failed to insert event: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			var exists int64
			if err := tx.Model(&models.Program{}).Where("id = ?", event.ProgramID).Count(&exists).Error; err != nil {
				return err
			}
			if exists == 0 {
				return ErrProgramNotFound
			}
			return nil
		}

		upd := tx.Model(&models.Program{}).
			Where("id = ?", event.ProgramID).
			UpdateColumn(column, gorm.Expr(column+" + 1"))
		if upd.Error != nil {
			return fmt.Errorf("failed to increment %s: %w", column, upd.Error)
		}
		if upd.RowsAffected == 0 {
			return ErrProgramNotFound
		}
		recorded = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return recorded, nil
}

type countRow struct {
	ProgramID string
	Views     int64
	Clicks    int64
}

const countSelect = "COALESCE(SUM(CASE WHEN type = 'VIEW' THEN 1 ELSE 0 END), 0) AS views, " +
	"COALESCE(SUM(CASE WHEN type = 'CLICK' THEN 1 ELSE 0 END), 0) AS clicks"

// RollingCounts aggregates views and clicks per program from sinceDateKey on, in a
// single grouped query.
func (r *eventRepository) RollingCounts(ctx context.Context, sinceDateKey string) (map[string]Counts, error) {
	var rows []countRow
	err := r.db.WithContext(ctx).Model(&models.ProgramEvent{}).
		Select("program_id, "+countSelect).
		Where("date_key >= ?", sinceDateKey).
		Group("program_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate events: %w", err)
	}

	counts := make(map[string]Counts, len(rows))
	for _, row := range rows {
		counts[row.ProgramID] = Counts{Views: row.Views, Clicks: row.Clicks}
	}
	return counts, nil
}

// TopPrograms ranks programs by rolling clicks, then views
func (r *eventRepository) TopPrograms(ctx context.Context, sinceDateKey string, limit int) ([]dto.TopProgram, error) {
	rows := []dto.TopProgram{}
	err := r.db.WithContext(ctx).Table("program_events AS e").
		Select("p.id, p.name, p.slug, "+
			"SUM(CASE WHEN e.type = 'VIEW' THEN 1 ELSE 0 END) AS views, "+
			"SUM(CASE WHEN e.type = 'CLICK' THEN 1 ELSE 0 END) AS clicks").
		Joins("JOIN programs AS p ON p.id = e.program_id").
		Where("e.date_key >= ?", sinceDateKey).
		Group("p.id, p.name, p.slug").
		Order("clicks DESC").Order("views DESC").Order("p.id").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to rank programs: %w", err)
	}
	return rows, nil
}

// CountSince totals views and clicks across all programs
func (r *eventRepository) CountSince(ctx context.Context, sinceDateKey string) (Counts, error) {
	var row countRow
	err := r.db.WithContext(ctx).Model(&models.ProgramEvent{}).
		Select(countSelect).
		Where("date_key >= ?", sinceDateKey).
		Scan(&row).Error
	return Counts{Views: row.Views, Clicks: row.Clicks}, err
}

// DeleteBefore prunes events created before cutoff
func (r *eventRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff.UTC()).Delete(&models.ProgramEvent{})
	return res.RowsAffected, res.Error
}

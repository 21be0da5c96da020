package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/affiliateboard/backend/internal/dto"
	"github.com/affiliateboard/backend/internal/models"
	"gorm.io/gorm"
)

// LogRepository handles traffic and search logs and the analytics read off them
type LogRepository interface {
	CreateTrafficLog(ctx context.Context, entry *models.TrafficLog) error
	CreateSearchLog(ctx context.Context, entry *models.SearchLog) error
	DeleteTrafficBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteSearchesBefore(ctx context.Context, cutoff time.Time) (int64, error)

	TrafficSince(ctx context.Context, since time.Time, limit int) (dto.TrafficAnalytics, error)
	SearchesSince(ctx context.Context, since time.Time, limit int) (dto.SearchAnalytics, error)
	VisitsSince(ctx context.Context, since time.Time) (pageViews, visitors int64, err error)
	SearchCountSince(ctx context.Context, since time.Time) (int64, error)
}

type logRepository struct {
	db *gorm.DB
}

// NewLogRepository creates a new log repository
func NewLogRepository(db *gorm.DB) LogRepository {
	return &logRepository{db: db}
}

// CreateTrafficLog stores one page visit
func (r *logRepository) CreateTrafficLog(ctx context.Context, entry *models.TrafficLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// CreateSearchLog stores one search
func (r *logRepository) CreateSearchLog(ctx context.Context, entry *models.SearchLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// DeleteTrafficBefore prunes traffic logs created before cutoff
func (r *logRepository) DeleteTrafficBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff.UTC()).Delete(&models.TrafficLog{})
	return res.RowsAffected, res.Error
}

// DeleteSearchesBefore prunes search logs created before cutoff
func (r *logRepository) DeleteSearchesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff.UTC()).Delete(&models.SearchLog{})
	return res.RowsAffected, res.Error
}

// dayExpr renders a UTC YYYY-MM-DD bucket of column for the active dialect.
func dayExpr(db *gorm.DB, column string) string {
	if db.Dialector.Name() == "postgres" {
		return fmt.Sprintf("TO_CHAR(%s AT TIME ZONE 'UTC', 'YYYY-MM-DD')", column)
	}
	return fmt.Sprintf("strftime('%%Y-%%m-%%d', %s)", column)
}

// TrafficSince returns daily page views plus the top paths and referrers
func (r *logRepository) TrafficSince(ctx context.Context, since time.Time, limit int) (dto.TrafficAnalytics, error) {
	out := dto.EmptyTrafficAnalytics(0)
	db := r.db.WithContext(ctx)
	day := dayExpr(db, "created_at")

	err := db.Model(&models.TrafficLog{}).
		Select(day+" AS date, COUNT(*) AS page_views, COUNT(DISTINCT visitor_id) AS visitors").
		Where("created_at >= ?", since.UTC()).
		Group(day).
		Order("date").
		Scan(&out.Daily).Error
	if err != nil {
		return out, fmt.Errorf("failed to load daily traffic: %w", err)
	}

	err = db.Model(&models.TrafficLog{}).
		Select("path AS value, COUNT(*) AS count").
		Where("created_at >= ?", since.UTC()).
		Group("path").
		Order("count DESC").Order("value").
		Limit(limit).
		Scan(&out.TopPaths).Error
	if err != nil {
		return out, fmt.Errorf("failed to load top paths: %w", err)
	}

	err = db.Model(&models.TrafficLog{}).
		Select("referrer AS value, COUNT(*) AS count").
		Where("created_at >= ? AND referrer <> ''", since.UTC()).
		Group("referrer").
		Order("count DESC").Order("value").
		Limit(limit).
		Scan(&out.TopReferrers).Error
	if err != nil {
		return out, fmt.Errorf("failed to load top referrers: %w", err)
	}
	return out, nil
}

// SearchesSince returns the most common searches and the ones that found nothing
func (r *logRepository) SearchesSince(ctx context.Context, since time.Time, limit int) (dto.SearchAnalytics, error) {
	out := dto.EmptySearchAnalytics(0)
	db := r.db.WithContext(ctx)

	if err := db.Model(&models.SearchLog{}).Where("created_at >= ?", since.UTC()).Count(&out.Total).Error; err != nil {
		return out, fmt.Errorf("failed to count searches: %w", err)
	}

	err := db.Model(&models.SearchLog{}).
		Select("normalized AS query, COUNT(*) AS count, CAST(AVG(result_count) AS FLOAT) AS avg_results").
		Where("created_at >= ?", since.UTC()).
		Group("normalized").
		Order("count DESC").Order("query").
		Limit(limit).
		Scan(&out.TopQueries).Error
	if err != nil {
		return out, fmt.Errorf("failed to load top searches: %w", err)
	}

	err = db.Model(&models.SearchLog{}).
		Select("normalized AS query, COUNT(*) AS count, 0 AS avg_results").
		Where("created_at >= ? AND result_count = 0", since.UTC()).
		Group("normalized").
		Order("count DESC").Order("query").
		Limit(limit).
		Scan(&out.ZeroResults).Error
	if err != nil {
		return out, fmt.Errorf("failed to load zero-result searches: %w", err)
	}
	return out, nil
}

// VisitsSince counts page views and distinct visitors
func (r *logRepository) VisitsSince(ctx context.Context, since time.Time) (int64, int64, error) {
	var row struct {
		PageViews int64
		Visitors  int64
	}
	err := r.db.WithContext(ctx).Model(&models.TrafficLog{}).
		Select("COUNT(*) AS page_views, COUNT(DISTINCT visitor_id) AS visitors").
		Where("created_at >= ?", since.UTC()).
		Scan(&row).Error
	return row.PageViews, row.Visitors, err
}

// SearchCountSince counts searches
func (r *logRepository) SearchCountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.SearchLog{}).Where("created_at >= ?", since.UTC()).Count(&count).Error
	return count, err
}

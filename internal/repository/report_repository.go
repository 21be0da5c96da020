package repository

import (
	"context"
	"fmt"

	"github.com/affiliateboard/backend/internal/models"
	"gorm.io/gorm"
)

// ReportFilter narrows the admin report list
type ReportFilter struct {
	Status string
	Type   string
	Limit  int
	Offset int
}

// ReportRepository handles moderation tickets
type ReportRepository interface {
	Create(ctx context.Context, report *models.ProgramReport) error
	Get(ctx context.Context, id string) (*models.ProgramReport, error)
	List(ctx context.Context, filter ReportFilter) ([]models.ProgramReport, int64, error)
	Update(ctx context.Context, id string, columns map[string]any) (*models.ProgramReport, error)
	Delete(ctx context.Context, id string) error
	CountPending(ctx context.Context) (int64, error)
}

type reportRepository struct {
	db *gorm.DB
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

// Create files a report against an existing program
func (r *reportRepository) Create(ctx context.Context, report *models.ProgramReport) error {
	db := r.db.WithContext(ctx)

	var exists int64
	if err := db.Model(&models.Program{}).Where("id = ?", report.ProgramID).Count(&exists).Error; err != nil {
		return err
	}
	if exists == 0 {
		return ErrProgramNotFound
	}
	return db.Omit("Program").Create(report).Error
}

// Get loads a report and its program
func (r *reportRepository) Get(ctx context.Context, id string) (*models.ProgramReport, error) {
	var report models.ProgramReport
	err := r.db.WithContext(ctx).Preload("Program").Where("id = ?", id).First(&report).Error
	if err != nil {
		return nil, translate(err, ErrReportNotFound)
	}
	return &report, nil
}

// List returns a page of reports, newest first
func (r *reportRepository) List(ctx context.Context, filter ReportFilter) ([]models.ProgramReport, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.ProgramReport{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count reports: %w", err)
	}

	var reports []models.ProgramReport
	err := q.Preload("Program").
		Order("created_at DESC").Order("id").
		Limit(filter.Limit).Offset(filter.Offset).
		Find(&reports).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, total, nil
}

// Update applies column updates and returns the fresh report
func (r *reportRepository) Update(ctx context.Context, id string, columns map[string]any) (*models.ProgramReport, error) {
	if len(columns) > 0 {
		res := r.db.WithContext(ctx).Model(&models.ProgramReport{}).Where("id = ?", id).Updates(columns)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, ErrReportNotFound
		}
	}
	return r.Get(ctx, id)
}

// Delete removes a report
func (r *reportRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ProgramReport{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrReportNotFound
	}
	return nil
}

// CountPending counts reports awaiting moderation
func (r *reportRepository) CountPending(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ProgramReport{}).
		Where("status = ?", models.ReportStatusPending).
		Count(&count).Error
	return count, err
}

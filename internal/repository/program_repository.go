package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/affiliateboard/backend/internal/dto"
	"github.com/affiliateboard/backend/internal/models"
	"github.com/affiliateboard/backend/internal/util"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Sort orders for ListPrograms
const (
	SortTrending = "trending"
	SortNewest   = "newest"
	SortName     = "name"
)

// ListOptions filters and pages a program listing
type ListOptions struct {
	Statuses []string // empty means publicly visible statuses
	Category string
	Tag      string
	Query    string
	Sort     string
	Limit    int
	Offset   int
	Now      time.Time
}

// DuplicateQuery names the submission values to look up. Empty fields are skipped.
type DuplicateQuery struct {
	Name         string
	WebsiteURL   string
	AffiliateURL string
	ExcludeID    string
}

// ScoreRow is the slice of a program the recompute job reads
type ScoreRow struct {
	ID               string
	ManualScoreBoost float64
	CreatedAt        time.Time
}

// SitemapEntry is one program URL in the sitemap
type SitemapEntry struct {
	Slug      string
	UpdatedAt time.Time
}

// ProgramRepository handles all database operations for programs
type ProgramRepository interface {
	Create(ctx context.Context, program *models.Program) error
	GetByID(ctx context.Context, id string) (*models.Program, error)
	GetBySlug(ctx context.Context, slug string) (*models.Program, error)
	GetByIDOrSlug(ctx context.Context, idOrSlug string) (*models.Program, error)
	Update(ctx context.Context, id string, columns map[string]any) (*models.Program, error)
	SetStatus(ctx context.Context, id, status string, now time.Time) (*models.Program, error)
	Feature(ctx context.Context, id string, until time.Time) (*models.Program, error)
	Unfeature(ctx context.Context, id string) (*models.Program, error)
	Delete(ctx context.Context, id string) error

	// Listing
	List(ctx context.Context, opts ListOptions) ([]models.Program, int64, error)
	Featured(ctx context.Context, now time.Time, limit int) ([]models.Program, error)
	Similar(ctx context.Context, program *models.Program, now time.Time, limit int) ([]models.Program, error)
	Categories(ctx context.Context) ([]dto.CategoryCount, error)
	FindDuplicates(ctx context.Context, q DuplicateQuery) (map[string]string, error)
	SitemapEntries(ctx context.Context) ([]SitemapEntry, error)
	CountVisible(ctx context.Context) (int64, error)

	// Jobs
	ScoreBatch(ctx context.Context, afterID string, limit int) ([]ScoreRow, error)
	UpdateScore(ctx context.Context, id string, score float64) error
	IDBatch(ctx context.Context, afterID string, limit int) ([]string, error)
	UpdateRandomWeight(ctx context.Context, id string, weight float64) error
	ClearExpiredFeatures(ctx context.Context, now time.Time) (int64, error)
}

// programRepository implements ProgramRepository
type programRepository struct {
	db *gorm.DB
}

// NewProgramRepository creates a new program repository. Pass a transaction handle
// to run its operations inside that transaction.
func NewProgramRepository(db *gorm.DB) ProgramRepository {
	return &programRepository{db: db}
}

// Create inserts a program, deriving a unique slug from its name when none is set
func (r *programRepository) Create(ctx context.Context, program *models.Program) error {
	if program == nil || strings.TrimSpace(program.Name) == "" {
		return ErrInvalidInput
	}

	db := r.db.WithContext(ctx)
	if program.Slug == "" {
		slug, err := r.uniqueSlug(db, program.Name)
		if err != nil {
			return err
		}
		program.Slug = slug
	}
	return translate(db.Create(program).Error, ErrProgramNotFound)
}

// uniqueSlug picks the first free slug among base, base-2, base-3, ...
func (r *programRepository) uniqueSlug(db *gorm.DB, name string) (string, error) {
	base := util.Slugify(name)
	if base == "" {
		base = "program"
	}

	var taken []string
	err := db.Model(&models.Program{}).
		Where("slug = ? OR slug LIKE ? ESCAPE '\\'", base, escapeLike(base)+"-%").
		Pluck("slug", &taken).Error
	if err != nil {
		return "", fmt.Errorf("failed to check slugs: %w", err)
	}

	used := make(map[string]bool, len(taken))
	for _, s := range taken {
		used[s] = true
	}
	if !used[base] {
		return base, nil
	}
	for i := 2; i < 1000; i++ {
		candidate := fmt.Sprintf("%s-%d", base, i)
		if !used[candidate] {
			return candidate, nil
		}
	}
	return base + "-" + uuid.New().String()[:8], nil
}

// GetByID gets a program by ID
func (r *programRepository) GetByID(ctx context.Context, id string) (*models.Program, error) {
	var program models.Program
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&program).Error
	if err != nil {
		return nil, translate(err, ErrProgramNotFound)
	}
	return &program, nil
}

// GetBySlug gets a program by slug
func (r *programRepository) GetBySlug(ctx context.Context, slug string) (*models.Program, error) {
	var program models.Program
	err := r.db.WithContext(ctx).Where("slug = ?", strings.ToLower(slug)).First(&program).Error
	if err != nil {
		return nil, translate(err, ErrProgramNotFound)
	}
	return &program, nil
}

// GetByIDOrSlug resolves either identifier
func (r *programRepository) GetByIDOrSlug(ctx context.Context, idOrSlug string) (*models.Program, error) {
	if _, err := uuid.Parse(idOrSlug); err == nil {
		program, err := r.GetByID(ctx, idOrSlug)
		if !errors.Is(err, ErrProgramNotFound) {
			return program, err
		}
	}
	return r.GetBySlug(ctx, idOrSlug)
}

// Update applies column updates and returns the fresh row
func (r *programRepository) Update(ctx context.Context, id string, columns map[string]any) (*models.Program, error) {
	if len(columns) == 0 {
		return r.GetByID(ctx, id)
	}
	if slug, ok := columns["slug"].(string); ok {
		slug = util.Slugify(slug)
		if slug == "" {
			return nil, ErrInvalidInput
		}
		columns["slug"] = slug
	}

	res := r.db.WithContext(ctx).Model(&models.Program{}).Where("id = ?", id).Updates(columns)
	if res.Error != nil {
		return nil, translate(res.Error, ErrProgramNotFound)
	}
	if res.RowsAffected == 0 {
		return nil, ErrProgramNotFound
	}
	return r.GetByID(ctx, id)
}

// SetStatus moves a program through review
func (r *programRepository) SetStatus(ctx context.Context, id, status string, now time.Time) (*models.Program, error) {
	return r.Update(ctx, id, map[string]any{"status": status, "reviewed_at": now.UTC()})
}

// Feature sets the featured flag until the given time and approves the program
func (r *programRepository) Feature(ctx context.Context, id string, until time.Time) (*models.Program, error) {
	return r.Update(ctx, id, map[string]any{
		"is_featured":         true,
		"featured_expires_at": until.UTC(),
		"status":              models.ProgramStatusApproved,
	})
}

// Unfeature clears the featured flag
func (r *programRepository) Unfeature(ctx context.Context, id string) (*models.Program, error) {
	return r.Update(ctx, id, map[string]any{"is_featured": false, "featured_expires_at": nil})
}

// Delete removes a program and its dependent rows in one transaction. Events and
// reports are deleted; traffic logs and drafts keep their rows with the reference cleared.
func (r *programRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("program_id = ?", id).Delete(&models.ProgramEvent{}).Error; err != nil {
			return fmt.Errorf("failed to delete events: %w", err)
		}
		if err := tx.Where("program_id = ?", id).Delete(&models.ProgramReport{}).Error; err != nil {
			return fmt.Errorf("failed to delete reports: %w", err)
		}
		if err := tx.Model(&models.TrafficLog{}).Where("program_id = ?", id).Update("program_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach traffic logs: %w", err)
		}
		if err := tx.Model(&models.CheckoutDraft{}).Where("program_id = ?", id).Update("program_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach drafts: %w", err)
		}

		res := tx.Where("id = ?", id).Delete(&models.Program{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrProgramNotFound
		}
		return nil
	})
}

// rankingOrder is featured-active first, then score, then the rotating tiebreaker.
func rankingOrder(now time.Time) clause.OrderBy {
	return clause.OrderBy{Expression: clause.Expr{
		SQL:                "CASE WHEN is_featured = ? AND featured_expires_at > ? THEN 1 ELSE 0 END DESC, trending_score DESC, random_weight DESC, id",
		Vars:               []any{true, now.UTC()},
		WithoutParentheses: true,
	}}
}

func (r *programRepository) filtered(ctx context.Context, opts ListOptions) *gorm.DB {
	statuses := opts.Statuses
	if len(statuses) == 0 {
		statuses = models.VisibleStatuses
	}

	q := r.db.WithContext(ctx).Model(&models.Program{}).Where("status IN ?", statuses)
	if opts.Category != "" {
		q = q.Where("category = ?", opts.Category)
	}
	if tag := strings.ToLower(strings.TrimSpace(opts.Tag)); tag != "" {
		q = q.Where("REPLACE(REPLACE(tags, '{', ','), '}', ',') LIKE ? ESCAPE '\\'", "%,"+escapeLike(tag)+",%")
	}
	if query := util.NormalizeQuery(opts.Query); query != "" {
		like := "%" + escapeLike(query) + "%"
		q = q.Where("(LOWER(name) LIKE ? ESCAPE '\\' OR LOWER(description) LIKE ? ESCAPE '\\' OR LOWER(tags) LIKE ? ESCAPE '\\')", like, like, like)
	}
	return q.Session(&gorm.Session{})
}

// List returns one page of programs and the total matching count
func (r *programRepository) List(ctx context.Context, opts ListOptions) ([]models.Program, int64, error) {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	q := r.filtered(ctx, opts)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count programs: %w", err)
	}

	switch opts.Sort {
	case SortNewest:
		q = q.Order("created_at DESC").Order("id")
	case SortName:
		q = q.Order("LOWER(name)").Order("id")
	default:
		q = q.Clauses(rankingOrder(opts.Now))
	}

	var programs []models.Program
	err := q.Limit(opts.Limit).Offset(opts.Offset).Find(&programs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list programs: %w", err)
	}
	return programs, total, nil
}

// Featured returns the visible programs whose feature is active at now
func (r *programRepository) Featured(ctx context.Context, now time.Time, limit int) ([]models.Program, error) {
	var programs []models.Program
	err := r.db.WithContext(ctx).
		Where("status IN ?", models.VisibleStatuses).
		Where("is_featured = ? AND featured_expires_at > ?", true, now.UTC()).
		Order("trending_score DESC").Order("random_weight DESC").Order("id").
		Limit(limit).
		Find(&programs).Error
	return programs, err
}

// Similar returns programs in the same category, topped up with trending programs
// from other categories.
func (r *programRepository) Similar(ctx context.Context, program *models.Program, now time.Time, limit int) ([]models.Program, error) {
	var similar []models.Program
	err := r.db.WithContext(ctx).
		Where("status IN ?", models.VisibleStatuses).
		Where("category = ? AND id <> ?", program.Category, program.ID).
		Clauses(rankingOrder(now)).
		Limit(limit).
		Find(&similar).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load similar programs: %w", err)
	}
	if len(similar) >= limit {
		return similar, nil
	}

	exclude := []string{program.ID}
	for _, p := range similar {
		exclude = append(exclude, p.ID)
	}

	var fill []models.Program
	err = r.db.WithContext(ctx).
		Where("status IN ?", models.VisibleStatuses).
		Where("id NOT IN ?", exclude).
		Clauses(rankingOrder(now)).
		Limit(limit - len(similar)).
		Find(&fill).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load trending fill: %w", err)
	}
	return append(similar, fill...), nil
}

// Categories returns every category with its visible program count, including zeros
func (r *programRepository) Categories(ctx context.Context) ([]dto.CategoryCount, error) {
	var rows []dto.CategoryCount
	err := r.db.WithContext(ctx).Model(&models.Program{}).
		Select("category, COUNT(*) AS count").
		Where("status IN ?", models.VisibleStatuses).
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count categories: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Category] = row.Count
	}
	out := make([]dto.CategoryCount, 0, len(models.Categories))
	for _, c := range models.Categories {
		out = append(out, dto.CategoryCount{Category: c, Count: counts[c]})
	}
	return out, nil
}

// FindDuplicates returns, per field, the id of a program already using that value.
// Names match case-insensitively or by slug; URLs are compared as stored.
func (r *programRepository) FindDuplicates(ctx context.Context, q DuplicateQuery) (map[string]string, error) {
	found := map[string]string{}
	db := r.db.WithContext(ctx)

	lookup := func(field string, scope func(*gorm.DB) *gorm.DB) error {
		var ids []string
		tx := scope(db.Model(&models.Program{}))
		if q.ExcludeID != "" {
			tx = tx.Where("id <> ?", q.ExcludeID)
		}
		if err := tx.Limit(1).Pluck("id", &ids).Error; err != nil {
			return fmt.Errorf("failed to check %s: %w", field, err)
		}
		if len(ids) > 0 {
			found[field] = ids[0]
		}
		return nil
	}

	if name := strings.TrimSpace(q.Name); name != "" {
		err := lookup("name", func(tx *gorm.DB) *gorm.DB {
			return tx.Where("LOWER(name) = ? OR slug = ?", strings.ToLower(name), util.Slugify(name))
		})
		if err != nil {
			return nil, err
		}
	}
	if q.WebsiteURL != "" {
		err := lookup("website_url", func(tx *gorm.DB) *gorm.DB {
			return tx.Where("LOWER(website_url) = ?", strings.ToLower(q.WebsiteURL))
		})
		if err != nil {
			return nil, err
		}
	}
	if q.AffiliateURL != "" {
		err := lookup("affiliate_url", func(tx *gorm.DB) *gorm.DB {
			return tx.Where("LOWER(affiliate_url) = ?", strings.ToLower(q.AffiliateURL))
		})
		if err != nil {
			return nil, err
		}
	}
	return found, nil
}

// SitemapEntries lists every visible program slug
func (r *programRepository) SitemapEntries(ctx context.Context) ([]SitemapEntry, error) {
	var entries []SitemapEntry
	err := r.db.WithContext(ctx).Model(&models.Program{}).
		Select("slug, updated_at").
		Where("status IN ?", models.VisibleStatuses).
		Order("slug").
		Scan(&entries).Error
	return entries, err
}

// CountVisible counts publicly visible programs
func (r *programRepository) CountVisible(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Program{}).
		Where("status IN ?", models.VisibleStatuses).
		Count(&count).Error
	return count, err
}

// ScoreBatch returns up to limit programs with id > afterID, ordered by id
func (r *programRepository) ScoreBatch(ctx context.Context, afterID string, limit int) ([]ScoreRow, error) {
	var rows []ScoreRow
	err := r.db.WithContext(ctx).Model(&models.Program{}).
		Select("id, manual_score_boost, created_at").
		Where("id > ?", afterID).
		Order("id").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

// UpdateScore writes the trending score without touching updated_at
func (r *programRepository) UpdateScore(ctx context.Context, id string, score float64) error {
	return r.db.WithContext(ctx).Model(&models.Program{}).
		Where("id = ?", id).
		UpdateColumn("trending_score", score).Error
}

// IDBatch returns up to limit program ids greater than afterID, ordered
func (r *programRepository) IDBatch(ctx context.Context, afterID string, limit int) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.Program{}).
		Where("id > ?", afterID).
		Order("id").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

// UpdateRandomWeight writes the tiebreaker without touching updated_at
func (r *programRepository) UpdateRandomWeight(ctx context.Context, id string, weight float64) error {
	return r.db.WithContext(ctx).Model(&models.Program{}).
		Where("id = ?", id).
		UpdateColumn("random_weight", weight).Error
}

// ClearExpiredFeatures unsets the featured flag on programs whose feature has lapsed
func (r *programRepository) ClearExpiredFeatures(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Program{}).
		Where("is_featured = ? AND (featured_expires_at IS NULL OR featured_expires_at <= ?)", true, now.UTC()).
		UpdateColumns(map[string]any{"is_featured": false, "featured_expires_at": nil})
	return res.RowsAffected, res.Error
}

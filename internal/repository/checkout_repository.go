package repository

import (
	"context"
	"time"

	"github.com/affiliateboard/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CheckoutRepository stores checkout drafts and processed webhook ids
type CheckoutRepository interface {
	CreateDraft(ctx context.Context, draft *models.CheckoutDraft) error
	GetDraft(ctx context.Context, id string) (*models.CheckoutDraft, error)
	SetDraftSession(ctx context.Context, id, sessionID string) error
	AttachProgram(ctx context.Context, draftID, programID string) error
	// MarkProcessed records a webhook event id. It reports false when the id was
	// already recorded.
	MarkProcessed(ctx context.Context, eventID, eventType string, now time.Time) (bool, error)
}

type checkoutRepository struct {
	db *gorm.DB
}

// NewCheckoutRepository creates a new checkout repository. Pass a transaction
// handle to run its operations inside that transaction.
func NewCheckoutRepository(db *gorm.DB) CheckoutRepository {
	return &checkoutRepository{db: db}
}

// CreateDraft stores a pending submission
func (r *checkoutRepository) CreateDraft(ctx context.Context, draft *models.CheckoutDraft) error {
	return r.db.WithContext(ctx).Create(draft).Error
}

// GetDraft loads a draft by id
func (r *checkoutRepository) GetDraft(ctx context.Context, id string) (*models.CheckoutDraft, error) {
	var draft models.CheckoutDraft
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&draft).Error
	if err != nil {
		return nil, translate(err, ErrDraftNotFound)
	}
	return &draft, nil
}

// SetDraftSession remembers the checkout session created for a draft
func (r *checkoutRepository) SetDraftSession(ctx context.Context, id, sessionID string) error {
	return r.db.WithContext(ctx).Model(&models.CheckoutDraft{}).Where("id = ?", id).Update("session_id", sessionID).Error
}

// AttachProgram links a draft to the program created from it
func (r *checkoutRepository) AttachProgram(ctx context.Context, draftID, programID string) error {
	return r.db.WithContext(ctx).Model(&models.CheckoutDraft{}).Where("id = ?", draftID).Update("program_id", programID).Error
}

// MarkProcessed inserts the event id, doing nothing when it already exists
func (r *checkoutRepository) MarkProcessed(ctx context.Context, eventID, eventType string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.WebhookEvent{ID: eventID, Type: eventType, ProcessedAt: now.UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

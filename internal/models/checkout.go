package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CheckoutDraft holds a submission while its "submit and feature" checkout is in
// flight. ProgramID is set once the payment webhook has created the program.
type CheckoutDraft struct {
	ID        string  `gorm:"primaryKey;size:36" json:"id"`
	Payload   string  `gorm:"type:text;not null" json:"-"`
	ProgramID *string `gorm:"size:36" json:"program_id,omitempty"`
	SessionID string  `gorm:"size:255;index" json:"session_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name
func (CheckoutDraft) TableName() string {
	return "checkout_drafts"
}

// BeforeCreate assigns an ID
func (d *CheckoutDraft) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return nil
}

// WebhookEvent records a processed payment-provider event so redelivery is a no-op.
type WebhookEvent struct {
	ID          string    `gorm:"primaryKey;size:255" json:"id"`
	Type        string    `gorm:"size:128" json:"type"`
	ProcessedAt time.Time `json:"processed_at"`
}

// TableName specifies the table name
func (WebhookEvent) TableName() string {
	return "webhook_events"
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Report types
const (
	ReportTypeEdit   = "EDIT"
	ReportTypeReport = "REPORT"
)

// Report statuses
const (
	ReportStatusPending   = "PENDING"
	ReportStatusResolved  = "RESOLVED"
	ReportStatusDismissed = "DISMISSED"
)

// ProgramReport is a moderation ticket filed against a program. EDIT tickets carry
// suggested changes as a JSON-encoded ProgramChanges document.
type ProgramReport struct {
	ID               string     `gorm:"primaryKey;size:36" json:"id"`
	ProgramID        string     `gorm:"not null;size:36;index" json:"program_id"`
	Type             string     `gorm:"not null;size:16;index" json:"type"`
	Status           string     `gorm:"not null;size:16;default:PENDING;index" json:"status"`
	Message          string     `gorm:"type:text" json:"message"`
	ReporterEmail    string     `gorm:"size:255" json:"reporter_email,omitempty"`
	SuggestedChanges string     `gorm:"type:text" json:"suggested_changes,omitempty"`
	AdminNote        string     `gorm:"type:text" json:"admin_note,omitempty"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
	CreatedAt        time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	Program *Program `gorm:"foreignKey:ProgramID;constraint:OnDelete:CASCADE" json:"program,omitempty"`
}

// TableName specifies the table name
func (ProgramReport) TableName() string {
	return "program_reports"
}

// BeforeCreate assigns an ID and default status
func (r *ProgramReport) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Status == "" {
		r.Status = ReportStatusPending
	}
	return nil
}

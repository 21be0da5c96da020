package models

import (
	"time"
)

// Event types recorded in the event store
const (
	EventTypeView  = "VIEW"
	EventTypeClick = "CLICK"
)

// DateKeyLayout is the per-day bucket format used by ProgramEvent.DateKey.
const DateKeyLayout = "2006-01-02"

// DateKey returns the UTC day bucket for t.
func DateKey(t time.Time) string {
	return t.UTC().Format(DateKeyLayout)
}

// ProgramEvent is one view or click per (program, visitor, day). The unique index
// makes repeat interactions within a day no-ops.
type ProgramEvent struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ProgramID string    `gorm:"not null;size:36;uniqueIndex:idx_program_events_dedupe,priority:1;index:idx_program_events_program_date,priority:1" json:"program_id"`
	Type      string    `gorm:"not null;size:8;uniqueIndex:idx_program_events_dedupe,priority:2" json:"type"`
	VisitorID string    `gorm:"not null;size:128;uniqueIndex:idx_program_events_dedupe,priority:3" json:"visitor_id"`
	DateKey   string    `gorm:"not null;size:10;uniqueIndex:idx_program_events_dedupe,priority:4;index:idx_program_events_program_date,priority:2" json:"date_key"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name
func (ProgramEvent) TableName() string {
	return "program_events"
}

package models

import (
	"time"
)

// TrafficLog is one raw page visit. Rows are pruned after the traffic retention window.
type TrafficLog struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Path      string    `gorm:"not null;size:512;index" json:"path"`
	Referrer  string    `gorm:"size:1024" json:"referrer"`
	UserAgent string    `gorm:"size:1024" json:"user_agent"`
	Country   string    `gorm:"size:8" json:"country"`
	VisitorID string    `gorm:"size:128;index" json:"visitor_id"`
	ProgramID *string   `gorm:"size:36;index" json:"program_id,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name
func (TrafficLog) TableName() string {
	return "traffic_logs"
}

// SearchLog is one search query typed by a visitor.
type SearchLog struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Query       string    `gorm:"not null;size:255" json:"query"`
	Normalized  string    `gorm:"not null;size:255;index" json:"normalized"`
	ResultCount int       `gorm:"default:0" json:"result_count"`
	VisitorID   string    `gorm:"size:128" json:"visitor_id"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name
func (SearchLog) TableName() string {
	return "search_logs"
}

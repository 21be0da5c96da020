package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Program statuses. PENDING listings are visible but have not been reviewed yet.
const (
	ProgramStatusPending  = "PENDING"
	ProgramStatusApproved = "APPROVED"
	ProgramStatusRejected = "REJECTED"
)

// VisibleStatuses are the statuses shown on public read paths.
var VisibleStatuses = []string{ProgramStatusPending, ProgramStatusApproved}

// Commission types
const (
	CommissionRecurring = "recurring"
	CommissionOneTime   = "one-time"
	CommissionHybrid    = "hybrid"
)

// Categories is the fixed set of listing categories.
var Categories = []string{
	"AI",
	"Analytics",
	"Design",
	"Developer Tools",
	"E-commerce",
	"Education",
	"Finance",
	"Hosting",
	"Marketing",
	"Productivity",
	"SaaS",
	"Security",
	"Other",
}

// IsValidCategory reports whether name is one of Categories (case-sensitive).
func IsValidCategory(name string) bool {
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}

// FeatureDuration is how long a paid feature lasts.
const FeatureDuration = 30 * 24 * time.Hour

// Program is a single affiliate program listing.
type Program struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	Name        string `gorm:"not null;size:120" json:"name"`
	Slug        string `gorm:"uniqueIndex;not null;size:140" json:"slug"`
	Description string `gorm:"type:text" json:"description"`
	Category    string `gorm:"index;not null;size:64" json:"category"`

	Tags StringArray `gorm:"type:text" json:"tags"`

	WebsiteURL   string `gorm:"not null;size:500" json:"website_url"`
	AffiliateURL string `gorm:"not null;size:500" json:"affiliate_url"`
	LogoURL      string `gorm:"size:500" json:"logo_url"`
	ContactEmail string `gorm:"size:255" json:"-"`

	// Commission terms
	CommissionType  string `gorm:"size:32" json:"commission_type"`
	CommissionValue string `gorm:"size:64" json:"commission_value"`
	CookieDays      int    `gorm:"default:0" json:"cookie_days"`
	PayoutMinimum   string `gorm:"size:64" json:"payout_minimum"`
	PayoutFrequency string `gorm:"size:64" json:"payout_frequency"`

	// Ranking. TrendingScore is a cache written by the recompute job.
	ManualScoreBoost float64 `gorm:"default:0" json:"manual_score_boost"`
	TrendingScore    float64 `gorm:"default:0;index" json:"trending_score"`
	RandomWeight     float64 `gorm:"default:0" json:"-"`

	// Featuring. Use FeatureActive rather than IsFeatured on read paths.
	IsFeatured        bool       `gorm:"default:false;index" json:"is_featured"`
	FeaturedExpiresAt *time.Time `json:"featured_expires_at"`

	// Lifetime counters
	TotalViews int64 `gorm:"default:0" json:"total_views"`
	Clicks     int64 `gorm:"default:0" json:"clicks"`

	Status     string     `gorm:"index;not null;default:PENDING;size:16" json:"status"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name
func (Program) TableName() string {
	return "programs"
}

// BeforeCreate assigns an ID and normalizes defaults
func (p *Program) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Status == "" {
		p.Status = ProgramStatusPending
	}
	p.Name = strings.TrimSpace(p.Name)
	return nil
}

// FeatureActive reports whether the program is featured at now. The stored flag alone
// is not trusted: an expired expiry means not featured.
func (p *Program) FeatureActive(now time.Time) bool {
	return p.IsFeatured && p.FeaturedExpiresAt != nil && p.FeaturedExpiresAt.After(now)
}

// IsVisible reports whether the program appears on public read paths.
func (p *Program) IsVisible() bool {
	return p.Status == ProgramStatusPending || p.Status == ProgramStatusApproved
}

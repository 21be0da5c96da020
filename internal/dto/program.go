package dto

import (
	"strings"
	"time"

	"github.com/affiliateboard/backend/internal/models"
)

// ProgramResponse is the public program representation. IsFeatured is the
// feature-active state at response time, not the stored flag.
type ProgramResponse struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Slug              string     `json:"slug"`
	Description       string     `json:"description"`
	Category          string     `json:"category"`
	Tags              []string   `json:"tags"`
	WebsiteURL        string     `json:"website_url"`
	AffiliateURL      string     `json:"affiliate_url"`
	LogoURL           string     `json:"logo_url,omitempty"`
	CommissionType    string     `json:"commission_type,omitempty"`
	CommissionValue   string     `json:"commission_value,omitempty"`
	CookieDays        int        `json:"cookie_days"`
	PayoutMinimum     string     `json:"payout_minimum,omitempty"`
	PayoutFrequency   string     `json:"payout_frequency,omitempty"`
	TrendingScore     float64    `json:"trending_score"`
	IsFeatured        bool       `json:"is_featured"`
	FeaturedExpiresAt *time.Time `json:"featured_expires_at,omitempty"`
	TotalViews        int64      `json:"total_views"`
	Clicks            int64      `json:"clicks"`
	Status            string     `json:"status"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// AdminProgramResponse adds the fields only the admin sees
type AdminProgramResponse struct {
	ProgramResponse
	ContactEmail     string     `json:"contact_email,omitempty"`
	ManualScoreBoost float64    `json:"manual_score_boost"`
	RandomWeight     float64    `json:"random_weight"`
	FeaturedFlag     bool       `json:"featured_flag"`
	ReviewedAt       *time.Time `json:"reviewed_at,omitempty"`
}

// ProgramListResponse is a page of programs
type ProgramListResponse struct {
	Programs []ProgramResponse `json:"programs"`
	Total    int64             `json:"total"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

// CategoryCount is one row of the categories endpoint
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// ToProgramResponse converts a program for public output
func ToProgramResponse(p *models.Program, now time.Time) ProgramResponse {
	tags := []string(p.Tags)
	if tags == nil {
		tags = []string{}
	}
	resp := ProgramResponse{
		ID:              p.ID,
		Name:            p.Name,
		Slug:            p.Slug,
		Description:     p.Description,
		Category:        p.Category,
		Tags:            tags,
		WebsiteURL:      p.WebsiteURL,
		AffiliateURL:    p.AffiliateURL,
		LogoURL:         p.LogoURL,
		CommissionType:  p.CommissionType,
		CommissionValue: p.CommissionValue,
		CookieDays:      p.CookieDays,
		PayoutMinimum:   p.PayoutMinimum,
		PayoutFrequency: p.PayoutFrequency,
		TrendingScore:   p.TrendingScore,
		IsFeatured:      p.FeatureActive(now),
		TotalViews:      p.TotalViews,
		Clicks:          p.Clicks,
		Status:          p.Status,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
	if resp.IsFeatured {
		resp.FeaturedExpiresAt = p.FeaturedExpiresAt
	}
	return resp
}

// ToProgramResponses converts a slice, keeping order
func ToProgramResponses(programs []models.Program, now time.Time) []ProgramResponse {
	out := make([]ProgramResponse, 0, len(programs))
	for i := range programs {
		out = append(out, ToProgramResponse(&programs[i], now))
	}
	return out
}

// ToAdminProgramResponse converts a program for the admin API
func ToAdminProgramResponse(p *models.Program, now time.Time) AdminProgramResponse {
	resp := AdminProgramResponse{
		ProgramResponse:  ToProgramResponse(p, now),
		ContactEmail:     p.ContactEmail,
		ManualScoreBoost: p.ManualScoreBoost,
		RandomWeight:     p.RandomWeight,
		FeaturedFlag:     p.IsFeatured,
		ReviewedAt:       p.ReviewedAt,
	}
	resp.FeaturedExpiresAt = p.FeaturedExpiresAt
	return resp
}

// CreateProgramRequest is a public submission
type CreateProgramRequest struct {
	Name            string   `json:"name" validate:"required,min=2,max=120"`
	Description     string   `json:"description" validate:"max=5000"`
	Category        string   `json:"category" validate:"required,category"`
	Tags            []string `json:"tags" validate:"max=10,dive,min=1,max=32"`
	WebsiteURL      string   `json:"website_url" validate:"required,http_url,max=500"`
	AffiliateURL    string   `json:"affiliate_url" validate:"required,http_url,max=500"`
	LogoURL         string   `json:"logo_url" validate:"omitempty,http_url,max=500"`
	ContactEmail    string   `json:"contact_email" validate:"omitempty,email,max=255"`
	CommissionType  string   `json:"commission_type" validate:"omitempty,commission_type"`
	CommissionValue string   `json:"commission_value" validate:"max=64"`
	CookieDays      int      `json:"cookie_days" validate:"gte=0,lte=3650"`
	PayoutMinimum   string   `json:"payout_minimum" validate:"max=64"`
	PayoutFrequency string   `json:"payout_frequency" validate:"max=64"`
}

// ToModel builds an unsaved program from the submission. Slug is assigned by the repository.
func (r *CreateProgramRequest) ToModel() *models.Program {
	return &models.Program{
		Name:            strings.TrimSpace(r.Name),
		Description:     strings.TrimSpace(r.Description),
		Category:        r.Category,
		Tags:            models.NormalizeTags(r.Tags),
		WebsiteURL:      strings.TrimSpace(r.WebsiteURL),
		AffiliateURL:    strings.TrimSpace(r.AffiliateURL),
		LogoURL:         strings.TrimSpace(r.LogoURL),
		ContactEmail:    strings.TrimSpace(r.ContactEmail),
		CommissionType:  r.CommissionType,
		CommissionValue: strings.TrimSpace(r.CommissionValue),
		CookieDays:      r.CookieDays,
		PayoutMinimum:   strings.TrimSpace(r.PayoutMinimum),
		PayoutFrequency: strings.TrimSpace(r.PayoutFrequency),
		Status:          models.ProgramStatusPending,
	}
}

// ProgramChanges is the set of listing fields a suggested edit may touch. Nil
// fields are left unchanged.
type ProgramChanges struct {
	Name            *string   `json:"name,omitempty" validate:"omitempty,min=2,max=120"`
	Description     *string   `json:"description,omitempty" validate:"omitempty,max=5000"`
	Category        *string   `json:"category,omitempty" validate:"omitempty,category"`
	Tags            *[]string `json:"tags,omitempty" validate:"omitempty,max=10,dive,min=1,max=32"`
	WebsiteURL      *string   `json:"website_url,omitempty" validate:"omitempty,http_url,max=500"`
	AffiliateURL    *string   `json:"affiliate_url,omitempty" validate:"omitempty,http_url,max=500"`
	LogoURL         *string   `json:"logo_url,omitempty" validate:"omitempty,http_url,max=500"`
	CommissionType  *string   `json:"commission_type,omitempty" validate:"omitempty,commission_type"`
	CommissionValue *string   `json:"commission_value,omitempty" validate:"omitempty,max=64"`
	CookieDays      *int      `json:"cookie_days,omitempty" validate:"omitempty,gte=0,lte=3650"`
	PayoutMinimum   *string   `json:"payout_minimum,omitempty" validate:"omitempty,max=64"`
	PayoutFrequency *string   `json:"payout_frequency,omitempty" validate:"omitempty,max=64"`
}

// Columns returns the column updates for the non-nil fields
func (c *ProgramChanges) Columns() map[string]any {
	cols := map[string]any{}
	setString(cols, "name", c.Name)
	setString(cols, "description", c.Description)
	setString(cols, "category", c.Category)
	setString(cols, "website_url", c.WebsiteURL)
	setString(cols, "affiliate_url", c.AffiliateURL)
	setString(cols, "logo_url", c.LogoURL)
	setString(cols, "commission_type", c.CommissionType)
	setString(cols, "commission_value", c.CommissionValue)
	setString(cols, "payout_minimum", c.PayoutMinimum)
	setString(cols, "payout_frequency", c.PayoutFrequency)
	if c.Tags != nil {
		cols["tags"] = models.NormalizeTags(*c.Tags)
	}
	if c.CookieDays != nil {
		cols["cookie_days"] = *c.CookieDays
	}
	return cols
}

// URLs returns the URL fields being changed, keyed by JSON field name
func (c *ProgramChanges) URLs() map[string]string {
	urls := map[string]string{}
	if c.WebsiteURL != nil {
		urls["website_url"] = strings.TrimSpace(*c.WebsiteURL)
	}
	if c.AffiliateURL != nil {
		urls["affiliate_url"] = strings.TrimSpace(*c.AffiliateURL)
	}
	return urls
}

// UpdateProgramRequest is the admin update body. Only the listed fields are accepted.
type UpdateProgramRequest struct {
	ProgramChanges

	Slug             *string  `json:"slug,omitempty" validate:"omitempty,min=1,max=140"`
	ContactEmail     *string  `json:"contact_email,omitempty" validate:"omitempty,email,max=255"`
	ManualScoreBoost *float64 `json:"manual_score_boost,omitempty" validate:"omitempty,gte=-10000,lte=10000"`
	Status           *string  `json:"status,omitempty" validate:"omitempty,oneof=PENDING APPROVED REJECTED"`
}

// Columns returns the column updates for the non-nil fields
func (r *UpdateProgramRequest) Columns() map[string]any {
	cols := r.ProgramChanges.Columns()
	setString(cols, "slug", r.Slug)
	setString(cols, "contact_email", r.ContactEmail)
	setString(cols, "status", r.Status)
	if r.ManualScoreBoost != nil {
		cols["manual_score_boost"] = *r.ManualScoreBoost
	}
	return cols
}

// FeatureRequest manually features a program. Days defaults to 30.
type FeatureRequest struct {
	Days int `json:"days" validate:"omitempty,gte=1,lte=365"`
}

func setString(cols map[string]any, column string, v *string) {
	if v != nil {
		cols[column] = strings.TrimSpace(*v)
	}
}

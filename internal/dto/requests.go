package dto

import (
	"time"

	"github.com/affiliateboard/backend/internal/models"
)

// TrackRequest is the optional body of the view/click endpoints
type TrackRequest struct {
	VisitorID string `json:"visitor_id" validate:"omitempty,max=128"`
}

// TrackResponse reports whether a stat write counted
type TrackResponse struct {
	Status   string `json:"status"`
	Recorded bool   `json:"recorded"`
}

// PageviewRequest is the page-view beacon body
type PageviewRequest struct {
	Path      string `json:"path" validate:"required,max=512"`
	Referrer  string `json:"referrer" validate:"max=1024"`
	ProgramID string `json:"program_id" validate:"omitempty,max=36"`
	VisitorID string `json:"visitor_id" validate:"omitempty,max=128"`
}

// ValidateURLRequest checks a URL before it is put into a form
type ValidateURLRequest struct {
	URL string `json:"url" validate:"required,max=2048"`
}

// ValidateURLResponse is the outcome of a URL check
type ValidateURLResponse struct {
	Valid      bool   `json:"valid"`
	Normalized string `json:"normalized,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// DuplicateCheckResponse lists the fields already used by another program
type DuplicateCheckResponse struct {
	Duplicate bool              `json:"duplicate"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// LoginRequest is the admin login body
type LoginRequest struct {
	Password string `json:"password" validate:"required,max=256"`
}

// SessionResponse describes the admin session
type SessionResponse struct {
	Authenticated bool       `json:"authenticated"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// CreateReportRequest is the public report form
type CreateReportRequest struct {
	ProgramID        string          `json:"program_id" validate:"required,max=36"`
	Type             string          `json:"type" validate:"required,oneof=EDIT REPORT"`
	Message          string          `json:"message" validate:"required,min=3,max=2000"`
	ReporterEmail    string          `json:"reporter_email" validate:"omitempty,email,max=255"`
	SuggestedChanges *ProgramChanges `json:"suggested_changes" validate:"required_if=Type EDIT"`
}

// UpdateReportRequest is the admin moderation body. ApplyChanges applies an EDIT
// ticket's suggested changes to its program when resolving it.
type UpdateReportRequest struct {
	Status       *string `json:"status" validate:"omitempty,oneof=PENDING RESOLVED DISMISSED"`
	AdminNote    *string `json:"admin_note" validate:"omitempty,max=2000"`
	ApplyChanges bool    `json:"apply_changes"`
}

// ReportResponse is a moderation ticket in admin output
type ReportResponse struct {
	ID               string          `json:"id"`
	ProgramID        string          `json:"program_id"`
	ProgramName      string          `json:"program_name,omitempty"`
	Type             string          `json:"type"`
	Status           string          `json:"status"`
	Message          string          `json:"message"`
	ReporterEmail    string          `json:"reporter_email,omitempty"`
	SuggestedChanges *ProgramChanges `json:"suggested_changes,omitempty"`
	AdminNote        string          `json:"admin_note,omitempty"`
	ResolvedAt       *time.Time      `json:"resolved_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// CheckoutRequest starts a featuring checkout for an existing program or a new submission
type CheckoutRequest struct {
	ProgramID string                `json:"program_id" validate:"omitempty,max=36"`
	Program   *CreateProgramRequest `json:"program" validate:"required_without=ProgramID"`
}

// CheckoutResponse carries the hosted checkout URL
type CheckoutResponse struct {
	URL       string `json:"url"`
	SessionID string `json:"session_id"`
}

// UploadResponse describes a stored logo
type UploadResponse struct {
	URL  string `json:"url"`
	Key  string `json:"key"`
	Size int64  `json:"size"`
}

// ToReportResponse converts a report. changes is the decoded suggestion, if any.
func ToReportResponse(r *models.ProgramReport, changes *ProgramChanges) ReportResponse {
	resp := ReportResponse{
		ID:               r.ID,
		ProgramID:        r.ProgramID,
		Type:             r.Type,
		Status:           r.Status,
		Message:          r.Message,
		ReporterEmail:    r.ReporterEmail,
		SuggestedChanges: changes,
		AdminNote:        r.AdminNote,
		ResolvedAt:       r.ResolvedAt,
		CreatedAt:        r.CreatedAt,
	}
	if r.Program != nil {
		resp.ProgramName = r.Program.Name
	}
	return resp
}

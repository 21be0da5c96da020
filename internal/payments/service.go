package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/stripe/stripe-go/v81"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/affiliateboard/backend/internal/dto"
	"github.com/affiliateboard/backend/internal/email"
	"github.com/affiliateboard/backend/internal/logger"
	"github.com/affiliateboard/backend/internal/metrics"
	"github.com/affiliateboard/backend/internal/models"
	"github.com/affiliateboard/backend/internal/repository"
)

// Webhook outcomes, also used as the metrics label
const (
	OutcomeFeatured  = "featured"
	OutcomeCreated   = "created"
	OutcomeDuplicate = "duplicate"
	OutcomeIgnored   = "ignored"
)

// Service runs checkout creation and webhook fulfilment
type Service struct {
	db            *gorm.DB
	gateway       Gateway
	webhookSecret string
	baseURL       string
	metrics       *metrics.Metrics
	notifier      email.Notifier
	now           func() time.Time
}

// NewService creates the payment service. gateway may be nil when checkout is
// disabled; webhooks still verify against webhookSecret.
func NewService(db *gorm.DB, gateway Gateway, webhookSecret, baseURL string, m *metrics.Metrics) *Service {
	return &Service{
		db:            db,
		gateway:       gateway,
		webhookSecret: webhookSecret,
		baseURL:       strings.TrimSuffix(baseURL, "/"),
		metrics:       m,
		now:           time.Now,
	}
}

// WithNotifier sets who is told about fulfilled feature payments
func (s *Service) WithNotifier(n email.Notifier) *Service {
	s.notifier = n
	return s
}

// CheckoutForProgram opens a checkout that features an existing program
func (s *Service) CheckoutForProgram(ctx context.Context, programID string) (*dto.CheckoutResponse, error) {
	if s.gateway == nil {
		return nil, ErrNotConfigured
	}
	program, err := repository.NewProgramRepository(s.db).GetByIDOrSlug(ctx, programID)
	if err != nil {
		return nil, err
	}

	sess, err := s.gateway.CreateCheckoutSession(ctx, SessionRequest{
		ProgramID:   program.ID,
		ProgramName: program.Name,
		SuccessURL:  s.baseURL + "/programs/" + program.Slug + "?featured=1",
		CancelURL:   s.baseURL + "/programs/" + program.Slug,
	})
	if err != nil {
		return nil, err
	}
	return &dto.CheckoutResponse{URL: sess.URL, SessionID: sess.ID}, nil
}

// CheckoutForSubmission stores the submission as a draft and opens a checkout for it.
// The program is only created once payment succeeds.
func (s *Service) CheckoutForSubmission(ctx context.Context, submission *dto.CreateProgramRequest) (*dto.CheckoutResponse, error) {
	if s.gateway == nil {
		return nil, ErrNotConfigured
	}
	payload, err := json.Marshal(submission)
	if err != nil {
		return nil, fmt.Errorf("failed to encode draft: %w", err)
	}

	drafts := repository.NewCheckoutRepository(s.db)
	draft := &models.CheckoutDraft{Payload: string(payload)}
	if err := drafts.CreateDraft(ctx, draft); err != nil {
		return nil, fmt.Errorf("failed to create draft: %w", err)
	}

	sess, err := s.gateway.CreateCheckoutSession(ctx, SessionRequest{
		DraftID:     draft.ID,
		ProgramName: strings.TrimSpace(submission.Name),
		SuccessURL:  s.baseURL + "/submit/success?draft=" + draft.ID,
		CancelURL:   s.baseURL + "/submit",
	})
	if err != nil {
		return nil, err
	}
	if err := drafts.SetDraftSession(ctx, draft.ID, sess.ID); err != nil {
		logger.Log.Warn("Failed to store checkout session on draft", zap.String("draft_id", draft.ID), zap.Error(err))
	}
	return &dto.CheckoutResponse{URL: sess.URL, SessionID: sess.ID}, nil
}

// HandleWebhook verifies and applies a Stripe event. Each event id is applied at
// most once; the id is recorded in the same transaction as its effect.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (string, error) {
	event, err := VerifyWebhook(payload, signature, s.webhookSecret)
	if err != nil {
		s.metrics.RecordWebhook("unknown", "rejected")
		return "", err
	}
	eventType := string(event.Type)

	var outcome string
	var featured *models.Program
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fresh, err := repository.NewCheckoutRepository(tx).MarkProcessed(ctx, event.ID, eventType, s.now())
		if err != nil {
			return fmt.Errorf("failed to record webhook event: %w", err)
		}
		if !fresh {
			outcome = OutcomeDuplicate
			return nil
		}

		outcome, featured, err = s.apply(ctx, tx, event)
		return err
	})
	if err != nil {
		s.metrics.RecordWebhook(eventType, "error")
		return "", err
	}

	s.metrics.RecordWebhook(eventType, outcome)
	logger.Log.Info("Stripe webhook handled",
		zap.String("event_id", event.ID),
		zap.String("event_type", eventType),
		zap.String("outcome", outcome),
	)
	if featured != nil && s.notifier != nil {
		if err := s.notifier.ProgramFeatured(ctx, featured); err != nil {
			logger.Log.Warn("Failed to notify about featured program", logger.WithProgramID(featured.ID), zap.Error(err))
		}
	}
	return outcome, nil
}

// apply runs the effect of a fresh event inside tx and returns the program it
// featured, if any
func (s *Service) apply(ctx context.Context, tx *gorm.DB, event stripe.Event) (string, *models.Program, error) {
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
	default:
		return OutcomeIgnored, nil, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return "", nil, fmt.Errorf("failed to decode checkout session: %w", err)
	}
	if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return OutcomeIgnored, nil, nil
	}

	until := s.now().UTC().Add(models.FeatureDuration)
	programs := repository.NewProgramRepository(tx)

	if programID := sess.Metadata[MetadataProgramID]; programID != "" {
		return s.feature(ctx, programs, programID, until)
	}

	draftID := sess.Metadata[MetadataDraftID]
	if draftID == "" {
		logger.Log.Warn("Paid checkout session without program or draft", zap.String("session_id", sess.ID))
		return OutcomeIgnored, nil, nil
	}

	drafts := repository.NewCheckoutRepository(tx)
	draft, err := drafts.GetDraft(ctx, draftID)
	if errors.Is(err, repository.ErrDraftNotFound) {
		logger.Log.Warn("Paid checkout session for unknown draft", zap.String("draft_id", draftID))
		return OutcomeIgnored, nil, nil
	}
	if err != nil {
		return "", nil, err
	}
	if draft.ProgramID != nil {
		return s.feature(ctx, programs, *draft.ProgramID, until)
	}

	var submission dto.CreateProgramRequest
	if err := json.Unmarshal([]byte(draft.Payload), &submission); err != nil {
		return "", nil, fmt.Errorf("failed to decode draft %s: %w", draft.ID, err)
	}
	program := submission.ToModel()
	program.Status = models.ProgramStatusApproved
	program.IsFeatured = true
	program.FeaturedExpiresAt = &until
	reviewed := s.now().UTC()
	program.ReviewedAt = &reviewed

	if err := programs.Create(ctx, program); err != nil {
		return "", nil, fmt.Errorf("failed to create program from draft: %w", err)
	}
	if err := drafts.AttachProgram(ctx, draft.ID, program.ID); err != nil {
		return "", nil, fmt.Errorf("failed to attach program to draft: %w", err)
	}
	return OutcomeCreated, program, nil
}

func (s *Service) feature(ctx context.Context, programs repository.ProgramRepository, id string, until time.Time) (string, *models.Program, error) {
	program, err := programs.Feature(ctx, id, until)
	if errors.Is(err, repository.ErrProgramNotFound) {
		logger.Log.Warn("Paid checkout session for unknown program", logger.WithProgramID(id))
		return OutcomeIgnored, nil, nil
	}
	if err != nil {
		return "", nil, err
	}
	return OutcomeFeatured, program, nil
}

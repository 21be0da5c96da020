// Package payments sells featured listings through Stripe Checkout and applies
// the result when the payment webhook arrives.
package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/affiliateboard/backend/internal/config"
)

// Session metadata keys
const (
	MetadataProgramID = "programId"
	MetadataDraftID   = "draftId"
)

var (
	ErrNotConfigured    = errors.New("payments are not configured")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// SessionRequest describes the checkout to open. Exactly one of ProgramID and
// DraftID is set.
type SessionRequest struct {
	ProgramID   string
	DraftID     string
	ProgramName string
	SuccessURL  string
	CancelURL   string
}

// Session is a created checkout session
type Session struct {
	ID  string
	URL string
}

// Gateway opens checkout sessions with the payment provider
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error)
}

// StripeGateway creates one-time-price Stripe Checkout sessions
type StripeGateway struct {
	api        *client.API
	priceCents int64
	currency   string
}

// NewStripeGateway builds a gateway from cfg. It returns nil when no secret key is set.
func NewStripeGateway(cfg config.StripeConfig) *StripeGateway {
	if cfg.SecretKey == "" {
		return nil
	}
	return &StripeGateway{
		api:        client.New(cfg.SecretKey, nil),
		priceCents: cfg.FeaturePriceCents,
		currency:   cfg.Currency,
	}
}

// CreateCheckoutSession opens a payment-mode session for a 30-day featured listing
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if g == nil {
		return nil, ErrNotConfigured
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(g.currency),
					UnitAmount: stripe.Int64(g.priceCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(fmt.Sprintf("Featured listing: %s (30 days)", req.ProgramName)),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx
	if req.ProgramID != "" {
		params.AddMetadata(MetadataProgramID, req.ProgramID)
		params.ClientReferenceID = stripe.String(req.ProgramID)
	}
	if req.DraftID != "" {
		params.AddMetadata(MetadataDraftID, req.DraftID)
	}

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}
	return &Session{ID: sess.ID, URL: sess.URL}, nil
}

// VerifyWebhook checks the Stripe-Signature header and parses the event. API version
// mismatches are tolerated; only the session fields below are read.
func VerifyWebhook(payload []byte, signature, secret string) (stripe.Event, error) {
	if secret == "" {
		return stripe.Event{}, ErrNotConfigured
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return event, nil
}

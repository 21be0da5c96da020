package handlers

import (
	stderrors "errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/affiliateboard/backend/internal/dto"
	"github.com/affiliateboard/backend/internal/errors"
	"github.com/affiliateboard/backend/internal/logger"
	"github.com/affiliateboard/backend/internal/payments"
	"github.com/affiliateboard/backend/internal/util"
)

// maxWebhookBody caps the Stripe payload read
const maxWebhookBody = 1 << 20

// CreateCheckout opens a Stripe Checkout for featuring an existing program, or
// for a new submission that is created once payment succeeds.
// POST /api/checkout
func (h *Handlers) CreateCheckout(c *gin.Context) {
	if h.payments == nil {
		util.RespondWithAPIError(c, errors.ServiceUnavailable("payments"))
		return
	}

	var req dto.CheckoutRequest
	if !util.BindStrictJSON(c, &req) {
		return
	}

	var (
		resp *dto.CheckoutResponse
		err  error
	)
	if req.ProgramID != "" {
		resp, err = h.payments.CheckoutForProgram(c.Request.Context(), req.ProgramID)
	} else {
		// Same checks as a free submission, before the customer pays.
		program, apiErr := h.prepareSubmission(c, req.Program)
		if apiErr != nil {
			util.RespondWithAPIError(c, apiErr)
			return
		}
		req.Program.WebsiteURL = program.WebsiteURL
		req.Program.AffiliateURL = program.AffiliateURL
		resp, err = h.payments.CheckoutForSubmission(c.Request.Context(), req.Program)
	}
	if err != nil {
		if stderrors.Is(err, payments.ErrNotConfigured) {
			util.RespondWithAPIError(c, errors.ServiceUnavailable("payments"))
			return
		}
		respondRepoError(c, err, "checkout", "create")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// StripeWebhook verifies and applies a Stripe event. Bad signatures get 400 and
// change nothing; processing errors get 500 so Stripe retries.
// POST /api/webhooks/stripe
func (h *Handlers) StripeWebhook(c *gin.Context) {
	if h.payments == nil {
		util.RespondWithAPIError(c, errors.ServiceUnavailable("payments"))
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
	if err != nil {
		util.RespondBadRequest(c, "failed to read request body")
		return
	}
	if len(payload) > maxWebhookBody {
		util.RespondWithAPIError(c, errors.PayloadTooLarge("1MB"))
		return
	}

	outcome, err := h.payments.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"received": true, "outcome": outcome})
	case stderrors.Is(err, payments.ErrInvalidSignature):
		logger.Log.Warn("Stripe webhook signature rejected", logger.WithIP(c.ClientIP()), zap.Error(err))
		util.RespondWithAPIError(c, errors.InvalidSignature())
	case stderrors.Is(err, payments.ErrNotConfigured):
		util.RespondWithAPIError(c, errors.ServiceUnavailable("payments"))
	default:
		logger.Log.Error("Stripe webhook failed", zap.Error(err))
		util.RespondInternalError(c, "failed to process webhook")
	}
}

package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	appinvoicing "github.com/wasatpay/backend/internal/application/invoicing"
	"github.com/wasatpay/backend/internal/infrastructure/gateway"
	"github.com/wasatpay/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// maxWebhookBodySize caps webhook payloads at 1 MiB
const maxWebhookBodySize = 1 << 20

// PaymentGateway verifies and normalizes one provider's webhook deliveries
type PaymentGateway interface {
	ParseEvent(payload []byte, signature string) (appinvoicing.ProviderEvent, bool, error)
}

// WebhookHandler receives payment provider webhooks, verifies them through
// the matching gateway and hands normalized events to the webhook service.
type WebhookHandler struct {
	BaseHandler
	stripe         PaymentGateway
	flutterwave    PaymentGateway
	webhookService *appinvoicing.WebhookService
	logger         *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler. Gateways may be nil when a
// provider is not configured; its endpoint then rejects deliveries.
func NewWebhookHandler(
	stripe PaymentGateway,
	flutterwave PaymentGateway,
	webhookService *appinvoicing.WebhookService,
	logger *zap.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		stripe:         stripe,
		flutterwave:    flutterwave,
		webhookService: webhookService,
		logger:         logger,
	}
}

// Stripe handles Stripe webhook deliveries
func (h *WebhookHandler) Stripe(c *gin.Context) {
	h.handle(c, h.stripe, "stripe", c.GetHeader("Stripe-Signature"))
}

// Flutterwave handles Flutterwave webhook deliveries
func (h *WebhookHandler) Flutterwave(c *gin.Context) {
	h.handle(c, h.flutterwave, "flutterwave", c.GetHeader("verif-hash"))
}

func (h *WebhookHandler) handle(c *gin.Context, gw PaymentGateway, provider, signature string) {
	if gw == nil {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeInternal,
			"Webhook receiver is not configured for this provider")
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodySize))
	if err != nil {
		h.BadRequest(c, "Failed to read request body")
		return
	}

	evt, ok, err := gw.ParseEvent(payload, signature)
	if err != nil {
		if errors.Is(err, gateway.ErrInvalidSignature) {
			h.logger.Warn("Webhook signature verification failed",
				zap.String("provider", provider))
			h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidSignature,
				"Webhook signature verification failed")
			return
		}
		h.logger.Warn("Webhook payload rejected",
			zap.String("provider", provider),
			zap.Error(err))
		h.BadRequest(c, "Invalid webhook payload")
		return
	}
	if !ok {
		// Event types we don't consume are acknowledged so the provider
		// stops retrying
		h.Success(c, appinvoicing.WebhookResult{Processed: false, Message: "Event ignored"})
		return
	}

	result, err := h.webhookService.HandleProviderEvent(c.Request.Context(), evt)
	if err != nil {
		h.logger.Error("Webhook processing failed",
			zap.String("provider", provider),
			zap.String("event_id", evt.EventID),
			zap.Error(err))
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

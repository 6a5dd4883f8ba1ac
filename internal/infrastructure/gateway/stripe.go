// Package gateway adapts payment provider webhooks into normalized provider
// events. Each adapter owns signature verification and payload parsing for
// one provider; provider specifics never leave this package.
package gateway

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	appinvoicing "github.com/wasatpay/backend/internal/application/invoicing"
	"github.com/wasatpay/backend/internal/domain/invoicing"
	"go.uber.org/zap"
)

// ErrInvalidSignature indicates the webhook payload failed signature
// verification. Handlers should respond 400 without retry semantics.
var ErrInvalidSignature = errors.New("webhook signature verification failed")

// StripeGateway verifies and parses Stripe webhook deliveries
type StripeGateway struct {
	webhookSecret string
	logger        *zap.Logger
}

// NewStripeGateway creates a Stripe webhook adapter
func NewStripeGateway(webhookSecret string, logger *zap.Logger) *StripeGateway {
	return &StripeGateway{
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

// ParseEvent verifies the Stripe-Signature header and normalizes the event.
// The second return value is false for event types this system does not
// consume; such deliveries should be acknowledged without processing.
func (g *StripeGateway) ParseEvent(payload []byte, signature string) (appinvoicing.ProviderEvent, bool, error) {
	event, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		g.logger.Warn("Stripe signature verification failed", zap.Error(err))
		return appinvoicing.ProviderEvent{}, false, ErrInvalidSignature
	}
	return g.normalize(event)
}

// normalize translates a verified Stripe event into a provider event
func (g *StripeGateway) normalize(event stripe.Event) (appinvoicing.ProviderEvent, bool, error) {
	switch event.Type {
	case "payment_intent.succeeded", "payment_intent.payment_failed":
	default:
		g.logger.Debug("Ignoring Stripe event type",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)))
		return appinvoicing.ProviderEvent{}, false, nil
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return appinvoicing.ProviderEvent{}, false, fmt.Errorf("failed to unmarshal payment intent: %w", err)
	}
	if intent.ID == "" {
		return appinvoicing.ProviderEvent{}, false, fmt.Errorf("stripe event %s has no payment intent id", event.ID)
	}

	evt := appinvoicing.ProviderEvent{
		Provider:      invoicing.PaymentProviderStripe,
		EventID:       event.ID,
		CorrelationID: intent.ID,
		Outcome:       appinvoicing.ProviderOutcomeSuccess,
	}
	if intent.LatestCharge != nil {
		evt.TransactionID = intent.LatestCharge.ID
	}

	if event.Type == "payment_intent.payment_failed" {
		evt.Outcome = appinvoicing.ProviderOutcomeFailure
		if intent.LastPaymentError != nil {
			evt.FailureReason = intent.LastPaymentError.Msg
			evt.FailureCode = string(intent.LastPaymentError.Code)
		}
	}

	return evt, true, nil
}

package invoicing

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/wasatpay/backend/internal/domain/invoicing"
	"github.com/wasatpay/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ProviderOutcome is the normalized result of a provider payment event
type ProviderOutcome string

const (
	ProviderOutcomeSuccess ProviderOutcome = "SUCCESS"
	ProviderOutcomeFailure ProviderOutcome = "FAILURE"
)

// ProviderEvent is a payment gateway webhook normalized into provider-agnostic
// form. The gateway adapters verify signatures and parse payloads; by the time
// an event reaches the service the provider specifics are gone.
type ProviderEvent struct {
	Provider      invoicing.PaymentProvider
	EventID       string
	CorrelationID string // payment intent id, transaction id or reference
	Outcome       ProviderOutcome
	TransactionID string
	ProcessingFee decimal.Decimal
	FailureReason string
	FailureCode   string
}

// WebhookResult reports how a provider event was handled
type WebhookResult struct {
	EventID   string `json:"event_id"`
	Processed bool   `json:"processed"`
	Message   string `json:"message,omitempty"`
}

// WebhookService applies normalized provider events to payments
type WebhookService struct {
	uow         invoicing.UnitOfWork
	policy      invoicing.PaymentTransitionPolicy
	idempotency shared.IdempotencyStore
	idemConfig  shared.IdempotencyConfig
	logger      *zap.Logger
}

// NewWebhookService creates a new WebhookService. A nil idempotency store
// disables duplicate suppression.
func NewWebhookService(
	uow invoicing.UnitOfWork,
	policy invoicing.PaymentTransitionPolicy,
	idempotency shared.IdempotencyStore,
	idemConfig shared.IdempotencyConfig,
	logger *zap.Logger,
) *WebhookService {
	if policy == nil {
		policy = invoicing.PermissivePaymentPolicy{}
	}
	return &WebhookService{
		uow:         uow,
		policy:      policy,
		idempotency: idempotency,
		idemConfig:  idemConfig,
		logger:      logger,
	}
}

// HandleProviderEvent applies one provider event to the matching payment.
// Events with no matching payment are acknowledged without error so providers
// stop retrying; duplicate events are suppressed via the idempotency store.
func (s *WebhookService) HandleProviderEvent(ctx context.Context, evt ProviderEvent) (*WebhookResult, error) {
	if evt.CorrelationID == "" {
		return nil, invoicing.NewValidationError("Provider event has no correlation ID")
	}
	if evt.Outcome != ProviderOutcomeSuccess && evt.Outcome != ProviderOutcomeFailure {
		return nil, invoicing.NewValidationError(fmt.Sprintf("Unknown provider outcome %q", evt.Outcome))
	}

	result := &WebhookResult{EventID: evt.EventID}

	if s.idempotency != nil && s.idemConfig.Enabled && evt.EventID != "" {
		key := fmt.Sprintf("webhook:%s:%s", evt.Provider, evt.EventID)
		fresh, err := s.idempotency.MarkProcessed(ctx, key, s.idemConfig.TTL)
		if err != nil {
			// The store being down must not drop payment confirmations
			s.logger.Warn("Idempotency store unavailable, processing anyway",
				zap.String("event_id", evt.EventID),
				zap.Error(err))
		} else if !fresh {
			s.logger.Info("Duplicate provider event suppressed",
				zap.String("provider", string(evt.Provider)),
				zap.String("event_id", evt.EventID))
			result.Message = "Duplicate event"
			return result, nil
		}
	}

	err := s.uow.Execute(ctx, func(repos invoicing.Repositories) error {
		p, err := repos.Payments.FindByProviderCorrelation(ctx, evt.Provider, evt.CorrelationID)
		if err != nil {
			return err
		}

		p.SetProviderCorrelation("", evt.TransactionID, "")
		if evt.ProcessingFee.IsPositive() {
			if err := p.SetProcessingFee(evt.ProcessingFee); err != nil {
				return err
			}
		}

		update := invoicing.StatusUpdate{
			NewStatus: invoicing.PaymentStatusCompleted,
			Notes:     fmt.Sprintf("Confirmed by %s webhook", evt.Provider),
		}
		if evt.Outcome == ProviderOutcomeFailure {
			update = invoicing.StatusUpdate{
				NewStatus:     invoicing.PaymentStatusFailed,
				Notes:         fmt.Sprintf("Declined by %s webhook", evt.Provider),
				FailureReason: evt.FailureReason,
				FailureCode:   evt.FailureCode,
			}
		}
		if err := p.UpdateStatus(update, s.policy); err != nil {
			return err
		}
		if err := repos.Payments.SaveWithLock(ctx, p); err != nil {
			return err
		}
		if update.NewStatus == invoicing.PaymentStatusCompleted {
			if err := settleInvoiceIfPaid(ctx, repos, p.InvoiceID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, invoicing.ErrPaymentNotFound) {
			// Webhooks can reference payments created outside this system.
			// Acknowledge so the provider stops retrying.
			s.logger.Warn("No payment matches provider event",
				zap.String("provider", string(evt.Provider)),
				zap.String("correlation_id", evt.CorrelationID))
			result.Message = "No matching payment"
			return result, nil
		}
		return nil, err
	}

	result.Processed = true
	s.logger.Info("Provider event applied",
		zap.String("provider", string(evt.Provider)),
		zap.String("event_id", evt.EventID),
		zap.String("correlation_id", evt.CorrelationID),
		zap.String("outcome", string(evt.Outcome)))

	return result, nil
}

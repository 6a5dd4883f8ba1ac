package invoicing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wasatpay/backend/internal/domain/invoicing"
	"github.com/wasatpay/backend/internal/domain/shared/valueobject"
	"github.com/wasatpay/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// PaymentService implements the payment and refund use cases
type PaymentService struct {
	uow         invoicing.UnitOfWork
	paymentRepo invoicing.PaymentRepository
	policy      invoicing.PaymentTransitionPolicy
	metrics     *telemetry.BillingMetrics
	logger      *zap.Logger
}

// NewPaymentService creates a new PaymentService. A nil policy falls back to
// the permissive default; metrics may be nil when telemetry is disabled.
func NewPaymentService(
	uow invoicing.UnitOfWork,
	paymentRepo invoicing.PaymentRepository,
	policy invoicing.PaymentTransitionPolicy,
	metrics *telemetry.BillingMetrics,
	logger *zap.Logger,
) *PaymentService {
	if policy == nil {
		policy = invoicing.PermissivePaymentPolicy{}
	}
	return &PaymentService{
		uow:         uow,
		paymentRepo: paymentRepo,
		policy:      policy,
		metrics:     metrics,
		logger:      logger,
	}
}

// InitiatePaymentRequest carries the inputs for payment initiation, typically
// from the public payment page.
type InitiatePaymentRequest struct {
	InvoiceID     uuid.UUID
	Amount        *decimal.Decimal // nil pays the outstanding balance
	Method        invoicing.PaymentMethod
	Provider      invoicing.PaymentProvider
	MethodDetails invoicing.MethodDetails
	PayerName     string
	PayerEmail    string
	PayerPhone    string
}

// InitiatePayment creates a PENDING payment against a payable invoice. The
// amount defaults to the outstanding balance and may not exceed it.
func (s *PaymentService) InitiatePayment(ctx context.Context, req InitiatePaymentRequest) (*invoicing.Payment, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "initiate_payment")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrInvoiceID, req.InvoiceID.String(),
		telemetry.SpanAttrPaymentProvider, string(req.Provider),
	)

	var created *invoicing.Payment
	err := s.uow.Execute(ctx, func(repos invoicing.Repositories) error {
		inv, err := repos.Invoices.FindByID(ctx, req.InvoiceID)
		if err != nil {
			return err
		}
		if !inv.IsPayable() {
			return invoicing.NewValidationError(
				"Invoice is not open for payment in " + inv.Status.String() + " status")
		}

		outstanding := inv.OutstandingAmount()
		amount := outstanding
		if req.Amount != nil {
			amount = *req.Amount
		}
		if !amount.IsPositive() {
			return invoicing.NewValidationError("Payment amount must be positive")
		}
		if amount.GreaterThan(outstanding) {
			return invoicing.NewValidationError(
				"Payment amount " + amount.StringFixed(2) +
					" exceeds outstanding balance " + outstanding.StringFixed(2))
		}

		money, err := valueobject.NewMoney(amount, inv.Currency)
		if err != nil {
			return invoicing.NewValidationError(err.Error())
		}

		p, err := invoicing.NewPayment(invoicing.NewPaymentInput{
			InvoiceID:     inv.ID,
			Amount:        money,
			Method:        req.Method,
			Provider:      req.Provider,
			MethodDetails: req.MethodDetails,
			PayerName:     req.PayerName,
			PayerEmail:    req.PayerEmail,
			PayerPhone:    req.PayerPhone,
		})
		if err != nil {
			return err
		}

		if err := repos.Payments.Save(ctx, p); err != nil {
			return err
		}
		created = p
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordPaymentInitiated(ctx, string(created.Provider), string(created.Method))
	}
	s.logger.Info("Payment initiated",
		zap.String("payment_id", created.ID.String()),
		zap.String("invoice_id", created.InvoiceID.String()),
		zap.String("amount", created.Amount.StringFixed(2)),
		zap.String("provider", string(created.Provider)))

	return created, nil
}

// GetPayment returns a payment by ID with refunds and history
func (s *PaymentService) GetPayment(ctx context.Context, id uuid.UUID) (*invoicing.Payment, error) {
	return s.paymentRepo.FindByID(ctx, id)
}

// ListPayments returns payments matching the filter with the total count
func (s *PaymentService) ListPayments(ctx context.Context, filter invoicing.PaymentFilter) ([]invoicing.Payment, int64, error) {
	return s.paymentRepo.FindAll(ctx, filter)
}

// ListInvoicePayments returns all payments against one invoice
func (s *PaymentService) ListInvoicePayments(ctx context.Context, invoiceID uuid.UUID) ([]invoicing.Payment, error) {
	return s.paymentRepo.FindByInvoiceID(ctx, invoiceID)
}

// UpdatePaymentStatus writes a payment status through the configured
// transition policy. When the payment reaches COMPLETED and the invoice is
// fully covered, the invoice transitions to PAID in the same transaction.
func (s *PaymentService) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, update invoicing.StatusUpdate) (*invoicing.Payment, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "update_payment_status")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrPaymentID, id.String(),
		telemetry.SpanAttrPaymentStatus, update.NewStatus.String(),
	)

	var updated *invoicing.Payment
	err := s.uow.Execute(ctx, func(repos invoicing.Repositories) error {
		p, err := repos.Payments.FindByID(ctx, id)
		if err != nil {
			return err
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
		updated = p
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if s.metrics != nil && update.NewStatus == invoicing.PaymentStatusCompleted {
		s.metrics.RecordPaymentCompleted(ctx, string(updated.Provider), updated.Amount.InexactFloat64())
	}
	s.logger.Info("Payment status updated",
		zap.String("payment_id", id.String()),
		zap.String("status", update.NewStatus.String()))

	return updated, nil
}

// settleInvoiceIfPaid transitions the invoice to PAID when its completed
// payments cover the total. Runs inside the caller's transaction so the
// payment write and the invoice transition commit together. The invoice is
// reloaded here so the aggregate sees the payment row written moments ago.
func settleInvoiceIfPaid(ctx context.Context, repos invoicing.Repositories, invoiceID uuid.UUID) error {
	inv, err := repos.Invoices.FindByID(ctx, invoiceID)
	if err != nil {
		return err
	}
	if !inv.IsPayable() || !inv.IsFullyPaid() {
		return nil
	}
	if err := inv.UpdateStatus(invoicing.InvoiceStatusPaid, nil, "Paid in full"); err != nil {
		return err
	}
	return repos.Invoices.SaveWithLock(ctx, inv)
}

// CreateRefund creates a PENDING refund against a completed payment
func (s *PaymentService) CreateRefund(ctx context.Context, paymentID uuid.UUID, amount decimal.Decimal, reason string, requestedBy *uuid.UUID) (*invoicing.Refund, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "create_refund")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrPaymentID, paymentID.String(),
		telemetry.SpanAttrAmount, amount.String(),
	)

	var created *invoicing.Refund
	err := s.uow.Execute(ctx, func(repos invoicing.Repositories) error {
		p, err := repos.Payments.FindByID(ctx, paymentID)
		if err != nil {
			return err
		}
		money, err := valueobject.NewMoney(amount, p.Currency)
		if err != nil {
			return invoicing.NewValidationError(err.Error())
		}
		refund, err := p.CreateRefund(money, reason, requestedBy)
		if err != nil {
			return err
		}
		if err := repos.Payments.SaveWithLock(ctx, p); err != nil {
			return err
		}
		created = refund
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Refund requested",
		zap.String("refund_id", created.ID.String()),
		zap.String("payment_id", paymentID.String()),
		zap.String("amount", created.Amount.StringFixed(2)))

	return created, nil
}

// UpdateRefundStatus transitions a refund and reconciles the payment status in
// the same transaction, so a completed refund and the payment's
// reclassification to REFUNDED or PARTIALLY_REFUNDED commit together.
func (s *PaymentService) UpdateRefundStatus(ctx context.Context, paymentID, refundID uuid.UUID, newStatus invoicing.RefundStatus, processedBy *uuid.UUID, failureReason string) (*invoicing.Payment, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "update_refund_status")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrPaymentID, paymentID.String(),
		telemetry.SpanAttrRefundID, refundID.String(),
	)

	var updated *invoicing.Payment
	err := s.uow.Execute(ctx, func(repos invoicing.Repositories) error {
		p, err := repos.Payments.FindByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if err := p.UpdateRefundStatus(refundID, newStatus, processedBy, failureReason); err != nil {
			return err
		}
		p.ReconcileRefundStatus()
		if err := repos.Payments.SaveWithLock(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if s.metrics != nil && newStatus == invoicing.RefundStatusCompleted {
		if r := updated.FindRefund(refundID); r != nil {
			s.metrics.RecordRefundCompleted(ctx, string(updated.Provider), r.Amount.InexactFloat64())
		}
	}
	s.logger.Info("Refund status updated",
		zap.String("refund_id", refundID.String()),
		zap.String("payment_id", paymentID.String()),
		zap.String("status", newStatus.String()),
		zap.String("payment_status", updated.Status.String()))

	return updated, nil
}

// GetPaymentStats returns payment counts and amounts grouped by status
func (s *PaymentService) GetPaymentStats(ctx context.Context) (*invoicing.PaymentStats, error) {
	return s.paymentRepo.Stats(ctx)
}

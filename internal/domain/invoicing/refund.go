package invoicing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wasatpay/backend/internal/domain/shared/valueobject"
)

// RefundStatus represents the status of a refund
type RefundStatus string

const (
	RefundStatusPending    RefundStatus = "PENDING"
	RefundStatusProcessing RefundStatus = "PROCESSING"
	RefundStatusCompleted  RefundStatus = "COMPLETED"
	RefundStatusFailed     RefundStatus = "FAILED"
	RefundStatusCancelled  RefundStatus = "CANCELLED"
)

// IsValid checks if the status is a valid RefundStatus
func (s RefundStatus) IsValid() bool {
	switch s {
	case RefundStatusPending, RefundStatusProcessing, RefundStatusCompleted,
		RefundStatusFailed, RefundStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of RefundStatus
func (s RefundStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the refund is in a terminal state
func (s RefundStatus) IsTerminal() bool {
	return s == RefundStatusCompleted || s == RefundStatusFailed || s == RefundStatusCancelled
}

// Refund is a partial or full reversal of a completed payment. It exists only
// inside the Payment aggregate and is created through Payment.CreateRefund.
type Refund struct {
	ID               uuid.UUID       `json:"id"`
	PaymentID        uuid.UUID       `json:"payment_id"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         valueobject.Currency `json:"currency"`
	Status           RefundStatus    `json:"status"`
	Reason           string          `json:"reason,omitempty"`
	RequestedBy      *uuid.UUID      `json:"requested_by,omitempty"`
	ProcessedBy      *uuid.UUID      `json:"processed_by,omitempty"`
	ProviderRefundID string          `json:"provider_refund_id,omitempty"`
	FailureReason    string          `json:"failure_reason,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	ProcessedAt      *time.Time      `json:"processed_at,omitempty"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
	FailedAt         *time.Time      `json:"failed_at,omitempty"`
}

// newRefund creates a PENDING refund. Validation against the payment's
// refundable balance happens in Payment.CreateRefund.
func newRefund(paymentID uuid.UUID, amount valueobject.Money, reason string, requestedBy *uuid.UUID) *Refund {
	now := time.Now()
	return &Refund{
		ID:          uuid.New(),
		PaymentID:   paymentID,
		Amount:      amount.Amount(),
		Currency:    amount.Currency(),
		Status:      RefundStatusPending,
		Reason:      reason,
		RequestedBy: requestedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// MarkProcessing moves the refund to PROCESSING
func (r *Refund) MarkProcessing(processedBy *uuid.UUID) error {
	if r.Status.IsTerminal() {
		return NewInvalidTransitionError("refund", r.Status.String(), RefundStatusProcessing.String())
	}
	now := time.Now()
	r.Status = RefundStatusProcessing
	r.ProcessedBy = processedBy
	r.ProcessedAt = &now
	r.UpdatedAt = now
	return nil
}

// Complete marks the refund COMPLETED. Completing an already completed refund
// is a no-op so provider callbacks can be retried safely.
func (r *Refund) Complete(processedBy *uuid.UUID) error {
	if r.Status == RefundStatusCompleted {
		return nil
	}
	if r.Status.IsTerminal() {
		return NewInvalidTransitionError("refund", r.Status.String(), RefundStatusCompleted.String())
	}
	now := time.Now()
	r.Status = RefundStatusCompleted
	if processedBy != nil {
		r.ProcessedBy = processedBy
	}
	r.CompletedAt = &now
	r.UpdatedAt = now
	return nil
}

// Fail marks the refund FAILED with a reason
func (r *Refund) Fail(reason string) error {
	if r.Status.IsTerminal() {
		return NewInvalidTransitionError("refund", r.Status.String(), RefundStatusFailed.String())
	}
	now := time.Now()
	r.Status = RefundStatusFailed
	r.FailureReason = reason
	r.FailedAt = &now
	r.UpdatedAt = now
	return nil
}

// Cancel cancels a refund that has not reached a terminal state
func (r *Refund) Cancel() error {
	if r.Status.IsTerminal() {
		return NewInvalidTransitionError("refund", r.Status.String(), RefundStatusCancelled.String())
	}
	r.Status = RefundStatusCancelled
	r.UpdatedAt = time.Now()
	return nil
}

// SetProviderRefundID records the provider's refund identifier
func (r *Refund) SetProviderRefundID(id string) {
	r.ProviderRefundID = id
	r.UpdatedAt = time.Now()
}

// GetAmountMoney returns the refund amount as Money
func (r *Refund) GetAmountMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(r.Amount, r.Currency)
	return m
}

// String describes the refund for logs
func (r *Refund) String() string {
	return fmt.Sprintf("refund %s (%s %s, %s)", r.ID, r.Amount.StringFixed(2), r.Currency, r.Status)
}

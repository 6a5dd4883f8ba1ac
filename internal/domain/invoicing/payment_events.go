package invoicing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wasatpay/backend/internal/domain/shared"
)

// PaymentInitiatedEvent is raised when a payment is created
type PaymentInitiatedEvent struct {
	shared.BaseDomainEvent
	PaymentID uuid.UUID       `json:"payment_id"`
	InvoiceID uuid.UUID       `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
	Method    PaymentMethod   `json:"method"`
	Provider  PaymentProvider `json:"provider"`
}

// EventType returns the event type name
func (e *PaymentInitiatedEvent) EventType() string {
	return "PaymentInitiated"
}

// NewPaymentInitiatedEvent creates a new PaymentInitiatedEvent
func NewPaymentInitiatedEvent(p *Payment) *PaymentInitiatedEvent {
	return &PaymentInitiatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PaymentInitiated", "Payment", p.ID),
		PaymentID:       p.ID,
		InvoiceID:       p.InvoiceID,
		Amount:          p.Amount,
		Method:          p.Method,
		Provider:        p.Provider,
	}
}

// PaymentStatusChangedEvent is raised on every payment status transition
type PaymentStatusChangedEvent struct {
	shared.BaseDomainEvent
	PaymentID uuid.UUID     `json:"payment_id"`
	InvoiceID uuid.UUID     `json:"invoice_id"`
	OldStatus PaymentStatus `json:"old_status"`
	NewStatus PaymentStatus `json:"new_status"`
	ChangedBy *uuid.UUID    `json:"changed_by,omitempty"`
}

// EventType returns the event type name
func (e *PaymentStatusChangedEvent) EventType() string {
	return "PaymentStatusChanged"
}

// NewPaymentStatusChangedEvent creates a new PaymentStatusChangedEvent
func NewPaymentStatusChangedEvent(p *Payment, oldStatus PaymentStatus, actor *uuid.UUID) *PaymentStatusChangedEvent {
	return &PaymentStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PaymentStatusChanged", "Payment", p.ID),
		PaymentID:       p.ID,
		InvoiceID:       p.InvoiceID,
		OldStatus:       oldStatus,
		NewStatus:       p.Status,
		ChangedBy:       actor,
	}
}

// PaymentCompletedEvent is raised when a payment reaches COMPLETED
type PaymentCompletedEvent struct {
	shared.BaseDomainEvent
	PaymentID   uuid.UUID       `json:"payment_id"`
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	Amount      decimal.Decimal `json:"amount"`
	NetAmount   decimal.Decimal `json:"net_amount"`
	Provider    PaymentProvider `json:"provider"`
	CompletedAt time.Time       `json:"completed_at"`
}

// EventType returns the event type name
func (e *PaymentCompletedEvent) EventType() string {
	return "PaymentCompleted"
}

// NewPaymentCompletedEvent creates a new PaymentCompletedEvent
func NewPaymentCompletedEvent(p *Payment) *PaymentCompletedEvent {
	completedAt := time.Now()
	if p.CompletedAt != nil {
		completedAt = *p.CompletedAt
	}
	return &PaymentCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PaymentCompleted", "Payment", p.ID),
		PaymentID:       p.ID,
		InvoiceID:       p.InvoiceID,
		Amount:          p.Amount,
		NetAmount:       p.NetAmount,
		Provider:        p.Provider,
		CompletedAt:     completedAt,
	}
}

// PaymentFailedEvent is raised when a payment reaches FAILED
type PaymentFailedEvent struct {
	shared.BaseDomainEvent
	PaymentID     uuid.UUID       `json:"payment_id"`
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	Amount        decimal.Decimal `json:"amount"`
	FailureReason string          `json:"failure_reason,omitempty"`
	FailureCode   string          `json:"failure_code,omitempty"`
}

// EventType returns the event type name
func (e *PaymentFailedEvent) EventType() string {
	return "PaymentFailed"
}

// NewPaymentFailedEvent creates a new PaymentFailedEvent
func NewPaymentFailedEvent(p *Payment, failureReason, failureCode string) *PaymentFailedEvent {
	return &PaymentFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PaymentFailed", "Payment", p.ID),
		PaymentID:       p.ID,
		InvoiceID:       p.InvoiceID,
		Amount:          p.Amount,
		FailureReason:   failureReason,
		FailureCode:     failureCode,
	}
}

// RefundRequestedEvent is raised when a refund is created
type RefundRequestedEvent struct {
	shared.BaseDomainEvent
	RefundID    uuid.UUID       `json:"refund_id"`
	PaymentID   uuid.UUID       `json:"payment_id"`
	Amount      decimal.Decimal `json:"amount"`
	Reason      string          `json:"reason,omitempty"`
	RequestedBy *uuid.UUID      `json:"requested_by,omitempty"`
}

// EventType returns the event type name
func (e *RefundRequestedEvent) EventType() string {
	return "RefundRequested"
}

// NewRefundRequestedEvent creates a new RefundRequestedEvent
func NewRefundRequestedEvent(p *Payment, r *Refund) *RefundRequestedEvent {
	return &RefundRequestedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("RefundRequested", "Payment", p.ID),
		RefundID:        r.ID,
		PaymentID:       p.ID,
		Amount:          r.Amount,
		Reason:          r.Reason,
		RequestedBy:     r.RequestedBy,
	}
}

// RefundCompletedEvent is raised when a refund reaches COMPLETED
type RefundCompletedEvent struct {
	shared.BaseDomainEvent
	RefundID      uuid.UUID       `json:"refund_id"`
	PaymentID     uuid.UUID       `json:"payment_id"`
	Amount        decimal.Decimal `json:"amount"`
	TotalRefunded decimal.Decimal `json:"total_refunded"`
}

// EventType returns the event type name
func (e *RefundCompletedEvent) EventType() string {
	return "RefundCompleted"
}

// NewRefundCompletedEvent creates a new RefundCompletedEvent
func NewRefundCompletedEvent(p *Payment, r *Refund) *RefundCompletedEvent {
	return &RefundCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("RefundCompleted", "Payment", p.ID),
		RefundID:        r.ID,
		PaymentID:       p.ID,
		Amount:          r.Amount,
		TotalRefunded:   p.TotalRefunded(),
	}
}

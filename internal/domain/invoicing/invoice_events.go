package invoicing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wasatpay/backend/internal/domain/shared"
)

// InvoiceCreatedEvent is raised when a new invoice is created
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	DueDate       time.Time       `json:"due_date"`
}

// EventType returns the event type name
func (e *InvoiceCreatedEvent) EventType() string {
	return "InvoiceCreated"
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceCreated", "Invoice", inv.ID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		CustomerID:      inv.CustomerID,
		TotalAmount:     inv.TotalAmount,
		DueDate:         inv.DueDate,
	}
}

// InvoiceStatusChangedEvent is raised on every invoice status transition
type InvoiceStatusChangedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID     `json:"invoice_id"`
	InvoiceNumber string        `json:"invoice_number"`
	OldStatus     InvoiceStatus `json:"old_status"`
	NewStatus     InvoiceStatus `json:"new_status"`
	ChangedBy     *uuid.UUID    `json:"changed_by,omitempty"`
	Notes         string        `json:"notes,omitempty"`
}

// EventType returns the event type name
func (e *InvoiceStatusChangedEvent) EventType() string {
	return "InvoiceStatusChanged"
}

// NewInvoiceStatusChangedEvent creates a new InvoiceStatusChangedEvent
func NewInvoiceStatusChangedEvent(inv *Invoice, oldStatus InvoiceStatus, actor *uuid.UUID, notes string) *InvoiceStatusChangedEvent {
	return &InvoiceStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceStatusChanged", "Invoice", inv.ID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		OldStatus:       oldStatus,
		NewStatus:       inv.Status,
		ChangedBy:       actor,
		Notes:           notes,
	}
}

// InvoicePaidEvent is raised when an invoice transitions to PAID
type InvoicePaidEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PaidAt        time.Time       `json:"paid_at"`
}

// EventType returns the event type name
func (e *InvoicePaidEvent) EventType() string {
	return "InvoicePaid"
}

// NewInvoicePaidEvent creates a new InvoicePaidEvent
func NewInvoicePaidEvent(inv *Invoice) *InvoicePaidEvent {
	paidAt := time.Now()
	if inv.PaidAt != nil {
		paidAt = *inv.PaidAt
	}
	return &InvoicePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoicePaid", "Invoice", inv.ID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		CustomerID:      inv.CustomerID,
		TotalAmount:     inv.TotalAmount,
		PaidAt:          paidAt,
	}
}

// InvoiceOverdueEvent is raised when an invoice transitions to OVERDUE
type InvoiceOverdueEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	DueDate       time.Time       `json:"due_date"`
}

// EventType returns the event type name
func (e *InvoiceOverdueEvent) EventType() string {
	return "InvoiceOverdue"
}

// NewInvoiceOverdueEvent creates a new InvoiceOverdueEvent
func NewInvoiceOverdueEvent(inv *Invoice) *InvoiceOverdueEvent {
	return &InvoiceOverdueEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("InvoiceOverdue", "Invoice", inv.ID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.InvoiceNumber,
		CustomerID:      inv.CustomerID,
		TotalAmount:     inv.TotalAmount,
		DueDate:         inv.DueDate,
	}
}

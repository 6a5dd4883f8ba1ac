package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wasatpay/backend/internal/domain/invoicing"
	"github.com/wasatpay/backend/internal/domain/shared/valueobject"
)

// InvoiceModel is the persistence model for the Invoice aggregate root
type InvoiceModel struct {
	AggregateModel
	InvoiceNumber       string               `gorm:"type:varchar(50);not null;uniqueIndex:idx_invoices_number"`
	CustomerID          uuid.UUID            `gorm:"type:uuid;not null;index"`
	ProjectID           *uuid.UUID           `gorm:"type:uuid;index"`
	Status              invoicing.InvoiceStatus `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	Currency            valueobject.Currency `gorm:"type:varchar(3);not null;default:'USD'"`
	IssueDate           time.Time            `gorm:"not null;index"`
	DueDate             time.Time            `gorm:"not null;index"`
	PaymentTerms        int                  `gorm:"not null;default:0"`
	TaxRate             decimal.Decimal      `gorm:"type:decimal(5,2);not null;default:0"`
	DiscountAmount      decimal.Decimal      `gorm:"type:decimal(18,2);not null;default:0"`
	Subtotal            decimal.Decimal      `gorm:"type:decimal(18,2);not null;default:0"`
	TaxAmount           decimal.Decimal      `gorm:"type:decimal(18,2);not null;default:0"`
	TotalAmount         decimal.Decimal      `gorm:"type:decimal(18,2);not null;default:0"`
	ReferenceNumber     string               `gorm:"type:varchar(100)"`
	PONumber            string               `gorm:"type:varchar(100)"`
	LPONumber           string               `gorm:"type:varchar(100)"`
	DeliveryDate        *time.Time
	PaymentInstructions string     `gorm:"type:text"`
	Notes               string     `gorm:"type:text"`
	InternalNotes       string     `gorm:"type:text"`
	CreatedBy           *uuid.UUID `gorm:"type:uuid;index"`
	SentAt              *time.Time
	PaidAt              *time.Time
	LineItems           []InvoiceLineItemModel      `gorm:"foreignKey:InvoiceID;references:ID"`
	StatusHistory       []InvoiceStatusHistoryModel `gorm:"foreignKey:InvoiceID;references:ID"`
	Payments            []PaymentModel              `gorm:"foreignKey:InvoiceID;references:ID"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// InvoiceLineItemModel is the persistence model for invoice line items
type InvoiceLineItemModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key"`
	InvoiceID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Description   string          `gorm:"type:varchar(500);not null"`
	Quantity      decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	UnitOfMeasure string          `gorm:"type:varchar(50)"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	ProductCode   string          `gorm:"type:varchar(100)"`
	Position      int             `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (InvoiceLineItemModel) TableName() string {
	return "invoice_line_items"
}

// InvoiceStatusHistoryModel is the persistence model for invoice status
// history records. Rows are insert-only.
type InvoiceStatusHistoryModel struct {
	ID        uuid.UUID               `gorm:"type:uuid;primary_key"`
	InvoiceID uuid.UUID               `gorm:"type:uuid;not null;index"`
	OldStatus invoicing.InvoiceStatus `gorm:"type:varchar(20);not null"`
	NewStatus invoicing.InvoiceStatus `gorm:"type:varchar(20);not null"`
	ChangedBy *uuid.UUID              `gorm:"type:uuid"`
	Notes     string                  `gorm:"type:text"`
	CreatedAt time.Time               `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InvoiceStatusHistoryModel) TableName() string {
	return "invoice_status_history"
}

// ToDomain converts the persistence model to a domain Invoice aggregate
func (m *InvoiceModel) ToDomain() *invoicing.Invoice {
	inv := &invoicing.Invoice{
		BaseAggregateRoot:   m.ToDomainAggregateRoot(),
		InvoiceNumber:       m.InvoiceNumber,
		CustomerID:          m.CustomerID,
		ProjectID:           m.ProjectID,
		Status:              m.Status,
		Currency:            m.Currency,
		IssueDate:           m.IssueDate,
		DueDate:             m.DueDate,
		PaymentTerms:        m.PaymentTerms,
		TaxRate:             m.TaxRate,
		DiscountAmount:      m.DiscountAmount,
		Subtotal:            m.Subtotal,
		TaxAmount:           m.TaxAmount,
		TotalAmount:         m.TotalAmount,
		ReferenceNumber:     m.ReferenceNumber,
		PONumber:            m.PONumber,
		LPONumber:           m.LPONumber,
		DeliveryDate:        m.DeliveryDate,
		PaymentInstructions: m.PaymentInstructions,
		Notes:               m.Notes,
		InternalNotes:       m.InternalNotes,
		CreatedBy:           m.CreatedBy,
		SentAt:              m.SentAt,
		PaidAt:              m.PaidAt,
	}
	inv.LineItems = make([]invoicing.InvoiceLineItem, len(m.LineItems))
	for i, item := range m.LineItems {
		inv.LineItems[i] = item.ToDomain()
	}
	inv.StatusHistory = make([]invoicing.InvoiceStatusHistory, len(m.StatusHistory))
	for i, h := range m.StatusHistory {
		inv.StatusHistory[i] = h.ToDomain()
	}
	inv.Payments = make([]invoicing.Payment, len(m.Payments))
	for i, p := range m.Payments {
		inv.Payments[i] = *p.ToDomain()
	}
	return inv
}

// FromDomain populates the persistence model from a domain Invoice
func (m *InvoiceModel) FromDomain(inv *invoicing.Invoice) {
	m.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	m.InvoiceNumber = inv.InvoiceNumber
	m.CustomerID = inv.CustomerID
	m.ProjectID = inv.ProjectID
	m.Status = inv.Status
	m.Currency = inv.Currency
	m.IssueDate = inv.IssueDate
	m.DueDate = inv.DueDate
	m.PaymentTerms = inv.PaymentTerms
	m.TaxRate = inv.TaxRate
	m.DiscountAmount = inv.DiscountAmount
	m.Subtotal = inv.Subtotal
	m.TaxAmount = inv.TaxAmount
	m.TotalAmount = inv.TotalAmount
	m.ReferenceNumber = inv.ReferenceNumber
	m.PONumber = inv.PONumber
	m.LPONumber = inv.LPONumber
	m.DeliveryDate = inv.DeliveryDate
	m.PaymentInstructions = inv.PaymentInstructions
	m.Notes = inv.Notes
	m.InternalNotes = inv.InternalNotes
	m.CreatedBy = inv.CreatedBy
	m.SentAt = inv.SentAt
	m.PaidAt = inv.PaidAt

	m.LineItems = make([]InvoiceLineItemModel, len(inv.LineItems))
	for i, item := range inv.LineItems {
		m.LineItems[i] = InvoiceLineItemModelFromDomain(inv.ID, item)
	}
	m.StatusHistory = make([]InvoiceStatusHistoryModel, len(inv.StatusHistory))
	for i, h := range inv.StatusHistory {
		m.StatusHistory[i] = InvoiceStatusHistoryModelFromDomain(h)
	}
	// Payments are a separate aggregate and are never written through the
	// invoice model.
	m.Payments = nil
}

// InvoiceModelFromDomain creates a persistence model from a domain Invoice
func InvoiceModelFromDomain(inv *invoicing.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// ToDomain converts the line item model to its domain representation
func (m *InvoiceLineItemModel) ToDomain() invoicing.InvoiceLineItem {
	return invoicing.InvoiceLineItem{
		ID:            m.ID,
		Description:   m.Description,
		Quantity:      m.Quantity,
		UnitOfMeasure: m.UnitOfMeasure,
		UnitPrice:     m.UnitPrice,
		TotalAmount:   m.TotalAmount,
		ProductCode:   m.ProductCode,
		Position:      m.Position,
	}
}

// InvoiceLineItemModelFromDomain creates a line item model from its domain form
func InvoiceLineItemModelFromDomain(invoiceID uuid.UUID, item invoicing.InvoiceLineItem) InvoiceLineItemModel {
	return InvoiceLineItemModel{
		ID:            item.ID,
		InvoiceID:     invoiceID,
		Description:   item.Description,
		Quantity:      item.Quantity,
		UnitOfMeasure: item.UnitOfMeasure,
		UnitPrice:     item.UnitPrice,
		TotalAmount:   item.TotalAmount,
		ProductCode:   item.ProductCode,
		Position:      item.Position,
	}
}

// ToDomain converts the history model to its domain representation
func (m *InvoiceStatusHistoryModel) ToDomain() invoicing.InvoiceStatusHistory {
	return invoicing.InvoiceStatusHistory{
		ID:        m.ID,
		InvoiceID: m.InvoiceID,
		OldStatus: m.OldStatus,
		NewStatus: m.NewStatus,
		ChangedBy: m.ChangedBy,
		Notes:     m.Notes,
		CreatedAt: m.CreatedAt,
	}
}

// InvoiceStatusHistoryModelFromDomain creates a history model from its domain form
func InvoiceStatusHistoryModelFromDomain(h invoicing.InvoiceStatusHistory) InvoiceStatusHistoryModel {
	return InvoiceStatusHistoryModel{
		ID:        h.ID,
		InvoiceID: h.InvoiceID,
		OldStatus: h.OldStatus,
		NewStatus: h.NewStatus,
		ChangedBy: h.ChangedBy,
		Notes:     h.Notes,
		CreatedAt: h.CreatedAt,
	}
}

// PaymentModel is the persistence model for the Payment aggregate root
type PaymentModel struct {
	AggregateModel
	InvoiceID               uuid.UUID               `gorm:"type:uuid;not null;index"`
	Amount                  decimal.Decimal         `gorm:"type:decimal(18,2);not null"`
	Currency                valueobject.Currency    `gorm:"type:varchar(3);not null;default:'USD'"`
	Status                  invoicing.PaymentStatus `gorm:"type:varchar(30);not null;default:'PENDING';index"`
	Method                  invoicing.PaymentMethod `gorm:"type:varchar(20);not null"`
	Provider                invoicing.PaymentProvider `gorm:"type:varchar(20);not null;index"`
	ProviderPaymentIntentID string                  `gorm:"type:varchar(255);index"`
	ProviderTransactionID   string                  `gorm:"type:varchar(255);index"`
	ProviderReference       string                  `gorm:"type:varchar(255);index"`
	MethodDetails           invoicing.MethodDetails `gorm:"type:jsonb;default:'{}'"`
	PayerName               string                  `gorm:"type:varchar(200)"`
	PayerEmail              string                  `gorm:"type:varchar(255)"`
	PayerPhone              string                  `gorm:"type:varchar(50)"`
	ProcessingFee           decimal.Decimal         `gorm:"type:decimal(18,2);not null;default:0"`
	NetAmount               decimal.Decimal         `gorm:"type:decimal(18,2);not null;default:0"`
	FailureReason           string                  `gorm:"type:varchar(500)"`
	FailureCode             string                  `gorm:"type:varchar(100)"`
	InitiatedAt             time.Time               `gorm:"not null"`
	ProcessedAt             *time.Time
	CompletedAt             *time.Time
	FailedAt                *time.Time
	Refunds                 []RefundModel         `gorm:"foreignKey:PaymentID;references:ID"`
	History                 []PaymentHistoryModel `gorm:"foreignKey:PaymentID;references:ID"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// RefundModel is the persistence model for refunds
type RefundModel struct {
	ID               uuid.UUID              `gorm:"type:uuid;primary_key"`
	PaymentID        uuid.UUID              `gorm:"type:uuid;not null;index"`
	Amount           decimal.Decimal        `gorm:"type:decimal(18,2);not null"`
	Currency         valueobject.Currency   `gorm:"type:varchar(3);not null;default:'USD'"`
	Status           invoicing.RefundStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	Reason           string                 `gorm:"type:varchar(500)"`
	RequestedBy      *uuid.UUID             `gorm:"type:uuid"`
	ProcessedBy      *uuid.UUID             `gorm:"type:uuid"`
	ProviderRefundID string                 `gorm:"type:varchar(255)"`
	FailureReason    string                 `gorm:"type:varchar(500)"`
	CreatedAt        time.Time              `gorm:"not null"`
	UpdatedAt        time.Time              `gorm:"not null"`
	ProcessedAt      *time.Time
	CompletedAt      *time.Time
	FailedAt         *time.Time
}

// TableName returns the table name for GORM
func (RefundModel) TableName() string {
	return "refunds"
}

// PaymentHistoryModel is the persistence model for payment status history
// records. Rows are insert-only.
type PaymentHistoryModel struct {
	ID            uuid.UUID               `gorm:"type:uuid;primary_key"`
	PaymentID     uuid.UUID               `gorm:"type:uuid;not null;index"`
	OldStatus     invoicing.PaymentStatus `gorm:"type:varchar(30);not null"`
	NewStatus     invoicing.PaymentStatus `gorm:"type:varchar(30);not null"`
	ChangedBy     *uuid.UUID              `gorm:"type:uuid"`
	Notes         string                  `gorm:"type:text"`
	FailureReason string                  `gorm:"type:varchar(500)"`
	FailureCode   string                  `gorm:"type:varchar(100)"`
	CreatedAt     time.Time               `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentHistoryModel) TableName() string {
	return "payment_status_history"
}

// ToDomain converts the persistence model to a domain Payment aggregate
func (m *PaymentModel) ToDomain() *invoicing.Payment {
	p := &invoicing.Payment{
		BaseAggregateRoot:       m.ToDomainAggregateRoot(),
		InvoiceID:               m.InvoiceID,
		Amount:                  m.Amount,
		Currency:                m.Currency,
		Status:                  m.Status,
		Method:                  m.Method,
		Provider:                m.Provider,
		ProviderPaymentIntentID: m.ProviderPaymentIntentID,
		ProviderTransactionID:   m.ProviderTransactionID,
		ProviderReference:       m.ProviderReference,
		MethodDetails:           m.MethodDetails,
		PayerName:               m.PayerName,
		PayerEmail:              m.PayerEmail,
		PayerPhone:              m.PayerPhone,
		ProcessingFee:           m.ProcessingFee,
		NetAmount:               m.NetAmount,
		FailureReason:           m.FailureReason,
		FailureCode:             m.FailureCode,
		InitiatedAt:             m.InitiatedAt,
		ProcessedAt:             m.ProcessedAt,
		CompletedAt:             m.CompletedAt,
		FailedAt:                m.FailedAt,
	}
	p.Refunds = make([]invoicing.Refund, len(m.Refunds))
	for i, r := range m.Refunds {
		p.Refunds[i] = r.ToDomain()
	}
	p.History = make([]invoicing.PaymentHistory, len(m.History))
	for i, h := range m.History {
		p.History[i] = h.ToDomain()
	}
	return p
}

// FromDomain populates the persistence model from a domain Payment
func (m *PaymentModel) FromDomain(p *invoicing.Payment) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.InvoiceID = p.InvoiceID
	m.Amount = p.Amount
	m.Currency = p.Currency
	m.Status = p.Status
	m.Method = p.Method
	m.Provider = p.Provider
	m.ProviderPaymentIntentID = p.ProviderPaymentIntentID
	m.ProviderTransactionID = p.ProviderTransactionID
	m.ProviderReference = p.ProviderReference
	m.MethodDetails = p.MethodDetails
	m.PayerName = p.PayerName
	m.PayerEmail = p.PayerEmail
	m.PayerPhone = p.PayerPhone
	m.ProcessingFee = p.ProcessingFee
	m.NetAmount = p.NetAmount
	m.FailureReason = p.FailureReason
	m.FailureCode = p.FailureCode
	m.InitiatedAt = p.InitiatedAt
	m.ProcessedAt = p.ProcessedAt
	m.CompletedAt = p.CompletedAt
	m.FailedAt = p.FailedAt

	m.Refunds = make([]RefundModel, len(p.Refunds))
	for i, r := range p.Refunds {
		m.Refunds[i] = RefundModelFromDomain(r)
	}
	m.History = make([]PaymentHistoryModel, len(p.History))
	for i, h := range p.History {
		m.History[i] = PaymentHistoryModelFromDomain(h)
	}
}

// PaymentModelFromDomain creates a persistence model from a domain Payment
func PaymentModelFromDomain(p *invoicing.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}

// ToDomain converts the refund model to its domain representation
func (m *RefundModel) ToDomain() invoicing.Refund {
	return invoicing.Refund{
		ID:               m.ID,
		PaymentID:        m.PaymentID,
		Amount:           m.Amount,
		Currency:         m.Currency,
		Status:           m.Status,
		Reason:           m.Reason,
		RequestedBy:      m.RequestedBy,
		ProcessedBy:      m.ProcessedBy,
		ProviderRefundID: m.ProviderRefundID,
		FailureReason:    m.FailureReason,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
		ProcessedAt:      m.ProcessedAt,
		CompletedAt:      m.CompletedAt,
		FailedAt:         m.FailedAt,
	}
}

// RefundModelFromDomain creates a refund model from its domain form
func RefundModelFromDomain(r invoicing.Refund) RefundModel {
	return RefundModel{
		ID:               r.ID,
		PaymentID:        r.PaymentID,
		Amount:           r.Amount,
		Currency:         r.Currency,
		Status:           r.Status,
		Reason:           r.Reason,
		RequestedBy:      r.RequestedBy,
		ProcessedBy:      r.ProcessedBy,
		ProviderRefundID: r.ProviderRefundID,
		FailureReason:    r.FailureReason,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
		ProcessedAt:      r.ProcessedAt,
		CompletedAt:      r.CompletedAt,
		FailedAt:         r.FailedAt,
	}
}

// ToDomain converts the history model to its domain representation
func (m *PaymentHistoryModel) ToDomain() invoicing.PaymentHistory {
	return invoicing.PaymentHistory{
		ID:            m.ID,
		PaymentID:     m.PaymentID,
		OldStatus:     m.OldStatus,
		NewStatus:     m.NewStatus,
		ChangedBy:     m.ChangedBy,
		Notes:         m.Notes,
		FailureReason: m.FailureReason,
		FailureCode:   m.FailureCode,
		CreatedAt:     m.CreatedAt,
	}
}

// PaymentHistoryModelFromDomain creates a history model from its domain form
func PaymentHistoryModelFromDomain(h invoicing.PaymentHistory) PaymentHistoryModel {
	return PaymentHistoryModel{
		ID:            h.ID,
		PaymentID:     h.PaymentID,
		OldStatus:     h.OldStatus,
		NewStatus:     h.NewStatus,
		ChangedBy:     h.ChangedBy,
		Notes:         h.Notes,
		FailureReason: h.FailureReason,
		FailureCode:   h.FailureCode,
		CreatedAt:     h.CreatedAt,
	}
}

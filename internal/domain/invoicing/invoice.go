package invoicing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wasatpay/backend/internal/domain/shared"
	"github.com/wasatpay/backend/internal/domain/shared/valueobject"
)

// InvoiceStatus represents the status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"     // Editable, not yet issued to the customer
	InvoiceStatusSent      InvoiceStatus = "SENT"      // Issued, awaiting payment
	InvoiceStatusPaid      InvoiceStatus = "PAID"      // Fully paid (terminal)
	InvoiceStatusOverdue   InvoiceStatus = "OVERDUE"   // Past due date without full payment
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED" // Cancelled, may be reactivated to DRAFT
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid,
		InvoiceStatusOverdue, InvoiceStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsTerminal returns true if no transition leads out of this status
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid
}

// InvoiceLineItem is one billable entry on an invoice.
// Its total is always quantity times unit price and is never set directly.
type InvoiceLineItem struct {
	ID            uuid.UUID       `json:"id"`
	Description   string          `json:"description"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitOfMeasure string          `json:"unit_of_measure,omitempty"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	ProductCode   string          `json:"product_code,omitempty"`
	Position      int             `json:"position"`
}

// NewInvoiceLineItem creates a line item and computes its total
func NewInvoiceLineItem(description string, quantity valueobject.Quantity, unitPrice valueobject.Money, productCode string) (*InvoiceLineItem, error) {
	if description == "" {
		return nil, NewValidationError("Line item description cannot be empty")
	}
	if !quantity.IsPositive() {
		return nil, NewValidationError("Line item quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, NewValidationError("Line item unit price cannot be negative")
	}

	item := &InvoiceLineItem{
		ID:            uuid.New(),
		Description:   description,
		Quantity:      quantity.Amount(),
		UnitOfMeasure: quantity.Unit(),
		UnitPrice:     unitPrice.Amount(),
		ProductCode:   productCode,
	}
	item.recalculate()
	return item, nil
}

// recalculate recomputes the line total from quantity and unit price
func (li *InvoiceLineItem) recalculate() {
	li.TotalAmount = li.Quantity.Mul(li.UnitPrice).Round(2)
}

// SetQuantity updates the quantity and recomputes the total
func (li *InvoiceLineItem) SetQuantity(quantity valueobject.Quantity) error {
	if !quantity.IsPositive() {
		return NewValidationError("Line item quantity must be positive")
	}
	li.Quantity = quantity.Amount()
	li.UnitOfMeasure = quantity.Unit()
	li.recalculate()
	return nil
}

// SetUnitPrice updates the unit price and recomputes the total
func (li *InvoiceLineItem) SetUnitPrice(unitPrice valueobject.Money) error {
	if unitPrice.IsNegative() {
		return NewValidationError("Line item unit price cannot be negative")
	}
	li.UnitPrice = unitPrice.Amount()
	li.recalculate()
	return nil
}

// InvoiceStatusHistory is one immutable audit record of an invoice status
// transition. ChangedBy is nil for system-initiated transitions.
type InvoiceStatusHistory struct {
	ID        uuid.UUID     `json:"id"`
	InvoiceID uuid.UUID     `json:"invoice_id"`
	OldStatus InvoiceStatus `json:"old_status"`
	NewStatus InvoiceStatus `json:"new_status"`
	ChangedBy *uuid.UUID    `json:"changed_by,omitempty"`
	Notes     string        `json:"notes,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// Invoice is the billing document aggregate root. It owns its line items and
// status history; payments reference the invoice but are a separate aggregate.
type Invoice struct {
	shared.BaseAggregateRoot
	InvoiceNumber       string                `json:"invoice_number"`
	CustomerID          uuid.UUID             `json:"customer_id"`
	ProjectID           *uuid.UUID            `json:"project_id,omitempty"`
	Status              InvoiceStatus         `json:"status"`
	Currency            valueobject.Currency  `json:"currency"`
	IssueDate           time.Time             `json:"issue_date"`
	DueDate             time.Time             `json:"due_date"`
	PaymentTerms        int                   `json:"payment_terms"`
	TaxRate             decimal.Decimal       `json:"tax_rate"`
	DiscountAmount      decimal.Decimal       `json:"discount_amount"`
	Subtotal            decimal.Decimal       `json:"subtotal"`
	TaxAmount           decimal.Decimal       `json:"tax_amount"`
	TotalAmount         decimal.Decimal       `json:"total_amount"`
	ReferenceNumber     string                `json:"reference_number,omitempty"`
	PONumber            string                `json:"po_number,omitempty"`
	LPONumber           string                `json:"lpo_number,omitempty"`
	DeliveryDate        *time.Time            `json:"delivery_date,omitempty"`
	PaymentInstructions string                `json:"payment_instructions,omitempty"`
	Notes               string                `json:"notes,omitempty"`
	InternalNotes       string                `json:"internal_notes,omitempty"`
	CreatedBy           *uuid.UUID            `json:"created_by,omitempty"`
	SentAt              *time.Time            `json:"sent_at,omitempty"`
	PaidAt              *time.Time            `json:"paid_at,omitempty"`
	LineItems           []InvoiceLineItem     `json:"line_items"`
	StatusHistory       []InvoiceStatusHistory `json:"status_history"`
	Payments            []Payment             `json:"payments,omitempty"` // back-reference, not owned
}

// NewInvoiceInput carries the inputs for invoice creation
type NewInvoiceInput struct {
	InvoiceNumber       string
	CustomerID          uuid.UUID
	ProjectID           *uuid.UUID
	Currency            valueobject.Currency
	IssueDate           time.Time
	DueDate             *time.Time // defaults to IssueDate + PaymentTerms days
	PaymentTerms        int
	TaxRate             decimal.Decimal
	DiscountAmount      decimal.Decimal
	ReferenceNumber     string
	PONumber            string
	LPONumber           string
	DeliveryDate        *time.Time
	PaymentInstructions string
	Notes               string
	InternalNotes       string
	LineItems           []InvoiceLineItem
	CreatedBy           *uuid.UUID
}

// NewInvoice creates a new invoice in DRAFT status with its line items.
// Totals are computed, and an initial DRAFT->DRAFT history record is written
// to anchor the audit trail.
func NewInvoice(input NewInvoiceInput) (*Invoice, error) {
	if input.InvoiceNumber == "" {
		return nil, NewValidationError("Invoice number cannot be empty")
	}
	if len(input.InvoiceNumber) > 50 {
		return nil, NewValidationError("Invoice number cannot exceed 50 characters")
	}
	if input.CustomerID == uuid.Nil {
		return nil, NewValidationError("Customer ID cannot be empty")
	}
	if len(input.LineItems) == 0 {
		return nil, NewValidationError("Invoice must have at least one line item")
	}
	if input.TaxRate.IsNegative() {
		return nil, NewValidationError("Tax rate cannot be negative")
	}
	if input.DiscountAmount.IsNegative() {
		return nil, NewValidationError("Discount amount cannot be negative")
	}
	if input.PaymentTerms < 0 {
		return nil, NewValidationError("Payment terms cannot be negative")
	}

	currency := input.Currency
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	issueDate := input.IssueDate
	if issueDate.IsZero() {
		issueDate = time.Now()
	}
	dueDate := issueDate.AddDate(0, 0, input.PaymentTerms)
	if input.DueDate != nil {
		dueDate = *input.DueDate
	}

	inv := &Invoice{
		BaseAggregateRoot:   shared.NewBaseAggregateRoot(),
		InvoiceNumber:       input.InvoiceNumber,
		CustomerID:          input.CustomerID,
		ProjectID:           input.ProjectID,
		Status:              InvoiceStatusDraft,
		Currency:            currency,
		IssueDate:           issueDate,
		DueDate:             dueDate,
		PaymentTerms:        input.PaymentTerms,
		TaxRate:             input.TaxRate,
		DiscountAmount:      input.DiscountAmount,
		ReferenceNumber:     input.ReferenceNumber,
		PONumber:            input.PONumber,
		LPONumber:           input.LPONumber,
		DeliveryDate:        input.DeliveryDate,
		PaymentInstructions: input.PaymentInstructions,
		Notes:               input.Notes,
		InternalNotes:       input.InternalNotes,
		LineItems:           normalizePositions(input.LineItems),
		StatusHistory:       []InvoiceStatusHistory{},
	}
	inv.CalculateTotals()

	inv.appendHistory(InvoiceStatusDraft, InvoiceStatusDraft, input.CreatedBy, "Invoice created")
	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))

	return inv, nil
}

// normalizePositions assigns display positions in slice order
func normalizePositions(items []InvoiceLineItem) []InvoiceLineItem {
	out := make([]InvoiceLineItem, len(items))
	copy(out, items)
	for i := range out {
		out[i].Position = i
	}
	return out
}

// CalculateTotals recomputes subtotal, tax and total from the current line
// items, tax rate and discount. It must be called after any line item or
// charge mutation; nothing invokes it implicitly.
func (inv *Invoice) CalculateTotals() {
	subtotal := decimal.Zero
	for _, item := range inv.LineItems {
		subtotal = subtotal.Add(item.TotalAmount)
	}
	inv.Subtotal = subtotal.Round(2)
	inv.TaxAmount = subtotal.Mul(inv.TaxRate).Div(decimal.NewFromInt(100)).Round(2)
	inv.TotalAmount = inv.Subtotal.Add(inv.TaxAmount).Sub(inv.DiscountAmount).Round(2)
}

// canModifyContent returns an error when the invoice content is frozen
func (inv *Invoice) canModifyContent() error {
	if inv.Status == InvoiceStatusPaid || inv.Status == InvoiceStatusCancelled {
		return shared.NewDomainError(ErrCodeValidation,
			fmt.Sprintf("Cannot edit invoice in %s status", inv.Status))
	}
	return nil
}

// ReplaceLineItems replaces the line item set wholesale. Callers must invoke
// CalculateTotals afterwards.
func (inv *Invoice) ReplaceLineItems(items []InvoiceLineItem) error {
	if err := inv.canModifyContent(); err != nil {
		return err
	}
	if len(items) == 0 {
		return NewValidationError("Invoice must have at least one line item")
	}
	inv.LineItems = normalizePositions(items)
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()
	return nil
}

// SetCharges updates tax rate and discount. Callers must invoke
// CalculateTotals afterwards.
func (inv *Invoice) SetCharges(taxRate, discountAmount decimal.Decimal) error {
	if err := inv.canModifyContent(); err != nil {
		return err
	}
	if taxRate.IsNegative() {
		return NewValidationError("Tax rate cannot be negative")
	}
	if discountAmount.IsNegative() {
		return NewValidationError("Discount amount cannot be negative")
	}
	inv.TaxRate = taxRate
	inv.DiscountAmount = discountAmount
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()
	return nil
}

// SetDates updates issue, due and delivery dates
func (inv *Invoice) SetDates(issueDate time.Time, dueDate time.Time, deliveryDate *time.Time) error {
	if err := inv.canModifyContent(); err != nil {
		return err
	}
	if !issueDate.IsZero() {
		inv.IssueDate = issueDate
	}
	if !dueDate.IsZero() {
		inv.DueDate = dueDate
	}
	inv.DeliveryDate = deliveryDate
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()
	return nil
}

// SetReferences updates the customer-facing reference fields
func (inv *Invoice) SetReferences(referenceNumber, poNumber, lpoNumber string) error {
	if err := inv.canModifyContent(); err != nil {
		return err
	}
	inv.ReferenceNumber = referenceNumber
	inv.PONumber = poNumber
	inv.LPONumber = lpoNumber
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()
	return nil
}

// SetNotes updates the notes and payment instructions
func (inv *Invoice) SetNotes(paymentInstructions, notes, internalNotes string) error {
	if err := inv.canModifyContent(); err != nil {
		return err
	}
	inv.PaymentInstructions = paymentInstructions
	inv.Notes = notes
	inv.InternalNotes = internalNotes
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()
	return nil
}

// UpdateStatus transitions the invoice to a new status. A same-status call is
// a no-op and writes no history record. The history record is appended in the
// same mutation so persistence commits both or neither.
func (inv *Invoice) UpdateStatus(newStatus InvoiceStatus, actor *uuid.UUID, notes string) error {
	if !newStatus.IsValid() {
		return NewValidationError(fmt.Sprintf("Unknown invoice status %q", newStatus))
	}
	if newStatus == inv.Status {
		return nil
	}
	if !inv.Status.CanTransitionTo(newStatus) {
		return NewInvalidTransitionError("invoice", inv.Status.String(), newStatus.String())
	}

	oldStatus := inv.Status
	now := time.Now()
	inv.Status = newStatus

	switch newStatus {
	case InvoiceStatusSent:
		inv.SentAt = &now
	case InvoiceStatusPaid:
		inv.PaidAt = &now
	}

	inv.appendHistory(oldStatus, newStatus, actor, notes)
	inv.UpdatedAt = now
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceStatusChangedEvent(inv, oldStatus, actor, notes))
	switch newStatus {
	case InvoiceStatusPaid:
		inv.AddDomainEvent(NewInvoicePaidEvent(inv))
	case InvoiceStatusOverdue:
		inv.AddDomainEvent(NewInvoiceOverdueEvent(inv))
	}

	return nil
}

// appendHistory records one status transition
func (inv *Invoice) appendHistory(oldStatus, newStatus InvoiceStatus, actor *uuid.UUID, notes string) {
	inv.StatusHistory = append(inv.StatusHistory, InvoiceStatusHistory{
		ID:        uuid.New(),
		InvoiceID: inv.ID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		ChangedBy: actor,
		Notes:     notes,
		CreatedAt: time.Now(),
	})
}

// IsOverdue returns true when the invoice is SENT and its due date is
// strictly in the past. Evaluated against the given reference time so reads
// never cache staleness.
func (inv *Invoice) IsOverdue(asOf time.Time) bool {
	if inv.Status != InvoiceStatusSent {
		return false
	}
	due := time.Date(inv.DueDate.Year(), inv.DueDate.Month(), inv.DueDate.Day(), 0, 0, 0, 0, inv.DueDate.Location())
	today := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, asOf.Location())
	return due.Before(today)
}

// CheckOverdueStatus transitions a SENT invoice past its due date to OVERDUE
// with a nil actor. Returns true when a transition happened.
func (inv *Invoice) CheckOverdueStatus(asOf time.Time) (bool, error) {
	if !inv.IsOverdue(asOf) {
		return false, nil
	}
	if err := inv.UpdateStatus(InvoiceStatusOverdue, nil, "Automatically marked overdue"); err != nil {
		return false, err
	}
	return true, nil
}

// TotalPaid sums the amounts of COMPLETED payments against this invoice.
// Computed on demand from the loaded payments, never cached.
func (inv *Invoice) TotalPaid() decimal.Decimal {
	total := decimal.Zero
	for _, p := range inv.Payments {
		if p.Status == PaymentStatusCompleted {
			total = total.Add(p.Amount)
		}
	}
	return total
}

// OutstandingAmount is the total owed minus completed payments. It can go
// negative transiently when payments overshoot; callers treat <= 0 as fully
// paid.
func (inv *Invoice) OutstandingAmount() decimal.Decimal {
	return inv.TotalAmount.Sub(inv.TotalPaid())
}

// IsFullyPaid returns true when the outstanding amount is zero or below
func (inv *Invoice) IsFullyPaid() bool {
	return inv.OutstandingAmount().LessThanOrEqual(decimal.Zero)
}

// PaymentURL returns the public payment page path for this invoice. The
// invoice UUID is the only externally resolvable handle.
func (inv *Invoice) PaymentURL() string {
	return fmt.Sprintf("/pay/%s", inv.ID)
}

// GetSubtotalMoney returns the subtotal as Money
func (inv *Invoice) GetSubtotalMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(inv.Subtotal, inv.Currency)
	return m
}

// GetTotalAmountMoney returns the total amount as Money
func (inv *Invoice) GetTotalAmountMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(inv.TotalAmount, inv.Currency)
	return m
}

// GetOutstandingAmountMoney returns the outstanding amount as Money
func (inv *Invoice) GetOutstandingAmountMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(inv.OutstandingAmount(), inv.Currency)
	return m
}

// IsDraft returns true if the invoice is in DRAFT status
func (inv *Invoice) IsDraft() bool {
	return inv.Status == InvoiceStatusDraft
}

// IsPayable returns true if payments may be initiated against this invoice
func (inv *Invoice) IsPayable() bool {
	return inv.Status == InvoiceStatusSent || inv.Status == InvoiceStatusOverdue
}

// DaysOverdue returns the number of days past due (0 if not overdue)
func (inv *Invoice) DaysOverdue(asOf time.Time) int {
	if inv.Status != InvoiceStatusSent && inv.Status != InvoiceStatusOverdue {
		return 0
	}
	if !asOf.After(inv.DueDate) {
		return 0
	}
	return int(asOf.Sub(inv.DueDate).Hours() / 24)
}

package invoicing

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wasatpay/backend/internal/domain/shared"
	"github.com/wasatpay/backend/internal/domain/shared/valueobject"
)

// PaymentStatus represents the status of a payment
type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "PENDING"
	PaymentStatusProcessing        PaymentStatus = "PROCESSING"
	PaymentStatusCompleted         PaymentStatus = "COMPLETED"
	PaymentStatusFailed            PaymentStatus = "FAILED"
	PaymentStatusCancelled         PaymentStatus = "CANCELLED"
	PaymentStatusRefunded          PaymentStatus = "REFUNDED"
	PaymentStatusPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusProcessing, PaymentStatusCompleted,
		PaymentStatusFailed, PaymentStatusCancelled, PaymentStatusRefunded,
		PaymentStatusPartiallyRefunded:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// PaymentMethod represents how the payer settles the payment
type PaymentMethod string

const (
	PaymentMethodCard         PaymentMethod = "CARD"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodMobileMoney  PaymentMethod = "MOBILE_MONEY"
	PaymentMethodMpesa        PaymentMethod = "MPESA"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCard, PaymentMethodBankTransfer, PaymentMethodMobileMoney, PaymentMethodMpesa:
		return true
	}
	return false
}

// PaymentProvider represents the external processor handling the payment
type PaymentProvider string

const (
	PaymentProviderStripe      PaymentProvider = "STRIPE"
	PaymentProviderFlutterwave PaymentProvider = "FLUTTERWAVE"
	PaymentProviderManual      PaymentProvider = "MANUAL"
)

// IsValid checks if the payment provider is valid
func (p PaymentProvider) IsValid() bool {
	switch p {
	case PaymentProviderStripe, PaymentProviderFlutterwave, PaymentProviderManual:
		return true
	}
	return false
}

// CardDetails carries card-specific payment details
type CardDetails struct {
	Brand string `json:"brand,omitempty"`
	Last4 string `json:"last4,omitempty"`
}

// BankDetails carries bank-transfer-specific payment details
type BankDetails struct {
	BankName     string `json:"bank_name,omitempty"`
	AccountLast4 string `json:"account_last4,omitempty"`
}

// MobileDetails carries mobile-money-specific payment details
type MobileDetails struct {
	Network     string `json:"network,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// MethodDetails is a tagged variant of method-specific payment details.
// Exactly one branch may be set, and it must match the payment method, which
// keeps illegal field combinations unrepresentable. Stored as JSONB.
type MethodDetails struct {
	Card   *CardDetails   `json:"card,omitempty"`
	Bank   *BankDetails   `json:"bank,omitempty"`
	Mobile *MobileDetails `json:"mobile,omitempty"`
}

// NewCardMethodDetails creates details for a card payment
func NewCardMethodDetails(brand, last4 string) MethodDetails {
	return MethodDetails{Card: &CardDetails{Brand: brand, Last4: last4}}
}

// NewBankMethodDetails creates details for a bank transfer payment
func NewBankMethodDetails(bankName, accountLast4 string) MethodDetails {
	return MethodDetails{Bank: &BankDetails{BankName: bankName, AccountLast4: accountLast4}}
}

// NewMobileMethodDetails creates details for a mobile money payment
func NewMobileMethodDetails(network, phoneNumber string) MethodDetails {
	return MethodDetails{Mobile: &MobileDetails{Network: network, PhoneNumber: phoneNumber}}
}

// IsEmpty returns true when no branch is set
func (d MethodDetails) IsEmpty() bool {
	return d.Card == nil && d.Bank == nil && d.Mobile == nil
}

// Validate checks that at most one branch is set and that it matches the
// payment method. Empty details are always valid.
func (d MethodDetails) Validate(method PaymentMethod) error {
	set := 0
	if d.Card != nil {
		set++
	}
	if d.Bank != nil {
		set++
	}
	if d.Mobile != nil {
		set++
	}
	if set == 0 {
		return nil
	}
	if set > 1 {
		return NewValidationError("Payment method details must set exactly one variant")
	}
	switch method {
	case PaymentMethodCard:
		if d.Card == nil {
			return NewValidationError("Card payments require card details")
		}
	case PaymentMethodBankTransfer:
		if d.Bank == nil {
			return NewValidationError("Bank transfer payments require bank details")
		}
	case PaymentMethodMobileMoney, PaymentMethodMpesa:
		if d.Mobile == nil {
			return NewValidationError("Mobile money payments require mobile details")
		}
	}
	return nil
}

// Value implements driver.Valuer for GORM to store as JSONB
func (d MethodDetails) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Scan implements sql.Scanner for GORM to read from JSONB
func (d *MethodDetails) Scan(value interface{}) error {
	if value == nil {
		*d = MethodDetails{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan MethodDetails: unsupported type")
	}
	if len(bytes) == 0 {
		*d = MethodDetails{}
		return nil
	}
	return json.Unmarshal(bytes, d)
}

// PaymentHistory is one immutable audit record of a payment status write.
// Unlike invoices, payments record every status write including same-status
// re-assertions from webhook replays.
type PaymentHistory struct {
	ID            uuid.UUID     `json:"id"`
	PaymentID     uuid.UUID     `json:"payment_id"`
	OldStatus     PaymentStatus `json:"old_status"`
	NewStatus     PaymentStatus `json:"new_status"`
	ChangedBy     *uuid.UUID    `json:"changed_by,omitempty"`
	Notes         string        `json:"notes,omitempty"`
	FailureReason string        `json:"failure_reason,omitempty"`
	FailureCode   string        `json:"failure_code,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Payment is a record of funds received (or attempted) against an invoice.
// It owns its refunds and history; the invoice is referenced, not owned.
type Payment struct {
	shared.BaseAggregateRoot
	InvoiceID               uuid.UUID            `json:"invoice_id"`
	Amount                  decimal.Decimal      `json:"amount"`
	Currency                valueobject.Currency `json:"currency"`
	Status                  PaymentStatus        `json:"status"`
	Method                  PaymentMethod        `json:"method"`
	Provider                PaymentProvider      `json:"provider"`
	ProviderPaymentIntentID string               `json:"provider_payment_intent_id,omitempty"`
	ProviderTransactionID   string               `json:"provider_transaction_id,omitempty"`
	ProviderReference       string               `json:"provider_reference,omitempty"`
	MethodDetails           MethodDetails        `json:"method_details"`
	PayerName               string               `json:"payer_name,omitempty"`
	PayerEmail              string               `json:"payer_email,omitempty"`
	PayerPhone              string               `json:"payer_phone,omitempty"`
	ProcessingFee           decimal.Decimal      `json:"processing_fee"`
	NetAmount               decimal.Decimal      `json:"net_amount"`
	FailureReason           string               `json:"failure_reason,omitempty"`
	FailureCode             string               `json:"failure_code,omitempty"`
	InitiatedAt             time.Time            `json:"initiated_at"`
	ProcessedAt             *time.Time           `json:"processed_at,omitempty"`
	CompletedAt             *time.Time           `json:"completed_at,omitempty"`
	FailedAt                *time.Time           `json:"failed_at,omitempty"`
	Refunds                 []Refund             `json:"refunds"`
	History                 []PaymentHistory     `json:"history"`
}

// NewPaymentInput carries the inputs for payment creation
type NewPaymentInput struct {
	InvoiceID     uuid.UUID
	Amount        valueobject.Money
	Method        PaymentMethod
	Provider      PaymentProvider
	MethodDetails MethodDetails
	PayerName     string
	PayerEmail    string
	PayerPhone    string
}

// NewPayment creates a payment in PENDING status
func NewPayment(input NewPaymentInput) (*Payment, error) {
	if input.InvoiceID == uuid.Nil {
		return nil, NewValidationError("Invoice ID cannot be empty")
	}
	if !input.Amount.IsPositive() {
		return nil, NewValidationError("Payment amount must be positive")
	}
	if !input.Method.IsValid() {
		return nil, NewValidationError(fmt.Sprintf("Unknown payment method %q", input.Method))
	}
	if !input.Provider.IsValid() {
		return nil, NewValidationError(fmt.Sprintf("Unknown payment provider %q", input.Provider))
	}
	if err := input.MethodDetails.Validate(input.Method); err != nil {
		return nil, err
	}

	now := time.Now()
	p := &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		InvoiceID:         input.InvoiceID,
		Amount:            input.Amount.Amount(),
		Currency:          input.Amount.Currency(),
		Status:            PaymentStatusPending,
		Method:            input.Method,
		Provider:          input.Provider,
		MethodDetails:     input.MethodDetails,
		PayerName:         input.PayerName,
		PayerEmail:        input.PayerEmail,
		PayerPhone:        input.PayerPhone,
		ProcessingFee:     decimal.Zero,
		InitiatedAt:       now,
		Refunds:           []Refund{},
		History:           []PaymentHistory{},
	}
	p.CalculateNetAmount()

	p.appendHistory(PaymentStatusPending, PaymentStatusPending, nil, "Payment initiated", "", "")
	p.AddDomainEvent(NewPaymentInitiatedEvent(p))

	return p, nil
}

// CalculateNetAmount recomputes the net amount from amount and processing fee
func (p *Payment) CalculateNetAmount() {
	p.NetAmount = p.Amount.Sub(p.ProcessingFee).Round(2)
}

// SetProcessingFee records the provider fee and recomputes the net amount
func (p *Payment) SetProcessingFee(fee decimal.Decimal) error {
	if fee.IsNegative() {
		return NewValidationError("Processing fee cannot be negative")
	}
	p.ProcessingFee = fee
	p.CalculateNetAmount()
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	return nil
}

// SetProviderCorrelation records provider correlation identifiers
func (p *Payment) SetProviderCorrelation(paymentIntentID, transactionID, reference string) {
	if paymentIntentID != "" {
		p.ProviderPaymentIntentID = paymentIntentID
	}
	if transactionID != "" {
		p.ProviderTransactionID = transactionID
	}
	if reference != "" {
		p.ProviderReference = reference
	}
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}

// StatusUpdate carries the inputs for a payment status write
type StatusUpdate struct {
	NewStatus     PaymentStatus
	Actor         *uuid.UUID // nil for system/webhook-driven writes
	Notes         string
	FailureReason string
	FailureCode   string
}

// UpdateStatus writes a payment status and its history record. The transition
// is validated against the given policy; a nil policy means permissive. Every
// write appends a history record, including same-status re-assertions.
func (p *Payment) UpdateStatus(update StatusUpdate, policy PaymentTransitionPolicy) error {
	if !update.NewStatus.IsValid() {
		return NewValidationError(fmt.Sprintf("Unknown payment status %q", update.NewStatus))
	}
	if policy != nil && !policy.CanTransition(p.Status, update.NewStatus) {
		return NewInvalidTransitionError("payment", p.Status.String(), update.NewStatus.String())
	}

	oldStatus := p.Status
	now := time.Now()
	p.Status = update.NewStatus

	switch update.NewStatus {
	case PaymentStatusProcessing:
		p.ProcessedAt = &now
	case PaymentStatusCompleted:
		p.CompletedAt = &now
	case PaymentStatusFailed:
		p.FailedAt = &now
		p.FailureReason = update.FailureReason
		p.FailureCode = update.FailureCode
	}

	p.appendHistory(oldStatus, update.NewStatus, update.Actor, update.Notes,
		update.FailureReason, update.FailureCode)
	p.UpdatedAt = now
	p.IncrementVersion()

	if oldStatus != update.NewStatus {
		p.AddDomainEvent(NewPaymentStatusChangedEvent(p, oldStatus, update.Actor))
		switch update.NewStatus {
		case PaymentStatusCompleted:
			p.AddDomainEvent(NewPaymentCompletedEvent(p))
		case PaymentStatusFailed:
			p.AddDomainEvent(NewPaymentFailedEvent(p, update.FailureReason, update.FailureCode))
		}
	}

	return nil
}

// appendHistory records one payment status write
func (p *Payment) appendHistory(oldStatus, newStatus PaymentStatus, actor *uuid.UUID, notes, failureReason, failureCode string) {
	p.History = append(p.History, PaymentHistory{
		ID:            uuid.New(),
		PaymentID:     p.ID,
		OldStatus:     oldStatus,
		NewStatus:     newStatus,
		ChangedBy:     actor,
		Notes:         notes,
		FailureReason: failureReason,
		FailureCode:   failureCode,
		CreatedAt:     time.Now(),
	})
}

// TotalRefunded sums the amounts of COMPLETED refunds. Computed on demand,
// never cached.
func (p *Payment) TotalRefunded() decimal.Decimal {
	total := decimal.Zero
	for _, r := range p.Refunds {
		if r.Status == RefundStatusCompleted {
			total = total.Add(r.Amount)
		}
	}
	return total
}

// RefundableAmount is the payment amount minus completed refunds
func (p *Payment) RefundableAmount() decimal.Decimal {
	return p.Amount.Sub(p.TotalRefunded())
}

// IsRefundable returns true when refunds may be requested
func (p *Payment) IsRefundable() bool {
	return p.Status == PaymentStatusCompleted ||
		p.Status == PaymentStatusPartiallyRefunded
}

// CreateRefund creates a PENDING refund against this payment. It does not
// reclassify the payment status; ReconcileRefundStatus does that once a
// refund reaches COMPLETED.
func (p *Payment) CreateRefund(amount valueobject.Money, reason string, requestedBy *uuid.UUID) (*Refund, error) {
	if !p.IsRefundable() {
		return nil, NewNotRefundableError(p.Status)
	}
	if !amount.IsPositive() {
		return nil, NewValidationError("Refund amount must be positive")
	}
	if amount.Currency() != p.Currency {
		return nil, NewValidationError(fmt.Sprintf("Refund currency %s does not match payment currency %s",
			amount.Currency(), p.Currency))
	}
	refundable := p.RefundableAmount()
	if amount.Amount().GreaterThan(refundable) {
		return nil, NewRefundExceedsBalanceError(amount.Amount(), refundable)
	}

	refund := newRefund(p.ID, amount, reason, requestedBy)
	p.Refunds = append(p.Refunds, *refund)
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewRefundRequestedEvent(p, refund))

	return refund, nil
}

// FindRefund returns the refund with the given ID, or nil
func (p *Payment) FindRefund(refundID uuid.UUID) *Refund {
	for i := range p.Refunds {
		if p.Refunds[i].ID == refundID {
			return &p.Refunds[i]
		}
	}
	return nil
}

// UpdateRefundStatus transitions one of the payment's refunds. Callers run
// ReconcileRefundStatus afterwards, in the same transaction.
func (p *Payment) UpdateRefundStatus(refundID uuid.UUID, newStatus RefundStatus, processedBy *uuid.UUID, failureReason string) error {
	refund := p.FindRefund(refundID)
	if refund == nil {
		return ErrRefundNotFound
	}

	var err error
	switch newStatus {
	case RefundStatusProcessing:
		err = refund.MarkProcessing(processedBy)
	case RefundStatusCompleted:
		err = refund.Complete(processedBy)
	case RefundStatusFailed:
		err = refund.Fail(failureReason)
	case RefundStatusCancelled:
		err = refund.Cancel()
	default:
		err = NewValidationError(fmt.Sprintf("Unknown refund status %q", newStatus))
	}
	if err != nil {
		return err
	}

	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	if newStatus == RefundStatusCompleted {
		p.AddDomainEvent(NewRefundCompletedEvent(p, refund))
	}

	return nil
}

// ReconcileRefundStatus reclassifies the payment after refund activity: fully
// refunded payments become REFUNDED, partially refunded ones become
// PARTIALLY_REFUNDED. The legacy system never performed this step; it is an
// explicit reconciliation so refund state and payment state cannot drift.
// It bypasses the transition policy since the reclassification is derived,
// not requested.
func (p *Payment) ReconcileRefundStatus() bool {
	refunded := p.TotalRefunded()
	if refunded.LessThanOrEqual(decimal.Zero) {
		return false
	}

	var target PaymentStatus
	if refunded.GreaterThanOrEqual(p.Amount) {
		target = PaymentStatusRefunded
	} else {
		target = PaymentStatusPartiallyRefunded
	}
	if p.Status == target {
		return false
	}

	oldStatus := p.Status
	now := time.Now()
	p.Status = target
	p.appendHistory(oldStatus, target, nil,
		fmt.Sprintf("Reclassified after refund: %s of %s refunded", refunded.StringFixed(2), p.Amount.StringFixed(2)), "", "")
	p.UpdatedAt = now
	p.IncrementVersion()

	p.AddDomainEvent(NewPaymentStatusChangedEvent(p, oldStatus, nil))

	return true
}

// GetAmountMoney returns the payment amount as Money
func (p *Payment) GetAmountMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(p.Amount, p.Currency)
	return m
}

// GetNetAmountMoney returns the net amount as Money
func (p *Payment) GetNetAmountMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(p.NetAmount, p.Currency)
	return m
}

// GetRefundableAmountMoney returns the refundable amount as Money
func (p *Payment) GetRefundableAmountMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(p.RefundableAmount(), p.Currency)
	return m
}

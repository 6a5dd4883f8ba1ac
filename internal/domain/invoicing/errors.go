package invoicing

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/wasatpay/backend/internal/domain/shared"
)

// Error codes used by the invoicing domain
const (
	ErrCodeValidation             = "VALIDATION_ERROR"
	ErrCodeNotFound               = "NOT_FOUND"
	ErrCodeInvalidTransition      = "INVALID_TRANSITION"
	ErrCodeNotRefundable          = "NOT_REFUNDABLE"
	ErrCodeRefundExceedsBalance   = "REFUND_EXCEEDS_BALANCE"
	ErrCodeDuplicateInvoiceNumber = "DUPLICATE_INVOICE_NUMBER"
	ErrCodePersistence            = "PERSISTENCE_ERROR"
)

// Common domain errors
var (
	ErrInvoiceNotFound        = shared.NewDomainError(ErrCodeNotFound, "Invoice not found")
	ErrPaymentNotFound        = shared.NewDomainError(ErrCodeNotFound, "Payment not found")
	ErrRefundNotFound         = shared.NewDomainError(ErrCodeNotFound, "Refund not found")
	ErrDuplicateInvoiceNumber = shared.NewDomainError(ErrCodeDuplicateInvoiceNumber, "Invoice number already exists")
)

// NewValidationError creates a validation error with the given message
func NewValidationError(message string) *shared.DomainError {
	return shared.NewDomainError(ErrCodeValidation, message)
}

// NewInvalidTransitionError creates an error for a disallowed status transition.
// The from/to pair is carried in the message so callers can surface it directly.
func NewInvalidTransitionError(entity, from, to string) *shared.DomainError {
	return shared.NewDomainError(ErrCodeInvalidTransition,
		fmt.Sprintf("Cannot transition %s from %s to %s", entity, from, to))
}

// NewNotRefundableError creates an error for refund attempts on a payment
// that is not in COMPLETED status
func NewNotRefundableError(status PaymentStatus) *shared.DomainError {
	return shared.NewDomainError(ErrCodeNotRefundable,
		fmt.Sprintf("Payment in %s status is not refundable", status))
}

// NewRefundExceedsBalanceError creates an error for refund amounts above the
// currently refundable balance
func NewRefundExceedsBalanceError(requested, refundable decimal.Decimal) *shared.DomainError {
	return shared.NewDomainError(ErrCodeRefundExceedsBalance,
		fmt.Sprintf("Refund amount %s exceeds refundable balance %s",
			requested.StringFixed(2), refundable.StringFixed(2)))
}

// NewPersistenceError wraps an underlying store failure as a domain error
func NewPersistenceError(op string, err error) *shared.DomainError {
	return shared.NewDomainError(ErrCodePersistence,
		fmt.Sprintf("%s: %v", op, err))
}

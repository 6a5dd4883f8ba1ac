package directory

import (
	"fmt"

	"github.com/wasatpay/backend/internal/domain/shared"
)

// Error codes used by the directory domain
const (
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeNotFound             = "NOT_FOUND"
	ErrCodeInvalidTransition    = "INVALID_TRANSITION"
	ErrCodeDuplicateEmail       = "DUPLICATE_EMAIL"
	ErrCodeDuplicateProjectCode = "DUPLICATE_PROJECT_CODE"
)

// Common domain errors
var (
	ErrCustomerNotFound     = shared.NewDomainError(ErrCodeNotFound, "Customer not found")
	ErrProjectNotFound      = shared.NewDomainError(ErrCodeNotFound, "Project not found")
	ErrDuplicateEmail       = shared.NewDomainError(ErrCodeDuplicateEmail, "A customer with this email already exists")
	ErrDuplicateProjectCode = shared.NewDomainError(ErrCodeDuplicateProjectCode, "Project code already exists")
)

// NewValidationError creates a validation error with the given message
func NewValidationError(message string) *shared.DomainError {
	return shared.NewDomainError(ErrCodeValidation, message)
}

// NewInvalidTransitionError creates an error for a disallowed status transition
func NewInvalidTransitionError(entity, from, to string) *shared.DomainError {
	return shared.NewDomainError(ErrCodeInvalidTransition,
		fmt.Sprintf("Cannot transition %s from %s to %s", entity, from, to))
}

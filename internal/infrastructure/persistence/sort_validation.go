package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// Common allowed sort fields for entities with base fields
// These are the common fields present in most entities

// CommonSortFields contains fields common to most entities
var CommonSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// InvoiceSortFields contains allowed sort fields for invoices
var InvoiceSortFields = map[string]bool{
	"id":              true,
	"created_at":      true,
	"updated_at":      true,
	"invoice_number":  true,
	"customer_id":     true,
	"project_id":      true,
	"status":          true,
	"currency":        true,
	"issue_date":      true,
	"due_date":        true,
	"subtotal":        true,
	"tax_amount":      true,
	"discount_amount": true,
	"total_amount":    true,
	"sent_at":         true,
	"paid_at":         true,
}

// PaymentSortFields contains allowed sort fields for payments
var PaymentSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"invoice_id":     true,
	"status":         true,
	"method":         true,
	"provider":       true,
	"amount":         true,
	"processing_fee": true,
	"payer_name":     true,
	"payer_email":    true,
	"initiated_at":   true,
	"completed_at":   true,
}

// CustomerSortFields contains allowed sort fields for customers
var CustomerSortFields = map[string]bool{
	"id":                true,
	"created_at":        true,
	"updated_at":        true,
	"type":              true,
	"first_name":        true,
	"last_name":         true,
	"organization_name": true,
	"primary_email":     true,
	"country":           true,
	"is_active":         true,
}

// ProjectSortFields contains allowed sort fields for projects
var ProjectSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"code":         true,
	"name":         true,
	"status":       true,
	"funding_type": true,
	"start_date":   true,
	"end_date":     true,
	"country":      true,
	"total_budget": true,
}

// RefundSortFields contains allowed sort fields for refunds
var RefundSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"payment_id":   true,
	"status":       true,
	"amount":       true,
	"processed_at": true,
	"completed_at": true,
}

package invoicing

// invoiceTransitions is the allowed transition table for invoices.
// PAID is terminal; CANCELLED invoices can be reactivated back to DRAFT.
var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusDraft:     {InvoiceStatusSent, InvoiceStatusCancelled},
	InvoiceStatusSent:      {InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled},
	InvoiceStatusOverdue:   {InvoiceStatusPaid, InvoiceStatusCancelled},
	InvoiceStatusPaid:      {},
	InvoiceStatusCancelled: {InvoiceStatusDraft},
}

// CanTransitionTo returns true if the invoice status transition is allowed
func (s InvoiceStatus) CanTransitionTo(target InvoiceStatus) bool {
	for _, allowed := range invoiceTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// PaymentTransitionPolicy decides whether a payment status change is allowed.
// The legacy system imposed no transition table on payments, so the default
// policy is permissive; a strict policy is available via configuration.
// Refund-driven reclassification (ReconcileRefundStatus) bypasses the policy.
type PaymentTransitionPolicy interface {
	CanTransition(from, to PaymentStatus) bool
	Name() string
}

// PermissivePaymentPolicy allows any payment status transition, matching the
// observed behavior of the legacy system (webhook replays may re-assert a
// status the payment already left).
type PermissivePaymentPolicy struct{}

// CanTransition always returns true
func (PermissivePaymentPolicy) CanTransition(_, _ PaymentStatus) bool { return true }

// Name returns the policy name
func (PermissivePaymentPolicy) Name() string { return "permissive" }

// StrictPaymentPolicy forbids transitions out of terminal payment states.
// COMPLETED payments may only move to refund states via reconciliation, which
// does not consult the policy.
type StrictPaymentPolicy struct{}

// CanTransition returns false for transitions out of terminal states
func (StrictPaymentPolicy) CanTransition(from, to PaymentStatus) bool {
	if from == to {
		return true
	}
	switch from {
	case PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled,
		PaymentStatusRefunded, PaymentStatusPartiallyRefunded:
		return false
	}
	return true
}

// Name returns the policy name
func (StrictPaymentPolicy) Name() string { return "strict" }

// PaymentPolicyFromName resolves a policy by configuration name.
// Unknown names fall back to the permissive default.
func PaymentPolicyFromName(name string) PaymentTransitionPolicy {
	if name == "strict" {
		return StrictPaymentPolicy{}
	}
	return PermissivePaymentPolicy{}
}

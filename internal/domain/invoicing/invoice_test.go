package invoicing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wasatpay/backend/internal/domain/shared/valueobject"
)

// Test helpers

func mustLineItem(t *testing.T, description string, qty float64, unitPrice float64) InvoiceLineItem {
	t.Helper()
	quantity, err := valueobject.NewQuantityFromFloat(qty, "unit")
	require.NoError(t, err)
	item, err := NewInvoiceLineItem(description, quantity, valueobject.NewMoneyUSDFromFloat(unitPrice), "")
	require.NoError(t, err)
	return *item
}

func createTestInvoice(t *testing.T) *Invoice {
	t.Helper()
	inv, err := NewInvoice(NewInvoiceInput{
		InvoiceNumber: "INV-2025-0001",
		CustomerID:    uuid.New(),
		IssueDate:     time.Now(),
		PaymentTerms:  30,
		TaxRate:       decimal.NewFromInt(10),
		DiscountAmount: decimal.NewFromFloat(5.00),
		LineItems: []InvoiceLineItem{
			mustLineItem(t, "Water purification kits", 2, 50.00),
			mustLineItem(t, "Logistics and delivery", 1, 100.00),
		},
	})
	require.NoError(t, err)
	return inv
}

func createSentInvoice(t *testing.T) *Invoice {
	t.Helper()
	inv := createTestInvoice(t)
	actor := uuid.New()
	require.NoError(t, inv.UpdateStatus(InvoiceStatusSent, &actor, "Sent to customer"))
	return inv
}

func completedPaymentFor(t *testing.T, inv *Invoice, amount float64) Payment {
	t.Helper()
	p, err := NewPayment(NewPaymentInput{
		InvoiceID: inv.ID,
		Amount:    valueobject.NewMoneyUSDFromFloat(amount),
		Method:    PaymentMethodCard,
		Provider:  PaymentProviderStripe,
	})
	require.NoError(t, err)
	require.NoError(t, p.UpdateStatus(StatusUpdate{NewStatus: PaymentStatusCompleted}, nil))
	return *p
}

func TestNewInvoice(t *testing.T) {
	customerID := uuid.New()

	t.Run("creates invoice with valid inputs", func(t *testing.T) {
		inv, err := NewInvoice(NewInvoiceInput{
			InvoiceNumber: "INV-2025-0042",
			CustomerID:    customerID,
			PaymentTerms:  14,
			LineItems:     []InvoiceLineItem{mustLineItem(t, "Consulting", 1, 250.00)},
		})
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, inv.ID)
		assert.Equal(t, "INV-2025-0042", inv.InvoiceNumber)
		assert.Equal(t, InvoiceStatusDraft, inv.Status)
		assert.Equal(t, valueobject.USD, inv.Currency)
		assert.Len(t, inv.LineItems, 1)
		assert.NotEmpty(t, inv.GetDomainEvents())
	})

	t.Run("writes initial history record", func(t *testing.T) {
		inv := createTestInvoice(t)
		require.Len(t, inv.StatusHistory, 1)
		assert.Equal(t, InvoiceStatusDraft, inv.StatusHistory[0].OldStatus)
		assert.Equal(t, InvoiceStatusDraft, inv.StatusHistory[0].NewStatus)
		assert.Equal(t, "Invoice created", inv.StatusHistory[0].Notes)
	})

	t.Run("defaults due date from payment terms", func(t *testing.T) {
		issue := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
		inv, err := NewInvoice(NewInvoiceInput{
			InvoiceNumber: "INV-2025-0043",
			CustomerID:    customerID,
			IssueDate:     issue,
			PaymentTerms:  30,
			LineItems:     []InvoiceLineItem{mustLineItem(t, "Consulting", 1, 100.00)},
		})
		require.NoError(t, err)
		assert.Equal(t, issue.AddDate(0, 0, 30), inv.DueDate)
	})

	t.Run("fails with empty invoice number", func(t *testing.T) {
		_, err := NewInvoice(NewInvoiceInput{
			CustomerID: customerID,
			LineItems:  []InvoiceLineItem{mustLineItem(t, "Consulting", 1, 100.00)},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Invoice number cannot be empty")
	})

	t.Run("fails with empty customer", func(t *testing.T) {
		_, err := NewInvoice(NewInvoiceInput{
			InvoiceNumber: "INV-2025-0044",
			LineItems:     []InvoiceLineItem{mustLineItem(t, "Consulting", 1, 100.00)},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Customer ID cannot be empty")
	})

	t.Run("fails without line items", func(t *testing.T) {
		_, err := NewInvoice(NewInvoiceInput{
			InvoiceNumber: "INV-2025-0044",
			CustomerID:    customerID,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least one line item")
	})

	t.Run("fails with negative tax rate", func(t *testing.T) {
		_, err := NewInvoice(NewInvoiceInput{
			InvoiceNumber: "INV-2025-0044",
			CustomerID:    customerID,
			TaxRate:       decimal.NewFromInt(-1),
			LineItems:     []InvoiceLineItem{mustLineItem(t, "Consulting", 1, 100.00)},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Tax rate cannot be negative")
	})
}

func TestNewInvoiceLineItem(t *testing.T) {
	t.Run("computes total from quantity and price", func(t *testing.T) {
		qty, _ := valueobject.NewQuantityFromFloat(2.5, "hour")
		item, err := NewInvoiceLineItem("Field assessment", qty, valueobject.NewMoneyUSDFromFloat(40.00), "SVC-01")
		require.NoError(t, err)
		assert.True(t, item.TotalAmount.Equal(decimal.NewFromFloat(100.00)))
		assert.Equal(t, "hour", item.UnitOfMeasure)
		assert.Equal(t, "SVC-01", item.ProductCode)
	})

	t.Run("fails with empty description", func(t *testing.T) {
		qty, _ := valueobject.NewQuantityFromFloat(1, "unit")
		_, err := NewInvoiceLineItem("", qty, valueobject.NewMoneyUSDFromFloat(10), "")
		require.Error(t, err)
	})

	t.Run("fails with zero quantity", func(t *testing.T) {
		qty, _ := valueobject.NewQuantityFromFloat(0, "unit")
		_, err := NewInvoiceLineItem("Item", qty, valueobject.NewMoneyUSDFromFloat(10), "")
		require.Error(t, err)
	})

	t.Run("fails with negative unit price", func(t *testing.T) {
		qty, _ := valueobject.NewQuantityFromFloat(1, "unit")
		_, err := NewInvoiceLineItem("Item", qty, valueobject.NewMoneyUSDFromFloat(-10), "")
		require.Error(t, err)
	})

	t.Run("recomputes total on quantity change", func(t *testing.T) {
		item := mustLineItem(t, "Item", 2, 50.00)
		newQty, _ := valueobject.NewQuantityFromFloat(3, "unit")
		require.NoError(t, item.SetQuantity(newQty))
		assert.True(t, item.TotalAmount.Equal(decimal.NewFromFloat(150.00)))
	})
}

func TestInvoiceCalculateTotals(t *testing.T) {
	t.Run("computes subtotal, tax and total", func(t *testing.T) {
		// items (2 x 50.00) + (1 x 100.00), tax 10%, discount 5.00
		inv := createTestInvoice(t)
		assert.True(t, inv.Subtotal.Equal(decimal.NewFromFloat(200.00)), "subtotal = %s", inv.Subtotal)
		assert.True(t, inv.TaxAmount.Equal(decimal.NewFromFloat(20.00)), "tax = %s", inv.TaxAmount)
		assert.True(t, inv.TotalAmount.Equal(decimal.NewFromFloat(215.00)), "total = %s", inv.TotalAmount)
	})

	t.Run("total identity holds after recalculation", func(t *testing.T) {
		inv := createTestInvoice(t)
		require.NoError(t, inv.ReplaceLineItems([]InvoiceLineItem{
			mustLineItem(t, "Blankets", 10, 12.30),
			mustLineItem(t, "Transport", 1, 77.77),
		}))
		inv.CalculateTotals()
		expected := inv.Subtotal.Add(inv.TaxAmount).Sub(inv.DiscountAmount)
		assert.True(t, inv.TotalAmount.Equal(expected))
	})

	t.Run("zero tax rate yields zero tax", func(t *testing.T) {
		inv, err := NewInvoice(NewInvoiceInput{
			InvoiceNumber: "INV-2025-0050",
			CustomerID:    uuid.New(),
			LineItems:     []InvoiceLineItem{mustLineItem(t, "Item", 3, 10.00)},
		})
		require.NoError(t, err)
		assert.True(t, inv.TaxAmount.IsZero())
		assert.True(t, inv.TotalAmount.Equal(decimal.NewFromFloat(30.00)))
	})
}

func TestInvoiceUpdateStatus(t *testing.T) {
	actor := uuid.New()

	t.Run("draft to sent sets sent_at and history", func(t *testing.T) {
		inv := createTestInvoice(t)
		historyBefore := len(inv.StatusHistory)
		err := inv.UpdateStatus(InvoiceStatusSent, &actor, "Sent to customer")
		require.NoError(t, err)
		assert.Equal(t, InvoiceStatusSent, inv.Status)
		require.NotNil(t, inv.SentAt)
		require.Len(t, inv.StatusHistory, historyBefore+1)
		last := inv.StatusHistory[len(inv.StatusHistory)-1]
		assert.Equal(t, InvoiceStatusDraft, last.OldStatus)
		assert.Equal(t, InvoiceStatusSent, last.NewStatus)
		assert.Equal(t, &actor, last.ChangedBy)
	})

	t.Run("same status is a no-op without history", func(t *testing.T) {
		inv := createSentInvoice(t)
		historyBefore := len(inv.StatusHistory)
		require.NoError(t, inv.UpdateStatus(InvoiceStatusSent, &actor, "again"))
		assert.Len(t, inv.StatusHistory, historyBefore)
	})

	t.Run("sent to paid sets paid_at", func(t *testing.T) {
		inv := createSentInvoice(t)
		require.NoError(t, inv.UpdateStatus(InvoiceStatusPaid, nil, "Paid in full"))
		assert.NotNil(t, inv.PaidAt)
	})

	t.Run("draft to paid is rejected", func(t *testing.T) {
		inv := createTestInvoice(t)
		err := inv.UpdateStatus(InvoiceStatusPaid, &actor, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Cannot transition invoice from DRAFT to PAID")
	})

	t.Run("paid is terminal", func(t *testing.T) {
		inv := createSentInvoice(t)
		require.NoError(t, inv.UpdateStatus(InvoiceStatusPaid, nil, ""))
		for _, target := range []InvoiceStatus{InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusOverdue, InvoiceStatusCancelled} {
			err := inv.UpdateStatus(target, &actor, "")
			require.Error(t, err, "PAID -> %s should fail", target)
		}
	})

	t.Run("cancelled can be reactivated to draft", func(t *testing.T) {
		inv := createTestInvoice(t)
		require.NoError(t, inv.UpdateStatus(InvoiceStatusCancelled, &actor, "Cancelled by mistake"))
		require.NoError(t, inv.UpdateStatus(InvoiceStatusDraft, &actor, "Reactivated"))
		assert.Equal(t, InvoiceStatusDraft, inv.Status)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		inv := createTestInvoice(t)
		err := inv.UpdateStatus(InvoiceStatus("ARCHIVED"), &actor, "")
		require.Error(t, err)
	})
}

func TestInvoiceOverdue(t *testing.T) {
	t.Run("sent invoice past due is overdue", func(t *testing.T) {
		inv := createSentInvoice(t)
		asOf := inv.DueDate.AddDate(0, 0, 2)
		assert.True(t, inv.IsOverdue(asOf))
	})

	t.Run("sent invoice due today is not overdue", func(t *testing.T) {
		inv := createSentInvoice(t)
		assert.False(t, inv.IsOverdue(inv.DueDate))
	})

	t.Run("draft invoice is never overdue", func(t *testing.T) {
		inv := createTestInvoice(t)
		assert.False(t, inv.IsOverdue(inv.DueDate.AddDate(1, 0, 0)))
	})

	t.Run("check transitions sent to overdue with nil actor", func(t *testing.T) {
		inv := createSentInvoice(t)
		changed, err := inv.CheckOverdueStatus(inv.DueDate.AddDate(0, 0, 1))
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, InvoiceStatusOverdue, inv.Status)
		last := inv.StatusHistory[len(inv.StatusHistory)-1]
		assert.Nil(t, last.ChangedBy)
	})

	t.Run("check is a no-op before due date", func(t *testing.T) {
		inv := createSentInvoice(t)
		changed, err := inv.CheckOverdueStatus(inv.DueDate)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, InvoiceStatusSent, inv.Status)
	})
}

func TestInvoiceOutstanding(t *testing.T) {
	t.Run("zero payments means outstanding equals total", func(t *testing.T) {
		inv := createTestInvoice(t)
		assert.True(t, inv.OutstandingAmount().Equal(inv.TotalAmount))
		assert.False(t, inv.IsFullyPaid())
	})

	t.Run("completed payment reduces outstanding to zero", func(t *testing.T) {
		inv := createSentInvoice(t)
		inv.Payments = []Payment{completedPaymentFor(t, inv, 215.00)}
		assert.True(t, inv.OutstandingAmount().IsZero())
		assert.True(t, inv.IsFullyPaid())
	})

	t.Run("pending payments do not count", func(t *testing.T) {
		inv := createSentInvoice(t)
		p, err := NewPayment(NewPaymentInput{
			InvoiceID: inv.ID,
			Amount:    valueobject.NewMoneyUSDFromFloat(215.00),
			Method:    PaymentMethodMpesa,
			Provider:  PaymentProviderFlutterwave,
		})
		require.NoError(t, err)
		inv.Payments = []Payment{*p}
		assert.True(t, inv.OutstandingAmount().Equal(inv.TotalAmount))
	})

	t.Run("overshoot drives outstanding negative", func(t *testing.T) {
		inv := createSentInvoice(t)
		inv.Payments = []Payment{
			completedPaymentFor(t, inv, 215.00),
			completedPaymentFor(t, inv, 10.00),
		}
		assert.True(t, inv.OutstandingAmount().IsNegative())
		assert.True(t, inv.IsFullyPaid())
	})
}

func TestInvoiceContentGuards(t *testing.T) {
	t.Run("paid invoice rejects line item changes", func(t *testing.T) {
		inv := createSentInvoice(t)
		require.NoError(t, inv.UpdateStatus(InvoiceStatusPaid, nil, ""))
		err := inv.ReplaceLineItems([]InvoiceLineItem{mustLineItem(t, "Item", 1, 10.00)})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Cannot edit invoice in PAID status")
	})

	t.Run("cancelled invoice rejects charge changes", func(t *testing.T) {
		inv := createTestInvoice(t)
		actor := uuid.New()
		require.NoError(t, inv.UpdateStatus(InvoiceStatusCancelled, &actor, ""))
		err := inv.SetCharges(decimal.NewFromInt(5), decimal.Zero)
		require.Error(t, err)
	})

	t.Run("replace requires at least one item", func(t *testing.T) {
		inv := createTestInvoice(t)
		err := inv.ReplaceLineItems(nil)
		require.Error(t, err)
	})

	t.Run("replace renumbers positions", func(t *testing.T) {
		inv := createTestInvoice(t)
		items := []InvoiceLineItem{
			mustLineItem(t, "First", 1, 10.00),
			mustLineItem(t, "Second", 1, 20.00),
			mustLineItem(t, "Third", 1, 30.00),
		}
		require.NoError(t, inv.ReplaceLineItems(items))
		for i, item := range inv.LineItems {
			assert.Equal(t, i, item.Position)
		}
	})
}

func TestInvoicePaymentURL(t *testing.T) {
	inv := createTestInvoice(t)
	assert.Equal(t, "/pay/"+inv.ID.String(), inv.PaymentURL())
}

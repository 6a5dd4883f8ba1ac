package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appinvoicing "github.com/wasatpay/backend/internal/application/invoicing"
	"github.com/wasatpay/backend/internal/domain/invoicing"
	"github.com/wasatpay/backend/internal/domain/shared"
	"github.com/wasatpay/backend/internal/infrastructure/cache"
	"github.com/wasatpay/backend/internal/infrastructure/persistence"
	"go.uber.org/zap"
)

// testServices bundles the application services wired against a real database.
type testServices struct {
	invoices *appinvoicing.InvoiceService
	payments *appinvoicing.PaymentService
	webhooks *appinvoicing.WebhookService
	repo     invoicing.PaymentRepository
	uow      invoicing.UnitOfWork
}

func newTestServices(t *testing.T, tdb *TestDB) *testServices {
	t.Helper()

	log := zap.NewNop()
	invoiceRepo := persistence.NewGormInvoiceRepository(tdb.DB)
	paymentRepo := persistence.NewGormPaymentRepository(tdb.DB)
	uow := persistence.NewGormUnitOfWork(tdb.DB)
	policy := invoicing.PermissivePaymentPolicy{}

	idemStore := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() {
		_ = idemStore.Close()
	})

	return &testServices{
		invoices: appinvoicing.NewInvoiceService(uow, invoiceRepo, nil, log),
		payments: appinvoicing.NewPaymentService(uow, paymentRepo, policy, nil, log),
		webhooks: appinvoicing.NewWebhookService(uow, policy, idemStore, shared.DefaultIdempotencyConfig(), log),
		repo:     paymentRepo,
		uow:      uow,
	}
}

// correlate tags a payment with a provider payment intent id so a later
// webhook delivery can resolve it.
func (s *testServices) correlate(t *testing.T, paymentID uuid.UUID, intentID string) {
	t.Helper()

	err := s.uow.Execute(context.Background(), func(repos invoicing.Repositories) error {
		p, err := repos.Payments.FindByID(context.Background(), paymentID)
		if err != nil {
			return err
		}
		p.SetProviderCorrelation(intentID, "", "")
		return repos.Payments.SaveWithLock(context.Background(), p)
	})
	require.NoError(t, err)
}

func TestInvoiceLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := NewTestDB(t)
	svc := newTestServices(t, tdb)
	ctx := context.Background()

	// Create a draft invoice: 2 x 100.00 USD, no tax, no discount
	inv, err := svc.invoices.CreateInvoice(ctx, appinvoicing.CreateInvoiceRequest{
		CustomerID:   uuid.New(),
		Currency:     "USD",
		IssueDate:    time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		PaymentTerms: 30,
		LineItems: []appinvoicing.LineItemInput{
			{Description: "Water trucking", Quantity: decimal.NewFromInt(2), Unit: "trip", UnitPrice: decimal.NewFromInt(100)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, invoicing.InvoiceStatusDraft, inv.Status)
	assert.Regexp(t, `^INV-\d{4}-\d{4}$`, inv.InvoiceNumber)
	assert.True(t, inv.TotalAmount.Equal(decimal.NewFromInt(200)), "total should be 200, got %s", inv.TotalAmount)

	// Issue the invoice
	inv, err = svc.invoices.UpdateInvoiceStatus(ctx, inv.ID, invoicing.InvoiceStatusSent, nil, "issued")
	require.NoError(t, err)
	assert.Equal(t, invoicing.InvoiceStatusSent, inv.Status)
	historyAfterSent := len(inv.StatusHistory)

	// A repeated SENT request is a no-op, not a version conflict
	inv, err = svc.invoices.UpdateInvoiceStatus(ctx, inv.ID, invoicing.InvoiceStatusSent, nil, "issued again")
	require.NoError(t, err)
	assert.Equal(t, invoicing.InvoiceStatusSent, inv.Status)

	inv, err = svc.invoices.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Len(t, inv.StatusHistory, historyAfterSent)

	// First partial payment of 120.00 through Stripe
	firstPayment, err := svc.payments.InitiatePayment(ctx, appinvoicing.InitiatePaymentRequest{
		InvoiceID:     inv.ID,
		Amount:        decimalPtr(decimal.NewFromInt(120)),
		Method:        invoicing.PaymentMethodCard,
		Provider:      invoicing.PaymentProviderStripe,
		MethodDetails: invoicing.NewCardMethodDetails("visa", "4242"),
		PayerName:     "Amina Hassan",
		PayerEmail:    "amina@example.org",
	})
	require.NoError(t, err)
	assert.Equal(t, invoicing.PaymentStatusPending, firstPayment.Status)

	svc.correlate(t, firstPayment.ID, "pi_test_0001")

	// Provider confirms the first payment
	result, err := svc.webhooks.HandleProviderEvent(ctx, appinvoicing.ProviderEvent{
		Provider:      invoicing.PaymentProviderStripe,
		EventID:       "evt_0001",
		CorrelationID: "pi_test_0001",
		Outcome:       appinvoicing.ProviderOutcomeSuccess,
		TransactionID: "ch_0001",
		ProcessingFee: decimal.NewFromFloat(3.50),
	})
	require.NoError(t, err)
	assert.True(t, result.Processed)

	firstPayment, err = svc.payments.GetPayment(ctx, firstPayment.ID)
	require.NoError(t, err)
	assert.Equal(t, invoicing.PaymentStatusCompleted, firstPayment.Status)
	assert.True(t, firstPayment.ProcessingFee.Equal(decimal.NewFromFloat(3.50)))

	// Partially paid invoices stay SENT
	inv, err = svc.invoices.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, invoicing.InvoiceStatusSent, inv.Status)
	assert.True(t, inv.OutstandingAmount().Equal(decimal.NewFromInt(80)), "outstanding should be 80, got %s", inv.OutstandingAmount())

	// A redelivered event is suppressed, not reapplied
	result, err = svc.webhooks.HandleProviderEvent(ctx, appinvoicing.ProviderEvent{
		Provider:      invoicing.PaymentProviderStripe,
		EventID:       "evt_0001",
		CorrelationID: "pi_test_0001",
		Outcome:       appinvoicing.ProviderOutcomeSuccess,
	})
	require.NoError(t, err)
	assert.False(t, result.Processed)

	// Second payment settles the balance
	secondPayment, err := svc.payments.InitiatePayment(ctx, appinvoicing.InitiatePaymentRequest{
		InvoiceID:     inv.ID,
		Method:        invoicing.PaymentMethodMpesa,
		Provider:      invoicing.PaymentProviderFlutterwave,
		MethodDetails: invoicing.NewMobileMethodDetails("safaricom", "+254700000001"),
		PayerName:     "Amina Hassan",
	})
	require.NoError(t, err)
	assert.True(t, secondPayment.Amount.Equal(decimal.NewFromInt(80)), "omitted amount should default to the outstanding balance")

	svc.correlate(t, secondPayment.ID, "flw_tx_0002")

	result, err = svc.webhooks.HandleProviderEvent(ctx, appinvoicing.ProviderEvent{
		Provider:      invoicing.PaymentProviderFlutterwave,
		EventID:       "evt_0002",
		CorrelationID: "flw_tx_0002",
		Outcome:       appinvoicing.ProviderOutcomeSuccess,
	})
	require.NoError(t, err)
	assert.True(t, result.Processed)

	inv, err = svc.invoices.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, invoicing.InvoiceStatusPaid, inv.Status)
	assert.True(t, inv.IsFullyPaid())

	// Partial refund on the first payment
	refund, err := svc.payments.CreateRefund(ctx, firstPayment.ID, decimal.NewFromInt(50), "Overcharge correction", nil)
	require.NoError(t, err)
	assert.Equal(t, invoicing.RefundStatusPending, refund.Status)

	firstPayment, err = svc.payments.UpdateRefundStatus(ctx, firstPayment.ID, refund.ID, invoicing.RefundStatusCompleted, nil, "")
	require.NoError(t, err)
	assert.Equal(t, invoicing.PaymentStatusPartiallyRefunded, firstPayment.Status)
	assert.True(t, firstPayment.TotalRefunded().Equal(decimal.NewFromInt(50)))

	// Stats reflect the finished lifecycle
	invStats, err := svc.invoices.GetInvoiceStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, invStats.TotalCount)

	payStats, err := svc.payments.GetPaymentStats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, payStats.TotalCount)
}

func TestWebhookFailureMarksPaymentFailed(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tdb := NewTestDB(t)
	svc := newTestServices(t, tdb)
	ctx := context.Background()

	inv, err := svc.invoices.CreateInvoice(ctx, appinvoicing.CreateInvoiceRequest{
		CustomerID:   uuid.New(),
		Currency:     "USD",
		IssueDate:    time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		PaymentTerms: 14,
		LineItems: []appinvoicing.LineItemInput{
			{Description: "Medical supplies", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(500)},
		},
	})
	require.NoError(t, err)

	_, err = svc.invoices.UpdateInvoiceStatus(ctx, inv.ID, invoicing.InvoiceStatusSent, nil, "")
	require.NoError(t, err)

	payment, err := svc.payments.InitiatePayment(ctx, appinvoicing.InitiatePaymentRequest{
		InvoiceID:     inv.ID,
		Method:        invoicing.PaymentMethodCard,
		Provider:      invoicing.PaymentProviderStripe,
		MethodDetails: invoicing.NewCardMethodDetails("mastercard", "5100"),
		PayerName:     "Omar Farah",
	})
	require.NoError(t, err)

	svc.correlate(t, payment.ID, "pi_test_declined")

	result, err := svc.webhooks.HandleProviderEvent(ctx, appinvoicing.ProviderEvent{
		Provider:      invoicing.PaymentProviderStripe,
		EventID:       "evt_declined",
		CorrelationID: "pi_test_declined",
		Outcome:       appinvoicing.ProviderOutcomeFailure,
		FailureReason: "Insufficient funds",
		FailureCode:   "card_declined",
	})
	require.NoError(t, err)
	assert.True(t, result.Processed)

	payment, err = svc.payments.GetPayment(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, invoicing.PaymentStatusFailed, payment.Status)
	assert.Equal(t, "Insufficient funds", payment.FailureReason)

	// A failed payment leaves the invoice unpaid
	inv, err = svc.invoices.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, invoicing.InvoiceStatusSent, inv.Status)
	assert.True(t, inv.OutstandingAmount().Equal(decimal.NewFromInt(500)))
}

func decimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

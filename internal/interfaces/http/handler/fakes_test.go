package handler

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	appinvoicing "github.com/wasatpay/backend/internal/application/invoicing"
	"github.com/wasatpay/backend/internal/domain/invoicing"
	"github.com/wasatpay/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// fakeStore is an in-memory backing store shared by the fake repositories so
// handler tests can run against the real application services.
type fakeStore struct {
	mu       sync.Mutex
	invoices map[uuid.UUID]invoicing.Invoice
	payments map[uuid.UUID]invoicing.Payment
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		invoices: make(map[uuid.UUID]invoicing.Invoice),
		payments: make(map[uuid.UUID]invoicing.Payment),
	}
}

func (s *fakeStore) repositories() invoicing.Repositories {
	return invoicing.Repositories{
		Invoices: &fakeInvoiceRepo{store: s},
		Payments: &fakePaymentRepo{store: s},
	}
}

func (s *fakeStore) paymentsFor(invoiceID uuid.UUID) []invoicing.Payment {
	var out []invoicing.Payment
	for _, p := range s.payments {
		if p.InvoiceID == invoiceID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InitiatedAt.Before(out[j].InitiatedAt) })
	return out
}

type fakeInvoiceRepo struct {
	store *fakeStore
}

func (r *fakeInvoiceRepo) FindByID(_ context.Context, id uuid.UUID) (*invoicing.Invoice, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	inv, ok := r.store.invoices[id]
	if !ok {
		return nil, invoicing.ErrInvoiceNotFound
	}
	inv.Payments = r.store.paymentsFor(id)
	return &inv, nil
}

func (r *fakeInvoiceRepo) FindByNumber(_ context.Context, number string) (*invoicing.Invoice, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, inv := range r.store.invoices {
		if inv.InvoiceNumber == number {
			inv.Payments = r.store.paymentsFor(inv.ID)
			return &inv, nil
		}
	}
	return nil, invoicing.ErrInvoiceNotFound
}

func (r *fakeInvoiceRepo) FindAll(_ context.Context, filter invoicing.InvoiceFilter) ([]invoicing.Invoice, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []invoicing.Invoice
	for _, inv := range r.store.invoices {
		if filter.Status != nil && inv.Status != *filter.Status {
			continue
		}
		if filter.CustomerID != nil && inv.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.Search != "" && !strings.Contains(inv.InvoiceNumber, filter.Search) {
			continue
		}
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InvoiceNumber < out[j].InvoiceNumber })
	return out, int64(len(out)), nil
}

func (r *fakeInvoiceRepo) FindDueForOverdueCheck(_ context.Context, asOf time.Time) ([]invoicing.Invoice, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []invoicing.Invoice
	for _, inv := range r.store.invoices {
		if inv.IsOverdue(asOf) {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *fakeInvoiceRepo) Save(_ context.Context, invoice *invoicing.Invoice) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for id, existing := range r.store.invoices {
		if id != invoice.ID && existing.InvoiceNumber == invoice.InvoiceNumber {
			return invoicing.ErrDuplicateInvoiceNumber
		}
	}
	r.store.invoices[invoice.ID] = *invoice
	return nil
}

func (r *fakeInvoiceRepo) SaveWithLock(ctx context.Context, invoice *invoicing.Invoice) error {
	return r.Save(ctx, invoice)
}

func (r *fakeInvoiceRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.invoices[id]; !ok {
		return invoicing.ErrInvoiceNotFound
	}
	delete(r.store.invoices, id)
	return nil
}

func (r *fakeInvoiceRepo) ExistsByNumber(_ context.Context, number string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, inv := range r.store.invoices {
		if inv.InvoiceNumber == number {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeInvoiceRepo) NextInvoiceNumber(_ context.Context, year int) (string, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var numbers []string
	for _, inv := range r.store.invoices {
		numbers = append(numbers, inv.InvoiceNumber)
	}
	return invoicing.FormatInvoiceNumber(year, invoicing.NextInvoiceSequence(numbers, year)), nil
}

func (r *fakeInvoiceRepo) Stats(_ context.Context) (*invoicing.InvoiceStats, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	stats := &invoicing.InvoiceStats{TotalAmount: decimal.Zero}
	for _, inv := range r.store.invoices {
		stats.TotalCount++
		stats.TotalAmount = stats.TotalAmount.Add(inv.TotalAmount)
		if inv.Status == invoicing.InvoiceStatusOverdue {
			stats.OverdueCount++
		}
	}
	return stats, nil
}

type fakePaymentRepo struct {
	store *fakeStore
}

func (r *fakePaymentRepo) FindByID(_ context.Context, id uuid.UUID) (*invoicing.Payment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.payments[id]
	if !ok {
		return nil, invoicing.ErrPaymentNotFound
	}
	return &p, nil
}

func (r *fakePaymentRepo) FindByInvoiceID(_ context.Context, invoiceID uuid.UUID) ([]invoicing.Payment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.paymentsFor(invoiceID), nil
}

func (r *fakePaymentRepo) FindAll(_ context.Context, filter invoicing.PaymentFilter) ([]invoicing.Payment, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []invoicing.Payment
	for _, p := range r.store.payments {
		if filter.InvoiceID != nil && p.InvoiceID != *filter.InvoiceID {
			continue
		}
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		if filter.Provider != nil && p.Provider != *filter.Provider {
			continue
		}
		out = append(out, p)
	}
	return out, int64(len(out)), nil
}

func (r *fakePaymentRepo) FindByProviderCorrelation(_ context.Context, provider invoicing.PaymentProvider, correlationID string) (*invoicing.Payment, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, p := range r.store.payments {
		if p.Provider != provider {
			continue
		}
		if p.ProviderPaymentIntentID == correlationID ||
			p.ProviderTransactionID == correlationID ||
			p.ProviderReference == correlationID {
			return &p, nil
		}
	}
	return nil, invoicing.ErrPaymentNotFound
}

func (r *fakePaymentRepo) Save(_ context.Context, payment *invoicing.Payment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.payments[payment.ID] = *payment
	return nil
}

func (r *fakePaymentRepo) SaveWithLock(ctx context.Context, payment *invoicing.Payment) error {
	return r.Save(ctx, payment)
}

func (r *fakePaymentRepo) Stats(_ context.Context) (*invoicing.PaymentStats, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	stats := &invoicing.PaymentStats{
		TotalReceived: decimal.Zero,
		TotalFees:     decimal.Zero,
		TotalRefunded: decimal.Zero,
	}
	for _, p := range r.store.payments {
		stats.TotalCount++
		if p.Status == invoicing.PaymentStatusCompleted {
			stats.TotalReceived = stats.TotalReceived.Add(p.Amount)
		}
	}
	return stats, nil
}

// fakeUnitOfWork runs the function against the shared store without real
// transaction semantics.
type fakeUnitOfWork struct {
	store *fakeStore
}

func (u *fakeUnitOfWork) Execute(_ context.Context, fn func(repos invoicing.Repositories) error) error {
	return fn(u.store.repositories())
}

// stubRenderer returns a fixed byte payload for PDF requests
type stubRenderer struct {
	data []byte
	err  error
}

func (r *stubRenderer) RenderInvoicePDF(_ context.Context, _ *invoicing.Invoice) ([]byte, error) {
	return r.data, r.err
}

// testEnv wires real application services over the fake store for handler
// tests. Requests go through a real gin engine so binding, routing and
// response envelopes are exercised end to end.
type testEnv struct {
	store          *fakeStore
	invoiceService *appinvoicing.InvoiceService
	paymentService *appinvoicing.PaymentService
	webhookService *appinvoicing.WebhookService
}

func newTestEnv() *testEnv {
	store := newFakeStore()
	repos := store.repositories()
	uow := &fakeUnitOfWork{store: store}
	logger := zap.NewNop()
	return &testEnv{
		store: store,
		invoiceService: appinvoicing.NewInvoiceService(uow, repos.Invoices,
			&stubRenderer{data: []byte("%PDF-1.4 test")}, logger),
		paymentService: appinvoicing.NewPaymentService(uow, repos.Payments,
			invoicing.StrictPaymentPolicy{}, nil, logger),
		webhookService: appinvoicing.NewWebhookService(uow, invoicing.StrictPaymentPolicy{},
			nil, shared.DefaultIdempotencyConfig(), logger),
	}
}

// seedInvoice creates an invoice through the service and returns it
func (e *testEnv) seedInvoice() *invoicing.Invoice {
	inv, err := e.invoiceService.CreateInvoice(context.Background(), appinvoicing.CreateInvoiceRequest{
		CustomerID:   uuid.New(),
		IssueDate:    time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		PaymentTerms: 30,
		LineItems: []appinvoicing.LineItemInput{
			{Description: "Water purification kits", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromFloat(50.00)},
			{Description: "Logistics and delivery", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromFloat(100.00)},
		},
	})
	if err != nil {
		panic(err)
	}
	return inv
}

// seedSentInvoice creates an invoice and moves it to SENT
func (e *testEnv) seedSentInvoice() *invoicing.Invoice {
	inv := e.seedInvoice()
	sent, err := e.invoiceService.UpdateInvoiceStatus(context.Background(), inv.ID,
		invoicing.InvoiceStatusSent, nil, "")
	if err != nil {
		panic(err)
	}
	return sent
}

// seedPayment initiates a payment against a SENT invoice
func (e *testEnv) seedPayment(invoiceID uuid.UUID) *invoicing.Payment {
	p, err := e.paymentService.InitiatePayment(context.Background(), appinvoicing.InitiatePaymentRequest{
		InvoiceID: invoiceID,
		Method:    invoicing.PaymentMethodCard,
		Provider:  invoicing.PaymentProviderStripe,
		PayerName: "Amina Hassan",
	})
	if err != nil {
		panic(err)
	}
	return p
}

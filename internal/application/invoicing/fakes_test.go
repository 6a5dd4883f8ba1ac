package invoicing

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wasatpay/backend/internal/domain/invoicing"
	"github.com/wasatpay/backend/internal/domain/shared"
)

// fakeStore is an in-memory backing store shared by the fake repositories.
// It emulates the persistence behaviors the services rely on: joined payment
// loads, the unique index on invoice_number and provider correlation lookups.
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

// paymentsFor returns copies of all payments against one invoice
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
	r.store.mu.Lock()
	existing, ok := r.store.invoices[invoice.ID]
	if !ok {
		r.store.mu.Unlock()
		return invoicing.ErrInvoiceNotFound
	}
	// Mirror the version guard of the real repository: the caller must have
	// incremented the version past the stored one.
	if existing.Version >= invoice.Version {
		r.store.mu.Unlock()
		return shared.ErrConcurrencyConflict
	}
	r.store.mu.Unlock()
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
	buckets := make(map[invoicing.InvoiceStatus]*invoicing.InvoiceStatusCount)
	for _, inv := range r.store.invoices {
		b, ok := buckets[inv.Status]
		if !ok {
			b = &invoicing.InvoiceStatusCount{Status: inv.Status, Amount: decimal.Zero}
			buckets[inv.Status] = b
		}
		b.Count++
		b.Amount = b.Amount.Add(inv.TotalAmount)
		stats.TotalCount++
		stats.TotalAmount = stats.TotalAmount.Add(inv.TotalAmount)
		if inv.Status == invoicing.InvoiceStatusOverdue {
			stats.OverdueCount++
		}
	}
	for _, b := range buckets {
		stats.ByStatus = append(stats.ByStatus, *b)
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
	r.store.mu.Lock()
	existing, ok := r.store.payments[payment.ID]
	if !ok {
		r.store.mu.Unlock()
		return invoicing.ErrPaymentNotFound
	}
	if existing.Version >= payment.Version {
		r.store.mu.Unlock()
		return shared.ErrConcurrencyConflict
	}
	r.store.mu.Unlock()
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
	buckets := make(map[invoicing.PaymentStatus]*invoicing.PaymentStatusCount)
	for _, p := range r.store.payments {
		b, ok := buckets[p.Status]
		if !ok {
			b = &invoicing.PaymentStatusCount{Status: p.Status, Amount: decimal.Zero}
			buckets[p.Status] = b
		}
		b.Count++
		b.Amount = b.Amount.Add(p.Amount)
		stats.TotalCount++
		if p.Status == invoicing.PaymentStatusCompleted {
			stats.TotalReceived = stats.TotalReceived.Add(p.Amount)
			stats.TotalFees = stats.TotalFees.Add(p.ProcessingFee)
		}
		stats.TotalRefunded = stats.TotalRefunded.Add(p.TotalRefunded())
	}
	for _, b := range buckets {
		stats.ByStatus = append(stats.ByStatus, *b)
	}
	return stats, nil
}

// fakeUnitOfWork runs the function against the shared store without real
// transaction semantics; the services under test only need the repositories.
type fakeUnitOfWork struct {
	store *fakeStore
}

func (u *fakeUnitOfWork) Execute(_ context.Context, fn func(repos invoicing.Repositories) error) error {
	return fn(u.store.repositories())
}

// fakeIdempotencyStore remembers marked keys in memory
type fakeIdempotencyStore struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error // injected failure
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{seen: make(map[string]bool)}
}

func (s *fakeIdempotencyStore) MarkProcessed(_ context.Context, eventID string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	if s.seen[eventID] {
		return false, nil
	}
	s.seen[eventID] = true
	return true, nil
}

func (s *fakeIdempotencyStore) IsProcessed(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[eventID], s.err
}

func (s *fakeIdempotencyStore) Close() error { return nil }

package invoicing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceFilter contains filter options for invoice queries
type InvoiceFilter struct {
	Status     *InvoiceStatus
	CustomerID *uuid.UUID
	ProjectID  *uuid.UUID
	IssuedFrom *time.Time
	IssuedTo   *time.Time
	Search     string // matches invoice number / reference number
	Page       int
	PageSize   int
	OrderBy    string
	OrderDir   string
}

// PaymentFilter contains filter options for payment queries
type PaymentFilter struct {
	InvoiceID *uuid.UUID
	Status    *PaymentStatus
	Method    *PaymentMethod
	Provider  *PaymentProvider
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
	OrderBy   string
	OrderDir  string
}

// InvoiceStatusCount is one bucket of the invoice statistics
type InvoiceStatusCount struct {
	Status InvoiceStatus   `json:"status"`
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// InvoiceStats summarizes invoices by status
type InvoiceStats struct {
	ByStatus     []InvoiceStatusCount `json:"by_status"`
	TotalCount   int64                `json:"total_count"`
	TotalAmount  decimal.Decimal      `json:"total_amount"`
	OverdueCount int64                `json:"overdue_count"`
}

// PaymentStatusCount is one bucket of the payment statistics
type PaymentStatusCount struct {
	Status PaymentStatus   `json:"status"`
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// PaymentStats summarizes payments by status
type PaymentStats struct {
	ByStatus      []PaymentStatusCount `json:"by_status"`
	TotalCount    int64                `json:"total_count"`
	TotalReceived decimal.Decimal      `json:"total_received"` // sum of COMPLETED amounts
	TotalFees     decimal.Decimal      `json:"total_fees"`
	TotalRefunded decimal.Decimal      `json:"total_refunded"`
}

// InvoiceRepository defines the persistence contract for invoices. Loads
// return the aggregate with line items, status history and payments from one
// consistent snapshot.
type InvoiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	FindByNumber(ctx context.Context, number string) (*Invoice, error)
	FindAll(ctx context.Context, filter InvoiceFilter) ([]Invoice, int64, error)
	// FindDueForOverdueCheck returns SENT invoices whose due date is strictly
	// before the given day.
	FindDueForOverdueCheck(ctx context.Context, asOf time.Time) ([]Invoice, error)
	Save(ctx context.Context, invoice *Invoice) error
	// SaveWithLock persists with optimistic locking; returns
	// shared.ErrConcurrencyConflict when the version check fails.
	SaveWithLock(ctx context.Context, invoice *Invoice) error
	Delete(ctx context.Context, id uuid.UUID) error
	ExistsByNumber(ctx context.Context, number string) (bool, error)
	// NextInvoiceNumber computes the next INV-{year}-{seq:04d} number from
	// the numbers already present for the year. Must be called inside the
	// transaction that inserts the invoice; the unique index on
	// invoice_number backstops races.
	NextInvoiceNumber(ctx context.Context, year int) (string, error)
	Stats(ctx context.Context) (*InvoiceStats, error)
}

// PaymentRepository defines the persistence contract for payments. Loads
// return the aggregate with refunds and history.
type PaymentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	FindByInvoiceID(ctx context.Context, invoiceID uuid.UUID) ([]Payment, error)
	FindAll(ctx context.Context, filter PaymentFilter) ([]Payment, int64, error)
	// FindByProviderCorrelation resolves a payment from a provider webhook
	// correlation id (payment intent id, transaction id or reference).
	FindByProviderCorrelation(ctx context.Context, provider PaymentProvider, correlationID string) (*Payment, error)
	Save(ctx context.Context, payment *Payment) error
	SaveWithLock(ctx context.Context, payment *Payment) error
	Stats(ctx context.Context) (*PaymentStats, error)
}

// Repositories bundles the invoicing repositories bound to one transaction
type Repositories struct {
	Invoices InvoiceRepository
	Payments PaymentRepository
}

// UnitOfWork executes a function with transaction-bound repositories. All
// writes inside fn commit or roll back together, which is what keeps history
// rows, status writes and cross-aggregate cascades atomic.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

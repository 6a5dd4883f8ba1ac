package persistence

import (
	"context"

	"github.com/wasatpay/backend/internal/domain/invoicing"
	"gorm.io/gorm"
)

// GormUnitOfWork implements invoicing.UnitOfWork over a GORM transaction.
// The repositories handed to the callback are bound to the transaction, so
// every write inside the callback commits or rolls back together.
type GormUnitOfWork struct {
	db *gorm.DB
}

// NewGormUnitOfWork creates a new GormUnitOfWork
func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{db: db}
}

// Execute runs fn inside a database transaction with transaction-bound
// repositories
func (u *GormUnitOfWork) Execute(ctx context.Context, fn func(repos invoicing.Repositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(invoicing.Repositories{
			Invoices: NewGormInvoiceRepository(tx),
			Payments: NewGormPaymentRepository(tx),
		})
	})
}

// Ensure GormUnitOfWork implements UnitOfWork
var _ invoicing.UnitOfWork = (*GormUnitOfWork)(nil)

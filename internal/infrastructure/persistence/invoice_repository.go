package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wasatpay/backend/internal/domain/invoicing"
	"github.com/wasatpay/backend/internal/domain/shared"
	"github.com/wasatpay/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInvoiceRepository implements invoicing.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// withAggregate preloads the full invoice aggregate: line items in display
// order, the status history in write order, and the payments with their
// refunds so outstanding amounts can be computed from one snapshot.
func (r *GormInvoiceRepository) withAggregate(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Payments", func(db *gorm.DB) *gorm.DB {
			return db.Order("initiated_at ASC")
		}).
		Preload("Payments.Refunds", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Payments.History", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		})
}

// FindByID finds an invoice by its ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.withAggregate(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invoicing.ErrInvoiceNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNumber finds an invoice by its invoice number
func (r *GormInvoiceRepository) FindByNumber(ctx context.Context, number string) (*invoicing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.withAggregate(ctx).
		Where("invoice_number = ?", number).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invoicing.ErrInvoiceNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds invoices matching the filter and returns the total count
// before pagination
func (r *GormInvoiceRepository) FindAll(ctx context.Context, filter invoicing.InvoiceFilter) ([]invoicing.Invoice, int64, error) {
	var total int64
	countQuery := r.db.WithContext(ctx).Model(&models.InvoiceModel{})
	countQuery = r.applyInvoiceFilterWithoutPagination(countQuery, filter)
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var invoiceModels []models.InvoiceModel
	query := r.withAggregate(ctx).Model(&models.InvoiceModel{})
	query = r.applyInvoiceFilter(query, filter)
	if err := query.Find(&invoiceModels).Error; err != nil {
		return nil, 0, err
	}

	invoices := make([]invoicing.Invoice, len(invoiceModels))
	for i, model := range invoiceModels {
		invoices[i] = *model.ToDomain()
	}
	return invoices, total, nil
}

// FindDueForOverdueCheck returns SENT invoices whose due date is strictly
// before the start of the given day
func (r *GormInvoiceRepository) FindDueForOverdueCheck(ctx context.Context, asOf time.Time) ([]invoicing.Invoice, error) {
	dayStart := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, asOf.Location())

	var invoiceModels []models.InvoiceModel
	if err := r.withAggregate(ctx).
		Where("status = ? AND due_date < ?", invoicing.InvoiceStatusSent, dayStart).
		Order("due_date ASC").
		Find(&invoiceModels).Error; err != nil {
		return nil, err
	}

	invoices := make([]invoicing.Invoice, len(invoiceModels))
	for i, model := range invoiceModels {
		invoices[i] = *model.ToDomain()
	}
	return invoices, nil
}

// Save creates or updates an invoice together with its line items and status
// history in one transaction
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *invoicing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return err
		}
		return r.saveInvoiceChildren(tx, invoice.ID, model)
	})
	if err != nil {
		if isDuplicateKeyError(err) {
			return invoicing.ErrDuplicateInvoiceNumber
		}
		return err
	}
	return nil
}

// SaveWithLock persists the invoice with optimistic locking. The stored
// version must be behind the aggregate's version or the write is rejected
// with shared.ErrConcurrencyConflict.
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, invoice *invoicing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var currentVersion int
		if err := tx.Model(&models.InvoiceModel{}).
			Where("id = ?", invoice.ID).
			Select("version").
			Scan(&currentVersion).Error; err != nil {
			return err
		}
		if currentVersion == 0 {
			return invoicing.ErrInvoiceNotFound
		}
		if currentVersion >= invoice.Version {
			return shared.ErrConcurrencyConflict
		}

		result := tx.Model(&models.InvoiceModel{}).
			Where("id = ? AND version = ?", invoice.ID, currentVersion).
			Updates(map[string]interface{}{
				"invoice_number":       model.InvoiceNumber,
				"customer_id":          model.CustomerID,
				"project_id":           model.ProjectID,
				"status":               model.Status,
				"currency":             model.Currency,
				"issue_date":           model.IssueDate,
				"due_date":             model.DueDate,
				"payment_terms":        model.PaymentTerms,
				"tax_rate":             model.TaxRate,
				"discount_amount":      model.DiscountAmount,
				"subtotal":             model.Subtotal,
				"tax_amount":           model.TaxAmount,
				"total_amount":         model.TotalAmount,
				"reference_number":     model.ReferenceNumber,
				"po_number":            model.PONumber,
				"lpo_number":           model.LPONumber,
				"delivery_date":        model.DeliveryDate,
				"payment_instructions": model.PaymentInstructions,
				"notes":                model.Notes,
				"internal_notes":       model.InternalNotes,
				"sent_at":              model.SentAt,
				"paid_at":              model.PaidAt,
				"version":              model.Version,
				"updated_at":           model.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		return r.saveInvoiceChildren(tx, invoice.ID, model)
	})
	if err != nil {
		if isDuplicateKeyError(err) {
			return invoicing.ErrDuplicateInvoiceNumber
		}
		return err
	}
	return nil
}

// saveInvoiceChildren replaces the line item set and upserts the status
// history records. History rows are insert-only so existing rows are simply
// re-saved unchanged.
func (r *GormInvoiceRepository) saveInvoiceChildren(tx *gorm.DB, invoiceID uuid.UUID, model *models.InvoiceModel) error {
	currentItemIDs := make([]uuid.UUID, len(model.LineItems))
	for i, item := range model.LineItems {
		currentItemIDs[i] = item.ID
	}
	if len(currentItemIDs) > 0 {
		if err := tx.Where("invoice_id = ? AND id NOT IN ?", invoiceID, currentItemIDs).
			Delete(&models.InvoiceLineItemModel{}).Error; err != nil {
			return err
		}
	} else {
		if err := tx.Where("invoice_id = ?", invoiceID).
			Delete(&models.InvoiceLineItemModel{}).Error; err != nil {
			return err
		}
	}
	for i := range model.LineItems {
		model.LineItems[i].InvoiceID = invoiceID
		if err := tx.Save(&model.LineItems[i]).Error; err != nil {
			return err
		}
	}

	for i := range model.StatusHistory {
		model.StatusHistory[i].InvoiceID = invoiceID
		if err := tx.Save(&model.StatusHistory[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// Delete removes an invoice with its line items and history. Only draft
// invoices reach this path so no payments can reference the row.
func (r *GormInvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", id).
			Delete(&models.InvoiceLineItemModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("invoice_id = ?", id).
			Delete(&models.InvoiceStatusHistoryModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.InvoiceModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return invoicing.ErrInvoiceNotFound
		}
		return nil
	})
}

// ExistsByNumber checks if an invoice number is already taken
func (r *GormInvoiceRepository) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("invoice_number = ?", number).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// NextInvoiceNumber computes the next invoice number for the year from the
// numbers already stored. Callers run this inside the transaction that
// inserts the invoice; the unique index on invoice_number backstops races.
func (r *GormInvoiceRepository) NextInvoiceNumber(ctx context.Context, year int) (string, error) {
	prefix := invoicing.InvoiceNumberPrefix(year)

	var numbers []string
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("invoice_number LIKE ?", prefix+"%").
		Pluck("invoice_number", &numbers).Error; err != nil {
		return "", err
	}

	seq := invoicing.NextInvoiceSequence(numbers, year)
	return invoicing.FormatInvoiceNumber(year, seq), nil
}

// Stats summarizes invoices by status
func (r *GormInvoiceRepository) Stats(ctx context.Context) (*invoicing.InvoiceStats, error) {
	var rows []struct {
		Status invoicing.InvoiceStatus
		Count  int64
		Amount decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Select("status, COUNT(*) as count, COALESCE(SUM(total_amount), 0) as amount").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	stats := &invoicing.InvoiceStats{TotalAmount: decimal.Zero}
	for _, row := range rows {
		stats.ByStatus = append(stats.ByStatus, invoicing.InvoiceStatusCount{
			Status: row.Status,
			Count:  row.Count,
			Amount: row.Amount,
		})
		stats.TotalCount += row.Count
		stats.TotalAmount = stats.TotalAmount.Add(row.Amount)
		if row.Status == invoicing.InvoiceStatusOverdue {
			stats.OverdueCount = row.Count
		}
	}
	return stats, nil
}

// TotalInvoicedForProject sums the totals of all non-cancelled invoices
// raised against a project. Used for project budget tracking.
func (r *GormInvoiceRepository) TotalInvoicedForProject(ctx context.Context, projectID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Select("COALESCE(SUM(total_amount), 0)").
		Where("project_id = ? AND status <> ?", projectID, invoicing.InvoiceStatusCancelled).
		Scan(&total).Error; err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// applyInvoiceFilter applies filter options to the query
func (r *GormInvoiceRepository) applyInvoiceFilter(query *gorm.DB, filter invoicing.InvoiceFilter) *gorm.DB {
	query = r.applyInvoiceFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, InvoiceSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(orderBy + " " + orderDir)

	return query
}

// applyInvoiceFilterWithoutPagination applies filter options without pagination
func (r *GormInvoiceRepository) applyInvoiceFilterWithoutPagination(query *gorm.DB, filter invoicing.InvoiceFilter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("invoice_number ILIKE ? OR reference_number ILIKE ?",
			searchPattern, searchPattern)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.ProjectID != nil {
		query = query.Where("project_id = ?", *filter.ProjectID)
	}
	if filter.IssuedFrom != nil {
		query = query.Where("issue_date >= ?", *filter.IssuedFrom)
	}
	if filter.IssuedTo != nil {
		query = query.Where("issue_date <= ?", *filter.IssuedTo)
	}

	return query
}

// isDuplicateKeyError detects unique index violations across postgres and
// sqlite without importing driver-specific error types
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// Ensure GormInvoiceRepository implements InvoiceRepository
var _ invoicing.InvoiceRepository = (*GormInvoiceRepository)(nil)

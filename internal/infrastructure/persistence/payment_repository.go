package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wasatpay/backend/internal/domain/invoicing"
	"github.com/wasatpay/backend/internal/domain/shared"
	"github.com/wasatpay/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPaymentRepository implements invoicing.PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// withAggregate preloads refunds and history in write order
func (r *GormPaymentRepository) withAggregate(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Refunds", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		})
}

// FindByID finds a payment by its ID
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.Payment, error) {
	var model models.PaymentModel
	if err := r.withAggregate(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invoicing.ErrPaymentNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByInvoiceID finds all payments against an invoice
func (r *GormPaymentRepository) FindByInvoiceID(ctx context.Context, invoiceID uuid.UUID) ([]invoicing.Payment, error) {
	var paymentModels []models.PaymentModel
	if err := r.withAggregate(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("initiated_at ASC").
		Find(&paymentModels).Error; err != nil {
		return nil, err
	}

	payments := make([]invoicing.Payment, len(paymentModels))
	for i, model := range paymentModels {
		payments[i] = *model.ToDomain()
	}
	return payments, nil
}

// FindAll finds payments matching the filter and returns the total count
// before pagination
func (r *GormPaymentRepository) FindAll(ctx context.Context, filter invoicing.PaymentFilter) ([]invoicing.Payment, int64, error) {
	var total int64
	countQuery := r.db.WithContext(ctx).Model(&models.PaymentModel{})
	countQuery = r.applyPaymentFilterWithoutPagination(countQuery, filter)
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var paymentModels []models.PaymentModel
	query := r.withAggregate(ctx).Model(&models.PaymentModel{})
	query = r.applyPaymentFilter(query, filter)
	if err := query.Find(&paymentModels).Error; err != nil {
		return nil, 0, err
	}

	payments := make([]invoicing.Payment, len(paymentModels))
	for i, model := range paymentModels {
		payments[i] = *model.ToDomain()
	}
	return payments, total, nil
}

// FindByProviderCorrelation resolves a payment from a provider correlation
// id. Providers echo back whichever identifier they were given, so the match
// covers the payment intent id, transaction id and reference.
func (r *GormPaymentRepository) FindByProviderCorrelation(ctx context.Context, provider invoicing.PaymentProvider, correlationID string) (*invoicing.Payment, error) {
	var model models.PaymentModel
	if err := r.withAggregate(ctx).
		Where("provider = ?", provider).
		Where("provider_payment_intent_id = ? OR provider_transaction_id = ? OR provider_reference = ?",
			correlationID, correlationID, correlationID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invoicing.ErrPaymentNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a payment together with its refunds and history in
// one transaction
func (r *GormPaymentRepository) Save(ctx context.Context, payment *invoicing.Payment) error {
	model := models.PaymentModelFromDomain(payment)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return err
		}
		return r.savePaymentChildren(tx, payment.ID, model)
	})
}

// SaveWithLock persists the payment with optimistic locking. The stored
// version must be behind the aggregate's version or the write is rejected
// with shared.ErrConcurrencyConflict.
func (r *GormPaymentRepository) SaveWithLock(ctx context.Context, payment *invoicing.Payment) error {
	model := models.PaymentModelFromDomain(payment)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var currentVersion int
		if err := tx.Model(&models.PaymentModel{}).
			Where("id = ?", payment.ID).
			Select("version").
			Scan(&currentVersion).Error; err != nil {
			return err
		}
		if currentVersion == 0 {
			return invoicing.ErrPaymentNotFound
		}
		if currentVersion >= payment.Version {
			return shared.ErrConcurrencyConflict
		}

		result := tx.Model(&models.PaymentModel{}).
			Where("id = ? AND version = ?", payment.ID, currentVersion).
			Updates(map[string]interface{}{
				"status":                     model.Status,
				"provider_payment_intent_id": model.ProviderPaymentIntentID,
				"provider_transaction_id":    model.ProviderTransactionID,
				"provider_reference":         model.ProviderReference,
				"method_details":             model.MethodDetails,
				"processing_fee":             model.ProcessingFee,
				"net_amount":                 model.NetAmount,
				"failure_reason":             model.FailureReason,
				"failure_code":               model.FailureCode,
				"processed_at":               model.ProcessedAt,
				"completed_at":               model.CompletedAt,
				"failed_at":                  model.FailedAt,
				"version":                    model.Version,
				"updated_at":                 model.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		return r.savePaymentChildren(tx, payment.ID, model)
	})
}

// savePaymentChildren upserts refunds and history records. Both are
// append-only in practice; refunds are never removed from a payment.
func (r *GormPaymentRepository) savePaymentChildren(tx *gorm.DB, paymentID uuid.UUID, model *models.PaymentModel) error {
	for i := range model.Refunds {
		model.Refunds[i].PaymentID = paymentID
		if err := tx.Save(&model.Refunds[i]).Error; err != nil {
			return err
		}
	}
	for i := range model.History {
		model.History[i].PaymentID = paymentID
		if err := tx.Save(&model.History[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// Stats summarizes payments by status
func (r *GormPaymentRepository) Stats(ctx context.Context) (*invoicing.PaymentStats, error) {
	var rows []struct {
		Status invoicing.PaymentStatus
		Count  int64
		Amount decimal.Decimal
		Fees   decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Select("status, COUNT(*) as count, COALESCE(SUM(amount), 0) as amount, COALESCE(SUM(processing_fee), 0) as fees").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	stats := &invoicing.PaymentStats{
		TotalReceived: decimal.Zero,
		TotalFees:     decimal.Zero,
		TotalRefunded: decimal.Zero,
	}
	for _, row := range rows {
		stats.ByStatus = append(stats.ByStatus, invoicing.PaymentStatusCount{
			Status: row.Status,
			Count:  row.Count,
			Amount: row.Amount,
		})
		stats.TotalCount += row.Count
		if row.Status == invoicing.PaymentStatusCompleted {
			stats.TotalReceived = stats.TotalReceived.Add(row.Amount)
			stats.TotalFees = stats.TotalFees.Add(row.Fees)
		}
	}

	var refunded struct {
		Total decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&models.RefundModel{}).
		Select("COALESCE(SUM(amount), 0) as total").
		Where("status = ?", invoicing.RefundStatusCompleted).
		Scan(&refunded).Error; err != nil {
		return nil, err
	}
	stats.TotalRefunded = refunded.Total

	return stats, nil
}

// applyPaymentFilter applies filter options to the query
func (r *GormPaymentRepository) applyPaymentFilter(query *gorm.DB, filter invoicing.PaymentFilter) *gorm.DB {
	query = r.applyPaymentFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, PaymentSortFields, "initiated_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(orderBy + " " + orderDir)

	return query
}

// applyPaymentFilterWithoutPagination applies filter options without pagination
func (r *GormPaymentRepository) applyPaymentFilterWithoutPagination(query *gorm.DB, filter invoicing.PaymentFilter) *gorm.DB {
	if filter.InvoiceID != nil {
		query = query.Where("invoice_id = ?", *filter.InvoiceID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Method != nil {
		query = query.Where("method = ?", *filter.Method)
	}
	if filter.Provider != nil {
		query = query.Where("provider = ?", *filter.Provider)
	}
	if filter.From != nil {
		query = query.Where("initiated_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("initiated_at <= ?", *filter.To)
	}

	return query
}

// Ensure GormPaymentRepository implements PaymentRepository
var _ invoicing.PaymentRepository = (*GormPaymentRepository)(nil)

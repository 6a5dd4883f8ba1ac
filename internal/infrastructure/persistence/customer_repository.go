package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/wasatpay/backend/internal/domain/directory"
	"github.com/wasatpay/backend/internal/domain/shared"
	"github.com/wasatpay/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCustomerRepository implements directory.CustomerRepository using GORM
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewGormCustomerRepository creates a new GormCustomerRepository
func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// FindByID finds a customer by its ID
func (r *GormCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*directory.Customer, error) {
	var model models.CustomerModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, directory.ErrCustomerNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds customers matching the filter and returns the total count
// before pagination
func (r *GormCustomerRepository) FindAll(ctx context.Context, filter directory.CustomerFilter) ([]directory.Customer, int64, error) {
	var total int64
	countQuery := r.db.WithContext(ctx).Model(&models.CustomerModel{})
	countQuery = r.applyCustomerFilterWithoutPagination(countQuery, filter)
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var customerModels []models.CustomerModel
	query := r.db.WithContext(ctx).Model(&models.CustomerModel{})
	query = r.applyCustomerFilter(query, filter)
	if err := query.Find(&customerModels).Error; err != nil {
		return nil, 0, err
	}

	customers := make([]directory.Customer, len(customerModels))
	for i, model := range customerModels {
		customers[i] = *model.ToDomain()
	}
	return customers, total, nil
}

// Save creates or updates a customer
func (r *GormCustomerRepository) Save(ctx context.Context, customer *directory.Customer) error {
	model := models.CustomerModelFromDomain(customer)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock persists the customer with optimistic locking. The stored
// version must be behind the aggregate's version or the write is rejected
// with shared.ErrConcurrencyConflict.
func (r *GormCustomerRepository) SaveWithLock(ctx context.Context, customer *directory.Customer) error {
	model := models.CustomerModelFromDomain(customer)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var currentVersion int
		if err := tx.Model(&models.CustomerModel{}).
			Where("id = ?", customer.ID).
			Select("version").
			Scan(&currentVersion).Error; err != nil {
			return err
		}
		if currentVersion == 0 {
			return directory.ErrCustomerNotFound
		}
		if currentVersion >= customer.Version {
			return shared.ErrConcurrencyConflict
		}

		result := tx.Model(&models.CustomerModel{}).
			Where("id = ? AND version = ?", customer.ID, currentVersion).
			Updates(map[string]interface{}{
				"type":                model.Type,
				"first_name":          model.FirstName,
				"last_name":           model.LastName,
				"organization_name":   model.OrganizationName,
				"organization_type":   model.OrganizationType,
				"tax_id":              model.TaxID,
				"registration_number": model.RegistrationNumber,
				"primary_email":       model.PrimaryEmail,
				"secondary_email":     model.SecondaryEmail,
				"primary_phone":       model.PrimaryPhone,
				"secondary_phone":     model.SecondaryPhone,
				"website":             model.Website,
				"address_line1":       model.AddressLine1,
				"address_line2":       model.AddressLine2,
				"city":                model.City,
				"region":              model.Region,
				"postal_code":         model.PostalCode,
				"country":             model.Country,
				"billing_line1":       model.BillingLine1,
				"billing_line2":       model.BillingLine2,
				"billing_city":        model.BillingCity,
				"billing_region":      model.BillingRegion,
				"billing_postal_code": model.BillingPostalCode,
				"billing_country":     model.BillingCountry,
				"preferred_currency":  model.PreferredCurrency,
				"preferred_language":  model.PreferredLanguage,
				"payment_terms":       model.PaymentTerms,
				"email_notifications": model.EmailNotifications,
				"sms_notifications":   model.SMSNotifications,
				"is_active":           model.IsActive,
				"notes":               model.Notes,
				"last_contact_date":   model.LastContactDate,
				"version":             model.Version,
				"updated_at":          model.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}
		return nil
	})
}

// ExistsByEmail checks whether another customer already uses the email.
// The comparison is case-insensitive; excludeID skips the customer itself
// on updates.
func (r *GormCustomerRepository) ExistsByEmail(ctx context.Context, email string, excludeID *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&models.CustomerModel{}).
		Where("LOWER(primary_email) = ?", strings.ToLower(email))
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyCustomerFilter applies filter options to the query
func (r *GormCustomerRepository) applyCustomerFilter(query *gorm.DB, filter directory.CustomerFilter) *gorm.DB {
	query = r.applyCustomerFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, CustomerSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	query = query.Order(orderBy + " " + orderDir)

	return query
}

// applyCustomerFilterWithoutPagination applies filter options without pagination
func (r *GormCustomerRepository) applyCustomerFilterWithoutPagination(query *gorm.DB, filter directory.CustomerFilter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where(
			"first_name ILIKE ? OR last_name ILIKE ? OR organization_name ILIKE ? OR primary_email ILIKE ?",
			searchPattern, searchPattern, searchPattern, searchPattern)
	}

	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}

	return query
}

// Ensure GormCustomerRepository implements CustomerRepository
var _ directory.CustomerRepository = (*GormCustomerRepository)(nil)

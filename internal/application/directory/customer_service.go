package directory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wasatpay/backend/internal/domain/directory"
	"github.com/wasatpay/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// CustomerService implements the customer directory use cases
type CustomerService struct {
	customerRepo directory.CustomerRepository
	logger       *zap.Logger
}

// NewCustomerService creates a new CustomerService
func NewCustomerService(customerRepo directory.CustomerRepository, logger *zap.Logger) *CustomerService {
	return &CustomerService{
		customerRepo: customerRepo,
		logger:       logger,
	}
}

// CreateCustomerRequest carries the inputs for customer creation
type CreateCustomerRequest struct {
	Type               string
	FirstName          string
	LastName           string
	OrganizationName   string
	OrganizationType   string
	TaxID              string
	RegistrationNumber string
	PrimaryEmail       string
	PrimaryPhone       string
	PreferredCurrency  string
	PaymentTerms       *int
}

// UpdateCustomerRequest carries a full update of a customer's editable
// fields. Addresses are replaced wholesale.
type UpdateCustomerRequest struct {
	FirstName          string
	LastName           string
	OrganizationName   string
	OrganizationType   string
	TaxID              string
	RegistrationNumber string
	PrimaryEmail       string
	SecondaryEmail     string
	PrimaryPhone       string
	SecondaryPhone     string
	Website            string
	Address            directory.Address
	BillingAddress     directory.Address
	PreferredCurrency  string
	PreferredLanguage  string
	PaymentTerms       int
	EmailNotifications bool
	SMSNotifications   bool
	Notes              string
}

// CreateCustomer registers a new active customer. The primary email must be
// unique across all customers.
func (s *CustomerService) CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*directory.Customer, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "customer", "create_customer")
	defer span.End()

	exists, err := s.customerRepo.ExistsByEmail(ctx, req.PrimaryEmail, nil)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if exists {
		return nil, directory.ErrDuplicateEmail
	}

	customer, err := directory.NewCustomer(directory.NewCustomerInput{
		Type:               directory.CustomerType(req.Type),
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		OrganizationName:   req.OrganizationName,
		OrganizationType:   req.OrganizationType,
		TaxID:              req.TaxID,
		RegistrationNumber: req.RegistrationNumber,
		PrimaryEmail:       req.PrimaryEmail,
		PrimaryPhone:       req.PrimaryPhone,
		PreferredCurrency:  req.PreferredCurrency,
		PaymentTerms:       req.PaymentTerms,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.customerRepo.Save(ctx, customer); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrCustomerID, customer.ID.String())
	s.logger.Info("customer created",
		zap.String("customer_id", customer.ID.String()),
		zap.String("type", customer.Type.String()),
		zap.String("display_name", customer.DisplayName()))
	return customer, nil
}

// GetCustomer retrieves a customer by ID
func (s *CustomerService) GetCustomer(ctx context.Context, id uuid.UUID) (*directory.Customer, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "customer", "get_customer")
	defer span.End()

	return s.customerRepo.FindByID(ctx, id)
}

// ListCustomers retrieves customers matching the filter with the total count
func (s *CustomerService) ListCustomers(ctx context.Context, filter directory.CustomerFilter) ([]directory.Customer, int64, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "customer", "list_customers")
	defer span.End()

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	return s.customerRepo.FindAll(ctx, filter)
}

// UpdateCustomer replaces a customer's editable fields. A changed primary
// email must not collide with another customer.
func (s *CustomerService) UpdateCustomer(ctx context.Context, id uuid.UUID, req UpdateCustomerRequest) (*directory.Customer, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "customer", "update_customer")
	defer span.End()

	customer, err := s.customerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	exists, err := s.customerRepo.ExistsByEmail(ctx, req.PrimaryEmail, &id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if exists {
		return nil, directory.ErrDuplicateEmail
	}

	if err := customer.UpdateDetails(req.FirstName, req.LastName, req.OrganizationName,
		req.OrganizationType, req.TaxID, req.RegistrationNumber); err != nil {
		return nil, err
	}
	if err := customer.UpdateContact(req.PrimaryEmail, req.SecondaryEmail,
		req.PrimaryPhone, req.SecondaryPhone, req.Website); err != nil {
		return nil, err
	}
	customer.SetAddress(req.Address, req.BillingAddress)
	if err := customer.UpdatePreferences(req.PreferredCurrency, req.PreferredLanguage,
		req.PaymentTerms, req.EmailNotifications, req.SMSNotifications); err != nil {
		return nil, err
	}
	customer.SetNotes(req.Notes)

	if err := s.customerRepo.SaveWithLock(ctx, customer); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return customer, nil
}

// DeactivateCustomer marks a customer inactive. The invoice history is kept.
func (s *CustomerService) DeactivateCustomer(ctx context.Context, id uuid.UUID) (*directory.Customer, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "customer", "deactivate_customer")
	defer span.End()

	customer, err := s.customerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !customer.IsActive {
		return customer, nil
	}

	customer.Deactivate()
	if err := s.customerRepo.SaveWithLock(ctx, customer); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("customer deactivated", zap.String("customer_id", id.String()))
	return customer, nil
}

// ActivateCustomer marks an inactive customer active again
func (s *CustomerService) ActivateCustomer(ctx context.Context, id uuid.UUID) (*directory.Customer, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "customer", "activate_customer")
	defer span.End()

	customer, err := s.customerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if customer.IsActive {
		return customer, nil
	}

	customer.Activate()
	if err := s.customerRepo.SaveWithLock(ctx, customer); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return customer, nil
}

// RecordCustomerContact stores the time of the most recent contact
func (s *CustomerService) RecordCustomerContact(ctx context.Context, id uuid.UUID, at time.Time) (*directory.Customer, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "customer", "record_customer_contact")
	defer span.End()

	customer, err := s.customerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	customer.RecordContact(at)
	if err := s.customerRepo.SaveWithLock(ctx, customer); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return customer, nil
}

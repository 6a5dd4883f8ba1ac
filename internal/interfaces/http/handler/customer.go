package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appdirectory "github.com/wasatpay/backend/internal/application/directory"
	"github.com/wasatpay/backend/internal/domain/directory"
	"github.com/wasatpay/backend/internal/interfaces/http/dto"
)

// CustomerHandler handles customer API endpoints
type CustomerHandler struct {
	BaseHandler
	customerService *appdirectory.CustomerService
}

// NewCustomerHandler creates a new CustomerHandler
func NewCustomerHandler(customerService *appdirectory.CustomerService) *CustomerHandler {
	return &CustomerHandler{
		customerService: customerService,
	}
}

// AddressRequest is a postal address in a customer request
type AddressRequest struct {
	Line1      string `json:"line1" binding:"max=200"`
	Line2      string `json:"line2" binding:"max=200"`
	City       string `json:"city" binding:"max=100"`
	Region     string `json:"region" binding:"max=100"`
	PostalCode string `json:"postal_code" binding:"max=20"`
	Country    string `json:"country" binding:"max=100"`
}

func (a AddressRequest) toDomain() directory.Address {
	return directory.Address{
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		Region:     a.Region,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

// CreateCustomerRequest represents a request to register a new customer
type CreateCustomerRequest struct {
	Type               string `json:"type" binding:"required,oneof=individual organization"`
	FirstName          string `json:"first_name" binding:"max=100"`
	LastName           string `json:"last_name" binding:"max=100"`
	OrganizationName   string `json:"organization_name" binding:"max=200"`
	OrganizationType   string `json:"organization_type" binding:"max=50"`
	TaxID              string `json:"tax_id" binding:"max=50"`
	RegistrationNumber string `json:"registration_number" binding:"max=100"`
	PrimaryEmail       string `json:"primary_email" binding:"required,email"`
	PrimaryPhone       string `json:"primary_phone" binding:"max=50"`
	PreferredCurrency  string `json:"preferred_currency" binding:"omitempty,len=3"`
	PaymentTerms       *int   `json:"payment_terms" binding:"omitempty,gte=0,lte=365"`
}

// UpdateCustomerRequest represents a full update of a customer's editable
// fields. Addresses are replaced wholesale.
type UpdateCustomerRequest struct {
	FirstName          string         `json:"first_name" binding:"max=100"`
	LastName           string         `json:"last_name" binding:"max=100"`
	OrganizationName   string         `json:"organization_name" binding:"max=200"`
	OrganizationType   string         `json:"organization_type" binding:"max=50"`
	TaxID              string         `json:"tax_id" binding:"max=50"`
	RegistrationNumber string         `json:"registration_number" binding:"max=100"`
	PrimaryEmail       string         `json:"primary_email" binding:"required,email"`
	SecondaryEmail     string         `json:"secondary_email" binding:"omitempty,email"`
	PrimaryPhone       string         `json:"primary_phone" binding:"max=50"`
	SecondaryPhone     string         `json:"secondary_phone" binding:"max=50"`
	Website            string         `json:"website" binding:"omitempty,url"`
	Address            AddressRequest `json:"address"`
	BillingAddress     AddressRequest `json:"billing_address"`
	PreferredCurrency  string         `json:"preferred_currency" binding:"omitempty,len=3"`
	PreferredLanguage  string         `json:"preferred_language" binding:"max=10"`
	PaymentTerms       int            `json:"payment_terms" binding:"gte=0,lte=365"`
	EmailNotifications bool           `json:"email_notifications"`
	SMSNotifications   bool           `json:"sms_notifications"`
	Notes              string         `json:"notes" binding:"max=2000"`
}

// ListCustomersRequest represents customer list filters
type ListCustomersRequest struct {
	dto.ListRequest
	Type     string `form:"type" binding:"omitempty,oneof=individual organization"`
	IsActive string `form:"is_active" binding:"omitempty,oneof=true false"`
}

// Create registers a new customer
func (h *CustomerHandler) Create(c *gin.Context) {
	var req CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	customer, err := h.customerService.CreateCustomer(c.Request.Context(), appdirectory.CreateCustomerRequest{
		Type:               req.Type,
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
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, customer)
}

// GetByID retrieves a customer by its ID
func (h *CustomerHandler) GetByID(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	customer, err := h.customerService.GetCustomer(c.Request.Context(), customerID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, customer)
}

// List returns customers matching the filter with pagination
func (h *CustomerHandler) List(c *gin.Context) {
	req := ListCustomersRequest{ListRequest: dto.DefaultListRequest()}
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := directory.CustomerFilter{
		Search:   req.Search,
		Page:     req.Page,
		PageSize: req.PageSize,
		OrderBy:  req.OrderBy,
		OrderDir: req.OrderDir,
	}
	if req.Type != "" {
		customerType := directory.CustomerType(req.Type)
		filter.Type = &customerType
	}
	if req.IsActive != "" {
		active := req.IsActive == "true"
		filter.IsActive = &active
	}

	customers, total, err := h.customerService.ListCustomers(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, customers, total, filter.Page, filter.PageSize)
}

// Update replaces a customer's editable fields
func (h *CustomerHandler) Update(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	var req UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	customer, err := h.customerService.UpdateCustomer(c.Request.Context(), customerID, appdirectory.UpdateCustomerRequest{
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		OrganizationName:   req.OrganizationName,
		OrganizationType:   req.OrganizationType,
		TaxID:              req.TaxID,
		RegistrationNumber: req.RegistrationNumber,
		PrimaryEmail:       req.PrimaryEmail,
		SecondaryEmail:     req.SecondaryEmail,
		PrimaryPhone:       req.PrimaryPhone,
		SecondaryPhone:     req.SecondaryPhone,
		Website:            req.Website,
		Address:            req.Address.toDomain(),
		BillingAddress:     req.BillingAddress.toDomain(),
		PreferredCurrency:  req.PreferredCurrency,
		PreferredLanguage:  req.PreferredLanguage,
		PaymentTerms:       req.PaymentTerms,
		EmailNotifications: req.EmailNotifications,
		SMSNotifications:   req.SMSNotifications,
		Notes:              req.Notes,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, customer)
}

// Deactivate marks a customer inactive while keeping its invoice history
func (h *CustomerHandler) Deactivate(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	customer, err := h.customerService.DeactivateCustomer(c.Request.Context(), customerID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, customer)
}

// Activate marks an inactive customer active again
func (h *CustomerHandler) Activate(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	customer, err := h.customerService.ActivateCustomer(c.Request.Context(), customerID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, customer)
}

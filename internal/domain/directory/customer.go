package directory

import (
	"regexp"
	"strings"
	"time"

	"github.com/wasatpay/backend/internal/domain/shared"
	"github.com/wasatpay/backend/internal/domain/shared/valueobject"
)

// CustomerType distinguishes individual payers from organizations
type CustomerType string

const (
	CustomerTypeIndividual   CustomerType = "individual"
	CustomerTypeOrganization CustomerType = "organization"
)

// IsValid checks if the type is a valid CustomerType
func (t CustomerType) IsValid() bool {
	return t == CustomerTypeIndividual || t == CustomerTypeOrganization
}

// String returns the string representation of CustomerType
func (t CustomerType) String() string {
	return string(t)
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Address is a postal address embedded in customer records. The billing
// address is optional and falls back to the main address when empty.
type Address struct {
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

// IsEmpty reports whether no address field is set
func (a Address) IsEmpty() bool {
	return a == Address{}
}

// Customer is the aggregate root for a billable party. Individuals carry a
// first and last name, organizations carry an organization name plus tax and
// registration identifiers.
type Customer struct {
	shared.BaseAggregateRoot
	Type               CustomerType         `json:"type"`
	FirstName          string               `json:"first_name,omitempty"`
	LastName           string               `json:"last_name,omitempty"`
	OrganizationName   string               `json:"organization_name,omitempty"`
	OrganizationType   string               `json:"organization_type,omitempty"`
	TaxID              string               `json:"tax_id,omitempty"`
	RegistrationNumber string               `json:"registration_number,omitempty"`
	PrimaryEmail       string               `json:"primary_email"`
	SecondaryEmail     string               `json:"secondary_email,omitempty"`
	PrimaryPhone       string               `json:"primary_phone,omitempty"`
	SecondaryPhone     string               `json:"secondary_phone,omitempty"`
	Website            string               `json:"website,omitempty"`
	Address            Address              `json:"address"`
	BillingAddress     Address              `json:"billing_address"`
	PreferredCurrency  valueobject.Currency `json:"preferred_currency"`
	PreferredLanguage  string               `json:"preferred_language"`
	PaymentTerms       int                  `json:"payment_terms"`
	EmailNotifications bool                 `json:"email_notifications"`
	SMSNotifications   bool                 `json:"sms_notifications"`
	IsActive           bool                 `json:"is_active"`
	Notes              string               `json:"notes,omitempty"`
	LastContactDate    *time.Time           `json:"last_contact_date,omitempty"`
}

// NewCustomerInput carries the fields needed to create a customer
type NewCustomerInput struct {
	Type               CustomerType
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

// NewCustomer creates an active customer with notification defaults on and
// USD / 30-day payment preferences unless overridden
func NewCustomer(input NewCustomerInput) (*Customer, error) {
	if !input.Type.IsValid() {
		return nil, NewValidationError("Customer type must be individual or organization")
	}
	if err := validateEmail(input.PrimaryEmail); err != nil {
		return nil, err
	}
	switch input.Type {
	case CustomerTypeIndividual:
		if strings.TrimSpace(input.FirstName) == "" || strings.TrimSpace(input.LastName) == "" {
			return nil, NewValidationError("Individual customers require a first and last name")
		}
	case CustomerTypeOrganization:
		if strings.TrimSpace(input.OrganizationName) == "" {
			return nil, NewValidationError("Organization customers require an organization name")
		}
	}

	currency := valueobject.Currency(input.PreferredCurrency)
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	terms := 30
	if input.PaymentTerms != nil {
		if *input.PaymentTerms < 0 {
			return nil, NewValidationError("Payment terms cannot be negative")
		}
		terms = *input.PaymentTerms
	}

	return &Customer{
		BaseAggregateRoot:  shared.NewBaseAggregateRoot(),
		Type:               input.Type,
		FirstName:          strings.TrimSpace(input.FirstName),
		LastName:           strings.TrimSpace(input.LastName),
		OrganizationName:   strings.TrimSpace(input.OrganizationName),
		OrganizationType:   input.OrganizationType,
		TaxID:              input.TaxID,
		RegistrationNumber: input.RegistrationNumber,
		PrimaryEmail:       strings.ToLower(strings.TrimSpace(input.PrimaryEmail)),
		PrimaryPhone:       input.PrimaryPhone,
		PreferredCurrency:  currency,
		PreferredLanguage:  "en",
		PaymentTerms:       terms,
		EmailNotifications: true,
		IsActive:           true,
	}, nil
}

// DisplayName returns the organization name for organizations and the full
// name for individuals
func (c *Customer) DisplayName() string {
	if c.Type == CustomerTypeOrganization {
		return c.OrganizationName
	}
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// BillingAddressOrDefault returns the billing address, falling back to the
// main address when no separate billing address is set
func (c *Customer) BillingAddressOrDefault() Address {
	if c.BillingAddress.IsEmpty() {
		return c.Address
	}
	return c.BillingAddress
}

// UpdateDetails updates the name and identification fields
func (c *Customer) UpdateDetails(firstName, lastName, organizationName, organizationType, taxID, registrationNumber string) error {
	switch c.Type {
	case CustomerTypeIndividual:
		if strings.TrimSpace(firstName) == "" || strings.TrimSpace(lastName) == "" {
			return NewValidationError("Individual customers require a first and last name")
		}
	case CustomerTypeOrganization:
		if strings.TrimSpace(organizationName) == "" {
			return NewValidationError("Organization customers require an organization name")
		}
	}

	c.FirstName = strings.TrimSpace(firstName)
	c.LastName = strings.TrimSpace(lastName)
	c.OrganizationName = strings.TrimSpace(organizationName)
	c.OrganizationType = organizationType
	c.TaxID = taxID
	c.RegistrationNumber = registrationNumber
	c.touch()
	return nil
}

// UpdateContact updates email, phone and website fields
func (c *Customer) UpdateContact(primaryEmail, secondaryEmail, primaryPhone, secondaryPhone, website string) error {
	if err := validateEmail(primaryEmail); err != nil {
		return err
	}
	if secondaryEmail != "" && !emailPattern.MatchString(secondaryEmail) {
		return NewValidationError("Invalid secondary email format")
	}

	c.PrimaryEmail = strings.ToLower(strings.TrimSpace(primaryEmail))
	c.SecondaryEmail = strings.ToLower(strings.TrimSpace(secondaryEmail))
	c.PrimaryPhone = primaryPhone
	c.SecondaryPhone = secondaryPhone
	c.Website = website
	c.touch()
	return nil
}

// SetAddress replaces the main and billing addresses. An empty billing
// address means billing falls back to the main address.
func (c *Customer) SetAddress(address, billing Address) {
	c.Address = address
	c.BillingAddress = billing
	c.touch()
}

// UpdatePreferences updates currency, language, payment terms and
// notification channels
func (c *Customer) UpdatePreferences(currency, language string, paymentTerms int, emailNotifications, smsNotifications bool) error {
	cur := valueobject.Currency(currency)
	if cur == "" {
		cur = valueobject.DefaultCurrency
	}
	if paymentTerms < 0 {
		return NewValidationError("Payment terms cannot be negative")
	}

	c.PreferredCurrency = cur
	c.PreferredLanguage = defaultString(language, "en")
	c.PaymentTerms = paymentTerms
	c.EmailNotifications = emailNotifications
	c.SMSNotifications = smsNotifications
	c.touch()
	return nil
}

// SetNotes replaces the free-form notes
func (c *Customer) SetNotes(notes string) {
	c.Notes = notes
	c.touch()
}

// RecordContact stores the time of the most recent contact with the customer
func (c *Customer) RecordContact(at time.Time) {
	c.LastContactDate = &at
	c.touch()
}

// Deactivate marks the customer inactive. Inactive customers keep their
// invoice history but cannot be billed.
func (c *Customer) Deactivate() {
	if !c.IsActive {
		return
	}
	c.IsActive = false
	c.touch()
}

// Activate marks the customer active again
func (c *Customer) Activate() {
	if c.IsActive {
		return
	}
	c.IsActive = true
	c.touch()
}

func (c *Customer) touch() {
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}

func validateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return NewValidationError("Primary email is required")
	}
	if !emailPattern.MatchString(email) {
		return NewValidationError("Invalid email format")
	}
	return nil
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

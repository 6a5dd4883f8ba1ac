package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wasatpay/backend/internal/domain/directory"
	"github.com/wasatpay/backend/internal/domain/shared/valueobject"
)

// CustomerModel is the persistence model for the Customer aggregate root.
// Addresses are flattened into prefixed column groups.
type CustomerModel struct {
	AggregateModel
	Type               directory.CustomerType `gorm:"type:varchar(20);not null;index"`
	FirstName          string                 `gorm:"type:varchar(100)"`
	LastName           string                 `gorm:"type:varchar(100)"`
	OrganizationName   string                 `gorm:"type:varchar(200);index"`
	OrganizationType   string                 `gorm:"type:varchar(50)"`
	TaxID              string                 `gorm:"type:varchar(50)"`
	RegistrationNumber string                 `gorm:"type:varchar(100)"`
	PrimaryEmail       string                 `gorm:"type:varchar(200);not null;index"`
	SecondaryEmail     string                 `gorm:"type:varchar(200)"`
	PrimaryPhone       string                 `gorm:"type:varchar(50)"`
	SecondaryPhone     string                 `gorm:"type:varchar(50)"`
	Website            string                 `gorm:"type:varchar(200)"`
	AddressLine1       string                 `gorm:"type:varchar(200)"`
	AddressLine2       string                 `gorm:"type:varchar(200)"`
	City               string                 `gorm:"type:varchar(100)"`
	Region             string                 `gorm:"type:varchar(100)"`
	PostalCode         string                 `gorm:"type:varchar(20)"`
	Country            string                 `gorm:"type:varchar(100)"`
	BillingLine1       string                 `gorm:"type:varchar(200)"`
	BillingLine2       string                 `gorm:"type:varchar(200)"`
	BillingCity        string                 `gorm:"type:varchar(100)"`
	BillingRegion      string                 `gorm:"type:varchar(100)"`
	BillingPostalCode  string                 `gorm:"type:varchar(20)"`
	BillingCountry     string                 `gorm:"type:varchar(100)"`
	PreferredCurrency  valueobject.Currency   `gorm:"type:varchar(3);not null;default:'USD'"`
	PreferredLanguage  string                 `gorm:"type:varchar(10);not null;default:'en'"`
	PaymentTerms       int                    `gorm:"not null;default:30"`
	EmailNotifications bool                   `gorm:"not null;default:true"`
	SMSNotifications   bool                   `gorm:"not null;default:false"`
	IsActive           bool                   `gorm:"not null;default:true;index"`
	Notes              string                 `gorm:"type:text"`
	LastContactDate    *time.Time
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customers"
}

// ToDomain converts the persistence model to a domain Customer aggregate
func (m *CustomerModel) ToDomain() *directory.Customer {
	return &directory.Customer{
		BaseAggregateRoot:  m.ToDomainAggregateRoot(),
		Type:               m.Type,
		FirstName:          m.FirstName,
		LastName:           m.LastName,
		OrganizationName:   m.OrganizationName,
		OrganizationType:   m.OrganizationType,
		TaxID:              m.TaxID,
		RegistrationNumber: m.RegistrationNumber,
		PrimaryEmail:       m.PrimaryEmail,
		SecondaryEmail:     m.SecondaryEmail,
		PrimaryPhone:       m.PrimaryPhone,
		SecondaryPhone:     m.SecondaryPhone,
		Website:            m.Website,
		Address: directory.Address{
			Line1:      m.AddressLine1,
			Line2:      m.AddressLine2,
			City:       m.City,
			Region:     m.Region,
			PostalCode: m.PostalCode,
			Country:    m.Country,
		},
		BillingAddress: directory.Address{
			Line1:      m.BillingLine1,
			Line2:      m.BillingLine2,
			City:       m.BillingCity,
			Region:     m.BillingRegion,
			PostalCode: m.BillingPostalCode,
			Country:    m.BillingCountry,
		},
		PreferredCurrency:  m.PreferredCurrency,
		PreferredLanguage:  m.PreferredLanguage,
		PaymentTerms:       m.PaymentTerms,
		EmailNotifications: m.EmailNotifications,
		SMSNotifications:   m.SMSNotifications,
		IsActive:           m.IsActive,
		Notes:              m.Notes,
		LastContactDate:    m.LastContactDate,
	}
}

// FromDomain populates the persistence model from a domain Customer
func (m *CustomerModel) FromDomain(c *directory.Customer) {
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	m.Type = c.Type
	m.FirstName = c.FirstName
	m.LastName = c.LastName
	m.OrganizationName = c.OrganizationName
	m.OrganizationType = c.OrganizationType
	m.TaxID = c.TaxID
	m.RegistrationNumber = c.RegistrationNumber
	m.PrimaryEmail = c.PrimaryEmail
	m.SecondaryEmail = c.SecondaryEmail
	m.PrimaryPhone = c.PrimaryPhone
	m.SecondaryPhone = c.SecondaryPhone
	m.Website = c.Website
	m.AddressLine1 = c.Address.Line1
	m.AddressLine2 = c.Address.Line2
	m.City = c.Address.City
	m.Region = c.Address.Region
	m.PostalCode = c.Address.PostalCode
	m.Country = c.Address.Country
	m.BillingLine1 = c.BillingAddress.Line1
	m.BillingLine2 = c.BillingAddress.Line2
	m.BillingCity = c.BillingAddress.City
	m.BillingRegion = c.BillingAddress.Region
	m.BillingPostalCode = c.BillingAddress.PostalCode
	m.BillingCountry = c.BillingAddress.Country
	m.PreferredCurrency = c.PreferredCurrency
	m.PreferredLanguage = c.PreferredLanguage
	m.PaymentTerms = c.PaymentTerms
	m.EmailNotifications = c.EmailNotifications
	m.SMSNotifications = c.SMSNotifications
	m.IsActive = c.IsActive
	m.Notes = c.Notes
	m.LastContactDate = c.LastContactDate
}

// CustomerModelFromDomain builds a persistence model from a domain Customer
func CustomerModelFromDomain(c *directory.Customer) *CustomerModel {
	m := &CustomerModel{}
	m.FromDomain(c)
	return m
}

// ProjectModel is the persistence model for the Project aggregate root
type ProjectModel struct {
	AggregateModel
	Code                 string                  `gorm:"type:varchar(50);not null;uniqueIndex:idx_projects_code"`
	Name                 string                  `gorm:"type:varchar(200);not null"`
	Description          string                  `gorm:"type:text"`
	Status               directory.ProjectStatus `gorm:"type:varchar(20);not null;default:'PLANNING';index"`
	FundingType          directory.FundingType   `gorm:"type:varchar(20);not null;index"`
	StartDate            *time.Time
	EndDate              *time.Time
	Country              string               `gorm:"type:varchar(100);not null;default:'Kenya'"`
	Region               string               `gorm:"type:varchar(100)"`
	SpecificLocation     string               `gorm:"type:varchar(200)"`
	TotalBudget          decimal.Decimal      `gorm:"type:decimal(18,2);not null;default:0"`
	Currency             valueobject.Currency `gorm:"type:varchar(3);not null;default:'USD'"`
	TargetBeneficiaries  int                  `gorm:"not null;default:0"`
	ServiceArea          string               `gorm:"type:varchar(200)"`
	PrimaryDonor         string               `gorm:"type:varchar(200)"`
	DonorReference       string               `gorm:"type:varchar(100)"`
	GrantAgreementNumber string               `gorm:"type:varchar(100)"`
	Notes                string               `gorm:"type:text"`
	ClosedAt             *time.Time
}

// TableName returns the table name for GORM
func (ProjectModel) TableName() string {
	return "projects"
}

// ToDomain converts the persistence model to a domain Project aggregate
func (m *ProjectModel) ToDomain() *directory.Project {
	return &directory.Project{
		BaseAggregateRoot:    m.ToDomainAggregateRoot(),
		Code:                 m.Code,
		Name:                 m.Name,
		Description:          m.Description,
		Status:               m.Status,
		FundingType:          m.FundingType,
		StartDate:            m.StartDate,
		EndDate:              m.EndDate,
		Country:              m.Country,
		Region:               m.Region,
		SpecificLocation:     m.SpecificLocation,
		TotalBudget:          m.TotalBudget,
		Currency:             m.Currency,
		TargetBeneficiaries:  m.TargetBeneficiaries,
		ServiceArea:          m.ServiceArea,
		PrimaryDonor:         m.PrimaryDonor,
		DonorReference:       m.DonorReference,
		GrantAgreementNumber: m.GrantAgreementNumber,
		Notes:                m.Notes,
		ClosedAt:             m.ClosedAt,
	}
}

// FromDomain populates the persistence model from a domain Project
func (m *ProjectModel) FromDomain(p *directory.Project) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.Code = p.Code
	m.Name = p.Name
	m.Description = p.Description
	m.Status = p.Status
	m.FundingType = p.FundingType
	m.StartDate = p.StartDate
	m.EndDate = p.EndDate
	m.Country = p.Country
	m.Region = p.Region
	m.SpecificLocation = p.SpecificLocation
	m.TotalBudget = p.TotalBudget
	m.Currency = p.Currency
	m.TargetBeneficiaries = p.TargetBeneficiaries
	m.ServiceArea = p.ServiceArea
	m.PrimaryDonor = p.PrimaryDonor
	m.DonorReference = p.DonorReference
	m.GrantAgreementNumber = p.GrantAgreementNumber
	m.Notes = p.Notes
	m.ClosedAt = p.ClosedAt
}

// ProjectModelFromDomain builds a persistence model from a domain Project
func ProjectModelFromDomain(p *directory.Project) *ProjectModel {
	m := &ProjectModel{}
	m.FromDomain(p)
	return m
}

package directory

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wasatpay/backend/internal/domain/shared"
	"github.com/wasatpay/backend/internal/domain/shared/valueobject"
)

// ProjectStatus represents the lifecycle status of a project
type ProjectStatus string

const (
	ProjectStatusPlanning  ProjectStatus = "PLANNING"  // Not yet started
	ProjectStatusActive    ProjectStatus = "ACTIVE"    // Running, billable
	ProjectStatusSuspended ProjectStatus = "SUSPENDED" // Temporarily on hold
	ProjectStatusCompleted ProjectStatus = "COMPLETED" // Work finished, billing may continue
	ProjectStatusClosed    ProjectStatus = "CLOSED"    // Fully closed (terminal)
)

// IsValid checks if the status is a valid ProjectStatus
func (s ProjectStatus) IsValid() bool {
	switch s {
	case ProjectStatusPlanning, ProjectStatusActive, ProjectStatusSuspended,
		ProjectStatusCompleted, ProjectStatusClosed:
		return true
	}
	return false
}

// String returns the string representation of ProjectStatus
func (s ProjectStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether the status may move to the target status
func (s ProjectStatus) CanTransitionTo(target ProjectStatus) bool {
	allowed := map[ProjectStatus][]ProjectStatus{
		ProjectStatusPlanning:  {ProjectStatusActive, ProjectStatusClosed},
		ProjectStatusActive:    {ProjectStatusSuspended, ProjectStatusCompleted, ProjectStatusClosed},
		ProjectStatusSuspended: {ProjectStatusActive, ProjectStatusClosed},
		ProjectStatusCompleted: {ProjectStatusActive, ProjectStatusClosed},
		ProjectStatusClosed:    {},
	}
	for _, t := range allowed[s] {
		if t == target {
			return true
		}
	}
	return false
}

// FundingType classifies where a project's money comes from
type FundingType string

const (
	FundingTypeGrant       FundingType = "GRANT"
	FundingTypeDonation    FundingType = "DONATION"
	FundingTypeContract    FundingType = "CONTRACT"
	FundingTypePartnership FundingType = "PARTNERSHIP"
)

// IsValid checks if the funding type is a valid FundingType
func (f FundingType) IsValid() bool {
	switch f {
	case FundingTypeGrant, FundingTypeDonation, FundingTypeContract, FundingTypePartnership:
		return true
	}
	return false
}

// Project codes follow the pattern WHF-{year}-{seq:03d}, e.g. WHF-2025-001.
// The sequence restarts at 1 each calendar year.

// ProjectCodePrefix returns the code prefix for a given year
func ProjectCodePrefix(year int) string {
	return fmt.Sprintf("WHF-%04d-", year)
}

// FormatProjectCode formats a project code from year and sequence
func FormatProjectCode(year, seq int) string {
	return fmt.Sprintf("WHF-%04d-%03d", year, seq)
}

// ParseProjectSequence extracts the trailing sequence from a project code for
// the given year. Returns false when the code does not match the year prefix
// or the trailing segment is not an integer.
func ParseProjectSequence(code string, year int) (int, bool) {
	prefix := ProjectCodePrefix(year)
	if !strings.HasPrefix(code, prefix) {
		return 0, false
	}
	seq, err := strconv.Atoi(strings.TrimPrefix(code, prefix))
	if err != nil || seq < 1 {
		return 0, false
	}
	return seq, true
}

// NextProjectSequence returns the sequence that follows the highest parseable
// sequence among the given codes for the year
func NextProjectSequence(codes []string, year int) int {
	highest := 0
	for _, c := range codes {
		if seq, ok := ParseProjectSequence(c, year); ok && seq > highest {
			highest = seq
		}
	}
	return highest + 1
}

// Project is the aggregate root for a funded program that invoices are
// raised against. Budget figures are tracked against the total invoiced
// amount, which lives in the invoicing context.
type Project struct {
	shared.BaseAggregateRoot
	Code                 string               `json:"code"`
	Name                 string               `json:"name"`
	Description          string               `json:"description,omitempty"`
	Status               ProjectStatus        `json:"status"`
	FundingType          FundingType          `json:"funding_type"`
	StartDate            *time.Time           `json:"start_date,omitempty"`
	EndDate              *time.Time           `json:"end_date,omitempty"`
	Country              string               `json:"country"`
	Region               string               `json:"region,omitempty"`
	SpecificLocation     string               `json:"specific_location,omitempty"`
	TotalBudget          decimal.Decimal      `json:"total_budget"`
	Currency             valueobject.Currency `json:"currency"`
	TargetBeneficiaries  int                  `json:"target_beneficiaries"`
	ServiceArea          string               `json:"service_area,omitempty"`
	PrimaryDonor         string               `json:"primary_donor,omitempty"`
	DonorReference       string               `json:"donor_reference,omitempty"`
	GrantAgreementNumber string               `json:"grant_agreement_number,omitempty"`
	Notes                string               `json:"notes,omitempty"`
	ClosedAt             *time.Time           `json:"closed_at,omitempty"`
}

// NewProjectInput carries the fields needed to create a project
type NewProjectInput struct {
	Code                 string
	Name                 string
	Description          string
	FundingType          FundingType
	StartDate            *time.Time
	EndDate              *time.Time
	Country              string
	Region               string
	SpecificLocation     string
	TotalBudget          decimal.Decimal
	Currency             string
	TargetBeneficiaries  int
	ServiceArea          string
	PrimaryDonor         string
	DonorReference       string
	GrantAgreementNumber string
}

// NewProject creates a project in PLANNING status. The code is assigned by
// the caller, normally from the repository's yearly sequence.
func NewProject(input NewProjectInput) (*Project, error) {
	if strings.TrimSpace(input.Code) == "" {
		return nil, NewValidationError("Project code cannot be empty")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, NewValidationError("Project name cannot be empty")
	}
	if !input.FundingType.IsValid() {
		return nil, NewValidationError("Invalid funding type")
	}
	if input.TotalBudget.IsNegative() {
		return nil, NewValidationError("Project budget cannot be negative")
	}
	if input.StartDate != nil && input.EndDate != nil && input.EndDate.Before(*input.StartDate) {
		return nil, NewValidationError("Project end date cannot be before start date")
	}
	if input.TargetBeneficiaries < 0 {
		return nil, NewValidationError("Target beneficiaries cannot be negative")
	}

	currency := valueobject.Currency(input.Currency)
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}

	return &Project{
		BaseAggregateRoot:    shared.NewBaseAggregateRoot(),
		Code:                 strings.ToUpper(strings.TrimSpace(input.Code)),
		Name:                 strings.TrimSpace(input.Name),
		Description:          input.Description,
		Status:               ProjectStatusPlanning,
		FundingType:          input.FundingType,
		StartDate:            input.StartDate,
		EndDate:              input.EndDate,
		Country:              defaultString(input.Country, "Kenya"),
		Region:               input.Region,
		SpecificLocation:     input.SpecificLocation,
		TotalBudget:          input.TotalBudget.Round(2),
		Currency:             currency,
		TargetBeneficiaries:  input.TargetBeneficiaries,
		ServiceArea:          input.ServiceArea,
		PrimaryDonor:         input.PrimaryDonor,
		DonorReference:       input.DonorReference,
		GrantAgreementNumber: input.GrantAgreementNumber,
	}, nil
}

// UpdateDetails updates the descriptive and funding fields. The code and
// status are managed by their own operations.
func (p *Project) UpdateDetails(input NewProjectInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return NewValidationError("Project name cannot be empty")
	}
	if !input.FundingType.IsValid() {
		return NewValidationError("Invalid funding type")
	}
	if input.TotalBudget.IsNegative() {
		return NewValidationError("Project budget cannot be negative")
	}
	if input.StartDate != nil && input.EndDate != nil && input.EndDate.Before(*input.StartDate) {
		return NewValidationError("Project end date cannot be before start date")
	}
	if input.TargetBeneficiaries < 0 {
		return NewValidationError("Target beneficiaries cannot be negative")
	}

	p.Name = strings.TrimSpace(input.Name)
	p.Description = input.Description
	p.FundingType = input.FundingType
	p.StartDate = input.StartDate
	p.EndDate = input.EndDate
	p.Country = defaultString(input.Country, p.Country)
	p.Region = input.Region
	p.SpecificLocation = input.SpecificLocation
	p.TotalBudget = input.TotalBudget.Round(2)
	p.TargetBeneficiaries = input.TargetBeneficiaries
	p.ServiceArea = input.ServiceArea
	p.PrimaryDonor = input.PrimaryDonor
	p.DonorReference = input.DonorReference
	p.GrantAgreementNumber = input.GrantAgreementNumber
	p.touch()
	return nil
}

// UpdateStatus transitions the project to a new status. CLOSED records the
// closing time and is terminal.
func (p *Project) UpdateStatus(newStatus ProjectStatus) error {
	if !newStatus.IsValid() {
		return NewValidationError("Invalid project status: " + newStatus.String())
	}
	if newStatus == p.Status {
		return nil
	}
	if !p.Status.CanTransitionTo(newStatus) {
		return NewInvalidTransitionError("project", p.Status.String(), newStatus.String())
	}

	p.Status = newStatus
	if newStatus == ProjectStatusClosed {
		now := time.Now()
		p.ClosedAt = &now
	}
	p.touch()
	return nil
}

// Close transitions the project to CLOSED
func (p *Project) Close() error {
	return p.UpdateStatus(ProjectStatusClosed)
}

// SetNotes replaces the free-form notes
func (p *Project) SetNotes(notes string) {
	p.Notes = notes
	p.touch()
}

// HasBudget reports whether a budget is set for the project
func (p *Project) HasBudget() bool {
	return p.TotalBudget.IsPositive()
}

// BudgetUtilization returns the invoiced share of the budget as a percentage
// rounded to two decimals. Zero-budget projects report zero.
func (p *Project) BudgetUtilization(totalInvoiced decimal.Decimal) decimal.Decimal {
	if !p.HasBudget() {
		return decimal.Zero
	}
	return totalInvoiced.Div(p.TotalBudget).Mul(decimal.NewFromInt(100)).Round(2)
}

// RemainingBudget returns the budget minus the invoiced total. May be
// negative when the budget is exceeded.
func (p *Project) RemainingBudget(totalInvoiced decimal.Decimal) decimal.Decimal {
	return p.TotalBudget.Sub(totalInvoiced)
}

// IsBudgetExceeded reports whether the invoiced total is above the budget
func (p *Project) IsBudgetExceeded(totalInvoiced decimal.Decimal) bool {
	return p.HasBudget() && totalInvoiced.GreaterThan(p.TotalBudget)
}

func (p *Project) touch() {
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}

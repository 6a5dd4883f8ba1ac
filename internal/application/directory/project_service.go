package directory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wasatpay/backend/internal/domain/directory"
	"github.com/wasatpay/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// maxCodeAttempts bounds the retry loop when two transactions race for the
// same project code. The unique index on code surfaces the loser as
// ErrDuplicateProjectCode.
const maxCodeAttempts = 3

// InvoiceTotals reports invoiced amounts from the invoicing context for
// project budget tracking
type InvoiceTotals interface {
	TotalInvoicedForProject(ctx context.Context, projectID uuid.UUID) (decimal.Decimal, error)
}

// ProjectService implements the project directory use cases
type ProjectService struct {
	projectRepo   directory.ProjectRepository
	invoiceTotals InvoiceTotals
	logger        *zap.Logger
}

// NewProjectService creates a new ProjectService. The invoice totals source
// may be nil, in which case budget figures report zero invoiced.
func NewProjectService(projectRepo directory.ProjectRepository, invoiceTotals InvoiceTotals, logger *zap.Logger) *ProjectService {
	return &ProjectService{
		projectRepo:   projectRepo,
		invoiceTotals: invoiceTotals,
		logger:        logger,
	}
}

// CreateProjectRequest carries the inputs for project creation. The project
// code is always generated; callers never pick their own.
type CreateProjectRequest struct {
	Name                 string
	Description          string
	FundingType          string
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

// ProjectBudget summarizes a project's budget position against the invoiced
// total
type ProjectBudget struct {
	TotalInvoiced   decimal.Decimal `json:"total_invoiced"`
	RemainingBudget decimal.Decimal `json:"remaining_budget"`
	Utilization     decimal.Decimal `json:"utilization_percent"`
	BudgetExceeded  bool            `json:"budget_exceeded"`
}

// ProjectDetail is a project together with its budget position
type ProjectDetail struct {
	*directory.Project
	Budget ProjectBudget `json:"budget"`
}

// CreateProject creates a project in PLANNING status with a generated
// WHF-{year}-{seq} code. On a code collision (a concurrent creation won the
// race) the creation is retried with a fresh code.
func (s *ProjectService) CreateProject(ctx context.Context, req CreateProjectRequest) (*directory.Project, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "project", "create_project")
	defer span.End()

	year := time.Now().Year()
	var created *directory.Project
	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := s.projectRepo.NextProjectCode(ctx, year)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}

		project, err := directory.NewProject(directory.NewProjectInput{
			Code:                 code,
			Name:                 req.Name,
			Description:          req.Description,
			FundingType:          directory.FundingType(req.FundingType),
			StartDate:            req.StartDate,
			EndDate:              req.EndDate,
			Country:              req.Country,
			Region:               req.Region,
			SpecificLocation:     req.SpecificLocation,
			TotalBudget:          req.TotalBudget,
			Currency:             req.Currency,
			TargetBeneficiaries:  req.TargetBeneficiaries,
			ServiceArea:          req.ServiceArea,
			PrimaryDonor:         req.PrimaryDonor,
			DonorReference:       req.DonorReference,
			GrantAgreementNumber: req.GrantAgreementNumber,
		})
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}

		err = s.projectRepo.Save(ctx, project)
		if err == nil {
			created = project
			break
		}
		if !errors.Is(err, directory.ErrDuplicateProjectCode) || attempt == maxCodeAttempts {
			telemetry.RecordError(span, err)
			return nil, err
		}
		s.logger.Warn("project code collision, retrying",
			zap.String("code", code),
			zap.Int("attempt", attempt))
	}

	s.logger.Info("project created",
		zap.String("project_id", created.ID.String()),
		zap.String("code", created.Code),
		zap.String("funding_type", string(created.FundingType)))
	return created, nil
}

// GetProject retrieves a project with its budget position
func (s *ProjectService) GetProject(ctx context.Context, id uuid.UUID) (*ProjectDetail, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "project", "get_project")
	defer span.End()

	project, err := s.projectRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withBudget(ctx, project)
}

// GetProjectByCode retrieves a project by its code with its budget position
func (s *ProjectService) GetProjectByCode(ctx context.Context, code string) (*ProjectDetail, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "project", "get_project_by_code")
	defer span.End()

	project, err := s.projectRepo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.withBudget(ctx, project)
}

// ListProjects retrieves projects matching the filter with the total count
func (s *ProjectService) ListProjects(ctx context.Context, filter directory.ProjectFilter) ([]directory.Project, int64, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "project", "list_projects")
	defer span.End()

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	return s.projectRepo.FindAll(ctx, filter)
}

// UpdateProject replaces a project's editable fields. The code and status
// are never changed here.
func (s *ProjectService) UpdateProject(ctx context.Context, id uuid.UUID, req CreateProjectRequest) (*directory.Project, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "project", "update_project")
	defer span.End()

	project, err := s.projectRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	err = project.UpdateDetails(directory.NewProjectInput{
		Code:                 project.Code,
		Name:                 req.Name,
		Description:          req.Description,
		FundingType:          directory.FundingType(req.FundingType),
		StartDate:            req.StartDate,
		EndDate:              req.EndDate,
		Country:              req.Country,
		Region:               req.Region,
		SpecificLocation:     req.SpecificLocation,
		TotalBudget:          req.TotalBudget,
		Currency:             req.Currency,
		TargetBeneficiaries:  req.TargetBeneficiaries,
		ServiceArea:          req.ServiceArea,
		PrimaryDonor:         req.PrimaryDonor,
		DonorReference:       req.DonorReference,
		GrantAgreementNumber: req.GrantAgreementNumber,
	})
	if err != nil {
		return nil, err
	}

	if err := s.projectRepo.SaveWithLock(ctx, project); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return project, nil
}

// UpdateProjectStatus transitions a project to a new lifecycle status. A
// same-status request is a successful no-op.
func (s *ProjectService) UpdateProjectStatus(ctx context.Context, id uuid.UUID, newStatus directory.ProjectStatus) (*directory.Project, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "project", "update_project_status")
	defer span.End()

	project, err := s.projectRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if newStatus == project.Status {
		return project, nil
	}

	if err := project.UpdateStatus(newStatus); err != nil {
		return nil, err
	}
	if err := s.projectRepo.SaveWithLock(ctx, project); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("project status updated",
		zap.String("project_id", id.String()),
		zap.String("status", newStatus.String()))
	return project, nil
}

// withBudget attaches the budget position computed from the invoiced total
func (s *ProjectService) withBudget(ctx context.Context, project *directory.Project) (*ProjectDetail, error) {
	invoiced := decimal.Zero
	if s.invoiceTotals != nil {
		total, err := s.invoiceTotals.TotalInvoicedForProject(ctx, project.ID)
		if err != nil {
			return nil, err
		}
		invoiced = total
	}

	return &ProjectDetail{
		Project: project,
		Budget: ProjectBudget{
			TotalInvoiced:   invoiced,
			RemainingBudget: project.RemainingBudget(invoiced),
			Utilization:     project.BudgetUtilization(invoiced),
			BudgetExceeded:  project.IsBudgetExceeded(invoiced),
		},
	}, nil
}

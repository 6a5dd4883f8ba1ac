package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	appdirectory "github.com/wasatpay/backend/internal/application/directory"
	"github.com/wasatpay/backend/internal/domain/directory"
	"github.com/wasatpay/backend/internal/interfaces/http/dto"
)

// ProjectHandler handles project API endpoints
type ProjectHandler struct {
	BaseHandler
	projectService *appdirectory.ProjectService
}

// NewProjectHandler creates a new ProjectHandler
func NewProjectHandler(projectService *appdirectory.ProjectService) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
	}
}

// ProjectRequest represents a request to create or update a project. The
// project code is always generated server-side.
type ProjectRequest struct {
	Name                 string     `json:"name" binding:"required,min=1,max=200"`
	Description          string     `json:"description" binding:"max=5000"`
	FundingType          string     `json:"funding_type" binding:"required,oneof=GRANT DONATION CONTRACT PARTNERSHIP"`
	StartDate            *time.Time `json:"start_date"`
	EndDate              *time.Time `json:"end_date"`
	Country              string     `json:"country" binding:"max=100"`
	Region               string     `json:"region" binding:"max=100"`
	SpecificLocation     string     `json:"specific_location" binding:"max=200"`
	TotalBudget          float64    `json:"total_budget" binding:"gte=0"`
	Currency             string     `json:"currency" binding:"omitempty,len=3"`
	TargetBeneficiaries  int        `json:"target_beneficiaries" binding:"gte=0"`
	ServiceArea          string     `json:"service_area" binding:"max=200"`
	PrimaryDonor         string     `json:"primary_donor" binding:"max=200"`
	DonorReference       string     `json:"donor_reference" binding:"max=100"`
	GrantAgreementNumber string     `json:"grant_agreement_number" binding:"max=100"`
}

// UpdateProjectStatusRequest represents a project status change request
type UpdateProjectStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=PLANNING ACTIVE SUSPENDED COMPLETED CLOSED"`
}

// ListProjectsRequest represents project list filters
type ListProjectsRequest struct {
	dto.ListRequest
	Status      string `form:"status" binding:"omitempty,oneof=PLANNING ACTIVE SUSPENDED COMPLETED CLOSED"`
	FundingType string `form:"funding_type" binding:"omitempty,oneof=GRANT DONATION CONTRACT PARTNERSHIP"`
	Country     string `form:"country" binding:"max=100"`
}

func (r ProjectRequest) toApplication() appdirectory.CreateProjectRequest {
	return appdirectory.CreateProjectRequest{
		Name:                 r.Name,
		Description:          r.Description,
		FundingType:          r.FundingType,
		StartDate:            r.StartDate,
		EndDate:              r.EndDate,
		Country:              r.Country,
		Region:               r.Region,
		SpecificLocation:     r.SpecificLocation,
		TotalBudget:          decimal.NewFromFloat(r.TotalBudget),
		Currency:             r.Currency,
		TargetBeneficiaries:  r.TargetBeneficiaries,
		ServiceArea:          r.ServiceArea,
		PrimaryDonor:         r.PrimaryDonor,
		DonorReference:       r.DonorReference,
		GrantAgreementNumber: r.GrantAgreementNumber,
	}
}

// Create creates a new project with a generated project code
func (h *ProjectHandler) Create(c *gin.Context) {
	var req ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.CreateProject(c.Request.Context(), req.toApplication())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, project)
}

// GetByID retrieves a project with its budget position
func (h *ProjectHandler) GetByID(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid project ID format")
		return
	}

	detail, err := h.projectService.GetProject(c.Request.Context(), projectID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, detail)
}

// GetByCode retrieves a project by its WHF code
func (h *ProjectHandler) GetByCode(c *gin.Context) {
	detail, err := h.projectService.GetProjectByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, detail)
}

// List returns projects matching the filter with pagination
func (h *ProjectHandler) List(c *gin.Context) {
	req := ListProjectsRequest{ListRequest: dto.DefaultListRequest()}
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := directory.ProjectFilter{
		Country:  req.Country,
		Search:   req.Search,
		Page:     req.Page,
		PageSize: req.PageSize,
		OrderBy:  req.OrderBy,
		OrderDir: req.OrderDir,
	}
	if req.Status != "" {
		status := directory.ProjectStatus(req.Status)
		filter.Status = &status
	}
	if req.FundingType != "" {
		fundingType := directory.FundingType(req.FundingType)
		filter.FundingType = &fundingType
	}

	projects, total, err := h.projectService.ListProjects(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, projects, total, filter.Page, filter.PageSize)
}

// Update replaces a project's editable fields
func (h *ProjectHandler) Update(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid project ID format")
		return
	}

	var req ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.UpdateProject(c.Request.Context(), projectID, req.toApplication())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, project)
}

// UpdateStatus changes the project lifecycle status
func (h *ProjectHandler) UpdateStatus(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid project ID format")
		return
	}

	var req UpdateProjectStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.UpdateProjectStatus(c.Request.Context(), projectID,
		directory.ProjectStatus(req.Status))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, project)
}

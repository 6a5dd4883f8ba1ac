package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	appinvoicing "github.com/wasatpay/backend/internal/application/invoicing"
	"github.com/wasatpay/backend/internal/domain/invoicing"
	"github.com/wasatpay/backend/internal/interfaces/http/dto"
)

// InvoiceHandler handles invoice API endpoints
type InvoiceHandler struct {
	BaseHandler
	invoiceService *appinvoicing.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceService *appinvoicing.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
	}
}

// LineItemRequest represents one line item in an invoice request
type LineItemRequest struct {
	Description string  `json:"description" binding:"required,min=1,max=500"`
	Quantity    float64 `json:"quantity" binding:"required,gt=0"`
	Unit        string  `json:"unit" binding:"max=20"`
	UnitPrice   float64 `json:"unit_price" binding:"gte=0"`
	ProductCode string  `json:"product_code" binding:"max=50"`
}

// CreateInvoiceRequest represents a request to create a new invoice
type CreateInvoiceRequest struct {
	CustomerID          string            `json:"customer_id" binding:"required,uuid"`
	ProjectID           string            `json:"project_id" binding:"omitempty,uuid"`
	Currency            string            `json:"currency" binding:"omitempty,len=3"`
	IssueDate           *time.Time        `json:"issue_date"`
	DueDate             *time.Time        `json:"due_date"`
	PaymentTerms        int               `json:"payment_terms" binding:"omitempty,gte=0,lte=365"`
	TaxRate             float64           `json:"tax_rate" binding:"gte=0,lte=100"`
	DiscountAmount      float64           `json:"discount_amount" binding:"gte=0"`
	ReferenceNumber     string            `json:"reference_number" binding:"max=100"`
	PONumber            string            `json:"po_number" binding:"max=100"`
	LPONumber           string            `json:"lpo_number" binding:"max=100"`
	DeliveryDate        *time.Time        `json:"delivery_date"`
	PaymentInstructions string            `json:"payment_instructions" binding:"max=2000"`
	Notes               string            `json:"notes" binding:"max=2000"`
	InternalNotes       string            `json:"internal_notes" binding:"max=2000"`
	LineItems           []LineItemRequest `json:"line_items" binding:"required,min=1,dive"`
}

// UpdateInvoiceRequest represents a full content update of a draft or sent
// invoice. Line items are replaced wholesale.
type UpdateInvoiceRequest struct {
	IssueDate           time.Time         `json:"issue_date" binding:"required"`
	DueDate             time.Time         `json:"due_date" binding:"required"`
	DeliveryDate        *time.Time        `json:"delivery_date"`
	TaxRate             float64           `json:"tax_rate" binding:"gte=0,lte=100"`
	DiscountAmount      float64           `json:"discount_amount" binding:"gte=0"`
	ReferenceNumber     string            `json:"reference_number" binding:"max=100"`
	PONumber            string            `json:"po_number" binding:"max=100"`
	LPONumber           string            `json:"lpo_number" binding:"max=100"`
	PaymentInstructions string            `json:"payment_instructions" binding:"max=2000"`
	Notes               string            `json:"notes" binding:"max=2000"`
	InternalNotes       string            `json:"internal_notes" binding:"max=2000"`
	LineItems           []LineItemRequest `json:"line_items" binding:"required,min=1,dive"`
}

// UpdateInvoiceStatusRequest represents a status change request
type UpdateInvoiceStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=DRAFT SENT PARTIALLY_PAID PAID OVERDUE CANCELLED"`
	Notes  string `json:"notes" binding:"max=500"`
}

// ListInvoicesRequest represents invoice list filters
type ListInvoicesRequest struct {
	dto.ListRequest
	Status     string `form:"status" binding:"omitempty,oneof=DRAFT SENT PARTIALLY_PAID PAID OVERDUE CANCELLED"`
	CustomerID string `form:"customer_id" binding:"omitempty,uuid"`
	ProjectID  string `form:"project_id" binding:"omitempty,uuid"`
	IssuedFrom string `form:"issued_from" binding:"omitempty,datetime=2006-01-02"`
	IssuedTo   string `form:"issued_to" binding:"omitempty,datetime=2006-01-02"`
}

// CheckOverdueResponse reports the result of an overdue sweep
type CheckOverdueResponse struct {
	Transitioned int `json:"transitioned"`
}

func toLineItemInputs(items []LineItemRequest) []appinvoicing.LineItemInput {
	inputs := make([]appinvoicing.LineItemInput, 0, len(items))
	for _, item := range items {
		inputs = append(inputs, appinvoicing.LineItemInput{
			Description: item.Description,
			Quantity:    decimal.NewFromFloat(item.Quantity),
			Unit:        item.Unit,
			UnitPrice:   decimal.NewFromFloat(item.UnitPrice),
			ProductCode: item.ProductCode,
		})
	}
	return inputs
}

// Create creates a new draft invoice with a generated number
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		h.BadRequest(c, "Invalid customer ID format")
		return
	}

	appReq := appinvoicing.CreateInvoiceRequest{
		CustomerID:          customerID,
		Currency:            req.Currency,
		PaymentTerms:        req.PaymentTerms,
		TaxRate:             decimal.NewFromFloat(req.TaxRate),
		DiscountAmount:      decimal.NewFromFloat(req.DiscountAmount),
		ReferenceNumber:     req.ReferenceNumber,
		PONumber:            req.PONumber,
		LPONumber:           req.LPONumber,
		DeliveryDate:        req.DeliveryDate,
		PaymentInstructions: req.PaymentInstructions,
		Notes:               req.Notes,
		InternalNotes:       req.InternalNotes,
		LineItems:           toLineItemInputs(req.LineItems),
		DueDate:             req.DueDate,
	}
	if req.IssueDate != nil {
		appReq.IssueDate = *req.IssueDate
	}
	if req.ProjectID != "" {
		projectID, err := uuid.Parse(req.ProjectID)
		if err != nil {
			h.BadRequest(c, "Invalid project ID format")
			return
		}
		appReq.ProjectID = &projectID
	}
	if userID, err := getUserID(c); err == nil {
		appReq.CreatedBy = &userID
	}

	inv, err := h.invoiceService.CreateInvoice(c.Request.Context(), appReq)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, inv)
}

// GetByID retrieves an invoice by its ID
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	inv, err := h.invoiceService.GetInvoice(c.Request.Context(), invoiceID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, inv)
}

// List returns invoices matching the filter with pagination
func (h *InvoiceHandler) List(c *gin.Context) {
	req := ListInvoicesRequest{ListRequest: dto.DefaultListRequest()}
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := invoicing.InvoiceFilter{
		Search:   req.Search,
		Page:     req.Page,
		PageSize: req.PageSize,
		OrderBy:  req.OrderBy,
		OrderDir: req.OrderDir,
	}
	if req.Status != "" {
		status := invoicing.InvoiceStatus(req.Status)
		filter.Status = &status
	}
	if req.CustomerID != "" {
		id, err := uuid.Parse(req.CustomerID)
		if err != nil {
			h.BadRequest(c, "Invalid customer ID format")
			return
		}
		filter.CustomerID = &id
	}
	if req.ProjectID != "" {
		id, err := uuid.Parse(req.ProjectID)
		if err != nil {
			h.BadRequest(c, "Invalid project ID format")
			return
		}
		filter.ProjectID = &id
	}
	if req.IssuedFrom != "" {
		from, _ := time.Parse("2006-01-02", req.IssuedFrom)
		filter.IssuedFrom = &from
	}
	if req.IssuedTo != "" {
		to, _ := time.Parse("2006-01-02", req.IssuedTo)
		filter.IssuedTo = &to
	}

	invoices, total, err := h.invoiceService.ListInvoices(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, invoices, total, filter.Page, filter.PageSize)
}

// Update replaces the content of a draft or sent invoice
func (h *InvoiceHandler) Update(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	var req UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	appReq := appinvoicing.UpdateInvoiceRequest{
		IssueDate:           req.IssueDate,
		DueDate:             req.DueDate,
		DeliveryDate:        req.DeliveryDate,
		TaxRate:             decimal.NewFromFloat(req.TaxRate),
		DiscountAmount:      decimal.NewFromFloat(req.DiscountAmount),
		ReferenceNumber:     req.ReferenceNumber,
		PONumber:            req.PONumber,
		LPONumber:           req.LPONumber,
		PaymentInstructions: req.PaymentInstructions,
		Notes:               req.Notes,
		InternalNotes:       req.InternalNotes,
		LineItems:           toLineItemInputs(req.LineItems),
	}

	inv, err := h.invoiceService.UpdateInvoice(c.Request.Context(), invoiceID, appReq)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, inv)
}

// UpdateStatus changes the invoice status
func (h *InvoiceHandler) UpdateStatus(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	var req UpdateInvoiceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var actor *uuid.UUID
	if userID, err := getUserID(c); err == nil {
		actor = &userID
	}

	inv, err := h.invoiceService.UpdateInvoiceStatus(c.Request.Context(), invoiceID,
		invoicing.InvoiceStatus(req.Status), actor, req.Notes)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, inv)
}

// Delete removes a draft invoice
func (h *InvoiceHandler) Delete(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	if err := h.invoiceService.DeleteInvoice(c.Request.Context(), invoiceID); err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.NoContent(c)
}

// GetPDF renders the invoice as a PDF document
func (h *InvoiceHandler) GetPDF(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	pdfData, err := h.invoiceService.RenderInvoicePDF(c.Request.Context(), invoiceID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="invoice.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdfData)
}

// GetStats returns invoice counts and amounts grouped by status
func (h *InvoiceHandler) GetStats(c *gin.Context) {
	stats, err := h.invoiceService.GetInvoiceStats(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, stats)
}

// CheckOverdue sweeps SENT invoices past their due date into OVERDUE
func (h *InvoiceHandler) CheckOverdue(c *gin.Context) {
	transitioned, err := h.invoiceService.CheckOverdueInvoices(c.Request.Context(), time.Now())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, CheckOverdueResponse{Transitioned: transitioned})
}

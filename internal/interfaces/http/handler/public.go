package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	appinvoicing "github.com/wasatpay/backend/internal/application/invoicing"
	"github.com/wasatpay/backend/internal/domain/invoicing"
)

// PublicHandler serves the unauthenticated payment-page endpoints. Responses
// are projections that never expose internal identifiers or internal notes.
type PublicHandler struct {
	BaseHandler
	invoiceService *appinvoicing.InvoiceService
	paymentService *appinvoicing.PaymentService
}

// NewPublicHandler creates a new PublicHandler
func NewPublicHandler(invoiceService *appinvoicing.InvoiceService, paymentService *appinvoicing.PaymentService) *PublicHandler {
	return &PublicHandler{
		invoiceService: invoiceService,
		paymentService: paymentService,
	}
}

// PublicLineItemResponse is one line item on the public payment page
type PublicLineItemResponse struct {
	Description   string          `json:"description"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitOfMeasure string          `json:"unit_of_measure,omitempty"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// PublicInvoiceResponse is the payment-page projection of an invoice.
// Customer/project identifiers and internal notes are deliberately absent.
type PublicInvoiceResponse struct {
	ID                  uuid.UUID                `json:"id"`
	InvoiceNumber       string                   `json:"invoice_number"`
	Status              string                   `json:"status"`
	Currency            string                   `json:"currency"`
	IssueDate           time.Time                `json:"issue_date"`
	DueDate             time.Time                `json:"due_date"`
	Subtotal            decimal.Decimal          `json:"subtotal"`
	TaxAmount           decimal.Decimal          `json:"tax_amount"`
	DiscountAmount      decimal.Decimal          `json:"discount_amount"`
	TotalAmount         decimal.Decimal          `json:"total_amount"`
	TotalPaid           decimal.Decimal          `json:"total_paid"`
	OutstandingAmount   decimal.Decimal          `json:"outstanding_amount"`
	PaymentInstructions string                   `json:"payment_instructions,omitempty"`
	Notes               string                   `json:"notes,omitempty"`
	LineItems           []PublicLineItemResponse `json:"line_items"`
	IsPayable           bool                     `json:"is_payable"`
}

// NewPublicInvoiceResponse builds the public projection from an invoice
func NewPublicInvoiceResponse(inv *invoicing.Invoice) PublicInvoiceResponse {
	items := make([]PublicLineItemResponse, 0, len(inv.LineItems))
	for _, item := range inv.LineItems {
		items = append(items, PublicLineItemResponse{
			Description:   item.Description,
			Quantity:      item.Quantity,
			UnitOfMeasure: item.UnitOfMeasure,
			UnitPrice:     item.UnitPrice,
			TotalAmount:   item.TotalAmount,
		})
	}
	return PublicInvoiceResponse{
		ID:                  inv.ID,
		InvoiceNumber:       inv.InvoiceNumber,
		Status:              inv.Status.String(),
		Currency:            string(inv.Currency),
		IssueDate:           inv.IssueDate,
		DueDate:             inv.DueDate,
		Subtotal:            inv.Subtotal,
		TaxAmount:           inv.TaxAmount,
		DiscountAmount:      inv.DiscountAmount,
		TotalAmount:         inv.TotalAmount,
		TotalPaid:           inv.TotalPaid(),
		OutstandingAmount:   inv.OutstandingAmount(),
		PaymentInstructions: inv.PaymentInstructions,
		Notes:               inv.Notes,
		LineItems:           items,
		IsPayable:           inv.IsPayable(),
	}
}

// CardDetailsRequest carries card display details for a payment
type CardDetailsRequest struct {
	Brand string `json:"brand" binding:"max=20"`
	Last4 string `json:"last4" binding:"omitempty,len=4,numeric"`
}

// BankDetailsRequest carries bank transfer display details
type BankDetailsRequest struct {
	BankName     string `json:"bank_name" binding:"max=100"`
	AccountLast4 string `json:"account_last4" binding:"omitempty,len=4,numeric"`
}

// MobileDetailsRequest carries mobile money display details
type MobileDetailsRequest struct {
	Network     string `json:"network" binding:"max=50"`
	PhoneNumber string `json:"phone_number" binding:"max=20"`
}

// InitiatePaymentRequest represents a public payment initiation
type InitiatePaymentRequest struct {
	Amount     *float64              `json:"amount" binding:"omitempty,gt=0"`
	Method     string                `json:"method" binding:"required,oneof=CARD BANK_TRANSFER MOBILE_MONEY MPESA"`
	Provider   string                `json:"provider" binding:"required,oneof=STRIPE FLUTTERWAVE MANUAL"`
	Card       *CardDetailsRequest   `json:"card"`
	Bank       *BankDetailsRequest   `json:"bank"`
	Mobile     *MobileDetailsRequest `json:"mobile"`
	PayerName  string                `json:"payer_name" binding:"max=200"`
	PayerEmail string                `json:"payer_email" binding:"omitempty,email,max=200"`
	PayerPhone string                `json:"payer_phone" binding:"max=20"`
}

// PublicPaymentResponse is the public projection of an initiated payment
type PublicPaymentResponse struct {
	ID          uuid.UUID       `json:"id"`
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Status      string          `json:"status"`
	Method      string          `json:"method"`
	Provider    string          `json:"provider"`
	InitiatedAt time.Time       `json:"initiated_at"`
}

// NewPublicPaymentResponse builds the public projection from a payment
func NewPublicPaymentResponse(p *invoicing.Payment) PublicPaymentResponse {
	return PublicPaymentResponse{
		ID:          p.ID,
		InvoiceID:   p.InvoiceID,
		Amount:      p.Amount,
		Currency:    string(p.Currency),
		Status:      p.Status.String(),
		Method:      string(p.Method),
		Provider:    string(p.Provider),
		InitiatedAt: p.InitiatedAt,
	}
}

// GetInvoice serves the payment-page view of an invoice. Draft and cancelled
// invoices are reported as not found.
func (h *PublicHandler) GetInvoice(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	inv, err := h.invoiceService.GetPublicInvoice(c.Request.Context(), invoiceID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, NewPublicInvoiceResponse(inv))
}

// InitiatePayment creates a PENDING payment against a payable invoice. An
// omitted amount pays the outstanding balance.
func (h *PublicHandler) InitiatePayment(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID format")
		return
	}

	var req InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	appReq := appinvoicing.InitiatePaymentRequest{
		InvoiceID:  invoiceID,
		Method:     invoicing.PaymentMethod(req.Method),
		Provider:   invoicing.PaymentProvider(req.Provider),
		PayerName:  req.PayerName,
		PayerEmail: req.PayerEmail,
		PayerPhone: req.PayerPhone,
	}
	if req.Amount != nil {
		amount := decimal.NewFromFloat(*req.Amount)
		appReq.Amount = &amount
	}
	if req.Card != nil {
		appReq.MethodDetails = invoicing.NewCardMethodDetails(req.Card.Brand, req.Card.Last4)
	}
	if req.Bank != nil {
		appReq.MethodDetails = invoicing.NewBankMethodDetails(req.Bank.BankName, req.Bank.AccountLast4)
	}
	if req.Mobile != nil {
		appReq.MethodDetails = invoicing.NewMobileMethodDetails(req.Mobile.Network, req.Mobile.PhoneNumber)
	}

	payment, err := h.paymentService.InitiatePayment(c.Request.Context(), appReq)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, NewPublicPaymentResponse(payment))
}

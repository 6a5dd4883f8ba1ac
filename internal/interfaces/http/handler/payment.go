package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	appinvoicing "github.com/wasatpay/backend/internal/application/invoicing"
	"github.com/wasatpay/backend/internal/domain/invoicing"
	"github.com/wasatpay/backend/internal/interfaces/http/dto"
)

// PaymentHandler handles payment API endpoints
type PaymentHandler struct {
	BaseHandler
	paymentService *appinvoicing.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *appinvoicing.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// ListPaymentsRequest represents payment list filters
type ListPaymentsRequest struct {
	dto.ListRequest
	InvoiceID string `form:"invoice_id" binding:"omitempty,uuid"`
	Status    string `form:"status" binding:"omitempty,oneof=PENDING PROCESSING COMPLETED FAILED CANCELLED REFUNDED PARTIALLY_REFUNDED"`
	Method    string `form:"method" binding:"omitempty,oneof=CARD BANK_TRANSFER MOBILE_MONEY MPESA"`
	Provider  string `form:"provider" binding:"omitempty,oneof=STRIPE FLUTTERWAVE MANUAL"`
	From      string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To        string `form:"to" binding:"omitempty,datetime=2006-01-02"`
}

// UpdatePaymentStatusRequest represents an admin payment status change
type UpdatePaymentStatusRequest struct {
	Status        string `json:"status" binding:"required,oneof=PENDING PROCESSING COMPLETED FAILED CANCELLED REFUNDED PARTIALLY_REFUNDED"`
	Notes         string `json:"notes" binding:"max=500"`
	FailureReason string `json:"failure_reason" binding:"max=500"`
	FailureCode   string `json:"failure_code" binding:"max=100"`
}

// CreateRefundRequest represents a refund request against a payment
type CreateRefundRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
	Reason string  `json:"reason" binding:"max=500"`
}

// UpdateRefundStatusRequest represents a refund status change
type UpdateRefundStatusRequest struct {
	Status        string `json:"status" binding:"required,oneof=PENDING PROCESSING COMPLETED FAILED CANCELLED"`
	FailureReason string `json:"failure_reason" binding:"max=500"`
}

// List returns payments matching the filter with pagination
func (h *PaymentHandler) List(c *gin.Context) {
	req := ListPaymentsRequest{ListRequest: dto.DefaultListRequest()}
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := invoicing.PaymentFilter{
		Page:     req.Page,
		PageSize: req.PageSize,
		OrderBy:  req.OrderBy,
		OrderDir: req.OrderDir,
	}
	if req.InvoiceID != "" {
		id, err := uuid.Parse(req.InvoiceID)
		if err != nil {
			h.BadRequest(c, "Invalid invoice ID format")
			return
		}
		filter.InvoiceID = &id
	}
	if req.Status != "" {
		status := invoicing.PaymentStatus(req.Status)
		filter.Status = &status
	}
	if req.Method != "" {
		method := invoicing.PaymentMethod(req.Method)
		filter.Method = &method
	}
	if req.Provider != "" {
		provider := invoicing.PaymentProvider(req.Provider)
		filter.Provider = &provider
	}
	if req.From != "" {
		from, _ := time.Parse("2006-01-02", req.From)
		filter.From = &from
	}
	if req.To != "" {
		to, _ := time.Parse("2006-01-02", req.To)
		filter.To = &to
	}

	payments, total, err := h.paymentService.ListPayments(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, payments, total, filter.Page, filter.PageSize)
}

// GetByID retrieves a payment with its refunds and history
func (h *PaymentHandler) GetByID(c *gin.Context) {
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	payment, err := h.paymentService.GetPayment(c.Request.Context(), paymentID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, payment)
}

// UpdateStatus changes a payment's status through the transition policy
func (h *PaymentHandler) UpdateStatus(c *gin.Context) {
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	var req UpdatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	update := invoicing.StatusUpdate{
		NewStatus:     invoicing.PaymentStatus(req.Status),
		Notes:         req.Notes,
		FailureReason: req.FailureReason,
		FailureCode:   req.FailureCode,
	}
	if userID, err := getUserID(c); err == nil {
		update.Actor = &userID
	}

	payment, err := h.paymentService.UpdatePaymentStatus(c.Request.Context(), paymentID, update)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, payment)
}

// CreateRefund requests a refund against a completed payment
func (h *PaymentHandler) CreateRefund(c *gin.Context) {
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	var req CreateRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var requestedBy *uuid.UUID
	if userID, err := getUserID(c); err == nil {
		requestedBy = &userID
	}

	refund, err := h.paymentService.CreateRefund(c.Request.Context(), paymentID,
		decimal.NewFromFloat(req.Amount), req.Reason, requestedBy)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, refund)
}

// UpdateRefundStatus transitions a refund and reconciles the payment
func (h *PaymentHandler) UpdateRefundStatus(c *gin.Context) {
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}
	refundID, err := uuid.Parse(c.Param("refundId"))
	if err != nil {
		h.BadRequest(c, "Invalid refund ID format")
		return
	}

	var req UpdateRefundStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var processedBy *uuid.UUID
	if userID, err := getUserID(c); err == nil {
		processedBy = &userID
	}

	payment, err := h.paymentService.UpdateRefundStatus(c.Request.Context(), paymentID, refundID,
		invoicing.RefundStatus(req.Status), processedBy, req.FailureReason)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, payment)
}

// GetStats returns payment counts and amounts grouped by status
func (h *PaymentHandler) GetStats(c *gin.Context) {
	stats, err := h.paymentService.GetPaymentStats(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, stats)
}

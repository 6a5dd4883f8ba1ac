package invoicing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wasatpay/backend/internal/domain/invoicing"
	"github.com/wasatpay/backend/internal/domain/shared/valueobject"
	"github.com/wasatpay/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// maxNumberingAttempts bounds the retry loop when two transactions race for
// the same invoice number. The unique index on invoice_number surfaces the
// loser as ErrDuplicateInvoiceNumber.
const maxNumberingAttempts = 3

// InvoiceRenderer renders an invoice into a printable PDF document
type InvoiceRenderer interface {
	RenderInvoicePDF(ctx context.Context, invoice *invoicing.Invoice) ([]byte, error)
}

// InvoiceService implements the invoice use cases
type InvoiceService struct {
	uow         invoicing.UnitOfWork
	invoiceRepo invoicing.InvoiceRepository
	renderer    InvoiceRenderer
	logger      *zap.Logger
}

// NewInvoiceService creates a new InvoiceService. The renderer may be nil when
// PDF generation is not configured.
func NewInvoiceService(
	uow invoicing.UnitOfWork,
	invoiceRepo invoicing.InvoiceRepository,
	renderer InvoiceRenderer,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		uow:         uow,
		invoiceRepo: invoiceRepo,
		renderer:    renderer,
		logger:      logger,
	}
}

// LineItemInput is one line item in a create or update request
type LineItemInput struct {
	Description string
	Quantity    decimal.Decimal
	Unit        string
	UnitPrice   decimal.Decimal
	ProductCode string
}

// CreateInvoiceRequest carries the inputs for invoice creation. The invoice
// number is always generated; callers never pick their own.
type CreateInvoiceRequest struct {
	CustomerID          uuid.UUID
	ProjectID           *uuid.UUID
	Currency            string
	IssueDate           time.Time
	DueDate             *time.Time
	PaymentTerms        int
	TaxRate             decimal.Decimal
	DiscountAmount      decimal.Decimal
	ReferenceNumber     string
	PONumber            string
	LPONumber           string
	DeliveryDate        *time.Time
	PaymentInstructions string
	Notes               string
	InternalNotes       string
	LineItems           []LineItemInput
	CreatedBy           *uuid.UUID
}

// UpdateInvoiceRequest carries a full content replacement for a draft or sent
// invoice. Line items are replaced wholesale, never patched.
type UpdateInvoiceRequest struct {
	IssueDate           time.Time
	DueDate             time.Time
	DeliveryDate        *time.Time
	TaxRate             decimal.Decimal
	DiscountAmount      decimal.Decimal
	ReferenceNumber     string
	PONumber            string
	LPONumber           string
	PaymentInstructions string
	Notes               string
	InternalNotes       string
	LineItems           []LineItemInput
}

// buildLineItems converts line item inputs into domain line items
func buildLineItems(inputs []LineItemInput, currency valueobject.Currency) ([]invoicing.InvoiceLineItem, error) {
	items := make([]invoicing.InvoiceLineItem, 0, len(inputs))
	for i, in := range inputs {
		unit := in.Unit
		if unit == "" {
			unit = "unit"
		}
		quantity, err := valueobject.NewQuantity(in.Quantity, unit)
		if err != nil {
			return nil, invoicing.NewValidationError(fmt.Sprintf("Line item %d: %s", i+1, err))
		}
		unitPrice, err := valueobject.NewMoney(in.UnitPrice, currency)
		if err != nil {
			return nil, invoicing.NewValidationError(fmt.Sprintf("Line item %d: %s", i+1, err))
		}
		item, err := invoicing.NewInvoiceLineItem(in.Description, quantity, unitPrice, in.ProductCode)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, nil
}

// CreateInvoice creates a new DRAFT invoice with a generated invoice number.
// Number generation and the insert run in one transaction; on a duplicate
// number (a concurrent creation won the race) the whole transaction is retried
// with a fresh number.
func (s *InvoiceService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*invoicing.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "create_invoice")
	defer span.End()

	telemetry.SetAttributes(span, telemetry.SpanAttrCustomerID, req.CustomerID.String())

	currency := valueobject.Currency(req.Currency)
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	items, err := buildLineItems(req.LineItems, currency)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	issueDate := req.IssueDate
	if issueDate.IsZero() {
		issueDate = time.Now()
	}

	var created *invoicing.Invoice
	for attempt := 1; attempt <= maxNumberingAttempts; attempt++ {
		err = s.uow.Execute(ctx, func(repos invoicing.Repositories) error {
			number, numErr := repos.Invoices.NextInvoiceNumber(ctx, issueDate.Year())
			if numErr != nil {
				return numErr
			}

			inv, invErr := invoicing.NewInvoice(invoicing.NewInvoiceInput{
				InvoiceNumber:       number,
				CustomerID:          req.CustomerID,
				ProjectID:           req.ProjectID,
				Currency:            currency,
				IssueDate:           issueDate,
				DueDate:             req.DueDate,
				PaymentTerms:        req.PaymentTerms,
				TaxRate:             req.TaxRate,
				DiscountAmount:      req.DiscountAmount,
				ReferenceNumber:     req.ReferenceNumber,
				PONumber:            req.PONumber,
				LPONumber:           req.LPONumber,
				DeliveryDate:        req.DeliveryDate,
				PaymentInstructions: req.PaymentInstructions,
				Notes:               req.Notes,
				InternalNotes:       req.InternalNotes,
				LineItems:           items,
				CreatedBy:           req.CreatedBy,
			})
			if invErr != nil {
				return invErr
			}

			if saveErr := repos.Invoices.Save(ctx, inv); saveErr != nil {
				return saveErr
			}
			created = inv
			return nil
		})
		if !errors.Is(err, invoicing.ErrDuplicateInvoiceNumber) {
			break
		}
		s.logger.Warn("Invoice number collision, retrying",
			zap.Int("attempt", attempt))
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrInvoiceID, created.ID.String(),
		telemetry.SpanAttrInvoiceNumber, created.InvoiceNumber,
	)
	s.logger.Info("Invoice created",
		zap.String("invoice_id", created.ID.String()),
		zap.String("invoice_number", created.InvoiceNumber),
		zap.String("total_amount", created.TotalAmount.StringFixed(2)))

	return created, nil
}

// GetInvoice returns an invoice by ID with line items, history and payments
func (s *InvoiceService) GetInvoice(ctx context.Context, id uuid.UUID) (*invoicing.Invoice, error) {
	return s.invoiceRepo.FindByID(ctx, id)
}

// GetInvoiceByNumber returns an invoice by its invoice number
func (s *InvoiceService) GetInvoiceByNumber(ctx context.Context, number string) (*invoicing.Invoice, error) {
	return s.invoiceRepo.FindByNumber(ctx, number)
}

// GetPublicInvoice resolves an invoice for the public payment page. Draft and
// cancelled invoices are not exposed; the caller sees NOT_FOUND rather than a
// hint that the invoice exists.
func (s *InvoiceService) GetPublicInvoice(ctx context.Context, id uuid.UUID) (*invoicing.Invoice, error) {
	inv, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.IsDraft() || inv.Status == invoicing.InvoiceStatusCancelled {
		return nil, invoicing.ErrInvoiceNotFound
	}
	return inv, nil
}

// ListInvoices returns invoices matching the filter with the total count
func (s *InvoiceService) ListInvoices(ctx context.Context, filter invoicing.InvoiceFilter) ([]invoicing.Invoice, int64, error) {
	return s.invoiceRepo.FindAll(ctx, filter)
}

// UpdateInvoice replaces the content of an invoice. Paid and cancelled
// invoices reject edits in the domain layer.
func (s *InvoiceService) UpdateInvoice(ctx context.Context, id uuid.UUID, req UpdateInvoiceRequest) (*invoicing.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "update_invoice")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrInvoiceID, id.String())

	var updated *invoicing.Invoice
	err := s.uow.Execute(ctx, func(repos invoicing.Repositories) error {
		inv, err := repos.Invoices.FindByID(ctx, id)
		if err != nil {
			return err
		}

		items, err := buildLineItems(req.LineItems, inv.Currency)
		if err != nil {
			return err
		}
		if err := inv.ReplaceLineItems(items); err != nil {
			return err
		}
		if err := inv.SetCharges(req.TaxRate, req.DiscountAmount); err != nil {
			return err
		}
		if err := inv.SetDates(req.IssueDate, req.DueDate, req.DeliveryDate); err != nil {
			return err
		}
		if err := inv.SetReferences(req.ReferenceNumber, req.PONumber, req.LPONumber); err != nil {
			return err
		}
		if err := inv.SetNotes(req.PaymentInstructions, req.Notes, req.InternalNotes); err != nil {
			return err
		}
		inv.CalculateTotals()

		if err := repos.Invoices.SaveWithLock(ctx, inv); err != nil {
			return err
		}
		updated = inv
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return updated, nil
}

// UpdateInvoiceStatus transitions an invoice and persists the status and its
// history record atomically.
func (s *InvoiceService) UpdateInvoiceStatus(ctx context.Context, id uuid.UUID, newStatus invoicing.InvoiceStatus, actor *uuid.UUID, notes string) (*invoicing.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "update_invoice_status")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrInvoiceID, id.String(),
		telemetry.SpanAttrInvoiceStatus, newStatus.String(),
	)

	var updated *invoicing.Invoice
	err := s.uow.Execute(ctx, func(repos invoicing.Repositories) error {
		inv, err := repos.Invoices.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if newStatus == inv.Status {
			// Same-status request is a successful no-op, nothing to persist
			updated = inv
			return nil
		}
		if err := inv.UpdateStatus(newStatus, actor, notes); err != nil {
			return err
		}
		if err := repos.Invoices.SaveWithLock(ctx, inv); err != nil {
			return err
		}
		updated = inv
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Invoice status updated",
		zap.String("invoice_id", id.String()),
		zap.String("status", newStatus.String()))
	return updated, nil
}

// DeleteInvoice deletes a draft invoice. Issued invoices are immutable
// records and must be cancelled instead.
func (s *InvoiceService) DeleteInvoice(ctx context.Context, id uuid.UUID) error {
	return s.uow.Execute(ctx, func(repos invoicing.Repositories) error {
		inv, err := repos.Invoices.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !inv.IsDraft() {
			return invoicing.NewValidationError("Only draft invoices can be deleted")
		}
		return repos.Invoices.Delete(ctx, id)
	})
}

// CheckOverdueInvoices sweeps SENT invoices past their due date and marks them
// OVERDUE. Each invoice transitions in its own transaction so one failure does
// not roll back the rest of the sweep. Returns the number of invoices marked.
func (s *InvoiceService) CheckOverdueInvoices(ctx context.Context, asOf time.Time) (int, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "check_overdue_invoices")
	defer span.End()

	due, err := s.invoiceRepo.FindDueForOverdueCheck(ctx, asOf)
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, err
	}

	marked := 0
	for i := range due {
		id := due[i].ID
		err := s.uow.Execute(ctx, func(repos invoicing.Repositories) error {
			inv, err := repos.Invoices.FindByID(ctx, id)
			if err != nil {
				return err
			}
			changed, err := inv.CheckOverdueStatus(asOf)
			if err != nil {
				return err
			}
			if !changed {
				return nil
			}
			if err := repos.Invoices.SaveWithLock(ctx, inv); err != nil {
				return err
			}
			marked++
			return nil
		})
		if err != nil {
			s.logger.Error("Failed to mark invoice overdue",
				zap.String("invoice_id", id.String()),
				zap.Error(err))
		}
	}

	telemetry.SetAttribute(span, "invoices_marked", marked)
	if marked > 0 {
		s.logger.Info("Overdue sweep completed",
			zap.Int("checked", len(due)),
			zap.Int("marked", marked))
	}
	return marked, nil
}

// GetInvoiceStats returns invoice counts and amounts grouped by status
func (s *InvoiceService) GetInvoiceStats(ctx context.Context) (*invoicing.InvoiceStats, error) {
	return s.invoiceRepo.Stats(ctx)
}

// RenderInvoicePDF renders an invoice into a PDF document
func (s *InvoiceService) RenderInvoicePDF(ctx context.Context, id uuid.UUID) ([]byte, error) {
	if s.renderer == nil {
		return nil, invoicing.NewValidationError("PDF rendering is not configured")
	}
	inv, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.renderer.RenderInvoicePDF(ctx, inv)
}

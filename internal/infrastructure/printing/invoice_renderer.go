package printing

import (
	"context"

	"github.com/wasatpay/backend/internal/domain/invoicing"
	"github.com/wasatpay/backend/internal/infrastructure/storage"
	"go.uber.org/zap"
)

// InvoicePDFRenderer renders invoices to PDF documents. It binds invoice data
// to the built-in HTML template and prints it through a PDFRenderer. When an
// object store is configured, rendered documents are also archived there.
type InvoicePDFRenderer struct {
	engine        *TemplateEngine
	renderer      PDFRenderer
	store         storage.ObjectStorage
	branding      Branding
	publicBaseURL string
	logger        *zap.Logger
}

// InvoicePDFRendererOption configures an InvoicePDFRenderer
type InvoicePDFRendererOption func(*InvoicePDFRenderer)

// WithBranding overrides the issuing organization shown on documents
func WithBranding(b Branding) InvoicePDFRendererOption {
	return func(r *InvoicePDFRenderer) { r.branding = b }
}

// WithPublicBaseURL sets the base URL used to build absolute payment links
func WithPublicBaseURL(url string) InvoicePDFRendererOption {
	return func(r *InvoicePDFRenderer) { r.publicBaseURL = url }
}

// WithArchiveStore enables archiving rendered PDFs to object storage.
// Archive failures are logged but never fail the render.
func WithArchiveStore(store storage.ObjectStorage) InvoicePDFRendererOption {
	return func(r *InvoicePDFRenderer) { r.store = store }
}

// NewInvoicePDFRenderer creates an invoice renderer backed by the given PDF
// engine.
func NewInvoicePDFRenderer(renderer PDFRenderer, logger *zap.Logger, opts ...InvoicePDFRendererOption) *InvoicePDFRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &InvoicePDFRenderer{
		engine:   NewTemplateEngine(),
		renderer: renderer,
		branding: DefaultBranding(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RenderInvoicePDF renders the invoice document and returns the PDF bytes.
func (r *InvoicePDFRenderer) RenderInvoicePDF(ctx context.Context, inv *invoicing.Invoice) ([]byte, error) {
	data := BuildInvoiceTemplateData(inv, r.branding, r.publicBaseURL)

	html, err := r.engine.RenderString(ctx, "invoice", defaultInvoiceTemplate, data)
	if err != nil {
		return nil, NewRenderError(ErrCodeTemplateFailed, "failed to render invoice template", err)
	}

	result, err := r.renderer.Render(ctx, &RenderRequest{
		HTML:        html,
		PaperSize:   PaperSizeA4,
		Orientation: OrientationPortrait,
		Margins:     DefaultMargins(),
		Title:       "Invoice " + inv.InvoiceNumber,
	})
	if err != nil {
		return nil, err
	}

	r.archive(ctx, inv, result.PDFData)

	return result.PDFData, nil
}

// Close releases the underlying PDF engine.
func (r *InvoicePDFRenderer) Close() error {
	return r.renderer.Close()
}

// archive stores the rendered PDF in object storage on a best-effort basis.
func (r *InvoicePDFRenderer) archive(ctx context.Context, inv *invoicing.Invoice, pdfData []byte) {
	if r.store == nil {
		return
	}
	key := storage.InvoicePDFKey(inv.InvoiceNumber)
	if err := r.store.Upload(ctx, key, pdfData, "application/pdf"); err != nil {
		r.logger.Warn("failed to archive invoice PDF",
			zap.String("invoice_number", inv.InvoiceNumber),
			zap.String("storage_key", key),
			zap.Error(err))
		return
	}
	r.logger.Debug("invoice PDF archived",
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("storage_key", key))
}

package printing

import (
	"strings"
	"time"

	"github.com/wasatpay/backend/internal/domain/invoicing"
)

// InvoiceTemplateData is the data bound to the invoice HTML template.
type InvoiceTemplateData struct {
	Invoice      *invoicing.Invoice
	CompanyName  string
	CompanyLine  string
	ContactEmail string
	// PaymentURL is the absolute public payment page link for the invoice
	PaymentURL  string
	GeneratedAt time.Time
}

// BuildInvoiceTemplateData assembles template data for an invoice. The public
// base URL is joined with the invoice's payment path to form an absolute link.
func BuildInvoiceTemplateData(inv *invoicing.Invoice, branding Branding, publicBaseURL string) *InvoiceTemplateData {
	paymentURL := inv.PaymentURL()
	if publicBaseURL != "" {
		paymentURL = strings.TrimRight(publicBaseURL, "/") + paymentURL
	}
	return &InvoiceTemplateData{
		Invoice:      inv,
		CompanyName:  branding.CompanyName,
		CompanyLine:  branding.CompanyLine,
		ContactEmail: branding.ContactEmail,
		PaymentURL:   paymentURL,
		GeneratedAt:  time.Now(),
	}
}

// Branding identifies the issuing organization on rendered documents.
type Branding struct {
	CompanyName  string
	CompanyLine  string
	ContactEmail string
}

// DefaultBranding returns the foundation's document branding.
func DefaultBranding() Branding {
	return Branding{
		CompanyName:  "Wasat Humanitarian Foundation",
		CompanyLine:  "Humanitarian Services & Development",
		ContactEmail: "finance@wasatfoundation.org",
	}
}

// defaultInvoiceTemplate is the built-in invoice document template. It renders
// a complete A4 page from InvoiceTemplateData.
const defaultInvoiceTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>Invoice {{ .Invoice.InvoiceNumber }}</title>
<style>
  body { font-family: Helvetica, Arial, sans-serif; font-size: 12px; color: #1f2933; margin: 0; }
  .invoice-container { padding: 8px; }
  .header { display: flex; justify-content: space-between; border-bottom: 2px solid #0b5394; padding-bottom: 12px; }
  .company-info h1 { font-size: 20px; margin: 0 0 4px 0; color: #0b5394; }
  .company-info p { margin: 0; color: #52606d; }
  .invoice-info { text-align: right; }
  .invoice-info h2 { font-size: 24px; margin: 0 0 6px 0; letter-spacing: 2px; }
  .invoice-info p { margin: 2px 0; }
  .billing-section { display: flex; justify-content: space-between; margin: 18px 0; }
  .billing-section h3 { font-size: 13px; margin: 0 0 6px 0; }
  .status-badge { display: inline-block; padding: 2px 10px; border: 1px solid #0b5394; border-radius: 3px; color: #0b5394; font-weight: bold; }
  .items-table { width: 100%; border-collapse: collapse; margin-top: 12px; }
  .items-table th { background: #0b5394; color: #fff; text-align: left; padding: 6px 8px; font-size: 11px; }
  .items-table td { padding: 6px 8px; border-bottom: 1px solid #d9e2ec; }
  .items-table .num { text-align: right; }
  .totals-section { margin-top: 14px; display: flex; justify-content: flex-end; }
  .totals-table { width: 260px; }
  .total-row { display: flex; justify-content: space-between; padding: 3px 0; }
  .final-total { border-top: 2px solid #0b5394; margin-top: 4px; padding-top: 6px; font-size: 14px; }
  .payment-section { margin-top: 22px; }
  .payment-section h3 { font-size: 13px; margin-bottom: 6px; }
  .payment-url { color: #0b5394; word-break: break-all; }
  .notes-section { margin-top: 16px; }
  .footer { margin-top: 30px; border-top: 1px solid #d9e2ec; padding-top: 10px; text-align: center; color: #52606d; font-size: 10px; }
</style>
</head>
<body>
<div class="invoice-container">
  <div class="header">
    <div class="company-info">
      <h1>{{ .CompanyName }}</h1>
      <p>{{ .CompanyLine }}</p>
    </div>
    <div class="invoice-info">
      <h2>INVOICE</h2>
      <p><strong>Invoice #:</strong> {{ .Invoice.InvoiceNumber }}</p>
      <p><strong>Date:</strong> {{ formatDate .Invoice.IssueDate }}</p>
      <p><strong>Due Date:</strong> {{ formatDate .Invoice.DueDate }}</p>
      {{ if .Invoice.ReferenceNumber }}<p><strong>Reference:</strong> {{ .Invoice.ReferenceNumber }}</p>{{ end }}
      {{ if .Invoice.PONumber }}<p><strong>PO #:</strong> {{ .Invoice.PONumber }}</p>{{ end }}
      {{ if .Invoice.LPONumber }}<p><strong>LPO #:</strong> {{ .Invoice.LPONumber }}</p>{{ end }}
    </div>
  </div>

  <div class="billing-section">
    <div>
      <h3>Status</h3>
      <span class="status-badge">{{ statusText (printf "%s" .Invoice.Status) }}</span>
    </div>
    <div>
      <h3>Pay Online</h3>
      <p class="payment-url">{{ .PaymentURL }}</p>
    </div>
  </div>

  <table class="items-table">
    <thead>
      <tr>
        <th>Description</th>
        <th class="num">Qty</th>
        <th class="num">Unit Price</th>
        <th class="num">Total</th>
      </tr>
    </thead>
    <tbody>
      {{ $currency := printf "%s" .Invoice.Currency }}
      {{ range .Invoice.LineItems }}
      <tr>
        <td>{{ .Description }}{{ if .ProductCode }} <small>({{ .ProductCode }})</small>{{ end }}</td>
        <td class="num">{{ formatDecimal .Quantity 2 }}{{ if .UnitOfMeasure }} {{ .UnitOfMeasure }}{{ end }}</td>
        <td class="num">{{ formatMoney $currency .UnitPrice }}</td>
        <td class="num">{{ formatMoney $currency .TotalAmount }}</td>
      </tr>
      {{ end }}
    </tbody>
  </table>

  <div class="totals-section">
    <div class="totals-table">
      <div class="total-row">
        <span>Subtotal:</span>
        <span>{{ formatMoney $currency .Invoice.Subtotal }}</span>
      </div>
      {{ if gt .Invoice.TaxAmount 0 }}
      <div class="total-row">
        <span>Tax ({{ formatDecimal .Invoice.TaxRate 2 }}%):</span>
        <span>{{ formatMoney $currency .Invoice.TaxAmount }}</span>
      </div>
      {{ end }}
      {{ if gt .Invoice.DiscountAmount 0 }}
      <div class="total-row">
        <span>Discount:</span>
        <span>-{{ formatMoney $currency .Invoice.DiscountAmount }}</span>
      </div>
      {{ end }}
      <div class="total-row final-total">
        <span><strong>Total Amount:</strong></span>
        <span><strong>{{ formatMoney $currency .Invoice.TotalAmount }}</strong></span>
      </div>
      {{ if gt (.Invoice.TotalPaid) 0 }}
      <div class="total-row">
        <span>Paid:</span>
        <span>{{ formatMoney $currency .Invoice.TotalPaid }}</span>
      </div>
      <div class="total-row">
        <span>Balance Due:</span>
        <span>{{ formatMoney $currency .Invoice.OutstandingAmount }}</span>
      </div>
      {{ end }}
    </div>
  </div>

  <div class="payment-section">
    <h3>Payment Instructions</h3>
    <p>Pay online at <a href="{{ .PaymentURL }}">{{ .PaymentURL }}</a>. We accept cards, bank transfers, and mobile money payments.</p>
    {{ if .Invoice.PaymentInstructions }}<p>{{ .Invoice.PaymentInstructions }}</p>{{ end }}
    <p>Payment Terms: {{ .Invoice.PaymentTerms }} days</p>
  </div>

  {{ if .Invoice.Notes }}
  <div class="notes-section">
    <h3>Notes</h3>
    <p>{{ .Invoice.Notes }}</p>
  </div>
  {{ end }}

  <div class="footer">
    <p>Thank you for supporting {{ .CompanyName }}</p>
    <p>For questions about this invoice, please contact us at {{ .ContactEmail }}</p>
    <p>Generated on {{ formatDateTime .GeneratedAt }}</p>
  </div>
</div>
</body>
</html>`

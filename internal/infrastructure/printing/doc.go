// Package printing provides infrastructure for rendering invoice documents
// to PDF using headless Chrome.
//
// This package contains:
// - PDFRenderer interface for rendering HTML to PDF
// - ChromedpRenderer implementation driving Chrome via the DevTools protocol
// - TemplateEngine for binding invoice data to HTML templates
// - InvoicePDFRenderer tying templates and the renderer together
//
// Example usage:
//
//	renderer, err := NewChromedpRenderer(&ChromedpConfig{
//	    DefaultTimeout: 30 * time.Second,
//	    NoSandbox:      true,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer renderer.Close()
//
//	result, err := renderer.Render(ctx, &RenderRequest{
//	    HTML:        "<html>...</html>",
//	    PaperSize:   PaperSizeA4,
//	    Orientation: OrientationPortrait,
//	    Margins:     DefaultMargins(),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("Generated PDF: %d bytes\n", len(result.PDFData))
package printing

package printing

import (
	"context"
	"fmt"
	"time"
)

// PaperSize identifies the output paper dimensions for a rendered document.
type PaperSize string

const (
	PaperSizeA4     PaperSize = "A4"
	PaperSizeA5     PaperSize = "A5"
	PaperSizeLetter PaperSize = "LETTER"
)

// Dimensions returns the paper width and height in millimeters.
func (p PaperSize) Dimensions() (width, height int) {
	switch p {
	case PaperSizeA4:
		return 210, 297
	case PaperSizeA5:
		return 148, 210
	case PaperSizeLetter:
		return 216, 279
	default:
		return 0, 0
	}
}

// IsValid checks whether the paper size is a known value.
func (p PaperSize) IsValid() bool {
	switch p {
	case PaperSizeA4, PaperSizeA5, PaperSizeLetter:
		return true
	}
	return false
}

// Orientation defines the page orientation.
type Orientation string

const (
	OrientationPortrait  Orientation = "PORTRAIT"
	OrientationLandscape Orientation = "LANDSCAPE"
)

// Margins defines page margins in millimeters.
type Margins struct {
	Top    int
	Right  int
	Bottom int
	Left   int
}

// NewMargins creates margins with validation. Each side must be 0-100mm.
func NewMargins(top, right, bottom, left int) (Margins, error) {
	for _, v := range []int{top, right, bottom, left} {
		if v < 0 || v > 100 {
			return Margins{}, fmt.Errorf("margin must be between 0 and 100 mm, got %d", v)
		}
	}
	return Margins{Top: top, Right: right, Bottom: bottom, Left: left}, nil
}

// DefaultMargins returns standard 10mm document margins.
func DefaultMargins() Margins {
	return Margins{Top: 10, Right: 10, Bottom: 10, Left: 10}
}

// RenderRequest contains the parameters for rendering HTML to PDF
type RenderRequest struct {
	// HTML content to render
	HTML string
	// PaperSize defines the output paper dimensions
	PaperSize PaperSize
	// Orientation defines portrait or landscape
	Orientation Orientation
	// Margins in millimeters
	Margins Margins
	// Title for the PDF document metadata
	Title string
	// Header HTML content (optional)
	HeaderHTML string
	// Footer HTML content (optional)
	FooterHTML string
	// Timeout overrides the default rendering timeout
	Timeout time.Duration
}

// RenderResult contains the output from PDF rendering
type RenderResult struct {
	// PDFData is the raw PDF file content
	PDFData []byte
	// PageCount is the number of pages in the PDF
	PageCount int
	// RenderDuration is how long the rendering took
	RenderDuration time.Duration
}

// PDFRenderer defines the interface for rendering HTML to PDF
type PDFRenderer interface {
	// Render converts HTML content to a PDF document
	Render(ctx context.Context, req *RenderRequest) (*RenderResult, error)
	// Close releases any resources held by the renderer
	Close() error
}

// RenderError represents an error during PDF rendering
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// Error codes for rendering failures
const (
	ErrCodeRenderTimeout    = "RENDER_TIMEOUT"
	ErrCodeRenderFailed     = "RENDER_FAILED"
	ErrCodeInvalidHTML      = "INVALID_HTML"
	ErrCodeInvalidPaperSize = "INVALID_PAPER_SIZE"
	ErrCodeTemplateFailed   = "TEMPLATE_FAILED"
	ErrCodeStorageFailed    = "STORAGE_FAILED"
)

// NewRenderError creates a new RenderError
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

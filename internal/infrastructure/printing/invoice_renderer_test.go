package printing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakePDFRenderer records the last request and returns canned output.
type fakePDFRenderer struct {
	lastRequest *RenderRequest
	result      *RenderResult
	err         error
	closed      bool
}

func (f *fakePDFRenderer) Render(ctx context.Context, req *RenderRequest) (*RenderResult, error) {
	f.lastRequest = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakePDFRenderer) Close() error {
	f.closed = true
	return nil
}

// recordingStore captures uploads for assertions.
type recordingStore struct {
	uploadedKey  string
	uploadedData []byte
	contentType  string
	uploadErr    error
}

func (r *recordingStore) Upload(ctx context.Context, storageKey string, data []byte, contentType string) error {
	r.uploadedKey = storageKey
	r.uploadedData = data
	r.contentType = contentType
	return r.uploadErr
}

func (r *recordingStore) GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error) {
	return "", time.Time{}, nil
}

func (r *recordingStore) GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	return "", time.Time{}, nil
}

func (r *recordingStore) DeleteObject(ctx context.Context, storageKey string) error { return nil }

func (r *recordingStore) ObjectExists(ctx context.Context, storageKey string) (bool, error) {
	return false, nil
}

func TestInvoicePDFRenderer_RenderInvoicePDF(t *testing.T) {
	ctx := context.Background()
	pdfBytes := []byte("%PDF-1.7 test")

	t.Run("renders invoice through engine", func(t *testing.T) {
		fake := &fakePDFRenderer{result: &RenderResult{PDFData: pdfBytes, PageCount: 1}}
		r := NewInvoicePDFRenderer(fake, zap.NewNop(),
			WithPublicBaseURL("https://pay.wasatfoundation.org"))

		inv := buildTestInvoice(t)
		data, err := r.RenderInvoicePDF(ctx, inv)
		require.NoError(t, err)
		assert.Equal(t, pdfBytes, data)

		require.NotNil(t, fake.lastRequest)
		assert.Equal(t, PaperSizeA4, fake.lastRequest.PaperSize)
		assert.Equal(t, OrientationPortrait, fake.lastRequest.Orientation)
		assert.Equal(t, DefaultMargins(), fake.lastRequest.Margins)
		assert.Equal(t, "Invoice INV-2025-0042", fake.lastRequest.Title)
		assert.Contains(t, fake.lastRequest.HTML, "INV-2025-0042")
		assert.Contains(t, fake.lastRequest.HTML, "Wasat Humanitarian Foundation")
	})

	t.Run("archives rendered PDF when store configured", func(t *testing.T) {
		fake := &fakePDFRenderer{result: &RenderResult{PDFData: pdfBytes, PageCount: 1}}
		store := &recordingStore{}
		r := NewInvoicePDFRenderer(fake, zap.NewNop(), WithArchiveStore(store))

		inv := buildTestInvoice(t)
		_, err := r.RenderInvoicePDF(ctx, inv)
		require.NoError(t, err)
		assert.Equal(t, "invoices/INV-2025-0042.pdf", store.uploadedKey)
		assert.Equal(t, pdfBytes, store.uploadedData)
		assert.Equal(t, "application/pdf", store.contentType)
	})

	t.Run("archive failure does not fail the render", func(t *testing.T) {
		fake := &fakePDFRenderer{result: &RenderResult{PDFData: pdfBytes, PageCount: 1}}
		store := &recordingStore{uploadErr: errors.New("bucket unavailable")}
		r := NewInvoicePDFRenderer(fake, zap.NewNop(), WithArchiveStore(store))

		data, err := r.RenderInvoicePDF(ctx, buildTestInvoice(t))
		require.NoError(t, err)
		assert.Equal(t, pdfBytes, data)
	})

	t.Run("render failure propagates", func(t *testing.T) {
		fake := &fakePDFRenderer{err: NewRenderError(ErrCodeRenderTimeout, "timed out", nil)}
		r := NewInvoicePDFRenderer(fake, zap.NewNop())

		_, err := r.RenderInvoicePDF(ctx, buildTestInvoice(t))
		require.Error(t, err)
		var renderErr *RenderError
		require.ErrorAs(t, err, &renderErr)
		assert.Equal(t, ErrCodeRenderTimeout, renderErr.Code)
	})

	t.Run("custom branding appears in document", func(t *testing.T) {
		fake := &fakePDFRenderer{result: &RenderResult{PDFData: pdfBytes, PageCount: 1}}
		r := NewInvoicePDFRenderer(fake, zap.NewNop(), WithBranding(Branding{
			CompanyName:  "Test Organization",
			CompanyLine:  "Community Programs",
			ContactEmail: "billing@test.org",
		}))

		_, err := r.RenderInvoicePDF(ctx, buildTestInvoice(t))
		require.NoError(t, err)
		assert.Contains(t, fake.lastRequest.HTML, "Test Organization")
		assert.Contains(t, fake.lastRequest.HTML, "billing@test.org")
	})

	t.Run("close releases engine", func(t *testing.T) {
		fake := &fakePDFRenderer{}
		r := NewInvoicePDFRenderer(fake, zap.NewNop())
		require.NoError(t, r.Close())
		assert.True(t, fake.closed)
	})
}

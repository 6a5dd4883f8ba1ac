// Package storage provides object storage implementations for rendered
// documents such as invoice PDFs.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/wasatpay/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// ObjectStorage abstracts an S3-style object store. Invoice PDFs are archived
// under stable keys so regenerated documents overwrite their predecessors.
type ObjectStorage interface {
	// Upload stores data under the given key
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error
	// GenerateUploadURL returns a presigned URL for a direct client upload
	GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error)
	// GenerateDownloadURL returns a presigned URL for downloading an object
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)
	// DeleteObject removes an object from storage
	DeleteObject(ctx context.Context, storageKey string) error
	// ObjectExists reports whether an object exists
	ObjectExists(ctx context.Context, storageKey string) (bool, error)
}

// NewFromConfig builds the object storage backend selected by configuration.
func NewFromConfig(cfg *config.StorageConfig, logger *zap.Logger) (ObjectStorage, error) {
	if cfg == nil {
		return NewStubObjectStorage(), nil
	}
	switch cfg.Driver {
	case "s3":
		return NewS3ObjectStorage(cfg, WithLogger(logger))
	case "", "stub":
		return NewStubObjectStorage(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// InvoicePDFKey returns the storage key for an invoice's rendered PDF.
// Keys are stable per invoice number so re-renders replace older copies.
func InvoicePDFKey(invoiceNumber string) string {
	return fmt.Sprintf("invoices/%s.pdf", invoiceNumber)
}

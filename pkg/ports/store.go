package ports

import (
	"context"

	"github.com/aretw0/vignette/pkg/domain"
)

// StorageBackend persists the whole document as one value.
//
// Implementations validate on both sides: Read never returns a document that fails
// schema validation and Write never stores one. Each Read returns a fresh value the
// caller owns; Write must replace the stored document atomically for readers.
type StorageBackend interface {
	// Read returns the committed document, creating and storing the default
	// document when nothing has been written yet.
	Read(ctx context.Context) (*domain.Document, error)

	// Write validates and stores doc, replacing the previous document.
	Write(ctx context.Context, doc *domain.Document) error
}

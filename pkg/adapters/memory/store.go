// Package memory implements ports.StorageBackend in process memory.
package memory

import (
	"context"
	"sync"

	"github.com/aretw0/vignette/pkg/domain"
	"github.com/aretw0/vignette/pkg/schema"
)

// Store implements ports.StorageBackend in memory.
// It keeps the encoded bytes rather than the value, so reads and writes go through
// the same codec and validation as the durable backends.
// Safe for concurrent use.
type Store struct {
	data []byte
	mu   sync.RWMutex
}

// NewStore creates a new, empty in-memory store.
func NewStore() *Store {
	return &Store{}
}

// Read decodes the stored document, storing the default document on first use.
func (s *Store) Read(ctx context.Context) (*domain.Document, error) {
	s.mu.RLock()
	data := s.data
	s.mu.RUnlock()

	if data == nil {
		doc := domain.NewDocument()
		encoded, err := schema.EncodeDocument(doc)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		if s.data == nil {
			s.data = encoded
		}
		data = s.data
		s.mu.Unlock()
	}
	return schema.DecodeDocument(data)
}

// Write validates and stores the document.
func (s *Store) Write(ctx context.Context, doc *domain.Document) error {
	data, err := schema.EncodeDocument(doc)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	return nil
}

// Package file implements ports.StorageBackend as a single JSON file.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/aretw0/vignette/pkg/domain"
	"github.com/aretw0/vignette/pkg/schema"
)

// DefaultPath is used when New is given an empty path.
var DefaultPath = filepath.Join(".vignette", "store.json")

// Store implements ports.StorageBackend on the local filesystem.
// Concurrent writers from separate processes sharing one path are not coordinated.
type Store struct {
	path string
}

// New creates a Store for the document at path.
func New(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{path: path}
}

// Path returns the document location.
func (s *Store) Path() string { return s.path }

// Read loads and validates the document, writing the default document first
// when the file does not exist yet.
func (s *Store) Read(ctx context.Context) (*domain.Document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return s.initialize()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}
	return s.decode(data)
}

// initialize creates the file with the default document only if it is still
// absent. A document committed in the meantime wins and is returned instead.
func (s *Store) initialize() (*domain.Document, error) {
	doc := domain.NewDocument()
	tmpPath, err := s.writeTemp(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store file: %w", err)
	}
	defer func() { _ = os.Remove(tmpPath) }()

	// Link fails with fs.ErrExist instead of replacing the target.
	err = os.Link(tmpPath, s.path)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, fs.ErrExist) {
		return nil, fmt.Errorf("failed to initialize store file: %w", err)
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read store file: %w", err)
	}
	return s.decode(data)
}

func (s *Store) decode(data []byte) (*domain.Document, error) {
	doc, err := schema.DecodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("store file %s: %w", s.path, err)
	}
	return doc, nil
}

// Write persists the document atomically.
// It writes to a temporary file in the same directory, syncs via fsync, and then
// renames it over the destination, so readers see either the old or the new file.
func (s *Store) Write(ctx context.Context, doc *domain.Document) error {
	tmpPath, err := s.writeTemp(doc)
	if err != nil {
		return err
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file over store file: %w", err)
	}
	return nil
}

// writeTemp encodes doc into a synced temporary file next to the store file
// and returns its path. The caller owns the file.
func (s *Store) writeTemp(doc *domain.Document) (string, error) {
	data, err := schema.EncodeDocument(doc)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to ensure store directory: %w", err)
	}

	// Same directory keeps the rename on one filesystem.
	tmpFile, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	fail := func(format string, err error) (string, error) {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf(format, err)
	}
	if _, err := tmpFile.Write(data); err != nil {
		return fail("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fail("failed to fsync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	return tmpPath, nil
}

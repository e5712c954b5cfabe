// Package sqlite implements ports.StorageBackend as one row of a SQLite table.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/vignette/pkg/domain"
	"github.com/aretw0/vignette/pkg/schema"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// DefaultName is the row key of the document when no WithName option is given.
const DefaultName = "default"

// Store persists the document as a JSON blob in the documents table.
type Store struct {
	db   *sql.DB
	path string
	name string
}

type Option func(*Store)

// WithName selects the row holding the document, so one database can hold several.
func WithName(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.name = name
		}
	}
}

// Open opens (creating if needed) the database at path and its documents table.
func Open(path string, opts ...Option) (*Store, error) {
	if path == "" {
		path = filepath.Join(".vignette", "vignette.db")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		name TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create documents table: %w", err)
	}

	s := &Store{db: db, path: path, name: DefaultName}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Read loads and validates the document, inserting the default document when the
// row does not exist yet.
func (s *Store) Read(ctx context.Context) (*domain.Document, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM documents WHERE name = ?`, s.name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return s.initialize(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("select document: %w", err)
	}

	doc, err := schema.DecodeDocument(payload)
	if err != nil {
		return nil, fmt.Errorf("sqlite document %s: %w", s.name, err)
	}
	return doc, nil
}

func (s *Store) initialize(ctx context.Context) (*domain.Document, error) {
	doc := domain.NewDocument()
	data, err := schema.EncodeDocument(doc)
	if err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO documents(name,payload) VALUES(?,?) ON CONFLICT(name) DO NOTHING`, s.name, data)
	if err != nil {
		return nil, fmt.Errorf("insert default document: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return s.Read(ctx)
	}
	return doc, nil
}

// Write validates and upserts the document in one transaction.
func (s *Store) Write(ctx context.Context, doc *domain.Document) (retErr error) {
	data, err := schema.EncodeDocument(doc)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `INSERT INTO documents(name,payload) VALUES(?,?) ON CONFLICT(name) DO UPDATE SET payload=excluded.payload`, s.name, data); err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

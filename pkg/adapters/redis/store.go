// Package redis implements ports.StorageBackend as a single Redis key.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/vignette/pkg/domain"
	"github.com/aretw0/vignette/pkg/schema"
	backend "github.com/redis/go-redis/v9"
)

// DefaultKey holds the document when no WithKey option is given.
const DefaultKey = "vignette:document"

// Store implements ports.StorageBackend using Redis.
// The whole document is one string value, so a single SET replaces it atomically.
type Store struct {
	client *backend.Client
	key    string
}

type Option func(*Store)

// WithKey sets the key holding the document.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		key:    DefaultKey,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Key returns the key holding the document.
func (s *Store) Key() string { return s.key }

// Read loads and validates the document. A missing key is initialized with the
// default document using SETNX, so a concurrent first write is never overwritten.
func (s *Store) Read(ctx context.Context) (*domain.Document, error) {
	val, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, backend.Nil) {
		return s.initialize(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	doc, err := schema.DecodeDocument(val)
	if err != nil {
		return nil, fmt.Errorf("redis key %s: %w", s.key, err)
	}
	return doc, nil
}

func (s *Store) initialize(ctx context.Context) (*domain.Document, error) {
	doc := domain.NewDocument()
	data, err := schema.EncodeDocument(doc)
	if err != nil {
		return nil, err
	}
	created, err := s.client.SetNX(ctx, s.key, data, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize redis document: %w", err)
	}
	if !created {
		return s.Read(ctx)
	}
	return doc, nil
}

// Write validates and stores the document.
func (s *Store) Write(ctx context.Context, doc *domain.Document) error {
	data, err := schema.EncodeDocument(doc)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Package store serializes read-modify-write cycles over a StorageBackend.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/vignette/internal/logging"
	"github.com/aretw0/vignette/pkg/domain"
	"github.com/aretw0/vignette/pkg/observability"
	"github.com/aretw0/vignette/pkg/ports"
	"github.com/aretw0/vignette/pkg/schema"
)

// MutateFunc edits a draft document. Returning an error aborts the mutation.
type MutateFunc func(draft *domain.Document) error

// PanicError wraps a panic raised inside a MutateFunc.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("mutation panicked: %v", e.Value)
}

// Store orchestrates document access.
//
// Mutations run one at a time in submission order. Each one starts only after the
// previous one has finished writing, reads the committed document fresh from the
// backend, and edits a deep copy. Reads are not queued and may observe the document
// as it was before an in-flight mutation.
type Store struct {
	backend ports.StorageBackend

	mu   sync.Mutex    // Guards tail
	tail chan struct{} // Closed when the last submitted mutation finishes

	logger  *slog.Logger
	metrics *observability.Metrics
}

// Option configures the Store.
type Option func(*Store)

// WithLogger configures a logger for the Store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithMetrics records queue depth and mutation outcomes.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(s *Store) {
		s.metrics = metrics
	}
}

// New creates a Store over backend.
func New(backend ports.StorageBackend, opts ...Option) *Store {
	done := make(chan struct{})
	close(done)

	s := &Store{
		backend: backend,
		tail:    done,
		logger:  logging.NewNop(), // Default to no-op
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend returns the underlying storage backend.
func (s *Store) Backend() ports.StorageBackend {
	return s.backend
}

// Read returns the committed document straight from the backend.
func (s *Store) Read(ctx context.Context) (*domain.Document, error) {
	return s.backend.Read(ctx)
}

// enqueue appends a ticket to the chain. The caller waits on prev and must close
// next when done, whatever the outcome.
func (s *Store) enqueue() (prev <-chan struct{}, next chan struct{}) {
	next = make(chan struct{})
	s.mu.Lock()
	prev, s.tail = s.tail, next
	s.mu.Unlock()
	return prev, next
}

// Mutate applies fn to a copy of the committed document and writes the result.
//
// The returned document is the committed one and is owned by the caller. When fn
// fails or panics, validation fails, or the write fails, nothing is written and the
// next queued mutation proceeds as usual. Cancelling ctx does not release the
// queue slot; the backend sees ctx.
func (s *Store) Mutate(ctx context.Context, fn MutateFunc) (*domain.Document, error) {
	start := time.Now()
	prev, next := s.enqueue()
	defer close(next)
	s.metrics.MutationStarted()
	<-prev

	doc, result, err := s.apply(ctx, fn)
	s.metrics.MutationFinished(result, start)
	if err != nil {
		s.logger.Debug("mutation aborted",
			"result", result,
			"err", err,
		)
		return nil, err
	}
	s.logger.Debug("mutation committed", "elapsed", time.Since(start))
	return doc, nil
}

func (s *Store) apply(ctx context.Context, fn MutateFunc) (*domain.Document, string, error) {
	committed, err := s.backend.Read(ctx)
	if err != nil {
		return nil, resultOf(err), fmt.Errorf("failed to read document: %w", err)
	}

	draft := committed.Clone()
	if err := run(fn, draft); err != nil {
		if errors.Is(err, schema.ErrInvalid) {
			return nil, observability.ResultInvalid, err
		}
		return nil, observability.ResultAborted, err
	}

	if err := schema.ValidateDocument(draft); err != nil {
		return nil, observability.ResultInvalid, err
	}
	if err := s.backend.Write(ctx, draft); err != nil {
		return nil, resultOf(err), fmt.Errorf("failed to write document: %w", err)
	}
	return draft, observability.ResultCommitted, nil
}

func run(fn MutateFunc, draft *domain.Document) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return fn(draft)
}

func resultOf(err error) string {
	if errors.Is(err, schema.ErrInvalid) {
		return observability.ResultInvalid
	}
	return observability.ResultFailed
}

package middleware

import (
	"context"
	"log/slog"

	"github.com/aretw0/vignette/pkg/domain"
	"github.com/aretw0/vignette/pkg/ports"
)

type loggingMiddleware struct {
	next   ports.StorageBackend
	logger *slog.Logger
}

// NewLoggingMiddleware logs failed backend calls at error level and writes at debug.
func NewLoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next ports.StorageBackend) ports.StorageBackend {
		return &loggingMiddleware{next: next, logger: logger}
	}
}

func (m *loggingMiddleware) Read(ctx context.Context) (*domain.Document, error) {
	doc, err := m.next.Read(ctx)
	if err != nil {
		m.logger.Error("backend read failed", "err", err)
	}
	return doc, err
}

func (m *loggingMiddleware) Write(ctx context.Context, doc *domain.Document) error {
	if err := m.next.Write(ctx, doc); err != nil {
		m.logger.Error("backend write failed", "err", err)
		return err
	}
	m.logger.Debug("document written",
		"runs", len(doc.Runs),
		"variants", len(doc.Variants),
	)
	return nil
}

func (m *loggingMiddleware) Close() error {
	return closeNext(m.next)
}

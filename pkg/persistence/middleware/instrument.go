package middleware

import (
	"context"
	"time"

	"github.com/aretw0/vignette/pkg/domain"
	"github.com/aretw0/vignette/pkg/observability"
	"github.com/aretw0/vignette/pkg/ports"
)

type instrumentMiddleware struct {
	next    ports.StorageBackend
	metrics *observability.Metrics
}

// NewInstrumentMiddleware records the latency and failures of every backend call.
func NewInstrumentMiddleware(metrics *observability.Metrics) Middleware {
	return func(next ports.StorageBackend) ports.StorageBackend {
		return &instrumentMiddleware{next: next, metrics: metrics}
	}
}

func (m *instrumentMiddleware) Read(ctx context.Context) (*domain.Document, error) {
	start := time.Now()
	doc, err := m.next.Read(ctx)
	m.metrics.BackendOp("read", time.Since(start), err)
	return doc, err
}

func (m *instrumentMiddleware) Write(ctx context.Context, doc *domain.Document) error {
	start := time.Now()
	err := m.next.Write(ctx, doc)
	m.metrics.BackendOp("write", time.Since(start), err)
	return err
}

func (m *instrumentMiddleware) Close() error {
	return closeNext(m.next)
}

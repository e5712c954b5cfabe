package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/aretw0/vignette/internal/logging"
	"github.com/aretw0/vignette/pkg/adapters/memory"
	"github.com/aretw0/vignette/pkg/domain"
	"github.com/aretw0/vignette/pkg/observability"
	"github.com/aretw0/vignette/pkg/ports"
	"github.com/aretw0/vignette/pkg/ports/tests"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChain_Contract(t *testing.T) {
	tests.RunBackendContract(t, func(t *testing.T) ports.StorageBackend {
		return Chain(memory.NewStore(),
			NewLoggingMiddleware(logging.NewNop()),
			NewInstrumentMiddleware(observability.NewMetrics(nil)),
		)
	})
}

type recorder struct {
	ports.StorageBackend
	calls  *[]string
	name   string
	closed bool
}

func (r *recorder) Read(ctx context.Context) (*domain.Document, error) {
	*r.calls = append(*r.calls, r.name)
	return r.StorageBackend.Read(ctx)
}

func (r *recorder) Close() error {
	r.closed = true
	return nil
}

func TestChain_Order(t *testing.T) {
	var calls []string
	wrap := func(name string) Middleware {
		return func(next ports.StorageBackend) ports.StorageBackend {
			return &recorder{StorageBackend: next, calls: &calls, name: name}
		}
	}
	backend := Chain(memory.NewStore(), wrap("outer"), wrap("inner"))

	_, err := backend.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner"}, calls)
}

type failingBackend struct {
	ports.StorageBackend
}

func (failingBackend) Write(context.Context, *domain.Document) error {
	return errors.New("disk full")
}

func TestInstrumentMiddleware(t *testing.T) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	backend := NewInstrumentMiddleware(metrics)(failingBackend{memory.NewStore()})
	ctx := context.Background()

	doc, err := backend.Read(ctx)
	require.NoError(t, err)
	assert.Error(t, backend.Write(ctx, doc))

	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.BackendErrors.WithLabelValues("read")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.BackendErrors.WithLabelValues("write")))
	assert.Equal(t, 2, testutil.CollectAndCount(metrics.BackendDuration))
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, slog.LevelDebug)
	ctx := context.Background()

	backend := NewLoggingMiddleware(logger)(memory.NewStore())
	doc, err := backend.Read(ctx)
	require.NoError(t, err)
	require.NoError(t, backend.Write(ctx, doc))
	assert.Contains(t, buf.String(), "document written")

	backend = NewLoggingMiddleware(logger)(failingBackend{memory.NewStore()})
	assert.Error(t, backend.Write(ctx, doc))
	assert.Contains(t, buf.String(), "backend write failed")
	assert.Contains(t, buf.String(), "err=\"disk full\"")
}

func TestClosePassesThrough(t *testing.T) {
	var calls []string
	inner := &recorder{StorageBackend: memory.NewStore(), calls: &calls}
	backend := Chain(inner, NewLoggingMiddleware(logging.NewNop()), NewInstrumentMiddleware(nil))

	closer, ok := backend.(interface{ Close() error })
	require.True(t, ok)
	require.NoError(t, closer.Close())
	assert.True(t, inner.closed)
}
